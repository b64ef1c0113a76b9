package llm

import (
	"context"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	einoprompt "github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	contractx "github.com/tanpawarit/Chative-Support-Ticket-Workflow/agent/contract"
	promptx "github.com/tanpawarit/Chative-Support-Ticket-Workflow/agent/prompt"
)

var _ contractx.TextGenerator = (*ChatGenerator)(nil)

// ChatGenerator runs a single prompt through a system-prompted chat model.
type ChatGenerator struct {
	runner compose.Runnable[map[string]any, *schema.Message]
}

func NewChatGenerator(
	ctx context.Context,
	chatModel einomodel.BaseChatModel,
	systemPrompt string,
	graphName string,
) (*ChatGenerator, error) {
	runner, err := compileGenerateGraph(ctx, chatModel, systemPrompt, graphName)
	if err != nil {
		return nil, fmt.Errorf("%w: compile generator graph: %v", contractx.ErrModelInvoke, err)
	}
	return &ChatGenerator{runner: runner}, nil
}

func (g *ChatGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", fmt.Errorf("%w: prompt is empty", contractx.ErrValidation)
	}

	msg, err := g.runner.Invoke(ctx, map[string]any{
		"input": prompt,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", contractx.ErrModelInvoke, err)
	}
	if msg == nil {
		return "", nil
	}
	return strings.TrimSpace(msg.Content), nil
}

func compileGenerateGraph(
	ctx context.Context,
	chatModel einomodel.BaseChatModel,
	systemPrompt string,
	graphName string,
) (compose.Runnable[map[string]any, *schema.Message], error) {
	messages := []schema.MessagesTemplate{}
	if s := strings.TrimSpace(systemPrompt); s != "" {
		messages = append(messages, schema.SystemMessage(s))
	}
	messages = append(messages, schema.UserMessage("{input}"))
	template := einoprompt.FromMessages(schema.FString, messages...)

	graph := compose.NewGraph[map[string]any, *schema.Message]()
	if err := graph.AddChatTemplateNode("prompt", template); err != nil {
		return nil, fmt.Errorf("add generator prompt node: %w", err)
	}
	if err := graph.AddChatModelNode("model", chatModel); err != nil {
		return nil, fmt.Errorf("add generator model node: %w", err)
	}
	if err := graph.AddEdge(compose.START, "prompt"); err != nil {
		return nil, fmt.Errorf("add generator edge start->prompt: %w", err)
	}
	if err := graph.AddEdge("prompt", "model"); err != nil {
		return nil, fmt.Errorf("add generator edge prompt->model: %w", err)
	}
	if err := graph.AddEdge("model", compose.END); err != nil {
		return nil, fmt.Errorf("add generator edge model->end: %w", err)
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName(graphName))
	if err != nil {
		return nil, fmt.Errorf("compile generator graph: %w", err)
	}
	return runner, nil
}

// Generators holds one generator per pipeline role.
type Generators struct {
	Classifier contractx.TextGenerator
	Drafter    contractx.TextGenerator
}

func NewGenerators(ctx context.Context, cfg Config) (Generators, error) {
	if err := cfg.Validate(); err != nil {
		return Generators{}, err
	}

	prompts := promptx.LoadPromptSet()

	classifierCfg := cfg.ProviderFor(RoleClassifier)
	classifierModel, err := classifierCfg.New(ctx)
	if err != nil {
		return Generators{}, fmt.Errorf("%w: create classifier model: %v", contractx.ErrModelInvoke, err)
	}
	drafterCfg := cfg.ProviderFor(RoleDrafter)
	drafterModel, err := drafterCfg.New(ctx)
	if err != nil {
		return Generators{}, fmt.Errorf("%w: create drafter model: %v", contractx.ErrModelInvoke, err)
	}

	classifier, err := NewChatGenerator(ctx, classifierModel, prompts.System, "generator.classifier")
	if err != nil {
		return Generators{}, err
	}
	drafter, err := NewChatGenerator(ctx, drafterModel, prompts.System, "generator.drafter")
	if err != nil {
		return Generators{}, err
	}

	return Generators{
		Classifier: classifier,
		Drafter:    drafter,
	}, nil
}
