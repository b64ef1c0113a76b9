package nodes

import (
	"context"
	"fmt"
	"strings"
	"time"

	contractx "github.com/tanpawarit/Chative-Support-Ticket-Workflow/agent/contract"
	promptx "github.com/tanpawarit/Chative-Support-Ticket-Workflow/agent/prompt"
	statex "github.com/tanpawarit/Chative-Support-Ticket-Workflow/agent/state"
)

func Classify(
	ctx context.Context,
	in *statex.RunState,
	generator contractx.TextGenerator,
	prompts promptx.PromptSet,
	timeout time.Duration,
) (*statex.RunState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: run state is nil", contractx.ErrValidation)
	}

	vars := map[string]string{
		"query":  in.Query,
		"labels": categoryLabels(),
	}

	summary, err := generate(ctx, generator, promptx.Fill(prompts.Summarize, vars), timeout)
	if err != nil {
		return nil, fmt.Errorf("summarize: %w", err)
	}
	rawCategory, err := generate(ctx, generator, promptx.Fill(prompts.Classify, vars), timeout)
	if err != nil {
		return nil, fmt.Errorf("classify: %w", err)
	}

	in.Summary = strings.TrimSpace(summary)
	in.Category = contractx.ParseCategory(rawCategory)
	return in, nil
}

func generate(
	ctx context.Context,
	generator contractx.TextGenerator,
	prompt string,
	timeout time.Duration,
) (string, error) {
	callCtx, cancel := withCallTimeout(ctx, timeout)
	defer cancel()
	return generator.Generate(callCtx, prompt)
}

func categoryLabels() string {
	labels := make([]string, 0, len(contractx.Categories))
	for _, c := range contractx.Categories {
		labels = append(labels, string(c))
	}
	return strings.Join(labels, ", ")
}
