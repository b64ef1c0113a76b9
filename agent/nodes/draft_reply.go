package nodes

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	contractx "github.com/tanpawarit/Chative-Support-Ticket-Workflow/agent/contract"
	promptx "github.com/tanpawarit/Chative-Support-Ticket-Workflow/agent/prompt"
	statex "github.com/tanpawarit/Chative-Support-Ticket-Workflow/agent/state"
)

func DraftReply(
	ctx context.Context,
	in *statex.RunState,
	generator contractx.TextGenerator,
	prompts promptx.PromptSet,
	timeout time.Duration,
) (*statex.RunState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: run state is nil", contractx.ErrValidation)
	}

	prompt, err := BuildDraftPrompt(in, prompts.Draft)
	if err != nil {
		return nil, err
	}

	reply, err := generate(ctx, generator, prompt, timeout)
	if err != nil {
		return nil, err
	}
	in.Draft = strings.TrimSpace(reply)
	return in, nil
}

// BuildDraftPrompt renders the draft prompt. Order info precedes KB info and
// each is included only when present.
func BuildDraftPrompt(st *statex.RunState, instruction string) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "User query: %s\n", st.Query)
	fmt.Fprintf(&b, "Ticket summary: %s\n", st.Summary)
	fmt.Fprintf(&b, "Category: %s\n", st.Category)

	var sections []string
	if st.OrderInfo != nil {
		raw, err := json.Marshal(st.OrderInfo)
		if err != nil {
			return "", fmt.Errorf("%w: marshal order info: %v", contractx.ErrValidation, err)
		}
		sections = append(sections, "Order Info: "+string(raw))
	}
	if len(st.KBSources) > 0 {
		sections = append(sections, "KB Info:\n"+strings.Join(st.KBSources, "\n"))
	}
	if len(sections) > 0 {
		b.WriteString("\nContext:\n")
		b.WriteString(strings.Join(sections, "\n"))
		b.WriteString("\n")
	}

	if instruction = strings.TrimSpace(instruction); instruction != "" {
		b.WriteString("\n")
		b.WriteString(instruction)
	}
	return b.String(), nil
}
