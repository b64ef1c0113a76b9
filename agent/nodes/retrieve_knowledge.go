package nodes

import (
	"context"
	"fmt"
	"time"

	contractx "github.com/tanpawarit/Chative-Support-Ticket-Workflow/agent/contract"
	statex "github.com/tanpawarit/Chative-Support-Ticket-Workflow/agent/state"
)

const DefaultTopK = 2

func RetrieveKnowledge(
	ctx context.Context,
	in *statex.RunState,
	retriever contractx.KnowledgeRetriever,
	topK int,
	timeout time.Duration,
) (*statex.RunState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: run state is nil", contractx.ErrValidation)
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	callCtx, cancel := withCallTimeout(ctx, timeout)
	defer cancel()

	snippets, err := retriever.Search(callCtx, in.Query, topK)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", contractx.ErrRetrieval, err)
	}

	// Every hit is kept verbatim, blank ones included; only scores and ids are dropped.
	sources := make([]string, 0, min(len(snippets), topK))
	for _, s := range snippets {
		if len(sources) == topK {
			break
		}
		sources = append(sources, s.Text)
	}
	in.KBSources = sources
	return in, nil
}
