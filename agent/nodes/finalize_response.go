package nodes

import (
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/Chative-Support-Ticket-Workflow/agent/contract"
	statex "github.com/tanpawarit/Chative-Support-Ticket-Workflow/agent/state"
)

const FallbackResponse = "Sorry, I couldn't process that."

func FinalizeResponse(in *statex.RunState, fallback string) (*statex.RunState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: run state is nil", contractx.ErrValidation)
	}
	if strings.TrimSpace(fallback) == "" {
		fallback = FallbackResponse
	}

	reply := strings.TrimSpace(in.Draft)
	if reply == "" {
		reply = fallback
	}
	in.FinalResponse = reply
	return in, nil
}
