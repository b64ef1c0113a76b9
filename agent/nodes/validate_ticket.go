package nodes

import (
	"fmt"
	"strings"
	"time"

	contractx "github.com/tanpawarit/Chative-Support-Ticket-Workflow/agent/contract"
	statex "github.com/tanpawarit/Chative-Support-Ticket-Workflow/agent/state"
)

var (
	ErrInvalidQuery = fmt.Errorf("%w: ticket query is empty", contractx.ErrValidation)
	ErrInvalidRunID = fmt.Errorf("%w: run id is empty", contractx.ErrValidation)
)

type GraphInput struct {
	RunID   string
	Query   string
	OrderID string
}

type GraphOutput struct {
	State *statex.RunState
}

func ValidateTicket(in GraphInput, nowFn func() time.Time) (*statex.RunState, error) {
	runID := strings.TrimSpace(in.RunID)
	if runID == "" {
		return nil, ErrInvalidRunID
	}

	query := strings.TrimSpace(in.Query)
	if query == "" {
		return nil, ErrInvalidQuery
	}

	return statex.NewRunState(runID, query, strings.TrimSpace(in.OrderID), nowFn()), nil
}
