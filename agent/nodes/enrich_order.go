package nodes

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/Chative-Support-Ticket-Workflow/agent/contract"
	statex "github.com/tanpawarit/Chative-Support-Ticket-Workflow/agent/state"
)

const orderNotFoundMessage = "Order not found"

// EnrichOrder never fails on lookup errors; they are recorded as an error marker.
func EnrichOrder(
	ctx context.Context,
	in *statex.RunState,
	orders contractx.OrderLookup,
	timeout time.Duration,
) (*statex.RunState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: run state is nil", contractx.ErrValidation)
	}

	if !in.HasOrderID() {
		in.OrderInfo = nil
		return in, nil
	}

	in.OrderInfo = lookupOrder(ctx, orders, in.OrderID, timeout)
	if in.OrderInfo.Failed() {
		log.Warn().
			Str("run_id", in.RunID).
			Str("order_id", in.OrderID).
			Str("reason", in.OrderInfo.Error).
			Msg("order enrichment degraded")
	}
	return in, nil
}

func lookupOrder(
	ctx context.Context,
	orders contractx.OrderLookup,
	orderID string,
	timeout time.Duration,
) (info *contractx.OrderInfo) {
	defer func() {
		if r := recover(); r != nil {
			info = &contractx.OrderInfo{Error: fmt.Sprintf("order lookup panicked: %v", r)}
		}
	}()

	callCtx, cancel := withCallTimeout(ctx, timeout)
	defer cancel()

	rec, err := orders.Lookup(callCtx, orderID)
	switch {
	case err == nil:
		return &contractx.OrderInfo{Record: &rec}
	case errors.Is(err, contractx.ErrOrderNotFound):
		return &contractx.OrderInfo{Error: orderNotFoundMessage}
	default:
		return &contractx.OrderInfo{Error: err.Error()}
	}
}
