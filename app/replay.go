package app

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/Chative-Support-Ticket-Workflow/agent/contract"
	syntheticx "github.com/tanpawarit/Chative-Support-Ticket-Workflow/pkg/synthetic"
	"golang.org/x/sync/errgroup"
)

type TicketProcessor interface {
	ProcessTicket(ctx context.Context, ticket contractx.Ticket) (contractx.RunResult, error)
}

type ReplayResult struct {
	TicketID string
	Result   contractx.RunResult
	Err      error
	Duration time.Duration
}

// Replay runs every ticket as an independent run with at most concurrency
// runs in flight. Results keep the input order; one failing ticket does not
// stop the others.
func Replay(ctx context.Context, p TicketProcessor, rows []syntheticx.TicketRow, concurrency int) []ReplayResult {
	if concurrency <= 0 {
		concurrency = 1
	}
	results := make([]ReplayResult, len(rows))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, row := range rows {
		g.Go(func() error {
			started := time.Now()
			res, err := p.ProcessTicket(gctx, contractx.Ticket{
				Query:   row.Text,
				OrderID: row.OrderID,
				RunID:   row.TicketID,
			})
			results[i] = ReplayResult{TicketID: row.TicketID, Result: res, Err: err, Duration: time.Since(started)}

			evt := log.Info()
			if err != nil {
				evt = log.Warn().Err(err).Str("stage", contractx.FailedStage(err))
			}
			evt.Str("ticket_id", row.TicketID).
				Str("category", string(res.Category)).
				Int("reply_len", len(res.FinalResponse)).
				Msg("ticket replayed")
			return nil
		})
	}
	_ = g.Wait()
	return results
}
