package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/tanpawarit/Chative-Support-Ticket-Workflow/app"
	configx "github.com/tanpawarit/Chative-Support-Ticket-Workflow/pkg/config"
	_ "github.com/tanpawarit/Chative-Support-Ticket-Workflow/pkg/logger/autoload"
	syntheticx "github.com/tanpawarit/Chative-Support-Ticket-Workflow/pkg/synthetic"
)

var (
	ticketsPath = flag.String("tickets", "data/tickets.csv", "tickets csv file")
	concurrency = flag.Int("concurrency", 4, "tickets processed in parallel")
	limit       = flag.Int("limit", 0, "replay at most this many tickets (0 = all)")
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	appCfg := configx.MustNew[app.AppConfig]("APP")

	f, err := os.Open(*ticketsPath)
	if err != nil {
		log.Fatal().Err(err).Msg("open tickets")
	}
	rows, err := syntheticx.ReadTickets(f)
	f.Close()
	if err != nil {
		log.Fatal().Err(err).Msg("read tickets")
	}
	if *limit > 0 && *limit < len(rows) {
		rows = rows[:*limit]
	}

	rt, err := app.Build(ctx, *appCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build workflow")
	}
	defer rt.Close()

	results := app.Replay(ctx, rt.Engine, rows, *concurrency)

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	log.Info().Int("tickets", len(results)).Int("failed", failed).Msg("replay finished")
}
