package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	configx "github.com/tanpawarit/Chative-Support-Ticket-Workflow/pkg/config"
	_ "github.com/tanpawarit/Chative-Support-Ticket-Workflow/pkg/logger/autoload"
	orderapix "github.com/tanpawarit/Chative-Support-Ticket-Workflow/pkg/orderapi"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := configx.MustNew[orderapix.ServerConfig]("MOCK_API")

	catalog := orderapix.NewCatalog(cfg.DataDir)
	if err := catalog.Load(); err != nil {
		log.Fatal().Err(err).Str("data_dir", cfg.DataDir).Msg("load mock data")
	}
	customers, orders := catalog.Counts()
	log.Info().Int("customers", customers).Int("orders", orders).Msg("mock data loaded")

	srv := orderapix.NewServer(catalog)
	go func() {
		if err := srv.Start(cfg.Addr); err != nil {
			log.Error().Err(err).Msg("mock api stopped")
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("mock api shutdown")
	}
}
