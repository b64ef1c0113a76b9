package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/tanpawarit/Chative-Support-Ticket-Workflow/api"
	"github.com/tanpawarit/Chative-Support-Ticket-Workflow/app"
	configx "github.com/tanpawarit/Chative-Support-Ticket-Workflow/pkg/config"
	logx "github.com/tanpawarit/Chative-Support-Ticket-Workflow/pkg/logger"
	_ "github.com/tanpawarit/Chative-Support-Ticket-Workflow/pkg/logger/autoload"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	appCfg := configx.MustNew[app.AppConfig]("APP")
	// .env is only read by MustNew, after autoload has run.
	logx.Init(*configx.MustNew[logx.Config]("LOG"))

	rt, err := app.Build(ctx, *appCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build workflow")
	}
	defer rt.Close()

	e := api.NewServer(&api.Handler{Processor: rt.Engine})
	e.Use(logx.RequestLogger())

	go func() {
		log.Info().Str("addr", appCfg.HTTPAddr).Msg("ticket api listening")
		if err := e.Start(appCfg.HTTPAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("http server stopped")
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), appCfg.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	log.Info().Msg("ticket api stopped")
}
