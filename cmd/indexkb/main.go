package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	configx "github.com/tanpawarit/Chative-Support-Ticket-Workflow/pkg/config"
	knowledgex "github.com/tanpawarit/Chative-Support-Ticket-Workflow/pkg/knowledge"
	_ "github.com/tanpawarit/Chative-Support-Ticket-Workflow/pkg/logger/autoload"
)

func main() {
	ctx := context.Background()
	cfg := configx.MustNew[knowledgex.Config]("KB")

	docs, err := knowledgex.LoadDir(cfg.Dir)
	if err != nil {
		log.Fatal().Err(err).Msg("load knowledge base")
	}
	if len(docs) == 0 {
		log.Fatal().Str("dir", cfg.Dir).Msg("no markdown documents found")
	}

	backend, err := knowledgex.Open(ctx, *cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("open knowledge backend")
	}
	defer backend.Close()

	if err := backend.EnsureSchema(ctx); err != nil {
		log.Fatal().Err(err).Msg("prepare knowledge schema")
	}
	if err := backend.Index(ctx, docs); err != nil {
		log.Fatal().Err(err).Msg("index knowledge base")
	}

	log.Info().Int("documents", len(docs)).Str("backend", cfg.Backend).Msg("knowledge base indexed")
	fmt.Printf("KB indexed: %d documents stored in %s\n", len(docs), cfg.Backend)
}
