package main

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	configx "github.com/tanpawarit/Chative-Support-Ticket-Workflow/pkg/config"
	knowledgex "github.com/tanpawarit/Chative-Support-Ticket-Workflow/pkg/knowledge"
	_ "github.com/tanpawarit/Chative-Support-Ticket-Workflow/pkg/logger/autoload"
)

var (
	query = flag.String("q", "What is your refund policy?", "search text")
	topK  = flag.Int("k", 2, "number of results")
)

func main() {
	cfg := configx.MustNew[knowledgex.Config]("KB")
	ctx := context.Background()

	backend, err := knowledgex.Open(ctx, *cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("open knowledge backend")
	}
	defer backend.Close()

	hits, err := backend.Search(ctx, strings.TrimSpace(*query), *topK)
	if err != nil {
		log.Fatal().Err(err).Msg("search knowledge base")
	}
	for _, hit := range hits {
		fmt.Printf("Source: %s (score %.3f)\n", hit.Source, hit.Score)
		fmt.Println(hit.Text)
		fmt.Println("---")
	}
}
