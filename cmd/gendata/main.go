package main

import (
	"flag"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	configx "github.com/tanpawarit/Chative-Support-Ticket-Workflow/pkg/config"
	_ "github.com/tanpawarit/Chative-Support-Ticket-Workflow/pkg/logger/autoload"
	orderapix "github.com/tanpawarit/Chative-Support-Ticket-Workflow/pkg/orderapi"
	syntheticx "github.com/tanpawarit/Chative-Support-Ticket-Workflow/pkg/synthetic"
)

var outDir = flag.String("out", "data", "output directory")

func main() {
	cfg := configx.MustNew[syntheticx.Config]("GEN")

	ds := syntheticx.Generate(*cfg, time.Now())
	if err := ds.WriteDir(*outDir); err != nil {
		log.Fatal().Err(err).Str("dir", *outDir).Msg("write synthetic data")
	}

	fmt.Printf("Synthetic data generated:\n- Tickets: %s\n- Customers: %s\n- Orders: %s\n",
		filepath.Join(*outDir, syntheticx.TicketsFile),
		filepath.Join(*outDir, orderapix.CustomersFile),
		filepath.Join(*outDir, orderapix.OrdersFile),
	)
}
