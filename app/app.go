package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tanpawarit/Chative-Support-Ticket-Workflow/agent/agents/workflow"
	contractx "github.com/tanpawarit/Chative-Support-Ticket-Workflow/agent/contract"
	llmx "github.com/tanpawarit/Chative-Support-Ticket-Workflow/agent/llm"
	statex "github.com/tanpawarit/Chative-Support-Ticket-Workflow/agent/state"
	configx "github.com/tanpawarit/Chative-Support-Ticket-Workflow/pkg/config"
	eventsx "github.com/tanpawarit/Chative-Support-Ticket-Workflow/pkg/events"
	knowledgex "github.com/tanpawarit/Chative-Support-Ticket-Workflow/pkg/knowledge"
	orderapix "github.com/tanpawarit/Chative-Support-Ticket-Workflow/pkg/orderapi"
)

const (
	CheckpointMemory = "memory"
	CheckpointRedis  = "redis"
	CheckpointNone   = "none"
)

type AppConfig struct {
	HTTPAddr          string        `envconfig:"HTTP_ADDR" split_words:"true" default:":8000"`
	CheckpointBackend string        `envconfig:"CHECKPOINT_BACKEND" split_words:"true" default:"memory"`
	CheckpointTTL     time.Duration `envconfig:"CHECKPOINT_TTL" split_words:"true" default:"24h"`
	EventsEnabled     bool          `envconfig:"EVENTS_ENABLED" split_words:"true" default:"false"`
	ShutdownTimeout   time.Duration `envconfig:"SHUTDOWN_TIMEOUT" split_words:"true" default:"10s"`
}

// Runtime is a fully wired engine plus the resources it holds open.
type Runtime struct {
	Engine  *workflow.Engine
	closers []func()
}

func (r *Runtime) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		r.closers[i]()
	}
}

// Build loads every component config from the environment and wires the
// workflow engine.
func Build(ctx context.Context, appCfg AppConfig) (*Runtime, error) {
	rt := &Runtime{}

	llmCfg, err := configx.New[llmx.Config]("LLM")
	if err != nil {
		return nil, err
	}
	generators, err := llmx.NewGenerators(ctx, *llmCfg)
	if err != nil {
		return nil, fmt.Errorf("build generators: %w", err)
	}

	orderCfg, err := configx.New[orderapix.ClientConfig]("ORDER_API")
	if err != nil {
		return nil, err
	}
	orders, err := orderapix.NewClient(*orderCfg)
	if err != nil {
		return nil, err
	}

	kbCfg, err := configx.New[knowledgex.Config]("KB")
	if err != nil {
		return nil, err
	}
	kb, err := knowledgex.Open(ctx, *kbCfg)
	if err != nil {
		return nil, err
	}
	rt.closers = append(rt.closers, kb.Close)

	store, err := buildStore(ctx, appCfg.CheckpointBackend, appCfg.CheckpointTTL, rt)
	if err != nil {
		rt.Close()
		return nil, err
	}

	publisher, err := buildPublisher(appCfg.EventsEnabled, rt)
	if err != nil {
		rt.Close()
		return nil, err
	}

	wfCfg, err := configx.New[workflow.Config]("WORKFLOW")
	if err != nil {
		rt.Close()
		return nil, err
	}

	engine, err := workflow.New(generators.Drafter, orders, kb, *wfCfg,
		workflow.WithClassifier(generators.Classifier),
		workflow.WithStore(store),
		workflow.WithPublisher(publisher),
	)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("build workflow engine: %w", err)
	}
	rt.Engine = engine

	log.Info().
		Str("order_api", orderCfg.BaseURL).
		Str("kb_backend", kbCfg.Backend).
		Str("checkpoint", appCfg.CheckpointBackend).
		Bool("events", appCfg.EventsEnabled).
		Msg("workflow engine ready")
	return rt, nil
}

// buildStore picks the checkpoint backend. ttl applies to the memory store;
// the redis store reads its own REDIS_TTL.
func buildStore(ctx context.Context, backend string, ttl time.Duration, rt *Runtime) (statex.Store, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case CheckpointMemory, "":
		return statex.NewMemoryStore(statex.WithMemoryTTL(ttl)), nil
	case CheckpointNone:
		return statex.NoopStore{}, nil
	case CheckpointRedis:
		redisCfg, err := configx.New[statex.RedisConfig]("REDIS")
		if err != nil {
			return nil, err
		}
		store, err := statex.NewRedisStore(*redisCfg)
		if err != nil {
			return nil, err
		}
		if err := store.Ping(ctx); err != nil {
			store.Close()
			return nil, fmt.Errorf("%w: %v", contractx.ErrCheckpoint, err)
		}
		rt.closers = append(rt.closers, func() {
			if err := store.Close(); err != nil {
				log.Warn().Err(err).Msg("close redis store")
			}
		})
		return store, nil
	default:
		return nil, fmt.Errorf("unknown checkpoint backend %q", backend)
	}
}

func buildPublisher(enabled bool, rt *Runtime) (contractx.EventPublisher, error) {
	if !enabled {
		return eventsx.NoopPublisher{}, nil
	}
	kafkaCfg, err := configx.New[eventsx.KafkaConfig]("KAFKA")
	if err != nil {
		return nil, err
	}
	publisher, err := eventsx.NewKafkaPublisher(*kafkaCfg)
	if err != nil {
		return nil, fmt.Errorf("build kafka publisher: %w", err)
	}
	rt.closers = append(rt.closers, func() {
		if err := publisher.Close(); err != nil {
			log.Warn().Err(err).Msg("close kafka publisher")
		}
	})
	return publisher, nil
}
