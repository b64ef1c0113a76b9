package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/Chative-Support-Ticket-Workflow/agent/contract"
	nodex "github.com/tanpawarit/Chative-Support-Ticket-Workflow/agent/nodes"
	promptx "github.com/tanpawarit/Chative-Support-Ticket-Workflow/agent/prompt"
	statex "github.com/tanpawarit/Chative-Support-Ticket-Workflow/agent/state"
	metricsx "github.com/tanpawarit/Chative-Support-Ticket-Workflow/pkg/metrics"
)

var (
	ErrInvalidQuery = nodex.ErrInvalidQuery
	ErrInvalidRunID = nodex.ErrInvalidRunID
)

type Config struct {
	// CallTimeout bounds every outbound call made by a stage.
	CallTimeout time.Duration `envconfig:"CALL_TIMEOUT" split_words:"true" default:"30s"`
	TopK        int           `envconfig:"TOP_K" split_words:"true" default:"2"`
}

type Option func(*Engine)

func WithStore(store statex.Store) Option {
	return func(e *Engine) {
		if store != nil {
			e.store = store
		}
	}
}

func WithPublisher(publisher contractx.EventPublisher) Option {
	return func(e *Engine) {
		if publisher != nil {
			e.publisher = publisher
		}
	}
}

// WithClassifier uses a dedicated generator for the classify stage.
func WithClassifier(generator contractx.TextGenerator) Option {
	return func(e *Engine) {
		if generator != nil {
			e.classifier = generator
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

func WithRunIDFunc(fn func() string) Option {
	return func(e *Engine) {
		if fn != nil {
			e.newRunID = fn
		}
	}
}

func WithPrompts(prompts promptx.PromptSet) Option {
	return func(e *Engine) {
		e.prompts = prompts
	}
}

// Engine runs tickets through classify, enrich_order, retrieve_knowledge,
// draft_reply and finalize_response. It is safe for concurrent use; every
// run owns its own RunState.
type Engine struct {
	classifier contractx.TextGenerator
	drafter    contractx.TextGenerator
	orders     contractx.OrderLookup
	retriever  contractx.KnowledgeRetriever
	store      statex.Store
	publisher  contractx.EventPublisher
	prompts    promptx.PromptSet
	cfg        Config

	graphRunner compose.Runnable[nodex.GraphInput, nodex.GraphOutput]

	now      func() time.Time
	newRunID func() string
}

func New(
	generator contractx.TextGenerator,
	orders contractx.OrderLookup,
	retriever contractx.KnowledgeRetriever,
	cfg Config,
	opts ...Option,
) (*Engine, error) {
	if generator == nil {
		return nil, errors.New("text generator is required")
	}
	if orders == nil {
		return nil, errors.New("order lookup is required")
	}
	if retriever == nil {
		return nil, errors.New("knowledge retriever is required")
	}
	if cfg.TopK <= 0 {
		cfg.TopK = nodex.DefaultTopK
	}

	e := &Engine{
		classifier: generator,
		drafter:    generator,
		orders:     orders,
		retriever:  retriever,
		store:      statex.NoopStore{},
		publisher:  noopPublisher{},
		prompts:    promptx.LoadPromptSet(),
		cfg:        cfg,
		now:        time.Now,
		newRunID:   uuid.NewString,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}

	graphRunner, err := e.compileTicketGraph(context.Background())
	if err != nil {
		return nil, err
	}
	e.graphRunner = graphRunner

	return e, nil
}

// Process runs one ticket and returns its final response.
func (e *Engine) Process(ctx context.Context, query string, orderID string) (string, error) {
	res, err := e.ProcessTicket(ctx, contractx.Ticket{Query: query, OrderID: orderID})
	if err != nil {
		return "", err
	}
	return res.FinalResponse, nil
}

func (e *Engine) ProcessTicket(ctx context.Context, ticket contractx.Ticket) (contractx.RunResult, error) {
	runID := strings.TrimSpace(ticket.RunID)
	if runID == "" {
		runID = e.newRunID()
	}

	scope := &runScope{}
	ctx = context.WithValue(ctx, runScopeKey{}, scope)

	metricsx.RunsActive.Inc()
	defer metricsx.RunsActive.Dec()
	started := e.now()

	out, err := e.graphRunner.Invoke(ctx, nodex.GraphInput{
		RunID:   runID,
		Query:   ticket.Query,
		OrderID: ticket.OrderID,
	})
	if err != nil {
		metricsx.Runs.WithLabelValues("failed").Inc()
		if scope.err != nil {
			err = scope.err
		}
		log.Error().Err(err).Str("run_id", runID).Str("stage", contractx.FailedStage(err)).Msg("ticket run failed")
		return contractx.RunResult{}, err
	}
	if out.State == nil {
		metricsx.Runs.WithLabelValues("failed").Inc()
		return contractx.RunResult{}, fmt.Errorf("%w: run produced no state", contractx.ErrValidation)
	}

	st := out.State
	metricsx.Runs.WithLabelValues("done").Inc()
	log.Info().
		Str("run_id", st.RunID).
		Str("category", string(st.Category)).
		Bool("has_order", st.HasOrderID()).
		Int("kb_hits", len(st.KBSources)).
		Dur("duration", e.now().Sub(started)).
		Msg("ticket run completed")

	e.publish(ctx, st)
	return st.Result(), nil
}

// Snapshot returns the latest checkpoint of a run.
func (e *Engine) Snapshot(ctx context.Context, runID string) (*statex.RunState, error) {
	return e.store.Load(ctx, runID)
}

// DeleteRun drops the checkpoint of a run. Deleting an unknown run is not an error.
func (e *Engine) DeleteRun(ctx context.Context, runID string) error {
	if strings.TrimSpace(runID) == "" {
		return statex.ErrInvalidRun
	}
	return e.store.Delete(ctx, runID)
}

func (e *Engine) stage(
	name string,
	fn func(context.Context, *statex.RunState) (*statex.RunState, error),
) func(context.Context, *statex.RunState) (*statex.RunState, error) {
	return func(ctx context.Context, in *statex.RunState) (*statex.RunState, error) {
		started := e.now()
		out, err := fn(ctx, in)
		elapsed := e.now().Sub(started)
		metricsx.StageDuration.WithLabelValues(name).Observe(elapsed.Seconds())

		if err != nil {
			metricsx.StageFailures.WithLabelValues(name).Inc()
			return nil, e.fail(ctx, name, &contractx.StageError{Stage: name, Err: err})
		}

		if name == statex.StageEnrichOrder {
			metricsx.OrderEnrichment.WithLabelValues(enrichmentResult(out)).Inc()
		}

		out.Complete(name, e.now())
		log.Debug().Str("run_id", out.RunID).Str("stage", name).Dur("duration", elapsed).Msg("stage completed")
		e.checkpoint(ctx, out)
		return out, nil
	}
}

func (e *Engine) fail(ctx context.Context, stage string, err error) error {
	if scope, ok := ctx.Value(runScopeKey{}).(*runScope); ok && scope.err == nil {
		scope.err = err
	}
	log.Debug().Err(err).Str("stage", stage).Msg("stage failed")
	return err
}

func (e *Engine) checkpoint(ctx context.Context, st *statex.RunState) {
	if err := e.store.Save(ctx, st); err != nil {
		log.Warn().
			Err(fmt.Errorf("%w: %v", contractx.ErrCheckpoint, err)).
			Str("run_id", st.RunID).
			Str("stage", st.Stage).
			Msg("checkpoint save failed")
	}
}

func (e *Engine) publish(ctx context.Context, st *statex.RunState) {
	evt := contractx.RunCompletedEvent{
		RunID:       st.RunID,
		Category:    st.Category,
		HasOrder:    st.HasOrderID(),
		OrderFailed: st.OrderInfo.Failed(),
		KBHits:      len(st.KBSources),
		CompletedAt: st.UpdatedAt,
	}
	if err := e.publisher.PublishRunCompleted(ctx, evt); err != nil {
		log.Warn().Err(err).Str("run_id", st.RunID).Msg("publish run event failed")
	}
}

func enrichmentResult(st *statex.RunState) string {
	switch {
	case st.OrderInfo == nil:
		return "skipped"
	case st.OrderInfo.Failed():
		return "degraded"
	default:
		return "found"
	}
}

type runScopeKey struct{}

// runScope keeps the first failure of a run so callers see it unwrapped by
// the graph runtime.
type runScope struct {
	err error
}

type noopPublisher struct{}

func (noopPublisher) PublishRunCompleted(context.Context, contractx.RunCompletedEvent) error {
	return nil
}
