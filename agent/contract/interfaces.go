package contract

import "context"

// OrderLookup resolves an order id against the order service.
// Implementations return ErrOrderNotFound for unknown ids and wrap every other
// failure with ErrOrderLookup.
type OrderLookup interface {
	Lookup(ctx context.Context, orderID string) (OrderRecord, error)
}

// KnowledgeRetriever returns at most k snippets, most relevant first.
type KnowledgeRetriever interface {
	Search(ctx context.Context, text string, k int) ([]Snippet, error)
}

type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type EventPublisher interface {
	PublishRunCompleted(ctx context.Context, evt RunCompletedEvent) error
}
