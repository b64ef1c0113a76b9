package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
	contractx "github.com/tanpawarit/Chative-Support-Ticket-Workflow/agent/contract"
)

type KafkaConfig struct {
	Brokers      []string      `envconfig:"BROKERS" split_words:"true" default:"localhost:9092"`
	Topic        string        `envconfig:"TOPIC" split_words:"true" default:"support.runs.completed"`
	WriteTimeout time.Duration `envconfig:"WRITE_TIMEOUT" split_words:"true" default:"10s"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

var _ contractx.EventPublisher = (*KafkaPublisher)(nil)

// KafkaPublisher sends run events keyed by run id.
type KafkaPublisher struct {
	writer messageWriter
}

func NewKafkaPublisher(cfg KafkaConfig) (*KafkaPublisher, error) {
	brokers := make([]string, 0, len(cfg.Brokers))
	for _, b := range cfg.Brokers {
		if trimmed := strings.TrimSpace(b); trimmed != "" {
			brokers = append(brokers, trimmed)
		}
	}
	if len(brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}
	topic := strings.TrimSpace(cfg.Topic)
	if topic == "" {
		return nil, errors.New("kafka topic is required")
	}

	timeout := cfg.WriteTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			WriteTimeout: timeout,
		},
	}, nil
}

func (p *KafkaPublisher) PublishRunCompleted(ctx context.Context, evt contractx.RunCompletedEvent) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal run event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(evt.RunID),
		Value: data,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write run event: %w", err)
	}

	log.Debug().Str("run_id", evt.RunID).Msg("published run event")
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NoopPublisher drops every event.
type NoopPublisher struct{}

func (NoopPublisher) PublishRunCompleted(context.Context, contractx.RunCompletedEvent) error {
	return nil
}
