package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nsqio/go-nsq"
)

// Publisher is the subset of *nsq.Producer used by NSQPublisher.
type Publisher interface {
	Publish(topic string, body []byte) error
	Stop()
}

// NSQPublisher is an EventHandler that publishes outcome events as JSON to an NSQ topic.
type NSQPublisher struct {
	producer Publisher
	topic    string
	logger   *slog.Logger
}

// NewNSQPublisher connects a producer to nsqd at addr.
func NewNSQPublisher(addr, topic string, logger *slog.Logger) (*NSQPublisher, error) {
	prod, err := nsq.NewProducer(addr, nsq.NewConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create nsq producer: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	prod.SetLogger(slog.NewLogLogger(logger.Handler(), slog.LevelWarn), nsq.LogLevelWarning)
	return NewPublisherWithProducer(prod, topic, logger), nil
}

// NewPublisherWithProducer wraps an existing producer.
func NewPublisherWithProducer(prod Publisher, topic string, logger *slog.Logger) *NSQPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &NSQPublisher{
		producer: prod,
		topic:    topic,
		logger:   logger.With("component", "nsq_publisher"),
	}
}

// HandleEvent implements EventHandler.
func (p *NSQPublisher) HandleEvent(ctx context.Context, event *TaskOutcomeEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal outcome event: %w", err)
	}
	if err := p.producer.Publish(p.topic, body); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", p.topic, err)
	}
	p.logger.DebugContext(ctx, "published task outcome",
		"topic", p.topic,
		"task_id", event.TaskID,
		"status", event.Status)
	return nil
}

// Stop flushes and closes the underlying producer.
func (p *NSQPublisher) Stop() {
	p.producer.Stop()
}

var _ EventHandler = (*NSQPublisher)(nil)
