package task

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/nudge-api/internal/domain"
	"github.com/phrazzld/nudge-api/internal/gateway"
	"github.com/phrazzld/nudge-api/internal/notify"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// funcStrategy is a Strategy backed by a function.
type funcStrategy struct {
	kind domain.Kind
	run  func(ctx context.Context, task *domain.Task) (json.RawMessage, error)
}

func (f *funcStrategy) Kind() domain.Kind { return f.kind }
func (f *funcStrategy) Validate(payload json.RawMessage) error { return nil }
func (f *funcStrategy) Run(ctx context.Context, _ *gateway.Session, task *domain.Task) (json.RawMessage, error) {
	return f.run(ctx, task)
}

// countingStrategy completes every task and counts executions per task id.
type countingStrategy struct {
	kind  domain.Kind
	delay time.Duration

	mu   sync.Mutex
	runs map[uuid.UUID]int
}

func newCountingStrategy(kind domain.Kind) *countingStrategy {
	return &countingStrategy{kind: kind, runs: make(map[uuid.UUID]int)}
}

func (c *countingStrategy) Kind() domain.Kind { return c.kind }
func (c *countingStrategy) Validate(payload json.RawMessage) error { return nil }
func (c *countingStrategy) Run(ctx context.Context, _ *gateway.Session, task *domain.Task) (json.RawMessage, error) {
	if c.delay > 0 {
		time.Sleep(c.delay)
	}
	c.mu.Lock()
	c.runs[task.ID]++
	c.mu.Unlock()
	return json.RawMessage(`{"ok":true}`), nil
}

func (c *countingStrategy) Runs() map[uuid.UUID]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[uuid.UUID]int, len(c.runs))
	for k, v := range c.runs {
		out[k] = v
	}
	return out
}

// fakeSender returns a scripted receipt for its channel.
type fakeSender struct {
	channel domain.Channel
	fail    string
	block   chan struct{}

	mu    sync.Mutex
	calls int
}

func (f *fakeSender) Channel() domain.Channel { return f.channel }

func (f *fakeSender) Send(ctx context.Context, _ *gateway.Session, target *domain.NotificationTarget, msg notify.Message) domain.DeliveryReceipt {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.block != nil {
		<-f.block // ignores ctx
	}
	if f.fail != "" {
		return domain.DeliveryFailed(f.channel, target.ID, f.fail, time.Now())
	}
	return domain.DeliverySucceeded(f.channel, target.ID, string(f.channel)+"-msg-1", time.Now())
}

func (f *fakeSender) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newPendingTask(t *testing.T, owner uuid.UUID, kind domain.Kind, payload string, when *time.Time) *domain.Task {
	t.Helper()
	task, err := domain.NewTask(owner, kind, json.RawMessage(payload), when)
	require.NoError(t, err)
	return task
}

func mustRegistry(t *testing.T, strategies ...Strategy) *Registry {
	t.Helper()
	r, err := NewRegistry(strategies...)
	require.NoError(t, err)
	return r
}
