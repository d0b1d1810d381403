package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/hugh/gymhub/internal/auth"
)

// Enqueuer is the part of *asynq.Client the publisher needs.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Publisher hands security events to the worker through asynq. Without a
// queue the events are only logged.
type Publisher struct {
	client  Enqueuer
	logger  *slog.Logger
	timeout time.Duration
}

func NewPublisher(client Enqueuer, logger *slog.Logger) *Publisher {
	return &Publisher{client: client, logger: logger, timeout: 2 * time.Second}
}

var _ auth.EventSink = (*Publisher)(nil)

func (p *Publisher) PublishRejection(ctx context.Context, ev auth.RejectionEvent) error {
	if p.client == nil {
		p.logger.Warn("security event (queue unavailable)",
			"reason", ev.Reason,
			"expected_tenant", ev.ExpectedTenant,
			"token_tenant", ev.TokenTenant,
			"subject", ev.Subject,
		)
		return nil
	}

	task, err := NewSecurityEventTask(ev)
	if err != nil {
		return fmt.Errorf("building security event task: %w", err)
	}

	// The request may already be finishing; the event should still go out.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()

	info, err := p.client.EnqueueContext(ctx, task)
	if err != nil {
		return fmt.Errorf("enqueueing security event: %w", err)
	}

	p.logger.Debug("security event enqueued", "task_id", info.ID, "reason", ev.Reason)
	return nil
}
