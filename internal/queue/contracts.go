package queue

import (
	"context"

	"github.com/pygmalion/meettodo-back/internal/domain"
)

// Producer sends reminder sync messages to a queue backend.
type Producer interface {
	Enqueue(ctx context.Context, message domain.ReminderSync) error
}

// Consumer receives reminder sync messages and executes handlers.
type Consumer interface {
	Consume(ctx context.Context, handler func(context.Context, domain.ReminderSync) error) error
}
