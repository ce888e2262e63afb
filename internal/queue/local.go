package queue

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pygmalion/meettodo-back/internal/domain"
)

// LocalQueue is a fallback queue used when Redis is not configured.
type LocalQueue struct {
	ch          chan domain.ReminderSync
	maxAttempts int
	logger      *zap.Logger

	dlqMu sync.Mutex
	dlq   []domain.ReminderSync
}

func NewLocalQueue(bufferSize, maxAttempts int, logger *zap.Logger) *LocalQueue {
	if bufferSize <= 0 {
		bufferSize = 512
	}
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LocalQueue{
		ch:          make(chan domain.ReminderSync, bufferSize),
		maxAttempts: maxAttempts,
		logger:      logger.Named("local_queue"),
		dlq:         make([]domain.ReminderSync, 0),
	}
}

func (q *LocalQueue) Enqueue(ctx context.Context, message domain.ReminderSync) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case q.ch <- message:
		return nil
	}
}

func (q *LocalQueue) EnqueueBatch(ctx context.Context, messages []domain.ReminderSync) error {
	for _, message := range messages {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case q.ch <- message:
		}
	}
	return nil
}

func (q *LocalQueue) Consume(ctx context.Context, handler func(context.Context, domain.ReminderSync) error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case message := <-q.ch:
			err := handler(ctx, message)
			if err == nil {
				continue
			}

			message.Attempt++
			if message.Attempt >= q.maxAttempts {
				q.dlqMu.Lock()
				q.dlq = append(q.dlq, message)
				q.dlqMu.Unlock()
				q.logger.Warn("moved reminder to DLQ",
					zap.String("company_id", message.CompanyID),
					zap.String("stage_id", message.StageID),
					zap.Error(err),
				)
				continue
			}

			delay := time.Duration(message.Attempt) * 500 * time.Millisecond
			go func(retryMessage domain.ReminderSync) {
				timer := time.NewTimer(delay)
				defer timer.Stop()
				select {
				case <-ctx.Done():
					return
				case <-timer.C:
					q.ch <- retryMessage
				}
			}(message)
		}
	}
}

func (q *LocalQueue) DLQSize() int {
	q.dlqMu.Lock()
	defer q.dlqMu.Unlock()
	return len(q.dlq)
}
