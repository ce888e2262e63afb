// Package notify schedules stage reminders. Scheduling is idempotent on the
// (company, stage) pair: repeating a schedule never creates a second
// pending reminder.
package notify

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Reminder is one pending stage notification.
type Reminder struct {
	CompanyID string
	StageID   string
	Title     string
	Body      string
	FireAt    time.Time
}

// Identifier keys a reminder by its company and stage.
func (r Reminder) Identifier() string {
	return ReminderIdentifier(r.CompanyID, r.StageID)
}

func ReminderIdentifier(companyID, stageID string) string {
	return fmt.Sprintf("interview-%s-%s", companyID, stageID)
}

// Notifier is the notification collaborator.
type Notifier interface {
	Schedule(ctx context.Context, reminder Reminder) error
	Remove(ctx context.Context, companyID, stageID string) error
}

// MemoryNotifier is the fallback used when Redis is not configured.
type MemoryNotifier struct {
	mu        sync.RWMutex
	reminders map[string]Reminder
}

func NewMemoryNotifier() *MemoryNotifier {
	return &MemoryNotifier{
		reminders: make(map[string]Reminder),
	}
}

func (n *MemoryNotifier) Schedule(_ context.Context, reminder Reminder) error {
	if !reminder.FireAt.After(time.Now()) {
		return nil
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	identifier := reminder.Identifier()
	if _, exists := n.reminders[identifier]; exists {
		return nil
	}
	n.reminders[identifier] = reminder
	return nil
}

func (n *MemoryNotifier) Remove(_ context.Context, companyID, stageID string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	delete(n.reminders, ReminderIdentifier(companyID, stageID))
	return nil
}

// Pending returns the reminder scheduled for the stage, if any.
func (n *MemoryNotifier) Pending(companyID, stageID string) (Reminder, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	reminder, ok := n.reminders[ReminderIdentifier(companyID, stageID)]
	return reminder, ok
}

// PendingCount reports how many reminders are scheduled.
func (n *MemoryNotifier) PendingCount() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.reminders)
}
