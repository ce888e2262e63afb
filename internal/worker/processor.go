package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/pygmalion/meettodo-back/internal/calendar"
	"github.com/pygmalion/meettodo-back/internal/domain"
	"github.com/pygmalion/meettodo-back/internal/metrics"
	"github.com/pygmalion/meettodo-back/internal/notify"
	"github.com/pygmalion/meettodo-back/internal/queue"
	"github.com/pygmalion/meettodo-back/internal/repository"
)

// Processor consumes reminder sync messages and reconciles local
// notifications and calendar events with the stage they describe.
type Processor struct {
	consumer    queue.Consumer
	repo        repository.CompaniesRepository
	notifier    notify.Notifier
	calendar    calendar.Service
	logger      *zap.Logger
	leadMinutes int
}

func NewProcessor(
	consumer queue.Consumer,
	repo repository.CompaniesRepository,
	notifier notify.Notifier,
	cal calendar.Service,
	leadMinutes int,
	logger *zap.Logger,
) *Processor {
	if leadMinutes <= 0 {
		leadMinutes = 60
	}
	return &Processor{
		consumer:    consumer,
		repo:        repo,
		notifier:    notifier,
		calendar:    cal,
		logger:      logger.Named("worker"),
		leadMinutes: leadMinutes,
	}
}

func (p *Processor) Start(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		err := p.consumer.Consume(ctx, p.processMessage)
		if err == nil || ctx.Err() != nil {
			return
		}
		p.logger.Error("worker consume loop error", zap.Error(err))

		timer := time.NewTimer(2 * time.Second)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

func (p *Processor) processMessage(ctx context.Context, message domain.ReminderSync) error {
	start := time.Now()
	var err error
	switch message.Action {
	case domain.ReminderSyncAction:
		err = p.syncReminder(ctx, message)
	case domain.ReminderRemoveAction:
		err = p.removeReminder(ctx, message)
	default:
		err = fmt.Errorf("unsupported reminder action: %s", message.Action)
	}

	metrics.ReminderSyncDuration.WithLabelValues(string(message.Action)).
		Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ReminderSyncFailed.WithLabelValues(string(message.Action)).Inc()
	}
	return err
}

// syncReminder removes any notification already registered for the stage
// before scheduling the replacement, so edits never leave a stale fire time
// behind.
func (p *Processor) syncReminder(ctx context.Context, message domain.ReminderSync) error {
	if err := p.notifier.Remove(ctx, message.CompanyID, message.StageID); err != nil {
		return fmt.Errorf("remove stale notification for stage %s: %w", message.StageID, err)
	}

	reminder := notify.Reminder{
		CompanyID: message.CompanyID,
		StageID:   message.StageID,
		Title:     message.Title,
		Body:      message.Body,
		FireAt:    message.FireAt.Add(-time.Duration(p.leadMinutes) * time.Minute),
	}
	if err := p.notifier.Schedule(ctx, reminder); err != nil {
		return fmt.Errorf("schedule notification for stage %s: %w", message.StageID, err)
	}
	metrics.RemindersScheduled.Inc()

	// A stage that already carries an event was synced before. Drop the old
	// event first; rescheduling past the dedupe window would otherwise keep
	// both.
	if message.CalendarEventID != "" {
		err := p.calendar.RemoveEvent(ctx, message.CalendarEventID)
		if err != nil && !errors.Is(err, calendar.ErrEventNotFound) {
			return fmt.Errorf("remove stale calendar event %s: %w", message.CalendarEventID, err)
		}
	}

	eventID, err := p.addCalendarEvent(ctx, message)
	if err != nil {
		return err
	}
	if eventID != "" {
		if err := p.recordCalendarEventID(ctx, message, eventID); err != nil {
			p.logger.Warn("failed to record calendar event id",
				zap.Error(err),
				zap.String("company_id", message.CompanyID),
				zap.String("stage_id", message.StageID),
			)
		}
	}

	p.logger.Info("reminder synced",
		zap.String("company_id", message.CompanyID),
		zap.String("stage_id", message.StageID),
		zap.Time("fire_at", message.FireAt),
	)
	return nil
}

func (p *Processor) removeReminder(ctx context.Context, message domain.ReminderSync) error {
	if err := p.notifier.Remove(ctx, message.CompanyID, message.StageID); err != nil {
		return fmt.Errorf("remove notification for stage %s: %w", message.StageID, err)
	}
	metrics.RemindersRemoved.Inc()

	if message.CalendarEventID != "" {
		err := p.calendar.RemoveEvent(ctx, message.CalendarEventID)
		if err != nil && !errors.Is(err, calendar.ErrEventNotFound) {
			return fmt.Errorf("remove calendar event %s: %w", message.CalendarEventID, err)
		}
	}

	p.logger.Info("reminder removed",
		zap.String("company_id", message.CompanyID),
		zap.String("stage_id", message.StageID),
	)
	return nil
}

// addCalendarEvent retries transient calendar failures with exponential
// backoff. Permission denial and duplicate events are terminal outcomes
// for this message, not retryable errors.
func (p *Processor) addCalendarEvent(ctx context.Context, message domain.ReminderSync) (string, error) {
	granted, err := p.calendar.RequestAccess(ctx)
	if err != nil {
		return "", fmt.Errorf("request calendar access: %w", err)
	}
	if !granted {
		metrics.CalendarEventsSkipped.WithLabelValues("permission_denied").Inc()
		p.logger.Warn("calendar access not granted, notification scheduled without event",
			zap.String("company_id", message.CompanyID),
		)
		return "", nil
	}

	var eventID string
	operation := func() error {
		id, addErr := p.calendar.AddEvent(ctx, message.Title, message.FireAt, message.Location)
		if addErr == nil {
			eventID = id
			return nil
		}
		if errors.Is(addErr, calendar.ErrPermissionDenied) ||
			errors.Is(addErr, calendar.ErrDuplicateEvent) {
			return backoff.Permanent(addErr)
		}
		return addErr
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		if errors.Is(err, calendar.ErrDuplicateEvent) {
			metrics.CalendarEventsSkipped.WithLabelValues("duplicate").Inc()
			p.logger.Info("calendar event already present",
				zap.String("company_id", message.CompanyID),
				zap.String("title", message.Title),
			)
			return "", nil
		}
		if errors.Is(err, calendar.ErrPermissionDenied) {
			metrics.CalendarEventsSkipped.WithLabelValues("permission_denied").Inc()
			return "", nil
		}
		return "", fmt.Errorf("add calendar event: %w", err)
	}

	metrics.CalendarEventsAdded.Inc()
	return eventID, nil
}

func (p *Processor) recordCalendarEventID(ctx context.Context, message domain.ReminderSync, eventID string) error {
	company, err := p.repo.GetCompany(ctx, message.CompanyID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("load company %s: %w", message.CompanyID, err)
	}
	stage, ok := company.Stage(message.StageID)
	if !ok {
		return nil
	}
	stage.CalendarEventID = eventID
	if err := p.repo.UpdateCompany(ctx, company); err != nil {
		return fmt.Errorf("persist calendar event id: %w", err)
	}
	return nil
}
