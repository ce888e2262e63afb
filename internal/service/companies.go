package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/pygmalion/meettodo-back/internal/domain"
	"github.com/pygmalion/meettodo-back/internal/events"
	"github.com/pygmalion/meettodo-back/internal/queue"
	"github.com/pygmalion/meettodo-back/internal/repository"
)

const maxCompanyNameLength = 50

var (
	ErrEmptyCompanyName   = errors.New("company name is required")
	ErrCompanyNameTooLong = errors.New("company name exceeds 50 characters")
)

// CompaniesService owns the application workflows over the company
// aggregate. Mutations persist first and only then touch the async
// reminder pipeline, so a storage failure never leaves a reminder for a
// stage that was not saved.
type CompaniesService struct {
	repo     repository.CompaniesRepository
	producer queue.Producer
	events   events.Producer
	logger   *zap.Logger
}

func NewCompaniesService(
	repo repository.CompaniesRepository,
	producer queue.Producer,
	eventsProducer events.Producer,
	logger *zap.Logger,
) *CompaniesService {
	return &CompaniesService{
		repo:     repo,
		producer: producer,
		events:   eventsProducer,
		logger:   logger.Named("companies_service"),
	}
}

// CreateCompany registers a company. When appliedAt is given the history
// starts with a pending resume stage dated to it.
func (s *CompaniesService) CreateCompany(
	ctx context.Context,
	name string,
	icon string,
	appliedAt *time.Time,
) (*domain.Company, error) {
	if name == "" {
		return nil, ErrEmptyCompanyName
	}
	if len([]rune(name)) > maxCompanyNameLength {
		return nil, ErrCompanyNameTooLong
	}

	company := domain.NewCompany(name, icon)
	if appliedAt != nil {
		if _, err := company.AddStage(domain.StageResume, *appliedAt, nil); err != nil {
			return nil, fmt.Errorf("add initial resume stage: %w", err)
		}
	}

	if err := s.repo.CreateCompany(ctx, company); err != nil {
		return nil, fmt.Errorf("create company: %w", err)
	}

	s.events.Produce(events.CompanyCreated, company, "")
	s.logger.Info("company created",
		zap.String("company_id", company.ID),
		zap.String("name", company.Name),
	)
	return company, nil
}

func (s *CompaniesService) GetCompany(ctx context.Context, companyID string) (*domain.Company, error) {
	return s.repo.GetCompany(ctx, companyID)
}

func (s *CompaniesService) ListCompanies(ctx context.Context) ([]*domain.Company, error) {
	return s.repo.ListCompanies(ctx)
}

func (s *CompaniesService) RenameCompany(ctx context.Context, companyID, name string) (*domain.Company, error) {
	if name == "" {
		return nil, ErrEmptyCompanyName
	}
	if len([]rune(name)) > maxCompanyNameLength {
		return nil, ErrCompanyNameTooLong
	}
	return s.updateCompany(ctx, companyID, func(company *domain.Company) error {
		company.Name = name
		return nil
	})
}

// SetCompanyIcon sets either a symbol name or raw image bytes, never both.
func (s *CompaniesService) SetCompanyIcon(
	ctx context.Context,
	companyID string,
	symbol string,
	image []byte,
) (*domain.Company, error) {
	return s.updateCompany(ctx, companyID, func(company *domain.Company) error {
		if len(image) > 0 {
			company.SetImageIcon(image)
		} else {
			company.SetSymbolIcon(symbol)
		}
		return nil
	})
}

func (s *CompaniesService) TogglePin(ctx context.Context, companyID string) (*domain.Company, error) {
	return s.updateCompany(ctx, companyID, func(company *domain.Company) error {
		company.Pinned = !company.Pinned
		return nil
	})
}

// DeleteCompany deletes the aggregate and enqueues reminder removals for
// every stage so nothing keeps firing for a company that is gone.
func (s *CompaniesService) DeleteCompany(ctx context.Context, companyID string) error {
	company, err := s.repo.GetCompany(ctx, companyID)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteCompany(ctx, companyID); err != nil {
		return fmt.Errorf("delete company: %w", err)
	}

	for _, stage := range company.Stages {
		s.enqueueReminder(ctx, company, stage, domain.ReminderRemoveAction)
	}

	s.events.Produce(events.CompanyDeleted, company, "")
	s.logger.Info("company deleted", zap.String("company_id", companyID))
	return nil
}

// AddStage appends a stage to the company history and schedules its
// reminder.
func (s *CompaniesService) AddStage(
	ctx context.Context,
	companyID string,
	kind domain.StageKind,
	date time.Time,
	location *domain.StageLocation,
	note string,
) (*domain.Company, *domain.StageRecord, error) {
	company, err := s.repo.GetCompany(ctx, companyID)
	if err != nil {
		return nil, nil, err
	}

	stage, err := company.AddStage(kind, date, location)
	if err != nil {
		return nil, nil, err
	}
	if note != "" {
		stage.Note = note
	}

	if err := s.repo.UpdateCompany(ctx, company); err != nil {
		return nil, nil, fmt.Errorf("persist company: %w", err)
	}

	s.enqueueReminder(ctx, company, *stage, domain.ReminderSyncAction)
	s.events.Produce(events.StageChanged, company, stage.ID)
	return company, stage, nil
}

// UpdateStage changes a stage's kind, date or location and re-syncs its
// reminder to the new date.
func (s *CompaniesService) UpdateStage(
	ctx context.Context,
	companyID string,
	stageID string,
	kind domain.StageKind,
	date time.Time,
	location *domain.StageLocation,
) (*domain.Company, error) {
	company, err := s.repo.GetCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if err := company.UpdateStage(stageID, kind, date, location); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateCompany(ctx, company); err != nil {
		return nil, fmt.Errorf("persist company: %w", err)
	}

	if stage, ok := company.Stage(stageID); ok {
		s.enqueueReminder(ctx, company, *stage, domain.ReminderSyncAction)
	}
	s.events.Produce(events.StageChanged, company, stageID)
	return company, nil
}

// SetStageStatus records a stage outcome. Leaving the pending state drops
// the stage's reminder since there is nothing left to prepare for.
func (s *CompaniesService) SetStageStatus(
	ctx context.Context,
	companyID string,
	stageID string,
	status domain.StageStatus,
) (*domain.Company, error) {
	company, err := s.repo.GetCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if err := company.SetStageStatus(stageID, status); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateCompany(ctx, company); err != nil {
		return nil, fmt.Errorf("persist company: %w", err)
	}

	if stage, ok := company.Stage(stageID); ok {
		action := domain.ReminderSyncAction
		if status != domain.StatusPending {
			action = domain.ReminderRemoveAction
		}
		s.enqueueReminder(ctx, company, *stage, action)
	}
	s.events.Produce(events.StageChanged, company, stageID)
	return company, nil
}

func (s *CompaniesService) UpdateStageNote(
	ctx context.Context,
	companyID string,
	stageID string,
	note string,
) (*domain.Company, error) {
	return s.updateCompany(ctx, companyID, func(company *domain.Company) error {
		return company.UpdateStageNote(stageID, note)
	})
}

// DeleteStage removes a stage and its reminder.
func (s *CompaniesService) DeleteStage(
	ctx context.Context,
	companyID string,
	stageID string,
) (*domain.Company, error) {
	company, err := s.repo.GetCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}

	stage, ok := company.Stage(stageID)
	if !ok {
		return nil, domain.ErrStageNotFound
	}
	removed := *stage

	if err := company.DeleteStage(stageID); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateCompany(ctx, company); err != nil {
		return nil, fmt.Errorf("persist company: %w", err)
	}

	s.enqueueReminder(ctx, company, removed, domain.ReminderRemoveAction)
	s.events.Produce(events.StageChanged, company, stageID)
	return company, nil
}

// TodayAgenda lists the stages still pending today that the user has to
// show up for: written tests, interviews and HR interviews.
func (s *CompaniesService) TodayAgenda(ctx context.Context) ([]domain.AgendaEntry, error) {
	companies, err := s.repo.ListCompanies(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	entries := make([]domain.AgendaEntry, 0)
	for _, company := range companies {
		for _, stage := range company.Stages {
			if !agendaKind(stage.Kind) || stage.Status != domain.StatusPending {
				continue
			}
			if !sameDay(stage.Date, now) {
				continue
			}
			entries = append(entries, domain.AgendaEntry{Company: company, Stage: stage})
		}
	}
	return entries, nil
}

// Statistics aggregates every tracked company into overview counts.
func (s *CompaniesService) Statistics(ctx context.Context) (*domain.Statistics, error) {
	companies, err := s.repo.ListCompanies(ctx)
	if err != nil {
		return nil, err
	}

	stats := &domain.Statistics{
		Total:    len(companies),
		ByStatus: make(map[domain.OverallStatus]int),
	}
	for _, company := range companies {
		stats.ByStatus[company.OverallStatus]++
		switch company.OverallStatus {
		case domain.OverallOffer:
			stats.Offers++
		case domain.OverallFailed:
			stats.Failed++
		}
	}
	if stats.Total > 0 {
		stats.OfferRate = stats.Offers * 100 / stats.Total
	}
	return stats, nil
}

// SyncAllToCalendar re-enqueues a reminder sync for every stage on today's
// agenda. Returns the number of stages enqueued.
func (s *CompaniesService) SyncAllToCalendar(ctx context.Context) (int, error) {
	entries, err := s.TodayAgenda(ctx)
	if err != nil {
		return 0, err
	}
	for _, entry := range entries {
		s.enqueueReminder(ctx, entry.Company, entry.Stage, domain.ReminderSyncAction)
	}
	return len(entries), nil
}

func (s *CompaniesService) updateCompany(
	ctx context.Context,
	companyID string,
	mutate func(*domain.Company) error,
) (*domain.Company, error) {
	company, err := s.repo.GetCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if err := mutate(company); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateCompany(ctx, company); err != nil {
		return nil, fmt.Errorf("persist company: %w", err)
	}
	s.events.Produce(events.CompanyUpdated, company, "")
	return company, nil
}

// enqueueReminder publishes the reminder message for a stage. Enqueue
// failures are logged and swallowed: the mutation is already committed and
// the next edit or a batch sync will reconcile the reminder.
func (s *CompaniesService) enqueueReminder(
	ctx context.Context,
	company *domain.Company,
	stage domain.StageRecord,
	action domain.ReminderAction,
) {
	message := domain.ReminderSync{
		CompanyID:       company.ID,
		StageID:         stage.ID,
		Action:          action,
		Title:           fmt.Sprintf("%s: %s", company.Name, stage.DisplayName()),
		Body:            stage.Note,
		FireAt:          stage.Date,
		CalendarEventID: stage.CalendarEventID,
		Attempt:         0,
		RequestedAt:     time.Now().UTC(),
	}
	if stage.Location != nil {
		message.Location = stage.Location.Address
	}

	if err := s.producer.Enqueue(ctx, message); err != nil {
		s.logger.Warn("failed to enqueue reminder sync",
			zap.Error(err),
			zap.String("company_id", company.ID),
			zap.String("stage_id", stage.ID),
			zap.String("action", string(action)),
		)
	}
}

func agendaKind(kind domain.StageKind) bool {
	switch kind {
	case domain.StageWritten, domain.StageInterview, domain.StageHRInterview:
		return true
	default:
		return false
	}
}

func sameDay(a, b time.Time) bool {
	yearA, monthA, dayA := a.Date()
	yearB, monthB, dayB := b.Date()
	return yearA == yearB && monthA == monthB && dayA == dayB
}
