package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrStageNotFound     = errors.New("stage not found")
	ErrStageNotAvailable = errors.New("stage kind not available")
)

// Company is the aggregate root: a tracked application target and its
// recruitment-stage history. The derived fields (CurrentStageLabel,
// OverallStatus, NextActionDate) are recomputed inside every mutation and
// are never stale relative to Stages.
type Company struct {
	ID                string         `json:"id"`
	Name              string         `json:"name"`
	Icon              string         `json:"icon"`
	IconData          []byte         `json:"icon_data,omitempty"`
	Stages            []StageRecord  `json:"stages"`
	CurrentStageLabel string         `json:"current_stage_label"`
	OverallStatus     OverallStatus  `json:"overall_status"`
	NextActionDate    *time.Time     `json:"next_action_date,omitempty"`
	Pinned            bool           `json:"pinned"`
	Timestamp         time.Time      `json:"timestamp"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

const defaultCompanyIcon = "building.2"

// NewCompany creates an empty aggregate with derived fields initialized.
func NewCompany(name, icon string) *Company {
	if icon == "" {
		icon = defaultCompanyIcon
	}
	now := time.Now().UTC()
	company := &Company{
		ID:        uuid.NewString(),
		Name:      name,
		Icon:      icon,
		Stages:    []StageRecord{},
		Timestamp: now,
		CreatedAt: now,
		UpdatedAt: now,
	}
	company.rederive()
	return company
}

// AddStage appends a stage of the given kind, enforcing the availability
// rules. Interview stages get the next round number. Existing stages that
// sit strictly earlier in the pipeline are marked passed: reaching a later
// stage implies the earlier ones succeeded.
func (c *Company) AddStage(kind StageKind, date time.Time, location *StageLocation) (*StageRecord, error) {
	if !kindAvailable(AvailableForAdd(c.Stages), kind) {
		return nil, fmt.Errorf("%w: %s", ErrStageNotAvailable, kind)
	}

	record := StageRecord{
		ID:       uuid.NewString(),
		Kind:     kind,
		Date:     date,
		Status:   StatusPending,
		Location: location,
	}
	if kind == StageInterview {
		round := NextInterviewRound(c.Stages)
		record.Round = &round
	}

	newIndex := kind.PipelineIndex()
	for i := range c.Stages {
		if c.Stages[i].Kind.PipelineIndex() < newIndex {
			c.Stages[i].Status = StatusPassed
		}
	}

	c.Stages = append(c.Stages, record)
	c.rederive()
	return &c.Stages[len(c.Stages)-1], nil
}

// UpdateStage changes a stage's kind, date and location. Kind changes are
// checked against edit-mode availability; moving to or away from interview
// recomputes or clears the round.
func (c *Company) UpdateStage(stageID string, kind StageKind, date time.Time, location *StageLocation) error {
	index := c.stageIndex(stageID)
	if index < 0 {
		return ErrStageNotFound
	}

	current := c.Stages[index]
	// Availability is judged over the full history. The record being edited
	// still counts; its own kind stays offered via AvailableForEdit.
	if !kindAvailable(AvailableForEdit(c.Stages, current.Kind), kind) {
		return fmt.Errorf("%w: %s", ErrStageNotAvailable, kind)
	}

	stage := &c.Stages[index]
	if kind != current.Kind {
		if kind == StageInterview {
			others := make([]StageRecord, 0, len(c.Stages)-1)
			others = append(others, c.Stages[:index]...)
			others = append(others, c.Stages[index+1:]...)
			round := NextInterviewRound(others)
			stage.Round = &round
		} else {
			stage.Round = nil
		}
	}
	stage.Kind = kind
	stage.Date = date
	stage.Location = location
	c.rederive()
	return nil
}

// SetStageStatus marks a stage's outcome. Marking a stage passed also
// passes every stage strictly earlier in the pipeline.
func (c *Company) SetStageStatus(stageID string, status StageStatus) error {
	index := c.stageIndex(stageID)
	if index < 0 {
		return ErrStageNotFound
	}

	c.Stages[index].Status = status
	if status == StatusPassed {
		passedIndex := c.Stages[index].Kind.PipelineIndex()
		for i := range c.Stages {
			if c.Stages[i].Kind.PipelineIndex() < passedIndex {
				c.Stages[i].Status = StatusPassed
			}
		}
	}
	c.rederive()
	return nil
}

// UpdateStageNote replaces the free-text note on a stage.
func (c *Company) UpdateStageNote(stageID, note string) error {
	index := c.stageIndex(stageID)
	if index < 0 {
		return ErrStageNotFound
	}
	c.Stages[index].Note = note
	c.rederive()
	return nil
}

// DeleteStage removes a stage from the history.
func (c *Company) DeleteStage(stageID string) error {
	index := c.stageIndex(stageID)
	if index < 0 {
		return ErrStageNotFound
	}
	c.Stages = append(c.Stages[:index], c.Stages[index+1:]...)
	c.rederive()
	return nil
}

// Stage returns the record with the given ID.
func (c *Company) Stage(stageID string) (*StageRecord, bool) {
	index := c.stageIndex(stageID)
	if index < 0 {
		return nil, false
	}
	return &c.Stages[index], true
}

// SetSymbolIcon selects a named symbol icon, discarding any custom image.
func (c *Company) SetSymbolIcon(name string) {
	c.Icon = name
	c.IconData = nil
	c.touch()
}

// SetImageIcon stores raw image bytes as the icon, clearing the symbol.
func (c *Company) SetImageIcon(data []byte) {
	c.IconData = append([]byte(nil), data...)
	c.Icon = ""
	c.touch()
}

func (c *Company) stageIndex(stageID string) int {
	for index, stage := range c.Stages {
		if stage.ID == stageID {
			return index
		}
	}
	return -1
}

func (c *Company) rederive() {
	derived := Derive(c.Stages)
	c.CurrentStageLabel = derived.CurrentStageLabel
	c.OverallStatus = derived.OverallStatus
	c.NextActionDate = derived.NextActionDate
	c.touch()
}

func (c *Company) touch() {
	c.UpdatedAt = time.Now().UTC()
}

// Clone deep-copies the aggregate.
func (c *Company) Clone() *Company {
	if c == nil {
		return nil
	}
	clone := *c
	clone.IconData = append([]byte(nil), c.IconData...)
	clone.Stages = append([]StageRecord(nil), c.Stages...)
	if c.NextActionDate != nil {
		date := *c.NextActionDate
		clone.NextActionDate = &date
	}
	for i := range clone.Stages {
		if clone.Stages[i].Round != nil {
			round := *clone.Stages[i].Round
			clone.Stages[i].Round = &round
		}
		if clone.Stages[i].Location != nil {
			location := *clone.Stages[i].Location
			clone.Stages[i].Location = &location
		}
	}
	return &clone
}
