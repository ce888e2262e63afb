package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"
)

var (
	ErrUnknownStageKind    = errors.New("unknown stage kind")
	ErrUnknownStageStatus  = errors.New("unknown stage status")
	ErrUnknownLocationType = errors.New("unknown location type")
)

// StageKind identifies one step of the recruitment pipeline.
type StageKind string

const (
	StageResume      StageKind = "resume"
	StageWritten     StageKind = "written"
	StageInterview   StageKind = "interview"
	StageHRInterview StageKind = "hr_interview"
	StageOffer       StageKind = "offer"
)

// PipelineOrder is the fixed progression of stage kinds.
var PipelineOrder = []StageKind{
	StageResume,
	StageWritten,
	StageInterview,
	StageHRInterview,
	StageOffer,
}

// PipelineIndex returns the kind's ordinal position in PipelineOrder.
// Unknown kinds sort first.
func (k StageKind) PipelineIndex() int {
	for index, kind := range PipelineOrder {
		if kind == k {
			return index
		}
	}
	return 0
}

// Label is the user-facing name of the kind.
func (k StageKind) Label() string {
	switch k {
	case StageResume:
		return "Resume"
	case StageWritten:
		return "Written test"
	case StageInterview:
		return "Interview"
	case StageHRInterview:
		return "HR interview"
	case StageOffer:
		return "Offer"
	default:
		return string(k)
	}
}

func ParseStageKind(value string) (StageKind, error) {
	kind := StageKind(value)
	for _, known := range PipelineOrder {
		if kind == known {
			return kind, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStageKind, value)
}

func (k *StageKind) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseStageKind(raw)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// StageStatus is the outcome state of a single stage.
type StageStatus string

const (
	StatusPending StageStatus = "pending"
	StatusPassed  StageStatus = "passed"
	StatusFailed  StageStatus = "failed"
)

func ParseStageStatus(value string) (StageStatus, error) {
	switch status := StageStatus(value); status {
	case StatusPending, StatusPassed, StatusFailed:
		return status, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownStageStatus, value)
	}
}

func (s *StageStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseStageStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// LocationType distinguishes remote links from physical addresses.
type LocationType string

const (
	LocationOnline  LocationType = "online"
	LocationOffline LocationType = "offline"
)

func ParseLocationType(value string) (LocationType, error) {
	switch location := LocationType(value); location {
	case LocationOnline, LocationOffline:
		return location, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownLocationType, value)
	}
}

func (l *LocationType) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseLocationType(raw)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// StageLocation is where a stage takes place: a meeting link when online,
// a street address when offline.
type StageLocation struct {
	Type    LocationType `json:"type"`
	Address string       `json:"address"`
}

// StageRecord is one recruitment-stage event for a company.
// Round is set iff Kind == StageInterview.
type StageRecord struct {
	ID              string         `json:"id"`
	Kind            StageKind      `json:"kind"`
	Round           *int           `json:"round,omitempty"`
	Date            time.Time      `json:"date"`
	Note            string         `json:"note"`
	Status          StageStatus    `json:"status"`
	Location        *StageLocation `json:"location,omitempty"`
	CalendarEventID string         `json:"calendar_event_id,omitempty"`
}

// DisplayName renders the stage for labels: "Round N interview" for
// interview rounds, the kind label otherwise.
func (r StageRecord) DisplayName() string {
	if r.Kind == StageInterview && r.Round != nil {
		return fmt.Sprintf("Round %d interview", *r.Round)
	}
	return r.Kind.Label()
}

// CompareStages orders two records chronologically: pipeline index first,
// interview ties by round, other ties by date. Returns -1, 0 or 1.
func CompareStages(a, b StageRecord) int {
	indexA, indexB := a.Kind.PipelineIndex(), b.Kind.PipelineIndex()
	if indexA != indexB {
		if indexA < indexB {
			return -1
		}
		return 1
	}
	if a.Kind == StageInterview {
		roundA, roundB := 0, 0
		if a.Round != nil {
			roundA = *a.Round
		}
		if b.Round != nil {
			roundB = *b.Round
		}
		if roundA != roundB {
			if roundA < roundB {
				return -1
			}
			return 1
		}
	}
	if a.Date.Before(b.Date) {
		return -1
	}
	if a.Date.After(b.Date) {
		return 1
	}
	return 0
}

// SortedStages returns a copy of stages in chronological pipeline order.
func SortedStages(stages []StageRecord) []StageRecord {
	sorted := append([]StageRecord(nil), stages...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return CompareStages(sorted[i], sorted[j]) < 0
	})
	return sorted
}

// LatestStage returns the stage ranking last in pipeline order, or false
// when stages is empty.
func LatestStage(stages []StageRecord) (StageRecord, bool) {
	if len(stages) == 0 {
		return StageRecord{}, false
	}
	latest := stages[0]
	for _, stage := range stages[1:] {
		if CompareStages(stage, latest) >= 0 {
			latest = stage
		}
	}
	return latest, true
}
