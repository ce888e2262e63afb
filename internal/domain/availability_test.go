package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAvailableForAddEmptyHistoryOnlyResume(t *testing.T) {
	assert.Equal(t, []StageKind{StageResume}, AvailableForAdd(nil))
}

func TestAvailableForAddAfterResume(t *testing.T) {
	date := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	stages := []StageRecord{stage(StageResume, StatusPassed, date)}

	assert.Equal(t,
		[]StageKind{StageWritten, StageInterview, StageOffer},
		AvailableForAdd(stages))
}

func TestAvailableForAddHRInterviewNeedsInterview(t *testing.T) {
	date := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	stages := []StageRecord{
		stage(StageResume, StatusPassed, date),
		interviewStage(1, StatusPassed, date.AddDate(0, 0, 7)),
	}

	assert.Equal(t,
		[]StageKind{StageWritten, StageInterview, StageHRInterview, StageOffer},
		AvailableForAdd(stages))
}

func TestAvailableForAddOfferClosesInterviewTrack(t *testing.T) {
	date := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	stages := []StageRecord{
		stage(StageResume, StatusPassed, date),
		stage(StageOffer, StatusPending, date.AddDate(0, 0, 14)),
	}

	// An offer ends interviewing, but a pending written test can still be
	// recorded; its gate is the resume alone.
	assert.Equal(t, []StageKind{StageWritten}, AvailableForAdd(stages))
}

func TestAvailableForAddWrittenHappensOnce(t *testing.T) {
	date := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	stages := []StageRecord{
		stage(StageResume, StatusPassed, date),
		stage(StageWritten, StatusPassed, date.AddDate(0, 0, 3)),
	}

	assert.NotContains(t, AvailableForAdd(stages), StageWritten)
	assert.Contains(t, AvailableForAdd(stages), StageInterview)
}

func TestAvailableForAddInterviewsRepeat(t *testing.T) {
	date := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	stages := []StageRecord{
		stage(StageResume, StatusPassed, date),
		interviewStage(1, StatusPassed, date.AddDate(0, 0, 7)),
		interviewStage(2, StatusPassed, date.AddDate(0, 0, 14)),
	}

	assert.Contains(t, AvailableForAdd(stages), StageInterview)
}

func TestAvailableForEditKeepsCurrentKind(t *testing.T) {
	date := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	others := []StageRecord{
		stage(StageResume, StatusPassed, date),
		stage(StageWritten, StatusPassed, date.AddDate(0, 0, 3)),
	}

	// Written already exists elsewhere, yet the edited record may keep it.
	available := AvailableForEdit(others, StageWritten)
	assert.Contains(t, available, StageWritten)
}

func TestAvailableForEditNoDuplicateKinds(t *testing.T) {
	date := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	others := []StageRecord{stage(StageResume, StatusPassed, date)}

	available := AvailableForEdit(others, StageInterview)
	seen := make(map[StageKind]int)
	for _, kind := range available {
		seen[kind]++
	}
	for kind, count := range seen {
		assert.Equalf(t, 1, count, "kind %s listed more than once", kind)
	}
}

func TestAvailableForEditKeepsPipelineOrder(t *testing.T) {
	date := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	others := []StageRecord{
		stage(StageResume, StatusPassed, date),
		interviewStage(1, StatusPassed, date.AddDate(0, 0, 7)),
	}

	available := AvailableForEdit(others, StageWritten)
	for i := 1; i < len(available); i++ {
		assert.Less(t, available[i-1].PipelineIndex(), available[i].PipelineIndex())
	}
}

func TestNextInterviewRoundCountsExisting(t *testing.T) {
	date := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	assert.Equal(t, 1, NextInterviewRound(nil))

	stages := []StageRecord{
		interviewStage(1, StatusPassed, date),
		interviewStage(2, StatusFailed, date.AddDate(0, 0, 7)),
	}
	assert.Equal(t, 3, NextInterviewRound(stages))
}

func TestNextInterviewRoundAfterDeletion(t *testing.T) {
	date := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	// Deleting round 1 leaves a single interview, so the next one is 2.
	stages := []StageRecord{interviewStage(2, StatusPassed, date)}
	assert.Equal(t, 2, NextInterviewRound(stages))
}
