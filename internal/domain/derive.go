package domain

import "time"

// OverallStatus is the coarse pipeline position shown on the progress bar.
type OverallStatus string

const (
	OverallPending     OverallStatus = "pending"
	OverallResume      OverallStatus = "resume"
	OverallWritten     OverallStatus = "written"
	OverallInterview1  OverallStatus = "interview1"
	OverallInterview2  OverallStatus = "interview2"
	OverallInterview3  OverallStatus = "interview3"
	OverallHRInterview OverallStatus = "hr_interview"
	OverallOffer       OverallStatus = "offer"
	OverallFailed      OverallStatus = "failed"
)

// Percentage is the fixed progress-bar fill for the status.
func (s OverallStatus) Percentage() int {
	switch s {
	case OverallResume:
		return 15
	case OverallWritten:
		return 30
	case OverallInterview1:
		return 45
	case OverallInterview2:
		return 60
	case OverallInterview3:
		return 75
	case OverallHRInterview:
		return 85
	case OverallOffer:
		return 100
	default:
		return 0
	}
}

// Derived holds the fields recomputed from a company's stage list after
// every mutation.
type Derived struct {
	CurrentStageLabel string
	OverallStatus     OverallStatus
	NextActionDate    *time.Time
}

const labelNotStarted = "not started"

// Derive computes the company-level view of a stage list.
//
// A failed stage anywhere short-circuits the whole pipeline. Otherwise the
// stage ranking last in pipeline order decides the label, the next action
// date and the coarse status. An offer counts as reached only once it is
// explicitly marked passed; while pending it still reports hr_interview.
func Derive(stages []StageRecord) Derived {
	if failed, ok := latestFailedStage(stages); ok {
		return Derived{
			CurrentStageLabel: failed.DisplayName() + " not passed",
			OverallStatus:     OverallFailed,
		}
	}

	latest, ok := LatestStage(stages)
	if !ok {
		return Derived{
			CurrentStageLabel: labelNotStarted,
			OverallStatus:     OverallPending,
		}
	}

	switch latest.Status {
	case StatusPassed:
		return Derived{
			CurrentStageLabel: latest.DisplayName() + " passed",
			OverallStatus:     statusForStage(latest),
		}
	default:
		date := latest.Date
		return Derived{
			CurrentStageLabel: latest.DisplayName(),
			OverallStatus:     statusForStage(latest),
			NextActionDate:    &date,
		}
	}
}

func latestFailedStage(stages []StageRecord) (StageRecord, bool) {
	failed := make([]StageRecord, 0, len(stages))
	for _, stage := range stages {
		if stage.Status == StatusFailed {
			failed = append(failed, stage)
		}
	}
	return LatestStage(failed)
}

func statusForStage(stage StageRecord) OverallStatus {
	switch stage.Kind {
	case StageResume:
		return OverallResume
	case StageWritten:
		return OverallWritten
	case StageInterview:
		round := 1
		if stage.Round != nil {
			round = *stage.Round
		}
		switch {
		case round <= 1:
			return OverallInterview1
		case round == 2:
			return OverallInterview2
		default:
			return OverallInterview3
		}
	case StageHRInterview:
		return OverallHRInterview
	case StageOffer:
		if stage.Status == StatusPassed {
			return OverallOffer
		}
		return OverallHRInterview
	default:
		return OverallPending
	}
}
