package domain

// AvailableForAdd lists the stage kinds that may legally be appended to the
// given stage list, in pipeline order.
//
// Resume is a one-time gate for everything else. Written tests happen at
// most once. Interviews repeat freely until an offer exists. An HR interview
// needs at least one interview first. An offer can arrive any time after
// the resume, exactly once.
func AvailableForAdd(stages []StageRecord) []StageKind {
	var hasResume, hasWritten, hasInterview, hasOffer bool
	for _, stage := range stages {
		switch stage.Kind {
		case StageResume:
			hasResume = true
		case StageWritten:
			hasWritten = true
		case StageInterview:
			hasInterview = true
		case StageOffer:
			hasOffer = true
		}
	}

	available := make([]StageKind, 0, len(PipelineOrder))
	for _, kind := range PipelineOrder {
		allowed := false
		switch kind {
		case StageResume:
			allowed = !hasResume
		case StageWritten:
			allowed = hasResume && !hasWritten
		case StageInterview:
			allowed = hasResume && !hasOffer
		case StageHRInterview:
			allowed = hasInterview && !hasOffer
		case StageOffer:
			allowed = hasResume && !hasOffer
		}
		if allowed {
			available = append(available, kind)
		}
	}
	return available
}

// AvailableForEdit is AvailableForAdd plus the record's own current kind,
// so editing never removes the option of keeping the kind unchanged.
func AvailableForEdit(stages []StageRecord, current StageKind) []StageKind {
	available := AvailableForAdd(stages)
	for _, kind := range available {
		if kind == current {
			return available
		}
	}

	withCurrent := make([]StageKind, 0, len(available)+1)
	for _, kind := range PipelineOrder {
		if kind == current {
			withCurrent = append(withCurrent, kind)
			continue
		}
		for _, allowed := range available {
			if allowed == kind {
				withCurrent = append(withCurrent, kind)
				break
			}
		}
	}
	return withCurrent
}

// NextInterviewRound numbers a new interview as existing interview count
// plus one. Rounds are never reused after deletions.
func NextInterviewRound(stages []StageRecord) int {
	count := 0
	for _, stage := range stages {
		if stage.Kind == StageInterview {
			count++
		}
	}
	return count + 1
}

func kindAvailable(available []StageKind, kind StageKind) bool {
	for _, candidate := range available {
		if candidate == kind {
			return true
		}
	}
	return false
}
