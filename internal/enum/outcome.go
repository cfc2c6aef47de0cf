package enum

type ProcessingOutcome string

const (
	OutcomeCreated        ProcessingOutcome = "created"
	OutcomeUpdated        ProcessingOutcome = "updated"
	OutcomeDuplicateFound ProcessingOutcome = "duplicate_found"
	OutcomeSkipped        ProcessingOutcome = "skipped"
	OutcomeFailed         ProcessingOutcome = "failed"
)

func (t ProcessingOutcome) String() string {
	return string(t)
}
