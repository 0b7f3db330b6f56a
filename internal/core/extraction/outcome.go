package extraction

import "github.com/kirillkom/dje-harvester/internal/core/domain"

type OutcomeKind int

const (
	OutcomeOK OutcomeKind = iota
	OutcomeSkipped
	OutcomeFailed
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeOK:
		return "ok"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

const (
	SkipMissingProcessNumber    = "missing process number"
	SkipMissingAvailabilityDate = "missing availability date"
)

// Outcome is the result of extracting one candidate block. Skipped means the
// block lacked a mandatory field; Failed means extraction itself broke.
type Outcome struct {
	Kind       OutcomeKind
	BlockIndex int
	Record     *domain.CaseRecord
	Reason     string
	Err        error
}

func okOutcome(block CandidateBlock, record *domain.CaseRecord) Outcome {
	return Outcome{Kind: OutcomeOK, BlockIndex: block.Index, Record: record}
}

func skippedOutcome(block CandidateBlock, reason string) Outcome {
	return Outcome{Kind: OutcomeSkipped, BlockIndex: block.Index, Reason: reason}
}

func failedOutcome(block CandidateBlock, err error) Outcome {
	return Outcome{Kind: OutcomeFailed, BlockIndex: block.Index, Err: err}
}
