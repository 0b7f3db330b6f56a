package extraction

import "github.com/kirillkom/dje-harvester/internal/core/domain"

// IssueExtraction is everything derived from one issue's text.
type IssueExtraction struct {
	AvailabilityDate *domain.Date
	Blocks           int
	Matched          int
	Outcomes         []Outcome
}

func (x IssueExtraction) Records() []domain.CaseRecord {
	out := make([]domain.CaseRecord, 0, len(x.Outcomes))
	for _, outcome := range x.Outcomes {
		if outcome.Kind == OutcomeOK && outcome.Record != nil {
			out = append(out, *outcome.Record)
		}
	}
	return out
}

func (x IssueExtraction) Count(kind OutcomeKind) int {
	n := 0
	for _, outcome := range x.Outcomes {
		if outcome.Kind == kind {
			n++
		}
	}
	return n
}

type Extractor struct {
	segmenter *Segmenter
}

func NewExtractor(segmenter *Segmenter) *Extractor {
	if segmenter == nil {
		segmenter = NewSegmenter(nil)
	}
	return &Extractor{segmenter: segmenter}
}

func (e *Extractor) ExtractIssue(fullText string) IssueExtraction {
	date, _ := ExtractAvailabilityDate(fullText)
	blocks := e.segmenter.Segment(fullText)
	matched := e.segmenter.Filter(blocks)

	outcomes := make([]Outcome, 0, len(matched))
	for _, block := range matched {
		outcomes = append(outcomes, ExtractCase(block, date))
	}

	return IssueExtraction{
		AvailabilityDate: date,
		Blocks:           len(blocks),
		Matched:          len(matched),
		Outcomes:         outcomes,
	}
}
