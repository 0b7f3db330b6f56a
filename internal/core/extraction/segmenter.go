package extraction

import "strings"

// CaseMarker starts every case entry in a DJE issue.
const CaseMarker = "\nProcesso "

var DefaultRequiredTerms = []string{"rpv", "pagamento pelo inss"}

type CandidateBlock struct {
	Index int
	Text  string
}

type Segmenter struct {
	marker        string
	requiredTerms []string
}

func NewSegmenter(requiredTerms []string) *Segmenter {
	terms := make([]string, 0, len(requiredTerms))
	for _, term := range requiredTerms {
		term = strings.ToLower(strings.TrimSpace(term))
		if term != "" {
			terms = append(terms, term)
		}
	}
	if len(terms) == 0 {
		terms = append(terms, DefaultRequiredTerms...)
	}
	return &Segmenter{
		marker:        CaseMarker,
		requiredTerms: terms,
	}
}

// Segment splits on the case marker. The preamble before the first marker is
// kept as block 0.
func (s *Segmenter) Segment(fullText string) []CandidateBlock {
	parts := strings.Split(fullText, s.marker)
	out := make([]CandidateBlock, 0, len(parts))
	for i, part := range parts {
		out = append(out, CandidateBlock{Index: i, Text: part})
	}
	return out
}

// Matches reports whether text contains every required term, ignoring case.
func (s *Segmenter) Matches(text string) bool {
	lowered := strings.ToLower(text)
	for _, term := range s.requiredTerms {
		if !strings.Contains(lowered, term) {
			return false
		}
	}
	return true
}

func (s *Segmenter) Filter(blocks []CandidateBlock) []CandidateBlock {
	out := make([]CandidateBlock, 0, len(blocks))
	for _, block := range blocks {
		if s.Matches(block.Text) {
			out = append(out, block)
		}
	}
	return out
}

func (s *Segmenter) RequiredTerms() []string {
	return append([]string(nil), s.requiredTerms...)
}
