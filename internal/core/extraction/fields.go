package extraction

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/kirillkom/dje-harvester/internal/core/domain"
)

var (
	processNumberPattern = regexp.MustCompile(`\d{7}-\d{2}\.\d{4}\.\d\.\d{2}\.\d{4}`)
	lawyersPattern       = regexp.MustCompile(`(?s)ADV:\s*(.*)`)

	principalAmountPattern        = amountPattern("principal bruto/líquido;")
	moratoryInterestAmountPattern = amountPattern("juros moratórios;")
	attorneyFeesAmountPattern     = amountPattern("honorários advocatícios")
)

func amountPattern(label string) *regexp.Regexp {
	return regexp.MustCompile(`(R\$\s*\d{1,3}(?:\.\d{3})*,\d{2})\s*-\s*` + regexp.QuoteMeta(label))
}

const (
	authorsSeparator = " - "
	authorsMaxParts  = 6
	authorsColumn    = 3
)

// ProcessNumber returns the first NNNNNNN-NN.NNNN.N.NN.NNNN identifier.
func ProcessNumber(text string) (string, bool) {
	number := processNumberPattern.FindString(text)
	return number, number != ""
}

// AuthorsByPosition takes the fourth " - " separated column of a case entry,
// which is where the DJE layout prints the plaintiffs:
//
//	<number> - <class> - <subject> - <authors> - <defendant> - ...
//
// Known failure modes: a class or subject containing " - " shifts the columns
// and returns the wrong text; entries with fewer than four columns return nil.
func AuthorsByPosition(block string) *string {
	parts := strings.SplitN(block, authorsSeparator, authorsMaxParts)
	if len(parts) <= authorsColumn {
		return nil
	}
	return nonEmpty(parts[authorsColumn])
}

// Lawyers returns everything after the first "ADV:" marker.
func Lawyers(block string) *string {
	match := lawyersPattern.FindStringSubmatch(block)
	if match == nil {
		return nil
	}
	return nonEmpty(match[1])
}

func PrincipalAmount(block string) *string {
	return firstAmount(principalAmountPattern, block)
}

func MoratoryInterestAmount(block string) *string {
	return firstAmount(moratoryInterestAmountPattern, block)
}

func AttorneyFeesAmount(block string) *string {
	return firstAmount(attorneyFeesAmountPattern, block)
}

func firstAmount(pattern *regexp.Regexp, block string) *string {
	match := pattern.FindStringSubmatch(block)
	if match == nil {
		return nil
	}
	return nonEmpty(match[1])
}

func nonEmpty(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// ExtractCase parses one candidate block. A nil date skips the block because
// cases cannot be persisted without it; the issue itself is still stored.
func ExtractCase(block CandidateBlock, date *domain.Date) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = failedOutcome(block, domain.WrapError(
				domain.ErrExtraction,
				fmt.Sprintf("extract block %d", block.Index),
				fmt.Errorf("panic: %v", r),
			))
		}
	}()

	number, found := ProcessNumber(block.Text)
	if !found {
		return skippedOutcome(block, SkipMissingProcessNumber)
	}
	if date == nil {
		return skippedOutcome(block, SkipMissingAvailabilityDate)
	}

	issueDate := *date
	return okOutcome(block, &domain.CaseRecord{
		ProcessNumber:          number,
		AvailabilityDate:       &issueDate,
		Authors:                AuthorsByPosition(block.Text),
		Lawyers:                Lawyers(block.Text),
		PrincipalAmount:        PrincipalAmount(block.Text),
		MoratoryInterestAmount: MoratoryInterestAmount(block.Text),
		AttorneyFeesAmount:     AttorneyFeesAmount(block.Text),
	})
}
