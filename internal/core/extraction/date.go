package extraction

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/kirillkom/dje-harvester/internal/core/domain"
)

var availabilityPattern = regexp.MustCompile(`(?i)Disponibiliza[çc][ãa]o:\s*(\p{L}+-feira),\s*(\d{1,2})\s+de\s+(\p{L}+)\s+de\s+(\d{4})`)

// Indexed by time.Month. The table replaces host locale data, which is not
// installed everywhere.
var portugueseMonthNames = [...]string{
	"",
	"janeiro",
	"fevereiro",
	"março",
	"abril",
	"maio",
	"junho",
	"julho",
	"agosto",
	"setembro",
	"outubro",
	"novembro",
	"dezembro",
}

var portugueseMonths = buildMonthIndex()

func buildMonthIndex() map[string]time.Month {
	index := make(map[string]time.Month, len(portugueseMonthNames)+1)
	for i, name := range portugueseMonthNames {
		if name == "" {
			continue
		}
		index[name] = time.Month(i)
	}
	// PDF text layers sometimes drop the cedilla.
	index["marco"] = time.March
	return index
}

// MonthNumber maps a Portuguese month name to its number.
func MonthNumber(name string) (time.Month, bool) {
	month, ok := portugueseMonths[strings.ToLower(strings.TrimSpace(name))]
	return month, ok
}

// MonthName is the inverse of MonthNumber.
func MonthName(month time.Month) string {
	if month < time.January || month > time.December {
		return ""
	}
	return portugueseMonthNames[month]
}

// ExtractAvailabilityDate finds the issue's "Disponibilização: <weekday>-feira,
// <day> de <month> de <year>" header.
func ExtractAvailabilityDate(fullText string) (*domain.Date, bool) {
	match := availabilityPattern.FindStringSubmatch(fullText)
	if match == nil {
		return nil, false
	}

	day, err := strconv.Atoi(match[2])
	if err != nil {
		return nil, false
	}
	month, ok := MonthNumber(match[3])
	if !ok {
		return nil, false
	}
	year, err := strconv.Atoi(match[4])
	if err != nil {
		return nil, false
	}

	date, err := domain.NewDate(year, month, day)
	if err != nil {
		return nil, false
	}
	return &date, true
}
