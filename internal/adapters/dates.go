package adapters

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var numericDate = regexp.MustCompile(`(\d{1,2})[./-](\d{1,2})[./-](\d{4})|(\d{4})-(\d{2})-(\d{2})`)

// monthNames maps lower-case month names in every portal language
var monthNames = map[string]time.Month{
	// ro
	"ianuarie": 1, "februarie": 2, "martie": 3, "aprilie": 4, "mai": 5, "iunie": 6,
	"iulie": 7, "august": 8, "septembrie": 9, "octombrie": 10, "noiembrie": 11, "decembrie": 12,
	// en
	"january": 1, "february": 2, "march": 3, "april": 4, "may": 5, "june": 6,
	"july": 7, "september": 9, "october": 10, "november": 11, "december": 12,
	// de
	"januar": 1, "februar": 2, "märz": 3, "juni": 6, "juli": 7, "oktober": 10, "dezember": 12,
	// bg
	"януари": 1, "февруари": 2, "март": 3, "април": 4, "май": 5, "юни": 6,
	"юли": 7, "август": 8, "септември": 9, "октомври": 10, "ноември": 11, "декември": 12,
	// pl (genitive, as used in dates)
	"stycznia": 1, "lutego": 2, "marca": 3, "kwietnia": 4, "maja": 5, "czerwca": 6,
	"lipca": 7, "sierpnia": 8, "września": 9, "października": 10, "listopada": 11, "grudnia": 12,
}

var wordDate = regexp.MustCompile(`(\d{1,2})\.?\s+(\p{L}+)\s+(\d{4})`)

// parseDate reads the first date in s, numeric or with a month name
func parseDate(s string) *time.Time {
	if m := numericDate.FindStringSubmatch(s); m != nil {
		var day, month, year int
		if m[1] != "" {
			day, _ = strconv.Atoi(m[1])
			month, _ = strconv.Atoi(m[2])
			year, _ = strconv.Atoi(m[3])
		} else {
			year, _ = strconv.Atoi(m[4])
			month, _ = strconv.Atoi(m[5])
			day, _ = strconv.Atoi(m[6])
		}
		return makeDate(year, time.Month(month), day)
	}

	for _, m := range wordDate.FindAllStringSubmatch(s, -1) {
		month, ok := monthNames[strings.ToLower(m[2])]
		if !ok {
			continue
		}
		day, _ := strconv.Atoi(m[1])
		year, _ := strconv.Atoi(m[3])
		return makeDate(year, month, day)
	}

	return nil
}

func makeDate(year int, month time.Month, day int) *time.Time {
	if year < 1800 || year > 2200 || month < 1 || month > 12 || day < 1 || day > 31 {
		return nil
	}
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day {
		return nil // e.g. 31 February
	}
	return &t
}

// labeledDate finds the date written after any of the labels in text
func labeledDate(text string, labels []string) *time.Time {
	lower := strings.ToLower(text)
	for _, label := range labels {
		idx := strings.Index(lower, strings.ToLower(label))
		if idx < 0 {
			continue
		}
		start := idx + len(label)
		end := start + 60
		if end > len(lower) {
			end = len(lower)
		}
		if d := parseDate(lower[start:end]); d != nil {
			return d
		}
	}
	return nil
}

var yearPattern = regexp.MustCompile(`\b(1[89]\d{2}|2[01]\d{2})\b`)

// firstYear returns the first plausible year in s
func firstYear(s string) int {
	if m := yearPattern.FindString(s); m != "" {
		y, _ := strconv.Atoi(m)
		return y
	}
	return 0
}
