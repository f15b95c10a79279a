package normalize

import (
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var nameStripper = strings.NewReplacer(`"`, "", "\n", "", "\r", "", "\t", "")

// CleanName removes quotes and line breaks, collapses whitespace and trims.
// When nothing is left the original value is returned; callers guard against
// empty names themselves.
func CleanName(name string) string {
	cleaned := strings.Join(strings.Fields(nameStripper.Replace(name)), " ")
	if cleaned == "" {
		return name
	}
	return cleaned
}

// NameKey is the dedup key of a candidate: the cleaned name in NFC form
func NameKey(name string) string {
	cleaned := strings.Join(strings.Fields(nameStripper.Replace(name)), " ")
	return norm.NFC.String(cleaned)
}

// CleanText trims, drops control characters and collapses whitespace runs
func CleanText(s string) string {
	s = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' || r == '\t' {
			return ' '
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

// ============================================================================
// Dates
// ============================================================================

// DateLayouts is tried in order; the first successful parse wins
var DateLayouts = []string{
	"2006-1-2",          // YYYY-MM-DD
	"2-1-2006",          // DD-MM-YYYY
	"1/2/2006",          // MM/DD/YYYY
	"2/1/2006",          // DD/MM/YYYY
	"2006-1-2 15:04:05", // YYYY-MM-DD HH:MM:SS
}

// DateResult carries the parsed date and whether another layout disagreed
type DateResult struct {
	Date      time.Time
	Layout    string
	OK        bool
	Ambiguous bool
	Alternate time.Time
}

// ParseDate returns the first layout match. Empty or unparseable input yields false.
func ParseDate(s string) (time.Time, bool) {
	r := ParseDateDetailed(s)
	return r.Date, r.OK
}

// ParseDateDetailed also reports whether a later layout would have produced a
// different calendar date, e.g. 05/06/2025 as May 6 versus June 5.
func ParseDateDetailed(s string) DateResult {
	s = strings.TrimSpace(s)
	if s == "" {
		return DateResult{}
	}

	var res DateResult
	for _, layout := range DateLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		if !res.OK {
			res = DateResult{Date: t, Layout: layout, OK: true}
			continue
		}
		if !sameDay(res.Date, t) {
			res.Ambiguous = true
			res.Alternate = t
			break
		}
	}
	return res
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
