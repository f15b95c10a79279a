package normalize

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	TalentFTE    = "FTE"
	TalentNonFTE = "NFTE"
)

// MaxYearsOfExperience bounds parsed experience; larger numbers are years
// ("Since 2015") or typos and are stored as zero
var MaxYearsOfExperience = decimal.NewFromInt(60)

var firstNumber = regexp.MustCompile(`\d+(\.\d+)?`)

// TalentType is NFTE when the source or vendor mentions any vendor
// indicator, FTE otherwise. A candidate without a source is FTE whatever the
// vendor says. Indicators are matched case-insensitively.
func TalentType(source, vendor string, indicators []string) string {
	if strings.TrimSpace(source) == "" {
		return TalentFTE
	}
	src := strings.ToLower(source)
	ven := strings.ToLower(vendor)
	for _, ind := range indicators {
		ind = strings.ToLower(strings.TrimSpace(ind))
		if ind == "" {
			continue
		}
		if strings.Contains(src, ind) || (ven != "" && strings.Contains(ven, ind)) {
			return TalentNonFTE
		}
	}
	return TalentFTE
}

// YearsOfExperience pulls the first number out of free text such as
// "4yrs", "3.2 years" or "5+ years". No number, or one above
// MaxYearsOfExperience, yields zero.
func YearsOfExperience(text string) decimal.Decimal {
	m := firstNumber.FindString(text)
	if m == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(m)
	if err != nil || d.GreaterThan(MaxYearsOfExperience) {
		return decimal.Zero
	}
	return d
}
