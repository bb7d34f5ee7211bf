package faceitanalyser

import (
	"strconv"
	"strings"

	"statcard-backend/lib/htmlutil"
)

// ParseNumber parses the site's display formats into a float:
// thousands separators ("1,234"), percent signs ("55%") and comma
// decimal marks ("2,10") all appear depending on the stat and the
// locale the page happened to render with.
func ParseNumber(raw string) (float64, bool) {
	s := htmlutil.CleanText(raw)
	s = strings.TrimSuffix(s, "%")
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return 0, false
	}

	switch {
	case strings.Contains(s, ".") && strings.Contains(s, ","):
		// both marks present, the comma is a thousands separator
		s = strings.ReplaceAll(s, ",", "")
	case strings.Contains(s, ","):
		if isThousandsComma(s) {
			s = strings.ReplaceAll(s, ",", "")
		} else {
			// locale decimal mark, e.g. "2,10"
			s = strings.Replace(s, ",", ".", 1)
		}
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// a single comma followed by exactly three digits at the end reads as
// a thousands separator ("1,234"), anything else as a decimal mark
func isThousandsComma(s string) bool {
	if strings.Count(s, ",") > 1 {
		return true
	}
	i := strings.IndexByte(s, ',')
	return len(s)-i-1 == 3 && i > 0
}

// parseField turns raw display text into a Field, tagging parse
// failures as unavailable instead of erroring.
func parseField(raw string) Field {
	v, ok := ParseNumber(raw)
	if !ok {
		return unavailable()
	}
	return Field{Raw: htmlutil.CleanText(raw), Value: v, Available: true}
}
