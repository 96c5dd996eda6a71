package domain

import "strings"

// Mark is a test outcome. The analyzer emits lowercase ("positive"),
// the front end sends uppercase, and older revisions mixed both, so all
// parsing goes through ParseMark.
type Mark string

const (
	MarkPositive     Mark = "POSITIVE"
	MarkNegative     Mark = "NEGATIVE"
	MarkInconclusive Mark = "INCONCLUSIVE"
	MarkNone         Mark = "NONE"
)

// ParseMark normalizes s into a Mark. Blank or unrecognized values map
// to NONE rather than failing.
func ParseMark(s string) Mark {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "POSITIVE":
		return MarkPositive
	case "NEGATIVE":
		return MarkNegative
	case "INCONCLUSIVE":
		return MarkInconclusive
	default:
		return MarkNone
	}
}

// IsBlank reports whether s carries no mark at all (as opposed to an
// explicit NONE).
func IsBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
