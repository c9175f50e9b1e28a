package agent

import (
	"regexp"
	"strings"
)

// Department is the tagged result of classifying an assistant reply.
// The marker literals below never leave this package; callers only see
// the Department value.
type Department string

const (
	DepartmentNone    Department = ""
	DepartmentSales   Department = "sales"
	DepartmentSupport Department = "support"
)

// The model is instructed to open escalation replies with one of these
// exact markers followed by a space and a transition sentence.
const (
	salesMarker   = "[TRANSFER_SALES]"
	supportMarker = "[TRANSFER_SUPPORT]"
)

// Fallback patterns catch escalation phrasing when the model forgets the
// marker. They can match text that merely discusses a transfer
// hypothetically; kept on purpose for parity with observed model behavior.
var (
	supportFallback = regexp.MustCompile(
		`(?i)\bconnect you with (?:our |a |the )?(?:support|technician|technical team)` +
			`|\blet me (?:transfer|connect|put) you (?:through )?[^.?!]*(?:support|technical)`)
	salesFallback = regexp.MustCompile(
		`(?i)\bconnect you with (?:our |a |the )?(?:sales|representative|agent|pricing)` +
			`|\b(?:transfer|connect|put) you (?:through )?[^.?!]*(?:sales|pricing)`)
)

// escalations is checked in order. Marker prefixes are disjoint literals,
// so their order cannot matter today; the fallback order can, and support
// is deliberately checked before sales.
var escalations = []struct {
	dept     Department
	marker   string
	fallback *regexp.Regexp
}{
	{DepartmentSupport, supportMarker, supportFallback},
	{DepartmentSales, salesMarker, salesFallback},
}

// Classify decides whether an assistant reply signals a department
// escalation. A marker prefix always wins over any fallback match.
// It never fails; unclassifiable text is DepartmentNone.
func Classify(reply string) Department {
	for _, e := range escalations {
		if strings.HasPrefix(reply, e.marker) {
			return e.dept
		}
	}
	for _, e := range escalations {
		if e.fallback.MatchString(reply) {
			return e.dept
		}
	}
	return DepartmentNone
}

// StripMarker removes a leading department marker and surrounding
// whitespace, leaving the transition sentence. No-op when no marker is
// present, so it is idempotent.
func StripMarker(reply string) string {
	for _, e := range escalations {
		if strings.HasPrefix(reply, e.marker) {
			return strings.TrimSpace(strings.TrimPrefix(reply, e.marker))
		}
	}
	return strings.TrimSpace(reply)
}
