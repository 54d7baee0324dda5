// Package shift normalizes free-text shift descriptors into canonical time
// ranges and translates them into payroll shift codes.
package shift

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"shiftbuk/pkg/schema"
)

// Kind classifies a normalized descriptor.
type Kind int

const (
	KindRange Kind = iota
	KindRest
	KindUnparseable
)

// Sentinel renderings of the non-range kinds.
const (
	RestText        = "REST"
	UnparseableText = "UNPARSEABLE"
)

// TokenPolicy decides how start and end are chosen from the time tokens
// found in a descriptor.
type TokenPolicy string

const (
	// PolicyFirstLast takes the first token as start and the last as end,
	// tolerating an intermediate break token ("9:00 13:00 14:00 18:00").
	// A third unrelated token silently shifts the end time.
	PolicyFirstLast TokenPolicy = "first_last"
	// PolicyStrictPair requires exactly two tokens.
	PolicyStrictPair TokenPolicy = "strict_pair"
)

// ParseTokenPolicy validates a configured policy name.
func ParseTokenPolicy(s string) (TokenPolicy, error) {
	switch p := TokenPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PolicyFirstLast, nil
	case PolicyFirstLast, PolicyStrictPair:
		return p, nil
	default:
		return "", fmt.Errorf("unknown token policy %q", s)
	}
}

// Clock is a time of day.
type Clock struct {
	Hour   int
	Minute int
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// TimeRange is the canonical form of a shift descriptor.
type TimeRange struct {
	Kind  Kind
	Start Clock
	End   Clock
	// Text is the folded, qualifier-free input. It is what review markers
	// show for unparseable descriptors.
	Text string
}

// String renders the canonical form: "HH:MM-HH:MM", "REST" or "UNPARSEABLE".
func (t TimeRange) String() string {
	switch t.Kind {
	case KindRest:
		return RestText
	case KindUnparseable:
		return UnparseableText
	default:
		return t.Start.String() + "-" + t.End.String()
	}
}

// ReviewText is the text embedded in a review marker: the canonical range,
// or the cleaned input when nothing could be parsed.
func (t TimeRange) ReviewText() string {
	if t.Kind == KindUnparseable && t.Text != "" {
		return t.Text
	}
	return t.String()
}

// DefaultRestWords mark a day without a shift. Compared after folding.
var DefaultRestWords = []string{"LIBRE", "L", "REST", "FREE", "DESCANSO"}

// DefaultQualifiers are day/night words stripped before scanning.
var DefaultQualifiers = []string{"DIURNO", "NOCTURNO", "DAY", "NIGHT", "DIA", "NOCHE"}

// clockTokenRe finds candidate h:mm[:ss] tokens. Digit-run lengths are
// checked after matching since RE2 has no lookaround.
var clockTokenRe = regexp.MustCompile(`\d+:\d+(?::\d+)?`)

// Normalizer maps raw shift descriptors to TimeRanges. The same value must be
// used for the shift-code catalog and the grid so both sides agree.
type Normalizer struct {
	Policy     TokenPolicy
	RestWords  []string
	Qualifiers []string

	rest       map[string]bool
	qualifiers *regexp.Regexp
}

// NewNormalizer builds a Normalizer. Nil word lists take the defaults.
func NewNormalizer(policy TokenPolicy, restWords, qualifiers []string) *Normalizer {
	if policy == "" {
		policy = PolicyFirstLast
	}
	if restWords == nil {
		restWords = DefaultRestWords
	}
	if qualifiers == nil {
		qualifiers = DefaultQualifiers
	}

	n := &Normalizer{
		Policy:     policy,
		RestWords:  restWords,
		Qualifiers: qualifiers,
		rest:       make(map[string]bool, len(restWords)),
	}
	for _, w := range restWords {
		n.rest[schema.FoldText(strings.TrimSpace(w))] = true
	}

	var quoted []string
	for _, q := range qualifiers {
		if q = strings.TrimSpace(q); q != "" {
			quoted = append(quoted, regexp.QuoteMeta(schema.FoldText(q)))
		}
	}
	if len(quoted) > 0 {
		n.qualifiers = regexp.MustCompile(`\b(?:` + strings.Join(quoted, "|") + `)\b`)
	}
	return n
}

// DefaultNormalizer uses the first/last policy and default word lists.
func DefaultNormalizer() *Normalizer {
	return NewNormalizer(PolicyFirstLast, nil, nil)
}

// Normalize maps a raw cell value to its canonical TimeRange.
func (n *Normalizer) Normalize(raw string) TimeRange {
	folded := schema.FoldText(strings.TrimSpace(raw))
	if folded == "" || n.rest[folded] || folded == RestText {
		return TimeRange{Kind: KindRest}
	}

	text := folded
	if n.qualifiers != nil {
		text = n.qualifiers.ReplaceAllString(text, " ")
	}
	text = strings.Join(strings.Fields(text), " ")

	tokens := scanClocks(text)
	switch {
	case len(tokens) < 2:
		return TimeRange{Kind: KindUnparseable, Text: text}
	case n.Policy == PolicyStrictPair && len(tokens) != 2:
		return TimeRange{Kind: KindUnparseable, Text: text}
	}

	return TimeRange{
		Kind:  KindRange,
		Start: tokens[0],
		End:   tokens[len(tokens)-1],
		Text:  text,
	}
}

// Canonical is shorthand for Normalize(raw).String().
func (n *Normalizer) Canonical(raw string) string {
	return n.Normalize(raw).String()
}

// scanClocks collects every hour:minute token left to right. An hour has one
// or two digits (0-23), a minute exactly two (0-59); trailing seconds are
// accepted and dropped.
func scanClocks(text string) []Clock {
	var out []Clock
	for _, m := range clockTokenRe.FindAllString(text, -1) {
		parts := strings.Split(m, ":")
		if len(parts[0]) > 2 || len(parts[1]) != 2 {
			continue
		}
		if len(parts) == 3 && len(parts[2]) != 2 {
			continue
		}
		h, _ := strconv.Atoi(parts[0])
		mm, _ := strconv.Atoi(parts[1])
		if h > 23 || mm > 59 {
			continue
		}
		out = append(out, Clock{Hour: h, Minute: mm})
	}
	return out
}
