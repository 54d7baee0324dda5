package shift

import (
	"fmt"
	"strings"

	"shiftbuk/pkg/schema"
)

// Defaults for the reserved rest code and the review marker prefix.
const (
	DefaultRestCode     = "L"
	DefaultReviewPrefix = "REVIEW: "
)

// CatalogIssueKind classifies catalog entries that did not make it into the
// code table unchanged.
type CatalogIssueKind string

const (
	IssueUnparseable  CatalogIssueKind = "unparseable_descriptor"
	IssueBlankCode    CatalogIssueKind = "blank_code"
	IssueDuplicate    CatalogIssueKind = "duplicate_descriptor"
	IssueRestOverride CatalogIssueKind = "rest_code_override"
)

// CatalogIssue reports one skipped or overridden catalog entry.
type CatalogIssue struct {
	Kind      CatalogIssueKind         `json:"kind"`
	Entry     schema.ShiftCatalogEntry `json:"entry"`
	Canonical string                   `json:"canonical"`
	KeptCode  string                   `json:"keptCode,omitempty"`
}

// CodeTableOptions configures the reserved values of a CodeTable.
type CodeTableOptions struct {
	RestCode     string
	ReviewPrefix string
}

// CodeTable maps canonical time ranges to shift codes.
type CodeTable struct {
	normalizer   *Normalizer
	codes        map[string]string
	restCode     string
	reviewPrefix string
}

// Translation is the outcome of translating one grid cell.
type Translation struct {
	Range TimeRange
	Code  string
	Hit   bool
}

// BuildCodeTable normalizes every catalog descriptor with n and maps its
// canonical form to the entry's code. Unparseable descriptors and blank codes
// are skipped, the first of conflicting duplicates wins, and REST always maps
// to the reserved rest code.
func BuildCodeTable(entries []schema.ShiftCatalogEntry, n *Normalizer, opts CodeTableOptions) (*CodeTable, []CatalogIssue) {
	if opts.RestCode == "" {
		opts.RestCode = DefaultRestCode
	}
	if opts.ReviewPrefix == "" {
		opts.ReviewPrefix = DefaultReviewPrefix
	}

	table := &CodeTable{
		normalizer:   n,
		codes:        make(map[string]string, len(entries)+1),
		restCode:     opts.RestCode,
		reviewPrefix: opts.ReviewPrefix,
	}
	table.codes[RestText] = opts.RestCode

	var issues []CatalogIssue
	for _, e := range entries {
		tr := n.Normalize(e.Descriptor)
		key := tr.String()
		code := strings.TrimSpace(e.Code)

		switch {
		case tr.Kind == KindUnparseable:
			issues = append(issues, CatalogIssue{Kind: IssueUnparseable, Entry: e, Canonical: tr.ReviewText()})
		case code == "":
			issues = append(issues, CatalogIssue{Kind: IssueBlankCode, Entry: e, Canonical: key})
		case tr.Kind == KindRest:
			if code != opts.RestCode {
				issues = append(issues, CatalogIssue{Kind: IssueRestOverride, Entry: e, Canonical: key, KeptCode: opts.RestCode})
			}
		default:
			if existing, ok := table.codes[key]; ok {
				if existing != code {
					issues = append(issues, CatalogIssue{Kind: IssueDuplicate, Entry: e, Canonical: key, KeptCode: existing})
				}
				continue
			}
			table.codes[key] = code
		}
	}

	return table, issues
}

// Translate normalizes a raw grid value and looks up its code. A miss
// yields the review marker carrying the canonical text.
func (t *CodeTable) Translate(raw string) Translation {
	tr := t.normalizer.Normalize(raw)
	if tr.Kind != KindUnparseable {
		if code, ok := t.codes[tr.String()]; ok {
			return Translation{Range: tr, Code: code, Hit: true}
		}
	}
	return Translation{Range: tr, Code: t.ReviewMarker(tr)}
}

// ReviewMarker renders the marker for an untranslatable range.
func (t *CodeTable) ReviewMarker(tr TimeRange) string {
	return t.reviewPrefix + tr.ReviewText()
}

// IsReviewMarker reports whether a cell value is a review marker.
func (t *CodeTable) IsReviewMarker(v string) bool {
	return strings.HasPrefix(v, t.reviewPrefix)
}

// RestCode returns the reserved rest code.
func (t *CodeTable) RestCode() string { return t.restCode }

// Len returns the number of canonical ranges with a code, REST included.
func (t *CodeTable) Len() int { return len(t.codes) }

// Lookup returns the code registered for a canonical string.
func (t *CodeTable) Lookup(canonical string) (string, bool) {
	code, ok := t.codes[canonical]
	return code, ok
}

func (i CatalogIssue) String() string {
	return fmt.Sprintf("row %d: %s (%q -> %s)", i.Entry.SourceRow, i.Kind, i.Entry.Descriptor, i.Canonical)
}
