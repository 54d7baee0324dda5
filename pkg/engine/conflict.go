package engine

import (
	"strings"

	"shiftbuk/pkg/schema"
)

// FieldConflict represents a disagreement between two catalog rows that share
// an external identifier. Resolution is always "first_wins": the earlier row
// is kept.
type FieldConflict struct {
	ExternalID   string `json:"externalId"`
	Field        string `json:"field"`
	KeptValue    string `json:"keptValue"`
	DroppedValue string `json:"droppedValue"`
	DroppedRow   int    `json:"droppedRow"`
	Resolution   string `json:"resolution"` // always "first_wins"
}

// DetectConflicts compares the fields of a kept record and a duplicate.
// Values that differ (case- and accent-insensitive) produce a conflict entry.
// Blank values on the duplicate are not conflicts.
func DetectConflicts(kept, dup *schema.IdentityRecord) []FieldConflict {
	var conflicts []FieldConflict

	compare := func(field, a, b string, normalize func(string) string) {
		if b == "" || normalize(a) == normalize(b) {
			return
		}
		conflicts = append(conflicts, FieldConflict{
			ExternalID:   kept.ExternalID,
			Field:        field,
			KeptValue:    a,
			DroppedValue: b,
			DroppedRow:   dup.SourceRow,
			Resolution:   "first_wins",
		})
	}

	compare(schema.FieldFullName, kept.FullName, dup.FullName, schema.NormalizeName)
	compare(schema.FieldDepartment, kept.Department, dup.Department, foldField)
	compare(schema.FieldManager, kept.Manager, dup.Manager, schema.NormalizeName)

	return conflicts
}

func foldField(s string) string {
	return strings.TrimSpace(schema.FoldText(s))
}
