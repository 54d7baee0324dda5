package engine

import (
	"shiftbuk/pkg/schema"
)

// IdentityIndex holds the deduplicated identity catalog used for matching.
type IdentityIndex struct {
	Records []*schema.IdentityRecord            `json:"records"`
	ByID    map[string]*schema.IdentityRecord   `json:"byId"`
	ByName  map[string][]*schema.IdentityRecord `json:"byName"`
	Stats   IndexStats                          `json:"stats"`

	// Conflicts lists duplicate identifiers whose rows disagree.
	Conflicts []FieldConflict `json:"conflicts"`

	// SharedNames lists normalized names carried by more than one identifier.
	SharedNames []string `json:"sharedNames"`
}

// IndexStats contains aggregate statistics about the identity index.
type IndexStats struct {
	SourceRows     int `json:"sourceRows"`
	UniqueIDs      int `json:"uniqueIds"`
	DuplicateRows  int `json:"duplicateRows"`
	WithDepartment int `json:"withDepartment"`
	WithManager    int `json:"withManager"`
}

// BuildIdentityIndex deduplicates records by external identifier (first
// occurrence wins) and indexes them by identifier and normalized name.
// Record order follows the source so matching is deterministic.
func BuildIdentityIndex(records []schema.IdentityRecord) *IdentityIndex {
	index := &IdentityIndex{
		Records: make([]*schema.IdentityRecord, 0, len(records)),
		ByID:    make(map[string]*schema.IdentityRecord, len(records)),
		ByName:  make(map[string][]*schema.IdentityRecord, len(records)),
	}

	owned := append([]schema.IdentityRecord(nil), records...)
	duplicates := 0
	for i := range owned {
		rec := &owned[i]
		if rec.NormalizedName == "" {
			rec.NormalizedName = schema.NormalizeName(rec.FullName)
		}

		if kept, exists := index.ByID[rec.ExternalID]; exists {
			duplicates++
			index.Conflicts = append(index.Conflicts, DetectConflicts(kept, rec)...)
			continue
		}

		index.ByID[rec.ExternalID] = rec
		index.Records = append(index.Records, rec)
		if rec.NormalizedName != "" {
			index.ByName[rec.NormalizedName] = append(index.ByName[rec.NormalizedName], rec)
		}
	}

	withDept, withMgr := 0, 0
	for _, rec := range index.Records {
		if rec.Department != "" {
			withDept++
		}
		if rec.Manager != "" {
			withMgr++
		}
		if group := index.ByName[rec.NormalizedName]; len(group) > 1 && group[0] == rec {
			index.SharedNames = append(index.SharedNames, rec.NormalizedName)
		}
	}

	index.Stats = IndexStats{
		SourceRows:     len(records),
		UniqueIDs:      len(index.Records),
		DuplicateRows:  duplicates,
		WithDepartment: withDept,
		WithManager:    withMgr,
	}

	return index
}
