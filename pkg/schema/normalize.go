package schema

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// RowWarning is a non-fatal issue found while loading a table.
type RowWarning struct {
	Table   string `json:"table"`
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// CatalogOrder selects how the shift-code catalog columns are located.
type CatalogOrder string

const (
	CatalogByHeader        CatalogOrder = "by_header"
	CatalogCodeFirst       CatalogOrder = "code_first"
	CatalogDescriptorFirst CatalogOrder = "descriptor_first"
)

// ParseCatalogOrder validates a configured catalog order.
func ParseCatalogOrder(s string) (CatalogOrder, error) {
	switch o := CatalogOrder(strings.ToLower(strings.TrimSpace(s))); o {
	case "":
		return CatalogByHeader, nil
	case CatalogByHeader, CatalogCodeFirst, CatalogDescriptorFirst:
		return o, nil
	default:
		return "", fmt.Errorf("unknown catalog order %q", s)
	}
}

// NormalizeName case-folds a person name, strips diacritics, turns dots and
// commas into spaces and collapses whitespace.
func NormalizeName(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	if s == "" {
		return s
	}
	s = stripDiacritics(s)
	s = strings.NewReplacer(".", " ", ",", " ").Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

// FoldText upper-cases text and strips diacritics without touching spacing.
func FoldText(s string) string {
	return stripDiacritics(strings.ToUpper(s))
}

// stripDiacritics removes combining marks after NFD decomposition, so that
// "Muñoz" becomes "Munoz".
func stripDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// LoadIdentities converts the identity catalog into IdentityRecords using
// named-column access. Full name and external identifier columns are required.
// Unmapped columns are carried as passthrough attributes.
func LoadIdentities(t Table, headerRow int, mapping *ColumnMapping) ([]IdentityRecord, []RowWarning, error) {
	headers, err := headerCells(t, headerRow)
	if err != nil {
		return nil, nil, err
	}

	columns, err := resolveColumns(t.Name, headers, mapping, IdentityHeaders)
	if err != nil {
		return nil, nil, err
	}
	for _, field := range []string{FieldFullName, FieldExternalID} {
		if _, ok := columns[field]; !ok {
			return nil, nil, Structuralf(t.Name, "missing required column %q", field)
		}
	}

	mapped := make(map[int]bool, len(columns))
	for _, idx := range columns {
		mapped[idx] = true
	}

	var records []IdentityRecord
	var warnings []RowWarning
	for i := headerRow + 1; i < len(t.Rows); i++ {
		row := t.Rows[i]
		sheetRow := i + 1

		name := cellValue(row, columns[FieldFullName])
		id := cellValue(row, columns[FieldExternalID])
		if name == "" && id == "" {
			continue
		}
		if id == "" {
			warnings = append(warnings, RowWarning{Table: t.Name, Row: sheetRow, Message: fmt.Sprintf("identity %q has no identifier; skipped", name)})
			continue
		}
		if name == "" {
			warnings = append(warnings, RowWarning{Table: t.Name, Row: sheetRow, Message: fmt.Sprintf("identifier %q has no name; skipped", id)})
			continue
		}

		rec := IdentityRecord{
			ExternalID:     id,
			FullName:       name,
			NormalizedName: NormalizeName(name),
			SourceRow:      sheetRow,
		}
		if idx, ok := columns[FieldDepartment]; ok {
			rec.Department = cellValue(row, idx)
		}
		if idx, ok := columns[FieldManager]; ok {
			rec.Manager = cellValue(row, idx)
		}
		for idx, h := range headers {
			if mapped[idx] || h == "" {
				continue
			}
			if v := cellValue(row, idx); v != "" {
				if rec.Attributes == nil {
					rec.Attributes = make(map[string]string)
				}
				rec.Attributes[h] = v
			}
		}
		records = append(records, rec)
	}

	if len(records) == 0 {
		return nil, warnings, Structuralf(t.Name, "no identity rows")
	}
	return records, warnings, nil
}

// LoadCatalog reads (code, descriptor) pairs from the shift-code catalog.
func LoadCatalog(t Table, headerRow int, order CatalogOrder) ([]ShiftCatalogEntry, error) {
	headers, err := headerCells(t, headerRow)
	if err != nil {
		return nil, err
	}

	var codeIdx, descIdx int
	switch order {
	case CatalogCodeFirst:
		codeIdx, descIdx = 0, 1
	case CatalogDescriptorFirst:
		codeIdx, descIdx = 1, 0
	case CatalogByHeader, "":
		columns, err := resolveColumns(t.Name, headers, nil, CatalogHeaders)
		if err != nil {
			return nil, err
		}
		var ok bool
		if codeIdx, ok = columns[FieldCode]; !ok {
			return nil, Structuralf(t.Name, "missing required column %q", FieldCode)
		}
		if descIdx, ok = columns[FieldDescriptor]; !ok {
			return nil, Structuralf(t.Name, "missing required column %q", FieldDescriptor)
		}
	default:
		return nil, fmt.Errorf("unknown catalog order %q", order)
	}
	if len(headers) < 2 {
		return nil, Structuralf(t.Name, "expected at least 2 columns, found %d", len(headers))
	}

	var entries []ShiftCatalogEntry
	for i := headerRow + 1; i < len(t.Rows); i++ {
		row := t.Rows[i]
		code := cellValue(row, codeIdx)
		desc := cellValue(row, descIdx)
		if code == "" && desc == "" {
			continue
		}
		entries = append(entries, ShiftCatalogEntry{Code: code, Descriptor: desc, SourceRow: i + 1})
	}
	return entries, nil
}

// resolveColumns maps canonical fields to column indexes, either from an
// explicit mapping (every mapped column must exist) or by header inference.
func resolveColumns(table string, headers []string, mapping *ColumnMapping, set HeaderSet) (map[string]int, error) {
	index := make(map[string]int, len(headers))
	for i, h := range headers {
		key := normalizeHeader(h)
		if _, exists := index[key]; !exists && key != "" {
			index[key] = i
		}
	}

	columns := make(map[string]int)
	if mapping != nil && len(mapping.Direct) > 0 {
		for sourceCol, target := range mapping.Direct {
			idx, ok := index[normalizeHeader(sourceCol)]
			if !ok {
				return nil, Structuralf(table, "mapped column %q not found", sourceCol)
			}
			columns[target] = idx
		}
		return columns, nil
	}

	inferred := InferMappings(headers, set)
	for i, h := range headers {
		if target, ok := inferred[h]; ok {
			if _, exists := columns[target]; !exists {
				columns[target] = i
			}
		}
	}
	return columns, nil
}

func headerCells(t Table, headerRow int) ([]string, error) {
	if headerRow < 0 || headerRow >= len(t.Rows) {
		return nil, Structuralf(t.Name, "header row %d out of range (table has %d rows)", headerRow, len(t.Rows))
	}
	raw := t.Rows[headerRow]
	headers := make([]string, len(raw))
	for i, h := range raw {
		headers[i] = strings.TrimSpace(h)
	}
	return headers, nil
}

func cellValue(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
