package parser

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"shiftbuk/pkg/schema"
)

// SheetNames selects the three input sheets by name. A blank name falls back
// to the sheet at that role's position (grid, identities, catalog).
type SheetNames struct {
	Grid       string `yaml:"grid_sheet"`
	Identities string `yaml:"identity_sheet"`
	Catalog    string `yaml:"catalog_sheet"`
}

func (n SheetNames) positional() bool {
	return n.Grid == "" && n.Identities == "" && n.Catalog == ""
}

// ReadWorkbook reads the three logical tables of an XLSX workbook.
// The grid sheet is read with raw cell values so date headers arrive as
// Excel serials rather than locale-formatted text.
func ReadWorkbook(r io.Reader, names SheetNames) (*schema.Workbook, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	list := f.GetSheetList()
	if names.positional() && len(list) != 3 {
		return nil, schema.Structuralf("", "expected exactly 3 sheets, found %d", len(list))
	}

	roles := []string{names.Grid, names.Identities, names.Catalog}
	resolved := make([]string, len(roles))
	for i, want := range roles {
		name, err := pickSheet(list, want, i)
		if err != nil {
			return nil, err
		}
		resolved[i] = name
	}

	gridRows, err := f.GetRows(resolved[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", resolved[0], err)
	}
	identityRows, err := f.GetRows(resolved[1])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", resolved[1], err)
	}
	catalogRows, err := f.GetRows(resolved[2])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", resolved[2], err)
	}

	return &schema.Workbook{
		Grid:       schema.Table{Name: resolved[0], Rows: gridRows},
		Identities: schema.Table{Name: resolved[1], Rows: identityRows},
		Catalog:    schema.Table{Name: resolved[2], Rows: catalogRows},
	}, nil
}

// pickSheet finds a sheet by exact name, then by accent- and case-insensitive
// name, then by position when no name was configured.
func pickSheet(list []string, want string, position int) (string, error) {
	if want == "" {
		if position < len(list) {
			return list[position], nil
		}
		return "", schema.Structuralf("", "no sheet at position %d (workbook has %d)", position+1, len(list))
	}
	for _, name := range list {
		if name == want {
			return name, nil
		}
	}
	folded := strings.TrimSpace(schema.FoldText(want))
	for _, name := range list {
		if strings.TrimSpace(schema.FoldText(name)) == folded {
			return name, nil
		}
	}
	return "", schema.Structuralf(want, "sheet not found (available: %s)", strings.Join(list, ", "))
}
