package parser

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"shiftbuk/pkg/schema"
)

// buildWorkbook writes sheets in order; the first sheet replaces Sheet1.
func buildWorkbook(t *testing.T, sheets []string, rows map[string][][]interface{}) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	for i, name := range sheets {
		if i == 0 {
			require.NoError(t, f.SetSheetName("Sheet1", name))
		} else {
			_, err := f.NewSheet(name)
			require.NoError(t, err)
		}
		for r, row := range rows[name] {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			require.NoError(t, err)
			row := row
			require.NoError(t, f.SetSheetRow(name, cell, &row))
		}
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestReadWorkbook_ByName(t *testing.T) {
	data := buildWorkbook(t,
		[]string{"Turnos Formato Supervisor", "Base de Colaboradores", "Codificación de Turnos"},
		map[string][][]interface{}{
			"Turnos Formato Supervisor": {
				{"Marzo"},
				{"Nombre", 45717, 45718},
				{"Ana Soto", "9:00 - 20:00", "Libre"},
			},
			"Base de Colaboradores": {
				{"Nombre del Colaborador", "RUT"},
				{"ANA SOTO", "12345678"},
			},
			"Codificación de Turnos": {
				{"Sigla", "Horario"},
				{"D1", "9:00 - 20:00"},
			},
		})

	wb, err := ReadWorkbook(bytes.NewReader(data), SheetNames{
		Grid:       "Turnos Formato Supervisor",
		Identities: "Base de Colaboradores",
		Catalog:    "codificacion de turnos",
	})
	require.NoError(t, err)

	assert.Equal(t, "Codificación de Turnos", wb.Catalog.Name)
	require.Len(t, wb.Grid.Rows, 3)
	assert.Equal(t, []string{"Nombre", "45717", "45718"}, wb.Grid.Rows[1])
	assert.Equal(t, []string{"ANA SOTO", "12345678"}, wb.Identities.Rows[1])

	reshaped, err := Reshape(wb.Grid, ReshapeOptions{HeaderRow: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"01-03-2025", "02-03-2025"}, reshaped.DateLabels())
}

func TestReadWorkbook_Positional(t *testing.T) {
	data := buildWorkbook(t, []string{"a", "b", "c"}, map[string][][]interface{}{
		"a": {{"Nombre", "x"}},
		"b": {{"Nombre", "RUT"}},
		"c": {{"Sigla", "Horario"}},
	})

	wb, err := ReadWorkbook(bytes.NewReader(data), SheetNames{})
	require.NoError(t, err)
	assert.Equal(t, "a", wb.Grid.Name)
	assert.Equal(t, "b", wb.Identities.Name)
	assert.Equal(t, "c", wb.Catalog.Name)
}

func TestReadWorkbook_StructuralErrors(t *testing.T) {
	data := buildWorkbook(t, []string{"a", "b"}, map[string][][]interface{}{})

	_, err := ReadWorkbook(bytes.NewReader(data), SheetNames{})
	assert.ErrorIs(t, err, schema.ErrStructural)

	_, err = ReadWorkbook(bytes.NewReader(data), SheetNames{Grid: "a", Identities: "b", Catalog: "missing"})
	assert.ErrorIs(t, err, schema.ErrStructural)
}

func TestReadWorkbook_NotAWorkbook(t *testing.T) {
	_, err := ReadWorkbook(bytes.NewReader([]byte("not a zip")), SheetNames{})
	require.Error(t, err)
	assert.NotErrorIs(t, err, schema.ErrStructural)
}
