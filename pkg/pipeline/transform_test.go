package pipeline

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"shiftbuk/pkg/config"
	"shiftbuk/pkg/schema"
)

var supervisorSheets = []string{"Turnos Formato Supervisor", "Base de Colaboradores", "Codificación de Turnos"}

func supervisorWorkbook(t *testing.T) []byte {
	t.Helper()

	rows := map[string][][]interface{}{
		"Turnos Formato Supervisor": {
			{"Marzo 2025"},
			{"Colaborador", 45717, 45718},
			{"Genesis Olivero", "9:00 - 20:00", "Libre"},
			{"Juan Perez", "20:00-8:00", "Descanso"},
			{"X Y", "9:00 A 20:00 hrs", "L"},
		},
		"Base de Colaboradores": {
			{"Nombre del Colaborador", "RUT", "Departamento"},
			{"GENESIS VICTORIA OLIVERO MELEAN", "11.111.111-1", "Sala"},
			{"JUAN PEREZ LOPEZ", "22.222.222-2", "Caja"},
		},
		"Codificación de Turnos": {
			{"Sigla", "Horario"},
			{"D1", "09:00-20:00"},
			{"N1", "20:00 - 08:00"},
		},
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	for i, name := range supervisorSheets {
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

func TestTransform_Workbook(t *testing.T) {
	cfg := config.DefaultConfig()
	wb, err := ReadWorkbook(bytes.NewReader(supervisorWorkbook(t)), cfg)
	require.NoError(t, err)

	core, logs := observer.New(zapcore.DebugLevel)
	rep, err := Transform(context.Background(), wb, cfg, zap.New(core))
	require.NoError(t, err)

	want := [][]string{
		{"RUT", "Nombre", "01-03-2025", "02-03-2025"},
		{"11.111.111-1", "GENESIS VICTORIA OLIVERO MELEAN", "D1", "L"},
		{"22.222.222-2", "JUAN PEREZ LOPEZ", "N1", "L"},
		{"ERROR: NO MATCH", "X Y", "D1", "L"},
	}
	if diff := cmp.Diff(want, rep.Records()); diff != "" {
		t.Errorf("Records() mismatch (-want +got):\n%s", diff)
	}

	_, err = uuid.Parse(rep.RunID)
	assert.NoError(t, err)
	require.Len(t, rep.Triage.IdentityIssues, 1)
	assert.Equal(t, "X Y", rep.Triage.IdentityIssues[0].Label)
	assert.Empty(t, rep.Triage.ReviewCells)

	assembled := logs.FilterMessage("report assembled").All()
	require.Len(t, assembled, 1)
	assert.Equal(t, rep.RunID, assembled[0].ContextMap()["run_id"])
	assert.Equal(t, int64(3), assembled[0].ContextMap()["rows"])
	assert.Equal(t, 1, logs.FilterMessage("label unresolved").Len())
}

func TestTransform_IncludeAttributes(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Output.IncludeAttributes = true
	wb, err := ReadWorkbook(bytes.NewReader(supervisorWorkbook(t)), cfg)
	require.NoError(t, err)

	rep, err := Transform(context.Background(), wb, cfg, nil)
	require.NoError(t, err)
	records := rep.Records()
	assert.Equal(t, []string{"RUT", "Nombre", "Departamento", "Jefatura", "01-03-2025", "02-03-2025"}, records[0])
	assert.Equal(t, []string{"22.222.222-2", "JUAN PEREZ LOPEZ", "Caja", "", "N1", "L"}, records[2])
}

func TestTransform_StructuralErrorAborts(t *testing.T) {
	cfg := config.DefaultConfig()
	wb := &schema.Workbook{
		Grid:       schema.Table{Name: "grid", Rows: [][]string{{"Mes"}, {"Nombre"}, {"Ana"}}},
		Identities: schema.Table{Name: "ids", Rows: [][]string{{"Nombre", "RUT"}, {"Ana", "1"}}},
		Catalog:    schema.Table{Name: "cat", Rows: [][]string{{"Sigla", "Horario"}}},
	}

	rep, err := Transform(context.Background(), wb, cfg, nil)
	assert.Nil(t, rep)
	assert.True(t, errors.Is(err, schema.ErrStructural))

	wb.Grid.Rows[1] = []string{"Nombre", "01-03-2025"}
	wb.Identities.Rows[0] = []string{"Nombre", "Cargo"}
	_, err = Transform(context.Background(), wb, cfg, nil)
	var se *schema.StructuralError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "ids", se.Table)
}

func TestTransform_Cancelled(t *testing.T) {
	cfg := config.DefaultConfig()
	wb, err := ReadWorkbook(bytes.NewReader(supervisorWorkbook(t)), cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Transform(ctx, wb, cfg, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTransform_InvalidConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Matching.Scorer = "soundex"
	_, err := Transform(context.Background(), &schema.Workbook{}, cfg, nil)
	assert.ErrorContains(t, err, "invalid configuration")
}

func TestReadCSV(t *testing.T) {
	in := CSVInputs{
		Grid:       []byte("Nombre;01-03-2025;02-03-2025\nAna Soto;9:00 - 20:00;Libre\nLuis;raro;\n"),
		Identities: []byte("Nombre,RUT\nANA SOTO,12345678\n,999\n"),
		Catalog:    []byte("Sigla,Horario\nD1,9:00 - 20:00\n"),
	}
	wb, err := ReadCSV(in)
	require.NoError(t, err)

	cfg := config.DefaultConfig()
	cfg.Grid.HeaderRow = 0
	rep, err := Transform(context.Background(), wb, cfg, nil)
	require.NoError(t, err)

	want := [][]string{
		{"RUT", "Nombre", "01-03-2025", "02-03-2025"},
		{"12345678", "ANA SOTO", "D1", "L"},
		{"ERROR: NO MATCH", "Luis", "REVIEW: RARO", "L"},
	}
	if diff := cmp.Diff(want, rep.Records()); diff != "" {
		t.Errorf("Records() mismatch (-want +got):\n%s", diff)
	}
	require.Len(t, rep.Triage.RowWarnings, 1)
	assert.Equal(t, 3, rep.Triage.RowWarnings[0].Row)
}

func TestReadCSV_EmptyFile(t *testing.T) {
	_, err := ReadCSV(CSVInputs{Grid: []byte("Nombre,01-03-2025\nA,x\n")})
	assert.ErrorIs(t, err, schema.ErrStructural)
}
