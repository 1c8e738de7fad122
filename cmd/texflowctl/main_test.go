package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/artur-silva-empresa/Texdex/internal/domain"
	"github.com/artur-silva-empresa/Texdex/internal/infrastructure/export"
)

// 45355 is 2024-03-04 and 45367 is 2024-03-16 as spreadsheet serials
func writeWorkbook(t *testing.T) string {
	t.Helper()

	cells := map[string]any{
		"B1": "Nr. Documento", "C1": "Cliente", "E1": "Data Pedida", "F1": "Item", "P1": "Qtd. Pedida", "AC1": "Qtd. Aberto",
		"B2": "ENC-2024-1", "C2": "ACME", "E2": 45355, "F2": 1, "P2": 100, "AC2": 100,
		"B3": "ENC-2024-1", "C3": "ACME", "E3": 45367, "F3": 2, "P3": 50, "T3": 10, "AC3": 50,
		"B4": "AMO-7", "C4": "Beta", "E4": 45367, "F4": 1, "P4": 20, "AB4": 20, "AC4": "n/a",
	}

	f := excelize.NewFile()
	defer f.Close()
	for axis, v := range cells {
		require.NoError(t, f.SetCellValue("Sheet1", axis, v))
	}

	path := filepath.Join(t.TempDir(), "erp.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--timezone", "UTC", "--at", "2024-03-06"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestInspect(t *testing.T) {
	path := writeWorkbook(t)

	out, err := run(t, "inspect", path)
	require.NoError(t, err)

	assert.Contains(t, out, "erp.xlsx")
	assert.Regexp(t, `Orders:\s+3`, out)
	assert.Regexp(t, `Parse warnings:\s+1`, out)
	assert.Regexp(t, `late\s+1`, out)
	assert.Regexp(t, `in_production\s+1`, out)
	assert.Regexp(t, `completed\s+1`, out)
	assert.Regexp(t, `Dyeing\s+2\s+1\s+0`, out)
	assert.Contains(t, out, `column AC: "n/a"`)
}

func TestKPIs(t *testing.T) {
	path := writeWorkbook(t)

	out, err := run(t, "kpis", "--json", path)
	require.NoError(t, err)

	var kpis domain.DashboardKPIs
	require.NoError(t, json.Unmarshal([]byte(out), &kpis))
	assert.Equal(t, 1, kpis.TotalActiveDocs)
	assert.Equal(t, 1, kpis.TotalLate)
	assert.Equal(t, 2, kpis.TotalInProduction, "lines with open quantity")
	assert.Equal(t, 1, kpis.DeliveriesThisWeek)
	assert.Equal(t, float64(20), kpis.BilledVsOpen.Billed)
	assert.Equal(t, float64(150), kpis.BilledVsOpen.Open)

	t.Run("table output", func(t *testing.T) {
		out, err := run(t, "kpis", path)
		require.NoError(t, err)
		assert.Regexp(t, `Week:\s+2024-03-04 to 2024-03-10`, out)
		assert.Regexp(t, `Late orders:\s+1`, out)
	})
}

func TestExport(t *testing.T) {
	path := writeWorkbook(t)
	dir := t.TempDir()

	t.Run("sqlite backup round trips", func(t *testing.T) {
		backup := filepath.Join(dir, "backup.sqlite")
		out, err := run(t, "export", path, "--out", backup)
		require.NoError(t, err)
		assert.Contains(t, out, "Wrote 3 orders")

		orders, headers, err := export.ReadSQLite(backup)
		require.NoError(t, err)
		assert.Len(t, orders, 3)
		assert.Equal(t, "Cliente", headers["C"])

		again, err := run(t, "inspect", backup)
		require.NoError(t, err)
		assert.Regexp(t, `Orders:\s+3`, again)
	})

	t.Run("excel report", func(t *testing.T) {
		report := filepath.Join(dir, "report.xlsx")
		_, err := run(t, "export", path, "-o", report, "--format", "xlsx")
		require.NoError(t, err)

		f, err := excelize.OpenFile(report)
		require.NoError(t, err)
		defer f.Close()
		rows, err := f.GetRows(f.GetSheetName(0))
		require.NoError(t, err)
		assert.Len(t, rows, 4)
	})

	t.Run("unknown format", func(t *testing.T) {
		_, err := run(t, "export", path, "--out", filepath.Join(dir, "report.csv"))
		assert.ErrorContains(t, err, "unsupported --format")
	})

	t.Run("out is required", func(t *testing.T) {
		_, err := run(t, "export", path)
		assert.Error(t, err)
	})
}

func TestReadSourceRejects(t *testing.T) {
	dir := t.TempDir()

	txt := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(txt, []byte("x"), 0o600))
	_, err := run(t, "inspect", txt)
	assert.ErrorContains(t, err, "unsupported file type")

	legacy := filepath.Join(dir, "erp.xls")
	require.NoError(t, os.WriteFile(legacy, []byte{0xD0, 0xCF, 0x11, 0xE0}, 0o600))
	_, err = run(t, "inspect", legacy)
	assert.ErrorContains(t, err, "save the file as .xlsx")

	broken := filepath.Join(dir, "broken.xlsx")
	require.NoError(t, os.WriteFile(broken, []byte("not a workbook"), 0o600))
	_, err = run(t, "kpis", broken)
	assert.Error(t, err)
}

func TestGlobalFlags(t *testing.T) {
	_, err := run(t, "--timezone", "Mars/Olympus", "kpis", writeWorkbook(t))
	assert.ErrorContains(t, err, "invalid --timezone")

	_, err = run(t, "--at", "yesterday", "kpis", writeWorkbook(t))
	assert.ErrorContains(t, err, "invalid --at")
}
