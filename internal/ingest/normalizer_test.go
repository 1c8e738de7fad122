package ingest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artur-silva-empresa/Texdex/internal/domain"
)

func row(line int, cells map[string]any) Row {
	return Row{Line: line, Cells: cells}
}

func TestNormalizer_Normalize(t *testing.T) {
	table := &Table{
		Header: map[string]string{"B": "Doc.", "F": "Item"},
		Rows: []Row{
			row(2, map[string]any{"B": "ENC 2024/1", "C": " ACME ", "E": 45357.0, "F": 1.0, "P": 100.0, "R": "1.500", "AC": 100.0}),
			row(3, map[string]any{"B": "Doc.", "F": "Item"}),
			row(4, map[string]any{"C": "no document"}),
			row(5, map[string]any{"B": "ENC 2024/1", "F": 2.0, "P": "12abc"}),
			row(6, map[string]any{"B": "ENC 2024/1", "C": "ACME Corp", "F": 1.0, "P": 120.0}),
		},
	}

	result := NewNormalizer(time.UTC).Normalize(table)

	require.Len(t, result.Orders, 2)
	assert.Equal(t, 2, result.Skipped)
	assert.Equal(t, "Doc.", result.Headers["B"])

	first := result.Orders[0]
	assert.Equal(t, "ENC 2024/1-1", first.ID)
	assert.Equal(t, "ACME Corp", first.ClientName, "later duplicate wins")
	assert.Equal(t, 120.0, first.QtyRequested)
	assert.Nil(t, first.RequestedDate)

	second := result.Orders[1]
	assert.Equal(t, "ENC 2024/1-2", second.ID)
	assert.Equal(t, 12.0, second.QtyRequested)

	require.Len(t, result.Warnings, 1)
	assert.Equal(t, ParseWarning{Line: 5, Column: "P", Value: "12abc"}, result.Warnings[0])
}

func TestNormalizer_MapsColumns(t *testing.T) {
	table := &Table{Rows: []Row{row(2, map[string]any{
		"B": "DOC1", "C": "Client", "D": "01/03/2024", "E": "10/03/2024", "F": 1.0,
		"G": "PO-9", "H": "ART", "I": "REF", "J": "C01", "K": "Blue", "L": "M",
		"M": "Towels", "N": "Medium", "O": "0560123", "P": 100.0, "Q": "04/03/2024",
		"R": 90.0, "S": "05/03/2024", "T": 80.0, "U": "06/03/2024", "V": 30.0,
		"W": 40.0, "X": "07/03/2024", "Y": 60.0, "Z": "08/03/2024", "AA": 50.0,
		"AB": 10.0, "AC": 90.0,
	})}}

	result := NewNormalizer(nil).Normalize(table)
	require.Len(t, result.Orders, 1)
	o := result.Orders[0]

	assert.Equal(t, "DOC1-1", o.ID)
	assert.Equal(t, "0560123", o.EAN)
	assert.Equal(t, "Towels", o.Family)
	assert.Equal(t, 90.0, o.RawTerryQty)
	assert.Equal(t, 70.0, o.ConfectionGownsQty+o.ConfectionTerryQty)
	assert.Equal(t, 50.0, o.ShippingStockQty)
	assert.Equal(t, 90.0, o.QtyOpen)
	assert.Equal(t, time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), *o.RequestedDate)
	assert.Equal(t, *o.RequestedDate, *o.EntryDate)
	assert.Equal(t, time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC), *o.WarehouseDispatchDate)
	assert.Empty(t, o.ClientCode)
	assert.Nil(t, o.SpecialDate)

	assert.Equal(t, domain.PriorityNone, o.Priority)
	assert.False(t, o.IsManual)
	assert.Empty(t, o.SectorObservations)
	assert.Empty(t, result.Warnings)
}

func TestNormalizer_NumericDocNr(t *testing.T) {
	table := &Table{Rows: []Row{row(2, map[string]any{"B": 12345.0, "F": 3.0})}}

	result := NewNormalizer(nil).Normalize(table)
	require.Len(t, result.Orders, 1)
	assert.Equal(t, "12345-3", result.Orders[0].ID)
}
