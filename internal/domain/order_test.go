package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderID(t *testing.T) {
	assert.Equal(t, "DOC1-1", OrderID("DOC1", 1))
	assert.Equal(t, "ENC 2024/7-12", OrderID("ENC 2024/7", 12))
	assert.Equal(t, "DOC1-1.5", OrderID("DOC1", 1.5))
}

func TestValidateOrderID(t *testing.T) {
	assert.NoError(t, ValidateOrderID("DOC1-1"))
	assert.NoError(t, ValidateOrderID("ENC-2024-3"))
	assert.ErrorIs(t, ValidateOrderID("DOC1"), ErrInvalidOrderID)
	assert.ErrorIs(t, ValidateOrderID("-1"), ErrInvalidOrderID)
	assert.ErrorIs(t, ValidateOrderID("DOC1-x"), ErrInvalidOrderID)
}

func TestWithUserFieldsFrom(t *testing.T) {
	predicted := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	existing := NewOrder("DOC1", 1)
	existing.Priority = PriorityMedium
	existing.IsManual = true
	existing.ShippingStockQty = 1
	require.NoError(t, existing.SetObservation(SectorDyeing, "note"))
	require.NoError(t, existing.SetStopReason(SectorPlanning, "Materials > Yarn shortage"))
	require.NoError(t, existing.SetPredictedDate(SectorPackaging, &predicted))

	incoming := NewOrder("DOC1", 1)
	incoming.ShippingStockQty = 80
	incoming.ClientName = "ACME"

	merged := incoming.WithUserFieldsFrom(existing)

	assert.Equal(t, 80.0, merged.ShippingStockQty)
	assert.Equal(t, "ACME", merged.ClientName)
	assert.Equal(t, PriorityMedium, merged.Priority)
	assert.True(t, merged.IsManual)
	assert.Equal(t, "note", merged.SectorObservations[SectorDyeing])
	assert.Equal(t, "Materials > Yarn shortage", merged.SectorStopReasons[SectorPlanning])
	assert.True(t, predicted.Equal(*merged.SectorPredictedDates[SectorPackaging]))

	// the merged payload shares no maps with its inputs
	merged.SectorObservations[SectorDyeing] = "changed"
	assert.Equal(t, "note", existing.SectorObservations[SectorDyeing])
}

func TestSetters(t *testing.T) {
	o := NewOrder("DOC1", 1)

	assert.ErrorIs(t, o.SetPriority(4), ErrInvalidPriority)
	assert.NoError(t, o.SetPriority(PriorityHigh))
	assert.Equal(t, "High", o.Priority.Label())

	assert.ErrorIs(t, o.SetObservation("painting", "x"), ErrUnknownSector)
	require.NoError(t, o.SetObservation(SectorWeaving, "loom 4 down"))
	assert.True(t, o.HasObservations())
	require.NoError(t, o.SetObservation(SectorWeaving, "   "))
	assert.False(t, o.HasObservations())

	require.NoError(t, o.SetPredictedDate(SectorShipping, nil))
	assert.Empty(t, o.SectorPredictedDates)
}

func TestEnsureMaps_AfterDecode(t *testing.T) {
	o := &Order{ID: "X-1"}
	o.EnsureMaps()
	assert.NotNil(t, o.SectorObservations)
	assert.NotNil(t, o.SectorStopReasons)
	assert.NotNil(t, o.SectorPredictedDates)
}

func TestDeliveryDateAndSeries(t *testing.T) {
	dispatch := time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC)
	o := NewOrder("ENC-2024-118", 1)
	o.WarehouseDispatchDate = &dispatch

	assert.Equal(t, &dispatch, o.DeliveryDate())
	assert.Equal(t, "ENC-2024", o.DocSeries())
	assert.Empty(t, NewOrder("ENC 2024/118", 1).DocSeries())
}

func TestParseSectorID(t *testing.T) {
	id, err := ParseSectorID("dyeing")
	require.NoError(t, err)
	assert.Equal(t, SectorDyeing, id)

	_, err = ParseSectorID("planning")
	assert.ErrorIs(t, err, ErrUnknownSector)

	id, err = ParseAnnotationKey("planning")
	require.NoError(t, err)
	assert.Equal(t, SectorPlanning, id)
}
