package application

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artur-silva-empresa/Texdex/internal/domain"
	"github.com/artur-silva-empresa/Texdex/pkg/logging"
)

var refNow = time.Date(2024, 3, 6, 15, 30, 0, 0, time.UTC)

func importedOrder(docNr string, itemNr float64, mutate func(o *domain.Order)) *domain.Order {
	o := domain.NewOrder(docNr, itemNr)
	o.QtyRequested = 50
	o.QtyOpen = 50
	if mutate != nil {
		mutate(o)
	}
	return o
}

func manyOrders(n int) []*domain.Order {
	orders := make([]*domain.Order, n)
	for i := range orders {
		orders[i] = importedOrder(fmt.Sprintf("DOC%04d", i), 1, nil)
	}
	return orders
}

func newTestMergeEngine(ledger domain.Ledger) *MergeEngine {
	return NewMergeEngine(ledger, logging.NewNop(), nil)
}

func TestMergeEngine_Scenario(t *testing.T) {
	existing := importedOrder("DOC1", 1, func(o *domain.Order) {
		o.Priority = domain.PriorityHigh
		o.ShippingStockQty = 0
	})
	ledger := newMemoryLedger(existing)
	engine := newTestMergeEngine(ledger)

	batch := []*domain.Order{
		importedOrder("DOC1", 1, func(o *domain.Order) { o.ShippingStockQty = 50 }),
		importedOrder("DOC1", 2, nil),
	}

	result, err := engine.Merge(context.Background(), batch)
	require.NoError(t, err)
	assert.Equal(t, &MergeResult{Added: 1, Updated: 1, Batches: 1}, result)

	first := ledger.get("DOC1-1")
	require.NotNil(t, first)
	assert.Equal(t, 50.0, first.ShippingStockQty)
	assert.Equal(t, domain.PriorityHigh, first.Priority)
	assert.Equal(t, domain.OrderStateCompleted, domain.ClassifyOrder(first, refNow))

	second := ledger.get("DOC1-2")
	require.NotNil(t, second)
	assert.Equal(t, domain.PriorityNone, second.Priority)
}

func TestMergeEngine_Idempotent(t *testing.T) {
	ledger := newMemoryLedger()
	engine := newTestMergeEngine(ledger)
	batch := []*domain.Order{importedOrder("DOC1", 1, nil), importedOrder("DOC1", 2, nil)}

	first, err := engine.Merge(context.Background(), batch)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Added)
	before, _ := ledger.FindAll(context.Background())

	second, err := engine.Merge(context.Background(), batch)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Added)
	assert.Equal(t, 2, second.Updated)

	after, _ := ledger.FindAll(context.Background())
	assert.Equal(t, before, after)
}

func TestMergeEngine_PreservesUserFields(t *testing.T) {
	predicted := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	existing := importedOrder("DOC1", 1, func(o *domain.Order) {
		o.Priority = domain.PriorityLow
		o.IsManual = true
		o.SectorObservations[domain.SectorDyeing] = "shade check"
		o.SectorStopReasons[domain.SectorPlanning] = "Planning > Awaiting customer"
		o.SectorPredictedDates[domain.SectorShipping] = &predicted
		o.ClientName = "old name"
	})
	ledger := newMemoryLedger(existing)

	_, err := newTestMergeEngine(ledger).Merge(context.Background(), []*domain.Order{
		importedOrder("DOC1", 1, func(o *domain.Order) { o.ClientName = "new name" }),
	})
	require.NoError(t, err)

	got := ledger.get("DOC1-1")
	assert.Equal(t, "new name", got.ClientName)
	assert.Equal(t, domain.PriorityLow, got.Priority)
	assert.True(t, got.IsManual)
	assert.Equal(t, "shade check", got.SectorObservations[domain.SectorDyeing])
	assert.Equal(t, "Planning > Awaiting customer", got.SectorStopReasons[domain.SectorPlanning])
	assert.True(t, predicted.Equal(*got.SectorPredictedDates[domain.SectorShipping]))
}

func TestMergeEngine_LeavesMissingRowsUntouched(t *testing.T) {
	gone := importedOrder("OLD", 1, func(o *domain.Order) { o.Priority = domain.PriorityHigh })
	ledger := newMemoryLedger(gone)

	_, err := newTestMergeEngine(ledger).Merge(context.Background(), []*domain.Order{importedOrder("NEW", 1, nil)})
	require.NoError(t, err)

	assert.Equal(t, gone, ledger.get("OLD-1"))
	count, _ := ledger.Count(context.Background())
	assert.Equal(t, int64(2), count)
}

func TestMergeEngine_Plan(t *testing.T) {
	engine := newTestMergeEngine(newMemoryLedger())
	current := []*domain.Order{importedOrder("A", 1, func(o *domain.Order) { o.Priority = domain.PriorityMedium })}
	incoming := []*domain.Order{importedOrder("A", 1, nil), importedOrder("B", 1, nil)}

	plan := engine.Plan(incoming, current)

	assert.Equal(t, 1, plan.Added)
	assert.Equal(t, 1, plan.Updated)
	require.Len(t, plan.Payloads, 2)
	assert.Equal(t, domain.PriorityMedium, plan.Payloads[0].Priority)
	assert.NotSame(t, incoming[1], plan.Payloads[1], "payloads never alias the input")
}

func TestMergeEngine_ChunksBelowLedgerCeiling(t *testing.T) {
	ledger := newMemoryLedger()

	result, err := newTestMergeEngine(ledger).Merge(context.Background(), manyOrders(1001))
	require.NoError(t, err)

	assert.Equal(t, 3, result.Batches)
	assert.Equal(t, []int{400, 400, 201}, ledger.batches)
	for _, size := range ledger.batches {
		assert.LessOrEqual(t, size, domain.MaxBatchOperations)
	}
}

func TestMergeEngine_PartialFailure(t *testing.T) {
	ledger := newMemoryLedger()
	ledger.failBatch = 2

	result, err := newTestMergeEngine(ledger).Merge(context.Background(), manyOrders(900))
	require.Error(t, err)
	assert.Nil(t, result)

	var partial *PartialMergeError
	require.True(t, errors.As(err, &partial))
	assert.Equal(t, 1, partial.AppliedBatches)
	assert.Equal(t, 3, partial.TotalBatches)
	assert.ErrorIs(t, err, errLedgerDown)

	count, _ := ledger.Count(context.Background())
	assert.Equal(t, int64(400), count, "the first batch stays committed")
}

func TestMergeEngine_NothingApplied(t *testing.T) {
	ledger := newMemoryLedger()
	ledger.failBatch = 1

	_, err := newTestMergeEngine(ledger).Merge(context.Background(), manyOrders(10))

	var partial *PartialMergeError
	require.True(t, errors.As(err, &partial))
	assert.Equal(t, 0, partial.AppliedBatches)
	assert.Equal(t, 1, partial.TotalBatches)
}

// An edit committed after the merge read its snapshot is overwritten by the
// user fields the merge carried over from that snapshot.
func TestMergeEngine_ConcurrentEditIsLost(t *testing.T) {
	ledger := newMemoryLedger(importedOrder("DOC1", 1, nil))
	ledger.beforeBatch = func(call int) {
		edited := ledger.get("DOC1-1")
		edited.Priority = domain.PriorityHigh
		_ = ledger.Upsert(context.Background(), edited)
	}

	_, err := newTestMergeEngine(ledger).Merge(context.Background(), []*domain.Order{importedOrder("DOC1", 1, nil)})
	require.NoError(t, err)

	assert.Equal(t, domain.PriorityNone, ledger.get("DOC1-1").Priority)
}
