package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artur-silva-empresa/Texdex/internal/domain"
	"github.com/artur-silva-empresa/Texdex/pkg/logging"
	pkgtesting "github.com/artur-silva-empresa/Texdex/pkg/testing"
)

func newTestOrderService(ledger *memoryLedger) (*OrderService, *recordingPublisher, *memoryConfigs) {
	publisher := &recordingPublisher{}
	configs := newMemoryConfigs()
	svc := NewOrderService(ledger, configs, publisher, &recordingNotifier{}, logging.NewNop(), nil).
		WithClock(pkgtesting.FixedClock(refNow))
	return svc, publisher, configs
}

func TestOrderService_UpdateOrder(t *testing.T) {
	ledger := newMemoryLedger(importedOrder("DOC1", 1, func(o *domain.Order) {
		o.SectorObservations[domain.SectorWeaving] = "old note"
	}))
	svc, publisher, _ := newTestOrderService(ledger)
	predicted := time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC)

	dto, err := svc.UpdateOrder(context.Background(), UpdateOrderCommand{
		OrderID:        "DOC1-1",
		User:           "plan",
		Priority:       domain.PriorityMedium,
		IsManual:       true,
		Observations:   map[domain.SectorID]string{domain.SectorDyeing: "waiting on dye lot"},
		StopReasons:    map[domain.SectorID]string{domain.SectorPlanning: "Materials > Yarn shortage"},
		PredictedDates: map[domain.SectorID]*time.Time{domain.SectorShipping: &predicted},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStateOpen, dto.State)

	got := ledger.get("DOC1-1")
	assert.Equal(t, domain.PriorityMedium, got.Priority)
	assert.True(t, got.IsManual)
	assert.Equal(t, map[domain.SectorID]string{domain.SectorDyeing: "waiting on dye lot"}, got.SectorObservations)
	assert.Equal(t, "Materials > Yarn shortage", got.SectorStopReasons[domain.SectorPlanning])
	assert.Equal(t, []string{"texflow.order.annotated"}, publisher.types())
}

func TestOrderService_UpdateOrder_Errors(t *testing.T) {
	svc, _, _ := newTestOrderService(newMemoryLedger(importedOrder("DOC1", 1, nil)))

	_, err := svc.UpdateOrder(context.Background(), UpdateOrderCommand{OrderID: "DOC1-9"})
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)

	_, err = svc.UpdateOrder(context.Background(), UpdateOrderCommand{OrderID: "nodash"})
	assert.ErrorIs(t, err, domain.ErrInvalidOrderID)

	_, err = svc.UpdateOrder(context.Background(), UpdateOrderCommand{OrderID: "DOC1-1", Priority: 7})
	assert.ErrorIs(t, err, domain.ErrInvalidPriority)

	_, err = svc.UpdateOrder(context.Background(), UpdateOrderCommand{
		OrderID:      "DOC1-1",
		Observations: map[domain.SectorID]string{"painting": "x"},
	})
	assert.ErrorIs(t, err, domain.ErrUnknownSector)
}

func TestOrderService_SetObservation(t *testing.T) {
	ledger := newMemoryLedger(importedOrder("DOC1", 1, nil))
	svc, _, _ := newTestOrderService(ledger)

	_, err := svc.SetObservation(context.Background(), SetObservationCommand{
		OrderID: "DOC1-1", Sector: domain.SectorConfection, Text: "short of labels", User: "confeccao",
	})
	require.NoError(t, err)
	assert.Equal(t, "short of labels", ledger.get("DOC1-1").SectorObservations[domain.SectorConfection])

	_, err = svc.SetObservation(context.Background(), SetObservationCommand{
		OrderID: "DOC1-1", Sector: domain.SectorConfection, Text: "", User: "confeccao",
	})
	require.NoError(t, err)
	assert.Empty(t, ledger.get("DOC1-1").SectorObservations)
}

func TestOrderService_DocumentEdits(t *testing.T) {
	ledger := newMemoryLedger(
		importedOrder("DOC1", 1, nil),
		importedOrder("DOC1", 2, nil),
		importedOrder("DOC2", 1, nil),
	)
	svc, publisher, _ := newTestOrderService(ledger)
	ctx := context.Background()

	res, err := svc.SetDocumentPriority(ctx, SetDocumentPriorityCommand{DocNr: "DOC1", Priority: domain.PriorityHigh, User: "plan"})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Lines)

	_, err = svc.SetDocumentManual(ctx, SetDocumentManualCommand{DocNr: "DOC1", IsManual: true, User: "plan"})
	require.NoError(t, err)

	_, err = svc.SetDocumentStopReason(ctx, SetDocumentStopReasonCommand{
		DocNr: "DOC1", Sector: domain.SectorWeaving, Label: "Equipment > Breakdown", User: "plan",
	})
	require.NoError(t, err)

	for _, id := range []string{"DOC1-1", "DOC1-2"} {
		o := ledger.get(id)
		assert.Equal(t, domain.PriorityHigh, o.Priority)
		assert.True(t, o.IsManual)
		assert.Equal(t, "Equipment > Breakdown", o.SectorStopReasons[domain.SectorWeaving])
	}
	assert.Equal(t, domain.PriorityNone, ledger.get("DOC2-1").Priority)
	assert.Len(t, publisher.types(), 3)

	_, err = svc.SetDocumentPriority(ctx, SetDocumentPriorityCommand{DocNr: "NOPE", Priority: domain.PriorityHigh})
	assert.ErrorIs(t, err, domain.ErrDocumentNotFound)

	_, err = svc.SetDocumentStopReason(ctx, SetDocumentStopReasonCommand{DocNr: "DOC1", Sector: "all"})
	assert.ErrorIs(t, err, domain.ErrUnknownSector)
}

func TestOrderService_Deletes(t *testing.T) {
	ledger := newMemoryLedger(
		importedOrder("DOC1", 1, nil),
		importedOrder("DOC1", 2, nil),
		importedOrder("DOC2", 1, nil),
		importedOrder("DOC3", 1, nil),
	)
	svc, publisher, _ := newTestOrderService(ledger)
	ctx := context.Background()

	require.NoError(t, svc.DeleteOrder(ctx, DeleteOrderCommand{OrderID: "DOC2-1", User: "plan"}))
	assert.ErrorIs(t, svc.DeleteOrder(ctx, DeleteOrderCommand{OrderID: "DOC2-1"}), domain.ErrOrderNotFound)

	res, err := svc.DeleteDocument(ctx, DeleteDocumentCommand{DocNr: "DOC1", User: "plan"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Deleted)

	_, err = svc.DeleteDocument(ctx, DeleteDocumentCommand{DocNr: "DOC1"})
	assert.ErrorIs(t, err, domain.ErrDocumentNotFound)

	res, err = svc.ClearLedger(ctx, ClearLedgerCommand{User: "plan"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Deleted)

	count, _ := ledger.Count(ctx)
	assert.Zero(t, count)
	assert.Equal(t, []string{"texflow.order.deleted", "texflow.document.deleted", "texflow.document.deleted"}, publisher.types())
}

func TestOrderService_StopReasons(t *testing.T) {
	svc, publisher, _ := newTestOrderService(newMemoryLedger())
	ctx := context.Background()

	h, err := svc.GetStopReasons(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultStopReasons(), h)

	custom := domain.StopReasonHierarchy{{Label: "Machines", Children: []domain.StopReasonNode{{Label: "Loom"}}}}
	_, err = svc.UpdateStopReasons(ctx, UpdateStopReasonsCommand{Hierarchy: custom, User: "plan"})
	require.NoError(t, err)

	h, err = svc.GetStopReasons(ctx)
	require.NoError(t, err)
	assert.Equal(t, custom, h)
	assert.Equal(t, []string{"texflow.stop-reasons.updated"}, publisher.types())

	_, err = svc.UpdateStopReasons(ctx, UpdateStopReasonsCommand{Hierarchy: domain.StopReasonHierarchy{{Label: ""}}})
	assert.ErrorIs(t, err, domain.ErrInvalidStopReasons)
}

func TestOrderService_PublishFailureDoesNotFailEdit(t *testing.T) {
	ledger := newMemoryLedger(importedOrder("DOC1", 1, nil))
	svc, publisher, _ := newTestOrderService(ledger)
	publisher.err = errLedgerDown

	_, err := svc.SetDocumentManual(context.Background(), SetDocumentManualCommand{DocNr: "DOC1", IsManual: true})
	require.NoError(t, err)
	assert.True(t, ledger.get("DOC1-1").IsManual)
}
