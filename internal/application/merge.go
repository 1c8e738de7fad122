package application

import (
	"context"
	"fmt"
	"time"

	"github.com/artur-silva-empresa/Texdex/internal/domain"
	"github.com/artur-silva-empresa/Texdex/pkg/logging"
	"github.com/artur-silva-empresa/Texdex/pkg/metrics"
)

// MergeBatchSize keeps every chunk below domain.MaxBatchOperations
const MergeBatchSize = 400

// MergePlan is the set of payloads a merge will write
type MergePlan struct {
	Payloads []*domain.Order
	Added    int
	Updated  int
}

// Chunks splits the payloads into batches of at most size orders
func (p *MergePlan) Chunks(size int) [][]*domain.Order {
	if size <= 0 {
		size = MergeBatchSize
	}
	var chunks [][]*domain.Order
	for start := 0; start < len(p.Payloads); start += size {
		end := start + size
		if end > len(p.Payloads) {
			end = len(p.Payloads)
		}
		chunks = append(chunks, p.Payloads[start:end])
	}
	return chunks
}

// MergeResult summarises a committed merge
type MergeResult struct {
	Added   int `json:"added"`
	Updated int `json:"updated"`
	Batches int `json:"batches"`
}

// PartialMergeError reports a merge that stopped at a failing batch. Batches
// before AppliedBatches are committed; none after it were attempted.
type PartialMergeError struct {
	AppliedBatches int
	TotalBatches   int
	Err            error
}

func (e *PartialMergeError) Error() string {
	return fmt.Sprintf("merge stopped after %d of %d batches: %v", e.AppliedBatches, e.TotalBatches, e.Err)
}

func (e *PartialMergeError) Unwrap() error {
	return e.Err
}

// MergeEngine reconciles freshly imported orders with the ledger. ERP fields
// come from the import; user fields are kept from the ledger.
type MergeEngine struct {
	ledger    domain.Ledger
	batchSize int
	logger    *logging.Logger
	metrics   *metrics.Metrics
}

// NewMergeEngine creates a new MergeEngine
func NewMergeEngine(ledger domain.Ledger, logger *logging.Logger, m *metrics.Metrics) *MergeEngine {
	return &MergeEngine{
		ledger:    ledger,
		batchSize: MergeBatchSize,
		logger:    logger.WithComponent("merge"),
		metrics:   m,
	}
}

// Plan computes the payloads for newOrders against the current snapshot.
// Orders only present in current are left out and stay untouched.
func (e *MergeEngine) Plan(newOrders, current []*domain.Order) *MergePlan {
	existing := domain.IndexByID(current)
	plan := &MergePlan{Payloads: make([]*domain.Order, 0, len(newOrders))}

	for _, incoming := range newOrders {
		if prior, ok := existing[incoming.ID]; ok {
			plan.Payloads = append(plan.Payloads, incoming.WithUserFieldsFrom(prior))
			plan.Updated++
			continue
		}
		payload := incoming.Clone()
		payload.EnsureMaps()
		plan.Payloads = append(plan.Payloads, payload)
		plan.Added++
	}

	return plan
}

// Merge reads the ledger, plans and writes the payloads batch by batch.
//
// Every batch is atomic but the merge as a whole is not: a failure returns a
// *PartialMergeError and earlier batches stay committed. A user edit landing
// between the snapshot read and a batch write is overwritten.
func (e *MergeEngine) Merge(ctx context.Context, newOrders []*domain.Order) (*MergeResult, error) {
	start := time.Now()

	current, err := e.ledger.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger snapshot: %w", err)
	}

	plan := e.Plan(newOrders, current)
	chunks := plan.Chunks(e.batchSize)

	for i, chunk := range chunks {
		if err := e.ledger.BatchUpsert(ctx, chunk); err != nil {
			e.recordBatch(false)
			e.logger.WithError(err).Error("Merge batch failed",
				"appliedBatches", i,
				"totalBatches", len(chunks),
				"batchSize", len(chunk),
			)
			return nil, &PartialMergeError{AppliedBatches: i, TotalBatches: len(chunks), Err: err}
		}
		e.recordBatch(true)
	}

	e.logger.Performance(ctx, "merge", time.Since(start), true, map[string]any{
		"added":   plan.Added,
		"updated": plan.Updated,
		"batches": len(chunks),
	})

	return &MergeResult{Added: plan.Added, Updated: plan.Updated, Batches: len(chunks)}, nil
}

func (e *MergeEngine) recordBatch(success bool) {
	if e.metrics != nil {
		e.metrics.RecordMergeBatch(success)
	}
}
