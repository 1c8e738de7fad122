package application

import (
	"time"

	"github.com/artur-silva-empresa/Texdex/internal/domain"
	"github.com/artur-silva-empresa/Texdex/internal/ingest"
)

// OrderDTO is an order with its derived states
type OrderDTO struct {
	*domain.Order
	State        domain.OrderState                      `json:"state"`
	SectorStates map[domain.SectorID]domain.SectorState `json:"sectorStates"`
	Overdue      bool                                   `json:"overdue"`
}

// OrderListDTO is one page of a filtered snapshot
type OrderListDTO struct {
	Orders     []OrderDTO `json:"orders"`
	Total      int        `json:"total"`
	Page       int        `json:"page"`
	PageSize   int        `json:"pageSize"`
	TotalPages int        `json:"totalPages"`
}

// ImportResultDTO is returned after a successful import
type ImportResultDTO struct {
	ImportID string                `json:"importId"`
	Filename string                `json:"filename"`
	Records  int                   `json:"records"`
	Added    int                   `json:"added"`
	Updated  int                   `json:"updated"`
	Batches  int                   `json:"batches"`
	Skipped  int                   `json:"skipped"`
	Warnings int                   `json:"warnings"`
	Samples  []ingest.ParseWarning `json:"warningSamples,omitempty"`
}

// BulkEditResultDTO reports how many lines a document edit touched
type BulkEditResultDTO struct {
	DocNr string `json:"docNr"`
	Lines int    `json:"lines"`
}

// DeleteResultDTO reports how many orders a delete removed
type DeleteResultDTO struct {
	Deleted int64 `json:"deleted"`
}

// FilterOptionsDTO lists the distinct values the list filters accept
type FilterOptionsDTO struct {
	DocSeries  []string `json:"docSeries"`
	Clients    []string `json:"clients"`
	References []string `json:"references"`
}

// SyncStatusDTO describes the ledger subscription
type SyncStatusDTO struct {
	Connected      bool       `json:"connected"`
	LastSnapshotAt *time.Time `json:"lastSnapshotAt,omitempty"`
	LastError      string     `json:"lastError,omitempty"`
	Orders         int        `json:"orders"`
}
