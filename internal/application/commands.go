package application

import (
	"io"
	"time"

	"github.com/artur-silva-empresa/Texdex/internal/domain"
)

// ImportCommand imports one uploaded file
type ImportCommand struct {
	Filename string
	Content  io.Reader
	User     string
}

// UpdateOrderCommand replaces every user field of one order
type UpdateOrderCommand struct {
	OrderID        string
	User           string
	Priority       domain.Priority
	IsManual       bool
	Observations   map[domain.SectorID]string
	StopReasons    map[domain.SectorID]string
	PredictedDates map[domain.SectorID]*time.Time
}

// SetObservationCommand sets the note one sector keeps on an order
type SetObservationCommand struct {
	OrderID string
	Sector  domain.SectorID
	Text    string
	User    string
}

// SetDocumentPriorityCommand sets the priority of every line of a document
type SetDocumentPriorityCommand struct {
	DocNr    string
	Priority domain.Priority
	User     string
}

// SetDocumentManualCommand flags every line of a document as manually tracked
type SetDocumentManualCommand struct {
	DocNr    string
	IsManual bool
	User     string
}

// SetDocumentStopReasonCommand sets a sector stop reason on every line of a document
type SetDocumentStopReasonCommand struct {
	DocNr  string
	Sector domain.SectorID
	Label  string
	User   string
}

// DeleteOrderCommand deletes one order
type DeleteOrderCommand struct {
	OrderID string
	User    string
}

// DeleteDocumentCommand deletes every line of a document
type DeleteDocumentCommand struct {
	DocNr string
	User  string
}

// ClearLedgerCommand deletes every order
type ClearLedgerCommand struct {
	User string
}

// UpdateStopReasonsCommand replaces the stop reason hierarchy
type UpdateStopReasonsCommand struct {
	Hierarchy domain.StopReasonHierarchy
	User      string
}

// PriorityFilterAny matches every order with a priority set
const PriorityFilterAny = "any"

// ListOrdersQuery filters the current snapshot. Zero values match everything.
// When both Priority and ManualOnly are set an order matching either passes.
type ListOrdersQuery struct {
	Status          domain.OrderState
	Priority        string
	ManualOnly      bool
	Client          string
	Reference       string
	DocSeries       string
	HasObservations bool
	FulfilledOnly   bool
	Sector          domain.SectorID
	SectorState     domain.SectorState
	Week            *time.Time
	Search          string
	Page            int
	PageSize        int
}

// DefaultPageSize is used when a list query does not set one
const DefaultPageSize = 50

// MaxPageSize bounds a single page
const MaxPageSize = 1000
