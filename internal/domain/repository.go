package domain

import (
	"context"
	"time"
)

// MaxBatchOperations is the ledger's hard ceiling on writes per atomic batch
const MaxBatchOperations = 500

// SnapshotHandler receives every full ledger snapshot, sorted by (docNr, itemNr)
type SnapshotHandler func(orders []*Order)

// ErrorHandler receives subscription failures
type ErrorHandler func(err error)

// Ledger is the shared, persistent order store every client sees
type Ledger interface {
	// Subscribe delivers the full sorted snapshot now and after every change
	// until unsubscribe is called or ctx ends. onError is called when the
	// underlying feed fails; no further snapshots follow that call.
	Subscribe(ctx context.Context, onSnapshot SnapshotHandler, onError ErrorHandler) (unsubscribe func(), err error)

	// FindAll returns every order sorted by (docNr, itemNr)
	FindAll(ctx context.Context) ([]*Order, error)

	// FindByID returns nil, nil when no order has the id
	FindByID(ctx context.Context, id string) (*Order, error)

	// FindByDocNr returns all line items of a document
	FindByDocNr(ctx context.Context, docNr string) ([]*Order, error)

	// Upsert replaces the order stored under order.ID
	Upsert(ctx context.Context, order *Order) error

	// BatchUpsert writes all orders atomically. len(orders) must not exceed
	// MaxBatchOperations.
	BatchUpsert(ctx context.Context, orders []*Order) error

	// Delete removes one order; deleting a missing id is not an error
	Delete(ctx context.Context, id string) error

	// DeleteByDocNr removes every line of a document and returns how many
	DeleteByDocNr(ctx context.Context, docNr string) (int64, error)

	// Count returns the number of orders stored
	Count(ctx context.Context) (int64, error)
}

// ConfigStore holds process-wide configuration documents by key
type ConfigStore interface {
	// GetConfig decodes the document under key into out; found is false if absent
	GetConfig(ctx context.Context, key string, out any) (found bool, err error)
	SetConfig(ctx context.Context, key string, value any) error
}

// ImportLogStore keeps the import history
type ImportLogStore interface {
	Save(ctx context.Context, log *ImportLog) error
	// List returns the newest entries first
	List(ctx context.Context, limit int) ([]*ImportLog, error)
}

// EventPublisher publishes domain events; failures never fail the caller's edit
type EventPublisher interface {
	Publish(ctx context.Context, event DomainEvent) error
}

// ChangeNotifier tells other instances and clients that the ledger changed
type ChangeNotifier interface {
	Notify(ctx context.Context, n Notification) error
}

// Notification is a small out-of-band message to connected clients
type Notification struct {
	Type      string         `json:"type"`
	Message   string         `json:"message"`
	User      string         `json:"user,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Notification types
const (
	NotificationImportCompleted = "import_completed"
	NotificationConnectionError = "connection_error"
	NotificationReconnected     = "reconnected"
	NotificationConfigChanged   = "config_changed"
)

// ImportLock serialises imports across service instances
type ImportLock interface {
	// Acquire returns ErrImportInProgress when another import holds the lock
	Acquire(ctx context.Context) (release func(), err error)
}
