package domain

import "time"

// DomainEvent is something that happened to the ledger
type DomainEvent interface {
	EventType() string
	Subject() string
	Actor() string
	OccurredAt() time.Time
}

type eventMeta struct {
	User string    `json:"user"`
	At   time.Time `json:"occurredAt"`
}

func (m eventMeta) Actor() string         { return m.User }
func (m eventMeta) OccurredAt() time.Time { return m.At }

// ImportCompletedEvent is emitted once every chunk of an import has committed
type ImportCompletedEvent struct {
	eventMeta
	ImportID string `json:"importId"`
	Filename string `json:"filename"`
	Records  int    `json:"records"`
	Added    int    `json:"added"`
	Updated  int    `json:"updated"`
}

func (e *ImportCompletedEvent) EventType() string { return "texflow.import.completed" }
func (e *ImportCompletedEvent) Subject() string   { return "import/" + e.ImportID }

// OrderAnnotatedEvent is emitted when a user edits user fields of one order
type OrderAnnotatedEvent struct {
	eventMeta
	OrderID string   `json:"orderId"`
	Fields  []string `json:"fields"`
}

func (e *OrderAnnotatedEvent) EventType() string { return "texflow.order.annotated" }
func (e *OrderAnnotatedEvent) Subject() string   { return "order/" + e.OrderID }

// DocumentAnnotatedEvent is emitted when a bulk edit touches every line of a document
type DocumentAnnotatedEvent struct {
	eventMeta
	DocNr string `json:"docNr"`
	Field string `json:"field"`
	Lines int    `json:"lines"`
}

func (e *DocumentAnnotatedEvent) EventType() string { return "texflow.document.annotated" }
func (e *DocumentAnnotatedEvent) Subject() string   { return "document/" + e.DocNr }

// OrderDeletedEvent is emitted when a user deletes one order
type OrderDeletedEvent struct {
	eventMeta
	OrderID string `json:"orderId"`
}

func (e *OrderDeletedEvent) EventType() string { return "texflow.order.deleted" }
func (e *OrderDeletedEvent) Subject() string   { return "order/" + e.OrderID }

// DocumentDeletedEvent is emitted when a user deletes a whole document
type DocumentDeletedEvent struct {
	eventMeta
	DocNr   string `json:"docNr"`
	Deleted int64  `json:"deleted"`
}

func (e *DocumentDeletedEvent) EventType() string { return "texflow.document.deleted" }
func (e *DocumentDeletedEvent) Subject() string   { return "document/" + e.DocNr }

// StopReasonsUpdatedEvent is emitted when the hierarchy is replaced
type StopReasonsUpdatedEvent struct {
	eventMeta
	Labels int `json:"labels"`
}

func (e *StopReasonsUpdatedEvent) EventType() string { return "texflow.stop-reasons.updated" }
func (e *StopReasonsUpdatedEvent) Subject() string   { return "config/" + StopReasonsConfigKey }

// NewImportCompletedEvent builds an ImportCompletedEvent
func NewImportCompletedEvent(user string, at time.Time, log *ImportLog) *ImportCompletedEvent {
	return &ImportCompletedEvent{
		eventMeta: eventMeta{User: user, At: at},
		ImportID:  log.ID,
		Filename:  log.Filename,
		Records:   log.RecordsCount,
		Added:     log.Added,
		Updated:   log.Updated,
	}
}

// NewOrderAnnotatedEvent builds an OrderAnnotatedEvent
func NewOrderAnnotatedEvent(user string, at time.Time, orderID string, fields ...string) *OrderAnnotatedEvent {
	return &OrderAnnotatedEvent{eventMeta: eventMeta{User: user, At: at}, OrderID: orderID, Fields: fields}
}

// NewDocumentAnnotatedEvent builds a DocumentAnnotatedEvent
func NewDocumentAnnotatedEvent(user string, at time.Time, docNr, field string, lines int) *DocumentAnnotatedEvent {
	return &DocumentAnnotatedEvent{eventMeta: eventMeta{User: user, At: at}, DocNr: docNr, Field: field, Lines: lines}
}

// NewOrderDeletedEvent builds an OrderDeletedEvent
func NewOrderDeletedEvent(user string, at time.Time, orderID string) *OrderDeletedEvent {
	return &OrderDeletedEvent{eventMeta: eventMeta{User: user, At: at}, OrderID: orderID}
}

// NewDocumentDeletedEvent builds a DocumentDeletedEvent
func NewDocumentDeletedEvent(user string, at time.Time, docNr string, deleted int64) *DocumentDeletedEvent {
	return &DocumentDeletedEvent{eventMeta: eventMeta{User: user, At: at}, DocNr: docNr, Deleted: deleted}
}

// NewStopReasonsUpdatedEvent builds a StopReasonsUpdatedEvent
func NewStopReasonsUpdatedEvent(user string, at time.Time, h StopReasonHierarchy) *StopReasonsUpdatedEvent {
	return &StopReasonsUpdatedEvent{eventMeta: eventMeta{User: user, At: at}, Labels: len(h.Flatten())}
}
