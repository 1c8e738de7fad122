package domain

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

// Domain errors
var (
	ErrOrderNotFound      = errors.New("order not found")
	ErrDocumentNotFound   = errors.New("document not found")
	ErrInvalidPriority    = errors.New("invalid priority: must be 0 (none) to 3 (low)")
	ErrUnknownSector      = errors.New("unknown sector")
	ErrInvalidOrderID     = errors.New("invalid order id")
	ErrBatchTooLarge      = errors.New("batch exceeds the ledger's maximum operations per batch")
	ErrImportInProgress   = errors.New("another import is already in progress")
	ErrInvalidStopReasons = errors.New("invalid stop reason hierarchy")
)

// Priority is the planner's urgency mark on an order
type Priority int

const (
	PriorityNone   Priority = 0
	PriorityHigh   Priority = 1
	PriorityMedium Priority = 2
	PriorityLow    Priority = 3
)

// IsValid checks if the priority is one of the four levels
func (p Priority) IsValid() bool {
	return p >= PriorityNone && p <= PriorityLow
}

// Label returns the label used in exports
func (p Priority) Label() string {
	switch p {
	case PriorityHigh:
		return "High"
	case PriorityMedium:
		return "Medium"
	case PriorityLow:
		return "Low"
	default:
		return ""
	}
}

// Order is one line item of a customer document moving through the six
// production sectors. ERP fields are replaced on every import; user fields
// are only changed by explicit edits.
type Order struct {
	ID string `bson:"_id" json:"id"`

	// ERP-sourced fields
	DocNr                 string     `bson:"docNr" json:"docNr"`
	ClientCode            string     `bson:"clientCode" json:"clientCode"`
	ClientName            string     `bson:"clientName" json:"clientName"`
	IssueDate             *time.Time `bson:"issueDate" json:"issueDate"`
	RequestedDate         *time.Time `bson:"requestedDate" json:"requestedDate"`
	ItemNr                float64    `bson:"itemNr" json:"itemNr"`
	PO                    string     `bson:"po" json:"po"`
	ArticleCode           string     `bson:"articleCode" json:"articleCode"`
	Reference             string     `bson:"reference" json:"reference"`
	ColorCode             string     `bson:"colorCode" json:"colorCode"`
	ColorDesc             string     `bson:"colorDesc" json:"colorDesc"`
	Size                  string     `bson:"size" json:"size"`
	Family                string     `bson:"family" json:"family"`
	SizeDesc              string     `bson:"sizeDesc" json:"sizeDesc"`
	EAN                   string     `bson:"ean" json:"ean"`
	QtyRequested          float64    `bson:"qtyRequested" json:"qtyRequested"`
	WeavingDate           *time.Time `bson:"dataTec" json:"dataTec"`
	RawTerryQty           float64    `bson:"felpoCruQty" json:"felpoCruQty"`
	RawTerryDate          *time.Time `bson:"felpoCruDate" json:"felpoCruDate"`
	DyeingQty             float64    `bson:"tinturariaQty" json:"tinturariaQty"`
	DyeingDate            *time.Time `bson:"tinturariaDate" json:"tinturariaDate"`
	ConfectionGownsQty    float64    `bson:"confRoupoesQty" json:"confRoupoesQty"`
	ConfectionTerryQty    float64    `bson:"confFelposQty" json:"confFelposQty"`
	ConfectionDate        *time.Time `bson:"confDate" json:"confDate"`
	PackagingQty          float64    `bson:"embAcabQty" json:"embAcabQty"`
	WarehouseDispatchDate *time.Time `bson:"armExpDate" json:"armExpDate"`
	ShippingStockQty      float64    `bson:"stockCxQty" json:"stockCxQty"`
	EntryDate             *time.Time `bson:"dataEnt" json:"dataEnt"`
	SpecialDate           *time.Time `bson:"dataEspecial" json:"dataEspecial"`
	PrinterDate           *time.Time `bson:"dataPrinter" json:"dataPrinter"`
	DesignDate            *time.Time `bson:"dataDebuxo" json:"dataDebuxo"`
	SamplesDate           *time.Time `bson:"dataAmostras" json:"dataAmostras"`
	EmbroideryDate        *time.Time `bson:"dataBordados" json:"dataBordados"`
	QtyBilled             float64    `bson:"qtyBilled" json:"qtyBilled"`
	QtyOpen               float64    `bson:"qtyOpen" json:"qtyOpen"`

	// User-entered fields
	Priority             Priority                `bson:"priority" json:"priority"`
	IsManual             bool                    `bson:"isManual" json:"isManual"`
	SectorObservations   map[SectorID]string     `bson:"sectorObservations" json:"sectorObservations"`
	SectorStopReasons    map[SectorID]string     `bson:"sectorStopReasons" json:"sectorStopReasons"`
	SectorPredictedDates map[SectorID]*time.Time `bson:"sectorPredictedDates" json:"sectorPredictedDates"`

	CreatedAt time.Time `bson:"createdAt,omitempty" json:"createdAt,omitempty"`
	UpdatedAt time.Time `bson:"updatedAt,omitempty" json:"updatedAt,omitempty"`
}

// OrderID builds the identity of a line item: "<docNr>-<itemNr>"
func OrderID(docNr string, itemNr float64) string {
	return docNr + "-" + FormatItemNr(itemNr)
}

// FormatItemNr renders an item number the shortest way, e.g. 1, 2, 1.5
func FormatItemNr(itemNr float64) string {
	return strconv.FormatFloat(itemNr, 'f', -1, 64)
}

// ValidateOrderID checks an id has the "<docNr>-<itemNr>" shape
func ValidateOrderID(id string) error {
	i := strings.LastIndex(id, "-")
	if i <= 0 || i == len(id)-1 {
		return ErrInvalidOrderID
	}
	if _, err := strconv.ParseFloat(id[i+1:], 64); err != nil {
		return ErrInvalidOrderID
	}
	return nil
}

// NewOrder creates an order for a document line with empty user fields
func NewOrder(docNr string, itemNr float64) *Order {
	return &Order{
		ID:                   OrderID(docNr, itemNr),
		DocNr:                docNr,
		ItemNr:               itemNr,
		SectorObservations:   map[SectorID]string{},
		SectorStopReasons:    map[SectorID]string{},
		SectorPredictedDates: map[SectorID]*time.Time{},
	}
}

// EnsureMaps replaces nil user maps with empty ones
func (o *Order) EnsureMaps() {
	if o.SectorObservations == nil {
		o.SectorObservations = map[SectorID]string{}
	}
	if o.SectorStopReasons == nil {
		o.SectorStopReasons = map[SectorID]string{}
	}
	if o.SectorPredictedDates == nil {
		o.SectorPredictedDates = map[SectorID]*time.Time{}
	}
}

// Clone returns a deep copy
func (o *Order) Clone() *Order {
	c := *o
	c.SectorObservations = make(map[SectorID]string, len(o.SectorObservations))
	for k, v := range o.SectorObservations {
		c.SectorObservations[k] = v
	}
	c.SectorStopReasons = make(map[SectorID]string, len(o.SectorStopReasons))
	for k, v := range o.SectorStopReasons {
		c.SectorStopReasons[k] = v
	}
	c.SectorPredictedDates = make(map[SectorID]*time.Time, len(o.SectorPredictedDates))
	for k, v := range o.SectorPredictedDates {
		if v != nil {
			t := *v
			v = &t
		}
		c.SectorPredictedDates[k] = v
	}
	return &c
}

// WithUserFieldsFrom returns a copy of o (ERP data) carrying existing's id and
// user-entered fields. This is the payload an import writes for a known order.
func (o *Order) WithUserFieldsFrom(existing *Order) *Order {
	merged := o.Clone()
	prior := existing.Clone()

	merged.ID = existing.ID
	merged.Priority = prior.Priority
	merged.IsManual = prior.IsManual
	merged.SectorObservations = prior.SectorObservations
	merged.SectorStopReasons = prior.SectorStopReasons
	merged.SectorPredictedDates = prior.SectorPredictedDates
	merged.CreatedAt = existing.CreatedAt
	merged.EnsureMaps()
	return merged
}

// SetPriority sets the planner priority
func (o *Order) SetPriority(p Priority) error {
	if !p.IsValid() {
		return ErrInvalidPriority
	}
	o.Priority = p
	return nil
}

// SetObservation sets or, when text is blank, clears a sector note
func (o *Order) SetObservation(sector SectorID, text string) error {
	if !sector.IsAnnotationKey() {
		return ErrUnknownSector
	}
	o.EnsureMaps()
	if strings.TrimSpace(text) == "" {
		delete(o.SectorObservations, sector)
		return nil
	}
	o.SectorObservations[sector] = text
	return nil
}

// SetStopReason sets or, when label is blank, clears a sector stop reason
func (o *Order) SetStopReason(sector SectorID, label string) error {
	if !sector.IsAnnotationKey() {
		return ErrUnknownSector
	}
	o.EnsureMaps()
	if strings.TrimSpace(label) == "" {
		delete(o.SectorStopReasons, sector)
		return nil
	}
	o.SectorStopReasons[sector] = label
	return nil
}

// SetPredictedDate sets or, when date is nil, clears a sector forecast
func (o *Order) SetPredictedDate(sector SectorID, date *time.Time) error {
	if !sector.IsAnnotationKey() {
		return ErrUnknownSector
	}
	o.EnsureMaps()
	if date == nil {
		delete(o.SectorPredictedDates, sector)
		return nil
	}
	d := *date
	o.SectorPredictedDates[sector] = &d
	return nil
}

// HasObservations reports whether any sector carries a note
func (o *Order) HasObservations() bool {
	for _, text := range o.SectorObservations {
		if strings.TrimSpace(text) != "" {
			return true
		}
	}
	return false
}

// DeliveryDate is the date an order counts against in weekly figures:
// the requested date, falling back to the warehouse dispatch date.
func (o *Order) DeliveryDate() *time.Time {
	if o.RequestedDate != nil {
		return o.RequestedDate
	}
	return o.WarehouseDispatchDate
}

// DocSeries returns the document series: everything before the last "-",
// e.g. "ENC-2024" for "ENC-2024-118". Numbers without a dash have none.
func (o *Order) DocSeries() string {
	i := strings.LastIndex(o.DocNr, "-")
	if i <= 0 {
		return ""
	}
	return o.DocNr[:i]
}
