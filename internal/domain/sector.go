package domain

import "time"

// SectorID identifies a production stage
type SectorID string

// The six production stages in pipeline order
const (
	SectorWeaving    SectorID = "weaving"
	SectorRawTerry   SectorID = "raw_terry"
	SectorDyeing     SectorID = "dyeing"
	SectorConfection SectorID = "confection"
	SectorPackaging  SectorID = "packaging"
	SectorShipping   SectorID = "shipping"
)

// Sector describes a stage and how to read its progress off an Order
type Sector struct {
	ID    SectorID `json:"id"`
	Name  string   `json:"name"`
	Index int      `json:"orderIndex"`

	qty  func(*Order) float64
	date func(*Order) *time.Time
}

// ProducedQty returns the quantity the sector has produced for o
func (s Sector) ProducedQty(o *Order) float64 {
	return s.qty(o)
}

// Date returns the sector's gating date for o, or nil
func (s Sector) Date(o *Order) *time.Time {
	return s.date(o)
}

// Sectors lists the stages in pipeline order. Weaving has no produced
// quantity of its own in the ERP export and reads the raw terry count.
var Sectors = []Sector{
	{
		ID: SectorWeaving, Name: "Weaving", Index: 0,
		qty:  func(o *Order) float64 { return o.RawTerryQty },
		date: func(o *Order) *time.Time { return o.WeavingDate },
	},
	{
		ID: SectorRawTerry, Name: "Raw Terry", Index: 1,
		qty:  func(o *Order) float64 { return o.RawTerryQty },
		date: func(o *Order) *time.Time { return o.RawTerryDate },
	},
	{
		ID: SectorDyeing, Name: "Dyeing", Index: 2,
		qty:  func(o *Order) float64 { return o.DyeingQty },
		date: func(o *Order) *time.Time { return o.DyeingDate },
	},
	{
		ID: SectorConfection, Name: "Confection", Index: 3,
		qty:  func(o *Order) float64 { return o.ConfectionGownsQty + o.ConfectionTerryQty },
		date: func(o *Order) *time.Time { return o.ConfectionDate },
	},
	{
		ID: SectorPackaging, Name: "Packaging", Index: 4,
		qty:  func(o *Order) float64 { return o.PackagingQty },
		date: func(o *Order) *time.Time { return o.WarehouseDispatchDate },
	},
	{
		ID: SectorShipping, Name: "Shipping / Stock", Index: 5,
		qty:  func(o *Order) float64 { return o.ShippingStockQty },
		date: func(o *Order) *time.Time { return o.EntryDate },
	},
}

// Pseudo-sectors that are not pipeline stages
const (
	// SectorAll is the scope of users allowed to annotate every stage.
	SectorAll SectorID = "all"
	// SectorPlanning keys document-level planning notes and stop reasons.
	SectorPlanning SectorID = "planning"
)

// IsValid reports whether id names one of the six stages
func (id SectorID) IsValid() bool {
	_, ok := LookupSector(id)
	return ok
}

// LookupSector finds a stage by id
func LookupSector(id SectorID) (Sector, bool) {
	for _, s := range Sectors {
		if s.ID == id {
			return s, true
		}
	}
	return Sector{}, false
}

// IsAnnotationKey reports whether id may key user notes, stop reasons and
// forecasts: any stage plus the planning pseudo-sector
func (id SectorID) IsAnnotationKey() bool {
	return id == SectorPlanning || id.IsValid()
}

// ParseAnnotationKey validates a raw annotation key
func ParseAnnotationKey(raw string) (SectorID, error) {
	id := SectorID(raw)
	if !id.IsAnnotationKey() {
		return "", ErrUnknownSector
	}
	return id, nil
}

// ParseSectorID validates a raw sector id
func ParseSectorID(raw string) (SectorID, error) {
	id := SectorID(raw)
	if !id.IsValid() {
		return "", ErrUnknownSector
	}
	return id, nil
}
