package domain

import "time"

// OrderState is the derived production status of an order. Never stored.
type OrderState string

const (
	OrderStateOpen         OrderState = "open"
	OrderStateInProduction OrderState = "in_production"
	OrderStateLate         OrderState = "late"
	OrderStateCompleted    OrderState = "completed"
)

// IsValid checks if the state is known
func (s OrderState) IsValid() bool {
	switch s {
	case OrderStateOpen, OrderStateInProduction, OrderStateLate, OrderStateCompleted:
		return true
	}
	return false
}

// SectorState is the derived status of one sector for one order.
type SectorState string

const (
	SectorStateNotStarted SectorState = "not_started"
	SectorStateInProgress SectorState = "in_progress"
	SectorStateCompleted  SectorState = "completed"
	// SectorStateLate is part of the vocabulary shown to clients but
	// ClassifySector never returns it.
	SectorStateLate SectorState = "late"
)

// StartOfDay truncates t to midnight in t's location
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func passed(date *time.Time, today time.Time) bool {
	return date != nil && date.Before(today)
}

// ClassifyOrder derives the order state at instant now. Gates are evaluated
// against the start of now's day, in pipeline order.
func ClassifyOrder(o *Order, now time.Time) OrderState {
	requested := o.QtyRequested
	if o.QtyOpen == 0 || (requested > 0 && o.ShippingStockQty >= requested) {
		return OrderStateCompleted
	}

	today := StartOfDay(now)
	confection := o.ConfectionGownsQty + o.ConfectionTerryQty

	switch {
	case passed(o.WeavingDate, today) && o.RawTerryQty < requested,
		passed(o.RawTerryDate, today) && o.RawTerryQty < requested,
		passed(o.DyeingDate, today) && confection < requested,
		passed(o.ConfectionDate, today) && o.PackagingQty < requested,
		passed(o.RequestedDate, today) && o.QtyOpen > 0:
		return OrderStateLate
	}

	if o.RawTerryQty > 0 || o.DyeingQty > 0 || confection > 0 || o.PackagingQty > 0 {
		return OrderStateInProduction
	}
	return OrderStateOpen
}

// ClassifySector derives one sector's state. Unknown sectors are NotStarted.
func ClassifySector(o *Order, sector SectorID) SectorState {
	s, ok := LookupSector(sector)
	if !ok {
		return SectorStateNotStarted
	}

	qty := s.ProducedQty(o)
	switch {
	case o.QtyRequested > 0 && qty >= o.QtyRequested:
		return SectorStateCompleted
	case qty > 0:
		return SectorStateInProgress
	default:
		return SectorStateNotStarted
	}
}

// SectorStates classifies every sector of o in pipeline order
func SectorStates(o *Order) map[SectorID]SectorState {
	states := make(map[SectorID]SectorState, len(Sectors))
	for _, s := range Sectors {
		states[s.ID] = ClassifySector(o, s.ID)
	}
	return states
}

// IsOverdue reports whether the requested delivery instant is before now with
// quantity still open. Unlike ClassifyOrder it does not round to the day.
func IsOverdue(o *Order, now time.Time) bool {
	return passed(o.RequestedDate, now) && o.QtyOpen > 0
}
