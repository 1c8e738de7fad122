package domain

import "time"

// WeekRange returns the Monday 00:00:00.000 to Sunday 23:59:59.999 window
// containing t, in t's location. Sunday belongs to the week that started
// six days earlier.
func WeekRange(t time.Time) (start, end time.Time) {
	day := StartOfDay(t)
	offset := int(day.Weekday()) - int(time.Monday)
	if day.Weekday() == time.Sunday {
		offset = 6
	}

	start = day.AddDate(0, 0, -offset)
	last := start.AddDate(0, 0, 6)
	end = time.Date(last.Year(), last.Month(), last.Day(), 23, 59, 59, int(999*time.Millisecond), last.Location())
	return start, end
}

// BilledVsOpen totals billed and open quantities
type BilledVsOpen struct {
	Billed float64 `json:"billed"`
	Open   float64 `json:"open"`
}

// DashboardKPIs are the headline figures computed from a ledger snapshot
type DashboardKPIs struct {
	TotalActiveDocs     int          `json:"totalActiveDocs"`
	TotalLate           int          `json:"totalLate"`
	DeliveriesThisWeek  int          `json:"deliveriesThisWeek"`
	FulfillmentRateWeek float64      `json:"fulfillmentRateWeek"`
	TotalInProduction   int          `json:"totalInProduction"`
	BilledVsOpen        BilledVsOpen `json:"billedVsOpen"`
	AlertCount          int          `json:"alertCount"`
	WeekStart           time.Time    `json:"weekStart"`
	WeekEnd             time.Time    `json:"weekEnd"`
}

// InWeek reports whether the order's delivery date falls inside [start, end]
func InWeek(o *Order, start, end time.Time) bool {
	d := o.DeliveryDate()
	return d != nil && !d.Before(start) && !d.After(end)
}

// IsFulfilled reports whether an order is Completed or its shipping sector
// has started
func IsFulfilled(o *Order, now time.Time) bool {
	return isFulfilled(o, ClassifyOrder(o, now))
}

func isFulfilled(o *Order, state OrderState) bool {
	if state == OrderStateCompleted {
		return true
	}
	shipping := ClassifySector(o, SectorShipping)
	return shipping == SectorStateCompleted || shipping == SectorStateInProgress
}

// CalculateKPIs computes dashboard figures for orders at instant now.
//
// The weekly fulfilment rate is a percentage (0-100). An order of the week
// counts as fulfilled when it is Completed or its shipping sector has started.
func CalculateKPIs(orders []*Order, now time.Time) DashboardKPIs {
	start, end := WeekRange(now)
	kpis := DashboardKPIs{WeekStart: start, WeekEnd: end}

	activeDocs := make(map[string]struct{})
	fulfilled := 0

	for _, o := range orders {
		state := ClassifyOrder(o, now)

		if o.QtyOpen > 0 {
			activeDocs[o.DocNr] = struct{}{}
			kpis.TotalInProduction++
		}
		if state == OrderStateLate {
			kpis.TotalLate++
		}
		if IsOverdue(o, now) {
			kpis.AlertCount++
		}

		if InWeek(o, start, end) {
			kpis.DeliveriesThisWeek++
			if isFulfilled(o, state) {
				fulfilled++
			}
		}

		kpis.BilledVsOpen.Billed += o.QtyBilled
		kpis.BilledVsOpen.Open += o.QtyOpen
	}

	kpis.TotalActiveDocs = len(activeDocs)
	if kpis.DeliveriesThisWeek > 0 {
		kpis.FulfillmentRateWeek = float64(fulfilled) / float64(kpis.DeliveriesThisWeek) * 100
	}
	return kpis
}
