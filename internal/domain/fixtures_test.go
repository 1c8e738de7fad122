package domain

import "time"

var refNow = time.Date(2024, time.March, 6, 15, 30, 0, 0, time.UTC) // Wednesday

func day(offset int) *time.Time {
	t := StartOfDay(refNow).AddDate(0, 0, offset)
	return &t
}

func orderWith(mutate func(o *Order)) *Order {
	o := NewOrder("DOC1", 1)
	o.QtyRequested = 100
	o.QtyOpen = 100
	mutate(o)
	return o
}
