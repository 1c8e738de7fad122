package domain

import (
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// SortOrders orders a snapshot by document number, using Portuguese collation
// so accented series sort the way users read them, then by item number.
func SortOrders(orders []*Order) {
	// collators are not safe for concurrent use
	c := collate.New(language.Portuguese)
	sort.SliceStable(orders, func(i, j int) bool {
		if cmp := c.CompareString(orders[i].DocNr, orders[j].DocNr); cmp != 0 {
			return cmp < 0
		}
		return orders[i].ItemNr < orders[j].ItemNr
	})
}

// IndexByID maps orders by id; later duplicates win
func IndexByID(orders []*Order) map[string]*Order {
	index := make(map[string]*Order, len(orders))
	for _, o := range orders {
		index[o.ID] = o
	}
	return index
}
