package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSortOrders(t *testing.T) {
	orders := []*Order{
		NewOrder("DOC2", 1),
		NewOrder("DOC1", 10),
		NewOrder("ÉCO1", 1),
		NewOrder("DOC1", 2),
		NewOrder("EXP1", 1),
	}

	SortOrders(orders)

	var ids []string
	for _, o := range orders {
		ids = append(ids, o.ID)
	}
	// accented documents sort alongside their base letter
	assert.Equal(t, []string{"DOC1-2", "DOC1-10", "DOC2-1", "ÉCO1-1", "EXP1-1"}, ids)
}

func TestIndexByID_LastWins(t *testing.T) {
	a := NewOrder("DOC1", 1)
	b := NewOrder("DOC1", 1)
	b.ClientName = "second"

	idx := IndexByID([]*Order{a, b})
	assert.Len(t, idx, 1)
	assert.Equal(t, "second", idx["DOC1-1"].ClientName)
}
