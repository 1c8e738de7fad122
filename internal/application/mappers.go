package application

import (
	"time"

	"github.com/artur-silva-empresa/Texdex/internal/domain"
)

// ToOrderDTO classifies an order at instant now
func ToOrderDTO(o *domain.Order, now time.Time) OrderDTO {
	return OrderDTO{
		Order:        o,
		State:        domain.ClassifyOrder(o, now),
		SectorStates: domain.SectorStates(o),
		Overdue:      domain.IsOverdue(o, now),
	}
}

// ToOrderDTOs classifies a slice of orders
func ToOrderDTOs(orders []*domain.Order, now time.Time) []OrderDTO {
	dtos := make([]OrderDTO, len(orders))
	for i, o := range orders {
		dtos[i] = ToOrderDTO(o, now)
	}
	return dtos
}
