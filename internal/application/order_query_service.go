package application

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/artur-silva-empresa/Texdex/internal/domain"
)

// SnapshotSource hands out the latest ledger snapshot. Callers must treat the
// returned orders as read-only.
type SnapshotSource interface {
	Snapshot() []*domain.Order
}

// StaticSnapshot serves a fixed slice of orders
type StaticSnapshot []*domain.Order

// Snapshot implements SnapshotSource
func (s StaticSnapshot) Snapshot() []*domain.Order { return s }

// OrderQueryService answers reads from the in-memory snapshot
type OrderQueryService struct {
	snapshots  SnapshotSource
	configs    domain.ConfigStore
	importLogs domain.ImportLogStore
	clock      func() time.Time
}

// NewOrderQueryService creates a new OrderQueryService
func NewOrderQueryService(snapshots SnapshotSource, configs domain.ConfigStore, importLogs domain.ImportLogStore) *OrderQueryService {
	return &OrderQueryService{
		snapshots:  snapshots,
		configs:    configs,
		importLogs: importLogs,
		clock:      time.Now,
	}
}

// WithClock replaces the service clock
func (s *OrderQueryService) WithClock(clock func() time.Time) *OrderQueryService {
	s.clock = clock
	return s
}

// Now returns the service clock's current instant
func (s *OrderQueryService) Now() time.Time {
	return s.clock()
}

// ListOrders filters and pages the snapshot
func (s *OrderQueryService) ListOrders(query ListOrdersQuery) *OrderListDTO {
	now := s.clock()
	matches := FilterOrders(s.snapshots.Snapshot(), query, now)

	pageSize := query.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	page := query.Page
	if page <= 0 {
		page = 1
	}

	total := len(matches)
	start := min((page-1)*pageSize, total)
	end := min(start+pageSize, total)

	return &OrderListDTO{
		Orders:     ToOrderDTOs(matches[start:end], now),
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: (total + pageSize - 1) / pageSize,
	}
}

// FilterOrders applies every filter of query at instant now, keeping snapshot order
func FilterOrders(orders []*domain.Order, query ListOrdersQuery, now time.Time) []*domain.Order {
	var weekStart, weekEnd time.Time
	if query.Week != nil {
		weekStart, weekEnd = domain.WeekRange(query.Week.In(now.Location()))
	}
	search := strings.ToLower(strings.TrimSpace(query.Search))

	out := make([]*domain.Order, 0, len(orders))
	for _, o := range orders {
		if query.DocSeries != "" && o.DocSeries() != query.DocSeries {
			continue
		}
		if query.Client != "" && o.ClientName != query.Client {
			continue
		}
		if query.Reference != "" && o.Reference != query.Reference {
			continue
		}
		if query.Status != "" && domain.ClassifyOrder(o, now) != query.Status {
			continue
		}
		if query.FulfilledOnly && !domain.IsFulfilled(o, now) {
			continue
		}
		if !matchesFlags(o, query) {
			continue
		}
		if query.HasObservations && !o.HasObservations() {
			continue
		}
		if query.Week != nil && !domain.InWeek(o, weekStart, weekEnd) {
			continue
		}
		if query.Sector != "" && query.SectorState != "" && domain.ClassifySector(o, query.Sector) != query.SectorState {
			continue
		}
		if search != "" && !matchesSearch(o, search) {
			continue
		}
		out = append(out, o)
	}
	return out
}

// matchesFlags combines the priority and manual filters: either passes when both are set
func matchesFlags(o *domain.Order, query ListOrdersQuery) bool {
	hasPriority := query.Priority != ""
	priorityOK := true
	if hasPriority {
		if query.Priority == PriorityFilterAny {
			priorityOK = o.Priority > domain.PriorityNone
		} else {
			priorityOK = strconv.Itoa(int(o.Priority)) == query.Priority
		}
	}
	manualOK := !query.ManualOnly || o.IsManual

	if hasPriority && query.ManualOnly {
		return priorityOK || manualOK
	}
	return priorityOK && manualOK
}

func matchesSearch(o *domain.Order, search string) bool {
	for _, field := range []string{o.DocNr, o.PO, o.Reference, o.ClientName, o.Family, o.SizeDesc} {
		if strings.Contains(strings.ToLower(field), search) {
			return true
		}
	}
	return false
}

// GetOrder returns one order with its states
func (s *OrderQueryService) GetOrder(id string) (*OrderDTO, error) {
	if err := domain.ValidateOrderID(id); err != nil {
		return nil, err
	}
	for _, o := range s.snapshots.Snapshot() {
		if o.ID == id {
			dto := ToOrderDTO(o, s.clock())
			return &dto, nil
		}
	}
	return nil, domain.ErrOrderNotFound
}

// Dashboard computes the KPIs of the current snapshot
func (s *OrderQueryService) Dashboard() domain.DashboardKPIs {
	return domain.CalculateKPIs(s.snapshots.Snapshot(), s.clock())
}

// Alerts lists overdue orders, oldest requested date first
func (s *OrderQueryService) Alerts() []OrderDTO {
	now := s.clock()
	var overdue []*domain.Order
	for _, o := range s.snapshots.Snapshot() {
		if domain.IsOverdue(o, now) {
			overdue = append(overdue, o)
		}
	}
	sort.SliceStable(overdue, func(i, j int) bool {
		return overdue[i].RequestedDate.Before(*overdue[j].RequestedDate)
	})
	return ToOrderDTOs(overdue, now)
}

// FilterOptions lists distinct series, and the clients and references left
// once the given series and client are applied
func (s *OrderQueryService) FilterOptions(docSeries, client string) *FilterOptionsDTO {
	series := map[string]bool{}
	clients := map[string]bool{}
	references := map[string]bool{}

	for _, o := range s.snapshots.Snapshot() {
		if ds := o.DocSeries(); ds != "" {
			series[ds] = true
		}
		if docSeries != "" && o.DocSeries() != docSeries {
			continue
		}
		if o.ClientName != "" {
			clients[o.ClientName] = true
		}
		if client != "" && o.ClientName != client {
			continue
		}
		if o.Reference != "" {
			references[o.Reference] = true
		}
	}

	return &FilterOptionsDTO{
		DocSeries:  sortedKeys(series),
		Clients:    sortedKeys(clients),
		References: sortedKeys(references),
	}
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ImportLogs lists the newest imports first
func (s *OrderQueryService) ImportLogs(ctx context.Context, limit int) ([]*domain.ImportLog, error) {
	logs, err := s.importLogs.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list import logs: %w", err)
	}
	return logs, nil
}

// ExportData returns the snapshot and stored spreadsheet headers for a backup
func (s *OrderQueryService) ExportData(ctx context.Context) ([]*domain.Order, map[string]string, error) {
	headers := map[string]string{}
	if _, err := s.configs.GetConfig(ctx, domain.ExcelHeadersConfigKey, &headers); err != nil {
		return nil, nil, fmt.Errorf("failed to load spreadsheet headers: %w", err)
	}
	return s.snapshots.Snapshot(), headers, nil
}
