package application

import (
	"context"
	"fmt"
	"time"

	"github.com/artur-silva-empresa/Texdex/internal/domain"
	"github.com/artur-silva-empresa/Texdex/pkg/errors"
	"github.com/artur-silva-empresa/Texdex/pkg/logging"
	"github.com/artur-silva-empresa/Texdex/pkg/metrics"
)

// OrderService handles user edits and deletions on the ledger. Edits are
// read-modify-write on the whole order: the last writer wins.
type OrderService struct {
	ledger    domain.Ledger
	configs   domain.ConfigStore
	publisher domain.EventPublisher
	notifier  domain.ChangeNotifier
	logger    *logging.Logger
	metrics   *metrics.Metrics
	clock     func() time.Time
}

// NewOrderService creates a new OrderService. publisher and notifier may be nil.
func NewOrderService(
	ledger domain.Ledger,
	configs domain.ConfigStore,
	publisher domain.EventPublisher,
	notifier domain.ChangeNotifier,
	logger *logging.Logger,
	m *metrics.Metrics,
) *OrderService {
	if publisher == nil {
		publisher = noopPublisher{}
	}
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &OrderService{
		ledger:    ledger,
		configs:   configs,
		publisher: publisher,
		notifier:  notifier,
		logger:    logger,
		metrics:   m,
		clock:     time.Now,
	}
}

// WithClock replaces the service clock
func (s *OrderService) WithClock(clock func() time.Time) *OrderService {
	s.clock = clock
	return s
}

// UpdateOrder replaces every user field of one order
func (s *OrderService) UpdateOrder(ctx context.Context, cmd UpdateOrderCommand) (*OrderDTO, error) {
	order, err := s.load(ctx, cmd.OrderID)
	if err != nil {
		return nil, err
	}

	if err := order.SetPriority(cmd.Priority); err != nil {
		return nil, err
	}
	order.IsManual = cmd.IsManual
	order.SectorObservations = map[domain.SectorID]string{}
	order.SectorStopReasons = map[domain.SectorID]string{}
	order.SectorPredictedDates = map[domain.SectorID]*time.Time{}
	for sector, text := range cmd.Observations {
		if err := order.SetObservation(sector, text); err != nil {
			return nil, err
		}
	}
	for sector, label := range cmd.StopReasons {
		if err := order.SetStopReason(sector, label); err != nil {
			return nil, err
		}
	}
	for sector, date := range cmd.PredictedDates {
		if err := order.SetPredictedDate(sector, date); err != nil {
			return nil, err
		}
	}

	if err := s.save(ctx, order); err != nil {
		return nil, err
	}

	s.edited(ctx, "order", order.ID, cmd.User, domain.NewOrderAnnotatedEvent(cmd.User, s.clock(), order.ID,
		"priority", "isManual", "sectorObservations", "sectorStopReasons", "sectorPredictedDates"), nil)

	dto := ToOrderDTO(order, s.clock())
	return &dto, nil
}

// SetObservation sets the note one sector keeps on an order
func (s *OrderService) SetObservation(ctx context.Context, cmd SetObservationCommand) (*OrderDTO, error) {
	order, err := s.load(ctx, cmd.OrderID)
	if err != nil {
		return nil, err
	}
	if err := order.SetObservation(cmd.Sector, cmd.Text); err != nil {
		return nil, err
	}
	if err := s.save(ctx, order); err != nil {
		return nil, err
	}

	s.edited(ctx, "observation", order.ID, cmd.User,
		domain.NewOrderAnnotatedEvent(cmd.User, s.clock(), order.ID, "sectorObservations."+string(cmd.Sector)),
		map[string]any{"sector": cmd.Sector})

	dto := ToOrderDTO(order, s.clock())
	return &dto, nil
}

// SetDocumentPriority sets the priority on every line of a document
func (s *OrderService) SetDocumentPriority(ctx context.Context, cmd SetDocumentPriorityCommand) (*BulkEditResultDTO, error) {
	if !cmd.Priority.IsValid() {
		return nil, domain.ErrInvalidPriority
	}
	return s.editDocument(ctx, cmd.DocNr, cmd.User, "priority", func(o *domain.Order) error {
		return o.SetPriority(cmd.Priority)
	})
}

// SetDocumentManual sets the manual flag on every line of a document
func (s *OrderService) SetDocumentManual(ctx context.Context, cmd SetDocumentManualCommand) (*BulkEditResultDTO, error) {
	return s.editDocument(ctx, cmd.DocNr, cmd.User, "isManual", func(o *domain.Order) error {
		o.IsManual = cmd.IsManual
		return nil
	})
}

// SetDocumentStopReason sets a sector stop reason on every line of a document
func (s *OrderService) SetDocumentStopReason(ctx context.Context, cmd SetDocumentStopReasonCommand) (*BulkEditResultDTO, error) {
	if !cmd.Sector.IsAnnotationKey() {
		return nil, domain.ErrUnknownSector
	}
	return s.editDocument(ctx, cmd.DocNr, cmd.User, "sectorStopReasons."+string(cmd.Sector), func(o *domain.Order) error {
		return o.SetStopReason(cmd.Sector, cmd.Label)
	})
}

func (s *OrderService) editDocument(ctx context.Context, docNr, user, field string, apply func(*domain.Order) error) (*BulkEditResultDTO, error) {
	lines, err := s.ledger.FindByDocNr(ctx, docNr)
	if err != nil {
		return nil, fmt.Errorf("failed to load document %s: %w", docNr, err)
	}
	if len(lines) == 0 {
		return nil, domain.ErrDocumentNotFound
	}

	for _, o := range lines {
		o.EnsureMaps()
		if err := apply(o); err != nil {
			return nil, err
		}
	}

	plan := &MergePlan{Payloads: lines}
	for _, chunk := range plan.Chunks(MergeBatchSize) {
		if err := s.ledger.BatchUpsert(ctx, chunk); err != nil {
			s.logger.WithError(err).Error("Failed to save document edit", "docNr", docNr, "field", field)
			return nil, fmt.Errorf("failed to save document %s: %w", docNr, err)
		}
	}

	s.edited(ctx, field, docNr, user,
		domain.NewDocumentAnnotatedEvent(user, s.clock(), docNr, field, len(lines)),
		map[string]any{"lines": len(lines)})

	return &BulkEditResultDTO{DocNr: docNr, Lines: len(lines)}, nil
}

// DeleteOrder removes one order from the ledger
func (s *OrderService) DeleteOrder(ctx context.Context, cmd DeleteOrderCommand) error {
	if _, err := s.load(ctx, cmd.OrderID); err != nil {
		return err
	}
	if err := s.ledger.Delete(ctx, cmd.OrderID); err != nil {
		s.logger.WithError(err).Error("Failed to delete order", "orderId", cmd.OrderID)
		return fmt.Errorf("failed to delete order: %w", err)
	}

	s.edited(ctx, "delete", cmd.OrderID, cmd.User, domain.NewOrderDeletedEvent(cmd.User, s.clock(), cmd.OrderID), nil)
	return nil
}

// DeleteDocument removes every line of a document
func (s *OrderService) DeleteDocument(ctx context.Context, cmd DeleteDocumentCommand) (*DeleteResultDTO, error) {
	deleted, err := s.ledger.DeleteByDocNr(ctx, cmd.DocNr)
	if err != nil {
		s.logger.WithError(err).Error("Failed to delete document", "docNr", cmd.DocNr)
		return nil, fmt.Errorf("failed to delete document: %w", err)
	}
	if deleted == 0 {
		return nil, domain.ErrDocumentNotFound
	}

	s.edited(ctx, "delete_document", cmd.DocNr, cmd.User,
		domain.NewDocumentDeletedEvent(cmd.User, s.clock(), cmd.DocNr, deleted),
		map[string]any{"deleted": deleted})

	return &DeleteResultDTO{Deleted: deleted}, nil
}

// ClearLedger deletes every order, document by document
func (s *OrderService) ClearLedger(ctx context.Context, cmd ClearLedgerCommand) (*DeleteResultDTO, error) {
	orders, err := s.ledger.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger: %w", err)
	}

	seen := make(map[string]bool)
	var total int64
	for _, o := range orders {
		if seen[o.DocNr] {
			continue
		}
		seen[o.DocNr] = true

		deleted, err := s.ledger.DeleteByDocNr(ctx, o.DocNr)
		total += deleted
		if err != nil {
			s.logger.WithError(err).Error("Ledger clear stopped", "docNr", o.DocNr, "deleted", total)
			return nil, fmt.Errorf("failed to clear ledger after %d orders: %w", total, err)
		}
		if err := s.publisher.Publish(ctx, domain.NewDocumentDeletedEvent(cmd.User, s.clock(), o.DocNr, deleted)); err != nil {
			s.logger.WithError(err).Warn("Failed to publish event", "docNr", o.DocNr)
		}
	}

	s.recordEdit("clear")
	s.logger.Audit(ctx, "clear", "orders", "*", cmd.User, map[string]any{"deleted": total})
	return &DeleteResultDTO{Deleted: total}, nil
}

// GetStopReasons returns the saved hierarchy or the built-in default
func (s *OrderService) GetStopReasons(ctx context.Context) (domain.StopReasonHierarchy, error) {
	var h domain.StopReasonHierarchy
	found, err := s.configs.GetConfig(ctx, domain.StopReasonsConfigKey, &h)
	if err != nil {
		return nil, fmt.Errorf("failed to load stop reasons: %w", err)
	}
	if !found {
		return domain.DefaultStopReasons(), nil
	}
	return h, nil
}

// UpdateStopReasons validates and replaces the hierarchy as a whole
func (s *OrderService) UpdateStopReasons(ctx context.Context, cmd UpdateStopReasonsCommand) (domain.StopReasonHierarchy, error) {
	if err := cmd.Hierarchy.Validate(); err != nil {
		return nil, errors.ErrValidation(err.Error()).Wrap(err)
	}
	if err := s.configs.SetConfig(ctx, domain.StopReasonsConfigKey, cmd.Hierarchy); err != nil {
		s.logger.WithError(err).Error("Failed to save stop reasons")
		return nil, fmt.Errorf("failed to save stop reasons: %w", err)
	}

	now := s.clock()
	s.edited(ctx, "stop_reasons", domain.StopReasonsConfigKey, cmd.User,
		domain.NewStopReasonsUpdatedEvent(cmd.User, now, cmd.Hierarchy), nil)

	if err := s.notifier.Notify(ctx, domain.Notification{
		Type:      domain.NotificationConfigChanged,
		Message:   "Stop reasons updated",
		User:      cmd.User,
		Data:      map[string]any{"key": domain.StopReasonsConfigKey},
		Timestamp: now,
	}); err != nil {
		s.logger.WithError(err).Warn("Failed to broadcast config change")
	}

	return cmd.Hierarchy, nil
}

func (s *OrderService) load(ctx context.Context, id string) (*domain.Order, error) {
	if err := domain.ValidateOrderID(id); err != nil {
		return nil, err
	}
	order, err := s.ledger.FindByID(ctx, id)
	if err != nil {
		s.logger.WithError(err).Error("Failed to get order", "orderId", id)
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if order == nil {
		return nil, domain.ErrOrderNotFound
	}
	order.EnsureMaps()
	return order, nil
}

func (s *OrderService) save(ctx context.Context, order *domain.Order) error {
	if err := s.ledger.Upsert(ctx, order); err != nil {
		s.logger.WithError(err).Error("Failed to save order", "orderId", order.ID)
		return fmt.Errorf("failed to save order: %w", err)
	}
	return nil
}

// edited records the audit trail, metric and event of a successful edit
func (s *OrderService) edited(ctx context.Context, kind, resourceID, user string, event domain.DomainEvent, details map[string]any) {
	s.recordEdit(kind)
	s.logger.Audit(ctx, kind, "orders", resourceID, user, details)
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.WithError(err).Warn("Failed to publish event", "eventType", event.EventType(), "subject", event.Subject())
	}
}

func (s *OrderService) recordEdit(kind string) {
	if s.metrics != nil {
		s.metrics.RecordUserEdit(kind)
	}
}
