package application

import (
	"context"
	"sync"
	"time"

	"github.com/artur-silva-empresa/Texdex/internal/domain"
	"github.com/artur-silva-empresa/Texdex/pkg/logging"
	"github.com/artur-silva-empresa/Texdex/pkg/metrics"
)

// Reconnect backoff bounds for the ledger subscription
const (
	DefaultMinBackoff = time.Second
	DefaultMaxBackoff = 30 * time.Second
)

// LedgerSync keeps the latest ledger snapshot in memory. When the subscription
// fails the last snapshot stays available and a reconnect loop takes over.
type LedgerSync struct {
	ledger   domain.Ledger
	notifier domain.ChangeNotifier
	logger   *logging.Logger
	metrics  *metrics.Metrics
	clock    func() time.Time

	minBackoff time.Duration
	maxBackoff time.Duration

	mu             sync.RWMutex
	snapshot       []*domain.Order
	lastSnapshotAt time.Time
	connected      bool
	lastErr        error
	delivered      int
	listeners      []domain.SnapshotHandler

	cancel context.CancelFunc
	done   chan struct{}
}

// NewLedgerSync creates a new LedgerSync. notifier may be nil.
func NewLedgerSync(ledger domain.Ledger, notifier domain.ChangeNotifier, logger *logging.Logger, m *metrics.Metrics) *LedgerSync {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &LedgerSync{
		ledger:     ledger,
		notifier:   notifier,
		logger:     logger.WithComponent("ledger-sync"),
		metrics:    m,
		clock:      time.Now,
		minBackoff: DefaultMinBackoff,
		maxBackoff: DefaultMaxBackoff,
	}
}

// WithBackoff overrides the reconnect backoff bounds
func (s *LedgerSync) WithBackoff(minBackoff, maxBackoff time.Duration) *LedgerSync {
	s.minBackoff = minBackoff
	s.maxBackoff = maxBackoff
	return s
}

// OnSnapshot registers fn to receive every snapshot after it is stored.
// Register before Start.
func (s *LedgerSync) OnSnapshot(fn domain.SnapshotHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Start runs the subscription loop until Stop is called or ctx ends
func (s *LedgerSync) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)
		s.run(ctx)
	}()
}

// Stop ends the subscription and waits for the loop to exit
func (s *LedgerSync) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
}

func (s *LedgerSync) run(ctx context.Context) {
	backoff := s.minBackoff

	for {
		s.mu.RLock()
		deliveredBefore := s.delivered
		s.mu.RUnlock()

		failed := make(chan error, 1)
		unsubscribe, err := s.ledger.Subscribe(ctx, s.handleSnapshot, func(err error) {
			select {
			case failed <- err:
			default:
			}
		})
		if err == nil {
			select {
			case <-ctx.Done():
				unsubscribe()
				return
			case err = <-failed:
				unsubscribe()
			}
		}
		if ctx.Err() != nil {
			return
		}

		s.mu.RLock()
		progressed := s.delivered > deliveredBefore
		s.mu.RUnlock()
		if progressed {
			backoff = s.minBackoff
		}

		s.handleError(ctx, err, backoff)

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, s.maxBackoff)
	}
}

func (s *LedgerSync) handleSnapshot(orders []*domain.Order) {
	sorted := make([]*domain.Order, len(orders))
	copy(sorted, orders)
	domain.SortOrders(sorted)

	s.mu.Lock()
	recovered := !s.connected && s.lastErr != nil
	s.snapshot = sorted
	s.lastSnapshotAt = s.clock()
	s.connected = true
	s.lastErr = nil
	s.delivered++
	listeners := append([]domain.SnapshotHandler(nil), s.listeners...)
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.RecordSnapshot(len(sorted))
		s.metrics.SetLedgerSyncConnected(true)
	}

	if recovered {
		s.logger.Info("Ledger subscription restored", "orders", len(sorted))
		s.notify(domain.NotificationReconnected, "Connection to the ledger restored", nil)
	}

	for _, fn := range listeners {
		fn(sorted)
	}
}

func (s *LedgerSync) handleError(ctx context.Context, err error, retryIn time.Duration) {
	s.mu.Lock()
	s.connected = false
	s.lastErr = err
	stale := len(s.snapshot)
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.SetLedgerSyncConnected(false)
	}

	s.logger.WithContext(ctx).WithError(err).Warn("Ledger subscription failed, serving last snapshot",
		"staleOrders", stale,
		"retryIn", retryIn.String(),
	)
	s.notify(domain.NotificationConnectionError, "Connection to the ledger lost, data may be out of date",
		map[string]any{"error": err.Error()})
}

func (s *LedgerSync) notify(kind, message string, data map[string]any) {
	n := domain.Notification{Type: kind, Message: message, Data: data, Timestamp: s.clock()}
	if err := s.notifier.Notify(context.Background(), n); err != nil {
		s.logger.WithError(err).Warn("Failed to broadcast sync notification", "type", kind)
	}
}

// Snapshot returns the latest snapshot, possibly stale
func (s *LedgerSync) Snapshot() []*domain.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

// Status describes the subscription
func (s *LedgerSync) Status() SyncStatusDTO {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := SyncStatusDTO{Connected: s.connected, Orders: len(s.snapshot)}
	if !s.lastSnapshotAt.IsZero() {
		at := s.lastSnapshotAt
		status.LastSnapshotAt = &at
	}
	if s.lastErr != nil {
		status.LastError = s.lastErr.Error()
	}
	return status
}
