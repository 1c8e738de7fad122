package application

import (
	"context"
	"errors"
	"sync"

	"github.com/artur-silva-empresa/Texdex/internal/domain"
)

var errLedgerDown = errors.New("ledger unavailable")

// memoryLedger is an in-memory domain.Ledger with failure injection
type memoryLedger struct {
	mu      sync.Mutex
	orders  map[string]*domain.Order
	batches []int

	// failBatch makes the nth BatchUpsert call (1-based) fail
	failBatch int
	// beforeBatch runs before every BatchUpsert, outside the lock
	beforeBatch func(call int)

	subscribeErr error
	subscribers  map[int]*subscriber
	nextSub      int
}

type subscriber struct {
	onSnapshot domain.SnapshotHandler
	onError    domain.ErrorHandler
}

func newMemoryLedger(orders ...*domain.Order) *memoryLedger {
	l := &memoryLedger{orders: map[string]*domain.Order{}, subscribers: map[int]*subscriber{}}
	for _, o := range orders {
		l.orders[o.ID] = o.Clone()
	}
	return l
}

func (l *memoryLedger) get(id string) *domain.Order {
	l.mu.Lock()
	defer l.mu.Unlock()
	if o, ok := l.orders[id]; ok {
		return o.Clone()
	}
	return nil
}

func (l *memoryLedger) sortedLocked() []*domain.Order {
	out := make([]*domain.Order, 0, len(l.orders))
	for _, o := range l.orders {
		out = append(out, o.Clone())
	}
	domain.SortOrders(out)
	return out
}

func (l *memoryLedger) Subscribe(_ context.Context, onSnapshot domain.SnapshotHandler, onError domain.ErrorHandler) (func(), error) {
	l.mu.Lock()
	if l.subscribeErr != nil {
		err := l.subscribeErr
		l.mu.Unlock()
		return nil, err
	}
	id := l.nextSub
	l.nextSub++
	l.subscribers[id] = &subscriber{onSnapshot: onSnapshot, onError: onError}
	snapshot := l.sortedLocked()
	l.mu.Unlock()

	onSnapshot(snapshot)
	return func() {
		l.mu.Lock()
		delete(l.subscribers, id)
		l.mu.Unlock()
	}, nil
}

// breakFeed fails every live subscription
func (l *memoryLedger) breakFeed(err error) {
	l.mu.Lock()
	subs := make([]*subscriber, 0, len(l.subscribers))
	for id, s := range l.subscribers {
		subs = append(subs, s)
		delete(l.subscribers, id)
	}
	l.mu.Unlock()
	for _, s := range subs {
		s.onError(err)
	}
}

func (l *memoryLedger) publish() {
	l.mu.Lock()
	snapshot := l.sortedLocked()
	subs := make([]*subscriber, 0, len(l.subscribers))
	for _, s := range l.subscribers {
		subs = append(subs, s)
	}
	l.mu.Unlock()
	for _, s := range subs {
		s.onSnapshot(snapshot)
	}
}

func (l *memoryLedger) FindAll(context.Context) ([]*domain.Order, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sortedLocked(), nil
}

func (l *memoryLedger) FindByID(_ context.Context, id string) (*domain.Order, error) {
	return l.get(id), nil
}

func (l *memoryLedger) FindByDocNr(_ context.Context, docNr string) ([]*domain.Order, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []*domain.Order
	for _, o := range l.sortedLocked() {
		if o.DocNr == docNr {
			out = append(out, o)
		}
	}
	return out, nil
}

func (l *memoryLedger) Upsert(_ context.Context, order *domain.Order) error {
	l.mu.Lock()
	l.orders[order.ID] = order.Clone()
	l.mu.Unlock()
	l.publish()
	return nil
}

func (l *memoryLedger) BatchUpsert(ctx context.Context, orders []*domain.Order) error {
	if len(orders) > domain.MaxBatchOperations {
		return domain.ErrBatchTooLarge
	}

	l.mu.Lock()
	call := len(l.batches) + 1
	hook := l.beforeBatch
	l.mu.Unlock()
	if hook != nil {
		hook(call)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	l.mu.Lock()
	l.batches = append(l.batches, len(orders))
	if l.failBatch == call {
		l.mu.Unlock()
		return errLedgerDown
	}
	for _, o := range orders {
		l.orders[o.ID] = o.Clone()
	}
	l.mu.Unlock()
	l.publish()
	return nil
}

func (l *memoryLedger) Delete(_ context.Context, id string) error {
	l.mu.Lock()
	delete(l.orders, id)
	l.mu.Unlock()
	l.publish()
	return nil
}

func (l *memoryLedger) DeleteByDocNr(_ context.Context, docNr string) (int64, error) {
	l.mu.Lock()
	var n int64
	for id, o := range l.orders {
		if o.DocNr == docNr {
			delete(l.orders, id)
			n++
		}
	}
	l.mu.Unlock()
	l.publish()
	return n, nil
}

func (l *memoryLedger) Count(context.Context) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return int64(len(l.orders)), nil
}

type memoryConfigs struct {
	mu   sync.Mutex
	docs map[string]any
}

func newMemoryConfigs() *memoryConfigs {
	return &memoryConfigs{docs: map[string]any{}}
}

func (c *memoryConfigs) GetConfig(_ context.Context, key string, out any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.docs[key]
	if !ok {
		return false, nil
	}
	switch dst := out.(type) {
	case *domain.StopReasonHierarchy:
		*dst = v.(domain.StopReasonHierarchy)
	case *map[string]string:
		*dst = v.(map[string]string)
	}
	return true, nil
}

func (c *memoryConfigs) SetConfig(_ context.Context, key string, value any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.docs[key] = value
	return nil
}

type memoryImportLogs struct {
	mu   sync.Mutex
	logs []*domain.ImportLog
}

func (m *memoryImportLogs) Save(_ context.Context, log *domain.ImportLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs = append(m.logs, log)
	return nil
}

func (m *memoryImportLogs) List(_ context.Context, limit int) ([]*domain.ImportLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.ImportLog
	for i := len(m.logs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.logs[i])
	}
	return out, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.DomainEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e domain.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, e := range p.events {
		out = append(out, e.EventType())
	}
	return out
}

type recordingNotifier struct {
	mu            sync.Mutex
	notifications []domain.Notification
}

func (n *recordingNotifier) Notify(_ context.Context, note domain.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notifications = append(n.notifications, note)
	return nil
}

func (n *recordingNotifier) typesSeen() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []string
	for _, note := range n.notifications {
		out = append(out, note.Type)
	}
	return out
}

type stubLock struct {
	held     bool
	released int
}

func (l *stubLock) Acquire(context.Context) (func(), error) {
	if l.held {
		return nil, domain.ErrImportInProgress
	}
	l.held = true
	return func() {
		l.held = false
		l.released++
	}, nil
}
