package api

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/artur-silva-empresa/Texdex/internal/domain"
)

// memoryLedger is an in-memory domain.Ledger that republishes a snapshot
// after every write
type memoryLedger struct {
	mu          sync.Mutex
	orders      map[string]*domain.Order
	subscribers map[int]domain.SnapshotHandler
	nextSub     int
}

func newMemoryLedger(orders ...*domain.Order) *memoryLedger {
	l := &memoryLedger{orders: map[string]*domain.Order{}, subscribers: map[int]domain.SnapshotHandler{}}
	for _, o := range orders {
		l.orders[o.ID] = o.Clone()
	}
	return l
}

func (l *memoryLedger) sortedLocked() []*domain.Order {
	out := make([]*domain.Order, 0, len(l.orders))
	for _, o := range l.orders {
		out = append(out, o.Clone())
	}
	domain.SortOrders(out)
	return out
}

func (l *memoryLedger) publish() {
	l.mu.Lock()
	snapshot := l.sortedLocked()
	subs := make([]domain.SnapshotHandler, 0, len(l.subscribers))
	for _, s := range l.subscribers {
		subs = append(subs, s)
	}
	l.mu.Unlock()
	for _, s := range subs {
		s(snapshot)
	}
}

func (l *memoryLedger) Subscribe(_ context.Context, onSnapshot domain.SnapshotHandler, _ domain.ErrorHandler) (func(), error) {
	l.mu.Lock()
	id := l.nextSub
	l.nextSub++
	l.subscribers[id] = onSnapshot
	snapshot := l.sortedLocked()
	l.mu.Unlock()

	onSnapshot(snapshot)
	return func() {
		l.mu.Lock()
		delete(l.subscribers, id)
		l.mu.Unlock()
	}, nil
}

func (l *memoryLedger) FindAll(context.Context) ([]*domain.Order, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sortedLocked(), nil
}

func (l *memoryLedger) FindByID(_ context.Context, id string) (*domain.Order, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if o, ok := l.orders[id]; ok {
		return o.Clone(), nil
	}
	return nil, nil
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

func (l *memoryLedger) BatchUpsert(_ context.Context, orders []*domain.Order) error {
	if len(orders) > domain.MaxBatchOperations {
		return domain.ErrBatchTooLarge
	}
	l.mu.Lock()
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

func (l *memoryLedger) get(id string) *domain.Order {
	o, _ := l.FindByID(context.Background(), id)
	return o
}

// memoryConfigs stores config values as JSON, like a document store would
type memoryConfigs struct {
	mu   sync.Mutex
	docs map[string][]byte
}

func newMemoryConfigs() *memoryConfigs {
	return &memoryConfigs{docs: map[string][]byte{}}
}

func (c *memoryConfigs) GetConfig(_ context.Context, key string, out any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.docs[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, out)
}

func (c *memoryConfigs) SetConfig(_ context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.docs[key] = raw
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
