package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/artur-silva-empresa/Texdex/internal/domain"
	"github.com/artur-silva-empresa/Texdex/pkg/logging"
	sharedmongo "github.com/artur-silva-empresa/Texdex/pkg/mongodb"
)

const ordersCollection = "orders"

// OrderRepository implements domain.Ledger using MongoDB. Batches run in a
// multi-document transaction and subscriptions follow a change stream, so the
// database must be a replica set.
type OrderRepository struct {
	collection *mongo.Collection
	db         *mongo.Database
	observer   *sharedmongo.Observer
	logger     *logging.Logger
	now        func() time.Time
}

// NewOrderRepository creates a new OrderRepository
func NewOrderRepository(db *mongo.Database, observer *sharedmongo.Observer, logger *logging.Logger) *OrderRepository {
	collection := db.Collection(ordersCollection)

	// Create indexes
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "docNr", Value: 1},
				{Key: "itemNr", Value: 1},
			},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "clientName", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "requestedDate", Value: 1}},
		},
	}

	_, _ = collection.Indexes().CreateMany(ctx, indexes)

	if logger == nil {
		logger = logging.NewNop()
	}

	return &OrderRepository{
		collection: collection,
		db:         db,
		observer:   observer,
		logger:     logger.WithComponent("order-repository"),
		now:        time.Now,
	}
}

// FindAll returns every order sorted by (docNr, itemNr)
func (r *OrderRepository) FindAll(ctx context.Context) ([]*domain.Order, error) {
	var orders []*domain.Order
	err := r.observer.Observe(ctx, ordersCollection, "find_all", func(ctx context.Context) (int64, error) {
		var err error
		orders, err = r.findMany(ctx, bson.M{})
		return int64(len(orders)), err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load orders: %w", err)
	}

	domain.SortOrders(orders)
	return orders, nil
}

// FindByID retrieves an order by its id
func (r *OrderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	var order domain.Order
	err := r.observer.Observe(ctx, ordersCollection, "find_one", func(ctx context.Context) (int64, error) {
		if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&order); err != nil {
			return 0, err
		}
		return 1, nil
	})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find order %s: %w", id, err)
	}

	order.EnsureMaps()
	return &order, nil
}

// FindByDocNr retrieves all line items of a document ordered by item number
func (r *OrderRepository) FindByDocNr(ctx context.Context, docNr string) ([]*domain.Order, error) {
	var orders []*domain.Order
	err := r.observer.Observe(ctx, ordersCollection, "find_by_doc", func(ctx context.Context) (int64, error) {
		var err error
		orders, err = r.findMany(ctx, bson.M{"docNr": docNr},
			options.Find().SetSort(bson.D{{Key: "itemNr", Value: 1}}))
		return int64(len(orders)), err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to find document %s: %w", docNr, err)
	}
	return orders, nil
}

// Upsert replaces the order stored under order.ID
func (r *OrderRepository) Upsert(ctx context.Context, order *domain.Order) error {
	doc := r.stamp(order)
	err := r.observer.Observe(ctx, ordersCollection, "upsert", func(ctx context.Context) (int64, error) {
		opts := options.Replace().SetUpsert(true)
		result, err := r.collection.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, opts)
		if err != nil {
			return 0, err
		}
		return result.ModifiedCount + result.UpsertedCount, nil
	})
	if err != nil {
		return fmt.Errorf("failed to save order %s: %w", order.ID, err)
	}
	return nil
}

// BatchUpsert writes all orders in one transaction
func (r *OrderRepository) BatchUpsert(ctx context.Context, orders []*domain.Order) error {
	if len(orders) > domain.MaxBatchOperations {
		return fmt.Errorf("%w: %d operations", domain.ErrBatchTooLarge, len(orders))
	}
	if len(orders) == 0 {
		return nil
	}

	models := make([]mongo.WriteModel, 0, len(orders))
	for _, order := range orders {
		doc := r.stamp(order)
		models = append(models, mongo.NewReplaceOneModel().
			SetFilter(bson.M{"_id": doc.ID}).
			SetReplacement(doc).
			SetUpsert(true))
	}

	err := r.observer.Observe(ctx, ordersCollection, "batch_upsert", func(ctx context.Context) (int64, error) {
		var written int64
		err := sharedmongo.WithTransaction(ctx, r.db.Client(), func(sessCtx mongo.SessionContext) error {
			result, err := r.collection.BulkWrite(sessCtx, models, options.BulkWrite().SetOrdered(true))
			if err != nil {
				return err
			}
			written = result.ModifiedCount + result.UpsertedCount
			return nil
		})
		return written, err
	})
	if err != nil {
		return fmt.Errorf("transaction failed: %w", err)
	}
	return nil
}

// Delete removes one order
func (r *OrderRepository) Delete(ctx context.Context, id string) error {
	err := r.observer.Observe(ctx, ordersCollection, "delete", func(ctx context.Context) (int64, error) {
		result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
		if err != nil {
			return 0, err
		}
		return result.DeletedCount, nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete order %s: %w", id, err)
	}
	return nil
}

// DeleteByDocNr removes every line of a document
func (r *OrderRepository) DeleteByDocNr(ctx context.Context, docNr string) (int64, error) {
	var deleted int64
	err := r.observer.Observe(ctx, ordersCollection, "delete_by_doc", func(ctx context.Context) (int64, error) {
		result, err := r.collection.DeleteMany(ctx, bson.M{"docNr": docNr})
		if err != nil {
			return 0, err
		}
		deleted = result.DeletedCount
		return deleted, nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to delete document %s: %w", docNr, err)
	}
	return deleted, nil
}

// Count returns the number of stored orders
func (r *OrderRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.observer.Observe(ctx, ordersCollection, "count", func(ctx context.Context) (int64, error) {
		var err error
		count, err = r.collection.CountDocuments(ctx, bson.M{})
		return count, err
	})
	return count, err
}

// Subscribe delivers the current snapshot, then a fresh one after every burst
// of changes seen on the collection's change stream. Events that arrive
// together, such as the writes of one batch, produce a single snapshot.
func (r *OrderRepository) Subscribe(ctx context.Context, onSnapshot domain.SnapshotHandler, onError domain.ErrorHandler) (func(), error) {
	streamCtx, cancel := context.WithCancel(ctx)

	stream, err := r.collection.Watch(streamCtx, mongo.Pipeline{},
		options.ChangeStream().SetFullDocument(options.Default))
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to open change stream: %w", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer stream.Close(context.Background())

		if err := r.deliver(streamCtx, onSnapshot); err != nil {
			r.fail(streamCtx, err, onError)
			return
		}

		for stream.Next(streamCtx) {
			// drain events already buffered
			for stream.TryNext(streamCtx) {
			}
			if err := r.deliver(streamCtx, onSnapshot); err != nil {
				r.fail(streamCtx, err, onError)
				return
			}
		}
		r.fail(streamCtx, stream.Err(), onError)
	}()

	return func() {
		cancel()
		<-done
	}, nil
}

func (r *OrderRepository) deliver(ctx context.Context, onSnapshot domain.SnapshotHandler) error {
	orders, err := r.FindAll(ctx)
	if err != nil {
		return err
	}
	onSnapshot(orders)
	return nil
}

// fail reports a feed failure unless the subscriber went away
func (r *OrderRepository) fail(ctx context.Context, err error, onError domain.ErrorHandler) {
	if ctx.Err() != nil {
		return
	}
	if err == nil {
		err = errors.New("change stream closed")
	}
	r.logger.WithError(err).Warn("Order change stream failed")
	onError(err)
}

// stamp returns the document to write with its timestamps filled in
func (r *OrderRepository) stamp(order *domain.Order) *domain.Order {
	doc := order.Clone()
	doc.EnsureMaps()
	now := r.now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now
	return doc
}

// findMany is a helper for finding multiple orders
func (r *OrderRepository) findMany(ctx context.Context, filter bson.M, opts ...*options.FindOptions) ([]*domain.Order, error) {
	cursor, err := r.collection.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	orders := []*domain.Order{}
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, err
	}

	for _, o := range orders {
		o.EnsureMaps()
	}
	return orders, nil
}
