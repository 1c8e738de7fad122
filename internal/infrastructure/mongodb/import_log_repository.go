package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/artur-silva-empresa/Texdex/internal/domain"
	sharedmongo "github.com/artur-silva-empresa/Texdex/pkg/mongodb"
)

const importLogsCollection = "import_logs"

// ImportLogRepository implements domain.ImportLogStore
type ImportLogRepository struct {
	collection *mongo.Collection
	observer   *sharedmongo.Observer
}

// NewImportLogRepository creates a new ImportLogRepository
func NewImportLogRepository(db *mongo.Database, observer *sharedmongo.Observer) *ImportLogRepository {
	collection := db.Collection(importLogsCollection)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, _ = collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "timestamp", Value: -1}},
	})

	return &ImportLogRepository{
		collection: collection,
		observer:   observer,
	}
}

// Save stores one import log entry
func (r *ImportLogRepository) Save(ctx context.Context, log *domain.ImportLog) error {
	err := r.observer.Observe(ctx, importLogsCollection, "insert", func(ctx context.Context) (int64, error) {
		if _, err := r.collection.InsertOne(ctx, log); err != nil {
			return 0, err
		}
		return 1, nil
	})
	if err != nil {
		return fmt.Errorf("failed to save import log: %w", err)
	}
	return nil
}

// List returns up to limit entries, newest first
func (r *ImportLogRepository) List(ctx context.Context, limit int) ([]*domain.ImportLog, error) {
	logs := []*domain.ImportLog{}
	err := r.observer.Observe(ctx, importLogsCollection, "find", func(ctx context.Context) (int64, error) {
		opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}})
		if limit > 0 {
			opts.SetLimit(int64(limit))
		}

		cursor, err := r.collection.Find(ctx, bson.M{}, opts)
		if err != nil {
			return 0, err
		}
		defer cursor.Close(ctx)

		if err := cursor.All(ctx, &logs); err != nil {
			return 0, err
		}
		return int64(len(logs)), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list import logs: %w", err)
	}
	return logs, nil
}
