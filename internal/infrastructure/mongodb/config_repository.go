package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	sharedmongo "github.com/artur-silva-empresa/Texdex/pkg/mongodb"
)

const metaCollection = "meta"

type configDocument struct {
	Key       string        `bson:"_id"`
	Value     bson.RawValue `bson:"value"`
	UpdatedAt time.Time     `bson:"updatedAt"`
}

// ConfigRepository implements domain.ConfigStore, one document per key
type ConfigRepository struct {
	collection *mongo.Collection
	observer   *sharedmongo.Observer
}

// NewConfigRepository creates a new ConfigRepository
func NewConfigRepository(db *mongo.Database, observer *sharedmongo.Observer) *ConfigRepository {
	return &ConfigRepository{
		collection: db.Collection(metaCollection),
		observer:   observer,
	}
}

// GetConfig decodes the value stored under key into out
func (r *ConfigRepository) GetConfig(ctx context.Context, key string, out any) (bool, error) {
	var doc configDocument
	err := r.observer.Observe(ctx, metaCollection, "find_one", func(ctx context.Context) (int64, error) {
		if err := r.collection.FindOne(ctx, bson.M{"_id": key}).Decode(&doc); err != nil {
			return 0, err
		}
		return 1, nil
	})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config %s: %w", key, err)
	}

	if err := doc.Value.Unmarshal(out); err != nil {
		return false, fmt.Errorf("failed to decode config %s: %w", key, err)
	}
	return true, nil
}

// SetConfig replaces the value stored under key
func (r *ConfigRepository) SetConfig(ctx context.Context, key string, value any) error {
	err := r.observer.Observe(ctx, metaCollection, "upsert", func(ctx context.Context) (int64, error) {
		update := bson.M{"$set": bson.M{"value": value, "updatedAt": time.Now().UTC()}}
		result, err := r.collection.UpdateOne(ctx, bson.M{"_id": key}, update, options.Update().SetUpsert(true))
		if err != nil {
			return 0, err
		}
		return result.ModifiedCount + result.UpsertedCount, nil
	})
	if err != nil {
		return fmt.Errorf("failed to save config %s: %w", key, err)
	}
	return nil
}
