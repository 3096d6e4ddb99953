package storage

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoConfig contains connection settings for MongoDB module repository.
type MongoConfig struct {
	URI        string // e.g. mongodb://localhost:27017
	Database   string // e.g. modrt
	Collection string // e.g. modules
}

// MongoConfigRepo stores one document per module, keyed by module name.
type MongoConfigRepo struct {
	client     *mongo.Client
	collection *mongo.Collection
	ctxTimeout time.Duration
}

type mongoModuleDoc struct {
	Name         string `bson:"_id"`
	ModuleRecord `bson:",inline"`
}

// NewMongoConfigRepo establishes connection and returns repository.
func NewMongoConfigRepo(ctx context.Context, cfg MongoConfig) (*MongoConfigRepo, error) {
	if cfg.URI == "" {
		cfg.URI = "mongodb://localhost:27017"
	}
	if cfg.Database == "" {
		cfg.Database = "modrt"
	}
	if cfg.Collection == "" {
		cfg.Collection = "modules"
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	// ping
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	return &MongoConfigRepo{
		client:     client,
		collection: client.Database(cfg.Database).Collection(cfg.Collection),
		ctxTimeout: 5 * time.Second,
	}, nil
}

// Load implements ConfigRepo.
func (m *MongoConfigRepo) Load(ctx context.Context) (Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, m.ctxTimeout)
	defer cancel()

	cur, err := m.collection.Find(ctx, bson.D{})
	if err != nil {
		return Snapshot{}, fmt.Errorf("mongo find: %w", err)
	}
	var docs []mongoModuleDoc
	if err := cur.All(ctx, &docs); err != nil {
		return Snapshot{}, fmt.Errorf("mongo decode: %w", err)
	}

	snap := NewSnapshot()
	for _, doc := range docs {
		snap.Modules[doc.Name] = doc.ModuleRecord
	}
	return snap, nil
}

// Save upserts every module and removes documents missing from the snapshot.
func (m *MongoConfigRepo) Save(ctx context.Context, snap Snapshot) error {
	ctx, cancel := context.WithTimeout(ctx, m.ctxTimeout)
	defer cancel()

	names := snap.Names()
	if len(names) > 0 {
		models := make([]mongo.WriteModel, 0, len(names))
		for _, name := range names {
			doc := mongoModuleDoc{Name: name, ModuleRecord: snap.Modules[name]}
			models = append(models, mongo.NewReplaceOneModel().
				SetFilter(bson.D{{Key: "_id", Value: name}}).
				SetReplacement(doc).
				SetUpsert(true))
		}
		if _, err := m.collection.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false)); err != nil {
			return fmt.Errorf("mongo bulk write: %w", err)
		}
	}

	filter := bson.D{{Key: "_id", Value: bson.D{{Key: "$nin", Value: names}}}}
	if _, err := m.collection.DeleteMany(ctx, filter); err != nil {
		return fmt.Errorf("mongo delete stale: %w", err)
	}
	return nil
}

// Close terminates connection.
func (m *MongoConfigRepo) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}
