package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/himspired1/himspired-sub000/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoStore struct {
	collection *mongo.Collection
}

func NewMongoStore(db *mongo.Database) ProductStore {
	return &mongoStore{
		collection: db.Collection("products"),
	}
}

func (m *mongoStore) Fetch(ctx context.Context, productID string) (*domain.Product, error) {
	var product domain.Product

	filter := bson.M{"_id": productID}
	err := m.collection.FindOne(ctx, filter).Decode(&product)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to fetch product: %w", err)
	}

	return &product, nil
}

func (m *mongoStore) ReplaceReservations(ctx context.Context, productID string, reservations []domain.Reservation, expectedRevision *int64) error {
	filter := bson.M{"_id": productID}
	if expectedRevision != nil {
		if *expectedRevision == 0 {
			// The catalog is owned by the content side; a document we have
			// never written has no revision field at all, and equality on 0
			// would not match it. Treat missing as zero.
			filter["$or"] = bson.A{
				bson.M{"revision": int64(0)},
				bson.M{"revision": bson.M{"$exists": false}},
			}
		} else {
			filter["revision"] = *expectedRevision
		}
	}

	// Never write a nil array; a missing reservations field would make
	// later decodes ambiguous.
	if reservations == nil {
		reservations = []domain.Reservation{}
	}

	update := bson.M{
		"$set": bson.M{
			"reservations": reservations,
			"updated_at":   time.Now(),
		},
		"$inc": bson.M{"revision": 1},
	}

	result, err := m.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to write reservations: %w", err)
	}

	if result.MatchedCount == 0 {
		if expectedRevision == nil {
			return ErrProductNotFound
		}
		// Distinguish a vanished product from a concurrent writer.
		count, countErr := m.collection.CountDocuments(ctx, bson.M{"_id": productID})
		if countErr == nil && count == 0 {
			return ErrProductNotFound
		}
		return ErrRevisionConflict
	}

	return nil
}

func (m *mongoStore) SetStock(ctx context.Context, productID string, stock int) error {
	filter := bson.M{"_id": productID}
	update := bson.M{
		"$set": bson.M{
			"stock":      stock,
			"updated_at": time.Now(),
		},
		"$inc": bson.M{"revision": 1},
	}

	result, err := m.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to write stock: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrProductNotFound
	}

	return nil
}

func (m *mongoStore) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "reservations.holder_id", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "updated_at", Value: 1}},
		},
	}

	_, err := m.collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	return nil
}

// ConnectMongoDB opens the shared client used by both document stores.
func ConnectMongoDB(ctx context.Context, uri, database string) (*mongo.Database, error) {
	clientOpts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(5 * time.Second).
		SetMaxPoolSize(100).
		SetMinPoolSize(10)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return client.Database(database), nil
}
