package orders

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

// demandStatuses are the order states whose quantities feed the
// availability correlation. Confirmed and canceled orders are included
// on purpose; the correlation heuristic depends on seeing them.
var demandStatuses = []domain.OrderStatus{
	domain.OrderStatusPaymentPending,
	domain.OrderStatusPaymentConfirmed,
	domain.OrderStatusCanceled,
}

type mongoStore struct {
	collection *mongo.Collection
}

func NewMongoStore(db *mongo.Database) OrderStore {
	return &mongoStore{
		collection: db.Collection("orders"),
	}
}

func (m *mongoStore) Create(ctx context.Context, order *domain.Order) error {
	now := time.Now()
	if order.OrderID == "" {
		order.OrderID = domain.NewOrderID(now)
	}
	if order.Status == "" {
		order.Status = domain.OrderStatusPaymentPending
	}
	order.CreatedAt = now
	order.UpdatedAt = now

	_, err := m.collection.InsertOne(ctx, order)
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

func (m *mongoStore) Get(ctx context.Context, orderID string) (*domain.Order, error) {
	var order domain.Order

	err := m.collection.FindOne(ctx, bson.M{"_id": orderID}).Decode(&order)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	return &order, nil
}

func (m *mongoStore) PendingDemand(ctx context.Context, productID string) (map[string]int, error) {
	filter := bson.M{
		"items.product_id": productID,
		"status":           bson.M{"$in": demandStatuses},
	}

	cursor, err := m.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending orders: %w", err)
	}
	defer cursor.Close(ctx)

	demand := make(map[string]int)
	for cursor.Next(ctx) {
		var order domain.Order
		if err := cursor.Decode(&order); err != nil {
			return nil, fmt.Errorf("failed to decode order: %w", err)
		}
		for _, item := range order.Items {
			if item.ProductID == productID {
				demand[order.SessionID] += item.Quantity
			}
		}
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("pending order cursor failed: %w", err)
	}

	return demand, nil
}

func (m *mongoStore) TransitionStatus(ctx context.Context, orderID string, next domain.OrderStatus) (*domain.Order, error) {
	current, err := m.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !domain.CanTransitionTo(current.Status, next) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.Status, next)
	}

	// Filter on the status we read so a racing transition loses cleanly
	// instead of applying twice.
	filter := bson.M{"_id": orderID, "status": current.Status}
	update := bson.M{"$set": bson.M{
		"status":     next,
		"updated_at": time.Now(),
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated domain.Order
	err = m.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: order %s moved concurrently", ErrInvalidTransition, orderID)
		}
		return nil, fmt.Errorf("failed to transition order: %w", err)
	}

	return &updated, nil
}

func (m *mongoStore) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "items.product_id", Value: 1}, {Key: "status", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "session_id", Value: 1}},
		},
	}

	_, err := m.collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	return nil
}
