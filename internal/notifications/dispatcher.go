package notifications

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/Juanes-crypto/grupo-agro-backend/internal/domain"
)

const collectionNotifications = "notifications"

// Dispatcher is the fire-and-forget notification side channel. Callers treat
// delivery as best-effort: a Notify error is logged and discarded, it never
// rolls back the transition that produced the notification.
type Dispatcher interface {
	Notify(ctx context.Context, notification *domain.Notification) error
	ListByUser(ctx context.Context, userID string) ([]domain.Notification, error)
	MarkRead(ctx context.Context, id primitive.ObjectID, userID string) error
}

// MongoDispatcher stores notifications in a MongoDB collection
type MongoDispatcher struct {
	collection *mongo.Collection
	logger     *zap.Logger
}

// NewMongoDispatcher creates a dispatcher backed by the given Mongo client
func NewMongoDispatcher(client *mongo.Client, database string, logger *zap.Logger) *MongoDispatcher {
	return &MongoDispatcher{
		collection: client.Database(database).Collection(collectionNotifications),
		logger:     logger,
	}
}

func (d *MongoDispatcher) Notify(ctx context.Context, n *domain.Notification) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if n.ID.IsZero() {
		n.ID = primitive.NewObjectID()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}

	if _, err := d.collection.InsertOne(ctx, n); err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	return nil
}

func (d *MongoDispatcher) ListByUser(ctx context.Context, userID string) ([]domain.Notification, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := d.collection.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer cursor.Close(ctx)

	notifications := make([]domain.Notification, 0)
	if err := cursor.All(ctx, &notifications); err != nil {
		return nil, fmt.Errorf("failed to decode notifications: %w", err)
	}
	return notifications, nil
}

func (d *MongoDispatcher) MarkRead(ctx context.Context, id primitive.ObjectID, userID string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	result, err := d.collection.UpdateOne(ctx,
		bson.M{"_id": id, "user_id": userID},
		bson.M{"$set": bson.M{"is_read": true}},
	)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

// NopDispatcher discards notifications. Used when the Mongo side channel is
// disabled, and by tests.
type NopDispatcher struct{}

func (NopDispatcher) Notify(ctx context.Context, n *domain.Notification) error {
	return nil
}

func (NopDispatcher) ListByUser(ctx context.Context, userID string) ([]domain.Notification, error) {
	return []domain.Notification{}, nil
}

func (NopDispatcher) MarkRead(ctx context.Context, id primitive.ObjectID, userID string) error {
	return nil
}

var ErrNotificationNotFound = &domain.DomainError{Message: "notification not found"}
