package mongo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"mkoval/runcoach-app/internal/domain"
	"mkoval/runcoach-app/internal/repository"
)

const connectionCollectionName = "strava_connections"

// mongoConnectionRepository implements repository.ConnectionRepository.
type mongoConnectionRepository struct {
	collection *mongo.Collection
}

// NewMongoConnectionRepository creates a new instance of mongoConnectionRepository.
func NewMongoConnectionRepository(db *mongo.Database) repository.ConnectionRepository {
	return &mongoConnectionRepository{
		collection: db.Collection(connectionCollectionName),
	}
}

// Upsert stores the connection keyed by user, replacing any previous one.
// The unique userId index makes "at most one active connection per user" a
// property of the store, not of request interleaving.
func (r *mongoConnectionRepository) Upsert(ctx context.Context, conn *domain.StravaConnection) error {
	if conn.ID == uuid.Nil {
		conn.ID = uuid.New()
	}
	if conn.ConnectedAt.IsZero() {
		conn.ConnectedAt = time.Now().UTC()
	}

	filter := bson.M{"userId": conn.UserID}
	update := bson.M{
		"$set": bson.M{
			"athleteId":    conn.AthleteID,
			"accessToken":  conn.AccessToken,
			"refreshToken": conn.RefreshToken,
			"expiresAt":    conn.ExpiresAt,
			"scope":        conn.Scope,
			"status":       conn.Status,
			"connectedAt":  conn.ConnectedAt,
			"lastSyncAt":   conn.LastSyncAt,
		},
		"$setOnInsert": bson.M{"_id": conn.ID},
	}

	_, err := r.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrDuplicate
		}
		return err
	}
	return nil
}

// GetByUserID retrieves the user's connection.
func (r *mongoConnectionRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.StravaConnection, error) {
	var conn domain.StravaConnection
	err := r.collection.FindOne(ctx, bson.M{"userId": userID}).Decode(&conn)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &conn, nil
}

// Delete removes the user's connection. Idempotent: deleting an absent
// connection is not an error.
func (r *mongoConnectionRepository) Delete(ctx context.Context, userID uuid.UUID) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"userId": userID})
	return err
}

// EnsureConnectionIndexes creates necessary indexes for the connections collection.
func EnsureConnectionIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "userId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "athleteId", Value: 1}},
		},
	}

	if _, err := collection.Indexes().CreateMany(ctx, indexes); err != nil {
		// Non-fatal.
	}
}
