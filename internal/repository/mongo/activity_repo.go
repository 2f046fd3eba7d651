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

const activityCollectionName = "strava_activities"

// mongoActivityRepository implements repository.ActivityRepository.
// Activities are append-only: there is deliberately no Update method.
type mongoActivityRepository struct {
	collection *mongo.Collection
}

// NewMongoActivityRepository creates a new instance of mongoActivityRepository.
func NewMongoActivityRepository(db *mongo.Database) repository.ActivityRepository {
	return &mongoActivityRepository{
		collection: db.Collection(activityCollectionName),
	}
}

// Create inserts an activity. The unique (userId, stravaActivityId) index is
// the dedup guarantee: re-syncing the same provider activity is rejected as
// ErrDuplicate instead of silently producing a second record.
func (r *mongoActivityRepository) Create(ctx context.Context, activity *domain.StravaActivity) error {
	if activity.ID == uuid.Nil {
		activity.ID = uuid.New()
	}
	if activity.CreatedAt.IsZero() {
		activity.CreatedAt = time.Now().UTC()
	}

	_, err := r.collection.InsertOne(ctx, activity)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrDuplicate
		}
		return err
	}
	return nil
}

// GetByID retrieves an activity by id.
func (r *mongoActivityRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.StravaActivity, error) {
	var activity domain.StravaActivity
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&activity)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &activity, nil
}

// GetByExternalID looks an activity up by its per-user dedup key.
func (r *mongoActivityRepository) GetByExternalID(ctx context.Context, userID uuid.UUID, stravaActivityID int64) (*domain.StravaActivity, error) {
	var activity domain.StravaActivity
	filter := bson.M{"userId": userID, "stravaActivityId": stravaActivityID}

	err := r.collection.FindOne(ctx, filter).Decode(&activity)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &activity, nil
}

// ListByUserID retrieves the user's activities, most recent first.
func (r *mongoActivityRepository) ListByUserID(ctx context.Context, userID uuid.UUID, page repository.Page) ([]domain.StravaActivity, error) {
	limit := page.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "startDate", Value: -1}}).
		SetSkip(page.Offset).
		SetLimit(limit)

	return r.find(ctx, bson.M{"userId": userID}, opts)
}

// ListByDateRange retrieves the user's activities within [from, to].
func (r *mongoActivityRepository) ListByDateRange(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]domain.StravaActivity, error) {
	filter := bson.M{
		"userId":    userID,
		"startDate": bson.M{"$gte": from, "$lte": to},
	}
	opts := options.Find().SetSort(bson.D{{Key: "startDate", Value: -1}})
	return r.find(ctx, filter, opts)
}

func (r *mongoActivityRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]domain.StravaActivity, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	activities := []domain.StravaActivity{}
	if err := cursor.All(ctx, &activities); err != nil {
		return nil, err
	}
	return activities, nil
}

// EnsureActivityIndexes creates necessary indexes for the activities collection.
func EnsureActivityIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "stravaActivityId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "userId", Value: 1}, {Key: "startDate", Value: -1}},
		},
	}

	if _, err := collection.Indexes().CreateMany(ctx, indexes); err != nil {
		// Non-fatal; dedup degrades to the service-level existence check.
	}
}
