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

const trainingDayCollectionName = "training_days"

// mongoTrainingDayRepository implements repository.TrainingDayRepository.
type mongoTrainingDayRepository struct {
	collection *mongo.Collection
}

// NewMongoTrainingDayRepository creates a new instance of mongoTrainingDayRepository.
func NewMongoTrainingDayRepository(db *mongo.Database) repository.TrainingDayRepository {
	return &mongoTrainingDayRepository{
		collection: db.Collection(trainingDayCollectionName),
	}
}

// Create inserts a day. The unique (planId, weekDay) index backs up the
// entity-level one-workout-per-week-day policy against concurrent writers;
// a violation surfaces as ErrDuplicate.
func (r *mongoTrainingDayRepository) Create(ctx context.Context, day *domain.TrainingDay) error {
	if day.ID == uuid.Nil {
		day.ID = uuid.New()
	}
	now := time.Now().UTC()
	day.CreatedAt = now
	day.UpdatedAt = now

	_, err := r.collection.InsertOne(ctx, day)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrDuplicate
		}
		return err
	}
	return nil
}

// GetByID retrieves a day by id.
func (r *mongoTrainingDayRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.TrainingDay, error) {
	var day domain.TrainingDay
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&day)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &day, nil
}

// ListByPlanID retrieves all days of a plan.
func (r *mongoTrainingDayRepository) ListByPlanID(ctx context.Context, planID uuid.UUID) ([]domain.TrainingDay, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})

	cursor, err := r.collection.Find(ctx, bson.M{"planId": planID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	days := []domain.TrainingDay{}
	if err := cursor.All(ctx, &days); err != nil {
		return nil, err
	}
	return days, nil
}

// Delete removes a single day.
func (r *mongoTrainingDayRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// DeleteByPlanID removes all days of a plan. Idempotent: deleting the days
// of an already-cleared plan is not an error.
func (r *mongoTrainingDayRepository) DeleteByPlanID(ctx context.Context, planID uuid.UUID) error {
	_, err := r.collection.DeleteMany(ctx, bson.M{"planId": planID})
	return err
}

// EnsureTrainingDayIndexes creates necessary indexes for the days collection.
func EnsureTrainingDayIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "planId", Value: 1}, {Key: "weekDay", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}

	if _, err := collection.Indexes().CreateMany(ctx, indexes); err != nil {
		// Non-fatal; the service layer still checks the schedule policy.
	}
}
