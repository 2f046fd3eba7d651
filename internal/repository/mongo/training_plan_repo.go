// internal/repository/mongo/training_plan_repo.go
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

const trainingPlanCollectionName = "training_plans"

// mongoTrainingPlanRepository implements repository.TrainingPlanRepository.
type mongoTrainingPlanRepository struct {
	collection *mongo.Collection
}

// NewMongoTrainingPlanRepository creates a new instance of mongoTrainingPlanRepository.
func NewMongoTrainingPlanRepository(db *mongo.Database) repository.TrainingPlanRepository {
	return &mongoTrainingPlanRepository{
		collection: db.Collection(trainingPlanCollectionName),
	}
}

// Create inserts a new training plan.
func (r *mongoTrainingPlanRepository) Create(ctx context.Context, plan *domain.TrainingPlan) error {
	if plan.ID == uuid.Nil {
		plan.ID = uuid.New()
	}
	now := time.Now().UTC()
	plan.CreatedAt = now
	plan.UpdatedAt = now

	_, err := r.collection.InsertOne(ctx, plan)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrDuplicate
		}
		return err
	}
	return nil
}

// GetByID retrieves a plan by id.
func (r *mongoTrainingPlanRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.TrainingPlan, error) {
	var plan domain.TrainingPlan
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&plan)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &plan, nil
}

// Update replaces the stored plan document.
func (r *mongoTrainingPlanRepository) Update(ctx context.Context, plan *domain.TrainingPlan) error {
	plan.UpdatedAt = time.Now().UTC()

	result, err := r.collection.ReplaceOne(ctx, bson.M{"_id": plan.ID}, plan)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Delete removes a plan. Hard delete; the caller removes the plan's days.
func (r *mongoTrainingPlanRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// ListByCoachID retrieves plans authored by a coach.
func (r *mongoTrainingPlanRepository) ListByCoachID(ctx context.Context, coachID uuid.UUID, page repository.Page) ([]domain.TrainingPlan, error) {
	return r.list(ctx, bson.M{"coachId": coachID}, page)
}

// ListByCustomerID retrieves plans assigned to a customer.
func (r *mongoTrainingPlanRepository) ListByCustomerID(ctx context.Context, customerID uuid.UUID, page repository.Page) ([]domain.TrainingPlan, error) {
	return r.list(ctx, bson.M{"customerId": customerID}, page)
}

// ListAll retrieves every plan, for admin callers.
func (r *mongoTrainingPlanRepository) ListAll(ctx context.Context, page repository.Page) ([]domain.TrainingPlan, error) {
	return r.list(ctx, bson.M{}, page)
}

func (r *mongoTrainingPlanRepository) list(ctx context.Context, filter bson.M, page repository.Page) ([]domain.TrainingPlan, error) {
	limit := page.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "startDate", Value: -1}}).
		SetSkip(page.Offset).
		SetLimit(limit)

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	plans := []domain.TrainingPlan{}
	if err := cursor.All(ctx, &plans); err != nil {
		return nil, err
	}
	return plans, nil
}

// EnsureTrainingPlanIndexes creates necessary indexes for the plans collection.
func EnsureTrainingPlanIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "coachId", Value: 1}, {Key: "startDate", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "customerId", Value: 1}, {Key: "startDate", Value: -1}},
		},
	}

	if _, err := collection.Indexes().CreateMany(ctx, indexes); err != nil {
		// Non-fatal; queries fall back to collection scans.
	}
}
