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

const taskCollectionName = "tasks"

// mongoTaskRepository implements repository.TaskRepository.
type mongoTaskRepository struct {
	collection *mongo.Collection
}

// NewMongoTaskRepository creates a new instance of mongoTaskRepository.
func NewMongoTaskRepository(db *mongo.Database) repository.TaskRepository {
	return &mongoTaskRepository{
		collection: db.Collection(taskCollectionName),
	}
}

// Create inserts a task.
func (r *mongoTaskRepository) Create(ctx context.Context, task *domain.Task) error {
	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}
	now := time.Now().UTC()
	task.CreatedAt = now
	task.UpdatedAt = now

	_, err := r.collection.InsertOne(ctx, task)
	return err
}

// GetByID retrieves a task by id.
func (r *mongoTaskRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	var task domain.Task
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&task)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &task, nil
}

// ListByUserID retrieves a user's tasks, newest first.
func (r *mongoTaskRepository) ListByUserID(ctx context.Context, userID uuid.UUID, page repository.Page) ([]domain.Task, error) {
	limit := page.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(page.Offset).
		SetLimit(limit)

	cursor, err := r.collection.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	tasks := []domain.Task{}
	if err := cursor.All(ctx, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// Update replaces the stored task document.
func (r *mongoTaskRepository) Update(ctx context.Context, task *domain.Task) error {
	task.UpdatedAt = time.Now().UTC()

	result, err := r.collection.ReplaceOne(ctx, bson.M{"_id": task.ID}, task)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Delete removes a task.
func (r *mongoTaskRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// EnsureTaskIndexes creates necessary indexes for the tasks collection.
func EnsureTaskIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}},
		},
	}

	if _, err := collection.Indexes().CreateMany(ctx, indexes); err != nil {
		// Non-fatal; listing degrades to an unindexed scan.
	}
}
