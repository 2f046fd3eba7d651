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

const userCollectionName = "users"

const defaultListLimit = 100

// mongoUserRepository implements the repository.UserRepository interface using MongoDB.
type mongoUserRepository struct {
	collection *mongo.Collection
}

// NewMongoUserRepository creates a new instance of mongoUserRepository.
// It expects a connected *mongo.Database instance.
func NewMongoUserRepository(db *mongo.Database) repository.UserRepository {
	return &mongoUserRepository{
		collection: db.Collection(userCollectionName),
	}
}

// Create inserts a new user. Emails are stored lowercase; the unique index
// on email turns the insert into a conditional write, so a concurrent
// registration with the same address surfaces as ErrDuplicate rather than a
// read-then-write race.
func (r *mongoUserRepository) Create(ctx context.Context, user *domain.User) error {
	if user.Email == "" || user.PasswordHash == "" || user.Role == "" {
		return errors.New("user email, password hash, and role are required")
	}

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	user.Email = domain.NormalizeEmail(user.Email)
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := r.collection.InsertOne(ctx, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrDuplicate
		}
		return err
	}
	return nil
}

// GetByID retrieves a user by id.
func (r *mongoUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	var user domain.User
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetByEmail retrieves a user by email, case-insensitively.
func (r *mongoUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var user domain.User
	filter := bson.M{"email": domain.NormalizeEmail(email)}

	err := r.collection.FindOne(ctx, filter).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetByStravaAthleteID resolves the owner of an external athlete account,
// used when a webhook event only carries the provider-side id.
func (r *mongoUserRepository) GetByStravaAthleteID(ctx context.Context, athleteID int64) (*domain.User, error) {
	var user domain.User
	filter := bson.M{"stravaAthleteId": athleteID}

	err := r.collection.FindOne(ctx, filter).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// Update replaces the stored user document. The role tag never changes after
// creation, so the replace keeps whatever role the document was created with.
func (r *mongoUserRepository) Update(ctx context.Context, user *domain.User) error {
	user.Email = domain.NormalizeEmail(user.Email)
	user.UpdatedAt = time.Now().UTC()

	filter := bson.M{"_id": user.ID, "role": user.Role}
	result, err := r.collection.ReplaceOne(ctx, filter, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrDuplicate
		}
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// ListByRole retrieves users carrying the given role tag.
func (r *mongoUserRepository) ListByRole(ctx context.Context, role domain.Role, page repository.Page) ([]domain.User, error) {
	filter := bson.M{"role": role}
	return r.list(ctx, filter, page)
}

// ListByCoachID retrieves all customers currently assigned to a coach.
// A lookup relation maintained by query, not an embedded collection.
func (r *mongoUserRepository) ListByCoachID(ctx context.Context, coachID uuid.UUID, page repository.Page) ([]domain.User, error) {
	filter := bson.M{"role": domain.RoleCustomer, "coachId": coachID}
	return r.list(ctx, filter, page)
}

func (r *mongoUserRepository) list(ctx context.Context, filter bson.M, page repository.Page) ([]domain.User, error) {
	limit := page.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: 1}}).
		SetSkip(page.Offset).
		SetLimit(limit)

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	users := []domain.User{}
	if err := cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// EnsureUserIndexes creates necessary indexes for the users collection.
// Call this once during application startup.
func EnsureUserIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "role", Value: 1}},
		},
		{
			Keys:    bson.D{{Key: "coachId", Value: 1}},
			Options: options.Index().SetSparse(true),
		},
		{
			Keys:    bson.D{{Key: "stravaAthleteId", Value: 1}},
			Options: options.Index().SetSparse(true),
		},
	}

	if _, err := collection.Indexes().CreateMany(ctx, indexes); err != nil {
		// Index creation failure is not fatal here; uniqueness violations
		// will still surface on write in misconfigured environments.
	}
}
