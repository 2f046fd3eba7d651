package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"mkoval/runcoach-app/internal/domain"
)

// Error constants for the repository layer. A Get* miss is reported as
// ErrNotFound (never a panic or a wrapped driver error); a conditional-write
// rejection (unique index violation) is reported as ErrDuplicate so the
// service layer can surface it as a conflict instead of racing a
// read-then-write check.
var (
	ErrNotFound     = RepositoryError("not found")
	ErrDuplicate    = RepositoryError("duplicate key")
	ErrUpdateFailed = RepositoryError("update failed")
	ErrDeleteFailed = RepositoryError("delete failed")
)

// RepositoryError helps distinguish repository errors
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// Page bounds list reads. Zero Limit means the repository default.
type Page struct {
	Offset int64
	Limit  int64
}

// UserRepository defines the interface for interacting with user data.
// Email uniqueness (case-insensitive) is enforced here via a unique index on
// the lowered email.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByStravaAthleteID(ctx context.Context, athleteID int64) (*domain.User, error)
	Update(ctx context.Context, user *domain.User) error
	ListByRole(ctx context.Context, role domain.Role, page Page) ([]domain.User, error)
	ListByCoachID(ctx context.Context, coachID uuid.UUID, page Page) ([]domain.User, error)
}

// TrainingPlanRepository defines the interface for interacting with plan data.
type TrainingPlanRepository interface {
	Create(ctx context.Context, plan *domain.TrainingPlan) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.TrainingPlan, error)
	Update(ctx context.Context, plan *domain.TrainingPlan) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByCoachID(ctx context.Context, coachID uuid.UUID, page Page) ([]domain.TrainingPlan, error)
	ListByCustomerID(ctx context.Context, customerID uuid.UUID, page Page) ([]domain.TrainingPlan, error)
	ListAll(ctx context.Context, page Page) ([]domain.TrainingPlan, error)
}

// TrainingDayRepository defines the interface for interacting with the days
// of a plan. The (planId, weekDay) pair is unique so the entity-level
// schedule policy holds even across concurrent writers.
type TrainingDayRepository interface {
	Create(ctx context.Context, day *domain.TrainingDay) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.TrainingDay, error)
	ListByPlanID(ctx context.Context, planID uuid.UUID) ([]domain.TrainingDay, error)
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByPlanID(ctx context.Context, planID uuid.UUID) error
}

// TaskRepository stores personal to-do tasks.
type TaskRepository interface {
	Create(ctx context.Context, task *domain.Task) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error)
	ListByUserID(ctx context.Context, userID uuid.UUID, page Page) ([]domain.Task, error)
	Update(ctx context.Context, task *domain.Task) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// ConnectionRepository stores Strava OAuth connections, at most one per user.
type ConnectionRepository interface {
	// Upsert replaces any existing connection for conn.UserID.
	Upsert(ctx context.Context, conn *domain.StravaConnection) error
	GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.StravaConnection, error)
	Delete(ctx context.Context, userID uuid.UUID) error
}

// ActivityRepository stores ingested activities. Create must reject a
// duplicate (userId, stravaActivityId) pair with ErrDuplicate.
type ActivityRepository interface {
	Create(ctx context.Context, activity *domain.StravaActivity) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.StravaActivity, error)
	GetByExternalID(ctx context.Context, userID uuid.UUID, stravaActivityID int64) (*domain.StravaActivity, error)
	ListByUserID(ctx context.Context, userID uuid.UUID, page Page) ([]domain.StravaActivity, error)
	ListByDateRange(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]domain.StravaActivity, error)
}
