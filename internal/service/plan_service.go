package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"mkoval/runcoach-app/internal/domain"
	"mkoval/runcoach-app/internal/repository"
)

// --- Service Interface ---

// CreatePlanInput carries the fields for a new training plan. CoachID is
// only honored when the caller is an admin creating a plan on a coach's
// behalf; coaches always author plans as themselves.
type CreatePlanInput struct {
	CustomerID uuid.UUID
	CoachID    uuid.UUID
	Goal       string
	Notes      string
	StartDate  time.Time
	EndDate    time.Time
}

// UpdatePlanInput overwrites the mutable plan fields.
type UpdatePlanInput struct {
	Goal      string
	Notes     string
	StartDate time.Time
	EndDate   time.Time
}

// AddTrainingDayInput carries the fields for a new workout slot.
type AddTrainingDayInput struct {
	WeekDay         domain.WeekDay
	Type            domain.TrainingType
	Intensity       domain.Intensity
	DurationMinutes int
	DistanceKm      float64
	Description     string
	Notes           string
}

// PlanService is the training-plan use case: plan lifecycle, per-day
// schedule management and the read projections for coaches and customers.
type PlanService interface {
	CreatePlan(ctx context.Context, caller Caller, input CreatePlanInput) (*domain.TrainingPlan, error)
	GetPlan(ctx context.Context, caller Caller, planID uuid.UUID) (*domain.TrainingPlan, error)
	UpdatePlan(ctx context.Context, caller Caller, planID uuid.UUID, input UpdatePlanInput) (*domain.TrainingPlan, error)
	DeletePlan(ctx context.Context, caller Caller, planID uuid.UUID) error
	SetPlanActive(ctx context.Context, caller Caller, planID uuid.UUID, active bool) (*domain.TrainingPlan, error)

	AddTrainingDay(ctx context.Context, caller Caller, planID uuid.UUID, input AddTrainingDayInput) (*domain.TrainingDay, error)
	RemoveTrainingDay(ctx context.Context, caller Caller, planID, dayID uuid.UUID) error

	ListPlansForCoach(ctx context.Context, caller Caller, coachID uuid.UUID, page repository.Page) ([]domain.TrainingPlan, error)
	ListPlansForCustomer(ctx context.Context, caller Caller, customerID uuid.UUID, page repository.Page) ([]domain.TrainingPlan, error)
	ListAllPlans(ctx context.Context, caller Caller, page repository.Page) ([]domain.TrainingPlan, error)
}

// --- Service Implementation ---

type planService struct {
	planRepo repository.TrainingPlanRepository
	dayRepo  repository.TrainingDayRepository
	userRepo repository.UserRepository
}

// NewPlanService creates a new instance of planService.
func NewPlanService(
	planRepo repository.TrainingPlanRepository,
	dayRepo repository.TrainingDayRepository,
	userRepo repository.UserRepository,
) PlanService {
	return &planService{
		planRepo: planRepo,
		dayRepo:  dayRepo,
		userRepo: userRepo,
	}
}

// CreatePlan creates a plan for a customer. A coach may only plan for
// customers currently assigned to them; an admin may plan on any coach's
// behalf by setting input.CoachID.
func (s *planService) CreatePlan(ctx context.Context, caller Caller, input CreatePlanInput) (*domain.TrainingPlan, error) {
	var coachID uuid.UUID
	switch {
	case caller.Role == domain.RoleCoach:
		coachID = caller.ID
	case caller.IsAdmin():
		if input.CoachID == uuid.Nil {
			return nil, fmt.Errorf("%w: coach id is required", domain.ErrValidation)
		}
		coachID = input.CoachID
	default:
		return nil, ErrAccessDenied
	}

	customer, err := s.userRepo.GetByID(ctx, input.CustomerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCustomerNotFound
		}
		return nil, err
	}
	if !customer.IsCustomer() {
		return nil, ErrCustomerNotFound
	}
	if !customer.HasCoach(coachID) {
		// Reported as not-found so a coach cannot probe foreign customer ids.
		return nil, ErrCustomerNotAssigned
	}

	now := time.Now().UTC()
	plan := &domain.TrainingPlan{
		ID:         uuid.New(),
		CoachID:    coachID,
		CustomerID: customer.ID,
		Goal:       input.Goal,
		Notes:      input.Notes,
		StartDate:  input.StartDate,
		EndDate:    input.EndDate,
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := plan.Validate(); err != nil {
		return nil, err
	}

	if err := s.planRepo.Create(ctx, plan); err != nil {
		return nil, err
	}
	return plan, nil
}

// GetPlan returns the plan with its days attached. Visible only to the
// owning coach, the plan's customer and admins; everybody else gets the
// same not-found error as a nonexistent id.
func (s *planService) GetPlan(ctx context.Context, caller Caller, planID uuid.UUID) (*domain.TrainingPlan, error) {
	plan, err := s.getVisiblePlan(ctx, caller, planID)
	if err != nil {
		return nil, err
	}
	return s.attachDays(ctx, plan)
}

// UpdatePlan overwrites the plan's mutable fields. Only the owning coach or
// an admin may edit; the plan's customer can view but not edit and gets an
// explicit authorization error.
func (s *planService) UpdatePlan(ctx context.Context, caller Caller, planID uuid.UUID, input UpdatePlanInput) (*domain.TrainingPlan, error) {
	plan, err := s.getEditablePlan(ctx, caller, planID)
	if err != nil {
		return nil, err
	}

	if err := plan.UpdateInfo(input.Goal, input.Notes, input.StartDate, input.EndDate); err != nil {
		return nil, err
	}
	plan.UpdatedAt = time.Now().UTC()

	if err := s.planRepo.Update(ctx, plan); err != nil {
		return nil, err
	}
	return s.attachDays(ctx, plan)
}

// DeletePlan removes the plan and all its days. Days go first so a crash in
// between never leaves orphaned days behind a live plan.
func (s *planService) DeletePlan(ctx context.Context, caller Caller, planID uuid.UUID) error {
	plan, err := s.getEditablePlan(ctx, caller, planID)
	if err != nil {
		return err
	}

	if err := s.dayRepo.DeleteByPlanID(ctx, plan.ID); err != nil {
		return err
	}
	if err := s.planRepo.Delete(ctx, plan.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil // already gone, delete is idempotent
		}
		return err
	}
	return nil
}

// SetPlanActive flips the plan's active flag.
func (s *planService) SetPlanActive(ctx context.Context, caller Caller, planID uuid.UUID, active bool) (*domain.TrainingPlan, error) {
	plan, err := s.getEditablePlan(ctx, caller, planID)
	if err != nil {
		return nil, err
	}

	if active {
		plan.Activate()
	} else {
		plan.Deactivate()
	}
	plan.UpdatedAt = time.Now().UTC()

	if err := s.planRepo.Update(ctx, plan); err != nil {
		return nil, err
	}
	return plan, nil
}

// AddTrainingDay schedules a workout slot on the plan. The in-memory check
// catches a same-week-day conflict against the loaded schedule; the unique
// index behind dayRepo.Create catches the concurrent-writer race.
func (s *planService) AddTrainingDay(ctx context.Context, caller Caller, planID uuid.UUID, input AddTrainingDayInput) (*domain.TrainingDay, error) {
	plan, err := s.getEditablePlan(ctx, caller, planID)
	if err != nil {
		return nil, err
	}
	if _, err := s.attachDays(ctx, plan); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	day := domain.TrainingDay{
		ID:              uuid.New(),
		PlanID:          plan.ID,
		WeekDay:         input.WeekDay,
		Type:            input.Type,
		Intensity:       input.Intensity,
		DurationMinutes: input.DurationMinutes,
		DistanceKm:      input.DistanceKm,
		Description:     input.Description,
		Notes:           input.Notes,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := plan.AddDay(day); err != nil {
		return nil, err
	}

	if err := s.dayRepo.Create(ctx, &day); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("%w: plan already has a workout on %s", domain.ErrConflict, day.WeekDay)
		}
		return nil, err
	}
	return &day, nil
}

// RemoveTrainingDay deletes a workout slot. The day must belong to the given
// plan; a day id under a different plan reads as not-found.
func (s *planService) RemoveTrainingDay(ctx context.Context, caller Caller, planID, dayID uuid.UUID) error {
	plan, err := s.getEditablePlan(ctx, caller, planID)
	if err != nil {
		return err
	}

	day, err := s.dayRepo.GetByID(ctx, dayID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrDayNotFound
		}
		return err
	}
	if day.PlanID != plan.ID {
		return ErrDayNotFound
	}

	if err := s.dayRepo.Delete(ctx, dayID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return err
	}
	return nil
}

// ListPlansForCoach returns the plans a coach authored. Only that coach or
// an admin may list them.
func (s *planService) ListPlansForCoach(ctx context.Context, caller Caller, coachID uuid.UUID, page repository.Page) ([]domain.TrainingPlan, error) {
	if !caller.IsAdmin() && !(caller.Role == domain.RoleCoach && caller.Is(coachID)) {
		return nil, ErrAccessDenied
	}
	return s.planRepo.ListByCoachID(ctx, coachID, page)
}

// ListPlansForCustomer returns the plans written for a customer. Visible to
// the customer themselves, their current coach, and admins.
func (s *planService) ListPlansForCustomer(ctx context.Context, caller Caller, customerID uuid.UUID, page repository.Page) ([]domain.TrainingPlan, error) {
	switch {
	case caller.IsAdmin():
	case caller.Is(customerID):
	case caller.Role == domain.RoleCoach:
		customer, err := s.userRepo.GetByID(ctx, customerID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, ErrCustomerNotFound
			}
			return nil, err
		}
		if !customer.IsCustomer() || !customer.HasCoach(caller.ID) {
			return nil, ErrCustomerNotAssigned
		}
	default:
		return nil, ErrAccessDenied
	}
	return s.planRepo.ListByCustomerID(ctx, customerID, page)
}

// ListAllPlans returns every plan in the system. Admin only.
func (s *planService) ListAllPlans(ctx context.Context, caller Caller, page repository.Page) ([]domain.TrainingPlan, error) {
	if !caller.IsAdmin() {
		return nil, ErrAccessDenied
	}
	return s.planRepo.ListAll(ctx, page)
}

// getVisiblePlan loads a plan if the caller may read it. An unrelated caller
// cannot distinguish a hidden plan from a missing one.
func (s *planService) getVisiblePlan(ctx context.Context, caller Caller, planID uuid.UUID) (*domain.TrainingPlan, error) {
	plan, err := s.planRepo.GetByID(ctx, planID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, err
	}
	if caller.IsAdmin() || plan.IsOwnedBy(caller.ID) || caller.Is(plan.CustomerID) {
		return plan, nil
	}
	return nil, ErrPlanNotFound
}

// getEditablePlan loads a plan if the caller may mutate it. The plan's
// customer gets an authorization error (they already know the plan exists);
// everyone else unrelated gets not-found.
func (s *planService) getEditablePlan(ctx context.Context, caller Caller, planID uuid.UUID) (*domain.TrainingPlan, error) {
	plan, err := s.planRepo.GetByID(ctx, planID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, err
	}
	switch {
	case caller.IsAdmin(), plan.IsOwnedBy(caller.ID) && caller.Role == domain.RoleCoach:
		return plan, nil
	case caller.Is(plan.CustomerID):
		return nil, ErrAccessDenied
	default:
		return nil, ErrPlanNotFound
	}
}

func (s *planService) attachDays(ctx context.Context, plan *domain.TrainingPlan) (*domain.TrainingPlan, error) {
	days, err := s.dayRepo.ListByPlanID(ctx, plan.ID)
	if err != nil {
		return nil, err
	}
	plan.Days = days
	return plan, nil
}
