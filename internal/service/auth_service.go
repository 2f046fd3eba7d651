package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"mkoval/runcoach-app/internal/auth"
	"mkoval/runcoach-app/internal/domain"
	"mkoval/runcoach-app/internal/repository"
)

// --- Service Interface ---

// RegisterCoachInput carries everything needed to create a coach account.
type RegisterCoachInput struct {
	Name        string
	Nickname    string
	Email       string
	Password    string
	Phone       string
	DateOfBirth time.Time
	Specialty   string
	Bio         string
}

// RegisterCustomerInput carries everything needed to create a customer account.
type RegisterCustomerInput struct {
	Name               string
	Nickname           string
	Email              string
	Password           string
	Phone              string
	DateOfBirth        time.Time
	RunnerLevel        domain.RunnerLevel
	WeeklyAvailability int
	ChallengeNextMonth string
}

// UpdateCoachProfileInput updates the mutable coach fields. Nil means keep.
type UpdateCoachProfileInput struct {
	Name      *string
	Nickname  *string
	Phone     *string
	Specialty *string
	Bio       *string
}

// UpdateCustomerProfileInput updates the mutable customer fields. Nil means keep.
type UpdateCustomerProfileInput struct {
	Name               *string
	Nickname           *string
	Phone              *string
	RunnerLevel        *domain.RunnerLevel
	WeeklyAvailability *int
	ChallengeNextMonth *string
}

// AuthService is the authentication and authorization use case: account
// registration, login, token resolution and the coach/customer pairing.
type AuthService interface {
	RegisterCoach(ctx context.Context, input RegisterCoachInput) (*domain.User, error)
	RegisterCustomer(ctx context.Context, input RegisterCustomerInput) (*domain.User, error)
	Login(ctx context.Context, email, password string) (token string, user *domain.User, err error)
	ResolveCurrentUser(ctx context.Context, token string) (auth.Identity, error)

	AssignCoachToCustomer(ctx context.Context, caller Caller, customerID, coachID uuid.UUID) (*domain.User, error)
	ListCoaches(ctx context.Context, page repository.Page) ([]domain.User, error)
	ListCustomersForCoach(ctx context.Context, caller Caller, coachID uuid.UUID, page repository.Page) ([]domain.User, error)
	ListCustomers(ctx context.Context, caller Caller, page repository.Page) ([]domain.User, error)

	UpdateCoachProfile(ctx context.Context, caller Caller, input UpdateCoachProfileInput) (*domain.User, error)
	UpdateCustomerProfile(ctx context.Context, caller Caller, input UpdateCustomerProfileInput) (*domain.User, error)
	DeactivateUser(ctx context.Context, caller Caller, userID uuid.UUID) error
}

// --- Service Implementation ---

// authService implements the AuthService interface.
type authService struct {
	userRepo repository.UserRepository
	authSvc  auth.Service
}

// NewAuthService creates a new instance of authService.
func NewAuthService(userRepo repository.UserRepository, authSvc auth.Service) AuthService {
	return &authService{
		userRepo: userRepo,
		authSvc:  authSvc,
	}
}

// RegisterCoach creates a new coach account.
func (s *authService) RegisterCoach(ctx context.Context, input RegisterCoachInput) (*domain.User, error) {
	user := &domain.User{
		Name:        input.Name,
		Nickname:    input.Nickname,
		Email:       input.Email,
		Phone:       input.Phone,
		DateOfBirth: input.DateOfBirth,
		Role:        domain.RoleCoach,
		Specialty:   input.Specialty,
		Bio:         input.Bio,
	}
	return s.register(ctx, user, input.Password)
}

// RegisterCustomer creates a new customer account.
func (s *authService) RegisterCustomer(ctx context.Context, input RegisterCustomerInput) (*domain.User, error) {
	if input.WeeklyAvailability < 0 || input.WeeklyAvailability > 7 {
		return nil, fmt.Errorf("%w: weekly availability must be between 0 and 7", domain.ErrValidation)
	}
	if !input.RunnerLevel.Valid() {
		return nil, fmt.Errorf("%w: unknown runner level %q", domain.ErrValidation, input.RunnerLevel)
	}
	user := &domain.User{
		Name:               input.Name,
		Nickname:           input.Nickname,
		Email:              input.Email,
		Phone:              input.Phone,
		DateOfBirth:        input.DateOfBirth,
		Role:               domain.RoleCustomer,
		RunnerLevel:        input.RunnerLevel,
		WeeklyAvailability: input.WeeklyAvailability,
		ChallengeNextMonth: input.ChallengeNextMonth,
	}
	return s.register(ctx, user, input.Password)
}

// register hashes the credential, then relies on the repository's
// conditional write for email uniqueness. The plaintext password is never
// stored or logged.
func (s *authService) register(ctx context.Context, user *domain.User, plaintext string) (*domain.User, error) {
	if user.Name == "" || user.Email == "" || plaintext == "" {
		return nil, fmt.Errorf("%w: name, email and password are required", domain.ErrValidation)
	}

	// Early check for a friendlier error; the unique index still catches
	// the register/register race below.
	if _, err := s.userRepo.GetByEmail(ctx, user.Email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	hash, err := s.authSvc.HashPassword(plaintext)
	if err != nil {
		return nil, err
	}
	user.PasswordHash = hash
	user.IsActive = true

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	user.PasswordHash = ""
	return user, nil
}

// Login authenticates a user and mints a signed, time-limited token.
// Every failure mode collapses into the same generic error so callers
// cannot enumerate registered emails.
func (s *authService) Login(ctx context.Context, email, password string) (string, *domain.User, error) {
	if email == "" || password == "" {
		return "", nil, ErrInvalidCredentials
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}

	if !user.IsActive {
		return "", nil, ErrInvalidCredentials
	}
	if !s.authSvc.VerifyPassword(password, user.PasswordHash) {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.authSvc.IssueToken(user.ID, user.Role)
	if err != nil {
		return "", nil, err
	}

	user.PasswordHash = ""
	return token, user, nil
}

// ResolveCurrentUser verifies signature and expiry of the token. It does not
// re-hit the repository: the active flag is checked at login, and tokens are
// short-lived enough that a deactivation takes effect at the next login.
func (s *authService) ResolveCurrentUser(ctx context.Context, token string) (auth.Identity, error) {
	return s.authSvc.VerifyToken(token)
}

// AssignCoachToCustomer pairs a customer with a coach. Only the customer
// themselves or an admin may do it; reassignment replaces the previous coach.
func (s *authService) AssignCoachToCustomer(ctx context.Context, caller Caller, customerID, coachID uuid.UUID) (*domain.User, error) {
	if !caller.IsAdmin() && !caller.Is(customerID) {
		return nil, ErrAccessDenied
	}

	customer, err := s.getUserWithRole(ctx, customerID, domain.RoleCustomer, ErrCustomerNotFound)
	if err != nil {
		return nil, err
	}
	if _, err := s.getUserWithRole(ctx, coachID, domain.RoleCoach, ErrCoachNotFound); err != nil {
		return nil, err
	}

	if err := customer.AssignCoach(coachID); err != nil {
		return nil, err
	}
	if err := s.userRepo.Update(ctx, customer); err != nil {
		return nil, err
	}

	customer.PasswordHash = ""
	return customer, nil
}

// ListCoaches is a public read projection of all coaches.
func (s *authService) ListCoaches(ctx context.Context, page repository.Page) ([]domain.User, error) {
	coaches, err := s.userRepo.ListByRole(ctx, domain.RoleCoach, page)
	if err != nil {
		return nil, err
	}
	return stripHashes(coaches), nil
}

// ListCustomersForCoach returns the customers assigned to a coach. Only that
// coach or an admin may look.
func (s *authService) ListCustomersForCoach(ctx context.Context, caller Caller, coachID uuid.UUID, page repository.Page) ([]domain.User, error) {
	if !caller.IsAdmin() && !(caller.Role == domain.RoleCoach && caller.Is(coachID)) {
		return nil, ErrAccessDenied
	}
	customers, err := s.userRepo.ListByCoachID(ctx, coachID, page)
	if err != nil {
		return nil, err
	}
	return stripHashes(customers), nil
}

// ListCustomers returns all customers. Admin only.
func (s *authService) ListCustomers(ctx context.Context, caller Caller, page repository.Page) ([]domain.User, error) {
	if !caller.IsAdmin() {
		return nil, ErrAccessDenied
	}
	customers, err := s.userRepo.ListByRole(ctx, domain.RoleCustomer, page)
	if err != nil {
		return nil, err
	}
	return stripHashes(customers), nil
}

// UpdateCoachProfile updates the caller's own coach profile.
func (s *authService) UpdateCoachProfile(ctx context.Context, caller Caller, input UpdateCoachProfileInput) (*domain.User, error) {
	coach, err := s.getUserWithRole(ctx, caller.ID, domain.RoleCoach, ErrCoachNotFound)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		coach.Name = *input.Name
	}
	if input.Nickname != nil {
		coach.Nickname = *input.Nickname
	}
	if input.Phone != nil {
		coach.Phone = *input.Phone
	}
	if input.Specialty != nil {
		coach.Specialty = *input.Specialty
	}
	if input.Bio != nil {
		coach.Bio = *input.Bio
	}

	if err := s.userRepo.Update(ctx, coach); err != nil {
		return nil, err
	}
	coach.PasswordHash = ""
	return coach, nil
}

// UpdateCustomerProfile updates the caller's own customer profile.
func (s *authService) UpdateCustomerProfile(ctx context.Context, caller Caller, input UpdateCustomerProfileInput) (*domain.User, error) {
	customer, err := s.getUserWithRole(ctx, caller.ID, domain.RoleCustomer, ErrCustomerNotFound)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		customer.Name = *input.Name
	}
	if input.Nickname != nil {
		customer.Nickname = *input.Nickname
	}
	if input.Phone != nil {
		customer.Phone = *input.Phone
	}
	if input.RunnerLevel != nil {
		if !input.RunnerLevel.Valid() {
			return nil, fmt.Errorf("%w: unknown runner level %q", domain.ErrValidation, *input.RunnerLevel)
		}
		customer.RunnerLevel = *input.RunnerLevel
	}
	if input.WeeklyAvailability != nil {
		if *input.WeeklyAvailability < 0 || *input.WeeklyAvailability > 7 {
			return nil, fmt.Errorf("%w: weekly availability must be between 0 and 7", domain.ErrValidation)
		}
		customer.WeeklyAvailability = *input.WeeklyAvailability
	}
	if input.ChallengeNextMonth != nil {
		customer.ChallengeNextMonth = *input.ChallengeNextMonth
	}

	if err := s.userRepo.Update(ctx, customer); err != nil {
		return nil, err
	}
	customer.PasswordHash = ""
	return customer, nil
}

// DeactivateUser disables an account. Admin only; login rejects inactive
// accounts from then on.
func (s *authService) DeactivateUser(ctx context.Context, caller Caller, userID uuid.UUID) error {
	if !caller.IsAdmin() {
		return ErrAccessDenied
	}
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	user.Deactivate()
	return s.userRepo.Update(ctx, user)
}

// getUserWithRole loads a user and confirms the role tag, mapping a miss or
// a role mismatch to the given not-found error so probing ids leaks nothing.
func (s *authService) getUserWithRole(ctx context.Context, id uuid.UUID, role domain.Role, notFound error) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound
		}
		return nil, err
	}
	if user.Role != role {
		return nil, notFound
	}
	return user, nil
}

func stripHashes(users []domain.User) []domain.User {
	for i := range users {
		users[i].PasswordHash = ""
	}
	return users
}
