package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"mkoval/runcoach-app/internal/domain"
	"mkoval/runcoach-app/internal/repository"
	"mkoval/runcoach-app/internal/storage"
	"mkoval/runcoach-app/internal/strava"
)

// In-memory fakes for the repository and provider boundaries. They enforce
// the same conditional-write behavior as the real Mongo implementations
// (duplicate email, duplicate week day, duplicate activity id) so service
// tests exercise the conflict paths.

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uuid.UUID]domain.User)}
}

func (r *fakeUserRepo) Create(ctx context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	email := domain.NormalizeEmail(user.Email)
	for _, u := range r.users {
		if u.Email == email {
			return repository.ErrDuplicate
		}
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	user.Email = email
	user.CreatedAt = time.Now().UTC()
	r.users[user.ID] = *user
	return nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	email = domain.NormalizeEmail(email)
	for _, u := range r.users {
		if u.Email == email {
			u := u
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeUserRepo) GetByStravaAthleteID(ctx context.Context, athleteID int64) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.StravaAthleteID == athleteID {
			u := u
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeUserRepo) Update(ctx context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.users[user.ID]
	if !ok || existing.Role != user.Role {
		return repository.ErrNotFound
	}
	r.users[user.ID] = *user
	return nil
}

func (r *fakeUserRepo) ListByRole(ctx context.Context, role domain.Role, page repository.Page) ([]domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.User{}
	for _, u := range r.users {
		if u.Role == role {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r *fakeUserRepo) ListByCoachID(ctx context.Context, coachID uuid.UUID, page repository.Page) ([]domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.User{}
	for _, u := range r.users {
		if u.Role == domain.RoleCustomer && u.CoachID != nil && *u.CoachID == coachID {
			out = append(out, u)
		}
	}
	return out, nil
}

type fakePlanRepo struct {
	mu    sync.Mutex
	plans map[uuid.UUID]domain.TrainingPlan
}

func newFakePlanRepo() *fakePlanRepo {
	return &fakePlanRepo{plans: make(map[uuid.UUID]domain.TrainingPlan)}
}

func (r *fakePlanRepo) Create(ctx context.Context, plan *domain.TrainingPlan) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.plans[plan.ID] = *plan
	return nil
}

func (r *fakePlanRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.TrainingPlan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.plans[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	p.Days = nil
	return &p, nil
}

func (r *fakePlanRepo) Update(ctx context.Context, plan *domain.TrainingPlan) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.plans[plan.ID]; !ok {
		return repository.ErrNotFound
	}
	stored := *plan
	stored.Days = nil
	r.plans[plan.ID] = stored
	return nil
}

func (r *fakePlanRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.plans[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.plans, id)
	return nil
}

func (r *fakePlanRepo) ListByCoachID(ctx context.Context, coachID uuid.UUID, page repository.Page) ([]domain.TrainingPlan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.TrainingPlan{}
	for _, p := range r.plans {
		if p.CoachID == coachID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakePlanRepo) ListByCustomerID(ctx context.Context, customerID uuid.UUID, page repository.Page) ([]domain.TrainingPlan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.TrainingPlan{}
	for _, p := range r.plans {
		if p.CustomerID == customerID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakePlanRepo) ListAll(ctx context.Context, page repository.Page) ([]domain.TrainingPlan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.TrainingPlan{}
	for _, p := range r.plans {
		out = append(out, p)
	}
	return out, nil
}

type fakeTaskRepo struct {
	mu    sync.Mutex
	tasks map[uuid.UUID]domain.Task
}

func newFakeTaskRepo() *fakeTaskRepo {
	return &fakeTaskRepo{tasks: make(map[uuid.UUID]domain.Task)}
}

func (r *fakeTaskRepo) Create(ctx context.Context, task *domain.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks[task.ID] = *task
	return nil
}

func (r *fakeTaskRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &t, nil
}

func (r *fakeTaskRepo) ListByUserID(ctx context.Context, userID uuid.UUID, page repository.Page) ([]domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.Task{}
	for _, t := range r.tasks {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *fakeTaskRepo) Update(ctx context.Context, task *domain.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tasks[task.ID]; !ok {
		return repository.ErrNotFound
	}
	r.tasks[task.ID] = *task
	return nil
}

func (r *fakeTaskRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tasks[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.tasks, id)
	return nil
}

type fakeDayRepo struct {
	mu   sync.Mutex
	days map[uuid.UUID]domain.TrainingDay
}

func newFakeDayRepo() *fakeDayRepo {
	return &fakeDayRepo{days: make(map[uuid.UUID]domain.TrainingDay)}
}

func (r *fakeDayRepo) Create(ctx context.Context, day *domain.TrainingDay) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.days {
		if d.PlanID == day.PlanID && d.WeekDay == day.WeekDay {
			return repository.ErrDuplicate
		}
	}
	r.days[day.ID] = *day
	return nil
}

func (r *fakeDayRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.TrainingDay, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.days[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &d, nil
}

func (r *fakeDayRepo) ListByPlanID(ctx context.Context, planID uuid.UUID) ([]domain.TrainingDay, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.TrainingDay{}
	for _, d := range r.days {
		if d.PlanID == planID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (r *fakeDayRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.days[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.days, id)
	return nil
}

func (r *fakeDayRepo) DeleteByPlanID(ctx context.Context, planID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, d := range r.days {
		if d.PlanID == planID {
			delete(r.days, id)
		}
	}
	return nil
}

type fakeConnRepo struct {
	mu    sync.Mutex
	conns map[uuid.UUID]domain.StravaConnection // keyed by user id
}

func newFakeConnRepo() *fakeConnRepo {
	return &fakeConnRepo{conns: make(map[uuid.UUID]domain.StravaConnection)}
}

func (r *fakeConnRepo) Upsert(ctx context.Context, conn *domain.StravaConnection) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[conn.UserID] = *conn
	return nil
}

func (r *fakeConnRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.StravaConnection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conns[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

func (r *fakeConnRepo) Delete(ctx context.Context, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.conns, userID)
	return nil
}

type fakeActivityRepo struct {
	mu         sync.Mutex
	activities map[uuid.UUID]domain.StravaActivity
}

func newFakeActivityRepo() *fakeActivityRepo {
	return &fakeActivityRepo{activities: make(map[uuid.UUID]domain.StravaActivity)}
}

func (r *fakeActivityRepo) Create(ctx context.Context, activity *domain.StravaActivity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.activities {
		if a.UserID == activity.UserID && a.StravaActivityID == activity.StravaActivityID {
			return repository.ErrDuplicate
		}
	}
	r.activities[activity.ID] = *activity
	return nil
}

func (r *fakeActivityRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.StravaActivity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.activities[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &a, nil
}

func (r *fakeActivityRepo) GetByExternalID(ctx context.Context, userID uuid.UUID, stravaActivityID int64) (*domain.StravaActivity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.activities {
		if a.UserID == userID && a.StravaActivityID == stravaActivityID {
			a := a
			return &a, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeActivityRepo) ListByUserID(ctx context.Context, userID uuid.UUID, page repository.Page) ([]domain.StravaActivity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.StravaActivity{}
	for _, a := range r.activities {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *fakeActivityRepo) ListByDateRange(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]domain.StravaActivity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.StravaActivity{}
	for _, a := range r.activities {
		if a.UserID == userID && !a.StartDate.Before(from) && !a.StartDate.After(to) {
			out = append(out, a)
		}
	}
	return out, nil
}

// fakeStravaClient is a scriptable provider: tests set the fields they need.
type fakeStravaClient struct {
	exchangeResult TokenSet
	exchangeErr    error
	refreshResult  TokenSet
	refreshErr     error
	activities     []strava.Activity
	listErr        error
	deauthorized   int
	refreshCalls   int
	listCalls      int
}

// TokenSet aliases the provider token type for brevity in test setup.
type TokenSet = strava.TokenSet

func (c *fakeStravaClient) AuthCodeURL(state string) string {
	return "https://provider.example/authorize?state=" + state
}

func (c *fakeStravaClient) ExchangeCode(ctx context.Context, code string) (strava.TokenSet, error) {
	if c.exchangeErr != nil {
		return strava.TokenSet{}, c.exchangeErr
	}
	return c.exchangeResult, nil
}

func (c *fakeStravaClient) Refresh(ctx context.Context, refreshToken string) (strava.TokenSet, error) {
	c.refreshCalls++
	if c.refreshErr != nil {
		return strava.TokenSet{}, c.refreshErr
	}
	return c.refreshResult, nil
}

func (c *fakeStravaClient) ListActivities(ctx context.Context, accessToken string, after time.Time) ([]strava.Activity, error) {
	c.listCalls++
	if c.listErr != nil {
		return nil, c.listErr
	}
	// The real provider filters by activity start time.
	out := []strava.Activity{}
	for _, a := range c.activities {
		if a.StartDate.After(after) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (c *fakeStravaClient) Deauthorize(ctx context.Context, accessToken string) error {
	c.deauthorized++
	return nil
}

// fakeArchive records archived payloads in memory.
type fakeArchive struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
}

func newFakeArchive() *fakeArchive {
	return &fakeArchive{objects: make(map[string][]byte)}
}

func (a *fakeArchive) Put(ctx context.Context, objectKey, contentType string, body []byte) error {
	if a.putErr != nil {
		return a.putErr
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.objects[objectKey] = body
	return nil
}

func (a *fakeArchive) Get(ctx context.Context, objectKey string) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	body, ok := a.objects[objectKey]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return body, nil
}

func (a *fakeArchive) Delete(ctx context.Context, objectKey string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.objects, objectKey)
	return nil
}
