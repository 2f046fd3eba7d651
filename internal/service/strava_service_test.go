package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mkoval/runcoach-app/internal/domain"
	"mkoval/runcoach-app/internal/repository"
	"mkoval/runcoach-app/internal/strava"
)

const (
	testStateSecret = "state-signing-secret"
	testVerifyToken = "hook-verify-token"
	testAthleteID   = int64(424242)
)

type stravaFixture struct {
	svc      StravaService
	client   *fakeStravaClient
	connRepo *fakeConnRepo
	actRepo  *fakeActivityRepo
	userRepo *fakeUserRepo
	archive  *fakeArchive

	customer *domain.User
	caller   Caller
}

func newStravaFixture(t *testing.T) *stravaFixture {
	t.Helper()
	f := &stravaFixture{
		client:   &fakeStravaClient{},
		connRepo: newFakeConnRepo(),
		actRepo:  newFakeActivityRepo(),
		userRepo: newFakeUserRepo(),
		archive:  newFakeArchive(),
	}
	f.svc = NewStravaService(
		f.client, f.connRepo, f.actRepo, f.userRepo, f.archive,
		testStateSecret, 10*time.Minute, testVerifyToken,
	)

	f.customer = &domain.User{
		Name: "Runner Bob", Email: "bob@example.com", PasswordHash: "x",
		Role: domain.RoleCustomer, IsActive: true,
	}
	require.NoError(t, f.userRepo.Create(context.Background(), f.customer))
	f.caller = Caller{ID: f.customer.ID, Role: domain.RoleCustomer}
	return f
}

func (f *stravaFixture) connect(t *testing.T) *domain.StravaConnection {
	t.Helper()
	f.client.exchangeResult = TokenSet{
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		ExpiresAt:    time.Now().UTC().Add(6 * time.Hour),
		AthleteID:    testAthleteID,
		Scope:        strava.DefaultScope,
	}

	authURL, err := f.svc.BeginConnect(context.Background(), f.caller)
	require.NoError(t, err)

	state := stateFromAuthURL(t, authURL)
	conn, err := f.svc.CompleteConnect(context.Background(), state, "oauth-code")
	require.NoError(t, err)
	return conn
}

func stateFromAuthURL(t *testing.T, authURL string) string {
	t.Helper()
	_, state, found := strings.Cut(authURL, "state=")
	require.True(t, found, "authorization URL must carry state: %s", authURL)
	return state
}

func providerActivity(id int64, name string) strava.Activity {
	raw, _ := json.Marshal(map[string]any{"id": id, "name": name, "type": "Run"})
	return strava.Activity{
		ID:             id,
		Name:           name,
		Type:           "Run",
		StartDate:      time.Now().UTC().Add(-2 * time.Hour),
		MovingTimeSec:  3000,
		ElapsedTimeSec: 3100,
		DistanceMeters: 10000,
		Raw:            raw,
	}
}

func TestConnectFlow(t *testing.T) {
	f := newStravaFixture(t)
	conn := f.connect(t)

	assert.Equal(t, f.customer.ID, conn.UserID)
	assert.Equal(t, testAthleteID, conn.AthleteID)
	assert.Equal(t, domain.ConnectionActive, conn.Status)

	// The user record now carries the athlete linkage for webhook routing.
	user, err := f.userRepo.GetByStravaAthleteID(context.Background(), testAthleteID)
	require.NoError(t, err)
	assert.Equal(t, f.customer.ID, user.ID)
}

func TestBeginConnectCustomerOnly(t *testing.T) {
	f := newStravaFixture(t)
	_, err := f.svc.BeginConnect(context.Background(), Caller{ID: uuid.New(), Role: domain.RoleCoach})
	assert.ErrorIs(t, err, domain.ErrAuthorization)
}

func TestCompleteConnectRejectsBadState(t *testing.T) {
	f := newStravaFixture(t)

	_, err := f.svc.CompleteConnect(context.Background(), "tampered-state", "code")
	assert.ErrorIs(t, err, domain.ErrAuthentication)

	// A state signed with a different secret is rejected too.
	other := NewStravaService(
		f.client, f.connRepo, f.actRepo, f.userRepo, f.archive,
		"other-secret", 10*time.Minute, testVerifyToken,
	)
	authURL, err := other.BeginConnect(context.Background(), f.caller)
	require.NoError(t, err)
	_, err = f.svc.CompleteConnect(context.Background(), stateFromAuthURL(t, authURL), "code")
	assert.ErrorIs(t, err, domain.ErrAuthentication)
}

func TestCompleteConnectRejectsExpiredState(t *testing.T) {
	f := newStravaFixture(t)
	expired := NewStravaService(
		f.client, f.connRepo, f.actRepo, f.userRepo, f.archive,
		testStateSecret, -time.Minute, testVerifyToken,
	)

	authURL, err := expired.BeginConnect(context.Background(), f.caller)
	require.NoError(t, err)

	_, err = f.svc.CompleteConnect(context.Background(), stateFromAuthURL(t, authURL), "code")
	assert.ErrorIs(t, err, domain.ErrAuthentication)
}

func TestReconnectReplacesConnection(t *testing.T) {
	f := newStravaFixture(t)
	f.connect(t)

	f.client.exchangeResult.AccessToken = "access-2"
	conn := f.connect(t)
	assert.Equal(t, "access-2", conn.AccessToken)

	stored, err := f.connRepo.GetByUserID(context.Background(), f.customer.ID)
	require.NoError(t, err)
	assert.Equal(t, "access-2", stored.AccessToken)
}

func TestSyncIsIdempotent(t *testing.T) {
	f := newStravaFixture(t)
	f.connect(t)
	f.client.activities = []strava.Activity{
		providerActivity(1001, "Morning Run"),
		providerActivity(1002, "Evening Run"),
	}

	result, err := f.svc.SyncActivities(context.Background(), f.caller, f.customer.ID)
	require.NoError(t, err)
	assert.Equal(t, SyncResult{Added: 2, Skipped: 0}, result)

	// Second pass over the same provider window adds nothing.
	result, err = f.svc.SyncActivities(context.Background(), f.caller, f.customer.ID)
	require.NoError(t, err)
	assert.Equal(t, SyncResult{Added: 0, Skipped: 2}, result)

	activities, err := f.svc.ListActivities(context.Background(), f.caller, f.customer.ID, repository.Page{})
	require.NoError(t, err)
	assert.Len(t, activities, 2)
}

func TestSyncArchivesRawPayload(t *testing.T) {
	f := newStravaFixture(t)
	f.connect(t)
	f.client.activities = []strava.Activity{providerActivity(1001, "Morning Run")}

	_, err := f.svc.SyncActivities(context.Background(), f.caller, f.customer.ID)
	require.NoError(t, err)

	stored, err := f.actRepo.GetByExternalID(context.Background(), f.customer.ID, 1001)
	require.NoError(t, err)
	require.NotEmpty(t, stored.RawPayloadKey)

	raw, err := f.archive.Get(context.Background(), stored.RawPayloadKey)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "Morning Run")
}

func TestSyncSurvivesArchiveOutage(t *testing.T) {
	f := newStravaFixture(t)
	f.connect(t)
	f.client.activities = []strava.Activity{providerActivity(1001, "Morning Run")}
	f.archive.putErr = fmt.Errorf("bucket unavailable")

	result, err := f.svc.SyncActivities(context.Background(), f.caller, f.customer.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Added)

	stored, err := f.actRepo.GetByExternalID(context.Background(), f.customer.ID, 1001)
	require.NoError(t, err)
	assert.Empty(t, stored.RawPayloadKey)
}

func TestSyncWithoutConnection(t *testing.T) {
	f := newStravaFixture(t)
	_, err := f.svc.SyncActivities(context.Background(), f.caller, f.customer.ID)
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestSyncRefreshesExpiringToken(t *testing.T) {
	f := newStravaFixture(t)
	conn := f.connect(t)

	conn.ExpiresAt = time.Now().UTC().Add(10 * time.Minute) // inside the refresh buffer
	require.NoError(t, f.connRepo.Upsert(context.Background(), conn))

	f.client.refreshResult = TokenSet{
		AccessToken:  "access-fresh",
		RefreshToken: "refresh-fresh",
		ExpiresAt:    time.Now().UTC().Add(6 * time.Hour),
	}

	_, err := f.svc.SyncActivities(context.Background(), f.caller, f.customer.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, f.client.refreshCalls)

	stored, err := f.connRepo.GetByUserID(context.Background(), f.customer.ID)
	require.NoError(t, err)
	assert.Equal(t, "access-fresh", stored.AccessToken)
	assert.Equal(t, "refresh-fresh", stored.RefreshToken)
}

func TestSyncRevokedRefreshKillsConnection(t *testing.T) {
	f := newStravaFixture(t)
	conn := f.connect(t)

	conn.ExpiresAt = time.Now().UTC().Add(-time.Minute)
	require.NoError(t, f.connRepo.Upsert(context.Background(), conn))
	f.client.refreshErr = fmt.Errorf("%w: provider rejected grant", domain.ErrAuthentication)

	_, err := f.svc.SyncActivities(context.Background(), f.caller, f.customer.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrAuthentication)

	stored, getErr := f.connRepo.GetByUserID(context.Background(), f.customer.ID)
	require.NoError(t, getErr)
	assert.Equal(t, domain.ConnectionRevoked, stored.Status)

	// Later syncs fail fast without touching the provider again.
	listCallsBefore := f.client.listCalls
	_, err = f.svc.SyncActivities(context.Background(), f.caller, f.customer.ID)
	assert.ErrorIs(t, err, domain.ErrAuthentication)
	assert.Equal(t, listCallsBefore, f.client.listCalls)
}

func TestSyncTransientProviderFailure(t *testing.T) {
	f := newStravaFixture(t)
	f.connect(t)
	f.client.listErr = fmt.Errorf("%w: provider returned status 503", domain.ErrTransient)

	_, err := f.svc.SyncActivities(context.Background(), f.caller, f.customer.ID)
	assert.ErrorIs(t, err, domain.ErrTransient)
}

func TestSyncAuthorization(t *testing.T) {
	f := newStravaFixture(t)
	f.connect(t)

	_, err := f.svc.SyncActivities(context.Background(),
		Caller{ID: uuid.New(), Role: domain.RoleCustomer}, f.customer.ID)
	assert.ErrorIs(t, err, domain.ErrAuthorization)
}

func TestDisconnectIsIdempotent(t *testing.T) {
	f := newStravaFixture(t)
	f.connect(t)
	f.client.activities = []strava.Activity{providerActivity(1001, "Morning Run")}
	_, err := f.svc.SyncActivities(context.Background(), f.caller, f.customer.ID)
	require.NoError(t, err)

	require.NoError(t, f.svc.Disconnect(context.Background(), f.caller))
	assert.Equal(t, 1, f.client.deauthorized)

	_, err = f.svc.GetConnection(context.Background(), f.caller)
	assert.ErrorIs(t, err, domain.ErrConflict)

	// Already-ingested activities are kept.
	activities, err := f.svc.ListActivities(context.Background(), f.caller, f.customer.ID, repository.Page{})
	require.NoError(t, err)
	assert.Len(t, activities, 1)

	// Second disconnect succeeds without another provider call.
	require.NoError(t, f.svc.Disconnect(context.Background(), f.caller))
	assert.Equal(t, 1, f.client.deauthorized)
}

func TestListActivitiesAuthorization(t *testing.T) {
	f := newStravaFixture(t)
	f.connect(t)

	coach := &domain.User{
		Name: "Coach Ana", Email: "ana@example.com", PasswordHash: "x",
		Role: domain.RoleCoach, IsActive: true,
	}
	require.NoError(t, f.userRepo.Create(context.Background(), coach))

	// Not the customer's coach yet.
	coachCaller := Caller{ID: coach.ID, Role: domain.RoleCoach}
	_, err := f.svc.ListActivities(context.Background(), coachCaller, f.customer.ID, repository.Page{})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	customer, err := f.userRepo.GetByID(context.Background(), f.customer.ID)
	require.NoError(t, err)
	require.NoError(t, customer.AssignCoach(coach.ID))
	require.NoError(t, f.userRepo.Update(context.Background(), customer))

	_, err = f.svc.ListActivities(context.Background(), coachCaller, f.customer.ID, repository.Page{})
	assert.NoError(t, err)
}

func TestSyncPicksUpLateUploads(t *testing.T) {
	f := newStravaFixture(t)
	f.connect(t)

	f.client.activities = []strava.Activity{providerActivity(3001, "Morning Run")}
	result, err := f.svc.SyncActivities(context.Background(), f.caller, f.customer.ID)
	require.NoError(t, err)
	assert.Equal(t, SyncResult{Added: 1}, result)

	// Recorded ten days ago, but reached the provider only after the first
	// sync. A start-time bound at the last sync would never see it.
	late := providerActivity(3002, "Trail Run From Watch Backlog")
	late.StartDate = time.Now().UTC().AddDate(0, 0, -10)
	f.client.activities = append(f.client.activities, late)

	result, err = f.svc.SyncActivities(context.Background(), f.caller, f.customer.ID)
	require.NoError(t, err)
	assert.Equal(t, SyncResult{Added: 1, Skipped: 1}, result)

	activities, err := f.svc.ListActivities(context.Background(), f.caller, f.customer.ID, repository.Page{})
	require.NoError(t, err)
	assert.Len(t, activities, 2)
}

func TestListActivitiesByDateRange(t *testing.T) {
	f := newStravaFixture(t)
	f.connect(t)

	old := providerActivity(1001, "Three Weeks Ago")
	old.StartDate = time.Now().UTC().AddDate(0, 0, -20)
	recent := providerActivity(1002, "Yesterday")
	f.client.activities = []strava.Activity{old, recent}

	_, err := f.svc.SyncActivities(context.Background(), f.caller, f.customer.ID)
	require.NoError(t, err)

	from := time.Now().UTC().AddDate(0, 0, -7)
	activities, err := f.svc.ListActivitiesByDateRange(context.Background(), f.caller, f.customer.ID, from, time.Now().UTC())
	require.NoError(t, err)
	require.Len(t, activities, 1)
	assert.Equal(t, int64(1002), activities[0].StravaActivityID)

	_, err = f.svc.ListActivitiesByDateRange(context.Background(), f.caller, f.customer.ID, time.Now().UTC(), from)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestWebhookSubscriptionHandshake(t *testing.T) {
	f := newStravaFixture(t)

	challenge, err := f.svc.VerifyWebhookSubscription("subscribe", testVerifyToken, "echo-me")
	require.NoError(t, err)
	assert.Equal(t, "echo-me", challenge)

	_, err = f.svc.VerifyWebhookSubscription("subscribe", "wrong-token", "echo-me")
	assert.ErrorIs(t, err, domain.ErrAuthentication)

	_, err = f.svc.VerifyWebhookSubscription("unsubscribe", testVerifyToken, "echo-me")
	assert.ErrorIs(t, err, domain.ErrAuthentication)

	// A blank configured token must never verify.
	open := NewStravaService(
		f.client, f.connRepo, f.actRepo, f.userRepo, f.archive,
		testStateSecret, 10*time.Minute, "",
	)
	_, err = open.VerifyWebhookSubscription("subscribe", "", "echo-me")
	assert.Error(t, err)
}

func TestWebhookActivityCreateTriggersSync(t *testing.T) {
	f := newStravaFixture(t)
	f.connect(t)
	f.client.activities = []strava.Activity{providerActivity(1001, "Morning Run")}

	err := f.svc.HandleWebhookEvent(context.Background(), strava.WebhookEvent{
		ObjectType: strava.ObjectTypeActivity,
		ObjectID:   1001,
		AspectType: strava.AspectCreate,
		OwnerID:    testAthleteID,
	})
	require.NoError(t, err)

	activities, err := f.svc.ListActivities(context.Background(), f.caller, f.customer.ID, repository.Page{})
	require.NoError(t, err)
	assert.Len(t, activities, 1)
}

func TestWebhookUnknownAthleteDropped(t *testing.T) {
	f := newStravaFixture(t)

	err := f.svc.HandleWebhookEvent(context.Background(), strava.WebhookEvent{
		ObjectType: strava.ObjectTypeActivity,
		ObjectID:   1001,
		AspectType: strava.AspectCreate,
		OwnerID:    999999,
	})
	assert.NoError(t, err, "unknown athletes are dropped, not retried")
}

func TestWebhookDeauthorizationRemovesConnection(t *testing.T) {
	f := newStravaFixture(t)
	f.connect(t)

	err := f.svc.HandleWebhookEvent(context.Background(), strava.WebhookEvent{
		ObjectType: strava.ObjectTypeAthlete,
		ObjectID:   testAthleteID,
		AspectType: strava.AspectUpdate,
		OwnerID:    testAthleteID,
		Updates:    map[string]string{"authorized": "false"},
	})
	require.NoError(t, err)

	_, err = f.svc.GetConnection(context.Background(), f.caller)
	assert.ErrorIs(t, err, domain.ErrConflict)

	user, err := f.userRepo.GetByID(context.Background(), f.customer.ID)
	require.NoError(t, err)
	assert.False(t, user.IsStravaConnected())
}

func TestParseWebhookEvent(t *testing.T) {
	event, err := strava.ParseWebhookEvent([]byte(`{
		"object_type": "activity", "object_id": 1001,
		"aspect_type": "create", "owner_id": 424242,
		"subscription_id": 7, "event_time": 1749000000
	}`))
	require.NoError(t, err)
	assert.Equal(t, int64(1001), event.ObjectID)

	_, err = strava.ParseWebhookEvent([]byte(`not json`))
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = strava.ParseWebhookEvent([]byte(`{"object_type":"gear","aspect_type":"create","owner_id":1}`))
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = strava.ParseWebhookEvent([]byte(`{"object_type":"activity","aspect_type":"create"}`))
	assert.ErrorIs(t, err, domain.ErrValidation)
}
