package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"mkoval/runcoach-app/internal/domain"
	"mkoval/runcoach-app/internal/repository"
	"mkoval/runcoach-app/internal/storage"
	"mkoval/runcoach-app/internal/strava"
)

// defaultSyncWindow bounds the first sync of a fresh connection: without a
// previous sync marker we pull the last 30 days, not the athlete's entire
// history.
const defaultSyncWindow = 30 * 24 * time.Hour

// --- Service Interface ---

// SyncResult summarizes one sync pass. A re-run over already-ingested
// activities reports them as skipped, never as added twice.
type SyncResult struct {
	Added   int `json:"added"`
	Skipped int `json:"skipped"`
}

// StravaService is the activity-sync use case: the OAuth connect flow,
// connection lifecycle, idempotent activity ingestion and webhook handling.
type StravaService interface {
	// BeginConnect builds the provider authorization URL for the caller.
	// The embedded state is signed and time-limited so the callback can be
	// matched to the user that started the flow.
	BeginConnect(ctx context.Context, caller Caller) (string, error)
	// CompleteConnect finishes the OAuth flow from the provider callback.
	CompleteConnect(ctx context.Context, state, code string) (*domain.StravaConnection, error)
	Disconnect(ctx context.Context, caller Caller) error
	GetConnection(ctx context.Context, caller Caller) (*domain.StravaConnection, error)

	SyncActivities(ctx context.Context, caller Caller, userID uuid.UUID) (SyncResult, error)
	ListActivities(ctx context.Context, caller Caller, userID uuid.UUID, page repository.Page) ([]domain.StravaActivity, error)
	ListActivitiesByDateRange(ctx context.Context, caller Caller, userID uuid.UUID, from, to time.Time) ([]domain.StravaActivity, error)

	// VerifyWebhookSubscription answers the provider's subscription
	// handshake, echoing the challenge only for a valid verify token.
	VerifyWebhookSubscription(mode, token, challenge string) (string, error)
	HandleWebhookEvent(ctx context.Context, event strava.WebhookEvent) error
}

// --- Service Implementation ---

type stravaService struct {
	client      strava.Client
	connRepo    repository.ConnectionRepository
	actRepo     repository.ActivityRepository
	userRepo    repository.UserRepository
	archive     storage.PayloadArchive
	stateSecret []byte
	stateTTL    time.Duration
	verifyToken string
}

// NewStravaService creates a new instance of stravaService.
func NewStravaService(
	client strava.Client,
	connRepo repository.ConnectionRepository,
	actRepo repository.ActivityRepository,
	userRepo repository.UserRepository,
	archive storage.PayloadArchive,
	stateSecret string,
	stateTTL time.Duration,
	verifyToken string,
) StravaService {
	if stateSecret == "" {
		panic("strava state secret cannot be empty")
	}
	return &stravaService{
		client:      client,
		connRepo:    connRepo,
		actRepo:     actRepo,
		userRepo:    userRepo,
		archive:     archive,
		stateSecret: []byte(stateSecret),
		stateTTL:    stateTTL,
		verifyToken: verifyToken,
	}
}

// BeginConnect starts the OAuth flow for the calling customer.
func (s *stravaService) BeginConnect(ctx context.Context, caller Caller) (string, error) {
	if caller.Role != domain.RoleCustomer {
		return "", ErrAccessDenied
	}
	state := s.signState(caller.ID, time.Now().UTC().Add(s.stateTTL))
	return s.client.AuthCodeURL(state), nil
}

// CompleteConnect verifies the callback state, exchanges the code and stores
// the connection. Connecting again simply replaces the previous tokens.
func (s *stravaService) CompleteConnect(ctx context.Context, state, code string) (*domain.StravaConnection, error) {
	userID, err := s.verifyState(state)
	if err != nil {
		return nil, err
	}
	if code == "" {
		return nil, fmt.Errorf("%w: authorization code is required", domain.ErrValidation)
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if !user.IsCustomer() {
		return nil, ErrAccessDenied
	}

	tokens, err := s.client.ExchangeCode(ctx, code)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	conn := &domain.StravaConnection{
		ID:           uuid.New(),
		UserID:       user.ID,
		AthleteID:    tokens.AthleteID,
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		ExpiresAt:    tokens.ExpiresAt,
		Scope:        tokens.Scope,
		Status:       domain.ConnectionActive,
		ConnectedAt:  now,
	}
	if err := s.connRepo.Upsert(ctx, conn); err != nil {
		return nil, err
	}

	user.ConnectStrava(tokens.AthleteID)
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return conn, nil
}

// Disconnect revokes and removes the caller's connection. Idempotent: a
// second disconnect succeeds without complaint. Ingested activities are
// kept.
func (s *stravaService) Disconnect(ctx context.Context, caller Caller) error {
	conn, err := s.connRepo.GetByUserID(ctx, caller.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return err
	}

	// Best effort: a provider outage must not keep the user tethered.
	if err := s.client.Deauthorize(ctx, conn.AccessToken); err != nil {
		log.Printf("WARN: strava deauthorize for user %s failed: %v", caller.ID, err)
	}

	if err := s.connRepo.Delete(ctx, caller.ID); err != nil {
		return err
	}

	user, err := s.userRepo.GetByID(ctx, caller.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return err
	}
	user.DisconnectStrava()
	return s.userRepo.Update(ctx, user)
}

// GetConnection returns the caller's connection, or ErrNoConnection.
func (s *stravaService) GetConnection(ctx context.Context, caller Caller) (*domain.StravaConnection, error) {
	conn, err := s.connRepo.GetByUserID(ctx, caller.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNoConnection
		}
		return nil, err
	}
	return conn, nil
}

// SyncActivities pulls new provider activities for the user and ingests
// them. Re-running is safe: already-seen activities count as skipped.
func (s *stravaService) SyncActivities(ctx context.Context, caller Caller, userID uuid.UUID) (SyncResult, error) {
	if !caller.IsAdmin() && !caller.Is(userID) {
		return SyncResult{}, ErrAccessDenied
	}
	return s.syncUser(ctx, userID)
}

// ListActivities returns ingested activities, newest first. Visible to the
// user themselves, their current coach, and admins.
func (s *stravaService) ListActivities(ctx context.Context, caller Caller, userID uuid.UUID, page repository.Page) ([]domain.StravaActivity, error) {
	if err := s.authorizeActivityRead(ctx, caller, userID); err != nil {
		return nil, err
	}
	return s.actRepo.ListByUserID(ctx, userID, page)
}

// ListActivitiesByDateRange returns the activities whose start date falls in
// [from, to]. Same visibility rules as ListActivities.
func (s *stravaService) ListActivitiesByDateRange(ctx context.Context, caller Caller, userID uuid.UUID, from, to time.Time) ([]domain.StravaActivity, error) {
	if to.Before(from) {
		return nil, fmt.Errorf("%w: date range end precedes start", domain.ErrValidation)
	}
	if err := s.authorizeActivityRead(ctx, caller, userID); err != nil {
		return nil, err
	}
	return s.actRepo.ListByDateRange(ctx, userID, from, to)
}

func (s *stravaService) authorizeActivityRead(ctx context.Context, caller Caller, userID uuid.UUID) error {
	switch {
	case caller.IsAdmin():
	case caller.Is(userID):
	case caller.Role == domain.RoleCoach:
		customer, err := s.userRepo.GetByID(ctx, userID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrCustomerNotFound
			}
			return err
		}
		if !customer.IsCustomer() || !customer.HasCoach(caller.ID) {
			return ErrCustomerNotAssigned
		}
	default:
		return ErrAccessDenied
	}
	return nil
}

// VerifyWebhookSubscription implements the provider's subscription
// handshake. Fail closed: wrong mode or token means no challenge echo.
func (s *stravaService) VerifyWebhookSubscription(mode, token, challenge string) (string, error) {
	if s.verifyToken == "" {
		return "", ErrWebhookDenied
	}
	if mode != "subscribe" || token != s.verifyToken || challenge == "" {
		return "", ErrWebhookDenied
	}
	return challenge, nil
}

// HandleWebhookEvent reacts to a provider push. Activity creations trigger a
// sync for the owning user; an athlete deauthorization kills the connection.
// Events for unknown athletes are dropped silently so the provider does not
// retry them forever.
func (s *stravaService) HandleWebhookEvent(ctx context.Context, event strava.WebhookEvent) error {
	user, err := s.userRepo.GetByStravaAthleteID(ctx, event.OwnerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			log.Printf("INFO: webhook event for unknown athlete %d, dropping", event.OwnerID)
			return nil
		}
		return err
	}

	switch event.ObjectType {
	case strava.ObjectTypeActivity:
		if event.AspectType != strava.AspectCreate {
			return nil // updates and deletes of ingested activities are not mirrored
		}
		result, err := s.syncUser(ctx, user.ID)
		if err != nil {
			return err
		}
		log.Printf("INFO: webhook sync for user %s: %d added, %d skipped", user.ID, result.Added, result.Skipped)
		return nil

	case strava.ObjectTypeAthlete:
		if event.Updates["authorized"] == "false" {
			log.Printf("INFO: athlete %d deauthorized, removing connection", event.OwnerID)
			if err := s.connRepo.Delete(ctx, user.ID); err != nil {
				return err
			}
			user.DisconnectStrava()
			return s.userRepo.Update(ctx, user)
		}
		return nil
	}
	return nil
}

// syncUser is the shared sync pass used by both the manual trigger and the
// webhook path.
func (s *stravaService) syncUser(ctx context.Context, userID uuid.UUID) (SyncResult, error) {
	conn, err := s.connRepo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return SyncResult{}, ErrNoConnection
		}
		return SyncResult{}, err
	}
	if conn.Status != domain.ConnectionActive {
		return SyncResult{}, ErrConnectionDead
	}

	if err := s.ensureFreshToken(ctx, conn); err != nil {
		return SyncResult{}, err
	}

	// The provider's after bound filters by activity start time, so bounding
	// the listing at LastSyncAt would permanently miss an activity recorded
	// before that sync but uploaded after it. Always re-list the full window;
	// ingest deduplicates the overlap.
	after := time.Now().UTC().Add(-defaultSyncWindow)

	activities, err := s.client.ListActivities(ctx, conn.AccessToken, after)
	if err != nil {
		if errors.Is(err, domain.ErrAuthentication) {
			s.markRevoked(ctx, conn)
			return SyncResult{}, ErrConnectionDead
		}
		return SyncResult{}, err
	}

	var result SyncResult
	for _, act := range activities {
		added, err := s.ingest(ctx, userID, act)
		if err != nil {
			return result, err
		}
		if added {
			result.Added++
		} else {
			result.Skipped++
		}
	}

	conn.MarkSynced()
	if err := s.connRepo.Upsert(ctx, conn); err != nil {
		return result, err
	}
	if user, err := s.userRepo.GetByID(ctx, userID); err == nil {
		user.MarkSynced()
		if err := s.userRepo.Update(ctx, user); err != nil {
			log.Printf("WARN: updating sync marker for user %s: %v", userID, err)
		}
	}
	return result, nil
}

// ingest stores one provider activity, deduplicating by external id. The
// unique index behind actRepo.Create is the authority: a duplicate insert,
// even racing another sync, simply counts as skipped.
func (s *stravaService) ingest(ctx context.Context, userID uuid.UUID, act strava.Activity) (bool, error) {
	if _, err := s.actRepo.GetByExternalID(ctx, userID, act.ID); err == nil {
		return false, nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return false, err
	}

	activity := &domain.StravaActivity{
		ID:               uuid.New(),
		UserID:           userID,
		StravaActivityID: act.ID,
		Name:             act.Name,
		Type:             act.Type,
		StartDate:        act.StartDate,
		MovingTimeSec:    act.MovingTimeSec,
		ElapsedTimeSec:   act.ElapsedTimeSec,
		DistanceMeters:   act.DistanceMeters,
		ElevationGain:    act.ElevationGain,
		AverageHeartrate: act.AverageHR,
		CreatedAt:        time.Now().UTC(),
	}

	if len(act.Raw) > 0 {
		key := fmt.Sprintf("activities/%s/%d.json", userID, act.ID)
		if err := s.archive.Put(ctx, key, "application/json", act.Raw); err != nil {
			// Archival is best effort; the parsed record still lands.
			log.Printf("WARN: archiving raw payload for activity %d: %v", act.ID, err)
		} else {
			activity.RawPayloadKey = key
		}
	}

	if err := s.actRepo.Create(ctx, activity); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// ensureFreshToken refreshes the access token when it is at or near expiry.
// A rejected refresh marks the connection revoked so later syncs fail fast
// with a reconnect hint instead of hammering the provider.
func (s *stravaService) ensureFreshToken(ctx context.Context, conn *domain.StravaConnection) error {
	if !conn.NeedsRefresh() {
		return nil
	}

	tokens, err := s.client.Refresh(ctx, conn.RefreshToken)
	if err != nil {
		if errors.Is(err, domain.ErrAuthentication) {
			s.markRevoked(ctx, conn)
			return ErrConnectionDead
		}
		return err
	}

	conn.UpdateTokens(tokens.AccessToken, tokens.RefreshToken, tokens.ExpiresAt)
	return s.connRepo.Upsert(ctx, conn)
}

func (s *stravaService) markRevoked(ctx context.Context, conn *domain.StravaConnection) {
	conn.Status = domain.ConnectionRevoked
	if err := s.connRepo.Upsert(ctx, conn); err != nil {
		log.Printf("WARN: marking connection for user %s revoked: %v", conn.UserID, err)
	}
}

// --- OAuth state signing ---
// The state parameter is userID|expiry|signature, HMAC-SHA256 over the first
// two parts. Stateless on purpose: any instance behind a load balancer can
// verify a callback no matter which instance issued the redirect.

func (s *stravaService) signState(userID uuid.UUID, expiresAt time.Time) string {
	payload := userID.String() + "|" + strconv.FormatInt(expiresAt.Unix(), 10)
	mac := hmac.New(sha256.New, s.stateSecret)
	mac.Write([]byte(payload))
	sig := base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
	return base64.RawURLEncoding.EncodeToString([]byte(payload)) + "." + sig
}

func (s *stravaService) verifyState(state string) (uuid.UUID, error) {
	encoded, sig, found := strings.Cut(state, ".")
	if !found {
		return uuid.Nil, ErrInvalidState
	}
	payload, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return uuid.Nil, ErrInvalidState
	}

	mac := hmac.New(sha256.New, s.stateSecret)
	mac.Write(payload)
	expected := base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(sig), []byte(expected)) {
		return uuid.Nil, ErrInvalidState
	}

	idPart, expPart, found := strings.Cut(string(payload), "|")
	if !found {
		return uuid.Nil, ErrInvalidState
	}
	expUnix, err := strconv.ParseInt(expPart, 10, 64)
	if err != nil || time.Now().UTC().After(time.Unix(expUnix, 0)) {
		return uuid.Nil, ErrInvalidState
	}
	userID, err := uuid.Parse(idPart)
	if err != nil {
		return uuid.Nil, ErrInvalidState
	}
	return userID, nil
}
