package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mkoval/runcoach-app/internal/domain"
	"mkoval/runcoach-app/internal/repository"
	"mkoval/runcoach-app/internal/service"
	"mkoval/runcoach-app/internal/strava"
)

const hookToken = "hook-verify-token"

// stubStravaService scripts the webhook paths; the rest is unused here.
type stubStravaService struct {
	events []strava.WebhookEvent
}

func (s *stubStravaService) BeginConnect(ctx context.Context, caller service.Caller) (string, error) {
	return "", nil
}
func (s *stubStravaService) CompleteConnect(ctx context.Context, state, code string) (*domain.StravaConnection, error) {
	return nil, nil
}
func (s *stubStravaService) Disconnect(ctx context.Context, caller service.Caller) error { return nil }
func (s *stubStravaService) GetConnection(ctx context.Context, caller service.Caller) (*domain.StravaConnection, error) {
	return nil, nil
}
func (s *stubStravaService) SyncActivities(ctx context.Context, caller service.Caller, userID uuid.UUID) (service.SyncResult, error) {
	return service.SyncResult{}, nil
}
func (s *stubStravaService) ListActivities(ctx context.Context, caller service.Caller, userID uuid.UUID, page repository.Page) ([]domain.StravaActivity, error) {
	return nil, nil
}
func (s *stubStravaService) ListActivitiesByDateRange(ctx context.Context, caller service.Caller, userID uuid.UUID, from, to time.Time) ([]domain.StravaActivity, error) {
	return nil, nil
}
func (s *stubStravaService) VerifyWebhookSubscription(mode, token, challenge string) (string, error) {
	if mode != "subscribe" || token != hookToken || challenge == "" {
		return "", service.ErrWebhookDenied
	}
	return challenge, nil
}
func (s *stubStravaService) HandleWebhookEvent(ctx context.Context, event strava.WebhookEvent) error {
	s.events = append(s.events, event)
	return nil
}

func newWebhookRouter(stub *stubStravaService) *gin.Engine {
	router := gin.New()
	handler := NewStravaHandler(stub)
	router.GET("/webhook", handler.WebhookVerify)
	router.POST("/webhook", handler.WebhookEvent)
	return router
}

func TestWebhookVerifyEchoesChallenge(t *testing.T) {
	router := newWebhookRouter(&stubStravaService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet,
		"/webhook?hub.mode=subscribe&hub.verify_token="+hookToken+"&hub.challenge=echo-me", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "echo-me")
}

func TestWebhookVerifyFailsClosed(t *testing.T) {
	router := newWebhookRouter(&stubStravaService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet,
		"/webhook?hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=echo-me", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.NotContains(t, w.Body.String(), "echo-me")
}

func TestWebhookEventDelivery(t *testing.T) {
	stub := &stubStravaService{}
	router := newWebhookRouter(stub)

	body := `{"object_type":"activity","object_id":1001,"aspect_type":"create","owner_id":424242}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, stub.events, 1)
	assert.Equal(t, int64(1001), stub.events[0].ObjectID)
}

func TestWebhookMalformedEventAcknowledged(t *testing.T) {
	stub := &stubStravaService{}
	router := newWebhookRouter(stub)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader("not json at all"))
	router.ServeHTTP(w, req)

	// A 200 stops the provider from retrying garbage forever.
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, stub.events)
}
