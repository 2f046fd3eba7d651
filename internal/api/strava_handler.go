package api

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"mkoval/runcoach-app/internal/domain"
	"mkoval/runcoach-app/internal/service"
	"mkoval/runcoach-app/internal/strava"
)

// StravaHandler holds the activity-sync service dependency.
type StravaHandler struct {
	stravaService service.StravaService
}

// NewStravaHandler creates a new StravaHandler.
func NewStravaHandler(stravaService service.StravaService) *StravaHandler {
	return &StravaHandler{stravaService: stravaService}
}

// --- Request/Response Structs ---

type ConnectResponse struct {
	AuthorizationURL string `json:"authorizationUrl"`
}

type ConnectionResponse struct {
	AthleteID   int64      `json:"athleteId"`
	Status      string     `json:"status"`
	ConnectedAt time.Time  `json:"connectedAt"`
	LastSyncAt  *time.Time `json:"lastSyncAt,omitempty"`
}

type ActivityResponse struct {
	ID               string    `json:"id"`
	StravaActivityID int64     `json:"stravaActivityId"`
	Name             string    `json:"name"`
	Type             string    `json:"type"`
	StartDate        time.Time `json:"startDate"`
	MovingTimeSec    int       `json:"movingTimeSec"`
	ElapsedTimeSec   int       `json:"elapsedTimeSec"`
	DistanceMeters   float64   `json:"distanceMeters"`
	ElevationGain    float64   `json:"elevationGain,omitempty"`
	AverageHeartrate float64   `json:"averageHeartrate,omitempty"`
	PaceMinPerKm     float64   `json:"paceMinPerKm,omitempty"`
}

func toConnectionResponse(conn *domain.StravaConnection) ConnectionResponse {
	return ConnectionResponse{
		AthleteID:   conn.AthleteID,
		Status:      string(conn.Status),
		ConnectedAt: conn.ConnectedAt,
		LastSyncAt:  conn.LastSyncAt,
	}
}

func toActivityResponses(activities []domain.StravaActivity) []ActivityResponse {
	resp := make([]ActivityResponse, 0, len(activities))
	for i := range activities {
		a := &activities[i]
		resp = append(resp, ActivityResponse{
			ID:               a.ID.String(),
			StravaActivityID: a.StravaActivityID,
			Name:             a.Name,
			Type:             a.Type,
			StartDate:        a.StartDate,
			MovingTimeSec:    a.MovingTimeSec,
			ElapsedTimeSec:   a.ElapsedTimeSec,
			DistanceMeters:   a.DistanceMeters,
			ElevationGain:    a.ElevationGain,
			AverageHeartrate: a.AverageHeartrate,
			PaceMinPerKm:     a.PaceMinPerKm(),
		})
	}
	return resp
}

// --- Handler Methods ---

// Connect godoc
// @Summary Start the Strava OAuth flow for the calling customer
// @Tags Strava
// @Produce json
// @Success 200 {object} ConnectResponse
// @Router /strava/connect [post]
func (h *StravaHandler) Connect(c *gin.Context) {
	caller, err := callerFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to resolve caller")
		return
	}

	authURL, err := h.stravaService.BeginConnect(c.Request.Context(), caller)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ConnectResponse{AuthorizationURL: authURL})
}

// Callback handles the provider redirect. Unauthenticated: the signed state
// parameter, not a session, identifies the user.
func (h *StravaHandler) Callback(c *gin.Context) {
	if errParam := c.Query("error"); errParam != "" {
		abortWithError(c, http.StatusBadRequest, "Authorization was denied: "+errParam)
		return
	}

	conn, err := h.stravaService.CompleteConnect(c.Request.Context(), c.Query("state"), c.Query("code"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toConnectionResponse(conn))
}

// Disconnect removes the caller's Strava connection. Idempotent.
func (h *StravaHandler) Disconnect(c *gin.Context) {
	caller, err := callerFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to resolve caller")
		return
	}

	if err := h.stravaService.Disconnect(c.Request.Context(), caller); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Connection returns the caller's connection status.
func (h *StravaHandler) Connection(c *gin.Context) {
	caller, err := callerFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to resolve caller")
		return
	}

	conn, err := h.stravaService.GetConnection(c.Request.Context(), caller)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toConnectionResponse(conn))
}

// Sync godoc
// @Summary Pull new activities from Strava for the calling customer
// @Tags Strava
// @Produce json
// @Success 200 {object} service.SyncResult
// @Failure 409 {object} gin.H "No active connection"
// @Failure 503 {object} gin.H "Provider unavailable, retry later"
// @Router /strava/sync [post]
func (h *StravaHandler) Sync(c *gin.Context) {
	caller, err := callerFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to resolve caller")
		return
	}

	result, err := h.stravaService.SyncActivities(c.Request.Context(), caller, caller.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ListMyActivities returns the caller's ingested activities, newest first.
// Optional from/to query parameters (RFC 3339) narrow to a date range.
func (h *StravaHandler) ListMyActivities(c *gin.Context) {
	caller, err := callerFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to resolve caller")
		return
	}
	h.listActivities(c, caller, caller.ID)
}

// ListCustomerActivities lets a coach (or admin) read a customer's ingested
// activities.
func (h *StravaHandler) ListCustomerActivities(c *gin.Context) {
	caller, err := callerFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to resolve caller")
		return
	}
	customerID, ok := parseIDParam(c, "customerId")
	if !ok {
		return
	}
	h.listActivities(c, caller, customerID)
}

func (h *StravaHandler) listActivities(c *gin.Context, caller service.Caller, userID uuid.UUID) {
	var activities []domain.StravaActivity
	var err error

	if c.Query("from") != "" || c.Query("to") != "" {
		from, to, ok := dateRangeFromQuery(c)
		if !ok {
			return
		}
		activities, err = h.stravaService.ListActivitiesByDateRange(c.Request.Context(), caller, userID, from, to)
	} else {
		activities, err = h.stravaService.ListActivities(c.Request.Context(), caller, userID, pageFromQuery(c))
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toActivityResponses(activities))
}

// dateRangeFromQuery parses from/to; a missing bound defaults to the epoch
// or now respectively.
func dateRangeFromQuery(c *gin.Context) (time.Time, time.Time, bool) {
	from := time.Time{}
	to := time.Now().UTC()

	if raw := c.Query("from"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			abortWithError(c, http.StatusBadRequest, "Invalid 'from' timestamp, want RFC 3339")
			return time.Time{}, time.Time{}, false
		}
		from = parsed
	}
	if raw := c.Query("to"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			abortWithError(c, http.StatusBadRequest, "Invalid 'to' timestamp, want RFC 3339")
			return time.Time{}, time.Time{}, false
		}
		to = parsed
	}
	return from, to, true
}

// WebhookVerify answers Strava's subscription handshake (GET). The echo only
// happens for a valid verify token; everything else is a 403.
func (h *StravaHandler) WebhookVerify(c *gin.Context) {
	challenge, err := h.stravaService.VerifyWebhookSubscription(
		c.Query("hub.mode"),
		c.Query("hub.verify_token"),
		c.Query("hub.challenge"),
	)
	if err != nil {
		abortWithError(c, http.StatusForbidden, "Webhook verification failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"hub.challenge": challenge})
}

// WebhookEvent ingests a provider push (POST). Strava expects a fast 200 for
// anything it should not retry; only infrastructure failures get a 5xx.
func (h *StravaHandler) WebhookEvent(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Failed to read webhook body")
		return
	}

	event, err := strava.ParseWebhookEvent(body)
	if err != nil {
		// Malformed payloads are acknowledged so the provider stops
		// retrying them.
		c.Status(http.StatusOK)
		return
	}

	if err := h.stravaService.HandleWebhookEvent(c.Request.Context(), event); err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to process webhook event")
		return
	}
	c.Status(http.StatusOK)
}
