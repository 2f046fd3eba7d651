package domain

import (
	"time"

	"github.com/google/uuid"
)

// ConnectionStatus tracks the lifecycle of a Strava OAuth connection.
type ConnectionStatus string

const (
	ConnectionActive ConnectionStatus = "active"
	// ConnectionRevoked marks a connection whose refresh token stopped
	// working. The customer must reconnect.
	ConnectionRevoked ConnectionStatus = "revoked"
)

// Default refresh buffer: refresh tokens an hour before they expire so a
// sync never runs with a token about to lapse mid-request.
const tokenRefreshBuffer = time.Hour

// StravaConnection stores a user's OAuth tokens for the activity provider.
// At most one active connection exists per user; connecting again replaces
// the previous one.
type StravaConnection struct {
	ID           uuid.UUID        `bson:"_id" json:"id"`
	UserID       uuid.UUID        `bson:"userId" json:"userId"`
	AthleteID    int64            `bson:"athleteId" json:"athleteId"` // External account id
	AccessToken  string           `bson:"accessToken" json:"-"`
	RefreshToken string           `bson:"refreshToken" json:"-"`
	ExpiresAt    time.Time        `bson:"expiresAt" json:"expiresAt"`
	Scope        string           `bson:"scope,omitempty" json:"scope,omitempty"`
	Status       ConnectionStatus `bson:"status" json:"status"`
	ConnectedAt  time.Time        `bson:"connectedAt" json:"connectedAt"`
	LastSyncAt   *time.Time       `bson:"lastSyncAt,omitempty" json:"lastSyncAt,omitempty"`
}

// IsExpired reports whether the access token has lapsed.
func (c *StravaConnection) IsExpired() bool {
	return !time.Now().UTC().Before(c.ExpiresAt)
}

// NeedsRefresh reports whether the access token should be refreshed before
// the next provider call.
func (c *StravaConnection) NeedsRefresh() bool {
	return !time.Now().UTC().Add(tokenRefreshBuffer).Before(c.ExpiresAt)
}

// UpdateTokens swaps in a freshly refreshed token set.
func (c *StravaConnection) UpdateTokens(accessToken, refreshToken string, expiresAt time.Time) {
	c.AccessToken = accessToken
	c.RefreshToken = refreshToken
	c.ExpiresAt = expiresAt
	c.Status = ConnectionActive
}

// MarkSynced updates the last sync timestamp.
func (c *StravaConnection) MarkSynced() {
	now := time.Now().UTC()
	c.LastSyncAt = &now
}

// StravaActivity is an ingested provider activity. Activities are append-only:
// never mutated after ingestion, deduplicated per user by the external id.
type StravaActivity struct {
	ID               uuid.UUID `bson:"_id" json:"id"`
	UserID           uuid.UUID `bson:"userId" json:"userId"`
	StravaActivityID int64     `bson:"stravaActivityId" json:"stravaActivityId"` // Dedup key per user
	Name             string    `bson:"name" json:"name"`
	Type             string    `bson:"type" json:"type"` // e.g., "Run", "Trail Run"
	StartDate        time.Time `bson:"startDate" json:"startDate"`
	MovingTimeSec    int       `bson:"movingTimeSec" json:"movingTimeSec"`
	ElapsedTimeSec   int       `bson:"elapsedTimeSec" json:"elapsedTimeSec"`
	DistanceMeters   float64   `bson:"distanceMeters" json:"distanceMeters"`
	ElevationGain    float64   `bson:"elevationGain,omitempty" json:"elevationGain,omitempty"`
	AverageHeartrate float64   `bson:"averageHeartrate,omitempty" json:"averageHeartrate,omitempty"`
	// RawPayloadKey references the archived provider JSON in object storage.
	RawPayloadKey string    `bson:"rawPayloadKey,omitempty" json:"-"`
	CreatedAt     time.Time `bson:"createdAt" json:"createdAt"`
}

// PaceMinPerKm derives the average pace, or 0 when the data is unusable.
func (a *StravaActivity) PaceMinPerKm() float64 {
	if a.DistanceMeters <= 0 || a.MovingTimeSec <= 0 {
		return 0
	}
	return (float64(a.MovingTimeSec) / 60) / (a.DistanceMeters / 1000)
}
