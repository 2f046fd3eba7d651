package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestConnectionNeedsRefresh(t *testing.T) {
	conn := &StravaConnection{
		ID:        uuid.New(),
		UserID:    uuid.New(),
		ExpiresAt: time.Now().UTC().Add(6 * time.Hour),
		Status:    ConnectionActive,
	}
	assert.False(t, conn.IsExpired())
	assert.False(t, conn.NeedsRefresh())

	// Within the refresh buffer: not yet expired, but due for refresh.
	conn.ExpiresAt = time.Now().UTC().Add(30 * time.Minute)
	assert.False(t, conn.IsExpired())
	assert.True(t, conn.NeedsRefresh())

	conn.ExpiresAt = time.Now().UTC().Add(-time.Minute)
	assert.True(t, conn.IsExpired())
	assert.True(t, conn.NeedsRefresh())
}

func TestConnectionUpdateTokens(t *testing.T) {
	conn := &StravaConnection{Status: ConnectionRevoked}
	expiry := time.Now().UTC().Add(6 * time.Hour)

	conn.UpdateTokens("new-access", "new-refresh", expiry)
	assert.Equal(t, "new-access", conn.AccessToken)
	assert.Equal(t, "new-refresh", conn.RefreshToken)
	assert.Equal(t, expiry, conn.ExpiresAt)
	assert.Equal(t, ConnectionActive, conn.Status)
}

func TestActivityPace(t *testing.T) {
	activity := &StravaActivity{
		DistanceMeters: 10000,
		MovingTimeSec:  3000, // 50 minutes for 10k = 5:00/km
	}
	assert.InDelta(t, 5.0, activity.PaceMinPerKm(), 0.001)

	assert.Zero(t, (&StravaActivity{MovingTimeSec: 600}).PaceMinPerKm())
	assert.Zero(t, (&StravaActivity{DistanceMeters: 5000}).PaceMinPerKm())
}
