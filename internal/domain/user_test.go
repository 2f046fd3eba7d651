package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssignCoach(t *testing.T) {
	customer := &User{ID: uuid.New(), Role: RoleCustomer}
	coachID := uuid.New()

	require.NoError(t, customer.AssignCoach(coachID))
	assert.True(t, customer.HasCoach(coachID))

	// Assigning the same coach again is a no-op.
	require.NoError(t, customer.AssignCoach(coachID))
	assert.True(t, customer.HasCoach(coachID))

	// Reassignment replaces the previous coach.
	otherCoach := uuid.New()
	require.NoError(t, customer.AssignCoach(otherCoach))
	assert.True(t, customer.HasCoach(otherCoach))
	assert.False(t, customer.HasCoach(coachID))
}

func TestAssignCoachWrongRole(t *testing.T) {
	coach := &User{ID: uuid.New(), Role: RoleCoach}
	err := coach.AssignCoach(uuid.New())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAuthorization)
}

func TestRemoveCoach(t *testing.T) {
	customer := &User{ID: uuid.New(), Role: RoleCustomer}
	coachID := uuid.New()
	require.NoError(t, customer.AssignCoach(coachID))

	customer.RemoveCoach()
	assert.False(t, customer.HasCoach(coachID))

	customer.RemoveCoach() // no-op
	assert.Nil(t, customer.CoachID)
}

func TestVerifyRole(t *testing.T) {
	user := &User{ID: uuid.New(), Role: RoleCoach}
	assert.NoError(t, user.VerifyRole(RoleCoach))
	assert.ErrorIs(t, user.VerifyRole(RoleAdmin), ErrAuthorization)
}

func TestStravaLinkage(t *testing.T) {
	user := &User{ID: uuid.New(), Role: RoleCustomer}
	assert.False(t, user.IsStravaConnected())

	user.ConnectStrava(424242)
	assert.True(t, user.IsStravaConnected())
	assert.NotNil(t, user.StravaConnectedAt)

	user.MarkSynced()
	assert.NotNil(t, user.StravaLastSyncAt)

	user.DisconnectStrava()
	assert.False(t, user.IsStravaConnected())
	assert.Nil(t, user.StravaConnectedAt)
	assert.Nil(t, user.StravaLastSyncAt)
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "runner@example.com", NormalizeEmail("  Runner@Example.COM "))
	assert.Equal(t, "a@b.c", NormalizeEmail("a@b.c"))
}
