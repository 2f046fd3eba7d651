package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role type to distinguish between user roles
type Role string

// Define constants for roles
const (
	RoleAdmin    Role = "admin"
	RoleCoach    Role = "coach"
	RoleCustomer Role = "customer"
)

// RunnerLevel describes a customer's running experience.
type RunnerLevel string

const (
	LevelBeginner     RunnerLevel = "beginner"
	LevelIntermediate RunnerLevel = "intermediate"
	LevelAdvanced     RunnerLevel = "advanced"
	LevelPro          RunnerLevel = "pro"
)

var runnerLevels = map[RunnerLevel]bool{
	LevelBeginner: true, LevelIntermediate: true, LevelAdvanced: true, LevelPro: true,
}

// Valid reports whether the level is one of the known values.
func (l RunnerLevel) Valid() bool {
	return runnerLevels[l]
}

// User represents a user in the system (Admin, Coach or Customer).
// The role tag is immutable after creation; role-specific fields are only
// populated for the matching role.
type User struct {
	ID           uuid.UUID `bson:"_id" json:"id"`
	Name         string    `bson:"name" json:"name"`
	Nickname     string    `bson:"nickname,omitempty" json:"nickname,omitempty"`
	Email        string    `bson:"email" json:"email"` // Unique, stored lowercase
	PasswordHash string    `bson:"passwordHash" json:"-"`
	Phone        string    `bson:"phone,omitempty" json:"phone,omitempty"`
	DateOfBirth  time.Time `bson:"dateOfBirth,omitempty" json:"dateOfBirth,omitempty"`
	Role         Role      `bson:"role" json:"role"`
	IsActive     bool      `bson:"isActive" json:"isActive"`
	CreatedAt    time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time `bson:"updatedAt" json:"updatedAt"`

	// --- Coach-specific ---
	Specialty string `bson:"specialty,omitempty" json:"specialty,omitempty"`
	Bio       string `bson:"bio,omitempty" json:"bio,omitempty"`

	// --- Customer-specific ---
	// A customer has at most one active coach; reassignment replaces.
	CoachID              *uuid.UUID  `bson:"coachId,omitempty" json:"coachId,omitempty"`
	RunnerLevel          RunnerLevel `bson:"runnerLevel,omitempty" json:"runnerLevel,omitempty"`
	WeeklyAvailability   int         `bson:"weeklyAvailability,omitempty" json:"weeklyAvailability,omitempty"` // Sessions per week, 1..7
	ChallengeNextMonth   string      `bson:"challengeNextMonth,omitempty" json:"challengeNextMonth,omitempty"`
	StravaAthleteID      int64       `bson:"stravaAthleteId,omitempty" json:"stravaAthleteId,omitempty"`
	StravaConnectedAt    *time.Time  `bson:"stravaConnectedAt,omitempty" json:"stravaConnectedAt,omitempty"`
	StravaLastSyncAt     *time.Time  `bson:"stravaLastSyncAt,omitempty" json:"stravaLastSyncAt,omitempty"`
}

func (u *User) IsAdmin() bool    { return u.Role == RoleAdmin }
func (u *User) IsCoach() bool    { return u.Role == RoleCoach }
func (u *User) IsCustomer() bool { return u.Role == RoleCustomer }

// VerifyRole fails with an authorization error if the user's role tag does
// not match the expected one.
func (u *User) VerifyRole(expected Role) error {
	if u.Role != expected {
		return fmt.Errorf("%w: user %s is not a %s", ErrAuthorization, u.ID, expected)
	}
	return nil
}

// AssignCoach replaces any existing coach assignment. Assigning the same
// coach again is a no-op.
func (u *User) AssignCoach(coachID uuid.UUID) error {
	if err := u.VerifyRole(RoleCustomer); err != nil {
		return err
	}
	if u.CoachID != nil && *u.CoachID == coachID {
		return nil
	}
	u.CoachID = &coachID
	return nil
}

// RemoveCoach clears the coach assignment. No-op if none is set.
func (u *User) RemoveCoach() {
	u.CoachID = nil
}

// HasCoach reports whether the customer is currently assigned to coachID.
func (u *User) HasCoach(coachID uuid.UUID) bool {
	return u.CoachID != nil && *u.CoachID == coachID
}

func (u *User) Activate()   { u.IsActive = true }
func (u *User) Deactivate() { u.IsActive = false }

// ConnectStrava records the linked external athlete account.
func (u *User) ConnectStrava(athleteID int64) {
	now := time.Now().UTC()
	u.StravaAthleteID = athleteID
	u.StravaConnectedAt = &now
}

// DisconnectStrava clears the external account linkage and sync markers.
func (u *User) DisconnectStrava() {
	u.StravaAthleteID = 0
	u.StravaConnectedAt = nil
	u.StravaLastSyncAt = nil
}

func (u *User) IsStravaConnected() bool {
	return u.StravaAthleteID != 0
}

// MarkSynced updates the last Strava sync timestamp.
func (u *User) MarkSynced() {
	now := time.Now().UTC()
	u.StravaLastSyncAt = &now
}

// NormalizeEmail lowers the email for the case-insensitive uniqueness check
// enforced at the repository boundary.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
