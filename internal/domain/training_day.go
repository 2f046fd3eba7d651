package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// WeekDay is the day of the week a workout is scheduled on.
type WeekDay string

const (
	Monday    WeekDay = "monday"
	Tuesday   WeekDay = "tuesday"
	Wednesday WeekDay = "wednesday"
	Thursday  WeekDay = "thursday"
	Friday    WeekDay = "friday"
	Saturday  WeekDay = "saturday"
	Sunday    WeekDay = "sunday"
)

var weekDays = map[WeekDay]bool{
	Monday: true, Tuesday: true, Wednesday: true, Thursday: true,
	Friday: true, Saturday: true, Sunday: true,
}

// TrainingType classifies the workout.
type TrainingType string

const (
	TrainingEasyRun  TrainingType = "easy_run"
	TrainingTempo    TrainingType = "tempo"
	TrainingInterval TrainingType = "interval"
	TrainingLongRun  TrainingType = "long_run"
	TrainingRest     TrainingType = "rest"
)

var trainingTypes = map[TrainingType]bool{
	TrainingEasyRun: true, TrainingTempo: true, TrainingInterval: true,
	TrainingLongRun: true, TrainingRest: true,
}

// Intensity is the effort level of a workout.
type Intensity string

const (
	IntensityLow      Intensity = "low"
	IntensityModerate Intensity = "moderate"
	IntensityHigh     Intensity = "high"
)

var intensities = map[Intensity]bool{
	IntensityLow: true, IntensityModerate: true, IntensityHigh: true,
}

// TrainingDay represents a single workout slot within a TrainingPlan.
// It belongs to exactly one plan.
type TrainingDay struct {
	ID              uuid.UUID    `bson:"_id" json:"id"`
	PlanID          uuid.UUID    `bson:"planId" json:"planId"`
	WeekDay         WeekDay      `bson:"weekDay" json:"weekDay"`
	Type            TrainingType `bson:"type" json:"type"`
	Intensity       Intensity    `bson:"intensity" json:"intensity"`
	DurationMinutes int          `bson:"durationMinutes" json:"durationMinutes"`
	DistanceKm      float64      `bson:"distanceKm" json:"distanceKm"`
	Description     string       `bson:"description,omitempty" json:"description,omitempty"`
	Notes           string       `bson:"notes,omitempty" json:"notes,omitempty"`
	CreatedAt       time.Time    `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time    `bson:"updatedAt" json:"updatedAt"`
}

// Validate checks the day's own invariants. A rest day carrying nonzero
// duration or distance is accepted: product treats that as a soft warning,
// not a hard error.
func (d *TrainingDay) Validate() error {
	if !weekDays[d.WeekDay] {
		return fmt.Errorf("%w: unknown week day %q", ErrValidation, d.WeekDay)
	}
	if !trainingTypes[d.Type] {
		return fmt.Errorf("%w: unknown training type %q", ErrValidation, d.Type)
	}
	if !intensities[d.Intensity] {
		return fmt.Errorf("%w: unknown intensity %q", ErrValidation, d.Intensity)
	}
	if d.DurationMinutes < 0 {
		return fmt.Errorf("%w: duration must not be negative", ErrValidation)
	}
	if d.DistanceKm < 0 {
		return fmt.Errorf("%w: distance must not be negative", ErrValidation)
	}
	return nil
}
