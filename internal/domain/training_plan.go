// internal/domain/training_plan.go
package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TrainingPlan represents a structured running plan authored by a coach for
// one customer. Only the owning coach (or an admin) may mutate or delete it.
type TrainingPlan struct {
	ID         uuid.UUID `bson:"_id" json:"id"`
	CoachID    uuid.UUID `bson:"coachId" json:"coachId"`       // Who created the plan
	CustomerID uuid.UUID `bson:"customerId" json:"customerId"` // Who the plan is for
	Goal       string    `bson:"goal" json:"goal"`             // e.g., "Sub-50 10k"
	Notes      string    `bson:"notes,omitempty" json:"notes,omitempty"`
	StartDate  time.Time `bson:"startDate" json:"startDate"`
	EndDate    time.Time `bson:"endDate" json:"endDate"` // Invariant: EndDate >= StartDate
	IsActive   bool      `bson:"isActive" json:"isActive"`
	CreatedAt  time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt  time.Time `bson:"updatedAt" json:"updatedAt"`

	// Days are persisted separately and attached when the plan is assembled
	// for a caller. Never read back from this field by the repositories.
	Days []TrainingDay `bson:"-" json:"days,omitempty"`
}

// Validate checks the plan's own invariants.
func (p *TrainingPlan) Validate() error {
	if p.Goal == "" {
		return fmt.Errorf("%w: plan goal is required", ErrValidation)
	}
	if p.EndDate.Before(p.StartDate) {
		return fmt.Errorf("%w: plan end date %s is before start date %s",
			ErrValidation, p.EndDate.Format("2006-01-02"), p.StartDate.Format("2006-01-02"))
	}
	return nil
}

// IsOwnedBy reports whether coachID authored this plan. Pure predicate used
// for authorization decisions, never for persistence filtering.
func (p *TrainingPlan) IsOwnedBy(coachID uuid.UUID) bool {
	return p.CoachID == coachID
}

// AddDay attaches a day to the plan after checking the schedule policy:
// at most one entry per week day per plan, so a plan never carries two
// conflicting workouts for the same day.
func (p *TrainingPlan) AddDay(day TrainingDay) error {
	if day.PlanID != p.ID {
		return fmt.Errorf("%w: training day belongs to plan %s, not %s",
			ErrValidation, day.PlanID, p.ID)
	}
	if err := day.Validate(); err != nil {
		return err
	}
	for _, existing := range p.Days {
		if existing.WeekDay == day.WeekDay {
			return fmt.Errorf("%w: plan already has a workout on %s",
				ErrValidation, day.WeekDay)
		}
	}
	p.Days = append(p.Days, day)
	return nil
}

// RemoveDay detaches a day by id. No-op if absent.
func (p *TrainingPlan) RemoveDay(dayID uuid.UUID) {
	kept := p.Days[:0]
	for _, d := range p.Days {
		if d.ID != dayID {
			kept = append(kept, d)
		}
	}
	p.Days = kept
}

// UpdateInfo overwrites the mutable plan fields, keeping the date invariant.
func (p *TrainingPlan) UpdateInfo(goal, notes string, start, end time.Time) error {
	updated := *p
	updated.Goal = goal
	updated.Notes = notes
	updated.StartDate = start
	updated.EndDate = end
	if err := updated.Validate(); err != nil {
		return err
	}
	p.Goal = goal
	p.Notes = notes
	p.StartDate = start
	p.EndDate = end
	return nil
}

func (p *TrainingPlan) Activate()   { p.IsActive = true }
func (p *TrainingPlan) Deactivate() { p.IsActive = false }
