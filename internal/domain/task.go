package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Task is a personal to-do item: gear to buy, a race to enter, a form drill
// to remember. Tasks are private to their owner and carry no role semantics.
type Task struct {
	ID          uuid.UUID `bson:"_id" json:"id"`
	UserID      uuid.UUID `bson:"userId" json:"userId"`
	Title       string    `bson:"title" json:"title"`
	Description string    `bson:"description,omitempty" json:"description,omitempty"`
	Completed   bool      `bson:"completed" json:"completed"`
	CreatedAt   time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time `bson:"updatedAt" json:"updatedAt"`
}

// Validate checks the task's own invariants.
func (t *Task) Validate() error {
	if t.Title == "" {
		return fmt.Errorf("%w: task title is required", ErrValidation)
	}
	if t.UserID == uuid.Nil {
		return fmt.Errorf("%w: task must belong to a user", ErrValidation)
	}
	return nil
}

func (t *Task) MarkCompleted()  { t.Completed = true }
func (t *Task) MarkIncomplete() { t.Completed = false }

// UpdateDetails changes title and/or description. Nil means keep.
func (t *Task) UpdateDetails(title, description *string) error {
	if title != nil {
		if *title == "" {
			return fmt.Errorf("%w: task title is required", ErrValidation)
		}
		t.Title = *title
	}
	if description != nil {
		t.Description = *description
	}
	return nil
}
