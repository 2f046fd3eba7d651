package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"mkoval/runcoach-app/internal/domain"
	"mkoval/runcoach-app/internal/repository"
)

// --- Service Interface ---

// CreateTaskInput carries everything needed to create a task.
type CreateTaskInput struct {
	Title       string
	Description string
}

// UpdateTaskInput updates the mutable task fields. Nil means keep.
type UpdateTaskInput struct {
	Title       *string
	Description *string
	Completed   *bool
}

// TaskService is the personal to-do use case. Every operation is scoped to
// the caller: there is no admin override and no sharing, matching the
// private-notebook character of the feature.
type TaskService interface {
	CreateTask(ctx context.Context, caller Caller, input CreateTaskInput) (*domain.Task, error)
	GetTask(ctx context.Context, caller Caller, taskID uuid.UUID) (*domain.Task, error)
	ListTasks(ctx context.Context, caller Caller, page repository.Page) ([]domain.Task, error)
	UpdateTask(ctx context.Context, caller Caller, taskID uuid.UUID, input UpdateTaskInput) (*domain.Task, error)
	DeleteTask(ctx context.Context, caller Caller, taskID uuid.UUID) error
}

// --- Service Implementation ---

// taskService implements the TaskService interface.
type taskService struct {
	taskRepo repository.TaskRepository
}

// NewTaskService creates a new instance of taskService.
func NewTaskService(taskRepo repository.TaskRepository) TaskService {
	return &taskService{taskRepo: taskRepo}
}

// CreateTask stores a new task owned by the caller.
func (s *taskService) CreateTask(ctx context.Context, caller Caller, input CreateTaskInput) (*domain.Task, error) {
	task := &domain.Task{
		ID:          uuid.New(),
		UserID:      caller.ID,
		Title:       input.Title,
		Description: input.Description,
	}
	if err := task.Validate(); err != nil {
		return nil, err
	}
	if err := s.taskRepo.Create(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

// GetTask returns one of the caller's tasks.
func (s *taskService) GetTask(ctx context.Context, caller Caller, taskID uuid.UUID) (*domain.Task, error) {
	return s.getOwnedTask(ctx, caller, taskID)
}

// ListTasks returns the caller's tasks, newest first.
func (s *taskService) ListTasks(ctx context.Context, caller Caller, page repository.Page) ([]domain.Task, error) {
	return s.taskRepo.ListByUserID(ctx, caller.ID, page)
}

// UpdateTask changes title, description and/or the completed flag of one of
// the caller's tasks.
func (s *taskService) UpdateTask(ctx context.Context, caller Caller, taskID uuid.UUID, input UpdateTaskInput) (*domain.Task, error) {
	task, err := s.getOwnedTask(ctx, caller, taskID)
	if err != nil {
		return nil, err
	}

	if err := task.UpdateDetails(input.Title, input.Description); err != nil {
		return nil, err
	}
	if input.Completed != nil {
		if *input.Completed {
			task.MarkCompleted()
		} else {
			task.MarkIncomplete()
		}
	}

	if err := s.taskRepo.Update(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

// DeleteTask removes one of the caller's tasks.
func (s *taskService) DeleteTask(ctx context.Context, caller Caller, taskID uuid.UUID) error {
	if _, err := s.getOwnedTask(ctx, caller, taskID); err != nil {
		return err
	}
	return s.taskRepo.Delete(ctx, taskID)
}

// getOwnedTask loads a task and confirms ownership, mapping a miss or a
// foreign owner to the same not-found error.
func (s *taskService) getOwnedTask(ctx context.Context, caller Caller, taskID uuid.UUID) (*domain.Task, error) {
	task, err := s.taskRepo.GetByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}
	if task.UserID != caller.ID {
		return nil, ErrTaskNotFound
	}
	return task, nil
}
