package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mkoval/runcoach-app/internal/domain"
	"mkoval/runcoach-app/internal/repository"
)

func newTaskFixture() (TaskService, Caller, Caller) {
	svc := NewTaskService(newFakeTaskRepo())
	owner := Caller{ID: uuid.New(), Role: domain.RoleCustomer}
	stranger := Caller{ID: uuid.New(), Role: domain.RoleCustomer}
	return svc, owner, stranger
}

func TestCreateAndGetTask(t *testing.T) {
	svc, owner, _ := newTaskFixture()

	task, err := svc.CreateTask(context.Background(), owner, CreateTaskInput{
		Title:       "Buy new trail shoes",
		Description: "Current pair is past 800km",
	})
	require.NoError(t, err)
	assert.Equal(t, owner.ID, task.UserID)
	assert.False(t, task.Completed)

	fetched, err := svc.GetTask(context.Background(), owner, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "Buy new trail shoes", fetched.Title)
}

func TestCreateTaskRequiresTitle(t *testing.T) {
	svc, owner, _ := newTaskFixture()

	_, err := svc.CreateTask(context.Background(), owner, CreateTaskInput{Description: "no title"})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestTasksArePrivate(t *testing.T) {
	svc, owner, stranger := newTaskFixture()

	task, err := svc.CreateTask(context.Background(), owner, CreateTaskInput{Title: "Enter the city half"})
	require.NoError(t, err)

	// A foreign task id must look exactly like a missing one.
	_, err = svc.GetTask(context.Background(), stranger, task.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)

	missingErr := func() error {
		_, err := svc.GetTask(context.Background(), stranger, uuid.New())
		return err
	}()
	assert.Equal(t, missingErr.Error(), err.Error())

	_, err = svc.UpdateTask(context.Background(), stranger, task.ID, UpdateTaskInput{})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	err = svc.DeleteTask(context.Background(), stranger, task.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// The owner's view is unaffected.
	tasks, err := svc.ListTasks(context.Background(), owner, repository.Page{})
	require.NoError(t, err)
	assert.Len(t, tasks, 1)
	tasks, err = svc.ListTasks(context.Background(), stranger, repository.Page{})
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestUpdateTask(t *testing.T) {
	svc, owner, _ := newTaskFixture()

	task, err := svc.CreateTask(context.Background(), owner, CreateTaskInput{Title: "Strides after easy runs"})
	require.NoError(t, err)

	done := true
	desc := "Twice a week"
	updated, err := svc.UpdateTask(context.Background(), owner, task.ID, UpdateTaskInput{
		Description: &desc,
		Completed:   &done,
	})
	require.NoError(t, err)
	assert.Equal(t, "Strides after easy runs", updated.Title, "unset fields keep their value")
	assert.Equal(t, "Twice a week", updated.Description)
	assert.True(t, updated.Completed)

	undone := false
	updated, err = svc.UpdateTask(context.Background(), owner, task.ID, UpdateTaskInput{Completed: &undone})
	require.NoError(t, err)
	assert.False(t, updated.Completed)

	empty := ""
	_, err = svc.UpdateTask(context.Background(), owner, task.ID, UpdateTaskInput{Title: &empty})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestDeleteTask(t *testing.T) {
	svc, owner, _ := newTaskFixture()

	task, err := svc.CreateTask(context.Background(), owner, CreateTaskInput{Title: "Renew track membership"})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteTask(context.Background(), owner, task.ID))

	_, err = svc.GetTask(context.Background(), owner, task.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	err = svc.DeleteTask(context.Background(), owner, task.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
