package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	taskDomain "github.com/DanielCochavi/task-management-system/internal/task/domain"
)

func setupSQLiteTestDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "tasks.db"))
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	require.NoError(t, InitSQLiteTaskSchema(db))
	t.Cleanup(func() { db.Close() })
	return db
}

func newTask(title string, p taskDomain.TaskPriority, at time.Time) *taskDomain.Task {
	return &taskDomain.Task{
		Title:       title,
		Priority:    p,
		Status:      taskDomain.TaskPending,
		CreatedAt:   at,
		CreatedDate: taskDomain.DateOf(at, time.UTC),
	}
}

func TestTaskSQLite_InsertAndFind(t *testing.T) {
	repo := NewTaskRepoSQLite(setupSQLiteTestDB(t))
	ctx := context.Background()
	at := time.Date(2024, 3, 10, 8, 30, 0, 0, time.UTC)

	task := newTask("Write report", taskDomain.PriorityHigh, at)
	task.Description = "quarterly"
	require.NoError(t, repo.Insert(ctx, task))
	require.NotEqual(t, uuid.Nil, task.ID)

	got, err := repo.FindByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, task.ID, got.ID)
	assert.Equal(t, "Write report", got.Title)
	assert.Equal(t, "quarterly", got.Description)
	assert.Equal(t, taskDomain.PriorityHigh, got.Priority)
	assert.Equal(t, taskDomain.TaskPending, got.Status)
	assert.True(t, at.Equal(got.CreatedAt))
	assert.Equal(t, "2024-03-10", got.CreatedDate.String())
	assert.Nil(t, got.CompletedAt)

	_, err = repo.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, taskDomain.ErrTaskNotFound)
}

func TestTaskSQLite_UniqueTitlePerDay(t *testing.T) {
	repo := NewTaskRepoSQLite(setupSQLiteTestDB(t))
	ctx := context.Background()
	at := time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)

	first := newTask("Standup", taskDomain.PriorityLow, at)
	require.NoError(t, repo.Insert(ctx, first))

	exists, err := repo.ExistsByTitleAndDate(ctx, "Standup", first.CreatedDate)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.ExistsByTitleAndDateExcludingID(ctx, "Standup", first.CreatedDate, first.ID)
	require.NoError(t, err)
	assert.False(t, exists)

	err = repo.Insert(ctx, newTask("Standup", taskDomain.PriorityLow, at.Add(time.Hour)))
	assert.ErrorIs(t, err, taskDomain.ErrConflict)

	require.NoError(t, repo.Insert(ctx, newTask("Standup", taskDomain.PriorityLow, at.AddDate(0, 0, 1))))
}

func TestTaskSQLite_SaveCompleteAndConflict(t *testing.T) {
	repo := NewTaskRepoSQLite(setupSQLiteTestDB(t))
	ctx := context.Background()
	at := time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)

	a := newTask("A", taskDomain.PriorityHigh, at)
	b := newTask("B", taskDomain.PriorityHigh, at)
	require.NoError(t, repo.Insert(ctx, a))
	require.NoError(t, repo.Insert(ctx, b))

	// Completar
	b.Complete(at.Add(2 * time.Hour))
	require.NoError(t, repo.Save(ctx, b))
	got, err := repo.FindByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, taskDomain.TaskDone, got.Status)
	require.NotNil(t, got.CompletedAt)
	assert.True(t, at.Add(2*time.Hour).Equal(*got.CompletedAt))

	// Reabrir
	got.Reopen()
	require.NoError(t, repo.Save(ctx, got))
	got, err = repo.FindByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Nil(t, got.CompletedAt)

	// Renombrar B a "A" viola la restricción
	got.Title = "A"
	assert.ErrorIs(t, repo.Save(ctx, got), taskDomain.ErrConflict)

	ghost := newTask("ghost", taskDomain.PriorityLow, at)
	ghost.ID = uuid.New()
	assert.ErrorIs(t, repo.Save(ctx, ghost), taskDomain.ErrTaskNotFound)
}

func TestTaskSQLite_ListAndDelete(t *testing.T) {
	repo := NewTaskRepoSQLite(setupSQLiteTestDB(t))
	ctx := context.Background()
	at := time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)

	first := newTask("first", taskDomain.PriorityLow, at)
	second := newTask("second", taskDomain.PriorityHigh, at)
	require.NoError(t, repo.Insert(ctx, first))
	require.NoError(t, repo.Insert(ctx, second))
	second.Complete(at)
	require.NoError(t, repo.Save(ctx, second))

	all, err := repo.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "first", all[0].Title)
	assert.Equal(t, "second", all[1].Title)

	pending, err := repo.FindByStatus(ctx, taskDomain.TaskPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, first.ID, pending[0].ID)

	require.NoError(t, repo.Delete(ctx, first))
	assert.ErrorIs(t, repo.Delete(ctx, first), taskDomain.ErrTaskNotFound)

	all, err = repo.FindAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
