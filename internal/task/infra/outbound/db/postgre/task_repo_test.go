package postgres

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	taskDomain "github.com/DanielCochavi/task-management-system/internal/task/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupPostgresTestDB se conecta a Postgres, crea el esquema y limpia la tabla.
func setupPostgresTestDB(t *testing.T) *sql.DB {
	connStr := os.Getenv("DATABASE_URL")
	if connStr == "" {
		t.Skip("DATABASE_URL no está configurada, saltando test de integración con Postgres")
	}

	db, err := sql.Open("pgx", connStr)
	require.NoError(t, err)
	require.NoError(t, db.Ping())
	require.NoError(t, InitPostgresTaskSchema(db))

	// ❗ Limpiar la tabla antes de cada test para asegurar el aislamiento
	_, err = db.Exec(`TRUNCATE TABLE tasks`)
	require.NoError(t, err)

	t.Cleanup(func() { db.Close() })
	return db
}

func newPgTask(title string, at time.Time) *taskDomain.Task {
	return &taskDomain.Task{
		Title:       title,
		Description: "desc",
		Priority:    taskDomain.PriorityHigh,
		Status:      taskDomain.TaskPending,
		CreatedAt:   at,
		CreatedDate: taskDomain.DateOf(at, time.UTC),
	}
}

func TestTaskPostgresIntegration_CRUD(t *testing.T) {
	db := setupPostgresTestDB(t)
	repo := NewTaskRepoPostgres(db)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	// --- 1. Insert ---
	task := newPgTask("Tarea de integración en Postgres", now)
	require.NoError(t, repo.Insert(ctx, task))
	require.NotEqual(t, uuid.Nil, task.ID)

	// --- 2. FindByID ---
	fetched, err := repo.FindByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, task.Title, fetched.Title)
	assert.Equal(t, task.CreatedDate, fetched.CreatedDate)
	assert.True(t, task.CreatedAt.Equal(fetched.CreatedAt))
	assert.Nil(t, fetched.CompletedAt)

	// --- 3. Save (completar) ---
	fetched.Complete(now.Add(time.Hour))
	require.NoError(t, repo.Save(ctx, fetched))

	done, err := repo.FindByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, taskDomain.TaskDone, done.Status)
	require.NotNil(t, done.CompletedAt)

	pending, err := repo.FindByStatus(ctx, taskDomain.TaskPending)
	require.NoError(t, err)
	assert.Empty(t, pending)

	// --- 4. Delete ---
	require.NoError(t, repo.Delete(ctx, done))
	_, err = repo.FindByID(ctx, task.ID)
	assert.ErrorIs(t, err, taskDomain.ErrTaskNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, done), taskDomain.ErrTaskNotFound)
}

func TestTaskPostgresIntegration_UniqueTitlePerDay(t *testing.T) {
	db := setupPostgresTestDB(t)
	repo := NewTaskRepoPostgres(db)
	ctx := context.Background()
	now := time.Now().UTC()

	first := newPgTask("Daily", now)
	require.NoError(t, repo.Insert(ctx, first))

	exists, err := repo.ExistsByTitleAndDate(ctx, "Daily", first.CreatedDate)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.ExistsByTitleAndDateExcludingID(ctx, "Daily", first.CreatedDate, first.ID)
	require.NoError(t, err)
	assert.False(t, exists)

	err = repo.Insert(ctx, newPgTask("Daily", now))
	assert.ErrorIs(t, err, taskDomain.ErrConflict)

	// Otro día no choca
	require.NoError(t, repo.Insert(ctx, newPgTask("Daily", now.AddDate(0, 0, 1))))

	// Renombrar a un título ocupado también viola la restricción
	other := newPgTask("Other", now)
	require.NoError(t, repo.Insert(ctx, other))
	other.Title = "Daily"
	assert.ErrorIs(t, repo.Save(ctx, other), taskDomain.ErrConflict)

	all, err := repo.FindAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestTaskPostgresIntegration_SaveUnknownID(t *testing.T) {
	db := setupPostgresTestDB(t)
	repo := NewTaskRepoPostgres(db)

	ghost := newPgTask("ghost", time.Now().UTC())
	ghost.ID = uuid.New()

	assert.ErrorIs(t, repo.Save(context.Background(), ghost), taskDomain.ErrTaskNotFound)
}
