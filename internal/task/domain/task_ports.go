package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrTaskNotFound  = errors.New("task not found")
	ErrDuplicateTask = errors.New("duplicate task")
	ErrInvalidTask   = errors.New("invalid task")

	// ErrConflict lo devuelven los repositorios cuando el motor rechaza
	// la escritura por la restricción única (title, created_date).
	ErrConflict = errors.New("unique constraint violation")
)

// DuplicateTaskError identifica la clave (title, createdDate) que ya existe.
type DuplicateTaskError struct {
	Title string
	Date  Date
}

func (e *DuplicateTaskError) Error() string {
	return fmt.Sprintf("task with title '%s' already exists for date %s", e.Title, e.Date)
}

func (e *DuplicateTaskError) Is(target error) bool {
	return target == ErrDuplicateTask
}

// --- Repositorio de Tasks ---
type TaskRepository interface {
	// Insert asigna el ID si viene vacío.
	Insert(ctx context.Context, t *Task) error
	FindByID(ctx context.Context, id uuid.UUID) (*Task, error)
	FindAll(ctx context.Context) ([]*Task, error)
	FindByStatus(ctx context.Context, status TaskStatus) ([]*Task, error)
	ExistsByTitleAndDate(ctx context.Context, title string, date Date) (bool, error)
	ExistsByTitleAndDateExcludingID(ctx context.Context, title string, date Date, id uuid.UUID) (bool, error)
	Save(ctx context.Context, t *Task) error
	Delete(ctx context.Context, t *Task) error
}

// DTO para transportar los resultados de la consulta de tendencia.
type DailyTaskTrend struct {
	Day       time.Time
	Created   int
	Completed int
	Deleted   int
}

type TaskAnalyticsRepository interface {
	LogEvent(ctx context.Context, evt TaskEvent) error
	LogBatch(ctx context.Context, evts []TaskEvent) error
	DailyTrend(ctx context.Context, start, end time.Time) ([]DailyTaskTrend, error)
}

// ---------- Helpers comunes (cache keys, etc.) ----------

func TaskCacheKeyByID(id uuid.UUID) string {
	return fmt.Sprintf("task:id:%s", id.String())
}
