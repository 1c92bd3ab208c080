package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	// --- Importaciones del dominio ---
	taskDomain "github.com/DanielCochavi/task-management-system/internal/task/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // Driver de PostgreSQL
)

const uniqueViolation = "23505"

const taskColumns = `id, title, description, priority, status, created_at, created_date, completed_at`

// TaskRepoPostgres implementa la interfaz TaskRepository para PostgreSQL.
type TaskRepoPostgres struct {
	db *sql.DB
}

var _ taskDomain.TaskRepository = (*TaskRepoPostgres)(nil)

// NewTaskRepoPostgres es el constructor del repositorio.
func NewTaskRepoPostgres(db *sql.DB) *TaskRepoPostgres {
	return &TaskRepoPostgres{db: db}
}

// ------------------ Escritura ------------------

// Insert guarda una tarea nueva. La restricción única se traduce a ErrConflict.
func (r *TaskRepoPostgres) Insert(ctx context.Context, t *taskDomain.Task) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO tasks (`+taskColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		t.ID, t.Title, t.Description, string(t.Priority), string(t.Status), t.CreatedAt, t.CreatedDate, t.CompletedAt,
	)
	if err != nil {
		return translateError(err)
	}
	return nil
}

// Save reescribe todos los campos mutables de una tarea existente.
func (r *TaskRepoPostgres) Save(ctx context.Context, t *taskDomain.Task) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE tasks SET title=$1, description=$2, priority=$3, status=$4, completed_at=$5 WHERE id=$6`,
		t.Title, t.Description, string(t.Priority), string(t.Status), t.CompletedAt, t.ID,
	)
	if err != nil {
		return translateError(err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get RowsAffected: %w", err)
	}
	if rows == 0 {
		return taskDomain.ErrTaskNotFound
	}
	return nil
}

// Delete elimina una tarea por su ID.
func (r *TaskRepoPostgres) Delete(ctx context.Context, t *taskDomain.Task) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id=$1`, t.ID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get RowsAffected: %w", err)
	}
	if rows == 0 {
		return taskDomain.ErrTaskNotFound
	}
	return nil
}

// ------------------ Lectura ------------------

// FindByID recupera una tarea de la base de datos por su ID.
func (r *TaskRepoPostgres) FindByID(ctx context.Context, id uuid.UUID) (*taskDomain.Task, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id=$1`, id)

	t, err := scanTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, taskDomain.ErrTaskNotFound
		}
		return nil, fmt.Errorf("db scan error: %w", err)
	}
	return t, nil
}

func (r *TaskRepoPostgres) FindAll(ctx context.Context) ([]*taskDomain.Task, error) {
	return r.query(ctx, `SELECT `+taskColumns+` FROM tasks ORDER BY created_at, id`)
}

func (r *TaskRepoPostgres) FindByStatus(ctx context.Context, status taskDomain.TaskStatus) ([]*taskDomain.Task, error) {
	return r.query(ctx, `SELECT `+taskColumns+` FROM tasks WHERE status=$1 ORDER BY created_at, id`, string(status))
}

func (r *TaskRepoPostgres) ExistsByTitleAndDate(ctx context.Context, title string, date taskDomain.Date) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM tasks WHERE title=$1 AND created_date=$2)`,
		title, date,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return exists, nil
}

func (r *TaskRepoPostgres) ExistsByTitleAndDateExcludingID(ctx context.Context, title string, date taskDomain.Date, id uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM tasks WHERE title=$1 AND created_date=$2 AND id<>$3)`,
		title, date, id,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return exists, nil
}

func (r *TaskRepoPostgres) query(ctx context.Context, query string, args ...interface{}) ([]*taskDomain.Task, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	tasks := make([]*taskDomain.Task, 0)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("db scan error: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// ------------------ Helpers ------------------

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTask(row rowScanner) (*taskDomain.Task, error) {
	var (
		t           taskDomain.Task
		priority    string
		status      string
		completedAt sql.NullTime
	)
	if err := row.Scan(&t.ID, &t.Title, &t.Description, &priority, &status, &t.CreatedAt, &t.CreatedDate, &completedAt); err != nil {
		return nil, err
	}

	t.Priority = taskDomain.TaskPriority(priority)
	t.Status = taskDomain.TaskStatus(status)
	t.CreatedAt = t.CreatedAt.UTC()
	if completedAt.Valid {
		at := completedAt.Time.UTC()
		t.CompletedAt = &at
	}
	return &t, nil
}

// translateError convierte la violación de la restricción única en ErrConflict.
func translateError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", taskDomain.ErrConflict, pgErr.ConstraintName)
	}
	return fmt.Errorf("db error: %w", err)
}

// ------------------ Inicialización del Esquema ------------------

// InitPostgresTaskSchema crea la tabla 'tasks' si no existe.
func InitPostgresTaskSchema(db *sql.DB) error {
	_, err := db.Exec(`
    CREATE TABLE IF NOT EXISTS tasks (
        id UUID PRIMARY KEY,
        title TEXT NOT NULL,
        description TEXT NOT NULL DEFAULT '',
        priority TEXT NOT NULL,
        status TEXT NOT NULL,
        created_at TIMESTAMP WITH TIME ZONE NOT NULL,
        created_date DATE NOT NULL,
        completed_at TIMESTAMP WITH TIME ZONE,
        CONSTRAINT uk_task_title_date UNIQUE (title, created_date)
    )`)
	if err != nil {
		return fmt.Errorf("failed to create tasks table: %w", err)
	}

	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks (status)`)
	return err
}
