package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	// _ "github.com/mattn/go-sqlite3" // better performance but requires gcc
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	taskDomain "github.com/DanielCochavi/task-management-system/internal/task/domain"
)

const taskColumns = `id, title, description, priority, status, created_at, created_date, completed_at`

type TaskRepoSQLite struct {
	db *sql.DB
}

var _ taskDomain.TaskRepository = (*TaskRepoSQLite)(nil)

func NewTaskRepoSQLite(db *sql.DB) *TaskRepoSQLite {
	return &TaskRepoSQLite{db: db}
}

// ------------------ Escritura ------------------

// Insert guarda la tarea; si la restricción única salta devuelve ErrConflict
func (r *TaskRepoSQLite) Insert(ctx context.Context, t *taskDomain.Task) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO tasks (`+taskColumns+`) VALUES (?,?,?,?,?,?,?,?)`,
		t.ID.String(), t.Title, t.Description, string(t.Priority), string(t.Status),
		t.CreatedAt.UTC(), t.CreatedDate.String(), nullableTime(t.CompletedAt),
	)
	return translateError(err)
}

// Save actualiza los campos mutables; created_at y created_date no cambian nunca
func (r *TaskRepoSQLite) Save(ctx context.Context, t *taskDomain.Task) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE tasks SET title=?, description=?, priority=?, status=?, completed_at=? WHERE id=?`,
		t.Title, t.Description, string(t.Priority), string(t.Status), nullableTime(t.CompletedAt), t.ID.String(),
	)
	if err != nil {
		return translateError(err)
	}

	rows, _ := res.RowsAffected()
	if rows == 0 {
		return taskDomain.ErrTaskNotFound
	}
	return nil
}

func (r *TaskRepoSQLite) Delete(ctx context.Context, t *taskDomain.Task) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id=?`, t.ID.String())
	if err != nil {
		return err
	}

	rows, _ := res.RowsAffected()
	if rows == 0 {
		return taskDomain.ErrTaskNotFound
	}
	return nil
}

// ------------------ Lectura ------------------

// FindByID con manejo de errores en uuid.Parse
func (r *TaskRepoSQLite) FindByID(ctx context.Context, id uuid.UUID) (*taskDomain.Task, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id.String())

	t, err := scanTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, taskDomain.ErrTaskNotFound
		}
		return nil, err
	}
	return t, nil
}

// FindAll devuelve las tareas en orden de inserción (rowid)
func (r *TaskRepoSQLite) FindAll(ctx context.Context) ([]*taskDomain.Task, error) {
	return r.list(ctx, `SELECT `+taskColumns+` FROM tasks ORDER BY rowid`)
}

func (r *TaskRepoSQLite) FindByStatus(ctx context.Context, status taskDomain.TaskStatus) ([]*taskDomain.Task, error) {
	return r.list(ctx, `SELECT `+taskColumns+` FROM tasks WHERE status = ? ORDER BY rowid`, string(status))
}

func (r *TaskRepoSQLite) ExistsByTitleAndDate(ctx context.Context, title string, date taskDomain.Date) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM tasks WHERE title = ? AND created_date = ?`,
		title, date.String(),
	).Scan(&n)
	return n > 0, err
}

func (r *TaskRepoSQLite) ExistsByTitleAndDateExcludingID(ctx context.Context, title string, date taskDomain.Date, id uuid.UUID) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM tasks WHERE title = ? AND created_date = ? AND id <> ?`,
		title, date.String(), id.String(),
	).Scan(&n)
	return n > 0, err
}

func (r *TaskRepoSQLite) list(ctx context.Context, query string, args ...interface{}) ([]*taskDomain.Task, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := make([]*taskDomain.Task, 0)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
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
		t                      taskDomain.Task
		idStr, priority, state string
		completedAt            sql.NullTime
	)
	if err := row.Scan(&idStr, &t.Title, &t.Description, &priority, &state, &t.CreatedAt, &t.CreatedDate, &completedAt); err != nil {
		return nil, err
	}

	parsedID, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("invalid UUID in DB: %w", err)
	}
	t.ID = parsedID
	t.Priority = taskDomain.TaskPriority(priority)
	t.Status = taskDomain.TaskStatus(state)
	t.CreatedAt = t.CreatedAt.UTC()
	if completedAt.Valid {
		at := completedAt.Time.UTC()
		t.CompletedAt = &at
	}
	return &t, nil
}

func nullableTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC()
}

// translateError mapea las violaciones de unicidad de SQLite a ErrConflict
func translateError(err error) error {
	if err == nil {
		return nil
	}
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return fmt.Errorf("%w: %s", taskDomain.ErrConflict, sqliteErr.Error())
		}
	}
	return err
}

// ------------------ Inicialización de DB ------------------

// InitSQLiteTaskSchema crea la tabla tasks si no existe
func InitSQLiteTaskSchema(db *sql.DB) error {
	_, err := db.Exec(`
        CREATE TABLE IF NOT EXISTS tasks (
            id TEXT PRIMARY KEY,
            title TEXT NOT NULL,
            description TEXT NOT NULL DEFAULT '',
            priority TEXT NOT NULL,
            status TEXT NOT NULL,
            created_at DATETIME NOT NULL,
            created_date TEXT NOT NULL,
            completed_at DATETIME,
            UNIQUE (title, created_date)
        )
    `)
	if err != nil {
		return err
	}

	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks (status)`)
	return err
}
