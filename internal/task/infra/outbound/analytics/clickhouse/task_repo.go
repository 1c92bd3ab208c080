package clickhouse

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	taskDomain "github.com/DanielCochavi/task-management-system/internal/task/domain"

	"github.com/ClickHouse/clickhouse-go/v2"
)

// TaskEventAnalytics guarda el historial de eventos de tareas en ClickHouse.
type TaskEventAnalytics struct {
	db  *sql.DB
	now func() time.Time
}

// Verificación estática de la interfaz.
var _ taskDomain.TaskAnalyticsRepository = (*TaskEventAnalytics)(nil)

// NewTaskEventAnalytics abre la conexión y comprueba que ClickHouse responde.
func NewTaskEventAnalytics(addr string, dbName string) (*TaskEventAnalytics, error) {
	conn := clickhouse.OpenDB(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: dbName,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
	})

	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("could not ping clickhouse: %w", err)
	}

	return NewTaskEventAnalyticsWithDB(conn), nil
}

// NewTaskEventAnalyticsWithDB reutiliza una conexión ya abierta.
func NewTaskEventAnalyticsWithDB(db *sql.DB) *TaskEventAnalytics {
	return &TaskEventAnalytics{db: db, now: time.Now}
}

// LogEvent registra un único evento.
func (r *TaskEventAnalytics) LogEvent(ctx context.Context, evt taskDomain.TaskEvent) error {
	return r.LogBatch(ctx, []taskDomain.TaskEvent{evt})
}

// LogBatch inserta un lote de eventos. ClickHouse funciona mejor con inserciones en lotes.
func (r *TaskEventAnalytics) LogBatch(ctx context.Context, evts []taskDomain.TaskEvent) error {
	if len(evts) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO task_events (task_id, event_type, event_time, ingested_at)")
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	ingestedAt := r.now().UTC()
	for _, evt := range evts {
		if _, err := stmt.ExecContext(ctx,
			evt.TaskID,
			string(evt.EventType),
			evt.Timestamp.UTC(),
			ingestedAt,
		); err != nil {
			// Si un registro falla, se descarta el lote entero.
			tx.Rollback()
			return fmt.Errorf("failed to exec statement for task %s: %w", evt.TaskID, err)
		}
	}

	return tx.Commit()
}

// DailyTrend agrega por día los eventos de creación, completado y borrado en [start, end].
func (r *TaskEventAnalytics) DailyTrend(ctx context.Context, start, end time.Time) ([]taskDomain.DailyTaskTrend, error) {
	query := `
		SELECT
			toStartOfDay(event_time) AS day,
			countIf(event_type = ?) AS created,
			countIf(event_type = ?) AS completed,
			countIf(event_type = ?) AS deleted
		FROM task_events
		WHERE event_time BETWEEN ? AND ?
		GROUP BY day
		ORDER BY day
	`
	rows, err := r.db.QueryContext(ctx, query,
		string(taskDomain.TaskCreated),
		string(taskDomain.TaskCompleted),
		string(taskDomain.TaskDeleted),
		start.UTC(), end.UTC(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	trends := make([]taskDomain.DailyTaskTrend, 0)
	for rows.Next() {
		var (
			day                         time.Time
			created, completed, deleted uint64
		)
		if err := rows.Scan(&day, &created, &completed, &deleted); err != nil {
			return nil, err
		}
		trends = append(trends, taskDomain.DailyTaskTrend{
			Day:       day.UTC(),
			Created:   int(created),
			Completed: int(completed),
			Deleted:   int(deleted),
		})
	}
	return trends, rows.Err()
}

// InitSchema crea la tabla en ClickHouse si no existe.
// Se particiona por mes y se ordena por los campos de consulta habituales.
func (r *TaskEventAnalytics) InitSchema() error {
	query := `
		CREATE TABLE IF NOT EXISTS task_events (
			task_id     UUID,
			event_type  LowCardinality(String),
			event_time  DateTime64(3),
			ingested_at DateTime64(3)
		) ENGINE = MergeTree()
		PARTITION BY toYYYYMM(event_time)
		ORDER BY (event_type, event_time, task_id);
	`
	_, err := r.db.Exec(query)
	return err
}

func (r *TaskEventAnalytics) Close() error {
	return r.db.Close()
}
