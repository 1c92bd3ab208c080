package events

import (
	"context"
	"time"

	"go.uber.org/zap"

	taskDomain "github.com/DanielCochavi/task-management-system/internal/task/domain"
	"github.com/google/uuid"

	// --- Importaciones compartidas ---
	sharedUtils "github.com/DanielCochavi/task-management-system/internal/shared/infra/utils"
)

const handleTimeout = 500 * time.Millisecond

// TaskEventConsumer lee los eventos del ciclo de vida y los registra en analítica.
type TaskEventConsumer struct {
	analytics taskDomain.TaskAnalyticsRepository
	log       *zap.Logger
}

// NewTaskEventConsumer es el constructor.
func NewTaskEventConsumer(analytics taskDomain.TaskAnalyticsRepository, logger *zap.Logger) *TaskEventConsumer {
	return &TaskEventConsumer{
		analytics: analytics,
		log:       logger,
	}
}

// HandleMessage es el punto de entrada para un nuevo mensaje/evento.
// Los mensajes mal formados se registran y se descartan.
func (c *TaskEventConsumer) HandleMessage(ctx context.Context, key string, payload []byte) {
	sharedUtils.UnmarshalAndHandle[taskDomain.TaskEvent](c.log, payload, func(evt taskDomain.TaskEvent) {
		if evt.TaskID == uuid.Nil || !evt.EventType.Valid() {
			c.log.Warn("Unknown task event ignored",
				zap.String("key", key),
				zap.String("type", string(evt.EventType)),
			)
			return
		}

		ctxEvt, cancel := context.WithTimeout(ctx, handleTimeout)
		defer cancel()

		if err := c.analytics.LogEvent(ctxEvt, evt); err != nil {
			c.log.Warn("Failed to record task event",
				zap.String("task_id", evt.TaskID.String()),
				zap.String("type", string(evt.EventType)),
				zap.Error(err),
			)
			return
		}

		c.log.Debug("Task event recorded",
			zap.String("task_id", evt.TaskID.String()),
			zap.String("type", string(evt.EventType)),
		)
	})
}

// BackgroundConsumerChan inicia una goroutine para consumir eventos de un canal.
// Termina al cancelar ctx o al cerrarse el canal.
func BackgroundConsumerChan(ctx context.Context, ch <-chan []byte, consumer *TaskEventConsumer) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				consumer.log.Info("TaskEventConsumer stopped")
				return
			case payload, ok := <-ch:
				if !ok {
					consumer.log.Info("TaskEventConsumer channel closed")
					return
				}
				// La 'key' no es relevante en el bus en memoria, pasamos una vacía.
				consumer.HandleMessage(ctx, "", payload)
			}
		}
	}()
	return done
}
