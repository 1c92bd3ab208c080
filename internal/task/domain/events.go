package domain

import (
	"time"

	sharedBus "github.com/DanielCochavi/task-management-system/internal/shared/infra/platform/bus"
	"github.com/google/uuid"
)

type TaskEventType string

// Tipos de evento del ciclo de vida de una tarea.
const (
	TaskCreated   TaskEventType = "CREATED"
	TaskUpdated   TaskEventType = "UPDATED"
	TaskCompleted TaskEventType = "COMPLETED"
	TaskDeleted   TaskEventType = "DELETED"
)

func (t TaskEventType) Valid() bool {
	switch t {
	case TaskCreated, TaskUpdated, TaskCompleted, TaskDeleted:
		return true
	}
	return false
}

const TaskTopic = "tasks-events"

// TaskEvent es el mensaje que se publica en el bus, con clave taskId.
type TaskEvent struct {
	TaskID    uuid.UUID     `json:"taskId"`
	EventType TaskEventType `json:"eventType"`
	Timestamp time.Time     `json:"timestamp"`
}

func NewTaskEvent(id uuid.UUID, eventType TaskEventType, at time.Time) TaskEvent {
	return TaskEvent{TaskID: id, EventType: eventType, Timestamp: at}
}

func (e TaskEvent) PartitionKey() string {
	return e.TaskID.String()
}

var _ sharedBus.Keyer = TaskEvent{}
