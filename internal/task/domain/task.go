package domain

import (
	"fmt"
	"strings"
	"time"

	sharedBus "github.com/DanielCochavi/task-management-system/internal/shared/infra/platform/bus"
	"github.com/google/uuid"
)

type TaskStatus string

const (
	TaskPending TaskStatus = "PENDING"
	TaskDone    TaskStatus = "DONE"
)

// Valid indica si el estado pertenece al modelo actual.
func (s TaskStatus) Valid() bool {
	return s == TaskPending || s == TaskDone
}

// ParseStatus convierte un texto (sin distinguir mayúsculas) en TaskStatus.
func ParseStatus(raw string) (TaskStatus, error) {
	s := TaskStatus(strings.ToUpper(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", fmt.Errorf("%w: unknown status %q", ErrInvalidTask, raw)
	}
	return s, nil
}

type TaskPriority string

const (
	PriorityHigh   TaskPriority = "HIGH"
	PriorityMedium TaskPriority = "MEDIUM"
	PriorityLow    TaskPriority = "LOW"
)

// Valid indica si la prioridad es una de las conocidas.
func (p TaskPriority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// ParsePriority convierte un texto (sin distinguir mayúsculas) en TaskPriority.
func ParsePriority(raw string) (TaskPriority, error) {
	p := TaskPriority(strings.ToUpper(strings.TrimSpace(raw)))
	if !p.Valid() {
		return "", fmt.Errorf("%w: unknown priority %q", ErrInvalidTask, raw)
	}
	return p, nil
}

type Task struct {
	ID          uuid.UUID
	Title       string
	Description string
	Priority    TaskPriority
	Status      TaskStatus
	CreatedAt   time.Time
	CreatedDate Date
	CompletedAt *time.Time
}

// NewTask agrupa los datos de entrada de una creación.
// Priority vacía significa "no indicada" y se resuelve a MEDIUM.
type NewTask struct {
	Title       string
	Description string
	Priority    TaskPriority
}

func (t *Task) PartitionKey() string {
	return t.ID.String()
}

// Clone devuelve una copia independiente (CompletedAt incluido).
func (t *Task) Clone() *Task {
	c := *t
	if t.CompletedAt != nil {
		completed := *t.CompletedAt
		c.CompletedAt = &completed
	}
	return &c
}

// --- Métodos de dominio ---

// NormalizeTitle recorta espacios y rechaza títulos vacíos.
func NormalizeTitle(title string) (string, error) {
	trimmed := strings.TrimSpace(title)
	if trimmed == "" {
		return "", fmt.Errorf("%w: title must not be blank", ErrInvalidTask)
	}
	return trimmed, nil
}

// Complete marca la tarea como DONE y fija la fecha de finalización.
func (t *Task) Complete(at time.Time) {
	t.Status = TaskDone
	t.CompletedAt = &at
}

// Reopen devuelve la tarea a PENDING y limpia la fecha de finalización.
func (t *Task) Reopen() {
	t.Status = TaskPending
	t.CompletedAt = nil
}

// Verificación estática para asegurar que Task implementa la interfaz
var _ sharedBus.Keyer = (*Task)(nil)
