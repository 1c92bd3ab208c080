package inmemory

import (
	"context"
	"sync"

	taskDomain "github.com/DanielCochavi/task-management-system/internal/task/domain"
	"github.com/google/uuid"
)

type uniqueKey struct {
	title string
	date  taskDomain.Date
}

// TaskRepoInMemory simula TaskRepository con un mapa protegido por mutex.
// Aplica la misma restricción única (title, created_date) que las bases de datos.
type TaskRepoInMemory struct {
	mu    sync.RWMutex
	tasks map[uuid.UUID]*taskDomain.Task
	keys  map[uniqueKey]uuid.UUID
	order []uuid.UUID // orden de inserción, para que FindAll sea determinista
}

var _ taskDomain.TaskRepository = (*TaskRepoInMemory)(nil)

func NewTaskRepoInMemory() *TaskRepoInMemory {
	return &TaskRepoInMemory{
		tasks: make(map[uuid.UUID]*taskDomain.Task),
		keys:  make(map[uniqueKey]uuid.UUID),
	}
}

func keyOf(t *taskDomain.Task) uniqueKey {
	return uniqueKey{title: t.Title, date: t.CreatedDate}
}

// --- Implementación de la interfaz TaskRepository ---

func (r *TaskRepoInMemory) Insert(ctx context.Context, t *taskDomain.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.keys[keyOf(t)]; ok {
		return taskDomain.ErrConflict
	}
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if _, ok := r.tasks[t.ID]; ok {
		return taskDomain.ErrConflict
	}

	r.tasks[t.ID] = t.Clone()
	r.keys[keyOf(t)] = t.ID
	r.order = append(r.order, t.ID)
	return nil
}

func (r *TaskRepoInMemory) FindByID(ctx context.Context, id uuid.UUID) (*taskDomain.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tasks[id]
	if !ok {
		return nil, taskDomain.ErrTaskNotFound
	}
	return t.Clone(), nil
}

func (r *TaskRepoInMemory) FindAll(ctx context.Context) ([]*taskDomain.Task, error) {
	return r.filter(func(*taskDomain.Task) bool { return true }), nil
}

func (r *TaskRepoInMemory) FindByStatus(ctx context.Context, status taskDomain.TaskStatus) ([]*taskDomain.Task, error) {
	return r.filter(func(t *taskDomain.Task) bool { return t.Status == status }), nil
}

func (r *TaskRepoInMemory) ExistsByTitleAndDate(ctx context.Context, title string, date taskDomain.Date) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.keys[uniqueKey{title: title, date: date}]
	return ok, nil
}

func (r *TaskRepoInMemory) ExistsByTitleAndDateExcludingID(ctx context.Context, title string, date taskDomain.Date, id uuid.UUID) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	owner, ok := r.keys[uniqueKey{title: title, date: date}]
	return ok && owner != id, nil
}

func (r *TaskRepoInMemory) Save(ctx context.Context, t *taskDomain.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.tasks[t.ID]
	if !ok {
		return taskDomain.ErrTaskNotFound
	}
	if owner, taken := r.keys[keyOf(t)]; taken && owner != t.ID {
		return taskDomain.ErrConflict
	}

	delete(r.keys, keyOf(current))
	r.keys[keyOf(t)] = t.ID
	r.tasks[t.ID] = t.Clone()
	return nil
}

func (r *TaskRepoInMemory) Delete(ctx context.Context, t *taskDomain.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.tasks[t.ID]
	if !ok {
		return taskDomain.ErrTaskNotFound
	}
	delete(r.keys, keyOf(current))
	delete(r.tasks, t.ID)
	for i, id := range r.order {
		if id == t.ID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

func (r *TaskRepoInMemory) filter(match func(*taskDomain.Task) bool) []*taskDomain.Task {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]*taskDomain.Task, 0, len(r.order))
	for _, id := range r.order {
		if t := r.tasks[id]; match(t) {
			list = append(list, t.Clone())
		}
	}
	return list
}
