package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	// --- Importaciones del dominio y compartidas ---
	sharedBus "github.com/DanielCochavi/task-management-system/internal/shared/infra/platform/bus"
	sharedCache "github.com/DanielCochavi/task-management-system/internal/shared/infra/platform/cache"
	sharedUtils "github.com/DanielCochavi/task-management-system/internal/shared/infra/utils"
	taskDomain "github.com/DanielCochavi/task-management-system/internal/task/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	taskCacheTTLSecs    = 60
	defaultEventTimeout = 2 * time.Second
)

// TaskService define los casos de uso del ciclo de vida de Task.
// Incorpora repositorio, publicador de eventos, caché y logger.
type TaskService struct {
	repo   taskDomain.TaskRepository
	events *sharedBus.AsyncPublisher
	cache  sharedCache.Cache
	log    *zap.Logger

	now          func() time.Time
	location     *time.Location
	eventTimeout time.Duration
}

// Option configura un TaskService.
type Option func(*TaskService)

// WithClock sustituye time.Now (útil en tests).
func WithClock(now func() time.Time) Option {
	return func(s *TaskService) { s.now = now }
}

// WithLocation fija la zona usada para calcular CreatedDate.
func WithLocation(loc *time.Location) Option {
	return func(s *TaskService) {
		if loc != nil {
			s.location = loc
		}
	}
}

// WithEventTimeout acota cada intento de publicación.
func WithEventTimeout(d time.Duration) Option {
	return func(s *TaskService) {
		if d > 0 {
			s.eventTimeout = d
		}
	}
}

// NewTaskService es el constructor para el servicio de tareas.
// publisher y cache pueden ser nil.
func NewTaskService(repo taskDomain.TaskRepository, publisher sharedBus.EventPublisher, cache sharedCache.Cache, log *zap.Logger, opts ...Option) *TaskService {
	s := &TaskService{
		repo:         repo,
		cache:        cache,
		log:          log,
		now:          time.Now,
		location:     time.UTC,
		eventTimeout: defaultEventTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	if publisher != nil {
		s.events = sharedBus.NewAsyncPublisher(publisher, s.eventTimeout, sharedBus.DefaultQueueSize, log)
	}
	return s
}

// CreateTask crea una tarea respetando la regla "un título por día".
func (s *TaskService) CreateTask(ctx context.Context, in taskDomain.NewTask) (*taskDomain.Task, error) {
	title, err := taskDomain.NormalizeTitle(in.Title)
	if err != nil {
		return nil, err
	}

	priority := taskDomain.PriorityMedium
	if in.Priority != "" {
		if !in.Priority.Valid() {
			return nil, fmt.Errorf("%w: unknown priority %q", taskDomain.ErrInvalidTask, in.Priority)
		}
		priority = in.Priority
	}

	now := s.now().UTC()
	createdDate := taskDomain.DateOf(now, s.location)

	// Pre-chequeo optimista: la restricción única del repositorio es la garantía real.
	exists, err := s.repo.ExistsByTitleAndDate(ctx, title, createdDate)
	if err != nil {
		s.log.Error("Failed to check duplicate task", zap.String("title", title), zap.Stringer("created_date", createdDate), zap.Error(err))
		return nil, fmt.Errorf("check duplicate task: %w", err)
	}
	if exists {
		return nil, &taskDomain.DuplicateTaskError{Title: title, Date: createdDate}
	}

	task := &taskDomain.Task{
		Title:       title,
		Description: in.Description,
		Priority:    priority,
		Status:      taskDomain.TaskPending,
		CreatedAt:   now,
		CreatedDate: createdDate,
		CompletedAt: nil,
	}

	if err := s.repo.Insert(ctx, task); err != nil {
		if errors.Is(err, taskDomain.ErrConflict) {
			s.log.Warn("Duplicate task detected at persistence layer", zap.String("title", title), zap.Stringer("created_date", createdDate))
			return nil, &taskDomain.DuplicateTaskError{Title: title, Date: createdDate}
		}
		s.log.Error("Failed to create task", zap.String("title", title), zap.Error(err))
		return nil, fmt.Errorf("insert task: %w", err)
	}

	s.log.Info("Task created successfully", zap.String("task_id", task.ID.String()), zap.String("title", task.Title))
	s.publish(taskDomain.NewTaskEvent(task.ID, taskDomain.TaskCreated, now))

	return task, nil
}

// ListTasks devuelve todas las tareas en el orden nativo del repositorio.
func (s *TaskService) ListTasks(ctx context.Context) ([]*taskDomain.Task, error) {
	tasks, err := s.repo.FindAll(ctx)
	if err != nil {
		s.log.Error("Failed to list tasks", zap.Error(err))
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	s.log.Info("Fetched all tasks", zap.Int("count", len(tasks)))
	return tasks, nil
}

// ListUrgentTasks devuelve las tareas pendientes, por prioridad y después las más antiguas.
func (s *TaskService) ListUrgentTasks(ctx context.Context) ([]*taskDomain.Task, error) {
	tasks, err := s.repo.FindByStatus(ctx, taskDomain.TaskPending)
	if err != nil {
		s.log.Error("Failed to list pending tasks", zap.Error(err))
		return nil, fmt.Errorf("list pending tasks: %w", err)
	}
	taskDomain.SortByUrgency(tasks)
	s.log.Info("Fetched urgent tasks", zap.Int("count", len(tasks)))
	return tasks, nil
}

// GetTaskByID obtiene una tarea, usando el patrón cache-aside con reintentos.
func (s *TaskService) GetTaskByID(ctx context.Context, id uuid.UUID) (*taskDomain.Task, error) {
	// 1. Intentar obtener de la caché
	if s.cache != nil {
		var t taskDomain.Task
		if hit, _ := s.cache.Get(ctx, taskDomain.TaskCacheKeyByID(id), &t); hit {
			return &t, nil
		}
	}

	// 2. Si es 'miss', ir al repositorio; NotFound no se reintenta
	var task *taskDomain.Task
	err := sharedUtils.RetryIf(ctx, 3, 100*time.Millisecond, isTransient, func() error {
		var errRetry error
		task, errRetry = s.repo.FindByID(ctx, id)
		return errRetry
	})
	if err != nil {
		if errors.Is(err, taskDomain.ErrTaskNotFound) {
			s.log.Warn("Task not found", zap.String("task_id", id.String()))
			return nil, err
		}
		s.log.Error("Failed to fetch task", zap.String("task_id", id.String()), zap.Error(err))
		return nil, fmt.Errorf("fetch task: %w", err)
	}

	// 3. Poblar la caché antes de responder; una escritura posterior la sobrescribe
	sharedCache.Refresh(ctx, s.cache, taskDomain.TaskCacheKeyByID(id), task.Clone(), taskCacheTTLSecs, s.log)

	return task, nil
}

// UpdateTask aplica una actualización parcial. Si nada cambia, no persiste ni emite evento.
func (s *TaskService) UpdateTask(ctx context.Context, id uuid.UUID, patch taskDomain.TaskPatch) (*taskDomain.Task, error) {
	task, err := s.findForWrite(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	result, err := s.applyPatch(ctx, task, patch, now)
	if err != nil {
		return nil, err
	}
	if !result.changed {
		return task, nil
	}

	if err := s.repo.Save(ctx, task); err != nil {
		if errors.Is(err, taskDomain.ErrConflict) {
			s.log.Warn("Duplicate task detected at persistence layer", zap.String("task_id", id.String()), zap.String("title", task.Title))
			return nil, &taskDomain.DuplicateTaskError{Title: task.Title, Date: task.CreatedDate}
		}
		if errors.Is(err, taskDomain.ErrTaskNotFound) {
			return nil, err
		}
		s.log.Error("Failed to update task", zap.String("task_id", id.String()), zap.Error(err))
		return nil, fmt.Errorf("save task: %w", err)
	}

	eventType := taskDomain.TaskUpdated
	if result.completedNow {
		eventType = taskDomain.TaskCompleted
	}
	s.log.Info("Task updated successfully", zap.String("task_id", task.ID.String()), zap.String("title", task.Title), zap.String("event", string(eventType)))
	sharedCache.Refresh(ctx, s.cache, taskDomain.TaskCacheKeyByID(task.ID), task.Clone(), taskCacheTTLSecs, s.log)
	s.publish(taskDomain.NewTaskEvent(task.ID, eventType, now))

	return task, nil
}

// DeleteTask elimina una tarea de forma permanente.
func (s *TaskService) DeleteTask(ctx context.Context, id uuid.UUID) error {
	task, err := s.findForWrite(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, task); err != nil {
		if errors.Is(err, taskDomain.ErrTaskNotFound) {
			return err
		}
		s.log.Error("Failed to delete task", zap.String("task_id", id.String()), zap.Error(err))
		return fmt.Errorf("delete task: %w", err)
	}

	s.log.Info("Task deleted successfully", zap.String("task_id", id.String()), zap.String("title", task.Title))
	sharedCache.Invalidate(ctx, s.cache, taskDomain.TaskCacheKeyByID(id), s.log)
	s.publish(taskDomain.NewTaskEvent(id, taskDomain.TaskDeleted, s.now().UTC()))

	return nil
}

// Flush espera a que la cola de eventos quede vacía.
func (s *TaskService) Flush() {
	s.events.Wait()
}

// Close vacía la cola de eventos y detiene el publicador. Llamar al apagar.
func (s *TaskService) Close() {
	s.events.Close()
}

// ---------------- Helpers ----------------

type updateResult struct {
	changed      bool
	completedNow bool
}

func (s *TaskService) applyPatch(ctx context.Context, task *taskDomain.Task, patch taskDomain.TaskPatch, now time.Time) (updateResult, error) {
	var result updateResult

	// Se validan primero los enums para no dejar la entidad a medio modificar.
	if patch.Priority.Set && !patch.Priority.Value.Valid() {
		return result, fmt.Errorf("%w: unknown priority %q", taskDomain.ErrInvalidTask, patch.Priority.Value)
	}
	if patch.Status.Set && !patch.Status.Value.Valid() {
		return result, fmt.Errorf("%w: unknown status %q", taskDomain.ErrInvalidTask, patch.Status.Value)
	}

	if patch.Title.Set {
		title, err := taskDomain.NormalizeTitle(patch.Title.Value)
		if err != nil {
			return result, err
		}
		if title != task.Title {
			exists, err := s.repo.ExistsByTitleAndDateExcludingID(ctx, title, task.CreatedDate, task.ID)
			if err != nil {
				s.log.Error("Failed to check duplicate task", zap.String("task_id", task.ID.String()), zap.Error(err))
				return result, fmt.Errorf("check duplicate task: %w", err)
			}
			if exists {
				return result, &taskDomain.DuplicateTaskError{Title: title, Date: task.CreatedDate}
			}
			task.Title = title
			result.changed = true
		}
	}

	if patch.Description.Set {
		task.Description = patch.Description.Value
		result.changed = true
	}

	if patch.Priority.Set && patch.Priority.Value != task.Priority {
		task.Priority = patch.Priority.Value
		result.changed = true
	}

	if patch.Status.Set && patch.Status.Value != task.Status {
		switch patch.Status.Value {
		case taskDomain.TaskDone:
			task.Complete(now)
			result.completedNow = true
		case taskDomain.TaskPending:
			task.Reopen()
		}
		result.changed = true
	}

	return result, nil
}

// findForWrite lee siempre del repositorio: la caché no sirve como base de una escritura.
func (s *TaskService) findForWrite(ctx context.Context, id uuid.UUID) (*taskDomain.Task, error) {
	task, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, taskDomain.ErrTaskNotFound) {
			s.log.Warn("Task not found", zap.String("task_id", id.String()))
			return nil, err
		}
		s.log.Error("Failed to fetch task", zap.String("task_id", id.String()), zap.Error(err))
		return nil, fmt.Errorf("fetch task: %w", err)
	}
	return task, nil
}

func (s *TaskService) publish(evt taskDomain.TaskEvent) {
	s.events.Dispatch(evt)
}

func isTransient(err error) bool {
	return !errors.Is(err, taskDomain.ErrTaskNotFound) &&
		!errors.Is(err, context.Canceled) &&
		!errors.Is(err, context.DeadlineExceeded)
}
