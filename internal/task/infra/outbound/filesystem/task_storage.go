package filesystem

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	taskDomain "github.com/DanielCochavi/task-management-system/internal/task/domain"
	"github.com/google/uuid"
)

// JSONTaskStorage es un adaptador outbound que guarda las tareas en un fichero JSON.
// Cada operación lee el fichero completo y lo reescribe; pensado para uso local.
type JSONTaskStorage struct {
	filePath string
	mu       sync.Mutex // Mutex para evitar race conditions al leer/escribir el archivo.
}

var _ taskDomain.TaskRepository = (*JSONTaskStorage)(nil)

// NewJSONTaskStorage es el constructor.
func NewJSONTaskStorage(filePath string) *JSONTaskStorage {
	return &JSONTaskStorage{
		filePath: filePath,
	}
}

// fileTask es la forma persistida; el dominio no lleva tags JSON.
type fileTask struct {
	ID          uuid.UUID  `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Priority    string     `json:"priority"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
	CreatedDate string     `json:"createdDate"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// --- Escritura ---

func (s *JSONTaskStorage) Insert(ctx context.Context, t *taskDomain.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks, err := s.load()
	if err != nil {
		return err
	}
	if owner := findByKey(tasks, t.Title, t.CreatedDate); owner != nil {
		return taskDomain.ErrConflict
	}
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}

	tasks = append(tasks, t.Clone())
	return s.store(tasks)
}

func (s *JSONTaskStorage) Save(ctx context.Context, t *taskDomain.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks, err := s.load()
	if err != nil {
		return err
	}
	idx := indexOf(tasks, t.ID)
	if idx < 0 {
		return taskDomain.ErrTaskNotFound
	}
	if owner := findByKey(tasks, t.Title, t.CreatedDate); owner != nil && owner.ID != t.ID {
		return taskDomain.ErrConflict
	}

	tasks[idx] = t.Clone()
	return s.store(tasks)
}

func (s *JSONTaskStorage) Delete(ctx context.Context, t *taskDomain.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks, err := s.load()
	if err != nil {
		return err
	}
	idx := indexOf(tasks, t.ID)
	if idx < 0 {
		return taskDomain.ErrTaskNotFound
	}

	tasks = append(tasks[:idx], tasks[idx+1:]...)
	return s.store(tasks)
}

// --- Lectura ---

func (s *JSONTaskStorage) FindByID(ctx context.Context, id uuid.UUID) (*taskDomain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks, err := s.load()
	if err != nil {
		return nil, err
	}
	if idx := indexOf(tasks, id); idx >= 0 {
		return tasks[idx], nil
	}
	return nil, taskDomain.ErrTaskNotFound // Reutilizamos el error de dominio
}

func (s *JSONTaskStorage) FindAll(ctx context.Context) ([]*taskDomain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.load()
}

func (s *JSONTaskStorage) FindByStatus(ctx context.Context, status taskDomain.TaskStatus) ([]*taskDomain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks, err := s.load()
	if err != nil {
		return nil, err
	}
	out := make([]*taskDomain.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.Status == status {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *JSONTaskStorage) ExistsByTitleAndDate(ctx context.Context, title string, date taskDomain.Date) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks, err := s.load()
	if err != nil {
		return false, err
	}
	return findByKey(tasks, title, date) != nil, nil
}

func (s *JSONTaskStorage) ExistsByTitleAndDateExcludingID(ctx context.Context, title string, date taskDomain.Date, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks, err := s.load()
	if err != nil {
		return false, err
	}
	owner := findByKey(tasks, title, date)
	return owner != nil && owner.ID != id, nil
}

// --- Helpers internos (no concurrentes) ---

// load devuelve una lista vacía si el fichero no existe o está vacío.
func (s *JSONTaskStorage) load() ([]*taskDomain.Task, error) {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []*taskDomain.Task{}, nil
		}
		return nil, err
	}
	if len(data) == 0 {
		return []*taskDomain.Task{}, nil
	}

	var rows []fileTask
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("corrupt task file %s: %w", s.filePath, err)
	}

	tasks := make([]*taskDomain.Task, 0, len(rows))
	for _, row := range rows {
		date, err := taskDomain.ParseDate(row.CreatedDate)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, &taskDomain.Task{
			ID:          row.ID,
			Title:       row.Title,
			Description: row.Description,
			Priority:    taskDomain.TaskPriority(row.Priority),
			Status:      taskDomain.TaskStatus(row.Status),
			CreatedAt:   row.CreatedAt,
			CreatedDate: date,
			CompletedAt: row.CompletedAt,
		})
	}
	return tasks, nil
}

// store escribe en un temporal y lo renombra, así un fallo no deja el fichero a medias.
func (s *JSONTaskStorage) store(tasks []*taskDomain.Task) error {
	rows := make([]fileTask, 0, len(tasks))
	for _, t := range tasks {
		rows = append(rows, fileTask{
			ID:          t.ID,
			Title:       t.Title,
			Description: t.Description,
			Priority:    string(t.Priority),
			Status:      string(t.Status),
			CreatedAt:   t.CreatedAt,
			CreatedDate: t.CreatedDate.String(),
			CompletedAt: t.CompletedAt,
		})
	}

	data, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.filePath), ".tasks-*.json")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), s.filePath)
}

func indexOf(tasks []*taskDomain.Task, id uuid.UUID) int {
	for i, t := range tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func findByKey(tasks []*taskDomain.Task, title string, date taskDomain.Date) *taskDomain.Task {
	for _, t := range tasks {
		if t.Title == title && t.CreatedDate == date {
			return t
		}
	}
	return nil
}
