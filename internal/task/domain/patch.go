package domain

// Optional distingue "campo ausente" de "campo presente con valor".
type Optional[T any] struct {
	Set   bool
	Value T
}

// Some construye un Optional presente.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Value: v}
}

// TaskPatch describe una actualización parcial: solo se tocan los campos presentes.
type TaskPatch struct {
	Title       Optional[string]
	Description Optional[string]
	Priority    Optional[TaskPriority]
	Status      Optional[TaskStatus]
}

// IsEmpty indica que la petición no trae ningún campo.
func (p TaskPatch) IsEmpty() bool {
	return !p.Title.Set && !p.Description.Set && !p.Priority.Set && !p.Status.Set
}
