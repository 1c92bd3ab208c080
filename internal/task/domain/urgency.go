package domain

import (
	"math"
	"slices"
)

var priorityRank = map[TaskPriority]int{
	PriorityHigh:   0,
	PriorityMedium: 1,
	PriorityLow:    2,
}

// rank devuelve la posición de la prioridad; las desconocidas van al final.
func (p TaskPriority) rank() int {
	if r, ok := priorityRank[p]; ok {
		return r
	}
	return math.MaxInt
}

// CompareUrgency ordena primero por prioridad y después por antigüedad.
// Una tarea sin CreatedAt va detrás de cualquiera que lo tenga.
func CompareUrgency(a, b *Task) int {
	if ra, rb := a.Priority.rank(), b.Priority.rank(); ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}

	aZero, bZero := a.CreatedAt.IsZero(), b.CreatedAt.IsZero()
	switch {
	case aZero && bZero:
		return 0
	case aZero:
		return 1
	case bZero:
		return -1
	}
	return a.CreatedAt.Compare(b.CreatedAt)
}

// SortByUrgency ordena in situ, más urgente primero.
func SortByUrgency(tasks []*Task) {
	slices.SortStableFunc(tasks, CompareUrgency)
}
