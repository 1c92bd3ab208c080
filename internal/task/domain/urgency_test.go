package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func urgencyTask(title string, p TaskPriority, createdAt time.Time) *Task {
	return &Task{Title: title, Priority: p, CreatedAt: createdAt}
}

func titles(tasks []*Task) []string {
	out := make([]string, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.Title)
	}
	return out
}

func TestSortByUrgency_PriorityThenOldest(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	a := urgencyTask("A", PriorityHigh, base.Add(1*time.Hour))
	b := urgencyTask("B", PriorityHigh, base.Add(2*time.Hour))
	c := urgencyTask("C", PriorityMedium, base)
	d := urgencyTask("D", PriorityLow, base)

	tasks := []*Task{d, b, c, a}
	SortByUrgency(tasks)

	assert.Equal(t, []string{"A", "B", "C", "D"}, titles(tasks))
}

func TestSortByUrgency_UnknownPriorityLast(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	weird := urgencyTask("weird", TaskPriority("CRITICAL"), base.Add(-time.Hour))
	low := urgencyTask("low", PriorityLow, base)

	tasks := []*Task{weird, low}
	SortByUrgency(tasks)

	assert.Equal(t, []string{"low", "weird"}, titles(tasks))
}

func TestCompareUrgency_MissingCreatedAt(t *testing.T) {
	withTime := urgencyTask("with", PriorityMedium, time.Now())
	noTime := urgencyTask("without", PriorityMedium, time.Time{})
	otherNoTime := urgencyTask("without-2", PriorityMedium, time.Time{})

	assert.Equal(t, -1, CompareUrgency(withTime, noTime))
	assert.Equal(t, 1, CompareUrgency(noTime, withTime))
	assert.Equal(t, 0, CompareUrgency(noTime, otherNoTime))
}

func TestCompareUrgency_IsConsistent(t *testing.T) {
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	tasks := []*Task{
		urgencyTask("1", PriorityLow, base),
		urgencyTask("2", PriorityHigh, base.Add(time.Minute)),
		urgencyTask("3", PriorityHigh, time.Time{}),
		urgencyTask("4", TaskPriority(""), base),
		urgencyTask("5", PriorityMedium, base.Add(-time.Minute)),
		urgencyTask("6", PriorityMedium, base.Add(-time.Minute)),
	}

	for _, x := range tasks {
		assert.Equal(t, 0, CompareUrgency(x, x))
		for _, y := range tasks {
			// antisimetría
			assert.Equal(t, -CompareUrgency(x, y), CompareUrgency(y, x))
			for _, z := range tasks {
				// transitividad
				if CompareUrgency(x, y) <= 0 && CompareUrgency(y, z) <= 0 {
					assert.LessOrEqual(t, CompareUrgency(x, z), 0)
				}
			}
		}
	}
}

func TestSortByUrgency_StableForEqualTasks(t *testing.T) {
	first := urgencyTask("first", PriorityHigh, time.Time{})
	second := urgencyTask("second", PriorityHigh, time.Time{})

	tasks := []*Task{first, second}
	SortByUrgency(tasks)

	assert.Equal(t, []string{"first", "second"}, titles(tasks))
}
