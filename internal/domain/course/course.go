package course

import "time"

// UserRef is a borrowed reference to a user owned by the course directory.
type UserRef struct {
	ID    string
	Email string
	Name  string
}

// Course is a read-only snapshot of a training course.
// Completion is a percentage in [0,100].
type Course struct {
	ID          string
	Name        string
	Completion  int
	ExpiresAt   time.Time
	Responsible *UserRef  // nil when the course has no responsible party
	Assigned    []UserRef // in stored order
}

// IsComplete reports whether the course needs no further reminders.
func (c *Course) IsComplete() bool {
	return c.Completion >= 100
}

// RemainingPercent is the share still to complete, floored at 0.
func (c *Course) RemainingPercent() int {
	return RemainingPercent(c.Completion)
}

func RemainingPercent(completion int) int {
	if completion >= 100 {
		return 0
	}
	if completion < 0 {
		return 100
	}
	return 100 - completion
}
