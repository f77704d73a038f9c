package milestone

import "context"

// Task is the read-only view of a task owned by the task subsystem.
type Task struct {
	ID        string `json:"id"`
	ProjectID string `json:"projectId"`
	Title     string `json:"title"`
	DueDate   *Date  `json:"dueDate,omitempty"`
	Completed bool   `json:"completed"`
}

// HasDue reports whether the task carries a due date.
func (t Task) HasDue() bool {
	return t.DueDate != nil && !t.DueDate.IsZero()
}

// Project is the slice of a project this package needs.
type Project struct {
	ID       string `json:"id"`
	Name     string `json:"name,omitempty"`
	Deadline *Date  `json:"deadline,omitempty"`
}

// TaskSource lists the tasks of a project.
type TaskSource interface {
	TasksOf(ctx context.Context, projectID string) ([]Task, error)
}

// ProjectSource resolves a project by id. Unknown projects are reported with
// ErrNotFound.
type ProjectSource interface {
	Project(ctx context.Context, projectID string) (Project, error)
}
