// Package milestone defines the milestone record, its validation rules and the
// boundary types shared with the task and project subsystems.
package milestone

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Kind tells where a milestone came from.
type Kind string

const (
	// KindUser milestones are created, edited and deleted by the user.
	KindUser Kind = "user-created"
	// KindTaskDue milestones mirror a task's due date and are owned by the
	// synchronizer.
	KindTaskDue Kind = "derived-task-due"
	// KindDeadline markers are synthesized from a project's deadline for a
	// single layout pass and are never persisted.
	KindDeadline Kind = "deadline"
)

// DerivedTitlePrefix is prepended to the task title for task-due milestones.
const DerivedTitlePrefix = "Task Due: "

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindUser, KindTaskDue, KindDeadline:
		return true
	}
	return false
}

// OrDefault maps the empty kind to KindUser.
func (k Kind) OrDefault() Kind {
	if k == "" {
		return KindUser
	}
	return k
}

// Milestone is a dated marker within a project.
type Milestone struct {
	ID            string    `json:"id"`
	ProjectID     string    `json:"projectId"`
	Title         string    `json:"title"`
	DueDate       Date      `json:"dueDate"`
	Completed     bool      `json:"completed"`
	CompletedDate *Date     `json:"completedDate,omitempty"`
	Position      int       `json:"position"`
	Kind          Kind      `json:"kind,omitempty"`
	SourceTaskID  string    `json:"sourceTaskId,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Key is the identity used for deduplication. Derived milestones are keyed by
// their task so two records for the same task collapse into one; titles are
// display strings and never take part.
func (m Milestone) Key() string {
	switch m.Kind.OrDefault() {
	case KindTaskDue:
		return "task:" + m.SourceTaskID
	case KindDeadline:
		return "deadline:" + m.ProjectID
	default:
		return "id:" + m.ID
	}
}

// Derived reports whether the milestone is owned by the synchronizer.
func (m Milestone) Derived() bool {
	return m.Kind == KindTaskDue
}

// DerivedTitle is the display title of the milestone mirroring a task.
func DerivedTitle(taskTitle string) string {
	return DerivedTitlePrefix + taskTitle
}

// Draft is the input for creating a milestone.
type Draft struct {
	Title        string `json:"title"`
	DueDate      Date   `json:"dueDate"`
	Kind         Kind   `json:"kind,omitempty"`
	SourceTaskID string `json:"sourceTaskId,omitempty"`
	Completed    bool   `json:"completed,omitempty"`
}

// Validate checks the draft and normalizes its kind.
func (d *Draft) Validate() error {
	d.Title = strings.TrimSpace(d.Title)
	d.Kind = d.Kind.OrDefault()
	switch {
	case d.Title == "":
		return fmt.Errorf("%w: title is required", ErrValidation)
	case d.DueDate.IsZero():
		return fmt.Errorf("%w: due date is required", ErrValidation)
	case !d.Kind.Valid():
		return fmt.Errorf("%w: unknown kind %q", ErrValidation, d.Kind)
	case d.Kind == KindDeadline:
		return fmt.Errorf("%w: deadline markers are not stored", ErrValidation)
	case d.Kind == KindTaskDue && d.SourceTaskID == "":
		return fmt.Errorf("%w: derived milestone needs a source task", ErrValidation)
	case d.Kind != KindTaskDue && d.SourceTaskID != "":
		return fmt.Errorf("%w: source task only applies to derived milestones", ErrValidation)
	}
	return nil
}

// Build turns a validated draft into a record. The caller assigns the id and
// position.
func (d Draft) Build(projectID string, now time.Time) Milestone {
	m := Milestone{
		ProjectID:    projectID,
		Title:        d.Title,
		DueDate:      d.DueDate,
		Completed:    d.Completed,
		Kind:         d.Kind.OrDefault(),
		SourceTaskID: d.SourceTaskID,
		CreatedAt:    now.UTC(),
	}
	if d.Completed {
		done := DateOf(now)
		m.CompletedDate = &done
	}
	return m
}

// Patch is a partial update. Nil fields are left alone.
type Patch struct {
	Title     *string `json:"title,omitempty"`
	DueDate   *Date   `json:"dueDate,omitempty"`
	Completed *bool   `json:"completed,omitempty"`
	Position  *int    `json:"position,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Title == nil && p.DueDate == nil && p.Completed == nil && p.Position == nil
}

// Validate rejects patches that would break the record.
func (p Patch) Validate() error {
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	if p.DueDate != nil && p.DueDate.IsZero() {
		return fmt.Errorf("%w: due date is required", ErrValidation)
	}
	return nil
}

// Apply writes the patch onto m. Completing sets the completion date to the
// day of now; reopening clears it.
func (p Patch) Apply(m *Milestone, now time.Time) {
	if p.Title != nil {
		m.Title = strings.TrimSpace(*p.Title)
	}
	if p.DueDate != nil {
		m.DueDate = *p.DueDate
	}
	if p.Position != nil {
		m.Position = *p.Position
	}
	if p.Completed != nil && *p.Completed != m.Completed {
		m.Completed = *p.Completed
		if m.Completed {
			done := DateOf(now)
			m.CompletedDate = &done
		} else {
			m.CompletedDate = nil
		}
	}
}

// Sort orders milestones by due date, then position, then id.
func Sort(ms []Milestone) {
	sort.SliceStable(ms, func(i, j int) bool {
		return Less(ms[i], ms[j])
	})
}

// Less is the (dueDate, position, id) ordering used by stores and layout.
func Less(a, b Milestone) bool {
	if c := a.DueDate.Compare(b.DueDate); c != 0 {
		return c < 0
	}
	if a.Position != b.Position {
		return a.Position < b.Position
	}
	return a.ID < b.ID
}

// NextPosition returns one past the highest position in ms.
func NextPosition(ms []Milestone) int {
	highest := 0
	for _, m := range ms {
		if m.Position > highest {
			highest = m.Position
		}
	}
	return highest + 1
}
