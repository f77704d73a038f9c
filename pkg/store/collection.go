package store

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"tableflip.dev/pomo/pkg/milestone"
)

// collection is the flat list of milestones for every project. The memory and
// device backends both mutate it; they differ only in where it lives between
// calls.
type collection []milestone.Milestone

func (c collection) forProject(projectID string) []milestone.Milestone {
	out := make([]milestone.Milestone, 0)
	for _, m := range c {
		if m.ProjectID == projectID {
			out = append(out, m)
		}
	}
	milestone.Sort(out)
	return out
}

func (c collection) find(id string) int {
	for i := range c {
		if c[i].ID == id {
			return i
		}
	}
	return -1
}

func (c collection) get(id string) (milestone.Milestone, error) {
	idx := c.find(id)
	if idx < 0 {
		return milestone.Milestone{}, fmt.Errorf("%w: %s", milestone.ErrNotFound, id)
	}
	return c[idx], nil
}

func (c *collection) create(projectID string, d milestone.Draft, now time.Time) (milestone.Milestone, error) {
	if projectID == "" {
		return milestone.Milestone{}, fmt.Errorf("%w: project id is required", milestone.ErrValidation)
	}
	if err := d.Validate(); err != nil {
		return milestone.Milestone{}, err
	}
	m := d.Build(projectID, now)
	m.ID = uuid.NewString()
	m.Position = milestone.NextPosition(c.forProject(projectID))
	*c = append(*c, m)
	return m, nil
}

func (c collection) update(id string, p milestone.Patch, now time.Time) (milestone.Milestone, error) {
	if err := p.Validate(); err != nil {
		return milestone.Milestone{}, err
	}
	idx := c.find(id)
	if idx < 0 {
		return milestone.Milestone{}, fmt.Errorf("%w: %s", milestone.ErrNotFound, id)
	}
	p.Apply(&c[idx], now)
	return c[idx], nil
}

// remove reports whether anything was deleted.
func (c *collection) remove(id string) bool {
	idx := c.find(id)
	if idx < 0 {
		return false
	}
	*c = append((*c)[:idx], (*c)[idx+1:]...)
	return true
}

// normalize fills defaults on records written by older versions.
func (c collection) normalize() {
	for i := range c {
		c[i].Kind = c[i].Kind.OrDefault()
	}
}
