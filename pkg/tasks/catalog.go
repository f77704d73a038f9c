// Package tasks is the minimal task and project catalog the CLI and server
// need to feed the synchronizer and the timeline.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/peterbourgon/diskv/v3"
	log "github.com/sirupsen/logrus"

	"tableflip.dev/pomo/pkg/milestone"
)

const (
	tasksKey    = "tasks"
	projectsKey = "projects"
)

// ErrTaskNotFound is returned for unknown task ids.
var ErrTaskNotFound = errors.New("tasks: not found")

var (
	_ milestone.TaskSource    = (*Catalog)(nil)
	_ milestone.ProjectSource = (*Catalog)(nil)
)

// Catalog keeps tasks and projects as two serialized arrays on disk, next to
// the milestone collection.
type Catalog struct {
	d   *diskv.Diskv
	mu  sync.Mutex
	log *log.Logger
}

// NewCatalog opens the catalog under basePath.
func NewCatalog(basePath string, logger *log.Logger) (*Catalog, error) {
	if basePath == "" {
		return nil, errors.New("tasks: base path required")
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("tasks: ensure base path: %w", err)
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Catalog{
		d: diskv.New(diskv.Options{
			BasePath:     basePath,
			TempDir:      filepath.Join(basePath, ".tmp"),
			Transform:    func(string) []string { return []string{} },
			CacheSizeMax: 0,
		}),
		log: logger,
	}, nil
}

func (c *Catalog) read(key string, v any) error {
	val, err := c.d.Read(key)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("%w: read %s: %v", milestone.ErrBackendUnavailable, key, err)
	}
	if len(val) == 0 {
		return nil
	}
	if err := sonic.ConfigStd.Unmarshal(val, v); err != nil {
		return fmt.Errorf("%w: decode %s: %v", milestone.ErrBackendUnavailable, key, err)
	}
	return nil
}

func (c *Catalog) write(key string, v any) error {
	data, err := sonic.ConfigStd.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %v", milestone.ErrBackendUnavailable, key, err)
	}
	if err := c.d.Write(key, data); err != nil {
		return fmt.Errorf("%w: write %s: %v", milestone.ErrBackendUnavailable, key, err)
	}
	return nil
}

func (c *Catalog) loadTasks() ([]milestone.Task, error) {
	var ts []milestone.Task
	if err := c.read(tasksKey, &ts); err != nil {
		return nil, err
	}
	return ts, nil
}

// PutTask creates or replaces a task. An empty id gets a fresh one.
func (c *Catalog) PutTask(ctx context.Context, t milestone.Task) (milestone.Task, error) {
	if err := ctx.Err(); err != nil {
		return milestone.Task{}, err
	}
	t.Title = strings.TrimSpace(t.Title)
	switch {
	case t.ProjectID == "":
		return milestone.Task{}, fmt.Errorf("%w: project id is required", milestone.ErrValidation)
	case t.Title == "":
		return milestone.Task{}, fmt.Errorf("%w: task title is required", milestone.ErrValidation)
	}
	if t.DueDate != nil && t.DueDate.IsZero() {
		t.DueDate = nil
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	ts, err := c.loadTasks()
	if err != nil {
		return milestone.Task{}, err
	}
	replaced := false
	for i := range ts {
		if ts[i].ID == t.ID {
			ts[i] = t
			replaced = true
			break
		}
	}
	if !replaced {
		ts = append(ts, t)
	}
	if err := c.write(tasksKey, ts); err != nil {
		return milestone.Task{}, err
	}
	c.log.WithFields(log.Fields{"project": t.ProjectID, "task": t.ID}).Debug("tasks.put")
	return t, nil
}

// Task returns a single task.
func (c *Catalog) Task(ctx context.Context, id string) (milestone.Task, error) {
	if err := ctx.Err(); err != nil {
		return milestone.Task{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	ts, err := c.loadTasks()
	if err != nil {
		return milestone.Task{}, err
	}
	for _, t := range ts {
		if t.ID == id {
			return t, nil
		}
	}
	return milestone.Task{}, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
}

// DeleteTask removes a task and reports the project it belonged to. Unknown
// ids are not an error; the returned project is empty.
func (c *Catalog) DeleteTask(ctx context.Context, id string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	ts, err := c.loadTasks()
	if err != nil {
		return "", err
	}
	for i, t := range ts {
		if t.ID != id {
			continue
		}
		ts = append(ts[:i], ts[i+1:]...)
		if err := c.write(tasksKey, ts); err != nil {
			return "", err
		}
		return t.ProjectID, nil
	}
	return "", nil
}

// TasksOf lists a project's tasks in insertion order.
func (c *Catalog) TasksOf(ctx context.Context, projectID string) ([]milestone.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	ts, err := c.loadTasks()
	if err != nil {
		return nil, err
	}
	out := make([]milestone.Task, 0)
	for _, t := range ts {
		if t.ProjectID == projectID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (c *Catalog) loadProjects() (map[string]milestone.Project, error) {
	ps := map[string]milestone.Project{}
	if err := c.read(projectsKey, &ps); err != nil {
		return nil, err
	}
	return ps, nil
}

// SetDeadline sets or, with a nil deadline, clears a project's deadline. The
// project record is created on first use.
func (c *Catalog) SetDeadline(ctx context.Context, projectID string, deadline *milestone.Date) (milestone.Project, error) {
	if err := ctx.Err(); err != nil {
		return milestone.Project{}, err
	}
	if projectID == "" {
		return milestone.Project{}, fmt.Errorf("%w: project id is required", milestone.ErrValidation)
	}
	if deadline != nil && deadline.IsZero() {
		deadline = nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	ps, err := c.loadProjects()
	if err != nil {
		return milestone.Project{}, err
	}
	p := ps[projectID]
	p.ID = projectID
	p.Deadline = deadline
	ps[projectID] = p
	if err := c.write(projectsKey, ps); err != nil {
		return milestone.Project{}, err
	}
	return p, nil
}

// Project returns the stored project or milestone.ErrNotFound.
func (c *Catalog) Project(ctx context.Context, projectID string) (milestone.Project, error) {
	if err := ctx.Err(); err != nil {
		return milestone.Project{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	ps, err := c.loadProjects()
	if err != nil {
		return milestone.Project{}, err
	}
	p, ok := ps[projectID]
	if !ok {
		return milestone.Project{}, fmt.Errorf("%w: project %s", milestone.ErrNotFound, projectID)
	}
	return p, nil
}

// Projects lists every known project id, sorted.
func (c *Catalog) Projects(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	ps, err := c.loadProjects()
	if err != nil {
		return nil, err
	}
	ts, err := c.loadTasks()
	if err != nil {
		return nil, err
	}
	seen := map[string]struct{}{}
	for id := range ps {
		seen[id] = struct{}{}
	}
	for _, t := range ts {
		seen[t.ProjectID] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}
