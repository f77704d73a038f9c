package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/peterbourgon/diskv/v3"
	log "github.com/sirupsen/logrus"

	"tableflip.dev/pomo/pkg/milestone"
)

const (
	// collectionKey names the single record holding every project's
	// milestones.
	collectionKey = "milestones"
	tempDirName   = ".tmp"
)

var _ Store = (*Device)(nil)

// Device stores all milestones of all projects as one serialized array on
// local disk. Reads filter by project; every mutation rewrites the array.
// The mutex only orders writers inside this process; concurrent writers in
// other processes can still overwrite each other.
type Device struct {
	d        *diskv.Diskv
	basePath string
	mu       sync.Mutex
	now      func() time.Time
	log      *log.Logger
}

// NewDevice opens (creating if needed) the on-device store under basePath.
func NewDevice(basePath string, logger *log.Logger) (*Device, error) {
	if basePath == "" {
		return nil, errors.New("store: base path required")
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("%w: ensure base path: %v", milestone.ErrBackendUnavailable, err)
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Device{
		d: diskv.New(diskv.Options{
			BasePath:  basePath,
			TempDir:   filepath.Join(basePath, tempDirName),
			Transform: flatTransform,
			// Other processes write the same file, so never serve reads
			// from memory.
			CacheSizeMax: 0,
		}),
		basePath: basePath,
		now:      time.Now,
		log:      logger,
	}, nil
}

func flatTransform(string) []string { return []string{} }

// BasePath is the directory holding the collection file.
func (p *Device) BasePath() string { return p.basePath }

func (p *Device) load() (collection, error) {
	val, err := p.d.Read(collectionKey)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return collection{}, nil
		}
		return nil, fmt.Errorf("%w: read %s: %v", milestone.ErrBackendUnavailable, collectionKey, err)
	}
	if len(val) == 0 {
		return collection{}, nil
	}
	var items collection
	if err := sonic.ConfigStd.Unmarshal(val, &items); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", milestone.ErrBackendUnavailable, collectionKey, err)
	}
	items.normalize()
	return items, nil
}

func (p *Device) save(items collection) error {
	data, err := sonic.ConfigStd.Marshal(items)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %v", milestone.ErrBackendUnavailable, collectionKey, err)
	}
	if err := p.d.Write(collectionKey, data); err != nil {
		return fmt.Errorf("%w: write %s: %v", milestone.ErrBackendUnavailable, collectionKey, err)
	}
	return nil
}

// mutate runs fn over the loaded collection and writes it back when fn
// reports a change.
func (p *Device) mutate(fn func(*collection) (bool, error)) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	items, err := p.load()
	if err != nil {
		return err
	}
	changed, err := fn(&items)
	if err != nil || !changed {
		return err
	}
	return p.save(items)
}

func (p *Device) List(ctx context.Context, projectID string) ([]milestone.Milestone, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	items, err := p.load()
	if err != nil {
		return nil, err
	}
	return items.forProject(projectID), nil
}

func (p *Device) Get(ctx context.Context, id string) (milestone.Milestone, error) {
	if err := ctx.Err(); err != nil {
		return milestone.Milestone{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	items, err := p.load()
	if err != nil {
		return milestone.Milestone{}, err
	}
	return items.get(id)
}

func (p *Device) Create(ctx context.Context, projectID string, d milestone.Draft) (milestone.Milestone, error) {
	if err := ctx.Err(); err != nil {
		return milestone.Milestone{}, err
	}
	var created milestone.Milestone
	err := p.mutate(func(items *collection) (bool, error) {
		m, err := items.create(projectID, d, p.now())
		if err != nil {
			return false, err
		}
		created = m
		return true, nil
	})
	if err != nil {
		return milestone.Milestone{}, err
	}
	p.log.WithFields(log.Fields{"project": projectID, "id": created.ID, "kind": created.Kind}).Debug("store.device.create")
	return created, nil
}

func (p *Device) Update(ctx context.Context, id string, patch milestone.Patch) (milestone.Milestone, error) {
	if err := ctx.Err(); err != nil {
		return milestone.Milestone{}, err
	}
	var updated milestone.Milestone
	err := p.mutate(func(items *collection) (bool, error) {
		m, err := items.update(id, patch, p.now())
		if err != nil {
			return false, err
		}
		updated = m
		return true, nil
	})
	if err != nil {
		return milestone.Milestone{}, err
	}
	p.log.WithFields(log.Fields{"project": updated.ProjectID, "id": id}).Debug("store.device.update")
	return updated, nil
}

func (p *Device) Remove(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.mutate(func(items *collection) (bool, error) {
		removed := items.remove(id)
		if removed {
			p.log.WithField("id", id).Debug("store.device.remove")
		}
		return removed, nil
	})
}
