package tasks

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/fatih/color"
	log "github.com/sirupsen/logrus"

	"tableflip.dev/pomo/pkg/app"
	"tableflip.dev/pomo/pkg/bus"
	"tableflip.dev/pomo/pkg/milestone"
	"tableflip.dev/pomo/pkg/store"
	"tableflip.dev/pomo/pkg/tasks"
)

func TestTaskChangesDriveDerivedMilestones(t *testing.T) {
	color.NoColor = true
	ctx := context.Background()
	catalog, err := tasks.NewCatalog(t.TempDir(), log.New())
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	svc := &app.Service{
		Store:    store.NewMemory(),
		Tasks:    catalog,
		Projects: catalog,
		Bus:      bus.New(log.New()),
		Now:      func() time.Time { return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC) },
	}
	defer svc.Attach()()

	var buf bytes.Buffer
	add := &Add{Service: svc, Catalog: catalog, Project: "P1", Title: "Write", On: milestone.MustParseDate("2024-06-05"), Out: &buf}
	if err := add.Do(ctx); err != nil {
		t.Fatalf("add: %v", err)
	}
	ms, _ := svc.Milestones(ctx, "P1")
	if len(ms) != 1 || ms[0].Title != "Task Due: Write" {
		t.Fatalf("expected derived milestone, got %+v", ms)
	}
	taskID := ms[0].SourceTaskID

	due := &Due{Service: svc, Catalog: catalog, ID: taskID, On: milestone.MustParseDate("2024-06-08"), Out: &buf}
	if err := due.Do(ctx); err != nil {
		t.Fatalf("due: %v", err)
	}
	moved, _ := svc.Milestones(ctx, "P1")
	if len(moved) != 1 || moved[0].ID != ms[0].ID || moved[0].DueDate.String() != "2024-06-08" {
		t.Fatalf("expected in-place move, got %+v", moved)
	}

	if err := (&Remove{Service: svc, Catalog: catalog, IDs: []string{taskID}, Out: &buf}).Do(ctx); err != nil {
		t.Fatalf("remove: %v", err)
	}
	gone, _ := svc.Milestones(ctx, "P1")
	if len(gone) != 0 {
		t.Fatalf("expected derived milestone removed, got %+v", gone)
	}
}
