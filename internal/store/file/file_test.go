package file

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/tndhk/No26-todo-md/internal/reconcile"
	"github.com/tndhk/No26-todo-md/internal/store"
	"github.com/tndhk/No26-todo-md/internal/task"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	return s
}

func TestProjectLifecycle(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	p, err := s.CreateProject(ctx, "Errands")
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	if _, err := os.Stat(s.projectPath(p.ID)); err != nil {
		t.Fatalf("project file missing: %v", err)
	}

	if err := s.UpdateProjectTitle(ctx, p.ID, "Weekend Errands"); err != nil {
		t.Fatalf("UpdateProjectTitle: %v", err)
	}
	title, err := s.LoadProjectTitle(ctx, p.ID)
	if err != nil {
		t.Fatalf("LoadProjectTitle: %v", err)
	}
	if title != "Weekend Errands" {
		t.Errorf("title = %q", title)
	}

	projects, err := s.ListProjects(ctx)
	if err != nil {
		t.Fatalf("ListProjects: %v", err)
	}
	if len(projects) != 1 || projects[0].ID != p.ID {
		t.Errorf("ListProjects = %+v", projects)
	}

	if err := s.DeleteProject(ctx, p.ID); err != nil {
		t.Fatalf("DeleteProject: %v", err)
	}
	if _, err := s.LoadProjectTitle(ctx, p.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("after delete, err = %v, want ErrNotFound", err)
	}
}

func TestTasksSurviveReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	p, _ := s.CreateProject(ctx, "P")
	due := task.Date{Year: 2025, Month: 2, Day: 30}
	parent, err := s.CreateTask(ctx, p.ID, task.Skeleton{Content: "parent", DueDate: &due}, 0)
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if _, err := s.CreateTask(ctx, p.ID, task.Skeleton{Content: "child", ParentID: parent.ID, Repeat: task.RepeatMonthly}, 0); err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	// A fresh store over the same directory sees the same state.
	s2, err := Open(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	forest, err := s2.LoadProjectTasks(ctx, p.ID)
	if err != nil {
		t.Fatalf("LoadProjectTasks: %v", err)
	}
	if len(forest) != 1 || len(forest[0].Subtasks) != 1 {
		t.Fatalf("forest = %+v", forest)
	}
	if forest[0].DueDate == nil || *forest[0].DueDate != due {
		t.Errorf("due date did not survive: %v", forest[0].DueDate)
	}
	if forest[0].Subtasks[0].Repeat != task.RepeatMonthly {
		t.Errorf("repeat did not survive: %q", forest[0].Subtasks[0].Repeat)
	}
}

func TestInsertTaskSplicesAtOrdinal(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	p, _ := s.CreateProject(ctx, "P")
	_, _ = s.CreateTask(ctx, p.ID, task.Skeleton{Content: "a"}, 0)
	_, _ = s.CreateTask(ctx, p.ID, task.Skeleton{Content: "c"}, 1)
	_, _ = s.CreateTask(ctx, p.ID, task.Skeleton{Content: "b"}, 1)

	forest, _ := s.LoadProjectTasks(ctx, p.ID)
	got := []string{forest[0].Content, forest[1].Content, forest[2].Content}
	if got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Errorf("order = %v, want [a b c]", got)
	}
}

func TestUpdateAndDeleteTask(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	p, _ := s.CreateProject(ctx, "P")
	parent, _ := s.CreateTask(ctx, p.ID, task.Skeleton{Content: "parent"}, 0)
	_, _ = s.CreateTask(ctx, p.ID, task.Skeleton{Content: "child", ParentID: parent.ID}, 0)

	done := task.StatusDone
	if err := s.UpdateTask(ctx, p.ID, parent.ID, task.Fields{Status: &done}); err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}
	got, _ := s.GetTask(ctx, p.ID, parent.ID)
	if got.Status != task.StatusDone {
		t.Errorf("status = %q", got.Status)
	}

	if err := s.DeleteTask(ctx, p.ID, parent.ID); err != nil {
		t.Fatalf("DeleteTask: %v", err)
	}
	forest, _ := s.LoadProjectTasks(ctx, p.ID)
	if len(forest) != 0 {
		t.Errorf("forest after subtree delete = %+v", forest)
	}

	if err := s.DeleteTask(ctx, p.ID, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("delete missing err = %v, want ErrNotFound", err)
	}
}

func TestApplyChangeSet(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	p, _ := s.CreateProject(ctx, "P")
	keep, _ := s.CreateTask(ctx, p.ID, task.Skeleton{Content: "keep"}, 0)
	drop, _ := s.CreateTask(ctx, p.ID, task.Skeleton{Content: "drop"}, 1)

	doing := task.StatusDoing
	cs := &reconcile.ChangeSet{
		ToDelete: []string{drop.ID},
		ToUpdate: []reconcile.Update{{ID: keep.ID, Fields: task.Fields{Status: &doing}}},
		ToCreate: []reconcile.Create{
			{Skeleton: task.Skeleton{Content: "new parent"}, ParentIndex: -1, Ordinal: 1},
			{Skeleton: task.Skeleton{Content: "new child"}, ParentIndex: 0, Ordinal: 0},
		},
	}

	created, err := s.ApplyChangeSet(ctx, p.ID, cs)
	if err != nil {
		t.Fatalf("ApplyChangeSet: %v", err)
	}
	if len(created) != 2 {
		t.Fatalf("created = %v", created)
	}

	forest, _ := s.LoadProjectTasks(ctx, p.ID)
	if len(forest) != 2 {
		t.Fatalf("got %d roots: %+v", len(forest), forest)
	}
	if forest[0].ID != keep.ID || forest[0].Status != task.StatusDoing {
		t.Errorf("root 0 = %+v", forest[0])
	}
	if forest[1].Content != "new parent" || len(forest[1].Subtasks) != 1 {
		t.Errorf("root 1 = %+v", forest[1])
	}
	if forest[1].Subtasks[0].Content != "new child" {
		t.Errorf("child = %+v", forest[1].Subtasks[0])
	}
}

func TestLoadMissingProject(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.LoadProjectTasks(context.Background(), "nope"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}
