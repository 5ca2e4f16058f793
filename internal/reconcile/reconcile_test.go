package reconcile

import (
	"testing"

	"github.com/tndhk/No26-todo-md/internal/task"
)

func date(y, m, d int) *task.Date {
	dt := task.Date{Year: y, Month: m, Day: d}
	return &dt
}

func TestDiffIdenticalForestsIsEmpty(t *testing.T) {
	forest := []*task.Task{
		{ID: "p-1", Content: "a", Status: task.StatusTodo, DueDate: date(2026, 1, 1), Subtasks: []*task.Task{
			{ID: "p-2", Content: "b", Status: task.StatusDone},
		}},
	}
	cs := Diff(forest, task.CloneForest(forest))
	if !cs.Empty() {
		t.Errorf("Diff of identical forests = %+v, want empty", cs)
	}
}

func TestDiffFieldUpdates(t *testing.T) {
	existing := []*task.Task{
		{ID: "p-1", Content: "old text", Status: task.StatusTodo, DueDate: date(2026, 1, 1), Repeat: task.RepeatDaily},
	}
	incoming := []*task.Task{
		{Content: "new text", Status: task.StatusDoing, DueDate: date(2026, 2, 2)},
	}

	cs := Diff(existing, incoming)
	if len(cs.ToDelete) != 0 || len(cs.ToCreate) != 0 {
		t.Fatalf("unexpected deletes/creates: %+v", cs)
	}
	if len(cs.ToUpdate) != 1 {
		t.Fatalf("got %d updates, want 1", len(cs.ToUpdate))
	}

	u := cs.ToUpdate[0]
	if u.ID != "p-1" {
		t.Errorf("update id = %q, want p-1", u.ID)
	}
	f := u.Fields
	if f.Content == nil || *f.Content != "new text" {
		t.Errorf("Content = %v", f.Content)
	}
	if f.Status == nil || *f.Status != task.StatusDoing {
		t.Errorf("Status = %v", f.Status)
	}
	if f.DueDate == nil || *f.DueDate != (task.Date{Year: 2026, Month: 2, Day: 2}) {
		t.Errorf("DueDate = %v", f.DueDate)
	}
	if !f.ClearRepeat {
		t.Error("ClearRepeat = false, want true")
	}
}

func TestDiffClearDue(t *testing.T) {
	existing := []*task.Task{{ID: "p-1", Content: "a", DueDate: date(2026, 1, 1)}}
	incoming := []*task.Task{{Content: "a"}}

	cs := Diff(existing, incoming)
	if len(cs.ToUpdate) != 1 || !cs.ToUpdate[0].Fields.ClearDue {
		t.Fatalf("want a ClearDue update, got %+v", cs)
	}
}

func TestDiffTailDelete(t *testing.T) {
	existing := []*task.Task{
		{ID: "p-1", Content: "keep"},
		{ID: "p-2", Content: "drop", Subtasks: []*task.Task{
			{ID: "p-3", Content: "drop with parent"},
		}},
	}
	incoming := []*task.Task{{Content: "keep"}}

	cs := Diff(existing, incoming)
	if len(cs.ToUpdate) != 0 || len(cs.ToCreate) != 0 {
		t.Fatalf("unexpected updates/creates: %+v", cs)
	}
	// Only the subtree root is listed; deletion cascades.
	if len(cs.ToDelete) != 1 || cs.ToDelete[0] != "p-2" {
		t.Errorf("ToDelete = %v, want [p-2]", cs.ToDelete)
	}
}

func TestDiffChildTailDelete(t *testing.T) {
	existing := []*task.Task{
		{ID: "p-1", Content: "parent", Subtasks: []*task.Task{
			{ID: "p-2", Content: "keep"},
			{ID: "p-3", Content: "drop"},
		}},
	}
	incoming := []*task.Task{
		{Content: "parent", Subtasks: []*task.Task{{Content: "keep"}}},
	}

	cs := Diff(existing, incoming)
	if len(cs.ToDelete) != 1 || cs.ToDelete[0] != "p-3" {
		t.Errorf("ToDelete = %v, want [p-3]", cs.ToDelete)
	}
}

func TestDiffCreateUnderExistingParent(t *testing.T) {
	existing := []*task.Task{
		{ID: "p-1", Content: "parent", Subtasks: []*task.Task{
			{ID: "p-2", Content: "first"},
		}},
	}
	incoming := []*task.Task{
		{Content: "parent", Subtasks: []*task.Task{
			{Content: "first"},
			{Content: "second", DueDate: date(2026, 6, 1)},
		}},
	}

	cs := Diff(existing, incoming)
	if len(cs.ToCreate) != 1 {
		t.Fatalf("got %d creates, want 1", len(cs.ToCreate))
	}
	c := cs.ToCreate[0]
	if c.Skeleton.ParentID != "p-1" {
		t.Errorf("ParentID = %q, want p-1", c.Skeleton.ParentID)
	}
	if c.ParentIndex != -1 {
		t.Errorf("ParentIndex = %d, want -1", c.ParentIndex)
	}
	if c.Ordinal != 1 {
		t.Errorf("Ordinal = %d, want 1", c.Ordinal)
	}
	if c.Skeleton.DueDate == nil || *c.Skeleton.DueDate != (task.Date{Year: 2026, Month: 6, Day: 1}) {
		t.Errorf("DueDate = %v", c.Skeleton.DueDate)
	}
}

func TestDiffCreateSubtreeParentFirst(t *testing.T) {
	incoming := []*task.Task{
		{Content: "new parent", Subtasks: []*task.Task{
			{Content: "new child", Subtasks: []*task.Task{
				{Content: "new grandchild"},
			}},
		}},
	}

	cs := Diff(nil, incoming)
	if len(cs.ToCreate) != 3 {
		t.Fatalf("got %d creates, want 3", len(cs.ToCreate))
	}

	root, child, grand := cs.ToCreate[0], cs.ToCreate[1], cs.ToCreate[2]
	if root.ParentIndex != -1 || root.Skeleton.ParentID != "" {
		t.Errorf("root parent refs = (%d, %q)", root.ParentIndex, root.Skeleton.ParentID)
	}
	if child.ParentIndex != 0 {
		t.Errorf("child ParentIndex = %d, want 0", child.ParentIndex)
	}
	if grand.ParentIndex != 1 {
		t.Errorf("grandchild ParentIndex = %d, want 1", grand.ParentIndex)
	}
	if root.Ordinal != 0 || child.Ordinal != 0 || grand.Ordinal != 0 {
		t.Errorf("ordinals = %d, %d, %d", root.Ordinal, child.Ordinal, grand.Ordinal)
	}
}

// A content edit at a stable position is an update, never delete-plus-create.
func TestDiffEditPreservesIdentity(t *testing.T) {
	existing := []*task.Task{
		{ID: "p-1", Content: "buy milk"},
		{ID: "p-2", Content: "walk dog"},
	}
	incoming := []*task.Task{
		{Content: "buy oat milk"},
		{Content: "walk dog"},
	}

	cs := Diff(existing, incoming)
	if len(cs.ToDelete) != 0 || len(cs.ToCreate) != 0 {
		t.Fatalf("edit produced deletes/creates: %+v", cs)
	}
	if len(cs.ToUpdate) != 1 || cs.ToUpdate[0].ID != "p-1" {
		t.Fatalf("ToUpdate = %+v", cs.ToUpdate)
	}
}

// Matching is positional: a reorder reads as edits of each moved position.
func TestDiffReorderBecomesUpdates(t *testing.T) {
	existing := []*task.Task{
		{ID: "p-1", Content: "first"},
		{ID: "p-2", Content: "second"},
	}
	incoming := []*task.Task{
		{Content: "second"},
		{Content: "first"},
	}

	cs := Diff(existing, incoming)
	if len(cs.ToDelete) != 0 || len(cs.ToCreate) != 0 {
		t.Fatalf("reorder produced deletes/creates: %+v", cs)
	}
	if len(cs.ToUpdate) != 2 {
		t.Fatalf("got %d updates, want 2", len(cs.ToUpdate))
	}
}

func TestDiffGrowShrinkMixed(t *testing.T) {
	existing := []*task.Task{
		{ID: "p-1", Content: "a"},
		{ID: "p-2", Content: "b"},
		{ID: "p-3", Content: "c"},
	}
	incoming := []*task.Task{
		{Content: "a"},
		{Content: "b changed"},
	}

	cs := Diff(existing, incoming)
	if len(cs.ToDelete) != 1 || cs.ToDelete[0] != "p-3" {
		t.Errorf("ToDelete = %v", cs.ToDelete)
	}
	if len(cs.ToUpdate) != 1 || cs.ToUpdate[0].ID != "p-2" {
		t.Errorf("ToUpdate = %+v", cs.ToUpdate)
	}
	if len(cs.ToCreate) != 0 {
		t.Errorf("ToCreate = %+v", cs.ToCreate)
	}
}
