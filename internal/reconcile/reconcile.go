// Package reconcile computes the change set that transforms a stored task
// forest into a freshly parsed one while preserving task identity.
//
// Matching is position-based, not content-based: a node in the incoming
// forest matches the existing node with the same ancestor chain of matched
// nodes and the same ordinal index among siblings. Free-text edits therefore
// never look like a delete-plus-create, at the cost of treating a reorder of
// siblings as edits of each position. That trade-off is deliberate; see the
// design notes in the repository root.
//
// The package performs no I/O. Callers apply deletes before creates and
// updates, and create parents before children (ToCreate is emitted in that
// order already).
package reconcile

import (
	"github.com/tndhk/No26-todo-md/internal/task"
)

// Update is a matched task whose fields changed. Fields carries only the
// changed fields.
type Update struct {
	ID     string
	Fields task.Fields
}

// Create describes a task present in the incoming forest with no positional
// match in the existing one.
//
// When the new task's parent already exists, Skeleton.ParentID names it.
// When the parent is itself being created, ParentIndex is the index of that
// parent within ToCreate (parents always precede their children) and
// Skeleton.ParentID is empty; the applier fills in the id it assigned.
type Create struct {
	Skeleton    task.Skeleton
	ParentIndex int
	// Ordinal is the task's index among its siblings in the incoming forest.
	Ordinal int
}

// ChangeSet is the output of Diff: the ids to delete, the field updates for
// matched tasks, and the skeletons to create.
//
// Deleting a task cascades to its descendants; ToDelete lists only subtree
// roots. Applying the change set to the existing forest yields a forest
// isomorphic to the incoming one with ids preserved wherever a position was
// stable.
type ChangeSet struct {
	ToDelete []string
	ToUpdate []Update
	ToCreate []Create
}

// Empty reports whether the change set changes nothing.
func (cs *ChangeSet) Empty() bool {
	return len(cs.ToDelete) == 0 && len(cs.ToUpdate) == 0 && len(cs.ToCreate) == 0
}

// Diff computes the change set between the authoritative existing forest and
// a freshly parsed incoming forest for the same project.
func Diff(existing, incoming []*task.Task) *ChangeSet {
	cs := &ChangeSet{}
	diffSiblings(cs, existing, incoming, "", -1)
	return cs
}

// diffSiblings walks one sibling level. parentID is the id of the matched
// parent ("" at top level); parentIndex is the ToCreate index of a parent
// that is itself new, or -1.
func diffSiblings(cs *ChangeSet, existing, incoming []*task.Task, parentID string, parentIndex int) {
	n := len(existing)
	if len(incoming) < n {
		n = len(incoming)
	}

	// Matched pairs: same ordinal index among siblings.
	for i := 0; i < n; i++ {
		e, in := existing[i], incoming[i]
		if fields := fieldDiff(e, in); !fields.IsZero() {
			cs.ToUpdate = append(cs.ToUpdate, Update{ID: e.ID, Fields: fields})
		}
		diffSiblings(cs, e.Subtasks, in.Subtasks, e.ID, -1)
	}

	// Existing tail with no positional match: delete (cascades).
	for _, e := range existing[n:] {
		cs.ToDelete = append(cs.ToDelete, e.ID)
	}

	// Incoming tail with no positional match: create, parent first.
	for i, in := range incoming[n:] {
		createSubtree(cs, in, parentID, parentIndex, n+i)
	}
}

// createSubtree emits a Create for t and then for its descendants, so
// parents always precede children in ToCreate.
func createSubtree(cs *ChangeSet, t *task.Task, parentID string, parentIndex int, ordinal int) {
	var due *task.Date
	if t.DueDate != nil {
		d := *t.DueDate
		due = &d
	}
	cs.ToCreate = append(cs.ToCreate, Create{
		Skeleton: task.Skeleton{
			Content:  t.Content,
			Status:   t.Status,
			DueDate:  due,
			Repeat:   t.Repeat,
			ParentID: parentID,
		},
		ParentIndex: parentIndex,
		Ordinal:     ordinal,
	})
	selfIndex := len(cs.ToCreate) - 1
	for i, sub := range t.Subtasks {
		createSubtree(cs, sub, "", selfIndex, i)
	}
}

// fieldDiff returns the partial update that makes existing equal to incoming.
func fieldDiff(e, in *task.Task) task.Fields {
	var f task.Fields
	if e.Content != in.Content {
		c := in.Content
		f.Content = &c
	}
	if e.Status != in.Status {
		s := in.Status
		f.Status = &s
	}
	switch {
	case e.DueDate == nil && in.DueDate != nil:
		d := *in.DueDate
		f.DueDate = &d
	case e.DueDate != nil && in.DueDate == nil:
		f.ClearDue = true
	case e.DueDate != nil && in.DueDate != nil && !e.DueDate.Equal(*in.DueDate):
		d := *in.DueDate
		f.DueDate = &d
	}
	if e.Repeat != in.Repeat {
		if in.Repeat == task.RepeatNone {
			f.ClearRepeat = true
		} else {
			r := in.Repeat
			f.Repeat = &r
		}
	}
	return f
}
