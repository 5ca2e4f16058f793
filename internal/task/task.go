// Package task defines the task data model shared by the parser, the
// reconciler, and the storage backends.
package task

import (
	"fmt"
)

// Status represents a task status. It doubles as the section name a task is
// rendered under in the Markdown document.
type Status string

const (
	StatusTodo  Status = "todo"
	StatusDoing Status = "doing"
	StatusDone  Status = "done"
)

// Valid reports whether s is one of the recognized statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusTodo, StatusDoing, StatusDone:
		return true
	}
	return false
}

// Repeat represents a recurrence frequency. The zero value means the task
// does not repeat.
type Repeat string

const (
	RepeatNone    Repeat = ""
	RepeatDaily   Repeat = "daily"
	RepeatWeekly  Repeat = "weekly"
	RepeatMonthly Repeat = "monthly"
)

// Valid reports whether r is a recognized frequency (including none).
func (r Repeat) Valid() bool {
	switch r {
	case RepeatNone, RepeatDaily, RepeatWeekly, RepeatMonthly:
		return true
	}
	return false
}

// Task is a node in a project's task forest.
//
// ID is stable identity, unique within a project, assigned at creation and
// never reused. Subtasks order is meaningful: it is the document order.
// RawLine and LineNumber are parse-time diagnostics and are not persisted.
type Task struct {
	ID         string  `json:"id"`
	Content    string  `json:"content"`
	Status     Status  `json:"status"`
	DueDate    *Date   `json:"due_date,omitempty"`
	Repeat     Repeat  `json:"repeat,omitempty"`
	ParentID   string  `json:"parent_id,omitempty"`
	Subtasks   []*Task `json:"subtasks,omitempty"`
	RawLine    string  `json:"-"`
	LineNumber int     `json:"-"`
}

// Clone returns a deep copy of the task and its subtasks.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	c := *t
	if t.DueDate != nil {
		d := *t.DueDate
		c.DueDate = &d
	}
	c.Subtasks = CloneForest(t.Subtasks)
	return &c
}

// Walk calls fn for the task and every descendant in document order.
// Walking stops early if fn returns false.
func (t *Task) Walk(fn func(*Task) bool) bool {
	if !fn(t) {
		return false
	}
	for _, sub := range t.Subtasks {
		if !sub.Walk(fn) {
			return false
		}
	}
	return true
}

// CloneForest deep-copies a task forest.
func CloneForest(forest []*Task) []*Task {
	if forest == nil {
		return nil
	}
	out := make([]*Task, len(forest))
	for i, t := range forest {
		out[i] = t.Clone()
	}
	return out
}

// WalkForest calls fn for every task in the forest in document order.
func WalkForest(forest []*Task, fn func(*Task) bool) {
	for _, t := range forest {
		if !t.Walk(fn) {
			return
		}
	}
}

// CountForest returns the total number of tasks in the forest, subtasks
// included.
func CountForest(forest []*Task) int {
	n := 0
	WalkForest(forest, func(*Task) bool {
		n++
		return true
	})
	return n
}

// Project groups a title and an ordered task forest under a stable id.
// Path is the storage key assigned by the persistence backend.
type Project struct {
	ID    string  `json:"id"`
	Title string  `json:"title"`
	Path  string  `json:"path,omitempty"`
	Tasks []*Task `json:"tasks"`
}

// Skeleton describes a task to be created. It carries everything except the
// identity, which the persistence backend assigns.
type Skeleton struct {
	Content  string
	Status   Status
	DueDate  *Date
	Repeat   Repeat
	ParentID string
}

// Fields is a partial task update. Nil pointers leave the corresponding
// field unchanged; clearing an optional field is expressed with the Clear
// flags so that "unchanged" and "removed" stay distinguishable.
type Fields struct {
	Content     *string
	Status      *Status
	DueDate     *Date
	ClearDue    bool
	Repeat      *Repeat
	ClearRepeat bool
}

// IsZero reports whether the update changes nothing.
func (f Fields) IsZero() bool {
	return f.Content == nil && f.Status == nil &&
		f.DueDate == nil && !f.ClearDue &&
		f.Repeat == nil && !f.ClearRepeat
}

// Apply mutates t according to the partial update.
func (f Fields) Apply(t *Task) {
	if f.Content != nil {
		t.Content = *f.Content
	}
	if f.Status != nil {
		t.Status = *f.Status
	}
	if f.DueDate != nil {
		d := *f.DueDate
		t.DueDate = &d
	} else if f.ClearDue {
		t.DueDate = nil
	}
	if f.Repeat != nil {
		t.Repeat = *f.Repeat
	} else if f.ClearRepeat {
		t.Repeat = RepeatNone
	}
}

// ValidationError reports a document validation failure with the offending
// 1-based line number. Line 0 means the error is not tied to a single line.
type ValidationError struct {
	Line int
	Msg  string
}

func (e *ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
	}
	return e.Msg
}
