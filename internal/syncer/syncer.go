// Package syncer drives the document-level resubmission cycle: read the
// stored forest, parse the submitted Markdown, reconcile, and apply the
// change set back to the store.
//
// The read-parse-reconcile-apply cycle for one project is a single logical
// transaction. A per-project mutex guarantees at most one concurrent
// resubmission per project within this process; stores that implement
// store.ChangeApplier additionally get the whole change set applied
// atomically.
package syncer

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/tndhk/No26-todo-md/internal/markdown"
	"github.com/tndhk/No26-todo-md/internal/reconcile"
	"github.com/tndhk/No26-todo-md/internal/store"
	"github.com/tndhk/No26-todo-md/internal/task"
)

// Result summarizes what one submission changed.
type Result struct {
	Created      int  `json:"created"`
	Updated      int  `json:"updated"`
	Deleted      int  `json:"deleted"`
	TitleChanged bool `json:"title_changed"`
}

// Empty reports whether the submission was a no-op.
func (r *Result) Empty() bool {
	return r.Created == 0 && r.Updated == 0 && r.Deleted == 0 && !r.TitleChanged
}

// Notifier receives a notification after a submission changed a project.
// Implementations must not block; the syncer calls them synchronously.
type Notifier interface {
	ProjectChanged(projectID string, result Result)
}

// DocumentError aggregates the validation errors of a rejected document.
// Nothing is applied to the store when it is returned.
type DocumentError struct {
	Errors []*task.ValidationError
}

func (e *DocumentError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, ve := range e.Errors {
		msgs[i] = ve.Error()
	}
	return fmt.Sprintf("document rejected: %s", strings.Join(msgs, "; "))
}

// Syncer applies document submissions and task completions to a store.
type Syncer struct {
	store    store.Store
	logger   *log.Logger
	notifier Notifier

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates a syncer over the given store. logger may be nil.
func New(st store.Store, logger *log.Logger) *Syncer {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Syncer{
		store:  st,
		logger: logger,
		locks:  make(map[string]*sync.Mutex),
	}
}

// SetNotifier registers a change notifier. Call before serving traffic.
func (s *Syncer) SetNotifier(n Notifier) {
	s.notifier = n
}

// projectLock returns the serializing lock for one project.
func (s *Syncer) projectLock(projectID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[projectID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[projectID] = l
	}
	return l
}

// SubmitDocument merges an edited Markdown document into the project's
// stored task forest. Task identity is preserved for every position-stable
// task; tasks absent from the document are deleted, cascading to their
// subtrees. A document that fails validation is rejected as a whole with a
// *DocumentError and the store is left untouched.
func (s *Syncer) SubmitDocument(ctx context.Context, projectID, body string) (*Result, error) {
	lock := s.projectLock(projectID)
	lock.Lock()
	defer lock.Unlock()

	title, err := s.store.LoadProjectTitle(ctx, projectID)
	if err != nil {
		return nil, err
	}
	existing, err := s.store.LoadProjectTasks(ctx, projectID)
	if err != nil {
		return nil, err
	}

	doc, verrs := markdown.ParseDocument(title, body, existing)
	if len(verrs) > 0 {
		return nil, &DocumentError{Errors: verrs}
	}

	cs := reconcile.Diff(existing, doc.Tasks)
	if _, err := s.apply(ctx, projectID, cs); err != nil {
		return nil, err
	}

	result := &Result{
		Created: len(cs.ToCreate),
		Updated: len(cs.ToUpdate),
		Deleted: len(cs.ToDelete),
	}

	// Title differences are not part of the task change set.
	if doc.Title != title {
		if err := s.store.UpdateProjectTitle(ctx, projectID, doc.Title); err != nil {
			return nil, err
		}
		result.TitleChanged = true
	}

	if !result.Empty() {
		s.logger.Info("document applied",
			"project", projectID,
			"created", result.Created,
			"updated", result.Updated,
			"deleted", result.Deleted)
		if s.notifier != nil {
			s.notifier.ProjectChanged(projectID, *result)
		}
	}

	return result, nil
}

// apply sends a change set to the store, atomically when the backend
// supports it, otherwise through the individual CRUD calls in the required
// order: deletes, then creates parent-first, then updates.
func (s *Syncer) apply(ctx context.Context, projectID string, cs *reconcile.ChangeSet) ([]string, error) {
	if applier, ok := s.store.(store.ChangeApplier); ok {
		return applier.ApplyChangeSet(ctx, projectID, cs)
	}

	for _, id := range cs.ToDelete {
		if err := s.store.DeleteTask(ctx, projectID, id); err != nil {
			return nil, err
		}
	}

	created := make([]string, 0, len(cs.ToCreate))
	for i, c := range cs.ToCreate {
		skel := c.Skeleton
		if c.ParentIndex >= 0 {
			if c.ParentIndex >= i {
				return nil, fmt.Errorf("create %d references parent %d before it exists", i, c.ParentIndex)
			}
			skel.ParentID = created[c.ParentIndex]
		}
		t, err := s.store.CreateTask(ctx, projectID, skel, c.Ordinal)
		if err != nil {
			return nil, err
		}
		created = append(created, t.ID)
	}

	for _, u := range cs.ToUpdate {
		if err := s.store.UpdateTask(ctx, projectID, u.ID, u.Fields); err != nil {
			return nil, err
		}
	}

	return created, nil
}

// RenderProject loads a project and renders its canonical Markdown document.
func (s *Syncer) RenderProject(ctx context.Context, projectID string) (string, error) {
	title, err := s.store.LoadProjectTitle(ctx, projectID)
	if err != nil {
		return "", err
	}
	forest, err := s.store.LoadProjectTasks(ctx, projectID)
	if err != nil {
		return "", err
	}
	return markdown.RenderDocument(title, forest), nil
}

// CompleteTask marks a task done. If the task carries a repeat frequency, a
// successor sibling is created from the recurrence rule and returned;
// otherwise the returned task is nil.
func (s *Syncer) CompleteTask(ctx context.Context, projectID, taskID string) (*task.Task, error) {
	lock := s.projectLock(projectID)
	lock.Lock()
	defer lock.Unlock()

	t, err := s.store.GetTask(ctx, projectID, taskID)
	if err != nil {
		return nil, err
	}

	if t.Status != task.StatusDone {
		done := task.StatusDone
		if err := s.store.UpdateTask(ctx, projectID, taskID, task.Fields{Status: &done}); err != nil {
			return nil, err
		}
		t.Status = done
	}

	skel := task.NextOccurrence(t)
	if skel == nil {
		if s.notifier != nil {
			s.notifier.ProjectChanged(projectID, Result{Updated: 1})
		}
		return nil, nil
	}

	ordinal, err := s.siblingCount(ctx, projectID, skel.ParentID)
	if err != nil {
		return nil, err
	}
	next, err := s.store.CreateTask(ctx, projectID, *skel, ordinal)
	if err != nil {
		return nil, err
	}

	s.logger.Info("recurring task rescheduled",
		"project", projectID, "task", taskID, "next", next.ID)
	if s.notifier != nil {
		s.notifier.ProjectChanged(projectID, Result{Created: 1, Updated: 1})
	}

	return next, nil
}

// siblingCount returns how many tasks currently share the given parent, so
// a new sibling can be appended after them.
func (s *Syncer) siblingCount(ctx context.Context, projectID, parentID string) (int, error) {
	forest, err := s.store.LoadProjectTasks(ctx, projectID)
	if err != nil {
		return 0, err
	}
	if parentID == "" {
		return len(forest), nil
	}
	count := -1
	task.WalkForest(forest, func(t *task.Task) bool {
		if t.ID == parentID {
			count = len(t.Subtasks)
			return false
		}
		return true
	})
	if count < 0 {
		return 0, fmt.Errorf("parent task %s: %w", parentID, store.ErrNotFound)
	}
	return count, nil
}
