package file

import (
	"context"
	"fmt"

	"github.com/tndhk/No26-todo-md/internal/reconcile"
	"github.com/tndhk/No26-todo-md/internal/store"
)

var _ store.ChangeApplier = (*Store)(nil)

// ApplyChangeSet applies a reconcile change set with a single read and a
// single atomic write of the project file: deletes, then creates with
// parents before children, then updates.
func (s *Store) ApplyChangeSet(ctx context.Context, projectID string, cs *reconcile.ChangeSet) ([]string, error) {
	if cs.Empty() {
		return nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load(projectID)
	if err != nil {
		return nil, err
	}

	for _, id := range cs.ToDelete {
		if !removeTask(&doc.Tasks, id) {
			return nil, fmt.Errorf("cannot delete task %s: %w", id, store.ErrNotFound)
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
		t, err := insertTask(doc, skel, c.Ordinal)
		if err != nil {
			return nil, err
		}
		created = append(created, t.ID)
	}

	for _, u := range cs.ToUpdate {
		t := findTask(doc.Tasks, u.ID)
		if t == nil {
			return nil, fmt.Errorf("cannot update task %s: %w", u.ID, store.ErrNotFound)
		}
		u.Fields.Apply(t)
	}

	if err := s.save(doc); err != nil {
		return nil, err
	}
	return created, nil
}
