package sqlite

import (
	"context"
	"fmt"

	"github.com/tndhk/No26-todo-md/internal/reconcile"
)

// ApplyChangeSet applies a reconcile change set to one project in a single
// transaction: deletes first, then creates (parents before children, since
// ToCreate is emitted in that order), then updates. Either every change
// lands or none does.
//
// The returned slice holds the ids assigned to created tasks, in ToCreate
// order.
func (db *DB) ApplyChangeSet(ctx context.Context, projectID string, cs *reconcile.ChangeSet) ([]string, error) {
	if cs.Empty() {
		return nil, nil
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Deletes go first to avoid transient duplicate positions. Cascading
	// removal of descendants is handled by the foreign key constraint, so a
	// subtree root id is enough.
	for _, id := range cs.ToDelete {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM tasks WHERE id = ? AND project_id = ?`, id, projectID); err != nil {
			return nil, fmt.Errorf("failed to delete task %s: %w", id, err)
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
		t, err := createTaskTx(ctx, tx, projectID, skel, c.Ordinal)
		if err != nil {
			return nil, err
		}
		created = append(created, t.ID)
	}

	for _, u := range cs.ToUpdate {
		if err := updateTaskExec(ctx, tx, projectID, u.ID, u.Fields); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return created, nil
}
