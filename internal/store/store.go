// Package store defines the persistence contract for projects and task
// forests. Two backends implement it: a relational SQLite store and a
// plain-file store. The core transforms never touch a Store; callers load a
// forest, run the pure transforms, and apply the results back through this
// interface.
package store

import (
	"context"
	"errors"

	"github.com/tndhk/No26-todo-md/internal/reconcile"
	"github.com/tndhk/No26-todo-md/internal/task"
)

// ErrNotFound is returned when a project or task does not exist.
var ErrNotFound = errors.New("not found")

// Store is the narrow CRUD interface over projects and tasks.
//
// Implementations assign task ids from a per-project serial counter; ids are
// never reused, even after deletion. DeleteTask cascades to descendants.
type Store interface {
	// CreateProject creates a project with the given title and no tasks.
	CreateProject(ctx context.Context, title string) (*task.Project, error)
	// DeleteProject removes a project and all of its tasks.
	DeleteProject(ctx context.Context, projectID string) error
	// ListProjects returns all projects without their task forests.
	ListProjects(ctx context.Context) ([]*task.Project, error)

	// LoadProjectTitle returns the stored title for a project.
	LoadProjectTitle(ctx context.Context, projectID string) (string, error)
	// UpdateProjectTitle replaces the stored title for a project.
	UpdateProjectTitle(ctx context.Context, projectID, title string) error

	// LoadProjectTasks returns the project's task forest in stored order.
	LoadProjectTasks(ctx context.Context, projectID string) ([]*task.Task, error)
	// GetTask returns a single task (with its subtasks) by id.
	GetTask(ctx context.Context, projectID, taskID string) (*task.Task, error)
	// CreateTask creates a task from a skeleton at the given position among
	// its siblings and returns it with its assigned id.
	CreateTask(ctx context.Context, projectID string, skel task.Skeleton, ordinal int) (*task.Task, error)
	// UpdateTask applies a partial update to a task.
	UpdateTask(ctx context.Context, projectID, taskID string, fields task.Fields) error
	// DeleteTask removes a task and, cascading, all of its descendants.
	DeleteTask(ctx context.Context, projectID, taskID string) error

	// Close releases backend resources.
	Close() error
}

// ChangeApplier is implemented by stores that can apply a reconcile change
// set as a single atomic operation. Callers fall back to the individual
// Store methods (deletes, then creates parent-first, then updates) when a
// backend does not implement it.
type ChangeApplier interface {
	// ApplyChangeSet applies cs to the project and returns the ids assigned
	// to created tasks, in ToCreate order.
	ApplyChangeSet(ctx context.Context, projectID string, cs *reconcile.ChangeSet) ([]string, error)
}
