// Package sqlite implements the store contract on an embedded SQLite
// database.
//
// The database is opened in WAL mode for concurrent reads, with foreign
// keys enabled so that deleting a task or project cascades to descendants
// at the engine level. Sibling order is kept in an ordinal column; task ids
// are minted from a per-project serial counter and never reused.
package sqlite

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/tndhk/No26-todo-md/internal/store"
	"github.com/tndhk/No26-todo-md/internal/task"
)

// DB implements store.Store on a SQLite database file.
type DB struct {
	conn *sql.DB
	path string
}

var _ store.Store = (*DB)(nil)
var _ store.ChangeApplier = (*DB)(nil)

// Open opens (creating if necessary) the database at path and initializes
// the schema. The caller must Close the returned DB.
func Open(path string) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", fmt.Sprintf("file:%s", path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)

	db := &DB{conn: conn, path: path}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.conn.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to apply %s: %w", pragma, err)
		}
	}

	if err := db.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// Close checkpoints the WAL and closes the connection.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}
	if _, err := db.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to checkpoint WAL: %v\n", err)
	}
	if err := db.conn.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	db.conn = nil
	return nil
}

// initSchema creates the schema if it doesn't exist. Idempotent.
func (db *DB) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS projects (
		id            TEXT PRIMARY KEY,
		title         TEXT NOT NULL,
		next_task_seq INTEGER NOT NULL DEFAULT 1,
		created_at    TEXT NOT NULL,
		updated_at    TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS tasks (
		id          TEXT PRIMARY KEY,
		project_id  TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		parent_id   TEXT REFERENCES tasks(id) ON DELETE CASCADE,
		content     TEXT NOT NULL,
		status      TEXT NOT NULL DEFAULT 'todo',
		due_date    TEXT,
		repeat_freq TEXT,
		ordinal     INTEGER NOT NULL DEFAULT 0,
		created_at  TEXT NOT NULL,
		updated_at  TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_tasks_project ON tasks(project_id);
	CREATE INDEX IF NOT EXISTS idx_tasks_parent ON tasks(parent_id);
	CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);
	CREATE INDEX IF NOT EXISTS idx_tasks_order ON tasks(project_id, parent_id, ordinal);
	`

	if _, err := db.conn.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// CreateProject creates an empty project with a fresh id.
func (db *DB) CreateProject(ctx context.Context, title string) (*task.Project, error) {
	id, err := newProjectID()
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC().Format(time.RFC3339)

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO projects (id, title, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		id, title, now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	return &task.Project{ID: id, Title: title, Path: db.path}, nil
}

// DeleteProject removes a project and, cascading, its tasks.
func (db *DB) DeleteProject(ctx context.Context, projectID string) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, projectID)
	if err != nil {
		return fmt.Errorf("failed to delete project %s: %w", projectID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// ListProjects returns all projects without their task forests, ordered by
// creation time.
func (db *DB) ListProjects(ctx context.Context) ([]*task.Project, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, title FROM projects ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var projects []*task.Project
	for rows.Next() {
		p := &task.Project{Path: db.path}
		if err := rows.Scan(&p.ID, &p.Title); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating projects: %w", err)
	}
	return projects, nil
}

// LoadProjectTitle returns the stored title.
func (db *DB) LoadProjectTitle(ctx context.Context, projectID string) (string, error) {
	var title string
	err := db.conn.QueryRowContext(ctx,
		`SELECT title FROM projects WHERE id = ?`, projectID).Scan(&title)
	if errors.Is(err, sql.ErrNoRows) {
		return "", store.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to load project title: %w", err)
	}
	return title, nil
}

// UpdateProjectTitle replaces the stored title.
func (db *DB) UpdateProjectTitle(ctx context.Context, projectID, title string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	res, err := db.conn.ExecContext(ctx,
		`UPDATE projects SET title = ?, updated_at = ? WHERE id = ?`,
		title, now, projectID)
	if err != nil {
		return fmt.Errorf("failed to update project title: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// LoadProjectTasks returns the project's task forest in stored order.
func (db *DB) LoadProjectTasks(ctx context.Context, projectID string) ([]*task.Task, error) {
	// Probe the project first so a missing project is distinguishable from
	// an empty one.
	if _, err := db.LoadProjectTitle(ctx, projectID); err != nil {
		return nil, err
	}

	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, parent_id, content, status, due_date, repeat_freq
		FROM tasks
		WHERE project_id = ?
		ORDER BY ordinal ASC, created_at ASC`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	var forest []*task.Task
	nodes := make(map[string]*task.Task)
	type pending struct {
		t        *task.Task
		parentID string
	}
	var order []pending

	for rows.Next() {
		var t task.Task
		var parentID, dueDate, repeat sql.NullString
		if err := rows.Scan(&t.ID, &parentID, &t.Content, &t.Status, &dueDate, &repeat); err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		if dueDate.Valid {
			d, perr := task.ParseDate(dueDate.String)
			if perr != nil {
				return nil, fmt.Errorf("corrupt due_date for task %s: %w", t.ID, perr)
			}
			t.DueDate = &d
		}
		if repeat.Valid {
			t.Repeat = task.Repeat(repeat.String)
		}
		t.ParentID = parentID.String
		nodes[t.ID] = &t
		order = append(order, pending{t: &t, parentID: parentID.String})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tasks: %w", err)
	}

	// Rows arrive ordered by ordinal, so appending in scan order preserves
	// sibling order within every parent.
	for _, p := range order {
		if p.parentID == "" {
			forest = append(forest, p.t)
			continue
		}
		parent, ok := nodes[p.parentID]
		if !ok {
			return nil, fmt.Errorf("task %s references missing parent %s", p.t.ID, p.parentID)
		}
		parent.Subtasks = append(parent.Subtasks, p.t)
	}

	return forest, nil
}

// GetTask returns a single task with its subtasks.
func (db *DB) GetTask(ctx context.Context, projectID, taskID string) (*task.Task, error) {
	forest, err := db.LoadProjectTasks(ctx, projectID)
	if err != nil {
		return nil, err
	}
	var found *task.Task
	task.WalkForest(forest, func(t *task.Task) bool {
		if t.ID == taskID {
			found = t
			return false
		}
		return true
	})
	if found == nil {
		return nil, store.ErrNotFound
	}
	return found, nil
}

// CreateTask creates a task from a skeleton at the given sibling position.
func (db *DB) CreateTask(ctx context.Context, projectID string, skel task.Skeleton, ordinal int) (*task.Task, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	t, err := createTaskTx(ctx, tx, projectID, skel, ordinal)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return t, nil
}

// createTaskTx mints an id from the project's serial counter and inserts
// the task, inside the caller's transaction.
func createTaskTx(ctx context.Context, tx *sql.Tx, projectID string, skel task.Skeleton, ordinal int) (*task.Task, error) {
	var seq int64
	err := tx.QueryRowContext(ctx, `
		UPDATE projects SET next_task_seq = next_task_seq + 1
		WHERE id = ?
		RETURNING next_task_seq - 1`, projectID).Scan(&seq)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to advance task counter: %w", err)
	}

	status := skel.Status
	if status == "" {
		status = task.StatusTodo
	}

	t := &task.Task{
		ID:       fmt.Sprintf("%s-%d", projectID, seq),
		Content:  skel.Content,
		Status:   status,
		Repeat:   skel.Repeat,
		ParentID: skel.ParentID,
	}
	if skel.DueDate != nil {
		d := *skel.DueDate
		t.DueDate = &d
	}

	now := time.Now().UTC().Format(time.RFC3339)
	_, err = tx.ExecContext(ctx, `
		INSERT INTO tasks (id, project_id, parent_id, content, status, due_date, repeat_freq, ordinal, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, projectID, nullString(t.ParentID), t.Content, string(t.Status),
		nullDate(t.DueDate), nullString(string(t.Repeat)), ordinal, now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to insert task: %w", err)
	}

	return t, nil
}

// UpdateTask applies a partial update to a task.
func (db *DB) UpdateTask(ctx context.Context, projectID, taskID string, fields task.Fields) error {
	return updateTaskExec(ctx, db.conn, projectID, taskID, fields)
}

// execer lets update statements run on either the pool or a transaction.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func updateTaskExec(ctx context.Context, ex execer, projectID, taskID string, fields task.Fields) error {
	if fields.IsZero() {
		return nil
	}

	set := "updated_at = ?"
	args := []any{time.Now().UTC().Format(time.RFC3339)}

	if fields.Content != nil {
		set += ", content = ?"
		args = append(args, *fields.Content)
	}
	if fields.Status != nil {
		set += ", status = ?"
		args = append(args, string(*fields.Status))
	}
	if fields.DueDate != nil {
		set += ", due_date = ?"
		args = append(args, fields.DueDate.String())
	} else if fields.ClearDue {
		set += ", due_date = NULL"
	}
	if fields.Repeat != nil {
		set += ", repeat_freq = ?"
		args = append(args, string(*fields.Repeat))
	} else if fields.ClearRepeat {
		set += ", repeat_freq = NULL"
	}

	args = append(args, taskID, projectID)
	res, err := ex.ExecContext(ctx,
		"UPDATE tasks SET "+set+" WHERE id = ? AND project_id = ?", args...)
	if err != nil {
		return fmt.Errorf("failed to update task %s: %w", taskID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// DeleteTask removes a task; the foreign key cascade removes descendants.
func (db *DB) DeleteTask(ctx context.Context, projectID, taskID string) error {
	res, err := db.conn.ExecContext(ctx,
		`DELETE FROM tasks WHERE id = ? AND project_id = ?`, taskID, projectID)
	if err != nil {
		return fmt.Errorf("failed to delete task %s: %w", taskID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// nullString converts "" to SQL NULL.
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// nullDate converts a nil date to SQL NULL.
func nullDate(d *task.Date) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

// newProjectID mints a random project id.
func newProjectID() (string, error) {
	var buf [4]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", fmt.Errorf("failed to generate project id: %w", err)
	}
	return "p-" + hex.EncodeToString(buf[:]), nil
}
