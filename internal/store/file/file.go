// Package file implements the store contract on plain JSON files, one
// project per file under a data directory. Writes are atomic (temp file
// plus rename) so a crash never leaves a half-written project behind.
//
// The JSON file is the canonical record and carries task ids; the Markdown
// document is an exchange format produced and consumed by the callers, not
// by this store.
package file

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/tndhk/No26-todo-md/internal/store"
	"github.com/tndhk/No26-todo-md/internal/task"
)

// projectDoc is the on-disk layout of one project file.
type projectDoc struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	NextTaskSeq int          `json:"next_task_seq"`
	Tasks       []*task.Task `json:"tasks"`
}

// Store implements store.Store on a directory of project JSON files.
// A single mutex serializes all operations; the backend is meant for one
// process owning the data directory.
type Store struct {
	dir string
	mu  sync.Mutex
}

var _ store.Store = (*Store)(nil)

// Open ensures the data directory exists and returns a store over it.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Close is a no-op for the file backend.
func (s *Store) Close() error { return nil }

// Dir returns the data directory the store operates on.
func (s *Store) Dir() string { return s.dir }

func (s *Store) projectPath(projectID string) string {
	return filepath.Join(s.dir, projectID+".json")
}

// load reads and parses one project file.
func (s *Store) load(projectID string) (*projectDoc, error) {
	data, err := os.ReadFile(s.projectPath(projectID))
	if os.IsNotExist(err) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read project file: %w", err)
	}
	var doc projectDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse project file %s: %w", projectID, err)
	}
	return &doc, nil
}

// save writes one project file atomically via a temp file.
func (s *Store) save(doc *projectDoc) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal project %s: %w", doc.ID, err)
	}
	data = append(data, '\n')

	path := s.projectPath(doc.ID)
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// CreateProject creates an empty project file with a fresh id.
func (s *Store) CreateProject(ctx context.Context, title string) (*task.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var buf [4]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return nil, fmt.Errorf("failed to generate project id: %w", err)
	}
	id := "p-" + hex.EncodeToString(buf[:])

	doc := &projectDoc{ID: id, Title: title, NextTaskSeq: 1, Tasks: []*task.Task{}}
	if err := s.save(doc); err != nil {
		return nil, err
	}
	return &task.Project{ID: id, Title: title, Path: s.projectPath(id)}, nil
}

// DeleteProject removes a project file.
func (s *Store) DeleteProject(ctx context.Context, projectID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.projectPath(projectID))
	if os.IsNotExist(err) {
		return store.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete project file: %w", err)
	}
	return nil
}

// ListProjects returns all projects in the data directory without their
// task forests. Unreadable files are skipped with a warning to stderr.
func (s *Store) ListProjects(ctx context.Context) ([]*task.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read data directory: %w", err)
	}

	var projects []*task.Project
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		id := strings.TrimSuffix(entry.Name(), ".json")
		doc, err := s.load(id)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: skipping invalid project file %s: %v\n", entry.Name(), err)
			continue
		}
		projects = append(projects, &task.Project{
			ID:    doc.ID,
			Title: doc.Title,
			Path:  s.projectPath(doc.ID),
		})
	}
	return projects, nil
}

// LoadProjectTitle returns the stored title.
func (s *Store) LoadProjectTitle(ctx context.Context, projectID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load(projectID)
	if err != nil {
		return "", err
	}
	return doc.Title, nil
}

// UpdateProjectTitle replaces the stored title.
func (s *Store) UpdateProjectTitle(ctx context.Context, projectID, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load(projectID)
	if err != nil {
		return err
	}
	doc.Title = title
	return s.save(doc)
}

// LoadProjectTasks returns the project's task forest. Every call parses the
// file fresh, so callers own the returned tree.
func (s *Store) LoadProjectTasks(ctx context.Context, projectID string) ([]*task.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load(projectID)
	if err != nil {
		return nil, err
	}
	return doc.Tasks, nil
}

// GetTask returns a single task with its subtasks.
func (s *Store) GetTask(ctx context.Context, projectID, taskID string) (*task.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load(projectID)
	if err != nil {
		return nil, err
	}
	var found *task.Task
	task.WalkForest(doc.Tasks, func(t *task.Task) bool {
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
func (s *Store) CreateTask(ctx context.Context, projectID string, skel task.Skeleton, ordinal int) (*task.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load(projectID)
	if err != nil {
		return nil, err
	}
	t, err := insertTask(doc, skel, ordinal)
	if err != nil {
		return nil, err
	}
	if err := s.save(doc); err != nil {
		return nil, err
	}
	return t, nil
}

// insertTask mints an id and splices the new task into its sibling list.
func insertTask(doc *projectDoc, skel task.Skeleton, ordinal int) (*task.Task, error) {
	status := skel.Status
	if status == "" {
		status = task.StatusTodo
	}

	t := &task.Task{
		ID:       fmt.Sprintf("%s-%d", doc.ID, doc.NextTaskSeq),
		Content:  skel.Content,
		Status:   status,
		Repeat:   skel.Repeat,
		ParentID: skel.ParentID,
	}
	doc.NextTaskSeq++
	if skel.DueDate != nil {
		d := *skel.DueDate
		t.DueDate = &d
	}

	siblings := &doc.Tasks
	if skel.ParentID != "" {
		parent := findTask(doc.Tasks, skel.ParentID)
		if parent == nil {
			return nil, store.ErrNotFound
		}
		siblings = &parent.Subtasks
	}

	if ordinal < 0 || ordinal > len(*siblings) {
		ordinal = len(*siblings)
	}
	*siblings = append(*siblings, nil)
	copy((*siblings)[ordinal+1:], (*siblings)[ordinal:])
	(*siblings)[ordinal] = t

	return t, nil
}

// UpdateTask applies a partial update to a task.
func (s *Store) UpdateTask(ctx context.Context, projectID, taskID string, fields task.Fields) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load(projectID)
	if err != nil {
		return err
	}
	t := findTask(doc.Tasks, taskID)
	if t == nil {
		return store.ErrNotFound
	}
	fields.Apply(t)
	return s.save(doc)
}

// DeleteTask removes a task and its whole subtree.
func (s *Store) DeleteTask(ctx context.Context, projectID, taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load(projectID)
	if err != nil {
		return err
	}
	if !removeTask(&doc.Tasks, taskID) {
		return store.ErrNotFound
	}
	return s.save(doc)
}

// findTask walks a forest looking for a task by id.
func findTask(forest []*task.Task, id string) *task.Task {
	var found *task.Task
	task.WalkForest(forest, func(t *task.Task) bool {
		if t.ID == id {
			found = t
			return false
		}
		return true
	})
	return found
}

// removeTask removes the task with the given id from the forest, subtree
// included. Returns false when the id is not present.
func removeTask(forest *[]*task.Task, id string) bool {
	for i, t := range *forest {
		if t.ID == id {
			*forest = append((*forest)[:i], (*forest)[i+1:]...)
			return true
		}
		if removeTask(&t.Subtasks, id) {
			return true
		}
	}
	return false
}
