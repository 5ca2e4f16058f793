package markdown

import (
	"strings"

	"github.com/tndhk/No26-todo-md/internal/task"
)

// Document is the result of parsing a Markdown task document.
type Document struct {
	Title string
	Tasks []*task.Task
}

// sectionStatus maps an H2 section name to the status its tasks inherit.
// Unrecognized section names still open a section boundary; their tasks
// default to todo.
func sectionStatus(name string) task.Status {
	switch name {
	case "Todo":
		return task.StatusTodo
	case "Doing":
		return task.StatusDoing
	case "Done":
		return task.StatusDone
	}
	return task.StatusTodo
}

// openTask is one entry on the tree builder's stack of currently open
// nesting levels.
type openTask struct {
	level int
	node  *task.Task
}

// ParseDocument parses body into a task forest.
//
// title is the fallback document title; an H1 line in the body wins. When an
// existing forest is supplied, ids are carried over to positionally matching
// tasks so that a load-edit-save round trip does not invent new identity;
// tasks with no positional match are left with an empty id for the
// persistence layer to assign.
//
// On validation failure (duplicate or malformed inline tags) the document is
// rejected as a whole: all errors are returned, each carrying the offending
// line number, and the returned document is nil.
func ParseDocument(title, body string, existing []*task.Task) (*Document, []*task.ValidationError) {
	doc := &Document{Title: title}

	var errs []*task.ValidationError
	var stack []openTask
	// Default status for top-level tasks, reset on each H2.
	status := task.StatusTodo

	for i, raw := range strings.Split(body, "\n") {
		lineNo := i + 1
		line := ClassifyLine(raw)

		switch line.Kind {
		case LineTitle:
			doc.Title = line.Text

		case LineSection:
			// A section resets the default status but does not close
			// open nesting levels.
			status = sectionStatus(line.Text)

		case LineTask:
			content, due, repeat, err := ExtractTags(line.Content)
			if err != nil {
				errs = append(errs, &task.ValidationError{Line: lineNo, Msg: err.Error()})
				continue
			}

			level := line.Level()
			for len(stack) > 0 && stack[len(stack)-1].level >= level {
				stack = stack[:len(stack)-1]
			}

			// The section default applies to top-level tasks only. A subtask's
			// section bucket is its parent's; its own status comes from the
			// checkbox alone, so rendering a forest and parsing it back never
			// shifts a subtask's status.
			st := task.StatusTodo
			if line.Checked {
				st = task.StatusDone
			} else if len(stack) == 0 {
				st = status
			}

			t := &task.Task{
				Content:    content,
				Status:     st,
				DueDate:    due,
				Repeat:     repeat,
				RawLine:    raw,
				LineNumber: lineNo,
			}

			if len(stack) == 0 {
				// No eligible parent: clamp to top level.
				level = 0
				doc.Tasks = append(doc.Tasks, t)
			} else {
				parent := stack[len(stack)-1]
				// Tolerate skipped levels by clamping to the nearest
				// consistent depth.
				if level > parent.level+1 {
					level = parent.level + 1
				}
				parent.node.Subtasks = append(parent.node.Subtasks, t)
			}
			stack = append(stack, openTask{level: level, node: t})
		}
	}

	if len(errs) > 0 {
		return nil, errs
	}

	if existing != nil {
		carryIDs(existing, doc.Tasks)
	}
	linkParents(doc.Tasks, "")

	return doc, nil
}

// carryIDs copies ids from existing to incoming for tasks that occupy the
// same position in the forest: same ancestor chain of matched nodes, same
// ordinal index among siblings. Unmatched incoming tasks keep an empty id.
func carryIDs(existing, incoming []*task.Task) {
	n := len(existing)
	if len(incoming) < n {
		n = len(incoming)
	}
	for i := 0; i < n; i++ {
		incoming[i].ID = existing[i].ID
		carryIDs(existing[i].Subtasks, incoming[i].Subtasks)
	}
}

// linkParents sets ParentID on every task from its owning task's id.
func linkParents(forest []*task.Task, parentID string) {
	for _, t := range forest {
		t.ParentID = parentID
		linkParents(t.Subtasks, t.ID)
	}
}
