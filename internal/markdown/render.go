package markdown

import (
	"strings"

	"github.com/tndhk/No26-todo-md/internal/task"
)

// sectionOrder is the fixed order of status sections in a rendered document.
var sectionOrder = []struct {
	name   string
	status task.Status
}{
	{"Todo", task.StatusTodo},
	{"Doing", task.StatusDoing},
	{"Done", task.StatusDone},
}

// RenderDocument serializes a title and task forest into canonical Markdown.
//
// The output is one H1 title line, then one H2 section per non-empty status
// bucket in the fixed order Todo, Doing, Done. A top-level task's bucket is
// its own status; subtasks are emitted immediately after their parent, one
// level deeper, regardless of their own status. Inline tags are re-emitted
// after the content, so parse(render(f)) reproduces the forest.
func RenderDocument(title string, forest []*task.Task) string {
	var b strings.Builder
	b.WriteString("# ")
	b.WriteString(title)
	b.WriteString("\n")

	for _, section := range sectionOrder {
		var bucket []*task.Task
		for _, t := range forest {
			if t.Status == section.status {
				bucket = append(bucket, t)
			}
		}
		if len(bucket) == 0 {
			continue
		}

		b.WriteString("\n## ")
		b.WriteString(section.name)
		b.WriteString("\n")
		for _, t := range bucket {
			renderTask(&b, t, 0)
		}
	}

	return b.String()
}

// renderTask emits one task line and recurses into its subtasks.
func renderTask(b *strings.Builder, t *task.Task, depth int) {
	b.WriteString(strings.Repeat(" ", depth*IndentWidth))
	if t.Status == task.StatusDone {
		b.WriteString("- [x] ")
	} else {
		b.WriteString("- [ ] ")
	}
	b.WriteString(t.Content)
	if t.DueDate != nil {
		b.WriteString(" #due:")
		b.WriteString(t.DueDate.String())
	}
	if t.Repeat != task.RepeatNone {
		b.WriteString(" #repeat:")
		b.WriteString(string(t.Repeat))
	}
	b.WriteString("\n")

	for _, sub := range t.Subtasks {
		renderTask(b, sub, depth+1)
	}
}
