package markdown

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/tndhk/No26-todo-md/internal/task"
)

var (
	dueTagRe    = regexp.MustCompile(`#due:(\d{4}-\d{2}-\d{2})\b`)
	repeatTagRe = regexp.MustCompile(`#repeat:(daily|weekly|monthly)\b`)
)

// ExtractTags pulls the inline #due and #repeat tags out of a task's text.
// It returns the text with recognized tags removed and surrounding
// whitespace collapsed. Tags may appear anywhere in the line.
//
// A second occurrence of either tag kind is an error, never a silent
// overwrite. A #due tag with out-of-range month or day digits is an error;
// no calendar validation beyond digit shape is performed, so Feb 30 passes.
func ExtractTags(text string) (clean string, due *task.Date, repeat task.Repeat, err error) {
	dueMatches := dueTagRe.FindAllStringSubmatch(text, -1)
	if len(dueMatches) > 1 {
		return "", nil, task.RepeatNone, fmt.Errorf("duplicate #due tag")
	}
	repeatMatches := repeatTagRe.FindAllStringSubmatch(text, -1)
	if len(repeatMatches) > 1 {
		return "", nil, task.RepeatNone, fmt.Errorf("duplicate #repeat tag")
	}

	if len(dueMatches) == 1 {
		d, perr := task.ParseDate(dueMatches[0][1])
		if perr != nil {
			return "", nil, task.RepeatNone, fmt.Errorf("malformed #due tag: %w", perr)
		}
		due = &d
	}
	if len(repeatMatches) == 1 {
		repeat = task.Repeat(repeatMatches[0][1])
	}

	clean = dueTagRe.ReplaceAllString(text, "")
	clean = repeatTagRe.ReplaceAllString(clean, "")
	clean = strings.Join(strings.Fields(clean), " ")

	return clean, due, repeat, nil
}
