package markdown

import (
	"regexp"
	"strings"
)

// LineKind identifies what a raw document line is.
type LineKind int

const (
	// LineOther is a blank or unrecognized line. The tree builder ignores
	// these; the renderer does not attempt to preserve them.
	LineOther LineKind = iota
	// LineTitle is an H1 header carrying the project title.
	LineTitle
	// LineSection is an H2 header opening a status section.
	LineSection
	// LineTask is a checkbox task line.
	LineTask
)

// Line is one classified source line.
type Line struct {
	Kind LineKind
	// Text is the title or section name for LineTitle/LineSection.
	Text string
	// Indent is the leading whitespace of a task line, captured verbatim.
	Indent string
	// Checked is the checkbox state of a task line.
	Checked bool
	// Content is the task text after the checkbox.
	Content string
}

// IndentWidth is the number of literal space characters per nesting level.
const IndentWidth = 4

var (
	titleRe   = regexp.MustCompile(`^# (.+)$`)
	sectionRe = regexp.MustCompile(`^## (.+)$`)
	taskRe    = regexp.MustCompile(`^(\s*)- \[( |x)\] (.*)$`)
)

// ClassifyLine classifies one raw source line. It never fails: anything that
// does not match the grammar is LineOther.
func ClassifyLine(raw string) Line {
	if m := taskRe.FindStringSubmatch(raw); m != nil {
		return Line{
			Kind:    LineTask,
			Indent:  m[1],
			Checked: m[2] == "x",
			Content: m[3],
		}
	}
	if m := sectionRe.FindStringSubmatch(raw); m != nil {
		return Line{Kind: LineSection, Text: m[1]}
	}
	if m := titleRe.FindStringSubmatch(raw); m != nil {
		return Line{Kind: LineTitle, Text: m[1]}
	}
	return Line{Kind: LineOther}
}

// Level converts a task line's leading whitespace into a nesting level.
// Every 4 literal spaces is one level; a width that is not a multiple of 4
// rounds down, so hand-edited indentation never fails to parse.
func (l Line) Level() int {
	return strings.Count(l.Indent, " ") / IndentWidth
}
