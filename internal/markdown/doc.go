// Package markdown implements the bidirectional transform between the flat,
// human-editable Markdown task document and the hierarchical task model.
//
// Document grammar
//
// The grammar is deliberately small and bit-exact for round-tripping:
//
//	# <title>                         H1, project title
//	## Todo | Doing | Done            H2, status section
//	<indent>- [ ] <content>           open task, 4 spaces per nesting level
//	<indent>- [x] <content>           completed task
//
// Task content may carry inline tags anywhere in the line:
//
//	#due:YYYY-MM-DD                   due date (digit shape only)
//	#repeat:daily|weekly|monthly      recurrence frequency
//
// Parsing
//
// Raw text flows through the line classifier into the tree builder, which
// reconstructs the nested task forest from indentation depth using an
// explicit stack:
//
//	raw text -> ClassifyLine -> ParseDocument -> []*task.Task
//	                                  |
//	                            ExtractTags (per task line)
//
// Rendering is the inverse: RenderDocument emits the canonical form, grouped
// by status section with subtasks nested under their parents. The renderer
// regenerates canonical Markdown; it does not preserve arbitrary prose
// outside the grammar.
//
// Everything in this package is a pure function over text and in-memory
// trees. Nothing here performs I/O or touches shared state, so all entry
// points are safe for concurrent use.
package markdown
