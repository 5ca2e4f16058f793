package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
	"github.com/spf13/cobra"

	"github.com/tndhk/No26-todo-md/internal/markdown"
	"github.com/tndhk/No26-todo-md/internal/store"
	"github.com/tndhk/No26-todo-md/internal/task"
	"github.com/tndhk/No26-todo-md/internal/ui"
)

var (
	flagAddDue    string
	flagAddRepeat string
	flagAddParent string
	flagAddDoing  bool
)

var addCmd = &cobra.Command{
	Use:   "add <project-id> <content>...",
	Short: "Add a task to a project",
	Long: `Add a task. The due date accepts either YYYY-MM-DD or natural
language ("tomorrow", "next friday", "in 3 days").`,
	Args: cobra.MinimumNArgs(2),
	RunE: runAdd,
}

func init() {
	addCmd.Flags().StringVar(&flagAddDue, "due", "", "due date (YYYY-MM-DD or natural language)")
	addCmd.Flags().StringVar(&flagAddRepeat, "repeat", "", "repeat frequency: daily, weekly, monthly")
	addCmd.Flags().StringVar(&flagAddParent, "parent", "", "parent task id (adds a subtask)")
	addCmd.Flags().BoolVar(&flagAddDoing, "doing", false, "create the task in doing status")
	rootCmd.AddCommand(addCmd)
}

func runAdd(cmd *cobra.Command, args []string) error {
	_, logger, st, err := setup(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	projectID := args[0]

	var due *task.Date
	if flagAddDue != "" {
		d, err := parseDue(flagAddDue)
		if err != nil {
			return err
		}
		due = &d
	}

	var repeat task.Repeat
	if flagAddRepeat != "" {
		repeat = task.Repeat(flagAddRepeat)
		if !repeat.Valid() || repeat == task.RepeatNone {
			return fmt.Errorf("invalid repeat frequency %q: want daily, weekly, or monthly", flagAddRepeat)
		}
	}

	skel, err := newTaskSkeleton(strings.Join(args[1:], " "), due, repeat, flagAddDoing, flagAddParent)
	if err != nil {
		return err
	}

	ordinal, err := siblingOrdinal(cmd, st, projectID, flagAddParent)
	if err != nil {
		return err
	}

	t, err := st.CreateTask(cmd.Context(), projectID, skel, ordinal)
	if err != nil {
		return err
	}

	logger.Debug("task created", "project", projectID, "task", t.ID)
	fmt.Printf("%s %s %s\n", ui.RenderPass("✓"), t.ID, t.Content)
	return nil
}

// newTaskSkeleton builds the creation payload from raw task text. Inline
// #due/#repeat tags in the text are extracted into fields rather than stored
// as literal content, so the project's canonical document always re-parses.
// A tag given both inline and as a flag is a conflict, not an overwrite.
func newTaskSkeleton(content string, due *task.Date, repeat task.Repeat, doing bool, parentID string) (task.Skeleton, error) {
	clean, inlineDue, inlineRepeat, err := markdown.ExtractTags(content)
	if err != nil {
		return task.Skeleton{}, err
	}
	if inlineDue != nil {
		if due != nil {
			return task.Skeleton{}, fmt.Errorf("due date given both inline and with --due")
		}
		due = inlineDue
	}
	if inlineRepeat != task.RepeatNone {
		if repeat != task.RepeatNone {
			return task.Skeleton{}, fmt.Errorf("repeat frequency given both inline and with --repeat")
		}
		repeat = inlineRepeat
	}

	skel := task.Skeleton{
		Content:  clean,
		Status:   task.StatusTodo,
		DueDate:  due,
		Repeat:   repeat,
		ParentID: parentID,
	}
	if doing {
		skel.Status = task.StatusDoing
	}
	return skel, nil
}

// parseDue resolves a due-date string: exact YYYY-MM-DD first, then natural
// language relative to today.
func parseDue(s string) (task.Date, error) {
	if d, err := task.ParseDate(s); err == nil {
		return d, nil
	}

	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)

	r, err := w.Parse(s, time.Now())
	if err != nil || r == nil {
		return task.Date{}, fmt.Errorf("cannot parse due date %q", s)
	}
	return task.DateOf(r.Time), nil
}

// siblingOrdinal returns the append position under the given parent.
func siblingOrdinal(cmd *cobra.Command, st store.Store, projectID, parentID string) (int, error) {
	forest, err := st.LoadProjectTasks(cmd.Context(), projectID)
	if err != nil {
		return 0, err
	}
	if parentID == "" {
		return len(forest), nil
	}
	ordinal := -1
	task.WalkForest(forest, func(t *task.Task) bool {
		if t.ID == parentID {
			ordinal = len(t.Subtasks)
			return false
		}
		return true
	})
	if ordinal < 0 {
		return 0, fmt.Errorf("parent task %s not found", parentID)
	}
	return ordinal, nil
}
