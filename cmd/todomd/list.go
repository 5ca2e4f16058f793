package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tndhk/No26-todo-md/internal/task"
	"github.com/tndhk/No26-todo-md/internal/ui"
)

var flagListStatus string

var listCmd = &cobra.Command{
	Use:   "list <project-id>",
	Short: "List the tasks of a project",
	Args:  cobra.ExactArgs(1),
	RunE:  runList,
}

func init() {
	listCmd.Flags().StringVar(&flagListStatus, "status", "", "only show tasks with this status")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	_, _, st, err := setup(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	title, err := st.LoadProjectTitle(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	forest, err := st.LoadProjectTasks(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	fmt.Println(ui.RenderTitle(title))
	printForest(forest, 0)
	return nil
}

func printForest(forest []*task.Task, depth int) {
	for _, t := range forest {
		if flagListStatus == "" || string(t.Status) == flagListStatus {
			fmt.Printf("%s%s %s %s%s\n",
				strings.Repeat("    ", depth),
				statusMarker(t.Status),
				ui.RenderMuted(t.ID),
				t.Content,
				taskDetail(t))
		}
		printForest(t.Subtasks, depth+1)
	}
}

func statusMarker(s task.Status) string {
	switch s {
	case task.StatusDone:
		return ui.RenderPass("[x]")
	case task.StatusDoing:
		return ui.RenderAccent("[~]")
	}
	return "[ ]"
}

func taskDetail(t *task.Task) string {
	var parts []string
	if t.DueDate != nil {
		parts = append(parts, "due "+t.DueDate.String())
	}
	if t.Repeat != task.RepeatNone {
		parts = append(parts, "repeats "+string(t.Repeat))
	}
	if len(parts) == 0 {
		return ""
	}
	return " " + ui.RenderMuted("("+strings.Join(parts, ", ")+")")
}
