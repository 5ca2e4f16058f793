package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tndhk/No26-todo-md/internal/syncer"
	"github.com/tndhk/No26-todo-md/internal/ui"
)

var completeCmd = &cobra.Command{
	Use:   "complete <project-id> <task-id>",
	Short: "Mark a task done",
	Long: `Mark a task done. If the task repeats, a fresh occurrence is
scheduled as its sibling with the next due date.`,
	Args: cobra.ExactArgs(2),
	RunE: runComplete,
}

func init() {
	rootCmd.AddCommand(completeCmd)
}

func runComplete(cmd *cobra.Command, args []string) error {
	_, logger, st, err := setup(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	sy := syncer.New(st, logger)
	next, err := sy.CompleteTask(cmd.Context(), args[0], args[1])
	if err != nil {
		return err
	}

	fmt.Printf("%s completed %s\n", ui.RenderPass("✓"), args[1])
	if next != nil {
		due := "no due date"
		if next.DueDate != nil {
			due = "due " + next.DueDate.String()
		}
		fmt.Printf("%s next occurrence %s %s\n", ui.RenderAccent("↻"), next.ID, ui.RenderMuted(due))
	}
	return nil
}
