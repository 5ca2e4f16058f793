package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tndhk/No26-todo-md/internal/task"
	"github.com/tndhk/No26-todo-md/internal/ui"
)

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Manage projects",
}

var projectCreateCmd = &cobra.Command{
	Use:   "create <title>",
	Short: "Create a project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, _, st, err := setup(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		p, err := st.CreateProject(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("%s %s %s\n", ui.RenderPass("✓"), p.ID, ui.RenderMuted(p.Title))
		return nil
	},
}

var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List projects",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, _, st, err := setup(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		projects, err := st.ListProjects(cmd.Context())
		if err != nil {
			return err
		}
		if len(projects) == 0 {
			fmt.Println(ui.RenderMuted("no projects"))
			return nil
		}
		for _, p := range projects {
			fmt.Printf("%s  %s %s\n", p.ID, p.Title,
				ui.RenderMuted(fmt.Sprintf("(%d tasks)", task.CountForest(p.Tasks))))
		}
		return nil
	},
}

var projectDeleteCmd = &cobra.Command{
	Use:   "delete <project-id>",
	Short: "Delete a project and all its tasks",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, _, st, err := setup(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.DeleteProject(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("%s deleted %s\n", ui.RenderPass("✓"), args[0])
		return nil
	},
}

func init() {
	projectCmd.AddCommand(projectCreateCmd, projectListCmd, projectDeleteCmd)
	rootCmd.AddCommand(projectCmd)
}
