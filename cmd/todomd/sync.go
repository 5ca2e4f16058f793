package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tndhk/No26-todo-md/internal/syncer"
	"github.com/tndhk/No26-todo-md/internal/ui"
)

var syncCmd = &cobra.Command{
	Use:   "sync <project-id>",
	Short: "Sync a project with its Markdown document",
	Long: `One-shot exchange between the store and <data-dir>/<project-id>.md.

If the document exists its edits are merged into the store first; the file
is then rewritten with the canonical rendering of the stored state. If the
document does not exist it is exported fresh.`,
	Args: cobra.ExactArgs(1),
	RunE: runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	cfg, logger, st, err := setup(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	projectID := args[0]
	path := filepath.Join(cfg.DataDir, projectID+".md")
	sy := syncer.New(st, logger)

	body, err := os.ReadFile(path)
	switch {
	case err == nil:
		result, err := sy.SubmitDocument(cmd.Context(), projectID, string(body))
		if err != nil {
			return err
		}
		if result.Empty() {
			fmt.Printf("%s no changes\n", ui.RenderMuted("·"))
		} else {
			fmt.Printf("%s merged: %d created, %d updated, %d deleted\n",
				ui.RenderPass("✓"), result.Created, result.Updated, result.Deleted)
		}
	case os.IsNotExist(err):
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return err
		}
	default:
		return err
	}

	doc, err := sy.RenderProject(cmd.Context(), projectID)
	if err != nil {
		return err
	}
	if err := writeFileAtomic(path, []byte(doc)); err != nil {
		return err
	}
	fmt.Printf("%s wrote %s\n", ui.RenderPass("✓"), path)
	return nil
}
