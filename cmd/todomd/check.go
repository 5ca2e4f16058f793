package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tndhk/No26-todo-md/internal/markdown"
	"github.com/tndhk/No26-todo-md/internal/task"
	"github.com/tndhk/No26-todo-md/internal/ui"
)

var checkCmd = &cobra.Command{
	Use:   "check <file>...",
	Short: "Validate Markdown task documents",
	Long: `Parse each document and report malformed or duplicated inline tags
with their line numbers. Exits non-zero if any document fails.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	failed := 0
	for _, path := range args {
		body, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		title := strings.TrimSuffix(filepath.Base(path), ".md")
		doc, verrs := markdown.ParseDocument(title, string(body), nil)
		if len(verrs) > 0 {
			failed++
			fmt.Printf("%s %s\n", ui.RenderError("✗"), path)
			for _, ve := range verrs {
				fmt.Printf("  %s\n", ve.Error())
			}
			continue
		}
		fmt.Printf("%s %s %s\n", ui.RenderPass("✓"), path,
			ui.RenderMuted(fmt.Sprintf("(%d tasks)", task.CountForest(doc.Tasks))))
	}

	if failed > 0 {
		return fmt.Errorf("%d document(s) failed validation", failed)
	}
	return nil
}
