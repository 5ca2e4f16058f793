package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tndhk/No26-todo-md/internal/markdown"
	"github.com/tndhk/No26-todo-md/internal/ui"
)

var flagFmtWrite bool

var fmtCmd = &cobra.Command{
	Use:   "fmt <file>...",
	Short: "Rewrite documents in canonical form",
	Long: `Parse each document and print its canonical rendering: tasks grouped
into Todo, Doing and Done sections, indentation normalized to four spaces
per level, tags in content-due-repeat order. With -w the file is rewritten
in place.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runFmt,
}

func init() {
	fmtCmd.Flags().BoolVarP(&flagFmtWrite, "write", "w", false, "write result back to the file")
	rootCmd.AddCommand(fmtCmd)
}

func runFmt(cmd *cobra.Command, args []string) error {
	for _, path := range args {
		body, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		title := strings.TrimSuffix(filepath.Base(path), ".md")
		doc, verrs := markdown.ParseDocument(title, string(body), nil)
		if len(verrs) > 0 {
			fmt.Fprintf(os.Stderr, "%s %s\n", ui.RenderError("✗"), path)
			for _, ve := range verrs {
				fmt.Fprintf(os.Stderr, "  %s\n", ve.Error())
			}
			return fmt.Errorf("cannot format invalid document %s", path)
		}

		out := markdown.RenderDocument(doc.Title, doc.Tasks)
		if !flagFmtWrite {
			fmt.Print(out)
			continue
		}
		if out == string(body) {
			continue
		}
		if err := writeFileAtomic(path, []byte(out)); err != nil {
			return err
		}
		fmt.Printf("%s formatted %s\n", ui.RenderPass("✓"), path)
	}
	return nil
}

// writeFileAtomic writes via a temp file and rename so a crash never leaves
// a half-written document.
func writeFileAtomic(path string, data []byte) error {
	tmp := filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
