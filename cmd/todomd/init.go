package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tndhk/No26-todo-md/internal/ui"
)

const defaultConfig = `# todomd configuration
data_dir: .todomd
backend: sqlite
database: .todomd/todomd.db
listen: ":8383"

log:
  level: info

watch:
  enabled: true
  debounce_ms: 250
`

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Set up todomd in the current directory",
	Long: `Write a starter todomd.yaml, create the data directory, and
initialize the storage backend.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat("todomd.yaml"); err == nil {
		fmt.Printf("%s todomd.yaml already exists\n", ui.RenderMuted("·"))
	} else if os.IsNotExist(err) {
		if err := os.WriteFile("todomd.yaml", []byte(defaultConfig), 0o644); err != nil {
			return fmt.Errorf("failed to write todomd.yaml: %w", err)
		}
		fmt.Printf("%s wrote todomd.yaml\n", ui.RenderPass("✓"))
	} else {
		return err
	}

	cfg, _, st, err := setup(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	fmt.Printf("%s initialized %s backend in %s\n", ui.RenderPass("✓"), cfg.Backend, cfg.DataDir)
	return nil
}
