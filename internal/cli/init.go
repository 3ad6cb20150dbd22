package cli

import (
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"

	"github.com/spf13/cobra"

	"github.com/futureCreator/renote/internal/assets"
	"github.com/futureCreator/renote/internal/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter .renote/config.yaml and release-note template",
	Args:  cobra.NoArgs,
	RunE:  runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite existing files")
}

func runInit(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	templates, err := assets.AllTemplates()
	if err != nil {
		return fmt.Errorf("loading templates: %w", err)
	}

	type file struct {
		path    string
		content []byte
	}
	files := []file{{filepath.Join(config.DirName, "config.yaml"), assets.DefaultConfig()}}
	for _, name := range slices.Sorted(maps.Keys(templates)) {
		files = append(files, file{filepath.Join(config.DirName, "templates", name+assets.TemplateExt), []byte(templates[name])})
	}

	for _, f := range files {
		if _, err := os.Stat(f.path); err == nil && !initForce {
			fmt.Fprintf(out, "Already exists: %s\n", f.path)
			continue
		}
		if err := os.MkdirAll(filepath.Dir(f.path), 0755); err != nil {
			return fmt.Errorf("creating %s: %w", filepath.Dir(f.path), err)
		}
		if err := os.WriteFile(f.path, f.content, 0644); err != nil {
			return fmt.Errorf("writing %s: %w", f.path, err)
		}
		fmt.Fprintf(out, "Created %s\n", f.path)
	}

	fmt.Fprintln(out, "Set github.owner and github.repo in the config, then export GITHUB_TOKEN.")
	return nil
}
