package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/futureCreator/renote/internal/config"
	"github.com/futureCreator/renote/internal/diff"
	"github.com/futureCreator/renote/internal/run"
	"github.com/futureCreator/renote/internal/types"
)

var diffNoColor bool

var diffCmd = &cobra.Command{
	Use:   "diff <previous> <current>",
	Short: "Compare two generated release notes",
	Long: `diff compares two release notes section by section. Each argument is a
note.json path, a run id, a run directory, or "latest".`,
	Args: cobra.ExactArgs(2),
	RunE: runDiff,
}

func init() {
	diffCmd.Flags().BoolVar(&diffNoColor, "no-color", false, "Disable colored output")
	rootCmd.AddCommand(diffCmd)
}

func runDiff(cmd *cobra.Command, args []string) error {
	prev, err := loadNoteRef(args[0])
	if err != nil {
		return err
	}
	cur, err := loadNoteRef(args[1])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	diffs := diff.Diff(prev, cur)
	if err := diff.Format(out, diffs, !diffNoColor && isTerminal(out)); err != nil {
		return err
	}
	for _, it := range diff.CarriedOver(prev, cur) {
		fmt.Fprintf(out, "carried over: #%d %s\n", it.ID, it.Title)
	}
	return nil
}

func loadNoteRef(ref string) (*types.ReleaseNote, error) {
	path, err := run.ResolveNote(config.DirName, ref)
	if err != nil {
		return nil, usageErr(err)
	}
	note, err := types.LoadNote(path)
	if err != nil {
		return nil, usageErr(err)
	}
	return note, nil
}
