package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/futureCreator/renote/internal/config"
	"github.com/futureCreator/renote/internal/run"
)

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List past generate runs",
	Args:  cobra.NoArgs,
	RunE:  runRuns,
}

func init() {
	runsCmd.Flags().IntVarP(&runsLimit, "limit", "n", 20, "Show at most this many runs (0 for all)")
}

func runRuns(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	runs, err := run.List(config.DirName)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs found.")
		return nil
	}

	var completed, failed int
	for _, s := range runs {
		switch s.Meta.Status {
		case "completed":
			completed++
		case "failed":
			failed++
		}
	}
	fmt.Fprintf(out, "Runs: %d total, %d completed, %d failed\n\n", len(runs), completed, failed)

	shown := runs
	if runsLimit > 0 && len(shown) > runsLimit {
		shown = shown[:runsLimit]
	}
	fmt.Fprintf(out, "%-48s %-10s %-12s %6s %8s  %s\n", "Run ID", "Status", "Tag", "Items", "Requests", "Output")
	fmt.Fprintln(out, strings.Repeat("─", 100))
	for _, s := range shown {
		detail := s.Meta.Output
		if s.Meta.Status == "failed" {
			detail = s.Meta.Error
		}
		fmt.Fprintf(out, "%-48s %-10s %-12s %6d %8d  %s\n",
			s.ID, s.Meta.Status, s.Meta.Tag, s.Meta.Items, s.Meta.Requests, firstLine(detail))
	}
	return nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
