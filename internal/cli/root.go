package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/futureCreator/renote/pkg/version"
)

var (
	flagConfig   string
	flagLogLevel string
	flagToken    string
)

var rootCmd = &cobra.Command{
	Use:   "renote",
	Short: "Release-note aggregation and rendering",
	Long: `renote collects closed issues for a release from GitHub, classifies them
by label into release-note sections and renders a markdown release note.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagConfig, "config", "", "Config file (overrides .renote/config.yaml)")
	pf.StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.StringVar(&flagToken, "github-token", "", "GitHub token (default from $GITHUB_TOKEN)")

	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageErr(err)
	})

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(runsCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "renote %s\n", version.Version)
	},
}
