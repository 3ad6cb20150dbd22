package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/futureCreator/renote/internal/gitrepo"
	"github.com/futureCreator/renote/internal/publish"
)

var (
	clRepoPaths []string
	clTag       string
	clPrevTag   string
	clPublic    bool
	clFold      bool
	clURLBase   string
	clOutput    string
	clWorkers   int
)

var changelogCmd = &cobra.Command{
	Use:   "changelog",
	Short: "Print the commit changelog between two tags of local repositories",
	Long: `changelog lists the commits between the previous tag and --tag for every
--repo-path. A repo path is either a directory or name=directory. Repositories
are read concurrently and printed in the order given.`,
	Example: `  renote changelog --tag v1.6.0
  renote changelog --tag v1.6.0 --public --fold \
    --repo-path longhorn-manager=../longhorn-manager --repo-path ../longhorn-engine \
    --url-base https://github.com/longhorn`,
	Args: cobra.NoArgs,
	RunE: runChangelog,
}

func init() {
	f := changelogCmd.Flags()
	f.StringSliceVar(&clRepoPaths, "repo-path", []string{"."}, "Repository directory, optionally as name=directory")
	f.StringVar(&clTag, "tag", "", "Release tag (required)")
	f.StringVar(&clPrevTag, "prev-tag", "", "Previous tag (found per repository when empty)")
	f.BoolVar(&clPublic, "public", false, "Skip pre-release tags when looking up the previous tag")
	f.BoolVar(&clFold, "fold", false, "Wrap each repository in a <details> block")
	f.StringVar(&clURLBase, "url-base", "", "Web base for commit links; the repository name is appended")
	f.StringVarP(&clOutput, "output", "o", "-", "Output file, '-' for stdout")
	f.IntVar(&clWorkers, "workers", 4, "Repositories read concurrently")
	_ = changelogCmd.MarkFlagRequired("tag")

	rootCmd.AddCommand(changelogCmd)
}

// parseRepoPath splits "name=dir" into its parts; a bare dir has no name.
func parseRepoPath(s string) (name, dir string) {
	if i := strings.Index(s, "="); i > 0 {
		return s[:i], s[i+1:]
	}
	return "", s
}

func changelogRequests(paths []string, tag, prevTag, urlBase string, public bool) []gitrepo.ChangelogRequest {
	reqs := make([]gitrepo.ChangelogRequest, 0, len(paths))
	for _, p := range paths {
		name, dir := parseRepoPath(p)
		req := gitrepo.ChangelogRequest{
			Path:    dir,
			Name:    name,
			Tag:     tag,
			PrevTag: prevTag,
			Public:  public,
		}
		if urlBase != "" {
			repoName := name
			if repoName == "" {
				if abs, err := filepath.Abs(dir); err == nil {
					repoName = filepath.Base(abs)
				}
			}
			req.URL = strings.TrimRight(urlBase, "/") + "/" + repoName
		}
		reqs = append(reqs, req)
	}
	return reqs
}

func runChangelog(cmd *cobra.Command, args []string) error {
	if clOutput == "github" {
		return usageErr(fmt.Errorf("changelog cannot be published as a release; use generate --publish"))
	}
	_, closeLog, err := loadConfig()
	if err != nil {
		return err
	}
	defer closeLog()

	reqs := changelogRequests(clRepoPaths, clTag, clPrevTag, clURLBase, clPublic)
	out, err := gitrepo.Changelog(cmd.Context(), reqs, clFold, clWorkers)
	if err != nil {
		return err
	}

	sink, err := publish.Open(cmd.Context(), clOutput, publish.Options{Stdout: cmd.OutOrStdout()})
	if err != nil {
		return err
	}
	loc, err := sink.Publish(cmd.Context(), publish.Artifact{Markdown: out, Tag: clTag})
	if err != nil {
		return err
	}
	if clOutput != "-" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Changelog written to %s\n", loc)
	}
	return nil
}
