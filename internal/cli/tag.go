package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/futureCreator/renote/internal/github"
	"github.com/futureCreator/renote/internal/gitrepo"
	vlog "github.com/futureCreator/renote/internal/log"
)

var (
	tagRepoPaths []string
	tagName      string
	tagBranch    string
	tagMessage   string
	tagForce     bool
	tagPush      bool
	tagRemote    string
)

var tagCmd = &cobra.Command{
	Use:   "tag",
	Short: "Create a release tag in one or more local repositories",
	Long: `tag creates --tag at the tip of --branch in every --repo-path. An existing
tag is skipped unless --force recreates it. With --push the tag is pushed to
--remote using the GitHub token for HTTPS remotes.`,
	Example: `  renote tag --tag v1.6.0 --branch v1.6.x
  renote tag --tag v1.6.0 --branch v1.6.x --force --push \
    --repo-path ../longhorn-manager --repo-path ../longhorn-engine`,
	Args: cobra.NoArgs,
	RunE: runTag,
}

func init() {
	f := tagCmd.Flags()
	f.StringSliceVar(&tagRepoPaths, "repo-path", []string{"."}, "Repository directory, optionally as name=directory")
	f.StringVar(&tagName, "tag", "", "Tag to create (required)")
	f.StringVar(&tagBranch, "branch", "", "Branch to tag (defaults to HEAD)")
	f.StringVarP(&tagMessage, "message", "m", "", "Annotation message; makes an annotated tag")
	f.BoolVarP(&tagForce, "force", "f", false, "Delete and recreate an existing tag")
	f.BoolVar(&tagPush, "push", false, "Push the tag to the remote")
	f.StringVar(&tagRemote, "remote", "origin", "Remote to push to")
	_ = tagCmd.MarkFlagRequired("tag")

	rootCmd.AddCommand(tagCmd)
}

func runTag(cmd *cobra.Command, args []string) error {
	cfg, closeLog, err := loadConfig()
	if err != nil {
		return err
	}
	defer closeLog()

	var token string
	if tagPush {
		if token, err = github.ResolveToken(flagToken, cfg.Token(), cfg.GitHub.TokenEnv); err != nil {
			vlog.Debug("pushing without a token", "err", err)
		}
	}

	out := cmd.OutOrStdout()
	for _, p := range tagRepoPaths {
		name, dir := parseRepoPath(p)
		if name == "" {
			name = dir
		}
		repo, err := gitrepo.Open(dir)
		if err != nil {
			return err
		}

		hash, err := gitrepo.CreateTag(repo, gitrepo.TagOptions{
			Name:    tagName,
			Branch:  tagBranch,
			Message: tagMessage,
			Force:   tagForce,
		})
		if errors.Is(err, gitrepo.ErrTagExists) {
			vlog.Warn("tag exists, skipped", "repo", name, "tag", tagName)
			fmt.Fprintf(out, "⏭️  %s: %s already exists (use --force to recreate)\n", name, tagName)
			continue
		}
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}

		if tagPush {
			if err := gitrepo.PushTag(cmd.Context(), repo, tagRemote, tagName, gitrepo.TokenAuth(token), tagForce); err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
		}
		fmt.Fprintf(out, "✅ %s: %s at %s\n", name, tagName, hash.String()[:7])
	}
	return nil
}
