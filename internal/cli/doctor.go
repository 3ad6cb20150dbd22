package cli

import (
	"fmt"
	"io"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/futureCreator/renote/internal/assets"
	"github.com/futureCreator/renote/internal/classify"
	"github.com/futureCreator/renote/internal/config"
	"github.com/futureCreator/renote/internal/github"
	"github.com/futureCreator/renote/internal/gitrepo"
	"github.com/futureCreator/renote/internal/render"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check renote prerequisites and configuration",
	Args:  cobra.NoArgs,
	RunE:  runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

// lookPath is swapped in tests.
var lookPath = exec.LookPath

type checker struct {
	w     io.Writer
	allOK bool
}

func (c *checker) check(label string, ok bool, hint string) {
	if ok {
		fmt.Fprintf(c.w, "✅ %s\n", label)
		return
	}
	fmt.Fprintf(c.w, "❌ %s — %s\n", label, hint)
	c.allOK = false
}

func (c *checker) info(label string) {
	fmt.Fprintf(c.w, "ℹ️  %s\n", label)
}

func runDoctor(cmd *cobra.Command, args []string) error {
	c := &checker{w: cmd.OutOrStdout(), allOK: true}

	// 1. binaries
	_, err := lookPath("git")
	c.check("git installed", err == nil, "install git")
	_, err = lookPath("helm")
	c.check("helm installed", err == nil, "install helm: https://helm.sh/docs/intro/install/")
	ghErr := github.CheckGHVersion()
	c.check("gh CLI >= 2.0.0", ghErr == nil, fmt.Sprint(ghErr))
	if ghErr == nil {
		authErr := github.CheckGHAuth("")
		c.check("gh CLI authenticated", authErr == nil, fmt.Sprint(authErr))
	}

	// 2. local repository
	if repo, err := gitrepo.Open("."); err != nil {
		c.info("not inside a git repository; --prev-tag must be passed explicitly")
	} else {
		head, err := gitrepo.Head(repo)
		c.check("git HEAD readable", err == nil, fmt.Sprint(err))
		if err == nil {
			c.info(fmt.Sprintf("branch %s at %s (dirty: %t)", head.Branch, head.Commit, head.IsDirty))
		}
		tags, err := gitrepo.Tags(repo)
		c.check("semver tags readable", err == nil, fmt.Sprint(err))
		if err == nil && len(tags) > 0 {
			c.info(fmt.Sprintf("%d release tags, latest %s", len(tags), tags[0].Name))
		}
	}

	// 3. config
	cfg, cfgErr := config.Load(flagConfig)
	c.check("config loadable", cfgErr == nil, fmt.Sprintf("fix config: %v", cfgErr))
	if cfgErr == nil {
		validateErr := cfg.Validate()
		c.check("config valid", validateErr == nil, fmt.Sprint(validateErr))
		targetErr := cfg.ValidateTarget()
		c.check("repository configured", targetErr == nil, fmt.Sprint(targetErr))

		_, classErr := classify.FromConfig(cfg.Classification)
		c.check("classification table valid", classErr == nil, fmt.Sprint(classErr))

		token, tokenErr := github.ResolveToken(flagToken, cfg.Token(), cfg.GitHub.TokenEnv)
		c.check(cfg.GitHub.TokenEnv+" set", tokenErr == nil, fmt.Sprint(tokenErr))
		if tokenErr == nil && !github.LooksLikeToken(token) {
			c.info("token has an unrecognised format; GitHub may still accept it")
		}

		tmpl, tmplErr := assets.LoadTemplate(cfg.Note.Template)
		c.check("template loadable", tmplErr == nil, fmt.Sprint(tmplErr))
		if tmplErr == nil {
			parseErr := templateParses(tmpl)
			c.check("template parses", parseErr == nil, fmt.Sprint(parseErr))
		}
	}

	fmt.Fprintln(c.w)
	if c.allOK {
		fmt.Fprintln(c.w, "All checks passed. renote is ready.")
	} else {
		fmt.Fprintln(c.w, "Some checks failed. Fix the issues above before running renote.")
	}
	return nil
}

// templateParses reports template syntax errors only; rendering depends on
// data available at generate time.
func templateParses(src string) error {
	_, err := render.Parse("doctor", src)
	return err
}
