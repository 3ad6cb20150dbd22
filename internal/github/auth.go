package github

import (
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strings"

	"github.com/futureCreator/renote/internal/tracker"
)

// ghRun executes a gh subcommand and returns its stdout.
// It is a package-level variable so tests can replace it with a mock.
var ghRun = func(args ...string) ([]byte, error) {
	return exec.Command("gh", args...).Output()
}

// tokenPattern matches well-known GitHub token prefixes.
var tokenPattern = regexp.MustCompile(`^((ghp_|ghs_|gho_|ghu_)[a-zA-Z0-9]{36,}|github_pat_[a-zA-Z0-9_]{22,})$`)

// ResolveToken picks the tracker credential: an explicit flag value wins over
// the environment. A missing credential is an AuthError.
func ResolveToken(flagValue, envValue, envName string) (string, error) {
	token := strings.TrimSpace(flagValue)
	if token == "" {
		token = strings.TrimSpace(envValue)
	}
	if token == "" {
		return "", &tracker.AuthError{Reason: fmt.Sprintf("%s is not set; export it or pass --github-token", envName)}
	}
	if strings.ContainsAny(token, " \t\n") {
		return "", &tracker.AuthError{Reason: "token contains whitespace"}
	}
	return token, nil
}

// LooksLikeToken reports whether token has a recognised GitHub token format.
// Unknown formats are still sent; GitHub is the authority on validity.
func LooksLikeToken(token string) bool {
	return tokenPattern.MatchString(token)
}

// CheckGHVersion verifies that the gh CLI is installed and at version >= 2.0.0.
func CheckGHVersion() error {
	out, err := ghRun("--version")
	if err != nil {
		if isGhNotFound(err) {
			return fmt.Errorf("'gh' CLI is not installed. Install it from https://cli.github.com/")
		}
		return fmt.Errorf("checking gh version: %w", err)
	}

	// Output format: "gh version 2.x.y (...)\n..."
	line := strings.SplitN(string(out), "\n", 2)[0]
	parts := strings.Fields(line)
	if len(parts) < 3 {
		return fmt.Errorf("unexpected 'gh --version' output: %q", line)
	}

	ver := strings.TrimPrefix(parts[2], "v")
	var major int
	if _, err := fmt.Sscanf(ver, "%d.", &major); err != nil {
		return fmt.Errorf("could not parse gh version from %q", ver)
	}
	if major < 2 {
		return fmt.Errorf("'gh' CLI version %s is below the required minimum 2.0.0", ver)
	}
	return nil
}

// CheckGHAuth verifies that the gh CLI can act on the given host, either
// through its own login or through GITHUB_TOKEN/GH_TOKEN.
func CheckGHAuth(host string) error {
	args := []string{"auth", "status"}
	if host != "" && host != "github.com" {
		args = append(args, "--hostname", host)
	}

	if _, err := ghRun(args...); err != nil {
		if isGhNotFound(err) {
			return fmt.Errorf("'gh' CLI is not installed. Install it from https://cli.github.com/")
		}
		return fmt.Errorf("'gh' CLI is not authenticated. Export GITHUB_TOKEN or run 'gh auth login'")
	}
	return nil
}

// isGhNotFound returns true when err indicates that the gh binary was not found.
func isGhNotFound(err error) bool {
	return errors.Is(err, exec.ErrNotFound)
}
