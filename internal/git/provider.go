// Package git wraps the git CLI to read repository state at a ref, so a
// review can diff the working tree against a merge base instead of a stored
// snapshot.
package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

// Provider runs git commands against one repository.
type Provider struct {
	repoRoot string
}

// NewProvider creates a provider for the repository containing dir. It fails
// when dir is not inside a git work tree.
func NewProvider(dir string) (*Provider, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("invalid repo root: %w", err)
	}

	cmd := exec.Command("git", "rev-parse", "--show-toplevel")
	cmd.Dir = abs
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("not a git repository: %s", abs)
	}

	return &Provider{repoRoot: strings.TrimSpace(string(output))}, nil
}

// RepoRoot returns the repository's top-level directory.
func (p *Provider) RepoRoot() string { return p.repoRoot }

// RefExists reports whether a ref resolves to a commit.
func (p *Provider) RefExists(ctx context.Context, ref string) bool {
	cmd := exec.CommandContext(ctx, "git", "rev-parse", "--verify", "--quiet", ref+"^{commit}")
	cmd.Dir = p.repoRoot
	return cmd.Run() == nil
}

// ListFiles returns the repository-relative paths of every file tracked at
// the given ref, in git's own (sorted) order.
func (p *Provider) ListFiles(ctx context.Context, ref string) ([]string, error) {
	cmd := exec.CommandContext(ctx, "git", "ls-tree", "-r", "--name-only", "-z", ref)
	cmd.Dir = p.repoRoot
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("listing files at %s: %w", ref, gitError(err))
	}

	var files []string
	for _, f := range bytes.Split(output, []byte{0}) {
		if len(f) > 0 {
			files = append(files, string(f))
		}
	}
	return files, nil
}

// ShowFile returns a file's content at the given ref.
func (p *Provider) ShowFile(ctx context.Context, ref, path string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "git", "show", ref+":"+path)
	cmd.Dir = p.repoRoot
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("reading %s at %s: %w", path, ref, gitError(err))
	}
	return output, nil
}

// gitError surfaces git's stderr, which carries the useful message.
func gitError(err error) error {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
		return fmt.Errorf("%s", strings.TrimSpace(string(exitErr.Stderr)))
	}
	return err
}
