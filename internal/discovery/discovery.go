package discovery

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	ignore "github.com/sabhiram/go-gitignore"
)

// Walker produces the ordered candidate file list for a run: every file
// under the root with a tracked extension, minus configured ignore globs,
// version-control ignore rules, and hidden directories. The analysis core
// never walks the filesystem itself; it reads exactly the files a Walker
// hands it.
type Walker struct {
	root       string
	extensions map[string]bool
	globs      []string
	vcs        *ignore.GitIgnore
}

// New creates a walker rooted at root. An unreadable root is fatal.
// Ignore patterns use doublestar glob syntax; a trailing slash means
// "this directory and everything under it", matched at any depth.
func New(root string, extensions []string, ignorePatterns []string) (*Walker, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving root %s: %w", root, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("root path unreadable: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root path %s is not a directory", abs)
	}

	w := &Walker{
		root:       abs,
		extensions: make(map[string]bool, len(extensions)),
	}
	for _, ext := range extensions {
		w.extensions[strings.ToLower(ext)] = true
	}
	for _, p := range ignorePatterns {
		w.globs = append(w.globs, expandPattern(p)...)
	}

	if gi, err := ignore.CompileIgnoreFile(filepath.Join(abs, ".gitignore")); err == nil {
		w.vcs = gi
	}
	return w, nil
}

// expandPattern turns one configured pattern into the glob set that gives it
// gitignore-like reach: matching at any depth, and for directory patterns
// matching the whole subtree.
func expandPattern(p string) []string {
	p = strings.TrimSuffix(filepath.ToSlash(p), "/")
	if p == "" {
		return nil
	}
	return []string{p, p + "/**", "**/" + p, "**/" + p + "/**"}
}

// Root returns the absolute analysis root.
func (w *Walker) Root() string { return w.root }

// Ignored reports whether a root-relative path is excluded from analysis.
func (w *Walker) Ignored(rel string) bool {
	rel = filepath.ToSlash(rel)
	for _, g := range w.globs {
		if ok, _ := doublestar.Match(g, rel); ok {
			return true
		}
	}
	return w.vcs != nil && w.vcs.MatchesPath(rel)
}

// Dirs returns the root and every non-ignored, non-hidden directory under
// it, for callers that need to register filesystem watches.
func (w *Walker) Dirs() ([]string, error) {
	dirs := []string{w.root}

	err := filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || path == w.root || !d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(w.root, path)
		if relErr != nil {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") || w.Ignored(rel) {
			return fs.SkipDir
		}
		dirs = append(dirs, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dirs, nil
}

// Discover walks the root and returns the tracked files as sorted absolute
// paths. Unreadable entries below the root are skipped, not fatal.
func (w *Walker) Discover() ([]string, error) {
	var files []string

	err := filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == w.root {
				return fmt.Errorf("root path unreadable: %w", err)
			}
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if path == w.root {
			return nil
		}

		rel, relErr := filepath.Rel(w.root, path)
		if relErr != nil {
			return nil
		}

		name := d.Name()
		if d.IsDir() {
			if strings.HasPrefix(name, ".") || w.Ignored(rel) {
				return fs.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") || w.Ignored(rel) {
			return nil
		}
		if !w.extensions[strings.ToLower(filepath.Ext(name))] {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}
