package node

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"

	"github.com/starford/nodenote/internal/apperr"
	"github.com/starford/nodenote/internal/paths"
	"github.com/starford/nodenote/internal/storage"
)

// Skipped by every scan, in addition to caller patterns.
var defaultIgnorePatterns = []string{
	paths.MarkerDirName + "/",
	storage.TempPattern,
	".DS_Store",
	"Thumbs.db",
	"*.swp",
	"*~",
}

// Matcher decides which paths below a scan root are skipped.
type Matcher struct {
	m gitignore.Matcher
}

// NewMatcher combines the default ignore patterns with patterns.
func NewMatcher(patterns []gitignore.Pattern) Matcher {
	all := make([]gitignore.Pattern, 0, len(defaultIgnorePatterns)+len(patterns))
	for _, p := range defaultIgnorePatterns {
		all = append(all, gitignore.ParsePattern(p, nil))
	}
	all = append(all, patterns...)
	return Matcher{m: gitignore.NewMatcher(all)}
}

// Skip reports whether rel (relative to the scan root) is ignored.
func (m Matcher) Skip(rel string, isDir bool) bool {
	if rel == "." || rel == "" {
		return false
	}
	return m.m.Match(strings.Split(filepath.ToSlash(rel), "/"), isDir)
}

// ReadIgnoreFile parses gitignore-style patterns from path. A missing file
// yields no patterns.
func ReadIgnoreFile(path string) ([]gitignore.Pattern, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("node: read ignore file: %w: %w", apperr.ErrIO, err)
	}
	defer f.Close()

	var out []gitignore.Pattern
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, gitignore.ParsePattern(line, nil))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("node: read ignore file: %w: %w", apperr.ErrIO, err)
	}
	return out, nil
}

// ScanTree walks root and builds a Node for every markdown root file, i.e.
// every .md file without a sublabel. Files in the same directory that share a
// node's namespace become its associated files, each at most once. Nodes below
// root get their relative directory as prefix ("dir/"). Subgraph marker
// directories are detected but never descended into.
func ScanTree(root string, patterns []gitignore.Pattern) ([]*Node, error) {
	matcher := NewMatcher(patterns)

	var dirs []string
	files := make(map[string][]string)

	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		if matcher.Skip(rel, d.IsDir()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			dirs = append(dirs, rel)
			return nil
		}
		dir := filepath.Dir(rel)
		files[dir] = append(files[dir], p)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("node: scan %s: %w", root, classify(err))
	}

	var out []*Node
	for _, dir := range dirs {
		out = append(out, buildDir(dir, files[dir])...)
	}
	return out, nil
}

// PrefixFor returns the BaseName prefix of nodes in directory rel below the
// scan root.
func PrefixFor(rel string) string {
	if rel == "." || rel == "" {
		return ""
	}
	return filepath.ToSlash(rel) + "/"
}

func buildDir(rel string, files []string) []*Node {
	prefix := PrefixFor(rel)
	sort.Strings(files)

	var nodes []*Node
	for _, f := range files {
		if !IsRoot(f) {
			continue
		}
		n, err := FromMarkdownWithPrefix(f, prefix)
		if err != nil {
			continue
		}
		if info, err := os.Stat(paths.SubgraphDir(n.MarkdownPath, n.stem)); err == nil && info.IsDir() {
			n.SubgraphPath = paths.SubgraphDir(n.MarkdownPath, n.stem)
			n.hasSubgraph = true
		}
		nodes = append(nodes, n)
	}
	for _, f := range files {
		for _, n := range nodes {
			if !n.HasFile(f) {
				n.AddFile(f)
			}
		}
	}
	return nodes
}

// IsRoot reports whether path is a markdown file with no sublabel.
func IsRoot(path string) bool {
	return paths.IsMarkdown(path) && paths.Sublabels(path) == paths.MarkdownExt
}

func classify(err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %w", apperr.ErrNotFound, err)
	}
	return fmt.Errorf("%w: %w", apperr.ErrIO, err)
}
