// Package node models one markdown-backed content unit: its root file, the
// files sharing its base name, and an optional nested subgraph.
package node

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/nodenote/internal/apperr"
	"github.com/starford/nodenote/internal/paths"
)

// nameRe rejects separators and dots: a dot would turn the rest of the name
// into a sublabel.
var nameRe = regexp.MustCompile(`^[^./\\]+$`)

// Node is one content unit. Its durable state is whatever is on disk; a Node
// is rebuilt by scanning and never persisted on its own.
type Node struct {
	// BaseName is the grouping key, including any disambiguation prefix.
	BaseName string
	// MarkdownPath is the root file; it always has the .md extension.
	MarkdownPath string
	// AssociatedFiles share the node's namespace, excluding MarkdownPath.
	AssociatedFiles []string
	// SubgraphPath is the marker directory of the nested graph, if any.
	SubgraphPath string

	prefix      string
	stem        string // on-disk name, BaseName without prefix
	hasSubgraph bool
}

// FromMarkdown builds a Node rooted at path, which must end in .md.
func FromMarkdown(path string) (*Node, error) {
	return FromMarkdownWithPrefix(path, "")
}

// FromMarkdownWithPrefix is FromMarkdown with prefix prepended to BaseName,
// used to tell apart nodes of the same name in different directories.
func FromMarkdownWithPrefix(path, prefix string) (*Node, error) {
	if !paths.IsMarkdown(path) {
		return nil, fmt.Errorf("node: %s: extension must be %s: %w", path, paths.MarkdownExt, apperr.ErrInvalidInput)
	}
	stem := paths.NodeNamespace(path)
	if stem == "" {
		return nil, fmt.Errorf("node: %s: empty base name: %w", path, apperr.ErrInvalidInput)
	}
	return &Node{
		BaseName:     prefix + stem,
		MarkdownPath: filepath.Clean(path),
		prefix:       prefix,
		stem:         stem,
	}, nil
}

// ValidateName checks a node name given by a caller.
func ValidateName(name string) error {
	err := validation.Validate(name,
		validation.Required,
		validation.Match(nameRe).Error("must not contain dots or path separators"),
	)
	if err != nil {
		return fmt.Errorf("node: name %q: %w: %w", name, apperr.ErrInvalidInput, err)
	}
	return nil
}

// Stem returns the node's on-disk name without prefix.
func (n *Node) Stem() string { return n.stem }

// Prefix returns the disambiguation prefix, if any.
func (n *Node) Prefix() string { return n.prefix }

// HasSubgraph reports whether the node currently owns a subgraph.
func (n *Node) HasSubgraph() bool { return n.hasSubgraph }

// Dir returns the node's own directory next to its markdown root.
func (n *Node) Dir() string { return paths.NodeDir(n.MarkdownPath, n.stem) }

// AddFile appends candidate to AssociatedFiles when it shares the node's
// namespace and is not the markdown root. Calling it twice with the same
// candidate appends twice; de-duplication is up to the caller.
func (n *Node) AddFile(candidate string) bool {
	if paths.NodeNamespace(candidate) != n.stem {
		return false
	}
	if filepath.Clean(candidate) == n.MarkdownPath {
		return false
	}
	n.AssociatedFiles = append(n.AssociatedFiles, candidate)
	return true
}

// HasFile reports whether path is already associated.
func (n *Node) HasFile(path string) bool {
	path = filepath.Clean(path)
	for _, f := range n.AssociatedFiles {
		if filepath.Clean(f) == path {
			return true
		}
	}
	return false
}

// CreateSubgraph creates the node's directory with a .graph marker inside it.
func (n *Node) CreateSubgraph() error {
	dir := paths.SubgraphDir(n.MarkdownPath, n.stem)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("node: create subgraph %s: %w: %w", dir, apperr.ErrIO, err)
	}
	n.SubgraphPath = dir
	n.hasSubgraph = true
	return nil
}

// DeleteSubgraph removes the node's subgraph marker directory. A missing
// directory is a successful no-op. Without force the directory must be empty.
func (n *Node) DeleteSubgraph(force bool) error {
	dir := paths.SubgraphDir(n.MarkdownPath, n.stem)
	if _, err := os.Lstat(dir); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			n.clearSubgraph()
			return nil
		}
		return fmt.Errorf("node: stat subgraph %s: %w: %w", dir, apperr.ErrIO, err)
	}
	if !force {
		empty, err := isEmptyDir(dir)
		if err != nil {
			return fmt.Errorf("node: read subgraph %s: %w: %w", dir, apperr.ErrIO, err)
		}
		if !empty {
			return fmt.Errorf("node: subgraph %s: %w", dir, apperr.ErrNotEmpty)
		}
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("node: delete subgraph %s: %w: %w", dir, apperr.ErrIO, err)
	}
	n.clearSubgraph()
	return nil
}

func (n *Node) clearSubgraph() {
	n.SubgraphPath = ""
	n.hasSubgraph = false
}

func isEmptyDir(dir string) (bool, error) {
	f, err := os.Open(dir)
	if err != nil {
		return false, err
	}
	defer f.Close()
	_, err = f.Readdirnames(1)
	if errors.Is(err, io.EOF) {
		return true, nil
	}
	return false, err
}
