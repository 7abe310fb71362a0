package node

import (
	"fmt"
	"path/filepath"

	"github.com/starford/nodenote/internal/checksum"
	"github.com/starford/nodenote/internal/parser"
	"github.com/starford/nodenote/internal/storage"
)

// Summary is a read-only view of a node for listings.
type Summary struct {
	BaseName        string   `json:"base_name"`
	Title           string   `json:"title"`
	MarkdownPath    string   `json:"markdown_path"`
	AssociatedFiles []string `json:"associated_files"`
	HasSubgraph     bool     `json:"has_subgraph"`
	SubgraphPath    string   `json:"subgraph_path,omitempty"`
	Tags            []string `json:"tags"`
	Links           []string `json:"links"`
	Checksum        string   `json:"checksum"`
}

// Summary reads the markdown root and describes the node.
func (n *Node) Summary() (Summary, error) {
	dir, err := storage.NewFS(filepath.Dir(n.MarkdownPath))
	if err != nil {
		return Summary{}, fmt.Errorf("node: summary %s: %w", n.BaseName, err)
	}
	data, err := dir.Read(filepath.Base(n.MarkdownPath))
	if err != nil {
		return Summary{}, fmt.Errorf("node: summary %s: %w", n.BaseName, err)
	}
	md := parser.Parse(data)
	title := md.Title
	if title == "" {
		title = n.BaseName
	}
	return Summary{
		BaseName:        n.BaseName,
		Title:           title,
		MarkdownPath:    n.MarkdownPath,
		AssociatedFiles: nonNil(n.AssociatedFiles),
		HasSubgraph:     n.hasSubgraph,
		SubgraphPath:    n.SubgraphPath,
		Tags:            nonNil(md.Tags),
		Links:           nonNil(md.Links),
		Checksum:        checksum.Sum(data),
	}, nil
}

// Create writes a new markdown root <dir>/<name>.md with a title header and
// returns its Node. An existing file is ErrAlreadyExists.
func Create(dir, name string) (*Node, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	store, err := storage.NewFS(dir)
	if err != nil {
		return nil, fmt.Errorf("node: create %s: %w", name, err)
	}
	head, err := parser.RenderFrontmatter(parser.Frontmatter{Title: name})
	if err != nil {
		return nil, fmt.Errorf("node: render header: %w", err)
	}
	content := append(head, []byte("# "+name+"\n")...)
	rel := name + ".md"
	if err := store.Create(rel, content); err != nil {
		return nil, fmt.Errorf("node: create %s: %w", name, err)
	}
	abs, err := store.Abs(rel)
	if err != nil {
		return nil, err
	}
	return FromMarkdown(abs)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
