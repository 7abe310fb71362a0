// Package workspace creates graph workspaces on disk, registers them, and
// opens them for callers.
package workspace

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/nodenote/internal/apperr"
	"github.com/starford/nodenote/internal/node"
	"github.com/starford/nodenote/internal/paths"
	"github.com/starford/nodenote/internal/registry"
	"github.com/starford/nodenote/internal/storage"
)

// ConfigStub is written verbatim to config.edn when a graph is created.
const ConfigStub = "{:meta/version 1\n ;; Currently, there are no config settings.\n ;; This will change at some point.\n }"

// Registry is the part of the registry store the workspace needs.
type Registry interface {
	Init() error
	List() ([]registry.Entry, error)
	Find(basePath, name string) (registry.Entry, error)
	Add(basePath, name string) error
	Touch(basePath, name string) error
	Remove(basePath, name string) error
	Validate(repair bool) (registry.Report, error)
}

var _ Registry = (*registry.Store)(nil)

// Service coordinates graph directories and the registry.
type Service struct {
	reg    Registry
	logger *slog.Logger
}

// New creates a workspace service on top of reg.
func New(reg Registry, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{reg: reg, logger: logger}
}

// ValidateName checks a graph name: non-empty, a single path element.
func ValidateName(name string) error {
	err := validation.Validate(name,
		validation.Required,
		validation.By(func(v interface{}) error {
			s, _ := v.(string)
			if s == "." || s == ".." || filepath.Base(s) != s || filepath.IsAbs(s) {
				return errors.New("must be a single path element")
			}
			return nil
		}),
	)
	if err != nil {
		return fmt.Errorf("workspace: graph name %q: %w: %w", name, apperr.ErrInvalidInput, err)
	}
	return nil
}

// Create lays out basePath/name (marker, nodes and edges directories), writes
// the config stub and registers the graph. Directory or config failures abort
// before the registry is touched. A registry failure is reported after the
// directories exist; they are not removed.
func (s *Service) Create(basePath, name string) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}
	if basePath == "" {
		return "", fmt.Errorf("workspace: base path is required: %w", apperr.ErrInvalidInput)
	}
	base, err := filepath.Abs(basePath)
	if err != nil {
		return "", fmt.Errorf("workspace: resolve base path: %w: %w", apperr.ErrInvalidInput, err)
	}

	dirs := paths.Graph(paths.GraphRoot(base, name))
	root, err := storage.EnsureFS(dirs.Root)
	if err != nil {
		return "", fmt.Errorf("workspace: create graph root: %w", err)
	}
	for _, d := range []struct{ label, path string }{
		{"marker", dirs.MarkerDir},
		{"nodes", dirs.NodesDir},
		{"edges", dirs.EdgesDir},
	} {
		rel, _ := filepath.Rel(dirs.Root, d.path)
		if err := root.MkdirAll(rel); err != nil {
			return "", fmt.Errorf("workspace: create %s directory: %w", d.label, err)
		}
	}
	rel, _ := filepath.Rel(dirs.Root, dirs.ConfigPath)
	if err := root.Write(rel, []byte(ConfigStub)); err != nil {
		return "", fmt.Errorf("workspace: create config file: %w", err)
	}

	if err := s.reg.Add(base, name); err != nil {
		s.logger.Error("graph directories created but registry update failed",
			slog.String("root", dirs.Root), slog.String("error", err.Error()))
		return "", fmt.Errorf("workspace: update graph registry: %w", err)
	}

	s.logger.Info("graph created", slog.String("name", name), slog.String("root", dirs.Root))
	return fmt.Sprintf("Graph created successfully at %s", dirs.Root), nil
}

// Init creates an empty registry when none exists, so List reports no
// graphs instead of ErrNotFound. An existing registry is left as is.
func (s *Service) Init() error {
	if err := s.reg.Init(); err != nil {
		return fmt.Errorf("workspace: init registry: %w", err)
	}
	return nil
}

// List returns every registered graph.
func (s *Service) List() ([]registry.Entry, error) {
	entries, err := s.reg.List()
	if err != nil {
		return nil, fmt.Errorf("workspace: list graphs: %w", err)
	}
	return entries, nil
}

// Open validates the registry without repairing it, marks basePath/name as
// opened and returns the current listing.
func (s *Service) Open(basePath, name string) ([]registry.Entry, error) {
	base, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("workspace: resolve base path: %w: %w", apperr.ErrInvalidInput, err)
	}
	if _, err := s.reg.Validate(false); err != nil {
		return nil, fmt.Errorf("workspace: open %s: %w", name, err)
	}
	if _, err := s.reg.Find(base, name); err != nil {
		return nil, fmt.Errorf("workspace: open %s: %w", name, err)
	}
	if err := s.reg.Touch(base, name); err != nil {
		return nil, fmt.Errorf("workspace: open %s: %w", name, err)
	}
	s.logger.Info("graph opened", slog.String("name", name), slog.String("path", base))
	return s.List()
}

// Validate checks every registered graph, pruning missing ones with repair.
func (s *Service) Validate(repair bool) (registry.Report, error) {
	rep, err := s.reg.Validate(repair)
	if err != nil {
		return rep, fmt.Errorf("workspace: validate: %w", err)
	}
	return rep, nil
}

// Remove unregisters every entry for basePath/name. Files stay on disk.
func (s *Service) Remove(basePath, name string) error {
	base, err := filepath.Abs(basePath)
	if err != nil {
		return fmt.Errorf("workspace: resolve base path: %w: %w", apperr.ErrInvalidInput, err)
	}
	if err := s.reg.Remove(base, name); err != nil {
		return fmt.Errorf("workspace: remove %s: %w", name, err)
	}
	return nil
}

// Dirs returns the layout of a registered graph.
func (s *Service) Dirs(basePath, name string) (paths.GraphDirs, error) {
	base, err := filepath.Abs(basePath)
	if err != nil {
		return paths.GraphDirs{}, fmt.Errorf("workspace: resolve base path: %w: %w", apperr.ErrInvalidInput, err)
	}
	e, err := s.reg.Find(base, name)
	if err != nil {
		return paths.GraphDirs{}, fmt.Errorf("workspace: %w", err)
	}
	return paths.Graph(e.Root()), nil
}

// Nodes scans the graph's nodes directory and returns its nodes, honouring
// the graph's .nodenoteignore file.
func (s *Service) Nodes(basePath, name string) ([]*node.Node, error) {
	dirs, err := s.Dirs(basePath, name)
	if err != nil {
		return nil, err
	}
	patterns, err := node.ReadIgnoreFile(filepath.Join(dirs.Root, paths.IgnoreFileName))
	if err != nil {
		return nil, fmt.Errorf("workspace: %w", err)
	}
	nodes, err := node.ScanTree(dirs.NodesDir, patterns)
	if err != nil {
		return nil, fmt.Errorf("workspace: nodes of %s: %w", name, err)
	}
	return nodes, nil
}

// FindNode returns the node with the given base name in a graph.
func (s *Service) FindNode(basePath, name, baseName string) (*node.Node, error) {
	nodes, err := s.Nodes(basePath, name)
	if err != nil {
		return nil, err
	}
	for _, n := range nodes {
		if n.BaseName == baseName {
			return n, nil
		}
	}
	return nil, fmt.Errorf("workspace: node %q in graph %s: %w", baseName, name, apperr.ErrNotFound)
}

// CreateNode writes a new node markdown root into the graph's nodes directory.
func (s *Service) CreateNode(basePath, name, nodeName string) (*node.Node, error) {
	dirs, err := s.Dirs(basePath, name)
	if err != nil {
		return nil, err
	}
	n, err := node.Create(dirs.NodesDir, nodeName)
	if err != nil {
		return nil, fmt.Errorf("workspace: %w", err)
	}
	s.logger.Info("node created", slog.String("graph", name), slog.String("node", n.BaseName))
	return n, nil
}
