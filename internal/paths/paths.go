// Package paths derives the on-disk layout of graph workspaces and nodes.
// Every function here is pure: inputs are treated as opaque paths and nothing
// is checked for existence.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

const (
	// MarkerDirName marks a directory as a graph workspace.
	MarkerDirName = ".graph"
	// InternalDirName holds the nodes, edges and config of a graph.
	InternalDirName = "nodenote"
	// NodesDirName holds one markdown file or subdirectory per node.
	NodesDirName = "nodes"
	// EdgesDirName holds relationship data between nodes.
	EdgesDirName = "edges"
	// ConfigFileName is the static config stub written at creation.
	ConfigFileName = "config.edn"
	// RegistryFileName is the registry document inside the app data dir.
	RegistryFileName = "graph_registry.json"
	// IgnoreFileName lists gitignore-style patterns skipped by node scans.
	IgnoreFileName = ".nodenoteignore"
	// MarkdownExt is the extension of a node's root file.
	MarkdownExt = ".md"
)

// GraphDirs is the canonical layout under a graph root.
type GraphDirs struct {
	Root        string
	MarkerDir   string
	InternalDir string
	NodesDir    string
	EdgesDir    string
	ConfigPath  string
}

// GraphRoot returns basePath/name.
func GraphRoot(basePath, name string) string {
	return filepath.Join(basePath, name)
}

// Graph returns the directories and config path of the graph rooted at root.
func Graph(root string) GraphDirs {
	internal := filepath.Join(root, InternalDirName)
	return GraphDirs{
		Root:        root,
		MarkerDir:   filepath.Join(root, MarkerDirName),
		InternalDir: internal,
		NodesDir:    filepath.Join(internal, NodesDirName),
		EdgesDir:    filepath.Join(internal, EdgesDirName),
		ConfigPath:  filepath.Join(internal, ConfigFileName),
	}
}

// NodeNamespace returns the grouping key shared by a node's markdown root and
// its associated files: the file name with its extension stripped, cut at the
// first dot. "foo.meta.png" and "foo.md" both map to "foo".
func NodeNamespace(path string) string {
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	key, _, _ := strings.Cut(stem, ".")
	return key
}

// Sublabels returns everything after the namespace key in a file name,
// including the extension, e.g. ".meta.png" for "foo.meta.png".
func Sublabels(path string) string {
	base := filepath.Base(path)
	return strings.TrimPrefix(base, NodeNamespace(base))
}

// IsMarkdown reports whether path has the markdown extension.
func IsMarkdown(path string) bool {
	return filepath.Ext(path) == MarkdownExt
}

// NodeDir returns the directory that belongs to the node named stem next to
// its markdown root.
func NodeDir(markdownPath, stem string) string {
	return filepath.Join(filepath.Dir(markdownPath), stem)
}

// SubgraphDir returns the marker directory of the subgraph owned by a node.
func SubgraphDir(markdownPath, stem string) string {
	return filepath.Join(NodeDir(markdownPath, stem), MarkerDirName)
}

// RegistryFile returns dataDir/appName/graph_registry.json.
func RegistryFile(dataDir, appName string) string {
	return filepath.Join(dataDir, appName, RegistryFileName)
}

// AppDataDir returns the per-user application data directory of the
// platform: $XDG_DATA_HOME or ~/.local/share on unix, Application Support on
// macOS and %AppData% on Windows.
func AppDataDir() (string, error) {
	switch runtime.GOOS {
	case "windows", "darwin", "ios":
		// UserConfigDir resolves to %AppData% and ~/Library/Application Support.
		return os.UserConfigDir()
	}
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share"), nil
}
