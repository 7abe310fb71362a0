package paths

import (
	"path/filepath"
	"testing"
)

func TestGraphLayout(t *testing.T) {
	root := GraphRoot("/tmp/ws", "Work")
	if root != filepath.Join("/tmp/ws", "Work") {
		t.Fatalf("root = %q", root)
	}
	d := Graph(root)
	if d.MarkerDir != filepath.Join(root, ".graph") {
		t.Errorf("marker = %q", d.MarkerDir)
	}
	if d.NodesDir != filepath.Join(root, "nodenote", "nodes") {
		t.Errorf("nodes = %q", d.NodesDir)
	}
	if d.EdgesDir != filepath.Join(root, "nodenote", "edges") {
		t.Errorf("edges = %q", d.EdgesDir)
	}
	if d.ConfigPath != filepath.Join(root, "nodenote", "config.edn") {
		t.Errorf("config = %q", d.ConfigPath)
	}
}

func TestNodeNamespace(t *testing.T) {
	cases := map[string]string{
		"foo.md":                "foo",
		"/a/b/foo.meta.md":      "foo",
		"foo.meta.png":          "foo",
		"foobar.png":            "foobar",
		"foo":                   "foo",
		"dir.with.dots/foo.txt": "foo",
		"foo.a.b.c.json":        "foo",
	}
	for in, want := range cases {
		if got := NodeNamespace(in); got != want {
			t.Errorf("NodeNamespace(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSublabels(t *testing.T) {
	if got := Sublabels("/x/foo.meta.png"); got != ".meta.png" {
		t.Errorf("Sublabels = %q", got)
	}
	if got := Sublabels("foo.md"); got != ".md" {
		t.Errorf("Sublabels = %q", got)
	}
}

func TestSubgraphDir(t *testing.T) {
	got := SubgraphDir("/g/nodes/foo.md", "foo")
	if got != filepath.Join("/g/nodes", "foo", ".graph") {
		t.Errorf("SubgraphDir = %q", got)
	}
}

func TestRegistryFile(t *testing.T) {
	got := RegistryFile("/data", "NodeNote")
	if got != filepath.Join("/data", "NodeNote", "graph_registry.json") {
		t.Errorf("RegistryFile = %q", got)
	}
}

func TestAppDataDirXDG(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/xdg")
	dir, err := AppDataDir()
	if err != nil {
		t.Fatalf("AppDataDir: %v", err)
	}
	if dir == "" {
		t.Error("empty data dir")
	}
}
