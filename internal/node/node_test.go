package node

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/nodenote/internal/apperr"
)

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func TestFromMarkdown(t *testing.T) {
	n, err := FromMarkdown("/g/nodes/foo.meta.md")
	if err != nil {
		t.Fatalf("FromMarkdown: %v", err)
	}
	if n.BaseName != "foo" || n.Stem() != "foo" {
		t.Errorf("base = %q stem = %q", n.BaseName, n.Stem())
	}
	if n.HasSubgraph() || n.SubgraphPath != "" {
		t.Error("new node should have no subgraph")
	}
}

func TestFromMarkdownRejectsOtherExtensions(t *testing.T) {
	for _, p := range []string{"foo.txt", "foo", "foo.md.bak", "foo.MD"} {
		if _, err := FromMarkdown(p); !errors.Is(err, apperr.ErrInvalidInput) {
			t.Errorf("FromMarkdown(%q) err = %v, want ErrInvalidInput", p, err)
		}
	}
}

func TestFromMarkdownWithPrefix(t *testing.T) {
	n, err := FromMarkdownWithPrefix("/g/a/foo.md", "a/")
	if err != nil {
		t.Fatal(err)
	}
	if n.BaseName != "a/foo" || n.Prefix() != "a/" || n.Stem() != "foo" {
		t.Errorf("node = %+v", n)
	}
}

func TestAddFile(t *testing.T) {
	n, _ := FromMarkdown("/g/foo.md")

	if !n.AddFile("/g/foo.meta.png") {
		t.Error("foo.meta.png should be associated")
	}
	if n.AddFile("/g/foobar.png") {
		t.Error("foobar.png must not be associated")
	}
	if n.AddFile("/g/foo.md") {
		t.Error("the markdown root must not be associated")
	}
	if len(n.AssociatedFiles) != 1 || n.AssociatedFiles[0] != "/g/foo.meta.png" {
		t.Errorf("associated = %v", n.AssociatedFiles)
	}
}

func TestAddFileNotIdempotent(t *testing.T) {
	n, _ := FromMarkdown("/g/foo.md")
	n.AddFile("/g/foo.png")
	n.AddFile("/g/foo.png")
	if len(n.AssociatedFiles) != 2 {
		t.Errorf("len = %d, want 2", len(n.AssociatedFiles))
	}
	if !n.HasFile("/g/foo.png") {
		t.Error("HasFile should report the file")
	}
}

func TestSubgraphLifecycle(t *testing.T) {
	dir := t.TempDir()
	md := filepath.Join(dir, "foo.md")
	touch(t, md)
	n, _ := FromMarkdown(md)

	if err := n.CreateSubgraph(); err != nil {
		t.Fatalf("CreateSubgraph: %v", err)
	}
	want := filepath.Join(dir, "foo", ".graph")
	if n.SubgraphPath != want || !n.HasSubgraph() {
		t.Fatalf("subgraph = %q has=%v", n.SubgraphPath, n.HasSubgraph())
	}
	if !exists(want) {
		t.Fatal("marker dir not created")
	}

	if err := n.DeleteSubgraph(false); err != nil {
		t.Fatalf("DeleteSubgraph empty: %v", err)
	}
	if n.SubgraphPath != "" || n.HasSubgraph() {
		t.Error("subgraph should be cleared")
	}
	if exists(want) {
		t.Error("marker dir still present")
	}
}

func TestDeleteSubgraphNotEmpty(t *testing.T) {
	dir := t.TempDir()
	md := filepath.Join(dir, "foo.md")
	touch(t, md)
	n, _ := FromMarkdown(md)
	_ = n.CreateSubgraph()
	touch(t, filepath.Join(n.SubgraphPath, "inner.md"))

	err := n.DeleteSubgraph(false)
	if !errors.Is(err, apperr.ErrNotEmpty) {
		t.Fatalf("err = %v, want ErrNotEmpty", err)
	}
	if !n.HasSubgraph() || n.SubgraphPath == "" {
		t.Error("failed delete must leave the node untouched")
	}

	if err := n.DeleteSubgraph(true); err != nil {
		t.Fatalf("forced DeleteSubgraph: %v", err)
	}
	if n.HasSubgraph() {
		t.Error("subgraph should be cleared")
	}
}

func TestDeleteSubgraphMissingIsNoop(t *testing.T) {
	n, _ := FromMarkdown(filepath.Join(t.TempDir(), "foo.md"))
	if err := n.DeleteSubgraph(false); err != nil {
		t.Fatalf("DeleteSubgraph: %v", err)
	}
}

func TestValidateName(t *testing.T) {
	for _, ok := range []string{"foo", "Foo Bar", "ideas-2024"} {
		if err := ValidateName(ok); err != nil {
			t.Errorf("ValidateName(%q): %v", ok, err)
		}
	}
	for _, bad := range []string{"", "a.b", "a/b", `a\b`, ".", ".."} {
		if err := ValidateName(bad); !errors.Is(err, apperr.ErrInvalidInput) {
			t.Errorf("ValidateName(%q) err = %v, want ErrInvalidInput", bad, err)
		}
	}
}

func TestCreate(t *testing.T) {
	dir := t.TempDir()
	n, err := Create(dir, "idea")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if n.BaseName != "idea" || n.MarkdownPath != filepath.Join(dir, "idea.md") {
		t.Errorf("node = %+v", n)
	}
	s, err := n.Summary()
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if s.Title != "idea" {
		t.Errorf("title = %q", s.Title)
	}
	if _, err := Create(dir, "idea"); !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Errorf("second Create err = %v, want ErrAlreadyExists", err)
	}
}

func TestSummary(t *testing.T) {
	dir := t.TempDir()
	md := filepath.Join(dir, "foo.md")
	if err := os.WriteFile(md, []byte("---\ntags: [a]\n---\nlinks [[bar]]\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	n, _ := FromMarkdown(md)
	n.AddFile(filepath.Join(dir, "foo.png"))
	s, err := n.Summary()
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if s.Title != "foo" {
		t.Errorf("title fallback = %q", s.Title)
	}
	if len(s.Tags) != 1 || len(s.Links) != 1 || len(s.AssociatedFiles) != 1 {
		t.Errorf("summary = %+v", s)
	}
	if s.Checksum == "" {
		t.Error("empty checksum")
	}
}

func TestSummaryMissingMarkdown(t *testing.T) {
	n, _ := FromMarkdown(filepath.Join(t.TempDir(), "gone.md"))
	if _, err := n.Summary(); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}
