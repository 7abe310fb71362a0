package node

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/starford/nodenote/internal/apperr"
)

func TestRename(t *testing.T) {
	dir := t.TempDir()
	md := filepath.Join(dir, "foo.md")
	touch(t, md)
	touch(t, filepath.Join(dir, "foo.meta.png"))
	n, _ := FromMarkdown(md)
	n.AddFile(filepath.Join(dir, "foo.meta.png"))
	if err := n.CreateSubgraph(); err != nil {
		t.Fatal(err)
	}

	if err := n.Rename("bar"); err != nil {
		t.Fatalf("Rename: %v", err)
	}
	if n.BaseName != "bar" || n.Stem() != "bar" {
		t.Errorf("base = %q", n.BaseName)
	}
	if n.MarkdownPath != filepath.Join(dir, "bar.md") || !exists(n.MarkdownPath) {
		t.Errorf("markdown = %q", n.MarkdownPath)
	}
	if n.AssociatedFiles[0] != filepath.Join(dir, "bar.meta.png") || !exists(n.AssociatedFiles[0]) {
		t.Errorf("associated = %v", n.AssociatedFiles)
	}
	if n.SubgraphPath != filepath.Join(dir, "bar", ".graph") || !exists(n.SubgraphPath) {
		t.Errorf("subgraph = %q", n.SubgraphPath)
	}
	for _, old := range []string{md, filepath.Join(dir, "foo.meta.png"), filepath.Join(dir, "foo")} {
		if exists(old) {
			t.Errorf("%s still present", old)
		}
	}
}

func TestRenameKeepsPrefix(t *testing.T) {
	dir := t.TempDir()
	md := filepath.Join(dir, "foo.md")
	touch(t, md)
	n, _ := FromMarkdownWithPrefix(md, "sub/")
	if err := n.Rename("baz"); err != nil {
		t.Fatalf("Rename: %v", err)
	}
	if n.BaseName != "sub/baz" {
		t.Errorf("base = %q", n.BaseName)
	}
}

func TestRenameDestinationExists(t *testing.T) {
	dir := t.TempDir()
	md := filepath.Join(dir, "foo.md")
	touch(t, md)
	touch(t, filepath.Join(dir, "bar.md"))
	n, _ := FromMarkdown(md)

	err := n.Rename("bar")
	if !errors.Is(err, apperr.ErrIO) || !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Fatalf("err = %v, want ErrIO+ErrAlreadyExists", err)
	}
	if n.BaseName != "foo" || n.MarkdownPath != md || !exists(md) {
		t.Errorf("node modified on failure: %+v", n)
	}
}

func TestRenameRollsBackOnFailure(t *testing.T) {
	dir := t.TempDir()
	md := filepath.Join(dir, "foo.md")
	touch(t, md)
	n, _ := FromMarkdown(md)
	// Associated file that does not exist on disk makes the second move fail.
	n.AddFile(filepath.Join(dir, "foo.gone.txt"))

	if err := n.Rename("bar"); !errors.Is(err, apperr.ErrIO) {
		t.Fatalf("err = %v, want ErrIO", err)
	}
	if !exists(md) || exists(filepath.Join(dir, "bar.md")) {
		t.Error("first move was not rolled back")
	}
	if n.BaseName != "foo" {
		t.Errorf("base = %q", n.BaseName)
	}
}

func TestRenameInvalidName(t *testing.T) {
	n, _ := FromMarkdown(filepath.Join(t.TempDir(), "foo.md"))
	if err := n.Rename("a.b"); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}
}

func TestRenameFileInsideNodeDir(t *testing.T) {
	dir := t.TempDir()
	md := filepath.Join(dir, "foo.md")
	touch(t, md)
	inner := filepath.Join(dir, "foo", "foo.png")
	touch(t, inner)
	n, _ := FromMarkdown(md)
	n.AddFile(inner)

	if err := n.Rename("bar"); err != nil {
		t.Fatalf("Rename: %v", err)
	}
	want := filepath.Join(dir, "bar", "bar.png")
	if len(n.AssociatedFiles) != 1 || n.AssociatedFiles[0] != want {
		t.Fatalf("associated = %v, want [%s]", n.AssociatedFiles, want)
	}
	for _, f := range n.AssociatedFiles {
		if !exists(f) {
			t.Errorf("%s does not exist after rename", f)
		}
	}
}

func TestRenameDuplicateAssociatedFile(t *testing.T) {
	dir := t.TempDir()
	md := filepath.Join(dir, "foo.md")
	touch(t, md)
	png := filepath.Join(dir, "foo.meta.png")
	touch(t, png)
	n, _ := FromMarkdown(md)
	n.AddFile(png)
	n.AddFile(png)

	if err := n.Rename("bar"); err != nil {
		t.Fatalf("Rename: %v", err)
	}
	want := filepath.Join(dir, "bar.meta.png")
	if len(n.AssociatedFiles) != 2 || n.AssociatedFiles[0] != want || n.AssociatedFiles[1] != want {
		t.Errorf("associated = %v", n.AssociatedFiles)
	}
	if !exists(want) {
		t.Errorf("%s missing", want)
	}
}

func TestUndoReportsFailedRollback(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "b.md"))
	done := []move{
		{from: filepath.Join(dir, "a.md"), to: filepath.Join(dir, "b.md")},
		{from: filepath.Join(dir, "c.md"), to: filepath.Join(dir, "gone.md")},
	}
	err := undo(done)
	if err == nil {
		t.Fatal("expected rollback error")
	}
	if !exists(filepath.Join(dir, "a.md")) {
		t.Error("reversible move was not undone")
	}
}
