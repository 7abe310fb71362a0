package node

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/nodenote/internal/apperr"
	"github.com/starford/nodenote/internal/paths"
)

type move struct{ from, to string }

// Rename moves the node's markdown root, its associated files and its own
// directory from the current name to newName. Every destination must be free
// before anything moves. If a move fails, the moves already made are undone
// and the Node is left unchanged.
func (n *Node) Rename(newName string) error {
	if err := ValidateName(newName); err != nil {
		return err
	}
	if newName == n.stem {
		return nil
	}

	oldDir := n.Dir()
	newDir := paths.NodeDir(n.MarkdownPath, newName)

	// Files are renamed in place first; the node directory moves last, so
	// files inside it end up below newDir.
	moves := []move{{n.MarkdownPath, renamed(n.MarkdownPath, newName)}}
	final := map[string]string{}
	for _, f := range n.AssociatedFiles {
		if _, ok := final[f]; ok {
			continue
		}
		to := renamed(f, newName)
		moves = append(moves, move{f, to})
		final[f] = relocate(to, oldDir, newDir)
	}
	if info, err := os.Stat(oldDir); err == nil && info.IsDir() {
		moves = append(moves, move{oldDir, newDir})
	}

	for _, m := range moves {
		if _, err := os.Lstat(m.to); err == nil {
			return fmt.Errorf("node: rename %s: %s: %w: %w", n.stem, m.to, apperr.ErrIO, apperr.ErrAlreadyExists)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("node: rename %s: stat %s: %w: %w", n.stem, m.to, apperr.ErrIO, err)
		}
	}

	for i, m := range moves {
		if err := os.Rename(m.from, m.to); err != nil {
			err = fmt.Errorf("node: rename %s to %s: %w: %w", n.stem, newName, apperr.ErrIO, err)
			return errors.Join(err, undo(moves[:i]))
		}
	}

	n.MarkdownPath = moves[0].to
	files := make([]string, len(n.AssociatedFiles))
	for i, f := range n.AssociatedFiles {
		files[i] = final[f]
	}
	n.AssociatedFiles = files
	if n.hasSubgraph {
		n.SubgraphPath = filepath.Join(newDir, paths.MarkerDirName)
	}
	n.stem = newName
	n.BaseName = n.prefix + newName
	return nil
}

// renamed swaps the namespace of a file name, keeping directory and sublabels.
func renamed(path, newName string) string {
	return filepath.Join(filepath.Dir(path), newName+paths.Sublabels(path))
}

// relocate rebases path from oldDir to newDir when it lies inside oldDir.
func relocate(path, oldDir, newDir string) string {
	rel, err := filepath.Rel(oldDir, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return path
	}
	return filepath.Join(newDir, rel)
}

// undo reverses done in reverse order and reports moves it could not revert.
func undo(done []move) error {
	var errs []error
	for i := len(done) - 1; i >= 0; i-- {
		if err := os.Rename(done[i].to, done[i].from); err != nil {
			errs = append(errs, fmt.Errorf("node: rollback %s: %w", done[i].from, err))
		}
	}
	return errors.Join(errs...)
}
