// Package watch reports node-level changes in a graph's nodes directory.
package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"

	"github.com/starford/nodenote/internal/node"
	"github.com/starford/nodenote/internal/paths"
)

// Event kinds.
const (
	Created = "created"
	Updated = "updated"
	Deleted = "deleted"
)

// Event describes a change to one node.
type Event struct {
	Kind string
	Node string // BaseName, including the directory prefix
	Path string // file that triggered the event
}

// Callback receives events in the order they are detected.
type Callback func(Event)

// Options configures a watcher.
type Options struct {
	// Debounce delays the rescan that follows renames and new directories.
	Debounce time.Duration
	// Patterns are extra gitignore-style patterns, as read from .nodenoteignore.
	Patterns []gitignore.Pattern
	Logger   *slog.Logger
}

type watcher struct {
	root    string
	opts    Options
	matcher node.Matcher
	known   map[string]struct{}
	cb      Callback
	logger  *slog.Logger
}

// Run watches root (a nodes directory) until ctx is cancelled, calling cb for
// every node created, updated or deleted. Markdown roots create and delete
// nodes; other files update the node whose namespace they share. Renames and
// new directories trigger a debounced rescan that reconciles the node set.
func Run(ctx context.Context, root string, opts Options, cb Callback) error {
	if opts.Debounce <= 0 {
		opts.Debounce = 200 * time.Millisecond
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	w := &watcher{
		root:    root,
		opts:    opts,
		matcher: node.NewMatcher(opts.Patterns),
		known:   make(map[string]struct{}),
		cb:      cb,
		logger:  logger,
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	if err := w.addDirs(fw, root); err != nil {
		return err
	}
	nodes, err := node.ScanTree(root, opts.Patterns)
	if err != nil {
		return err
	}
	for _, n := range nodes {
		w.known[n.BaseName] = struct{}{}
	}

	logger.Info("watcher: started", slog.String("root", root), slog.Int("nodes", len(w.known)))

	var rescanTimer *time.Timer
	var rescanCh <-chan time.Time
	scheduleRescan := func() {
		if rescanTimer == nil {
			rescanTimer = time.NewTimer(opts.Debounce)
			rescanCh = rescanTimer.C
		} else {
			rescanTimer.Reset(opts.Debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if rescanTimer != nil {
				rescanTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-rescanCh:
			w.reconcile()

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			rel, err := filepath.Rel(root, ev.Name)
			if err != nil {
				continue
			}

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if w.matcher.Skip(rel, true) {
						continue
					}
					if addErr := w.addDirs(fw, ev.Name); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", rel), slog.String("error", addErr.Error()))
					}
					scheduleRescan()
					continue
				}
			}
			if w.matcher.Skip(rel, false) {
				continue
			}

			switch {
			case ev.Op&fsnotify.Rename != 0:
				// The new name arrives as a separate Create when it stays
				// inside a watched directory; the rescan settles the rest.
				if node.IsRoot(ev.Name) {
					w.forget(rel)
				}
				scheduleRescan()

			case ev.Op&fsnotify.Remove != 0:
				if node.IsRoot(ev.Name) {
					w.forget(rel)
				} else {
					w.touch(rel)
				}

			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				if node.IsRoot(ev.Name) {
					key := nodeKey(rel)
					kind := Updated
					if _, ok := w.known[key]; !ok {
						kind = Created
						w.known[key] = struct{}{}
					}
					w.emit(kind, key, rel)
				} else {
					w.touch(rel)
				}
			}

		case watchErr, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// touch reports an associated-file change as an update of its node.
func (w *watcher) touch(rel string) {
	key := nodeKey(rel)
	if _, ok := w.known[key]; ok {
		w.emit(Updated, key, rel)
	}
}

func (w *watcher) forget(rel string) {
	key := nodeKey(rel)
	if _, ok := w.known[key]; !ok {
		return
	}
	delete(w.known, key)
	w.emit(Deleted, key, rel)
}

// reconcile rescans the tree and reports nodes that appeared or vanished
// since the last known state.
func (w *watcher) reconcile() {
	nodes, err := node.ScanTree(w.root, w.opts.Patterns)
	if err != nil {
		w.logger.Warn("watcher: rescan failed", slog.String("error", err.Error()))
		return
	}
	current := make(map[string]string, len(nodes))
	for _, n := range nodes {
		rel, _ := filepath.Rel(w.root, n.MarkdownPath)
		current[n.BaseName] = rel
	}
	for key := range w.known {
		if _, ok := current[key]; !ok {
			delete(w.known, key)
			w.emit(Deleted, key, "")
		}
	}
	for key, rel := range current {
		if _, ok := w.known[key]; !ok {
			w.known[key] = struct{}{}
			w.emit(Created, key, rel)
		}
	}
}

func (w *watcher) emit(kind, key, rel string) {
	w.logger.Debug("watcher: node event",
		slog.String("kind", kind), slog.String("node", key), slog.String("path", rel))
	if w.cb != nil {
		w.cb(Event{Kind: kind, Node: key, Path: rel})
	}
}

// addDirs adds root and its subdirectories to the watcher, skipping
// ignored directories such as subgraph markers.
func (w *watcher) addDirs(fw *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(w.root, p)
		if relErr == nil && w.matcher.Skip(rel, true) {
			return filepath.SkipDir
		}
		return fw.Add(p)
	})
}

// nodeKey maps a path relative to the nodes directory to its node BaseName.
func nodeKey(rel string) string {
	return node.PrefixFor(filepath.Dir(rel)) + paths.NodeNamespace(rel)
}
