// Package registry keeps the durable index of known graph workspaces: one JSON
// document in the application data directory, rewritten whole on every change.
package registry

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/starford/nodenote/internal/apperr"
	"github.com/starford/nodenote/internal/paths"
)

// Entry is one registered graph. Identity is the (Name, Path) pair.
type Entry struct {
	Name       string    `json:"name"`
	Path       string    `json:"path"` // parent directory of the graph root
	CreatedAt  time.Time `json:"created_at"`
	LastOpened time.Time `json:"last_opened"`
	// Validated is nil until the first validation pass.
	Validated *bool `json:"validated,omitempty"`
}

// Root returns the graph root directory, Path/Name.
func (e Entry) Root() string {
	return paths.GraphRoot(e.Path, e.Name)
}

// Matches reports whether e has the given identity.
func (e Entry) Matches(basePath, name string) bool {
	return e.Path == basePath && e.Name == name
}

// IsValidated reports whether the last validation found the graph on disk.
func (e Entry) IsValidated() bool {
	return e.Validated != nil && *e.Validated
}

// Document is the on-disk registry: entries in insertion order.
type Document struct {
	Graphs []Entry `json:"graphs"`
}

// Decode parses a registry document.
func Decode(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("registry: decode: %w: %w", apperr.ErrParse, err)
	}
	if doc.Graphs == nil {
		doc.Graphs = []Entry{}
	}
	return &doc, nil
}

// Encode renders the document as indented JSON with a trailing newline.
func (d *Document) Encode() ([]byte, error) {
	out := Document{Graphs: d.Graphs}
	if out.Graphs == nil {
		out.Graphs = []Entry{}
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("registry: encode: %w", err)
	}
	return append(data, '\n'), nil
}

func (d *Document) indexOf(basePath, name string) int {
	for i, e := range d.Graphs {
		if e.Matches(basePath, name) {
			return i
		}
	}
	return -1
}
