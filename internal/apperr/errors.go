// Package apperr defines the error kinds shared by the registry, workspace and
// node packages, and the adapter that renders them for CLI and tool callers.
package apperr

import "errors"

var (
	// ErrNotFound reports a missing registry file, registry entry or expected directory.
	ErrNotFound = errors.New("not found")
	// ErrIO wraps a failed create, write, rename or delete.
	ErrIO = errors.New("io error")
	// ErrNotEmpty reports a subgraph that still has content.
	ErrNotEmpty = errors.New("not empty")
	// ErrInvalidInput reports caller-supplied values that cannot be used.
	ErrInvalidInput = errors.New("invalid input")
	// ErrParse reports a registry document that is not valid JSON.
	ErrParse = errors.New("parse error")
	// ErrAlreadyExists reports a destination that is already taken.
	ErrAlreadyExists = errors.New("already exists")
)

var kinds = []struct {
	err  error
	name string
}{
	{ErrNotFound, "not_found"},
	{ErrNotEmpty, "not_empty"},
	{ErrInvalidInput, "invalid_input"},
	{ErrParse, "parse_error"},
	{ErrAlreadyExists, "already_exists"},
	{ErrIO, "io_error"},
}

// Kind returns the short name of the first known kind err wraps, or "internal".
// ErrAlreadyExists is checked before ErrIO because rename failures carry both.
func Kind(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.name
		}
	}
	return "internal"
}

// Message renders err as the human-readable string handed to CLI and tool
// callers. The component-tagged chain is kept as is.
func Message(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
