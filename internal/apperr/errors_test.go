package apperr

import (
	"fmt"
	"io/fs"
	"testing"
)

func TestKind(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{fmt.Errorf("registry: read: %w", ErrNotFound), "not_found"},
		{fmt.Errorf("node: rename: %w: %w", ErrIO, ErrAlreadyExists), "already_exists"},
		{fmt.Errorf("node: mkdir: %w: %w", ErrIO, fs.ErrPermission), "io_error"},
		{fmt.Errorf("node: %w", ErrInvalidInput), "invalid_input"},
		{fmt.Errorf("boom"), "internal"},
	}
	for _, c := range cases {
		if got := Kind(c.err); got != c.want {
			t.Errorf("Kind(%v) = %q, want %q", c.err, got, c.want)
		}
	}
}

func TestMessageKeepsChain(t *testing.T) {
	err := fmt.Errorf("workspace: create nodes dir: %w: %w", ErrIO, fs.ErrPermission)
	want := "workspace: create nodes dir: io error: permission denied"
	if got := Message(err); got != want {
		t.Errorf("Message = %q, want %q", got, want)
	}
}
