// Package storage provides the hierarchical container tree that holds
// uploaded attachments and generated per-submitter documents. Containers
// form a fixed depth chain: root / year / month / identity.
package storage

import (
	"context"
	"io"
)

// Container is one node in the hierarchy. Path is the slash-joined path
// from the store root and is the container's identity: equivalent
// containers compare equal by Path.
type Container struct {
	Path string
	Name string
}

// Store is the backend for the container tree. Child lookup is by exact
// name; CreateChild fails with a shared.ErrDuplicate-wrapped error when
// the name already exists, which callers use to reconcile creation races.
type Store interface {
	// Root returns the configured root container.
	Root() Container
	// Child looks up an existing child by exact name.
	Child(ctx context.Context, parent Container, name string) (Container, bool, error)
	// CreateChild creates a new child container under parent.
	CreateChild(ctx context.Context, parent Container, name string) (Container, error)
	// Children lists direct child containers of parent.
	Children(ctx context.Context, parent Container) ([]Container, error)
	// Put writes an opaque blob into the container and returns its reference.
	Put(ctx context.Context, c Container, name string, data io.Reader) (string, error)
}

func childPath(parent Container, name string) string {
	if parent.Path == "" {
		return name
	}
	return parent.Path + "/" + name
}
