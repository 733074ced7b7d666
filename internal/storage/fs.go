package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/tallyform/tallyform/internal/shared"
)

// FSStore keeps containers as directories under a base path.
type FSStore struct {
	base string
}

// NewFS constructs a filesystem Store. The base directory is created if
// missing so the root container always exists.
func NewFS(base string) (*FSStore, error) {
	if base == "" {
		return nil, fmt.Errorf("%w: storage root required", shared.ErrConfiguration)
	}
	if err := os.MkdirAll(base, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create storage root: %v", shared.ErrProvisioning, err)
	}
	return &FSStore{base: base}, nil
}

func (s *FSStore) Root() Container {
	return Container{Path: filepath.Base(s.base), Name: filepath.Base(s.base)}
}

// abs maps a container path (root/...) onto the filesystem.
func (s *FSStore) abs(path string) string {
	root := filepath.Base(s.base)
	if path == root {
		return s.base
	}
	return filepath.Join(s.base, filepath.FromSlash(path[len(root)+1:]))
}

func (s *FSStore) Child(ctx context.Context, parent Container, name string) (Container, bool, error) {
	info, err := os.Stat(filepath.Join(s.abs(parent.Path), name))
	if errors.Is(err, fs.ErrNotExist) {
		return Container{}, false, nil
	}
	if err != nil {
		return Container{}, false, fmt.Errorf("%w: stat %s: %v", shared.ErrProvisioning, name, err)
	}
	if !info.IsDir() {
		return Container{}, false, nil
	}
	return Container{Path: childPath(parent, name), Name: name}, true, nil
}

func (s *FSStore) CreateChild(ctx context.Context, parent Container, name string) (Container, error) {
	// Mkdir, not MkdirAll: each level is created explicitly so a creation
	// race surfaces as ErrExist and the caller can reconcile.
	err := os.Mkdir(filepath.Join(s.abs(parent.Path), name), 0o755)
	if errors.Is(err, fs.ErrExist) {
		return Container{}, fmt.Errorf("%w: container %s/%s", shared.ErrDuplicate, parent.Path, name)
	}
	if err != nil {
		return Container{}, fmt.Errorf("%w: mkdir %s: %v", shared.ErrProvisioning, name, err)
	}
	return Container{Path: childPath(parent, name), Name: name}, nil
}

func (s *FSStore) Children(ctx context.Context, parent Container) ([]Container, error) {
	entries, err := os.ReadDir(s.abs(parent.Path))
	if err != nil {
		return nil, fmt.Errorf("%w: list %s: %v", shared.ErrProvisioning, parent.Path, err)
	}
	var out []Container
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		out = append(out, Container{Path: childPath(parent, e.Name()), Name: e.Name()})
	}
	return out, nil
}

func (s *FSStore) Put(ctx context.Context, c Container, name string, data io.Reader) (string, error) {
	target := filepath.Join(s.abs(c.Path), name)
	f, err := os.Create(target)
	if err != nil {
		return "", fmt.Errorf("write blob %s: %w", name, err)
	}
	if _, err := io.Copy(f, data); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("write blob %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("write blob %s: %w", name, err)
	}
	return c.Path + "/" + name, nil
}
