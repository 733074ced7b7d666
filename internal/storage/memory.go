package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/tallyform/tallyform/internal/shared"
)

type memNode struct {
	children map[string]*memNode
	blobs    map[string][]byte
}

func newMemNode() *memNode {
	return &memNode{children: map[string]*memNode{}, blobs: map[string][]byte{}}
}

// MemoryStore is an in-memory Store for tests.
type MemoryStore struct {
	mu       sync.Mutex
	rootName string
	root     *memNode
}

// NewMemory returns an in-memory Store rooted at rootName.
func NewMemory(rootName string) *MemoryStore {
	return &MemoryStore{rootName: rootName, root: newMemNode()}
}

func (s *MemoryStore) Root() Container {
	return Container{Path: s.rootName, Name: s.rootName}
}

// relative strips the root segment from a container path.
func (s *MemoryStore) node(path string) (*memNode, bool) {
	if path == s.rootName {
		return s.root, true
	}
	prefix := s.rootName + "/"
	if len(path) <= len(prefix) || path[:len(prefix)] != prefix {
		return nil, false
	}
	cur := s.root
	for _, seg := range strings.Split(path[len(prefix):], "/") {
		next, ok := cur.children[seg]
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

func (s *MemoryStore) Child(ctx context.Context, parent Container, name string) (Container, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	node, ok := s.node(parent.Path)
	if !ok {
		return Container{}, false, fmt.Errorf("%w: container %s", shared.ErrNotFound, parent.Path)
	}
	if _, ok := node.children[name]; !ok {
		return Container{}, false, nil
	}
	return Container{Path: childPath(parent, name), Name: name}, true, nil
}

func (s *MemoryStore) CreateChild(ctx context.Context, parent Container, name string) (Container, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	node, ok := s.node(parent.Path)
	if !ok {
		return Container{}, fmt.Errorf("%w: container %s", shared.ErrNotFound, parent.Path)
	}
	if _, exists := node.children[name]; exists {
		return Container{}, fmt.Errorf("%w: container %s/%s", shared.ErrDuplicate, parent.Path, name)
	}
	node.children[name] = newMemNode()
	return Container{Path: childPath(parent, name), Name: name}, nil
}

func (s *MemoryStore) Children(ctx context.Context, parent Container) ([]Container, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	node, ok := s.node(parent.Path)
	if !ok {
		return nil, fmt.Errorf("%w: container %s", shared.ErrNotFound, parent.Path)
	}
	names := make([]string, 0, len(node.children))
	for name := range node.children {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]Container, 0, len(names))
	for _, name := range names {
		out = append(out, Container{Path: childPath(parent, name), Name: name})
	}
	return out, nil
}

func (s *MemoryStore) Put(ctx context.Context, c Container, name string, data io.Reader) (string, error) {
	buf := &bytes.Buffer{}
	if _, err := io.Copy(buf, data); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	node, ok := s.node(c.Path)
	if !ok {
		return "", fmt.Errorf("%w: container %s", shared.ErrNotFound, c.Path)
	}
	node.blobs[name] = buf.Bytes()
	return c.Path + "/" + name, nil
}

// Blob returns a stored blob, for tests.
func (s *MemoryStore) Blob(path, name string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	node, ok := s.node(path)
	if !ok {
		return nil, false
	}
	data, ok := node.blobs[name]
	return data, ok
}
