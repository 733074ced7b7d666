package storage

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tallyform/tallyform/internal/shared"
)

func testPeriod() shared.Period {
	return shared.Period{Year: 2025, Month: time.June}
}

func TestEnsure_CreatesFullChain(t *testing.T) {
	store := NewMemory("submissions")
	p := NewProvisioner(store, slog.New(slog.DiscardHandler))

	c, err := p.Ensure(context.Background(), testPeriod(), "a@x.com")
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if c.Path != "submissions/2025/06/a" {
		t.Fatalf("unexpected container path %s", c.Path)
	}
}

func TestEnsure_Idempotent(t *testing.T) {
	store := NewMemory("submissions")
	p := NewProvisioner(store, slog.New(slog.DiscardHandler))
	ctx := context.Background()

	first, err := p.Ensure(ctx, testPeriod(), "a@x.com")
	if err != nil {
		t.Fatalf("first Ensure: %v", err)
	}
	second, err := p.Ensure(ctx, testPeriod(), "a@x.com")
	if err != nil {
		t.Fatalf("second Ensure: %v", err)
	}
	if first != second {
		t.Fatalf("containers differ: %+v vs %+v", first, second)
	}

	months, err := store.Children(ctx, Container{Path: "submissions/2025", Name: "2025"})
	if err != nil {
		t.Fatalf("Children: %v", err)
	}
	if len(months) != 1 {
		t.Fatalf("expected one month container, got %d", len(months))
	}
}

func TestEnsure_ConcurrentCallsCreateNoDuplicates(t *testing.T) {
	store := NewMemory("submissions")
	p := NewProvisioner(store, slog.New(slog.DiscardHandler))
	ctx := context.Background()

	const writers = 16
	results := make([]Container, writers)
	errs := make([]error, writers)
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = p.Ensure(ctx, testPeriod(), "a@x.com")
		}(i)
	}
	wg.Wait()

	for i := 0; i < writers; i++ {
		if errs[i] != nil {
			t.Fatalf("writer %d: %v", i, errs[i])
		}
		if results[i] != results[0] {
			t.Fatalf("writer %d got a different container: %+v", i, results[i])
		}
	}
	leaves, err := store.Children(ctx, Container{Path: "submissions/2025/06", Name: "06"})
	if err != nil {
		t.Fatalf("Children: %v", err)
	}
	if len(leaves) != 1 {
		t.Fatalf("expected one identity container, got %d", len(leaves))
	}
}

func TestEnsure_FilesystemStore(t *testing.T) {
	store, err := NewFS(t.TempDir() + "/submissions")
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	p := NewProvisioner(store, slog.New(slog.DiscardHandler))
	ctx := context.Background()

	first, err := p.Ensure(ctx, testPeriod(), "b@x.com")
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	second, err := p.Ensure(ctx, testPeriod(), "b@x.com")
	if err != nil {
		t.Fatalf("repeat Ensure: %v", err)
	}
	if first != second {
		t.Fatalf("containers differ: %+v vs %+v", first, second)
	}
}

func TestSanitizeSegment(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"a@x.com", "a"},
		{"First.Last@example.com", "first.last"},
		{"weird/../seg@x.com", "weird..seg"},
		{"", "unknown"},
		{"@x.com", "unknown"},
		{"...@x.com", "unknown"},
		{"user+tag@x.com", "usertag"},
		{"no-at-sign", "no-at-sign"},
	}
	for _, tc := range cases {
		if got := SanitizeSegment(tc.in); got != tc.want {
			t.Fatalf("SanitizeSegment(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestMemoryStorePut(t *testing.T) {
	store := NewMemory("submissions")
	p := NewProvisioner(store, slog.New(slog.DiscardHandler))
	ctx := context.Background()

	c, err := p.Ensure(ctx, testPeriod(), "a@x.com")
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	ref, err := store.Put(ctx, c, "receipt.pdf", strings.NewReader("hello"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if ref != "submissions/2025/06/a/receipt.pdf" {
		t.Fatalf("unexpected ref %s", ref)
	}
	data, ok := store.Blob(c.Path, "receipt.pdf")
	if !ok || string(data) != "hello" {
		t.Fatalf("blob round trip failed: ok=%v data=%q", ok, data)
	}
}
