package storage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/tallyform/tallyform/internal/shared"
)

// fallbackSegment is used when sanitization leaves nothing of the identity.
const fallbackSegment = "unknown"

// Provisioner locates-or-creates the container chain
// root / year / zero-padded month / sanitized identity local-part.
type Provisioner struct {
	store  Store
	logger *slog.Logger
}

// NewProvisioner builds a Provisioner over the given store.
func NewProvisioner(store Store, logger *slog.Logger) *Provisioner {
	return &Provisioner{store: store, logger: logger}
}

// Ensure walks the chain, creating missing segments. The operation is
// idempotent: repeated calls return an equivalent container. A creation
// race (another writer made the segment first) is reconciled by looking
// the child up again and keeping the existing one.
func (p *Provisioner) Ensure(ctx context.Context, period shared.Period, identity string) (Container, error) {
	segments := append(period.Segments(), SanitizeSegment(identity))
	cur := p.store.Root()
	for _, seg := range segments {
		child, found, err := p.store.Child(ctx, cur, seg)
		if err != nil {
			return Container{}, err
		}
		if found {
			cur = child
			continue
		}
		created, err := p.store.CreateChild(ctx, cur, seg)
		if err != nil {
			child, found, lookupErr := p.store.Child(ctx, cur, seg)
			if lookupErr == nil && found {
				p.logger.Debug("container creation race reconciled",
					slog.String("parent", cur.Path), slog.String("segment", seg))
				cur = child
				continue
			}
			return Container{}, fmt.Errorf("%w: create %s under %s: %v", shared.ErrProvisioning, seg, cur.Path, err)
		}
		cur = created
	}
	return cur, nil
}

// SanitizeSegment turns a submitter identity into a path-safe container
// name: NFKC-normalized, lowercased local part with everything outside
// [a-z0-9._-] stripped. Empty results fall back to a fixed placeholder.
func SanitizeSegment(identity string) string {
	local := identity
	if at := strings.IndexByte(identity, '@'); at >= 0 {
		local = identity[:at]
	}
	local = strings.ToLower(norm.NFKC.String(local))
	var b strings.Builder
	for _, r := range local {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			b.WriteRune(r)
		}
	}
	out := strings.Trim(b.String(), ".")
	if out == "" {
		return fallbackSegment
	}
	return out
}
