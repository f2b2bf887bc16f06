package repository

import (
	"context"
	"strings"
	"sync"

	"TickerPulse/internal/domain/models"
	drepo "TickerPulse/internal/domain/repository"
)

// SnapshotBoard holds the newest snapshot per symbol. Feeds write to it and
// live windows poll it, so a slow window never backs up the feed.
type SnapshotBoard struct {
	mu     sync.RWMutex
	latest map[string]*models.Snapshot
}

func NewSnapshotBoard() *SnapshotBoard {
	return &SnapshotBoard{latest: make(map[string]*models.Snapshot)}
}

// Put records snap unless a newer one for the same symbol is already held.
// Symbols are stored uppercase. It reports whether the board changed.
func (b *SnapshotBoard) Put(snap *models.Snapshot) bool {
	if snap == nil {
		return false
	}
	sym := normalizeSymbol(snap.Symbol)
	if sym == "" {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if cur, ok := b.latest[sym]; ok && snap.Timestamp.Before(cur.Timestamp) {
		return false
	}
	cp := *snap
	cp.Symbol = sym
	b.latest[sym] = &cp
	return true
}

// Latest returns a copy of the newest snapshot, or nil if none arrived yet.
func (b *SnapshotBoard) Latest(ctx context.Context, symbol string) (*models.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	cur, ok := b.latest[normalizeSymbol(symbol)]
	if !ok {
		return nil, nil
	}
	cp := *cur
	return &cp, nil
}

// Symbols returns the number of symbols seen.
func (b *SnapshotBoard) Symbols() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.latest)
}

func normalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

var _ drepo.SnapshotSource = (*SnapshotBoard)(nil)
