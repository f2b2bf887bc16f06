package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"TickerPulse/internal/domain/models"
	drepo "TickerPulse/internal/domain/repository"
	"TickerPulse/pkg/cache"
)

const (
	latestReportKey = "report:latest"
	framePrefix     = "frame"
)

// CacheLatestStore keeps the newest report and per-symbol frames in a cache
// so HTTP readers never touch the live windows.
type CacheLatestStore struct {
	cache cache.Service
	ttl   time.Duration
}

func NewCacheLatestStore(c cache.Service, ttl time.Duration) *CacheLatestStore {
	return &CacheLatestStore{cache: c, ttl: ttl}
}

func (s *CacheLatestStore) SaveReport(ctx context.Context, r *models.Report) error {
	if err := s.cache.Set(ctx, latestReportKey, r, s.ttl); err != nil {
		return fmt.Errorf("cache report: %w", err)
	}
	return nil
}

// LatestReport returns nil, nil when no run has completed yet.
func (s *CacheLatestStore) LatestReport(ctx context.Context) (*models.Report, error) {
	var r models.Report
	if err := s.cache.Get(ctx, latestReportKey, &r); err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, nil
		}
		return nil, fmt.Errorf("load report: %w", err)
	}
	return &r, nil
}

func (s *CacheLatestStore) SaveFrame(ctx context.Context, f *models.Frame) error {
	if err := s.cache.Set(ctx, cache.Key(framePrefix, f.Symbol), f, s.ttl); err != nil {
		return fmt.Errorf("cache frame %s: %w", f.Symbol, err)
	}
	return nil
}

// Frame returns nil, nil when the symbol has no frame yet.
func (s *CacheLatestStore) Frame(ctx context.Context, symbol string) (*models.Frame, error) {
	var f models.Frame
	if err := s.cache.Get(ctx, cache.Key(framePrefix, symbol), &f); err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, nil
		}
		return nil, fmt.Errorf("load frame %s: %w", symbol, err)
	}
	return &f, nil
}

// FrameSymbols lists symbols with a cached frame.
func (s *CacheLatestStore) FrameSymbols(ctx context.Context) ([]string, error) {
	keys, err := s.cache.Keys(ctx, framePrefix+":")
	if err != nil {
		return nil, fmt.Errorf("list frames: %w", err)
	}
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, strings.TrimPrefix(k, framePrefix+":"))
	}
	sort.Strings(out)
	return out, nil
}

var _ drepo.LatestStore = (*CacheLatestStore)(nil)
