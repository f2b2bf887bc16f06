package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"TickerPulse/internal/domain/models"
	drepo "TickerPulse/internal/domain/repository"
	"TickerPulse/internal/services/classifier"
	"TickerPulse/pkg/logger"
)

// IgnoreTarget is the classifier side of the ignore list.
type IgnoreTarget interface {
	Ignore() *classifier.IgnoreSet
	SetIgnore(s *classifier.IgnoreSet)
}

// IgnoreListUseCase loads, extends and persists the ignore list and swaps
// it into the classifier.
type IgnoreListUseCase struct {
	store  drepo.IgnoreStore
	target IgnoreTarget
	log    *logger.Logger

	mu sync.Mutex
}

func NewIgnoreListUseCase(store drepo.IgnoreStore, target IgnoreTarget, log *logger.Logger) *IgnoreListUseCase {
	if log == nil {
		log = logger.Nop()
	}
	return &IgnoreListUseCase{store: store, target: target, log: log}
}

// Load installs the stored list, falling back to the built-in defaults when
// nothing is stored yet.
func (u *IgnoreListUseCase) Load(ctx context.Context) error {
	items, err := u.store.Load(ctx)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		items = classifier.DefaultIgnored
	}
	u.target.SetIgnore(classifier.NewIgnoreSet(items...))
	u.log.Info("ignore list loaded", logger.Int("entries", len(items)))
	return nil
}

// List returns the active entries, sorted.
func (u *IgnoreListUseCase) List() []string {
	return u.target.Ignore().Items()
}

// Add merges items into the active list, persists it and publishes the new
// set. The classifier only sees the new set once it is saved.
func (u *IgnoreListUseCase) Add(ctx context.Context, items ...string) ([]string, error) {
	clean := make([]string, 0, len(items))
	for _, it := range items {
		it = strings.ToUpper(strings.TrimSpace(it))
		if it == "" {
			return nil, fmt.Errorf("empty ignore entry: %w", models.ErrMalformedInput)
		}
		clean = append(clean, it)
	}
	if len(clean) == 0 {
		return nil, fmt.Errorf("no ignore entries given: %w", models.ErrMalformedInput)
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	next := u.target.Ignore().With(clean...)
	if err := u.store.Save(ctx, next.Items()); err != nil {
		return nil, fmt.Errorf("persist ignore list: %w", err)
	}
	u.target.SetIgnore(next)
	u.log.Info("ignore list extended", logger.Strings("added", clean), logger.Int("entries", next.Len()))
	return next.Items(), nil
}
