package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"TickerPulse/internal/domain/models"
	"TickerPulse/internal/services/classifier"
)

const testSymbols = `GME|GameStop Corp. Class A
AMC|AMC Entertainment Holdings Inc.
TSLA|Tesla Inc.
PLTR|Palantir Technologies Inc.
`

var errBoom = errors.New("boom")

func newTestClassifier(t *testing.T) *classifier.Classifier {
	t.Helper()
	idx, err := classifier.LoadSymbols(strings.NewReader(testSymbols))
	require.NoError(t, err)
	c, err := classifier.New(idx)
	require.NoError(t, err)
	return c
}

type fakeSinks struct {
	mu      sync.Mutex
	err     error
	reports []*models.Report
	frames  []*models.Frame
	ticks   []models.WindowPoint
	// deadCtx counts report saves made with an already cancelled context
	deadCtx int
}

func (f *fakeSinks) SaveReport(ctx context.Context, r *models.Report) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ctx.Err() != nil {
		f.deadCtx++
	}
	f.reports = append(f.reports, r)
	return f.err
}

func (f *fakeSinks) LatestReport(context.Context) (*models.Report, error) { return nil, nil }

func (f *fakeSinks) SaveFrame(_ context.Context, fr *models.Frame) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = append(f.frames, fr)
	return f.err
}

func (f *fakeSinks) Frame(context.Context, string) (*models.Frame, error) { return nil, nil }

func (f *fakeSinks) PublishReport(ctx context.Context, r *models.Report) error {
	return f.SaveReport(ctx, r)
}

func (f *fakeSinks) PublishFrame(ctx context.Context, fr *models.Frame) error {
	return f.SaveFrame(ctx, fr)
}

func (f *fakeSinks) Close() error { return nil }

func (f *fakeSinks) Init(context.Context) error { return nil }

func (f *fakeSinks) StoreReport(ctx context.Context, r *models.Report) error {
	return f.SaveReport(ctx, r)
}

func (f *fakeSinks) StoreTick(_ context.Context, _ string, p models.WindowPoint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ticks = append(f.ticks, p)
	return f.err
}

func (f *fakeSinks) QueryTicks(context.Context, string, time.Time, time.Time, int) ([]models.WindowPoint, error) {
	return nil, nil
}

func (f *fakeSinks) Health(context.Context) error { return nil }

func (f *fakeSinks) reportCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.reports)
}

type staticSource struct {
	docs []*models.Document
	err  error
}

func (s staticSource) Documents(context.Context) ([]*models.Document, error) { return s.docs, s.err }

type fakeLocker struct {
	mu     sync.Mutex
	held   bool
	err    error
	unlock int
}

func (l *fakeLocker) TryLock(context.Context, string, time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return false, l.err
	}
	if l.held {
		return false, nil
	}
	l.held = true
	return true, nil
}

func (l *fakeLocker) Unlock(context.Context, string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.held = false
	l.unlock++
	return nil
}

type recordingSink struct {
	mu   sync.Mutex
	docs []*models.Document
	err  error
}

func (s *recordingSink) Accept(_ context.Context, d *models.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.docs = append(s.docs, d)
	return nil
}

type fixedPolarity models.Polarity

func (p fixedPolarity) Polarity(string) models.Polarity { return models.Polarity(p) }
