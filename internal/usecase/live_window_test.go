package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TickerPulse/internal/domain/models"
	"TickerPulse/internal/services/window"
)

var w0 = time.Date(2021, 2, 1, 14, 30, 0, 0, time.UTC)

type scriptedSource struct {
	mu    sync.Mutex
	snaps []*models.Snapshot
	errs  []error
	calls int
}

func (s *scriptedSource) Latest(ctx context.Context, _ string) (*models.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	if i < len(s.snaps) {
		return s.snaps[i], nil
	}
	return nil, nil
}

func newTestWindow(t *testing.T, src *scriptedSource, sinks FrameSinks) *LiveWindow {
	t.Helper()
	series, err := window.New()
	require.NoError(t, err)
	w, err := NewLiveWindow("GME", series, src, sinks, LiveWindowConfig{Delay: time.Minute}, nil, nil)
	require.NoError(t, err)
	return w
}

func TestLiveWindowTick(t *testing.T) {
	first := models.NewSnapshot("GME", w0, 40, 1000, 500, 300)
	first.Name = "GameStop Corp. Class A"
	src := &scriptedSource{
		snaps: []*models.Snapshot{
			nil,
			first,
			models.NewSnapshot("GME", w0, 40, 1000, 500, 300),
			models.NewSnapshot("GME", w0.Add(-time.Minute), 39, 900, 400, 200),
			nil,
			models.NewSnapshot("GME", w0.Add(time.Minute), 41, 1200, 550, 290),
		},
		errs: []error{4: errBoom},
	}
	sinks := &fakeSinks{}
	w := newTestWindow(t, src, FrameSinks{Latest: sinks, Publisher: sinks, Storage: sinks})
	ctx := context.Background()

	f, err := w.Tick(ctx)
	require.NoError(t, err)
	assert.Nil(t, f, "no snapshot yet")
	assert.Nil(t, w.Frame())

	f, err = w.Tick(ctx)
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.Equal(t, "WARM", f.Phase)
	assert.Equal(t, "GameStop Corp. Class A", f.Name)

	f, err = w.Tick(ctx)
	require.NoError(t, err)
	assert.Nil(t, f, "same timestamp is not applied twice")

	_, err = w.Tick(ctx)
	assert.ErrorIs(t, err, models.ErrMalformedInput)

	_, err = w.Tick(ctx)
	assert.ErrorIs(t, err, models.ErrTransientSource)

	f, err = w.Tick(ctx)
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.Equal(t, "STEADY", f.Phase)
	require.Len(t, f.Points, 2)
	assert.Equal(t, 50.0, f.Points[1].CallDiff)
	assert.Same(t, f, w.Frame())

	// each applied frame reaches the cache and kafka, and its newest point reaches storage
	assert.Len(t, sinks.frames, 4)
	require.Len(t, sinks.ticks, 2)
	assert.Equal(t, 41.0, sinks.ticks[1].Price)
}

func TestLiveWindowSinkFailureKeepsState(t *testing.T) {
	src := &scriptedSource{snaps: []*models.Snapshot{models.NewSnapshot("GME", w0, 40, 1000, 500, 300)}}
	w := newTestWindow(t, src, FrameSinks{Latest: &fakeSinks{err: errBoom}})

	f, err := w.Tick(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, f)
}

func TestLiveWindowRunStopsOnCancel(t *testing.T) {
	src := &scriptedSource{}
	w := newTestWindow(t, src, FrameSinks{})
	ctx, cancel := context.WithCancel(context.Background())

	var waits []time.Duration
	w.sleep = func(ctx context.Context, d time.Duration) error {
		waits = append(waits, d)
		if len(waits) == 3 {
			cancel()
		}
		return ctx.Err()
	}

	err := w.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, waits, 3)
	for _, d := range waits {
		assert.LessOrEqual(t, d, time.Minute)
		assert.GreaterOrEqual(t, d, time.Second)
	}
}

func TestNextDelay(t *testing.T) {
	tests := []struct {
		name                        string
		current, configured, elapse time.Duration
		want                        time.Duration
	}{
		{"fast tick keeps configured", 60 * time.Second, 60 * time.Second, 2 * time.Second, 60 * time.Second},
		{"slow tick doubles elapsed", 60 * time.Second, 60 * time.Second, 70 * time.Second, 140 * time.Second},
		{"doubled delay persists while ticks stay under it", 140 * time.Second, 60 * time.Second, 90 * time.Second, 60 * time.Second},
		{"slower than doubled delay doubles again", 140 * time.Second, 60 * time.Second, 150 * time.Second, 300 * time.Second},
		{"equal elapsed is not slow", 60 * time.Second, 60 * time.Second, 60 * time.Second, 60 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NextDelay(tt.current, tt.configured, tt.elapse))
		})
	}
}

func TestWaitFor(t *testing.T) {
	assert.Equal(t, 58*time.Second, WaitFor(60*time.Second, 2*time.Second))
	assert.Equal(t, time.Second, WaitFor(60*time.Second, 60*time.Second))
	assert.Equal(t, time.Second, WaitFor(60*time.Second, 90*time.Second))
	assert.Equal(t, 70*time.Second, WaitFor(140*time.Second, 70*time.Second))
}

func TestNewLiveWindowValidation(t *testing.T) {
	series, err := window.New()
	require.NoError(t, err)

	_, err = NewLiveWindow("", series, &scriptedSource{}, FrameSinks{}, LiveWindowConfig{Delay: time.Second}, nil, nil)
	assert.ErrorIs(t, err, models.ErrConfiguration)
	_, err = NewLiveWindow("GME", series, &scriptedSource{}, FrameSinks{}, LiveWindowConfig{}, nil, nil)
	assert.ErrorIs(t, err, models.ErrConfiguration)
}

func TestLiveWindowsLifecycle(t *testing.T) {
	src := &scriptedSource{snaps: []*models.Snapshot{models.NewSnapshot("GME", w0, 40, 1000, 500, 300)}}
	w := newTestWindow(t, src, FrameSinks{})
	w.sleep = func(ctx context.Context, _ time.Duration) error {
		<-ctx.Done()
		return ctx.Err()
	}
	lw := NewLiveWindows(nil, w)
	assert.Equal(t, 1, lw.Len())

	lw.Start(context.Background())
	assert.Eventually(t, func() bool {
		_, ok := lw.Frame("GME")
		return ok
	}, 2*time.Second, 10*time.Millisecond)

	_, ok := lw.Frame("AMC")
	assert.False(t, ok)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, lw.Stop(ctx))
	require.NoError(t, lw.Stop(ctx))
}
