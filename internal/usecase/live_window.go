package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"TickerPulse/internal/domain/models"
	drepo "TickerPulse/internal/domain/repository"
	"TickerPulse/internal/services/window"
	"TickerPulse/pkg/logger"
	"TickerPulse/pkg/metrics"
)

// Window update outcomes reported to metrics.
const (
	WindowApplied   = "applied"
	WindowPending   = "pending"
	WindowUnchanged = "unchanged"
	WindowRejected  = "rejected"
	WindowTransient = "transient"
)

const minWait = time.Second

// FrameSinks are the optional destinations of every published frame.
type FrameSinks struct {
	Latest    drepo.LatestStore
	Publisher drepo.Publisher
	Storage   drepo.Storage
}

type LiveWindowConfig struct {
	Delay        time.Duration
	FetchTimeout time.Duration
}

// LiveWindow polls the newest snapshot of one symbol and feeds it through a
// rolling window. The window state is owned by the goroutine running Run.
type LiveWindow struct {
	symbol  string
	series  *window.Series
	src     drepo.SnapshotSource
	sinks   FrameSinks
	cfg     LiveWindowConfig
	log     *logger.Logger
	metrics drepo.Metrics
	sleep   func(ctx context.Context, d time.Duration) error

	state window.State

	mu    sync.RWMutex
	frame *models.Frame
}

func NewLiveWindow(
	symbol string,
	series *window.Series,
	src drepo.SnapshotSource,
	sinks FrameSinks,
	cfg LiveWindowConfig,
	log *logger.Logger,
	m drepo.Metrics,
) (*LiveWindow, error) {
	if symbol == "" || series == nil || src == nil {
		return nil, fmt.Errorf("live window needs a symbol, a series and a source: %w", models.ErrConfiguration)
	}
	if cfg.Delay <= 0 {
		return nil, fmt.Errorf("live window delay must be positive: %w", models.ErrConfiguration)
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = cfg.Delay
	}
	if log == nil {
		log = logger.Nop()
	}
	if m == nil {
		m = metrics.Noop{}
	}
	return &LiveWindow{
		symbol:  symbol,
		series:  series,
		src:     src,
		sinks:   sinks,
		cfg:     cfg,
		log:     log.With(logger.String("symbol", symbol)),
		metrics: m,
		sleep:   sleepCtx,
	}, nil
}

func (w *LiveWindow) Symbol() string { return w.symbol }

// Frame returns the last published frame, or nil before the first update.
func (w *LiveWindow) Frame() *models.Frame {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.frame
}

// Tick fetches the newest snapshot and applies it. A nil frame with a nil
// error means there was nothing new to apply.
func (w *LiveWindow) Tick(ctx context.Context) (*models.Frame, error) {
	fctx, cancel := context.WithTimeout(ctx, w.cfg.FetchTimeout)
	snap, err := w.src.Latest(fctx, w.symbol)
	cancel()
	if err != nil {
		w.metrics.RecordWindowUpdate(w.symbol, WindowTransient)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("fetch %s: %v: %w", w.symbol, err, models.ErrTransientSource)
	}
	if snap == nil {
		w.metrics.RecordWindowUpdate(w.symbol, WindowPending)
		return nil, nil
	}
	if pts := w.state.Points(); len(pts) > 0 && snap.Timestamp.Equal(pts[len(pts)-1].Timestamp) {
		w.metrics.RecordWindowUpdate(w.symbol, WindowUnchanged)
		return nil, nil
	}

	next, frame, err := w.series.Update(w.state, snap)
	if err != nil {
		outcome := WindowRejected
		if errors.Is(err, models.ErrTransientSource) {
			outcome = WindowTransient
		}
		w.metrics.RecordWindowUpdate(w.symbol, outcome)
		return nil, err
	}
	w.state = next
	w.metrics.RecordWindowUpdate(w.symbol, WindowApplied)
	w.metrics.RecordLastPrice(w.symbol, *snap.Price)

	w.mu.Lock()
	w.frame = frame
	w.mu.Unlock()
	w.publish(ctx, frame)
	return frame, nil
}

func (w *LiveWindow) publish(ctx context.Context, f *models.Frame) {
	if w.sinks.Latest != nil {
		if err := w.sinks.Latest.SaveFrame(ctx, f); err != nil {
			w.sinkFailed("cache", err)
		}
	}
	if w.sinks.Publisher != nil {
		if err := w.sinks.Publisher.PublishFrame(ctx, f); err != nil {
			w.sinkFailed("kafka", err)
		} else {
			w.metrics.RecordMessageSent("kafka", w.symbol)
		}
	}
	if w.sinks.Storage != nil {
		if p, ok := f.Latest(); ok {
			if err := w.sinks.Storage.StoreTick(ctx, w.symbol, p); err != nil {
				w.sinkFailed("clickhouse", err)
			} else {
				w.metrics.RecordMessageSent("clickhouse", w.symbol)
			}
		}
	}
}

func (w *LiveWindow) sinkFailed(backend string, err error) {
	w.metrics.RecordError("frame_" + backend)
	w.log.Warn("frame sink failed", logger.String("backend", backend), logger.Error(err))
}

// Run ticks until ctx ends. Failed ticks are logged and never end the loop.
func (w *LiveWindow) Run(ctx context.Context) error {
	delay := w.cfg.Delay
	for {
		start := time.Now()
		if _, err := w.Tick(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.log.Warn("window update skipped", logger.Error(err))
		}
		elapsed := time.Since(start)
		delay = NextDelay(delay, w.cfg.Delay, elapsed)
		if err := w.sleep(ctx, WaitFor(delay, elapsed)); err != nil {
			return err
		}
	}
}

// NextDelay doubles the delay after a tick that outran it and restores the
// configured delay otherwise.
func NextDelay(current, configured, elapsed time.Duration) time.Duration {
	if current < elapsed {
		return 2 * elapsed
	}
	return configured
}

// WaitFor is the pause before the next tick, never below one second.
func WaitFor(delay, elapsed time.Duration) time.Duration {
	if wait := delay - elapsed; wait > minWait {
		return wait
	}
	return minWait
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// LiveWindows runs one LiveWindow per symbol.
type LiveWindows struct {
	windows map[string]*LiveWindow
	log     *logger.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewLiveWindows(log *logger.Logger, windows ...*LiveWindow) *LiveWindows {
	if log == nil {
		log = logger.Nop()
	}
	m := make(map[string]*LiveWindow, len(windows))
	for _, w := range windows {
		m[w.Symbol()] = w
	}
	return &LiveWindows{windows: m, log: log}
}

func (l *LiveWindows) Len() int { return len(l.windows) }

// Frame returns the in-process frame for symbol, if tracked.
func (l *LiveWindows) Frame(symbol string) (*models.Frame, bool) {
	w, ok := l.windows[symbol]
	if !ok {
		return nil, false
	}
	f := w.Frame()
	return f, f != nil
}

func (l *LiveWindows) Start(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		return
	}
	ctx, l.cancel = context.WithCancel(ctx)
	for _, w := range l.windows {
		l.wg.Add(1)
		go func(w *LiveWindow) {
			defer l.wg.Done()
			if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				l.log.Error("live window stopped", logger.String("symbol", w.Symbol()), logger.Error(err))
			}
		}(w)
	}
	l.log.Info("live windows started", logger.Int("symbols", len(l.windows)))
}

// Stop cancels every window and waits for them or ctx.
func (l *LiveWindows) Stop(ctx context.Context) error {
	l.mu.Lock()
	cancel := l.cancel
	l.cancel = nil
	l.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()

	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
