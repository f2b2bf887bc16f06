package usecase

import (
	"context"
	"sync"

	"TickerPulse/internal/domain/models"
	drepo "TickerPulse/internal/domain/repository"
	"TickerPulse/pkg/logger"
	"TickerPulse/pkg/metrics"
)

// SnapshotCollector copies snapshots from a quote stream onto a sink and
// reconnects the stream when it fails.
type SnapshotCollector struct {
	stream  drepo.QuoteStream
	sink    SnapshotSink
	log     *logger.Logger
	metrics drepo.Metrics

	wg sync.WaitGroup
}

func NewSnapshotCollector(stream drepo.QuoteStream, sink SnapshotSink, log *logger.Logger, m drepo.Metrics) *SnapshotCollector {
	if log == nil {
		log = logger.Nop()
	}
	if m == nil {
		m = metrics.Noop{}
	}
	return &SnapshotCollector{stream: stream, sink: sink, log: log, metrics: m}
}

// IsConnected returns true if the quote stream is connected.
func (c *SnapshotCollector) IsConnected() bool {
	return c.stream.IsConnected()
}

// Start dials and subscribes, then collects in the background until ctx ends.
func (c *SnapshotCollector) Start(ctx context.Context) error {
	if err := c.stream.Connect(ctx); err != nil {
		return err
	}
	if err := c.stream.Subscribe(ctx); err != nil {
		_ = c.stream.Close()
		return err
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.run(ctx)
	}()
	return nil
}

func (c *SnapshotCollector) run(ctx context.Context) {
	for ctx.Err() == nil {
		snaps, errs := c.stream.Read(ctx)
		if err := c.consume(ctx, snaps, errs); err != nil {
			c.metrics.RecordError("stream")
			c.log.Warn("quote stream failed, reconnecting", logger.Error(err))
		}
		for ctx.Err() == nil {
			err := c.stream.Reconnect(ctx)
			if err == nil {
				c.log.Info("quote stream reconnected")
				break
			}
			if ctx.Err() == nil {
				c.metrics.RecordError("stream_reconnect")
				c.log.Warn("quote stream reconnect failed", logger.Error(err))
			}
		}
	}
}

// consume drains snaps until the stream closes it. It returns the stream
// error, if one was reported.
func (c *SnapshotCollector) consume(ctx context.Context, snaps <-chan *models.Snapshot, errs <-chan error) error {
	var streamErr error
	for snaps != nil || errs != nil {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			streamErr = err
		case s, ok := <-snaps:
			if !ok {
				snaps = nil
				continue
			}
			if s == nil {
				continue
			}
			if c.sink.Put(s) && s.Price != nil {
				c.metrics.RecordLastPrice(s.Symbol, *s.Price)
			}
		}
	}
	return streamErr
}

// Shutdown closes the stream and waits for the collecting goroutine or ctx.
// The caller cancels the context passed to Start first.
func (c *SnapshotCollector) Shutdown(ctx context.Context) error {
	err := c.stream.Close()
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
