package repository

import (
	"context"
	"sync"

	"TickerPulse/internal/domain/models"
	drepo "TickerPulse/internal/domain/repository"
	"TickerPulse/pkg/logger"
	"TickerPulse/pkg/metrics"
)

const DefaultBufferCapacity = 10000

// BufferOption configures a DocumentBuffer.
type BufferOption func(*DocumentBuffer)

func WithBufferLogger(l *logger.Logger) BufferOption {
	return func(b *DocumentBuffer) {
		if l != nil {
			b.log = l
		}
	}
}

// WithBufferMetrics records every eviction as a "buffer_overflow" error.
func WithBufferMetrics(m drepo.Metrics) BufferOption {
	return func(b *DocumentBuffer) {
		if m != nil {
			b.metrics = m
		}
	}
}

// DocumentBuffer collects streamed documents between report runs. Each call
// to Documents drains it. A document seen again replaces the earlier copy in
// place; past capacity the oldest document is dropped.
type DocumentBuffer struct {
	name     string
	capacity int
	log      *logger.Logger
	metrics  drepo.Metrics

	mu      sync.Mutex
	order   []string
	docs    map[string]*models.Document
	dropped int
	// evicted since the last drain
	pending int
}

func NewDocumentBuffer(name string, capacity int, opts ...BufferOption) *DocumentBuffer {
	if capacity <= 0 {
		capacity = DefaultBufferCapacity
	}
	b := &DocumentBuffer{
		name:     name,
		capacity: capacity,
		log:      logger.Nop(),
		metrics:  metrics.Noop{},
		docs:     make(map[string]*models.Document),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *DocumentBuffer) Name() string { return b.name }

// Accept stores a copy of doc.
func (b *DocumentBuffer) Accept(_ context.Context, doc *models.Document) error {
	if doc == nil {
		return nil
	}
	cp := *doc
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.docs[cp.ID]; ok {
		b.docs[cp.ID] = &cp
		return nil
	}
	if len(b.order) >= b.capacity {
		oldest := b.order[0]
		b.order = b.order[1:]
		delete(b.docs, oldest)
		b.dropped++
		b.pending++
		b.metrics.RecordError("buffer_overflow")
		// first eviction of a drain cycle is logged, the rest are summed at drain
		if b.pending == 1 {
			b.log.Warn("document buffer full, evicting oldest",
				logger.String("buffer", b.name),
				logger.String("id", oldest),
				logger.Int("capacity", b.capacity))
		}
	}
	b.order = append(b.order, cp.ID)
	b.docs[cp.ID] = &cp
	return nil
}

// Documents drains the buffer in arrival order.
func (b *DocumentBuffer) Documents(ctx context.Context) ([]*models.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*models.Document, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, b.docs[id])
	}
	b.order = nil
	b.docs = make(map[string]*models.Document)
	if b.pending > 0 {
		b.log.Warn("documents evicted before drain",
			logger.String("buffer", b.name),
			logger.Int("evicted", b.pending),
			logger.Int("drained", len(out)))
		b.pending = 0
	}
	return out, nil
}

func (b *DocumentBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.order)
}

// Dropped returns how many documents were evicted for capacity.
func (b *DocumentBuffer) Dropped() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}

var _ drepo.DocumentSource = (*DocumentBuffer)(nil)
