package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"TickerPulse/internal/domain/models"
	drepo "TickerPulse/internal/domain/repository"
	pkgkafka "TickerPulse/pkg/kafka"
	"TickerPulse/pkg/logger"
	"TickerPulse/pkg/metrics"
)

// DocumentSink receives documents pushed from a stream.
type DocumentSink interface {
	Accept(ctx context.Context, doc *models.Document) error
}

// SnapshotSink receives snapshots pushed from a stream. It reports whether
// the snapshot was newer than what it held.
type SnapshotSink interface {
	Put(snap *models.Snapshot) bool
}

// KafkaDocumentsHandler decodes documents and hands them to every sink.
// Undecodable messages are logged and committed; only sink failures are
// retried by the consumer.
type KafkaDocumentsHandler struct {
	topic   string
	sinks   []DocumentSink
	log     *logger.Logger
	metrics drepo.Metrics
}

func NewKafkaDocumentsHandler(topic string, log *logger.Logger, m drepo.Metrics, sinks ...DocumentSink) *KafkaDocumentsHandler {
	if log == nil {
		log = logger.Nop()
	}
	if m == nil {
		m = metrics.Noop{}
	}
	return &KafkaDocumentsHandler{topic: topic, sinks: sinks, log: log, metrics: m}
}

func (h *KafkaDocumentsHandler) Topic() string { return h.topic }

func (h *KafkaDocumentsHandler) Handle(ctx context.Context, b []byte) error {
	var doc models.Document
	if err := json.Unmarshal(b, &doc); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		h.log.Warn("dropping undecodable document",
			logger.String("topic", h.topic),
			logger.String("trace_id", pkgkafka.TraceIDFrom(ctx)),
			logger.Error(fmt.Errorf("%w: %v", models.ErrMalformedInput, err)))
		return nil
	}
	if doc.ID == "" {
		h.metrics.RecordError("consumer_malformed")
		h.log.Warn("dropping document without id", logger.String("topic", h.topic))
		return nil
	}

	start := time.Now()
	for _, s := range h.sinks {
		if err := s.Accept(ctx, &doc); err != nil {
			h.metrics.RecordError("consumer_sink")
			return fmt.Errorf("document %s: %w", doc.ID, err)
		}
	}
	h.metrics.RecordLatency("document_handle", time.Since(start).Seconds())
	return nil
}

// KafkaSnapshotsHandler decodes snapshots into a SnapshotSink.
type KafkaSnapshotsHandler struct {
	topic   string
	sink    SnapshotSink
	log     *logger.Logger
	metrics drepo.Metrics
}

func NewKafkaSnapshotsHandler(topic string, sink SnapshotSink, log *logger.Logger, m drepo.Metrics) *KafkaSnapshotsHandler {
	if log == nil {
		log = logger.Nop()
	}
	if m == nil {
		m = metrics.Noop{}
	}
	return &KafkaSnapshotsHandler{topic: topic, sink: sink, log: log, metrics: m}
}

func (h *KafkaSnapshotsHandler) Topic() string { return h.topic }

func (h *KafkaSnapshotsHandler) Handle(_ context.Context, b []byte) error {
	var snap models.Snapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		h.log.Warn("dropping undecodable snapshot",
			logger.String("topic", h.topic), logger.Error(fmt.Errorf("%w: %v", models.ErrMalformedInput, err)))
		return nil
	}
	if snap.Symbol == "" {
		h.metrics.RecordError("consumer_malformed")
		h.log.Warn("dropping snapshot without symbol", logger.String("topic", h.topic))
		return nil
	}
	h.metrics.RecordLatency("snapshot_ingest_lag", time.Since(snap.Timestamp).Seconds())
	if !h.sink.Put(&snap) {
		h.log.Debug("stale snapshot ignored",
			logger.String("symbol", snap.Symbol), logger.Time("timestamp", snap.Timestamp))
	}
	return nil
}

var (
	_ pkgkafka.MessageHandler = (*KafkaDocumentsHandler)(nil)
	_ pkgkafka.MessageHandler = (*KafkaSnapshotsHandler)(nil)
)
