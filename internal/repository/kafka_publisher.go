package repository

import (
	"context"

	"TickerPulse/internal/domain/models"
	drepo "TickerPulse/internal/domain/repository"
)

// MessageProducer is the slice of pkg/kafka.Producer the publisher needs.
type MessageProducer interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
	Close() error
}

// KafkaPublisher writes reports and frames as JSON. Reports are keyed by run
// ID and frames by symbol so a symbol's frames stay ordered on one partition.
type KafkaPublisher struct {
	producer     MessageProducer
	reportsTopic string
	framesTopic  string
}

func NewKafkaPublisher(producer MessageProducer, reportsTopic, framesTopic string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, reportsTopic: reportsTopic, framesTopic: framesTopic}
}

func (p *KafkaPublisher) PublishReport(ctx context.Context, r *models.Report) error {
	if r == nil {
		return nil
	}
	return p.producer.Publish(ctx, p.reportsTopic, []byte(r.RunID), r)
}

func (p *KafkaPublisher) PublishFrame(ctx context.Context, f *models.Frame) error {
	if f == nil {
		return nil
	}
	return p.producer.Publish(ctx, p.framesTopic, []byte(f.Symbol), f)
}

func (p *KafkaPublisher) Close() error { return p.producer.Close() }

var _ drepo.Publisher = (*KafkaPublisher)(nil)
