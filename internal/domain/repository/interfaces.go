package repository

import (
	"context"
	"time"

	"TickerPulse/internal/domain/models"
)

// DocumentSource yields a batch of documents for a report run.
type DocumentSource interface {
	Documents(ctx context.Context) ([]*models.Document, error)
}

// DocumentStream is implemented by sources that can push documents one at a
// time. errc yields at most one error once the document channel is closed.
type DocumentStream interface {
	Stream(ctx context.Context) (docs <-chan *models.Document, errc <-chan error)
}

// IgnoreStore persists the user-maintained ignore list.
type IgnoreStore interface {
	Load(ctx context.Context) ([]string, error)
	Save(ctx context.Context, items []string) error
}

// QuoteStream is a push feed of market snapshots.
type QuoteStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.Snapshot, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// SnapshotSource returns the most recent snapshot for a symbol. A nil
// snapshot with a nil error means nothing has arrived yet.
type SnapshotSource interface {
	Latest(ctx context.Context, symbol string) (*models.Snapshot, error)
}

type Publisher interface {
	PublishReport(ctx context.Context, r *models.Report) error
	PublishFrame(ctx context.Context, f *models.Frame) error
	Close() error
}

type Storage interface {
	Init(ctx context.Context) error // ensure tables, health checks
	StoreReport(ctx context.Context, r *models.Report) error
	StoreTick(ctx context.Context, symbol string, p models.WindowPoint) error
	QueryTicks(ctx context.Context, symbol string, from, to time.Time, limit int) ([]models.WindowPoint, error)
	Health(ctx context.Context) error // ping
	Close() error
}

// LatestStore keeps the most recent report and window frame for readers.
type LatestStore interface {
	SaveReport(ctx context.Context, r *models.Report) error
	LatestReport(ctx context.Context) (*models.Report, error)
	SaveFrame(ctx context.Context, f *models.Frame) error
	Frame(ctx context.Context, symbol string) (*models.Frame, error)
}

// Sentiment scores free text. Implementations are opaque to the core.
type Sentiment interface {
	Polarity(text string) models.Polarity
}

type Metrics interface {
	RecordDocument(outcome string)
	RecordMentions(ticker string, n int)
	RecordWindowUpdate(symbol, outcome string)
	RecordMessageSent(backend, key string)
	RecordError(kind string)
	RecordLastPrice(symbol string, price float64)
	RecordLatency(op string, seconds float64)
}
