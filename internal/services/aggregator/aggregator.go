package aggregator

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"TickerPulse/internal/domain/models"
	drepo "TickerPulse/internal/domain/repository"
	"TickerPulse/pkg/logger"
	"TickerPulse/pkg/metrics"
)

const (
	DefaultSubmissionThreshold = 5
	DefaultCommentThreshold    = 5
	DefaultBot                 = "AutoModerator"
)

// Document outcomes reported to metrics.
const (
	OutcomeCounted        = "counted"
	OutcomeBelowThreshold = "below_threshold"
	OutcomeSkipped        = "skipped"
)

// Classifier is the part of classifier.Classifier the aggregator needs.
type Classifier interface {
	Classify(text string) []string
	Name(ticker string) string
}

// CommentExpander loads the comment pages a document did not carry yet.
type CommentExpander interface {
	Expand(ctx context.Context, doc *models.Document) ([]models.Comment, error)
}

type Option func(*Aggregator)

func WithSubmissionThreshold(n int) Option {
	return func(a *Aggregator) { a.subThreshold = n }
}

func WithCommentThreshold(n int) Option {
	return func(a *Aggregator) { a.commentThreshold = n }
}

// WithBots replaces the set of authors whose comments are never counted.
func WithBots(authors ...string) Option {
	return func(a *Aggregator) {
		a.bots = make(map[string]struct{}, len(authors))
		for _, au := range authors {
			a.bots[au] = struct{}{}
		}
	}
}

func WithExpander(e CommentExpander) Option {
	return func(a *Aggregator) { a.expander = e }
}

func WithLogger(l *logger.Logger) Option {
	return func(a *Aggregator) {
		if l != nil {
			a.log = l
		}
	}
}

func WithMetrics(m drepo.Metrics) Option {
	return func(a *Aggregator) {
		if m != nil {
			a.metrics = m
		}
	}
}

// Aggregator turns documents into mention tallies.
type Aggregator struct {
	classifier       Classifier
	subThreshold     int
	commentThreshold int
	bots             map[string]struct{}
	expander         CommentExpander
	log              *logger.Logger
	metrics          drepo.Metrics
}

func New(c Classifier, opts ...Option) (*Aggregator, error) {
	if c == nil {
		return nil, fmt.Errorf("aggregator requires a classifier: %w", models.ErrConfiguration)
	}
	a := &Aggregator{
		classifier:       c,
		subThreshold:     DefaultSubmissionThreshold,
		commentThreshold: DefaultCommentThreshold,
		bots:             map[string]struct{}{DefaultBot: {}},
		log:              logger.Nop(),
		metrics:          metrics.Noop{},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

func (a *Aggregator) SubmissionThreshold() int { return a.subThreshold }
func (a *Aggregator) CommentThreshold() int    { return a.commentThreshold }

// Aggregate counts mentions across docs. Cancellation is checked between
// documents; on cancellation the tally so far is returned with ctx.Err().
func (a *Aggregator) Aggregate(ctx context.Context, docs []*models.Document) (*Tally, error) {
	start := time.Now()
	defer func() { a.metrics.RecordLatency("aggregate", time.Since(start).Seconds()) }()

	tally := NewTally()
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return tally, err
		}
		a.collect(ctx, doc, tally)
	}
	return tally, nil
}

// AggregateStream counts documents pushed on ch until it is closed or ctx ends.
func (a *Aggregator) AggregateStream(ctx context.Context, ch <-chan *models.Document) (*Tally, error) {
	tally := NewTally()
	for {
		select {
		case <-ctx.Done():
			return tally, ctx.Err()
		case doc, ok := <-ch:
			if !ok {
				return tally, nil
			}
			a.collect(ctx, doc, tally)
		}
	}
}

// AggregateParallel classifies documents on at most workers goroutines and
// merges the per-document tallies in document order, so the result equals
// Aggregate on the same input.
func (a *Aggregator) AggregateParallel(ctx context.Context, docs []*models.Document, workers int) (*Tally, error) {
	if workers <= 1 {
		return a.Aggregate(ctx, docs)
	}
	start := time.Now()
	defer func() { a.metrics.RecordLatency("aggregate_parallel", time.Since(start).Seconds()) }()

	parts := make([]*Tally, len(docs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, doc := range docs {
		if gctx.Err() != nil {
			break
		}
		i, doc := i, doc
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			part := NewTally()
			a.collect(gctx, doc, part)
			parts[i] = part
			return nil
		})
	}
	waitErr := g.Wait()

	tally := NewTally()
	for _, part := range parts {
		tally.Merge(part)
	}
	if err := ctx.Err(); err != nil {
		return tally, err
	}
	return tally, waitErr
}

// Tally counts a single document into a fresh tally.
func (a *Aggregator) Tally(ctx context.Context, doc *models.Document) *Tally {
	t := NewTally()
	a.collect(ctx, doc, t)
	return t
}

// collect adds one document's mentions to t. Comment expansion runs before
// anything is counted so a failed expansion leaves t untouched.
func (a *Aggregator) collect(ctx context.Context, doc *models.Document, t *Tally) {
	t.seen++
	if doc == nil {
		t.skipped++
		a.log.Warn("skipping document", logger.Error(fmt.Errorf("nil document: %w", models.ErrMalformedInput)))
		a.metrics.RecordDocument(OutcomeSkipped)
		return
	}
	if doc.Score <= a.subThreshold {
		a.log.Debug("submission below score threshold",
			logger.String("id", doc.ID), logger.Int("score", doc.Score))
		a.metrics.RecordDocument(OutcomeBelowThreshold)
		return
	}

	comments := doc.Comments
	if doc.MoreComments && a.expander != nil {
		more, err := a.expander.Expand(ctx, doc)
		if err != nil {
			t.skipped++
			a.log.Warn("comment expansion failed, skipping document",
				logger.String("id", doc.ID), logger.Error(err))
			a.metrics.RecordDocument(OutcomeSkipped)
			a.metrics.RecordError("comment_expand")
			return
		}
		comments = append(comments[:len(comments):len(comments)], more...)
	}

	a.count(doc.Text, t)
	eligible := 0
	for _, c := range comments {
		if !a.Eligible(c) {
			continue
		}
		eligible++
		a.count(c.Body, t)
	}
	t.counted++
	a.log.Debug("document counted",
		logger.String("id", doc.ID), logger.Int("eligible_comments", eligible))
	a.metrics.RecordDocument(OutcomeCounted)
}

func (a *Aggregator) count(text string, t *Tally) {
	for _, ticker := range a.classifier.Classify(text) {
		t.Add(ticker, a.classifier.Name(ticker))
		a.metrics.RecordMentions(ticker, 1)
	}
}

// Eligible reports whether a comment passes the bot and score filters.
func (a *Aggregator) Eligible(c models.Comment) bool {
	if _, bot := a.bots[c.Author]; bot {
		return false
	}
	return c.Score > a.commentThreshold
}
