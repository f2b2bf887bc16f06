package usecase

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"TickerPulse/internal/domain/models"
	drepo "TickerPulse/internal/domain/repository"
	"TickerPulse/internal/services/aggregator"
	"TickerPulse/internal/services/classifier"
	"TickerPulse/pkg/logger"
	"TickerPulse/pkg/metrics"
)

type StreamConfig struct {
	Words     []string
	Sentiment bool
	Permalink bool
}

// CommentStreamer prints every comment that mentions a known ticker as it
// arrives, and keeps a running tally of those mentions.
type CommentStreamer struct {
	cls       aggregator.Classifier
	sentiment drepo.Sentiment
	cfg       StreamConfig
	words     []string
	log       *logger.Logger
	metrics   drepo.Metrics
	now       func() time.Time

	mu    sync.Mutex
	out   io.Writer
	tally *aggregator.Tally
}

func NewCommentStreamer(cls aggregator.Classifier, sentiment drepo.Sentiment, cfg StreamConfig, log *logger.Logger, m drepo.Metrics) (*CommentStreamer, error) {
	if cls == nil {
		return nil, fmt.Errorf("comment streamer needs a classifier: %w", models.ErrConfiguration)
	}
	if cfg.Sentiment && sentiment == nil {
		return nil, fmt.Errorf("sentiment output requested without an analyzer: %w", models.ErrConfiguration)
	}
	if log == nil {
		log = logger.Nop()
	}
	if m == nil {
		m = metrics.Noop{}
	}
	words := make([]string, 0, len(cfg.Words))
	for _, w := range cfg.Words {
		if w = strings.TrimSpace(w); w != "" {
			words = append(words, strings.ToLower(w))
		}
	}
	return &CommentStreamer{
		cls:       cls,
		sentiment: sentiment,
		cfg:       cfg,
		words:     words,
		log:       log,
		metrics:   m,
		now:       time.Now,
		out:       os.Stdout,
		tally:     aggregator.NewTally(),
	}, nil
}

func (s *CommentStreamer) SetOutput(w io.Writer) {
	s.mu.Lock()
	s.out = w
	s.mu.Unlock()
}

// Accept prints each matching comment of doc. It stops early on cancellation.
func (s *CommentStreamer) Accept(ctx context.Context, doc *models.Document) error {
	if doc == nil {
		s.metrics.RecordError("stream_nil_document")
		return nil
	}
	for _, c := range doc.Comments {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.comment(doc, c)
	}
	return nil
}

func (s *CommentStreamer) comment(doc *models.Document, c models.Comment) {
	if !s.matchesWords(c.Body) {
		return
	}
	tickers := s.cls.Classify(c.Body)
	if len(tickers) == 0 {
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "\n-----%s-----\n[%s] Comment by: /u/%s in /r/%s\n%s\n\n",
		doc.Title, s.now().Format("2006-01-02 15:04:05"), c.Author, doc.Subreddit, c.Body)
	b.WriteString("Stocks Found:\n")
	for _, t := range classifier.Unique(tickers) {
		fmt.Fprintf(&b, "[%s] %s\n", t, s.cls.Name(t))
	}
	if s.cfg.Sentiment {
		fmt.Fprintf(&b, "\nComment sentiment: %s\n", s.sentiment.Polarity(c.Body))
	}
	if s.cfg.Permalink && c.Permalink != "" {
		fmt.Fprintf(&b, "\nURL: www.reddit.com%s\n", c.Permalink)
	}

	s.mu.Lock()
	for _, t := range tickers {
		s.tally.Add(t, s.cls.Name(t))
	}
	_, err := io.WriteString(s.out, b.String())
	s.mu.Unlock()
	if err != nil {
		s.log.Warn("stream output failed", logger.Error(err))
	}
	for _, t := range tickers {
		s.metrics.RecordMentions(t, 1)
	}
}

// matchesWords reports whether any filter word occurs in body. An empty
// filter matches everything.
func (s *CommentStreamer) matchesWords(body string) bool {
	if len(s.words) == 0 {
		return true
	}
	lower := strings.ToLower(body)
	for _, w := range s.words {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

// Top returns the k most mentioned tickers seen so far.
func (s *CommentStreamer) Top(k int) []models.FrequencyEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tally.Top(k)
}

var _ DocumentSink = (*CommentStreamer)(nil)
