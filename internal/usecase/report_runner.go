package usecase

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"TickerPulse/internal/domain/models"
	drepo "TickerPulse/internal/domain/repository"
	"TickerPulse/internal/services/aggregator"
	"TickerPulse/pkg/logger"
	"TickerPulse/pkg/metrics"
)

const reportLockKey = "lock:report"

// Locker serializes report runs across replicas. cache.Service satisfies it.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key string) error
}

// ReportSinks are the optional destinations of a finished report.
type ReportSinks struct {
	Latest    drepo.LatestStore
	Publisher drepo.Publisher
	Storage   drepo.Storage
}

type ReportConfig struct {
	SourceName string
	Top        int
	Workers    int
	ShowAll    bool
	Schedule   string
	LockTTL    time.Duration
}

// ReportRunner runs one aggregation pass over a document source and hands
// the ranked report to its sinks.
type ReportRunner struct {
	agg     *aggregator.Aggregator
	src     drepo.DocumentSource
	sinks   ReportSinks
	lock    Locker
	cfg     ReportConfig
	out     io.Writer
	log     *logger.Logger
	metrics drepo.Metrics

	mu    sync.Mutex
	cron  *cron.Cron
	last  *models.Report
	runWG sync.WaitGroup
}

func NewReportRunner(
	agg *aggregator.Aggregator,
	src drepo.DocumentSource,
	sinks ReportSinks,
	lock Locker,
	cfg ReportConfig,
	log *logger.Logger,
	m drepo.Metrics,
) (*ReportRunner, error) {
	if agg == nil || src == nil {
		return nil, fmt.Errorf("report runner needs an aggregator and a source: %w", models.ErrConfiguration)
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 10 * time.Minute
	}
	if log == nil {
		log = logger.Nop()
	}
	if m == nil {
		m = metrics.Noop{}
	}
	return &ReportRunner{
		agg:     agg,
		src:     src,
		sinks:   sinks,
		lock:    lock,
		cfg:     cfg,
		out:     os.Stdout,
		log:     log,
		metrics: m,
	}, nil
}

// SetOutput redirects the printed report.
func (r *ReportRunner) SetOutput(w io.Writer) { r.out = w }

// Last returns the most recent report produced by this runner.
func (r *ReportRunner) Last() *models.Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

// Run performs one pass. It returns (nil, nil) when another run holds the lock.
// When ctx ends mid-run the partial report is still printed and delivered and
// is returned together with ctx.Err().
func (r *ReportRunner) Run(ctx context.Context) (*models.Report, error) {
	if r.lock != nil {
		ok, err := r.lock.TryLock(ctx, reportLockKey, r.cfg.LockTTL)
		if err != nil {
			r.log.Warn("report lock unavailable, running unlocked", logger.Error(err))
		} else if !ok {
			r.log.Info("report run already in progress, skipping")
			return nil, nil
		} else {
			defer func() {
				if err := r.lock.Unlock(context.WithoutCancel(ctx), reportLockKey); err != nil {
					r.log.Warn("report unlock failed", logger.Error(err))
				}
			}()
		}
	}

	start := time.Now()
	tally, aggErr := r.aggregate(ctx)
	if aggErr != nil {
		if ctx.Err() == nil || tally == nil {
			r.metrics.RecordError("report_source")
			return nil, aggErr
		}
		// counts gathered before cancellation still get reported
		r.log.Warn("report run interrupted, delivering partial report",
			logger.Int("documents_seen", tally.DocumentsSeen()),
			logger.Error(aggErr))
		r.metrics.RecordError("report_interrupted")
		ctx = context.WithoutCancel(ctx)
	}

	report := r.agg.BuildReport(tally, r.cfg.SourceName, r.cfg.Top)
	report.Partial = aggErr != nil
	var full []models.FrequencyEntry
	if r.cfg.ShowAll {
		full = tally.Ranked()
	}
	if err := PrintReport(r.out, report, full); err != nil {
		r.log.Warn("print report failed", logger.Error(err))
	}
	r.deliver(ctx, report)

	r.mu.Lock()
	r.last = report
	r.mu.Unlock()

	r.metrics.RecordLatency("report_run", time.Since(start).Seconds())
	r.log.Info("report run finished",
		logger.String("run_id", report.RunID),
		logger.Int("distinct", report.Distinct),
		logger.Int("documents_counted", report.DocumentsCounted),
		logger.Int("documents_skipped", report.DocumentsSkipped),
		logger.Bool("partial", report.Partial),
		logger.Duration("took", time.Since(start)))
	return report, aggErr
}

// aggregate streams the source when it supports it, otherwise loads it whole
// and classifies on the worker pool. A nil tally means the source failed.
func (r *ReportRunner) aggregate(ctx context.Context) (*aggregator.Tally, error) {
	if st, ok := r.src.(drepo.DocumentStream); ok {
		r.log.Info("report run started",
			logger.String("source", r.cfg.SourceName), logger.String("mode", "stream"))
		docs, errc := st.Stream(ctx)
		tally, err := r.agg.AggregateStream(ctx, docs)
		if err != nil {
			return tally, err
		}
		if err := <-errc; err != nil {
			if ctx.Err() != nil {
				return tally, ctx.Err()
			}
			return nil, fmt.Errorf("load documents: %w", err)
		}
		return tally, nil
	}

	docs, err := r.src.Documents(ctx)
	if err != nil {
		return nil, fmt.Errorf("load documents: %w", err)
	}
	r.log.Info("report run started",
		logger.String("source", r.cfg.SourceName), logger.Int("documents", len(docs)))
	return r.agg.AggregateParallel(ctx, docs, r.cfg.Workers)
}

// deliver fans the report out. A failing sink never fails the run.
func (r *ReportRunner) deliver(ctx context.Context, report *models.Report) {
	if r.sinks.Latest != nil {
		if err := r.sinks.Latest.SaveReport(ctx, report); err != nil {
			r.sinkFailed("cache", err)
		} else {
			r.metrics.RecordMessageSent("cache", "report")
		}
	}
	if r.sinks.Publisher != nil {
		if err := r.sinks.Publisher.PublishReport(ctx, report); err != nil {
			r.sinkFailed("kafka", err)
		} else {
			r.metrics.RecordMessageSent("kafka", "report")
		}
	}
	if r.sinks.Storage != nil {
		if err := r.sinks.Storage.StoreReport(ctx, report); err != nil {
			r.sinkFailed("clickhouse", err)
		} else {
			r.metrics.RecordMessageSent("clickhouse", "report")
		}
	}
}

func (r *ReportRunner) sinkFailed(backend string, err error) {
	r.metrics.RecordError("report_" + backend)
	r.log.Warn("report sink failed", logger.String("backend", backend), logger.Error(err))
}

// Start runs once when no schedule is configured, otherwise on the cron
// schedule until Stop.
func (r *ReportRunner) Start(ctx context.Context) error {
	if r.cfg.Schedule == "" {
		r.runWG.Add(1)
		go func() {
			defer r.runWG.Done()
			if _, err := r.Run(ctx); err != nil && ctx.Err() == nil {
				r.log.Error("report run failed", logger.Error(err))
			}
		}()
		return nil
	}

	c := cron.New()
	_, err := c.AddFunc(r.cfg.Schedule, func() {
		r.runWG.Add(1)
		defer r.runWG.Done()
		if _, err := r.Run(ctx); err != nil && ctx.Err() == nil {
			r.log.Error("scheduled report run failed", logger.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("report schedule %q: %v: %w", r.cfg.Schedule, err, models.ErrConfiguration)
	}
	r.mu.Lock()
	r.cron = c
	r.mu.Unlock()
	c.Start()
	r.log.Info("report schedule started", logger.String("schedule", r.cfg.Schedule))
	return nil
}

// Stop halts the schedule and waits for an in-flight run or ctx.
func (r *ReportRunner) Stop(ctx context.Context) error {
	r.mu.Lock()
	c := r.cron
	r.cron = nil
	r.mu.Unlock()
	if c != nil {
		<-c.Stop().Done()
	}

	done := make(chan struct{})
	go func() {
		r.runWG.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PrintReport writes the human-readable report. full, when non-empty, is
// listed after the top entries.
func PrintReport(w io.Writer, r *models.Report, full []models.FrequencyEntry) error {
	if _, err := fmt.Fprintf(w,
		"\nConfiguration: Source %s. Documents counted: %d of %d. Minimum submission score: %d. Minimum comment score: %d\n",
		r.Source, r.DocumentsCounted, r.DocumentsSeen, r.SubmissionThreshold, r.CommentThreshold); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "\nTop %d talked about stocks:\n", len(r.Entries)); err != nil {
		return err
	}
	for _, e := range r.Entries {
		if _, err := fmt.Fprintf(w, "[%s] - %s: %d occurances\n", e.Ticker, e.Name, e.Count); err != nil {
			return err
		}
	}
	if r.Partial {
		if _, err := fmt.Fprint(w, "(run interrupted, counts are partial)\n"); err != nil {
			return err
		}
	}
	if len(full) == 0 {
		return nil
	}
	if _, err := fmt.Fprint(w, "\nFull List of stocks found:\n"); err != nil {
		return err
	}
	for _, e := range full {
		if _, err := fmt.Fprintf(w, "%s: %s\n", e.Ticker, e.Name); err != nil {
			return err
		}
	}
	return nil
}
