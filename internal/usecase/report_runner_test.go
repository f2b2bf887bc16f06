package usecase

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TickerPulse/internal/domain/models"
	"TickerPulse/internal/services/aggregator"
)

func reportDocs() []*models.Document {
	return []*models.Document{
		{ID: "1", Text: "GME to the moon", Score: 100, Comments: []models.Comment{
			{Body: "GME and AMC", Score: 10, Author: "alice"},
			{Body: "TSLA", Score: 2, Author: "bob"},
		}},
		{ID: "2", Text: "AMC GME", Score: 50},
		{ID: "3", Text: "PLTR", Score: 1},
	}
}

func newTestRunner(t *testing.T, src staticSource, sinks ReportSinks, lock Locker, cfg ReportConfig) (*ReportRunner, *bytes.Buffer) {
	t.Helper()
	agg, err := aggregator.New(newTestClassifier(t))
	require.NoError(t, err)
	r, err := NewReportRunner(agg, src, sinks, lock, cfg, nil, nil)
	require.NoError(t, err)
	var out bytes.Buffer
	r.SetOutput(&out)
	return r, &out
}

func TestReportRunnerRun(t *testing.T) {
	sinks := &fakeSinks{}
	lock := &fakeLocker{}
	r, out := newTestRunner(t, staticSource{docs: reportDocs()},
		ReportSinks{Latest: sinks, Publisher: sinks, Storage: sinks}, lock,
		ReportConfig{SourceName: "file:dump.json", Top: 5, Workers: 2})

	report, err := r.Run(context.Background())
	require.NoError(t, err)
	require.NotNil(t, report)

	assert.Equal(t, "file:dump.json", report.Source)
	assert.Equal(t, 3, report.DocumentsSeen)
	assert.Equal(t, 2, report.DocumentsCounted)
	assert.Equal(t, 2, report.Distinct)
	assert.Equal(t, []models.FrequencyEntry{
		{Ticker: "GME", Name: "GameStop Corp. Class A", Count: 3},
		{Ticker: "AMC", Name: "AMC Entertainment Holdings Inc.", Count: 2},
	}, report.Entries)

	assert.Equal(t, 3, sinks.reportCount())
	assert.Same(t, report, r.Last())
	assert.False(t, lock.held)
	assert.Equal(t, 1, lock.unlock)

	text := out.String()
	assert.Contains(t, text, "\nConfiguration: Source file:dump.json.")
	assert.Contains(t, text, "\nTop 2 talked about stocks:\n")
	assert.Contains(t, text, "[GME] - GameStop Corp. Class A: 3 occurances\n")
	assert.NotContains(t, text, "Full List of stocks found")
}

func TestReportRunnerSkipsWhenLocked(t *testing.T) {
	lock := &fakeLocker{held: true}
	r, out := newTestRunner(t, staticSource{docs: reportDocs()}, ReportSinks{}, lock, ReportConfig{Top: 5})

	report, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Nil(t, report)
	assert.Empty(t, out.String())
	assert.Zero(t, lock.unlock)
}

func TestReportRunnerRunsUnlockedWhenLockFails(t *testing.T) {
	r, _ := newTestRunner(t, staticSource{docs: reportDocs()}, ReportSinks{}, &fakeLocker{err: errBoom}, ReportConfig{Top: 1})

	report, err := r.Run(context.Background())
	require.NoError(t, err)
	require.NotNil(t, report)
	assert.Len(t, report.Entries, 1)
}

func TestReportRunnerSinkFailureDoesNotFailRun(t *testing.T) {
	sinks := &fakeSinks{err: errBoom}
	r, _ := newTestRunner(t, staticSource{docs: reportDocs()},
		ReportSinks{Latest: sinks, Publisher: sinks, Storage: sinks}, nil, ReportConfig{Top: 5})

	report, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, report)
	assert.Equal(t, 3, sinks.reportCount())
}

func TestReportRunnerSourceError(t *testing.T) {
	r, _ := newTestRunner(t, staticSource{err: models.ErrTransientSource}, ReportSinks{}, nil, ReportConfig{})

	_, err := r.Run(context.Background())
	assert.ErrorIs(t, err, models.ErrTransientSource)
}

func TestReportRunnerCancelled(t *testing.T) {
	r, _ := newTestRunner(t, staticSource{docs: reportDocs()}, ReportSinks{}, nil, ReportConfig{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := r.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, report)
	assert.True(t, report.Partial)
	assert.Empty(t, report.Entries)
}

type cancellingExpander struct {
	cancel context.CancelFunc
	calls  int
}

func (e *cancellingExpander) Expand(context.Context, *models.Document) ([]models.Comment, error) {
	e.calls++
	e.cancel()
	return []models.Comment{{Body: "GME again", Score: 10, Author: "carol"}}, nil
}

func TestReportRunnerCancelledMidRunDeliversPartial(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	exp := &cancellingExpander{cancel: cancel}

	agg, err := aggregator.New(newTestClassifier(t), aggregator.WithExpander(exp))
	require.NoError(t, err)
	sinks := &fakeSinks{}
	lock := &fakeLocker{}
	docs := []*models.Document{
		{ID: "1", Text: "GME to the moon", Score: 100, MoreComments: true},
		{ID: "2", Text: "AMC GME", Score: 50},
	}
	r, err := NewReportRunner(agg, staticSource{docs: docs},
		ReportSinks{Latest: sinks, Publisher: sinks, Storage: sinks}, lock,
		ReportConfig{SourceName: "kafka", Top: 5}, nil, nil)
	require.NoError(t, err)
	var out bytes.Buffer
	r.SetOutput(&out)

	report, err := r.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, report)
	assert.Equal(t, 1, exp.calls)

	assert.True(t, report.Partial)
	assert.Equal(t, 1, report.DocumentsSeen)
	assert.Equal(t, 1, report.DocumentsCounted)
	assert.Equal(t, []models.FrequencyEntry{
		{Ticker: "GME", Name: "GameStop Corp. Class A", Count: 2},
	}, report.Entries)

	assert.Equal(t, 3, sinks.reportCount())
	assert.Zero(t, sinks.deadCtx)
	assert.Same(t, report, r.Last())
	assert.Equal(t, 1, lock.unlock)
	assert.Contains(t, out.String(), "[GME] - GameStop Corp. Class A: 2 occurances\n")
	assert.Contains(t, out.String(), "counts are partial")
}

func TestReportRunnerShowAll(t *testing.T) {
	r, out := newTestRunner(t, staticSource{docs: reportDocs()}, ReportSinks{}, nil, ReportConfig{Top: 1, ShowAll: true})

	_, err := r.Run(context.Background())
	require.NoError(t, err)
	text := out.String()
	assert.Contains(t, text, "\nTop 1 talked about stocks:\n")
	assert.Contains(t, text, "\nFull List of stocks found:\n")
	assert.Contains(t, text, "AMC: AMC Entertainment Holdings Inc.\n")
}

func TestReportRunnerStartOnce(t *testing.T) {
	sinks := &fakeSinks{}
	r, _ := newTestRunner(t, staticSource{docs: reportDocs()}, ReportSinks{Latest: sinks}, nil, ReportConfig{Top: 3})

	require.NoError(t, r.Start(context.Background()))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, r.Stop(ctx))
	assert.Equal(t, 1, sinks.reportCount())
}

func TestReportRunnerInvalidSchedule(t *testing.T) {
	r, _ := newTestRunner(t, staticSource{}, ReportSinks{}, nil, ReportConfig{Schedule: "not a cron"})

	err := r.Start(context.Background())
	assert.ErrorIs(t, err, models.ErrConfiguration)
}

func TestReportRunnerSchedule(t *testing.T) {
	r, _ := newTestRunner(t, staticSource{}, ReportSinks{}, nil, ReportConfig{Schedule: "@every 1h"})

	require.NoError(t, r.Start(context.Background()))
	require.NoError(t, r.Stop(context.Background()))
	assert.Nil(t, r.Last())
}

func TestNewReportRunnerRequiresCollaborators(t *testing.T) {
	_, err := NewReportRunner(nil, staticSource{}, ReportSinks{}, nil, ReportConfig{}, nil, nil)
	assert.ErrorIs(t, err, models.ErrConfiguration)
}

func TestPrintReportEmpty(t *testing.T) {
	var out strings.Builder
	require.NoError(t, PrintReport(&out, &models.Report{Source: "kafka:docs"}, nil))
	assert.Contains(t, out.String(), "\nTop 0 talked about stocks:\n")
}

type pushSource struct {
	staticSource
	tail error
}

func (s pushSource) Stream(ctx context.Context) (<-chan *models.Document, <-chan error) {
	out := make(chan *models.Document)
	errc := make(chan error, 1)
	go func() {
		defer close(errc)
		defer close(out)
		for _, d := range s.docs {
			select {
			case out <- d:
			case <-ctx.Done():
				errc <- ctx.Err()
				return
			}
		}
		if s.tail != nil {
			errc <- s.tail
		}
	}()
	return out, errc
}

func TestReportRunnerStreamsWhenSourceSupportsIt(t *testing.T) {
	agg, err := aggregator.New(newTestClassifier(t))
	require.NoError(t, err)

	tests := []struct {
		name    string
		tail    error
		wantErr error
	}{
		{name: "stream", tail: nil},
		{name: "source fails after documents", tail: models.ErrTransientSource, wantErr: models.ErrTransientSource},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Documents would fail, so a report proves the stream was used
			src := pushSource{staticSource: staticSource{docs: reportDocs(), err: errBoom}, tail: tt.tail}
			r, err := NewReportRunner(agg, src, ReportSinks{}, nil, ReportConfig{Top: 5, Workers: 4}, nil, nil)
			require.NoError(t, err)
			r.SetOutput(&bytes.Buffer{})

			report, err := r.Run(context.Background())
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, report)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, report)
			assert.False(t, report.Partial)
			assert.Equal(t, 3, report.DocumentsSeen)
			assert.Equal(t, []models.FrequencyEntry{
				{Ticker: "GME", Name: "GameStop Corp. Class A", Count: 3},
				{Ticker: "AMC", Name: "AMC Entertainment Holdings Inc.", Count: 2},
			}, report.Entries)
		})
	}
}
