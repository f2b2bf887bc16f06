package window

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TickerPulse/internal/domain/models"
)

var t0 = time.Date(2021, 2, 1, 14, 30, 0, 0, time.UTC)

func snap(offset time.Duration, price, volume, calls, puts float64) *models.Snapshot {
	return models.NewSnapshot("GME", t0.Add(offset), price, volume, calls, puts)
}

func newSeries(t *testing.T, opts ...Option) *Series {
	t.Helper()
	s, err := New(opts...)
	require.NoError(t, err)
	return s
}

func apply(t *testing.T, s *Series, st State, sn *models.Snapshot) (State, *models.Frame) {
	t.Helper()
	next, frame, err := s.Update(st, sn)
	require.NoError(t, err)
	return next, frame
}

func TestFirstUpdateIsWarmWithZeroDiffs(t *testing.T) {
	s := newSeries(t)
	var st State
	assert.Equal(t, PhaseEmpty, st.Phase())

	st, frame := apply(t, s, st, snap(0, 40, 1000, 500, 300))
	assert.Equal(t, PhaseWarm, st.Phase())
	require.Len(t, frame.Points, 1)
	p := frame.Points[0]
	assert.Zero(t, p.CallDiff)
	assert.Zero(t, p.PutDiff)
	assert.Zero(t, p.VolumeDiff)
	assert.Equal(t, "WARM", frame.Phase)
}

func TestDiffsAgainstPreviousSnapshot(t *testing.T) {
	s := newSeries(t)
	st, _ := apply(t, s, State{}, snap(0, 40, 1000, 500, 300))
	st, frame := apply(t, s, st, snap(time.Minute, 41, 1200, 550, 290))

	assert.Equal(t, PhaseSteady, st.Phase())
	latest, ok := frame.Latest()
	require.True(t, ok)
	assert.Equal(t, 50.0, latest.CallDiff)
	assert.Equal(t, -10.0, latest.PutDiff)
	assert.Equal(t, 200.0, latest.VolumeDiff)
}

func TestEvictionKeepsRetentionWindow(t *testing.T) {
	s := newSeries(t, WithRetentionHours(1))
	var st State
	for m := 0; m <= 180; m += 10 {
		st, _ = apply(t, s, st, snap(time.Duration(m)*time.Minute, 40, float64(m), 0, 0))
	}

	points := st.Points()
	oldest, newest := points[0].Timestamp, points[len(points)-1].Timestamp
	assert.LessOrEqual(t, newest.Sub(oldest), time.Hour)
	assert.Equal(t, t0.Add(3*time.Hour), newest)
	assert.Len(t, points, 7)
}

func TestZeroRetentionKeepsLatest(t *testing.T) {
	s := newSeries(t, WithRetentionHours(0))
	var st State
	for i := 0; i < 5; i++ {
		st, _ = apply(t, s, st, snap(time.Duration(i)*time.Second, float64(40+i), 100, 0, 0))
	}
	require.Equal(t, 1, st.Len())
	assert.Equal(t, 44.0, st.Points()[0].Price)
	assert.Equal(t, PhaseSteady, st.Phase())
}

func TestUnboundedKeepsEverything(t *testing.T) {
	s := newSeries(t, WithRetentionHours(0), WithUnbounded())
	var st State
	for i := 0; i < 5; i++ {
		st, _ = apply(t, s, st, snap(time.Duration(i)*time.Hour, 40, 100, 0, 0))
	}
	assert.Equal(t, 5, st.Len())
}

func TestConstantSeriesBoundsNeverZeroWidth(t *testing.T) {
	s := newSeries(t)
	var st State
	for i := 0; i < 4; i++ {
		st, _ = apply(t, s, st, snap(time.Duration(i)*time.Second, 10, 10, 10, 10))
	}
	b, ok := st.Bounds(SeriesPrice)
	require.True(t, ok)
	assert.Equal(t, models.Bounds{Min: 9, Max: 11}, b)
}

func TestBoundsUsePopulationStdDev(t *testing.T) {
	s := newSeries(t)
	st, _ := apply(t, s, State{}, snap(0, 2, 0, 0, 0))
	st, _ = apply(t, s, st, snap(time.Second, 4, 0, 0, 0))

	// population σ of {2, 4} is 1
	b, _ := st.Bounds(SeriesPrice)
	assert.InDelta(t, 1.0, b.Min, 1e-9)
	assert.InDelta(t, 5.0, b.Max, 1e-9)
}

func TestBoundsKeptWhileInsideRange(t *testing.T) {
	s := newSeries(t)
	st, _ := apply(t, s, State{}, snap(0, 2, 0, 0, 0))
	st, _ = apply(t, s, st, snap(time.Second, 4, 0, 0, 0))
	before, _ := st.Bounds(SeriesPrice)

	st, _ = apply(t, s, st, snap(2*time.Second, 3, 0, 0, 0))
	after, _ := st.Bounds(SeriesPrice)
	assert.Equal(t, before, after)

	st, _ = apply(t, s, st, snap(3*time.Second, 6, 0, 0, 0))
	grown, _ := st.Bounds(SeriesPrice)
	assert.Greater(t, grown.Max, 6.0)
}

func TestVolumeBoundsFloorAtZero(t *testing.T) {
	s := newSeries(t)
	st, _ := apply(t, s, State{}, snap(0, 10, 0, 0, 0))
	st, _ = apply(t, s, st, snap(time.Second, 10, 100, 0, 0))

	vol, _ := st.Bounds(SeriesVolume)
	assert.Equal(t, 0.0, vol.Min)
	vdiff, _ := st.Bounds(SeriesVolumeDiff)
	assert.Equal(t, 0.0, vdiff.Min)

	price, _ := st.Bounds(SeriesPrice)
	assert.Equal(t, 9.0, price.Min)
}

func TestRejectedSnapshotsKeepState(t *testing.T) {
	s := newSeries(t)
	st, _ := apply(t, s, State{}, snap(time.Minute, 40, 1000, 500, 300))

	missing := snap(2*time.Minute, 41, 1000, 500, 300)
	missing.CallVolume = nil

	tests := []struct {
		name    string
		snap    *models.Snapshot
		wantErr error
	}{
		{name: "nil snapshot", snap: nil, wantErr: models.ErrTransientSource},
		{name: "missing call volume", snap: missing, wantErr: models.ErrMalformedInput},
		{name: "zero timestamp", snap: &models.Snapshot{Symbol: "GME"}, wantErr: models.ErrMalformedInput},
		{name: "out of order", snap: snap(0, 39, 900, 400, 200), wantErr: models.ErrMalformedInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, frame, err := s.Update(st, tt.snap)
			require.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, frame)
			assert.Equal(t, st, next)
		})
	}
}

func TestStatesAreImmutable(t *testing.T) {
	s := newSeries(t, WithUnbounded())
	st1, f1 := apply(t, s, State{}, snap(0, 40, 1, 1, 1))
	st2, _ := apply(t, s, st1, snap(time.Second, 41, 2, 2, 2))
	_, _ = apply(t, s, st1, snap(2*time.Second, 99, 3, 3, 3))

	assert.Equal(t, 1, st1.Len())
	assert.Len(t, f1.Points, 1)
	require.Equal(t, 2, st2.Len())
	assert.Equal(t, 41.0, st2.Points()[1].Price)
}

func TestNewRejectsBadRetention(t *testing.T) {
	for _, h := range []float64{-1, math.NaN(), math.Inf(1)} {
		_, err := New(WithRetentionHours(h))
		assert.ErrorIs(t, err, models.ErrConfiguration)
	}
	s := newSeries(t)
	assert.Equal(t, 30*time.Minute, s.Retention())
}

func TestAnnotations(t *testing.T) {
	s := newSeries(t, WithTarget(420))
	sn := snap(0, 52.4019, 1000, 12345, 6789)
	sn.Name = "GameStop Corporation Common Stock ClassA Voting"
	pct := 3.14159
	sn.PercentChange = &pct

	_, frame := apply(t, s, State{}, sn)
	assert.Equal(t, "GameStop Corporation Common Stock ClassA (GME): $52.402 (3.14%)", frame.Annotations.Title)
	assert.Equal(t, "Total Call Volume: 12,345 - Total Put Volume: 6,789", frame.Annotations.Subtitle)
	require.NotNil(t, frame.Annotations.Target)
	assert.Equal(t, 420.0, *frame.Annotations.Target)
}
