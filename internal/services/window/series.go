package window

import (
	"fmt"
	"math"
	"time"

	"TickerPulse/internal/domain/models"
)

// DefaultRetentionHours is the window length used when none is configured.
const DefaultRetentionHours = 0.5

type Phase string

const (
	PhaseEmpty  Phase = "EMPTY"
	PhaseWarm   Phase = "WARM"
	PhaseSteady Phase = "STEADY"
)

type Option func(*Series)

// WithRetentionHours sets how far behind the newest point entries are kept.
func WithRetentionHours(h float64) Option {
	return func(s *Series) { s.retentionHours = h }
}

// WithUnbounded disables eviction.
func WithUnbounded() Option {
	return func(s *Series) { s.unbounded = true }
}

// WithTarget adds a target price line to every frame.
func WithTarget(price float64) Option {
	return func(s *Series) { s.target = &price }
}

// Series holds the configuration of a rolling window. The window contents
// live in State values, so one Series can drive any number of symbols.
type Series struct {
	retentionHours float64
	retention      time.Duration
	unbounded      bool
	target         *float64
}

func New(opts ...Option) (*Series, error) {
	s := &Series{retentionHours: DefaultRetentionHours}
	for _, opt := range opts {
		opt(s)
	}
	if math.IsNaN(s.retentionHours) || math.IsInf(s.retentionHours, 0) || s.retentionHours < 0 {
		return nil, fmt.Errorf("%w: invalid window retention %v hours", models.ErrConfiguration, s.retentionHours)
	}
	s.retention = time.Duration(s.retentionHours * float64(time.Hour))
	return s, nil
}

func (s *Series) Retention() time.Duration { return s.retention }
func (s *Series) Unbounded() bool          { return s.unbounded }

// State is an immutable window value. The zero State is an empty window.
// Points are shared between successive states but never written after
// they are published.
type State struct {
	symbol  string
	name    string
	points  []models.WindowPoint
	bounds  map[string]models.Bounds
	updates int
	pct     *float64
}

// Phase is EMPTY before the first accepted snapshot, WARM after it and
// STEADY from the second on.
func (st State) Phase() Phase {
	switch st.updates {
	case 0:
		return PhaseEmpty
	case 1:
		return PhaseWarm
	default:
		return PhaseSteady
	}
}

func (st State) Len() int { return len(st.points) }

// Points returns the retained points, oldest first. Callers must not modify it.
func (st State) Points() []models.WindowPoint { return st.points }

// Bounds returns the bounds of one series.
func (st State) Bounds(series string) (models.Bounds, bool) {
	b, ok := st.bounds[series]
	return b, ok
}

func (st State) latest() (models.WindowPoint, bool) {
	if len(st.points) == 0 {
		return models.WindowPoint{}, false
	}
	return st.points[len(st.points)-1], true
}

// Update applies one snapshot. On a rejected snapshot the previous state is
// returned unchanged together with a nil frame and an error wrapping
// ErrTransientSource (nil snapshot) or ErrMalformedInput.
func (s *Series) Update(st State, snap *models.Snapshot) (State, *models.Frame, error) {
	if snap == nil {
		return st, nil, fmt.Errorf("%w: no snapshot received", models.ErrTransientSource)
	}
	if field := snap.Missing(); field != "" {
		return st, nil, fmt.Errorf("%w: snapshot for %s missing %s", models.ErrMalformedInput, snap.Symbol, field)
	}
	prev, hasPrev := st.latest()
	if hasPrev && snap.Timestamp.Before(prev.Timestamp) {
		return st, nil, fmt.Errorf("%w: snapshot for %s at %s is older than %s",
			models.ErrMalformedInput, snap.Symbol, snap.Timestamp.Format(time.RFC3339), prev.Timestamp.Format(time.RFC3339))
	}

	p := models.WindowPoint{
		Timestamp:  snap.Timestamp,
		Price:      *snap.Price,
		Volume:     *snap.TotalVolume,
		CallVolume: *snap.CallVolume,
		PutVolume:  *snap.PutVolume,
	}
	if hasPrev {
		p.CallDiff = p.CallVolume - prev.CallVolume
		p.PutDiff = p.PutVolume - prev.PutVolume
		p.VolumeDiff = p.Volume - prev.Volume
	}

	points := append(st.points[:len(st.points):len(st.points)], p)
	evicted := 0
	if !s.unbounded {
		points, evicted = evict(points, p.Timestamp.Add(-s.retention))
	}

	next := State{
		symbol:  snap.Symbol,
		name:    st.name,
		points:  points,
		bounds:  recomputeBounds(st.bounds, points, evicted > 0),
		updates: st.updates + 1,
		pct:     snap.PercentChange,
	}
	if snap.Name != "" {
		next.name = snap.Name
	}
	return next, s.frame(next), nil
}

// evict drops leading points older than cutoff. The newest point always stays.
func evict(points []models.WindowPoint, cutoff time.Time) ([]models.WindowPoint, int) {
	i := 0
	for i < len(points)-1 && points[i].Timestamp.Before(cutoff) {
		i++
	}
	return points[i:], i
}

// Frame publishes st without applying an update.
func (s *Series) Frame(st State) *models.Frame {
	if st.updates == 0 {
		return nil
	}
	return s.frame(st)
}

func (s *Series) frame(st State) *models.Frame {
	bounds := make(map[string]models.Bounds, len(st.bounds))
	for k, v := range st.bounds {
		bounds[k] = v
	}
	latest, _ := st.latest()
	return &models.Frame{
		Symbol:      st.symbol,
		Name:        st.name,
		Phase:       string(st.Phase()),
		UpdatedAt:   latest.Timestamp,
		Points:      st.points[:len(st.points):len(st.points)],
		Bounds:      bounds,
		Annotations: annotate(st, latest, s.target),
	}
}
