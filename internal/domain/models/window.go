package models

import "time"

// WindowPoint is one retained snapshot plus its per-tick deltas.
type WindowPoint struct {
	Timestamp  time.Time `json:"timestamp"`
	Price      float64   `json:"price"`
	Volume     float64   `json:"volume"`
	CallVolume float64   `json:"call_volume"`
	PutVolume  float64   `json:"put_volume"`
	CallDiff   float64   `json:"call_diff"`
	PutDiff    float64   `json:"put_diff"`
	VolumeDiff float64   `json:"volume_diff"`
}

// Bounds is an axis range for one series.
type Bounds struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Annotations carry display text for a rendering collaborator.
type Annotations struct {
	Title    string   `json:"title"`
	Subtitle string   `json:"subtitle"`
	Target   *float64 `json:"target,omitempty"`
}

// Frame is the published, read-only view of a window after one update.
type Frame struct {
	Symbol      string            `json:"symbol"`
	Name        string            `json:"name"`
	Phase       string            `json:"phase"`
	UpdatedAt   time.Time         `json:"updated_at"`
	Points      []WindowPoint     `json:"points"`
	Bounds      map[string]Bounds `json:"bounds"`
	Annotations Annotations       `json:"annotations"`
}

// Latest returns the newest point, if any.
func (f *Frame) Latest() (WindowPoint, bool) {
	if f == nil || len(f.Points) == 0 {
		return WindowPoint{}, false
	}
	return f.Points[len(f.Points)-1], true
}
