package models

import "time"

// Snapshot is one timestamped market reading for a tracked symbol.
// Numeric fields are pointers so that a feed can report them as absent.
type Snapshot struct {
	Symbol        string    `json:"symbol"`
	Name          string    `json:"name,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
	Price         *float64  `json:"price"`
	TotalVolume   *float64  `json:"total_volume"`
	CallVolume    *float64  `json:"call_volume"`
	PutVolume     *float64  `json:"put_volume"`
	PercentChange *float64  `json:"percent_change,omitempty"`
}

// NewSnapshot builds a fully populated snapshot.
func NewSnapshot(symbol string, ts time.Time, price, volume, calls, puts float64) *Snapshot {
	return &Snapshot{
		Symbol:      symbol,
		Timestamp:   ts,
		Price:       &price,
		TotalVolume: &volume,
		CallVolume:  &calls,
		PutVolume:   &puts,
	}
}

// Missing returns the name of the first absent required field, or "".
func (s *Snapshot) Missing() string {
	switch {
	case s.Timestamp.IsZero():
		return "timestamp"
	case s.Price == nil:
		return "price"
	case s.TotalVolume == nil:
		return "total_volume"
	case s.CallVolume == nil:
		return "call_volume"
	case s.PutVolume == nil:
		return "put_volume"
	}
	return ""
}
