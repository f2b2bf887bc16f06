package window

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"TickerPulse/internal/domain/models"
)

// Series names used as Frame.Bounds keys.
const (
	SeriesPrice      = "price"
	SeriesVolume     = "volume"
	SeriesCallVolume = "call_volume"
	SeriesPutVolume  = "put_volume"
	SeriesCallDiff   = "call_diff"
	SeriesPutDiff    = "put_diff"
	SeriesVolumeDiff = "volume_diff"
)

type seriesDef struct {
	name    string
	floored bool // volume-like, lower bound never below zero
	value   func(models.WindowPoint) float64
}

var tracked = []seriesDef{
	{SeriesPrice, false, func(p models.WindowPoint) float64 { return p.Price }},
	{SeriesVolume, true, func(p models.WindowPoint) float64 { return p.Volume }},
	{SeriesCallVolume, true, func(p models.WindowPoint) float64 { return p.CallVolume }},
	{SeriesPutVolume, true, func(p models.WindowPoint) float64 { return p.PutVolume }},
	{SeriesCallDiff, false, func(p models.WindowPoint) float64 { return p.CallDiff }},
	{SeriesPutDiff, false, func(p models.WindowPoint) float64 { return p.PutDiff }},
	{SeriesVolumeDiff, true, func(p models.WindowPoint) float64 { return p.VolumeDiff }},
}

// recomputeBounds returns the bounds for points. A series keeps its previous
// bounds unless it has none yet, entries were evicted, or a retained value
// reaches or crosses the current range.
func recomputeBounds(prev map[string]models.Bounds, points []models.WindowPoint, evicted bool) map[string]models.Bounds {
	out := make(map[string]models.Bounds, len(tracked))
	values := make([]float64, len(points))
	for _, def := range tracked {
		lo, hi := math.Inf(1), math.Inf(-1)
		for i, p := range points {
			v := def.value(p)
			values[i] = v
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}

		cur, ok := prev[def.name]
		if ok && !evicted && lo > cur.Min && hi < cur.Max {
			out[def.name] = cur
			continue
		}
		out[def.name] = span(values, lo, hi, def.floored)
	}
	return out
}

// span is [min-σ, max+σ] with σ the population standard deviation, or
// [min-1, max+1] for a constant series.
func span(values []float64, lo, hi float64, floored bool) models.Bounds {
	var b models.Bounds
	if lo == hi {
		b = models.Bounds{Min: lo - 1, Max: hi + 1}
	} else {
		sd := stat.PopStdDev(values, nil)
		b = models.Bounds{Min: lo - sd, Max: hi + sd}
	}
	if floored && b.Min < 0 {
		b.Min = 0
	}
	return b
}
