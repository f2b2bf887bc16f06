package http

import (
	"time"

	"github.com/labstack/echo/v4"

	xutil "TickerPulse/pkg/util"
)

// QueryInt reads an integer query parameter or returns def.
func QueryInt(c echo.Context, name string, def int) int {
	return xutil.ParseIntDefault(c.QueryParam(name), def)
}

// QueryTimeRange reads "from" and "to" query parameters. Missing values fall
// back to [now-lookback, now]. ok is false when a supplied value is
// unparsable or the range is inverted.
func QueryTimeRange(c echo.Context, lookback time.Duration) (TimeRange, bool) {
	now := time.Now().UTC()
	rng := TimeRange{From: now.Add(-lookback), To: now}
	if s := c.QueryParam("from"); s != "" {
		t, ok := xutil.ParseTime(s)
		if !ok {
			return rng, false
		}
		rng.From = t
	}
	if s := c.QueryParam("to"); s != "" {
		t, ok := xutil.ParseTime(s)
		if !ok {
			return rng, false
		}
		rng.To = t
	}
	return rng, !rng.To.Before(rng.From)
}
