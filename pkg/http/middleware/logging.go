package middleware

import (
	"time"

	"github.com/labstack/echo/v4"

	"TickerPulse/pkg/logger"
)

// RequestLogging logs HTTP requests. 5xx responses are logged at error,
// requests slower than slow (when positive) at warn, the rest at debug.
func RequestLogging(log *logger.Logger, slow time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			res := c.Response()
			latency := time.Since(start)
			fields := []logger.Field{
				logger.String("method", req.Method),
				logger.String("route", routeLabel(c)),
				logger.String("remote", c.RealIP()),
				logger.Int("status", res.Status),
				logger.Duration("duration_ms", latency),
				logger.Int("bytes", int(res.Size)),
			}

			switch {
			case res.Status >= 500:
				log.Error("http request failed", fields...)
			case slow > 0 && latency >= slow:
				log.Warn("http request slow", fields...)
			default:
				log.Debug("http request", fields...)
			}
			return nil
		}
	}
}
