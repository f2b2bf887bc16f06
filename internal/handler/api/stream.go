package api

import (
	"github.com/labstack/echo/v4"

	"TickerPulse/internal/domain/models"
	xhttp "TickerPulse/pkg/http"
	xlogger "TickerPulse/pkg/logger"
)

// RunningTally is the mention count kept by the comment stream.
type RunningTally interface {
	Top(k int) []models.FrequencyEntry
}

type StreamHandler struct {
	logger *xlogger.Logger
	tally  RunningTally
}

// NewStreamHandler serves the stream's running tally. tally is nil when
// stream mode is off.
func NewStreamHandler(logger *xlogger.Logger, tally RunningTally) *StreamHandler {
	return &StreamHandler{logger: logger, tally: tally}
}

func (h *StreamHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/api/stream/top", h.Top)
}

func (h *StreamHandler) Top(c echo.Context) error {
	req := &models.StreamTopRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if h.tally == nil {
		return xhttp.AppErrorResponse(c, xhttp.UnavailableError("stream mode is not enabled"))
	}
	return xhttp.ListResponse(c, h.tally.Top(req.K))
}
