package api

import (
	"github.com/labstack/echo/v4"

	"TickerPulse/internal/domain/models"
	drepo "TickerPulse/internal/domain/repository"
	xhttp "TickerPulse/pkg/http"
	xlogger "TickerPulse/pkg/logger"
)

// LastReporter exposes the most recent in-process report.
type LastReporter interface {
	Last() *models.Report
}

type ReportHandler struct {
	logger *xlogger.Logger
	latest drepo.LatestStore
	local  LastReporter
}

// NewReportHandler serves the newest report from latest, falling back to
// local when the store has none or fails. Either may be nil.
func NewReportHandler(logger *xlogger.Logger, latest drepo.LatestStore, local LastReporter) *ReportHandler {
	return &ReportHandler{logger: logger, latest: latest, local: local}
}

func (h *ReportHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/report")
	g.GET("/latest", h.Latest)
}

func (h *ReportHandler) Latest(c echo.Context) error {
	var (
		report *models.Report
		err    error
	)
	if h.latest != nil {
		report, err = h.latest.LatestReport(c.Request().Context())
		if err != nil {
			h.logger.Warn("latest report lookup failed", xlogger.Error(err))
		}
	}
	if report == nil && h.local != nil {
		report = h.local.Last()
	}
	if report == nil {
		if err != nil {
			return xhttp.AppErrorResponse(c, toAppError(err))
		}
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("no report has been produced yet"))
	}
	return xhttp.SuccessResponse(c, report)
}
