package api

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"TickerPulse/internal/domain/models"
	drepo "TickerPulse/internal/domain/repository"
	xhttp "TickerPulse/pkg/http"
	xlogger "TickerPulse/pkg/logger"
)

const historyLookback = time.Hour

// FrameLister lists the symbols with a cached frame.
type FrameLister interface {
	FrameSymbols(ctx context.Context) ([]string, error)
}

// LocalFrames exposes frames held by in-process live windows.
type LocalFrames interface {
	Frame(symbol string) (*models.Frame, bool)
}

type WindowHandler struct {
	logger  *xlogger.Logger
	latest  drepo.LatestStore
	lister  FrameLister
	local   LocalFrames
	storage drepo.Storage
	tracked []string
}

// NewWindowHandler serves window frames. tracked lists the symbols this
// process drives; any collaborator may be nil.
func NewWindowHandler(
	logger *xlogger.Logger,
	latest drepo.LatestStore,
	lister FrameLister,
	local LocalFrames,
	storage drepo.Storage,
	tracked []string,
) *WindowHandler {
	return &WindowHandler{
		logger:  logger,
		latest:  latest,
		lister:  lister,
		local:   local,
		storage: storage,
		tracked: tracked,
	}
}

func (h *WindowHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/window")
	g.GET("", h.List)
	g.GET("/:symbol", h.Frame)
	g.GET("/:symbol/history", h.History)
}

// List returns every symbol with a frame, cached or local.
func (h *WindowHandler) List(c echo.Context) error {
	seen := make(map[string]struct{})
	for _, s := range h.tracked {
		seen[s] = struct{}{}
	}
	if h.lister != nil {
		syms, err := h.lister.FrameSymbols(c.Request().Context())
		if err != nil {
			h.logger.Warn("frame symbol listing failed", xlogger.Error(err))
		}
		for _, s := range syms {
			seen[s] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	sort.Strings(out)
	return xhttp.ListResponse(c, out)
}

func (h *WindowHandler) Frame(c echo.Context) error {
	symbol := strings.ToUpper(strings.TrimSpace(c.Param("symbol")))
	if symbol == "" {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("symbol is required"))
	}

	if h.local != nil {
		if f, ok := h.local.Frame(symbol); ok {
			return xhttp.SuccessResponse(c, f)
		}
	}
	if h.latest != nil {
		f, err := h.latest.Frame(c.Request().Context(), symbol)
		if err != nil {
			h.logger.Warn("frame lookup failed", xlogger.String("symbol", symbol), xlogger.Error(err))
			return xhttp.AppErrorResponse(c, toAppError(err))
		}
		if f != nil {
			return xhttp.SuccessResponse(c, f)
		}
	}
	return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("no window frame for %s", symbol))
}

// History returns stored ticks for a symbol between from and to, defaulting
// to the last hour.
func (h *WindowHandler) History(c echo.Context) error {
	req := &models.WindowHistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	rng, ok := xhttp.QueryTimeRange(c, historyLookback)
	if !ok {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("invalid time range"))
	}
	if h.storage == nil {
		return xhttp.AppErrorResponse(c, xhttp.UnavailableError("tick storage is not configured"))
	}

	symbol := strings.ToUpper(req.Symbol)
	points, err := h.storage.QueryTicks(c.Request().Context(), symbol, rng.From, rng.To, req.Limit)
	if err != nil {
		h.logger.Error("tick history query failed", xlogger.String("symbol", symbol), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	return xhttp.ListResponse(c, points)
}
