package api

import (
	"context"

	"github.com/labstack/echo/v4"

	"TickerPulse/internal/domain/models"
	xhttp "TickerPulse/pkg/http"
	xlogger "TickerPulse/pkg/logger"
)

// IgnoreList is the ignore list use case as seen by HTTP.
type IgnoreList interface {
	List() []string
	Add(ctx context.Context, items ...string) ([]string, error)
}

type IgnoreHandler struct {
	logger *xlogger.Logger
	uc     IgnoreList
}

func NewIgnoreHandler(logger *xlogger.Logger, uc IgnoreList) *IgnoreHandler {
	return &IgnoreHandler{logger: logger, uc: uc}
}

func (h *IgnoreHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/ignore")
	g.GET("", h.List)
	g.POST("", h.Add)
}

func (h *IgnoreHandler) List(c echo.Context) error {
	items := h.uc.List()
	return xhttp.SuccessResponse(c, &models.IgnoreResponse{Items: items, Total: len(items)})
}

func (h *IgnoreHandler) Add(c echo.Context) error {
	req := &models.IgnoreRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	items, err := h.uc.Add(c.Request().Context(), req.Items...)
	if err != nil {
		h.logger.Error("ignore list update failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	return xhttp.CreatedResponse(c, &models.IgnoreResponse{Items: items, Total: len(items)})
}
