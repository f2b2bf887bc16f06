package api

import (
	"github.com/labstack/echo/v4"

	"TickerPulse/internal/domain/models"
	drepo "TickerPulse/internal/domain/repository"
	"TickerPulse/internal/services/aggregator"
	xhttp "TickerPulse/pkg/http"
	xlogger "TickerPulse/pkg/logger"
)

type ClassifyHandler struct {
	logger    *xlogger.Logger
	cls       aggregator.Classifier
	sentiment drepo.Sentiment
	limit     echo.MiddlewareFunc
}

// NewClassifyHandler classifies ad-hoc text. sentiment and limit may be nil.
func NewClassifyHandler(logger *xlogger.Logger, cls aggregator.Classifier, sentiment drepo.Sentiment, limit echo.MiddlewareFunc) *ClassifyHandler {
	return &ClassifyHandler{logger: logger, cls: cls, sentiment: sentiment, limit: limit}
}

func (h *ClassifyHandler) RegisterRoutes(e *echo.Echo) {
	var mw []echo.MiddlewareFunc
	if h.limit != nil {
		mw = append(mw, h.limit)
	}
	e.POST("/api/classify", h.Classify, mw...)
}

func (h *ClassifyHandler) Classify(c echo.Context) error {
	req := &models.ClassifyRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	tickers := h.cls.Classify(req.Text)
	tally := aggregator.NewTally()
	for _, t := range tickers {
		tally.Add(t, h.cls.Name(t))
	}
	res := &models.ClassifyResponse{
		Tickers:  tickers,
		Mentions: tally.Ranked(),
	}
	if res.Tickers == nil {
		res.Tickers = []string{}
	}
	if req.Sentiment {
		if h.sentiment == nil {
			return xhttp.AppErrorResponse(c, xhttp.UnavailableError("sentiment analysis is not configured"))
		}
		res.Sentiment = h.sentiment.Polarity(req.Text)
	}
	h.logger.Debug("classified text", xlogger.Int("tickers", len(tickers)))
	return xhttp.SuccessResponse(c, res)
}
