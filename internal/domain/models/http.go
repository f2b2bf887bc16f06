package models

// Requests and responses of the HTTP API.

type ClassifyRequest struct {
	Text      string `json:"text" validate:"required,max=40000"`
	Sentiment bool   `json:"sentiment"`
}

type ClassifyResponse struct {
	Tickers   []string         `json:"tickers"`
	Mentions  []FrequencyEntry `json:"mentions"`
	Sentiment Polarity         `json:"sentiment,omitempty"`
}

type IgnoreRequest struct {
	Items []string `json:"items" validate:"required,min=1,max=100,dive,required,max=8,printascii"`
}

type IgnoreResponse struct {
	Items []string `json:"items"`
	Total int      `json:"total"`
}

type WindowHistoryRequest struct {
	Symbol string `param:"symbol" validate:"required,max=8"`
	Limit  int    `query:"limit" default:"1000" validate:"gte=1,lte=10000"`
}

type StreamTopRequest struct {
	K int `query:"k" default:"10" validate:"gte=1,lte=500"`
}
