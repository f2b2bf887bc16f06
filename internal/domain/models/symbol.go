package models

// Symbol is one entry of the ticker dictionary.
type Symbol struct {
	Ticker string `json:"ticker"`
	Name   string `json:"name"`
}
