package repository

import (
	"fmt"
	"os"

	"TickerPulse/internal/domain/models"
	"TickerPulse/internal/services/classifier"
)

// LoadSymbolFile reads a TICKER|NAME file into a SymbolIndex.
func LoadSymbolFile(path string) (*classifier.SymbolIndex, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open symbols: %v", models.ErrConfiguration, err)
	}
	defer f.Close()
	return classifier.LoadSymbols(f)
}
