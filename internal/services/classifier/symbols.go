package classifier

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"TickerPulse/internal/domain/models"
)

// SymbolIndex maps ticker symbols to display names. It is immutable once built
// and safe for concurrent readers.
type SymbolIndex struct {
	names map[string]string
}

// NewSymbolIndex builds an index from symbols. On duplicate tickers the last
// one wins. An empty index is a configuration error.
func NewSymbolIndex(symbols []models.Symbol) (*SymbolIndex, error) {
	names := make(map[string]string, len(symbols))
	for _, s := range symbols {
		if s.Ticker == "" {
			continue
		}
		names[s.Ticker] = s.Name
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: symbol index is empty", models.ErrConfiguration)
	}
	return &SymbolIndex{names: names}, nil
}

// LoadSymbols reads newline-delimited TICKER|NAME records. Only the first '|'
// separates the fields; blank lines and lines without a separator are skipped.
func LoadSymbols(r io.Reader) (*SymbolIndex, error) {
	var symbols []models.Symbol
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		ticker, name, ok := strings.Cut(line, "|")
		if !ok || ticker == "" {
			continue
		}
		symbols = append(symbols, models.Symbol{Ticker: ticker, Name: name})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: read symbols: %v", models.ErrConfiguration, err)
	}
	return NewSymbolIndex(symbols)
}

// Lookup returns the display name of ticker. The match is case-sensitive.
func (s *SymbolIndex) Lookup(ticker string) (string, bool) {
	name, ok := s.names[ticker]
	return name, ok
}

// Contains reports whether ticker is a known symbol.
func (s *SymbolIndex) Contains(ticker string) bool {
	_, ok := s.names[ticker]
	return ok
}

// Len returns the number of distinct tickers.
func (s *SymbolIndex) Len() int { return len(s.names) }
