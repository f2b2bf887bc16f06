package classifier

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"TickerPulse/internal/domain/models"
)

// IgnoreListKey is the JSON field holding the persisted ignore list.
const IgnoreListKey = "DEFAULT_IGNORE_LIST"

// DefaultIgnored are common words and acronyms that collide with real tickers.
var DefaultIgnored = []string{
	"A", "I", "AI", "ALL", "AM", "ARE", "ATH", "ATM", "BE", "BIG", "CAN",
	"CEO", "DD", "EOD", "EPS", "ETF", "EU", "EV", "FD", "FDS", "FOMO", "FOR",
	"GDP", "GO", "GOOD", "HAS", "HOLD", "IMO", "IPO", "IT", "ITM", "IV",
	"LOL", "LOVE", "NEW", "NOW", "ON", "ONE", "OP", "OR", "OTM", "PE", "PM",
	"REAL", "RH", "RIP", "SEC", "SO", "TA", "TD", "UK", "USA", "WSB", "YOLO",
}

// IgnoreSet is an immutable set of symbols excluded from classification.
// Adding entries returns a new set, so a published set never changes under
// a reader.
type IgnoreSet struct {
	items map[string]struct{}
}

// NewIgnoreSet builds a set from items, upper-casing each entry.
func NewIgnoreSet(items ...string) *IgnoreSet {
	s := &IgnoreSet{items: make(map[string]struct{}, len(items))}
	for _, it := range items {
		if it = strings.ToUpper(strings.TrimSpace(it)); it != "" {
			s.items[it] = struct{}{}
		}
	}
	return s
}

// ParseIgnoreList decodes a {"DEFAULT_IGNORE_LIST": [...]} payload.
func ParseIgnoreList(data []byte) (*IgnoreSet, error) {
	var doc map[string][]string
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: parse ignore list: %v", models.ErrConfiguration, err)
	}
	items, ok := doc[IgnoreListKey]
	if !ok {
		return nil, fmt.Errorf("%w: ignore list missing %s", models.ErrConfiguration, IgnoreListKey)
	}
	return NewIgnoreSet(items...), nil
}

// Contains reports whether ticker is ignored.
func (s *IgnoreSet) Contains(ticker string) bool {
	if s == nil {
		return false
	}
	_, ok := s.items[ticker]
	return ok
}

// Len returns the number of ignored symbols.
func (s *IgnoreSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.items)
}

// Items returns the sorted entries.
func (s *IgnoreSet) Items() []string {
	if s == nil {
		return []string{}
	}
	out := make([]string, 0, len(s.items))
	for it := range s.items {
		out = append(out, it)
	}
	sort.Strings(out)
	return out
}

// With returns a new set holding the receiver's entries plus items.
func (s *IgnoreSet) With(items ...string) *IgnoreSet {
	return NewIgnoreSet(append(s.Items(), items...)...)
}

// MarshalIgnoreList encodes the set in its persisted form, sorted and indented.
func (s *IgnoreSet) MarshalIgnoreList() ([]byte, error) {
	return json.MarshalIndent(map[string][]string{IgnoreListKey: s.Items()}, "", "    ")
}
