package aggregator

import (
	"sort"

	"TickerPulse/internal/domain/models"
)

// Tally holds per-run mention counts. It is not safe for concurrent use;
// parallel runs build one tally per document and merge them.
type Tally struct {
	counts map[string]int
	names  map[string]string
	order  []string // first-seen order, used to break count ties

	seen    int
	counted int
	skipped int
}

func NewTally() *Tally {
	return &Tally{
		counts: make(map[string]int),
		names:  make(map[string]string),
	}
}

// Add counts one mention of ticker.
func (t *Tally) Add(ticker, name string) {
	if _, ok := t.counts[ticker]; !ok {
		t.order = append(t.order, ticker)
	}
	t.counts[ticker]++
	t.names[ticker] = name
}

// Count returns the mentions recorded for ticker.
func (t *Tally) Count(ticker string) int { return t.counts[ticker] }

// Counts returns a copy of the ticker -> count map.
func (t *Tally) Counts() map[string]int {
	out := make(map[string]int, len(t.counts))
	for k, v := range t.counts {
		out[k] = v
	}
	return out
}

// Names returns a copy of the ticker -> display name map.
func (t *Tally) Names() map[string]string {
	out := make(map[string]string, len(t.names))
	for k, v := range t.names {
		out[k] = v
	}
	return out
}

// Distinct is the number of different tickers counted.
func (t *Tally) Distinct() int { return len(t.counts) }

// Total is the sum of all counts.
func (t *Tally) Total() int {
	n := 0
	for _, c := range t.counts {
		n += c
	}
	return n
}

// DocumentsSeen, DocumentsCounted and DocumentsSkipped describe the run.
func (t *Tally) DocumentsSeen() int    { return t.seen }
func (t *Tally) DocumentsCounted() int { return t.counted }
func (t *Tally) DocumentsSkipped() int { return t.skipped }

// Ranked lists every ticker by descending count. Equal counts keep the order
// in which the tickers were first seen.
func (t *Tally) Ranked() []models.FrequencyEntry {
	out := make([]models.FrequencyEntry, 0, len(t.order))
	for _, ticker := range t.order {
		out = append(out, models.FrequencyEntry{
			Ticker: ticker,
			Name:   t.names[ticker],
			Count:  t.counts[ticker],
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}

// Top returns the first k ranked entries, k clamped to [0, Distinct()].
func (t *Tally) Top(k int) []models.FrequencyEntry {
	ranked := t.Ranked()
	if k < 0 {
		k = 0
	}
	if k > len(ranked) {
		k = len(ranked)
	}
	return ranked[:k]
}

// Merge adds other's counts into t. Tickers new to t are appended in
// other's first-seen order.
func (t *Tally) Merge(other *Tally) {
	if other == nil {
		return
	}
	for _, ticker := range other.order {
		if _, ok := t.counts[ticker]; !ok {
			t.order = append(t.order, ticker)
		}
		t.counts[ticker] += other.counts[ticker]
		t.names[ticker] = other.names[ticker]
	}
	t.seen += other.seen
	t.counted += other.counted
	t.skipped += other.skipped
}
