package classifier

import (
	"strings"
	"testing"

	"TickerPulse/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSymbols = `GME|GameStop Corp.
AMC|AMC Entertainment Holdings
F|Ford Motor Company
T|AT&T Inc.
DD|DuPont de Nemours
BF.B|Brown-Forman Corp. Class B
U|Unity Software Inc.
S|SentinelOne Inc.
TSLA|Tesla, Inc.
GOOGL|Alphabet Inc. Class A
`

func newTestClassifier(t *testing.T, opts ...Option) *Classifier {
	t.Helper()
	idx, err := LoadSymbols(strings.NewReader(testSymbols))
	require.NoError(t, err)
	c, err := New(idx, opts...)
	require.NoError(t, err)
	return c
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		ignore []string
		policy Policy
		want   []string
	}{
		{name: "single ticker", text: "GME to the moon", want: []string{"GME"}},
		{name: "ignored ticker", text: "I think DD is key", ignore: []string{"DD"}},
		{name: "duplicates kept in order", text: "GME AMC GME", want: []string{"GME", "AMC", "GME"}},
		{name: "trailing punctuation stripped", text: "bought GME, AMC!", want: []string{"GME", "AMC"}},
		{name: "dollar prefix stripped", text: "$GME calls", want: []string{"GME"}},
		{name: "dollar prefix on four letters", text: "$TSLA dip", want: []string{"TSLA"}},
		{name: "word policy drops dollar", text: "$GME calls", policy: PolicyWord, want: []string{"GME"}},
		{name: "single letter tickers", text: "F and T are boring", want: []string{"F", "T"}},
		{name: "title case rejected", text: "Gme Amc", want: nil},
		{name: "five letters rejected", text: "GOOGL rips", want: nil},
		{name: "unknown acronym", text: "LMAO WTF", want: nil},
		{name: "dot class share", text: "BF.B is safe", want: []string{"BF.B"}},
		{name: "five char dotted rejected", text: "BRK.B", want: nil},
		{name: "empty text", text: "", want: nil},
		{name: "whitespace only", text: " \t\n ", want: nil},
		{name: "word policy splits dotted tokens", text: "BF.B", policy: PolicyWord, want: nil},
		{name: "word policy splits U.S.", text: "the U.S. market", policy: PolicyWord, want: []string{"U", "S"}},
		{name: "trim policy keeps U.S as one token", text: "the U.S. market", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := []Option{WithIgnore(NewIgnoreSet(tt.ignore...))}
			if tt.policy != "" {
				opts = append(opts, WithPolicy(tt.policy))
			}
			c := newTestClassifier(t, opts...)
			assert.Equal(t, tt.want, c.Classify(tt.text))
		})
	}
}

func TestClassifyNeverEmitsLongOrTitleTokens(t *testing.T) {
	idx, err := NewSymbolIndex([]models.Symbol{
		{Ticker: "ABCDE", Name: "five"},
		{Ticker: "Abc", Name: "title"},
		{Ticker: "ABC", Name: "plain"},
	})
	require.NoError(t, err)

	for _, p := range []Policy{PolicyTrim, PolicyWord} {
		c, err := New(idx, WithPolicy(p))
		require.NoError(t, err)
		got := c.Classify("ABCDE Abc ABC")
		assert.Equal(t, []string{"ABC"}, got, "policy %s", p)
	}
}

func TestCandidates(t *testing.T) {
	c := newTestClassifier(t)
	assert.Equal(t, []string{"LMAO", "GME", "A"}, c.Candidates("LMAO GME Hello A"))
	assert.Equal(t, []string{"GME", "AMC"}, c.Candidates("$GME ($AMC)"))
}

func TestSetIgnore(t *testing.T) {
	c := newTestClassifier(t)
	assert.Equal(t, []string{"GME"}, c.Classify("GME"))

	c.SetIgnore(c.Ignore().With("gme"))
	assert.Empty(t, c.Classify("GME"))
	assert.True(t, c.Ignore().Contains("GME"))
}

func TestNewRejectsBadConfig(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, models.ErrConfiguration)

	idx, err := NewSymbolIndex([]models.Symbol{{Ticker: "GME"}})
	require.NoError(t, err)
	_, err = New(idx, WithPolicy("regex"))
	assert.ErrorIs(t, err, models.ErrConfiguration)
}

func TestUnique(t *testing.T) {
	assert.Equal(t, []string{"GME", "AMC"}, Unique([]string{"GME", "AMC", "GME"}))
	assert.Empty(t, Unique(nil))
}

func TestIsTitle(t *testing.T) {
	assert.True(t, isTitle("Gme"))
	assert.True(t, isTitle("A"))
	assert.False(t, isTitle("GME"))
	assert.False(t, isTitle("gme"))
	assert.False(t, isTitle("BRK.B"))
	assert.False(t, isTitle("123"))
}
