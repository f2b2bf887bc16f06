package classifier

import (
	"fmt"
	"regexp"
	"strings"
	"sync/atomic"
	"unicode"
	"unicode/utf8"

	"TickerPulse/internal/domain/models"
)

// Policy selects how text is split into tokens.
type Policy string

const (
	// PolicyTrim splits on whitespace and strips leading/trailing punctuation
	// runs, so "BRK.B," yields "BRK.B" and "U.S." yields "U.S".
	PolicyTrim Policy = "trim"
	// PolicyWord takes runs of word characters, so "U.S." yields "U" and "S".
	PolicyWord Policy = "word"
)

// maxTokenLen is exclusive: tokens of this length or longer are never tickers.
const maxTokenLen = 5

var (
	// a leading "$" never reaches the shape check: tokenizing drops it
	tickerShape = regexp.MustCompile(`^(?:[A-Z]+|[A-Z]+-[A-Z]?|[A-Z]+\.[A-Z]?)$`)
	wordRun     = regexp.MustCompile(`[\p{L}\p{N}\p{M}_]+`)
)

// Option configures a Classifier.
type Option func(*Classifier)

// WithPolicy sets the tokenization policy.
func WithPolicy(p Policy) Option {
	return func(c *Classifier) { c.policy = p }
}

// WithIgnore sets the initial ignore set.
func WithIgnore(s *IgnoreSet) Option {
	return func(c *Classifier) {
		if s != nil {
			c.ignore.Store(s)
		}
	}
}

// Classifier extracts confirmed ticker symbols from free text.
// Classify is safe for concurrent use.
type Classifier struct {
	symbols *SymbolIndex
	ignore  atomic.Pointer[IgnoreSet]
	policy  Policy
}

// New creates a Classifier over symbols.
func New(symbols *SymbolIndex, opts ...Option) (*Classifier, error) {
	if symbols == nil || symbols.Len() == 0 {
		return nil, fmt.Errorf("%w: classifier needs a non-empty symbol index", models.ErrConfiguration)
	}
	c := &Classifier{symbols: symbols, policy: PolicyTrim}
	c.ignore.Store(NewIgnoreSet())
	for _, opt := range opts {
		opt(c)
	}
	switch c.policy {
	case PolicyTrim, PolicyWord:
	default:
		return nil, fmt.Errorf("%w: unknown tokenization policy %q", models.ErrConfiguration, c.policy)
	}
	return c, nil
}

// Classify returns the tickers found in text, in text order and with
// duplicates preserved.
func (c *Classifier) Classify(text string) []string {
	ignore := c.ignore.Load()
	var out []string
	for _, ticker := range c.Candidates(text) {
		if !c.symbols.Contains(ticker) || ignore.Contains(ticker) {
			continue
		}
		out = append(out, ticker)
	}
	return out
}

// Candidates returns the tokens of text that have a ticker shape, before any
// dictionary lookup.
func (c *Classifier) Candidates(text string) []string {
	var out []string
	for _, tok := range c.tokenize(text) {
		if isCandidate(tok) {
			out = append(out, tok)
		}
	}
	return out
}

// Name returns the display name for a ticker.
func (c *Classifier) Name(ticker string) string {
	name, _ := c.symbols.Lookup(ticker)
	return name
}

// Ignore returns the ignore set currently in use.
func (c *Classifier) Ignore() *IgnoreSet { return c.ignore.Load() }

// SetIgnore publishes a new ignore set to all subsequent Classify calls.
func (c *Classifier) SetIgnore(s *IgnoreSet) {
	if s == nil {
		s = NewIgnoreSet()
	}
	c.ignore.Store(s)
}

// Policy returns the tokenization policy.
func (c *Classifier) Policy() Policy { return c.policy }

func (c *Classifier) tokenize(text string) []string {
	if c.policy == PolicyWord {
		return wordRun.FindAllString(text, -1)
	}
	fields := strings.Fields(text)
	out := fields[:0]
	for _, f := range fields {
		if f = strings.TrimFunc(f, isPunct); f != "" {
			out = append(out, f)
		}
	}
	return out
}

func isCandidate(tok string) bool {
	n := utf8.RuneCountInString(tok)
	if n == 0 || n >= maxTokenLen {
		return false
	}
	// A lone capital is title case too; single-letter tickers must pass.
	if n > 1 && isTitle(tok) {
		return false
	}
	return tickerShape.MatchString(tok)
}

// isPunct matches characters that are neither word characters nor spaces.
func isPunct(r rune) bool {
	return !isWordRune(r) && !unicode.IsSpace(r)
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r)
}

// isTitle reports whether s is title cased: it has at least one cased letter,
// every uppercase letter starts a cased run and every lowercase letter
// continues one.
func isTitle(s string) bool {
	cased, prevCased := false, false
	for _, r := range s {
		switch {
		case unicode.IsUpper(r) || unicode.IsTitle(r):
			if prevCased {
				return false
			}
			prevCased, cased = true, true
		case unicode.IsLower(r):
			if !prevCased {
				return false
			}
			prevCased, cased = true, true
		default:
			prevCased = false
		}
	}
	return cased
}

// Unique returns tickers with duplicates removed, keeping first occurrences.
func Unique(tickers []string) []string {
	seen := make(map[string]struct{}, len(tickers))
	out := make([]string, 0, len(tickers))
	for _, t := range tickers {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
