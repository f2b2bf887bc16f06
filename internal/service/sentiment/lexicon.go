// Package sentiment scores free text with a small finance-flavoured lexicon.
package sentiment

import (
	"regexp"
	"strings"

	"TickerPulse/internal/domain/models"
)

var (
	mentionRe = regexp.MustCompile(`@[A-Za-z0-9]+`)
	urlRe     = regexp.MustCompile(`\w+://\S+`)
	symbolRe  = regexp.MustCompile(`[^0-9A-Za-z \t]`)
)

var positive = map[string]float64{
	"good": 1, "great": 1.5, "best": 1.5, "love": 1.5, "win": 1, "winning": 1,
	"bull": 1, "bullish": 1.5, "buy": 0.5, "long": 0.5, "calls": 0.5,
	"moon": 1.5, "mooning": 1.5, "rocket": 1.5, "tendies": 1.5, "gains": 1,
	"profit": 1, "green": 1, "up": 0.5, "rally": 1, "breakout": 1, "beat": 1,
	"strong": 1, "undervalued": 1, "squeeze": 1, "hold": 0.25, "happy": 1,
}

var negative = map[string]float64{
	"bad": 1, "worst": 1.5, "hate": 1.5, "lose": 1, "losing": 1, "loss": 1,
	"losses": 1, "bear": 1, "bearish": 1.5, "sell": 0.5, "short": 0.5,
	"puts": 0.5, "crash": 1.5, "dump": 1.5, "drill": 1.5, "tank": 1.5,
	"red": 1, "down": 0.5, "bagholder": 1.5, "bagholding": 1.5, "overvalued": 1,
	"miss": 1, "weak": 1, "scam": 1.5, "dead": 1.5, "rip": 1, "fraud": 1.5,
}

var intensifiers = map[string]float64{
	"very": 1.5, "super": 1.5, "really": 1.3, "extremely": 2, "so": 1.2, "mega": 1.5,
}

var negators = map[string]struct{}{
	"not": {}, "no": {}, "never": {}, "dont": {}, "isnt": {}, "wont": {},
	"cant": {}, "aint": {}, "nothing": {}, "without": {},
}

// negationWindow is how many preceding words a negator reaches.
const negationWindow = 3

// Lexicon implements repository.Sentiment.
type Lexicon struct {
	positive map[string]float64
	negative map[string]float64
}

func NewLexicon() *Lexicon {
	return &Lexicon{positive: positive, negative: negative}
}

// Clean drops apostrophes, then strips @mentions, URLs and punctuation,
// collapsing whitespace.
func Clean(text string) string {
	text = strings.ReplaceAll(text, "'", "")
	text = mentionRe.ReplaceAllString(text, " ")
	text = urlRe.ReplaceAllString(text, " ")
	text = symbolRe.ReplaceAllString(text, " ")
	return strings.Join(strings.Fields(text), " ")
}

// Score returns a signed score; positive means bullish.
func (l *Lexicon) Score(text string) float64 {
	words := strings.Fields(strings.ToLower(Clean(text)))
	var score float64
	for i, w := range words {
		weight, sign := 0.0, 0.0
		if v, ok := l.positive[w]; ok {
			weight, sign = v, 1
		} else if v, ok := l.negative[w]; ok {
			weight, sign = v, -1
		} else {
			continue
		}
		if i > 0 {
			if f, ok := intensifiers[words[i-1]]; ok {
				weight *= f
			}
		}
		if negated(words, i) {
			sign = -sign
		}
		score += sign * weight
	}
	return score
}

// Polarity buckets Score: above zero is positive, zero neutral, below negative.
func (l *Lexicon) Polarity(text string) models.Polarity {
	switch s := l.Score(text); {
	case s > 0:
		return models.Positive
	case s < 0:
		return models.Negative
	default:
		return models.Neutral
	}
}

func negated(words []string, i int) bool {
	for j := max(0, i-negationWindow); j < i; j++ {
		if _, ok := negators[words[j]]; ok {
			return true
		}
	}
	return false
}
