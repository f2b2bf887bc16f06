package window

import (
	"fmt"
	"math"
	"strconv"

	"github.com/dustin/go-humanize"

	"TickerPulse/internal/domain/models"
)

const maxNameLen = 40

func annotate(st State, latest models.WindowPoint, target *float64) models.Annotations {
	name := []rune(st.name)
	if len(name) == 0 {
		name = []rune(st.symbol)
	}
	if len(name) > maxNameLen {
		name = name[:maxNameLen]
	}

	title := fmt.Sprintf("%s (%s): $%s", string(name), st.symbol, formatRounded(latest.Price, 3))
	if st.pct != nil {
		title += fmt.Sprintf(" (%s%%)", formatRounded(*st.pct, 2))
	}

	return models.Annotations{
		Title: title,
		Subtitle: fmt.Sprintf("Total Call Volume: %s - Total Put Volume: %s",
			humanize.Comma(int64(latest.CallVolume)), humanize.Comma(int64(latest.PutVolume))),
		Target: target,
	}
}

func formatRounded(v float64, places int) string {
	p := math.Pow(10, float64(places))
	return strconv.FormatFloat(math.Round(v*p)/p, 'f', -1, 64)
}
