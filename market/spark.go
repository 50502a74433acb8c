package market

import "strings"

var sparkLevels = []rune("▁▂▃▄▅▆▇█")

// Sparkline renders a price series as a row of unicode block
// characters, scaled to the series' min/max. A flat or single-point
// series renders at the lowest level.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}

	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}

	var b strings.Builder
	span := hi - lo
	for _, v := range values {
		idx := 0
		if span > 0 {
			idx = int((v - lo) / span * float64(len(sparkLevels)-1))
		}
		b.WriteRune(sparkLevels[idx])
	}
	return b.String()
}
