package tui

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"signaldash/internal/dashboard"
)

const (
	wickRune = '│'
	bodyRune = '┃'
)

// plotCandles lays out the last width candles on a height-row grid, one
// column per candle, scaled between the lowest low and the highest high.
// up[i] reports whether column i closed at or above its open.
func plotCandles(candles []dashboard.Candle, width, height int) (rows [][]rune, up []bool) {
	if len(candles) == 0 || width <= 0 || height <= 0 {
		return nil, nil
	}
	if len(candles) > width {
		candles = candles[len(candles)-width:]
	}
	lo, hi := bounds(candles)

	rows = make([][]rune, height)
	for r := range rows {
		rows[r] = []rune(strings.Repeat(" ", len(candles)))
	}
	up = make([]bool, len(candles))

	y := func(v float64) int {
		if hi <= lo {
			return height / 2
		}
		return int((hi-v)/(hi-lo)*float64(height-1) + 0.5)
	}
	for i, c := range candles {
		up[i] = c.Close >= c.Open
		for r := y(c.High); r <= y(c.Low); r++ {
			rows[r][i] = wickRune
		}
		for r := y(max(c.Open, c.Close)); r <= y(min(c.Open, c.Close)); r++ {
			rows[r][i] = bodyRune
		}
	}
	return rows, up
}

func bounds(candles []dashboard.Candle) (lo, hi float64) {
	lo, hi = candles[0].Low, candles[0].High
	for _, c := range candles[1:] {
		lo = min(lo, c.Low)
		hi = max(hi, c.High)
	}
	return lo, hi
}

// renderChart draws the candle grid with rising and falling columns coloured
// and the price range on the right edge.
func renderChart(candles []dashboard.Candle, width, height int) string {
	const axisWidth = 12
	rows, up := plotCandles(candles, max(1, width-axisWidth), height)
	if rows == nil {
		return dimStyle.Render("  no chart data")
	}
	shown := candles
	if len(shown) > len(up) {
		shown = shown[len(shown)-len(up):]
	}
	lo, hi := bounds(shown)

	var b strings.Builder
	for r, row := range rows {
		for i, ch := range row {
			if ch == ' ' {
				b.WriteRune(' ')
				continue
			}
			style := fallStyle
			if up[i] {
				style = riseStyle
			}
			b.WriteString(style.Render(string(ch)))
		}
		switch r {
		case 0:
			b.WriteString(" " + dimStyle.Render(strconv.FormatFloat(hi, 'f', -1, 64)))
		case len(rows) - 1:
			b.WriteString(" " + dimStyle.Render(strconv.FormatFloat(lo, 'f', -1, 64)))
		}
		if r < len(rows)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// categoryStyle colours a signal action by its class.
func categoryStyle(c dashboard.Category) lipgloss.Style {
	switch c {
	case dashboard.Buy:
		return buyStyle
	case dashboard.Sell:
		return sellStyle
	default:
		return neutralStyle
	}
}
