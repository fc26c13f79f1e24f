// Package console renders the dashboard as plain text for terminals that are
// not driven by the TUI, e.g. a tmux pane or a log tail.
package console

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"signaldash/internal/dashboard"
	"signaldash/internal/news"
)

const (
	clearScreen = "\033[H\033[2J"
	sparkWidth  = 60
)

var sparkRunes = []rune("▁▂▃▄▅▆▇█")

// Screen is a render and status target that prints a text frame on demand.
type Screen struct {
	locale dashboard.Locale
	clear  bool

	mu      sync.Mutex
	order   []dashboard.FieldID
	text    map[dashboard.FieldID]string
	candles []dashboard.Candle
	fitted  bool
	news    []dashboard.NewsItem
	status  dashboard.Connectivity
	message string
}

// NewScreen creates a screen. When clear is set every frame starts by
// clearing the terminal.
func NewScreen(locale dashboard.Locale, clear bool) *Screen {
	return &Screen{
		locale: locale,
		clear:  clear,
		text:   make(map[dashboard.FieldID]string),
		status: dashboard.StatusLoading,
	}
}

func (s *Screen) SetSeries(candles []dashboard.Candle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.candles = append([]dashboard.Candle(nil), candles...)
	s.fitted = false
}

// FitView marks the current series as scaled to the sparkline width.
func (s *Screen) FitView() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fitted = true
}

func (s *Screen) SetText(id dashboard.FieldID, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.text[id]; !ok {
		s.order = append(s.order, id)
	}
	s.text[id] = value
}

func (s *Screen) SetList(items []dashboard.NewsItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.news = append([]dashboard.NewsItem(nil), items...)
}

func (s *Screen) SetStatus(c dashboard.Connectivity, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = c
	s.message = msg
}

// Print writes one frame to w.
func (s *Screen) Print(w io.Writer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var b strings.Builder
	if s.clear {
		b.WriteString(clearScreen)
	}
	fmt.Fprintf(&b, "[%s] %s\n\n", strings.ToUpper(string(s.status)), s.message)

	width := 0
	for _, id := range s.order {
		if id == dashboard.FieldActionClass {
			continue
		}
		if n := len(s.locale.Label(id)); n > width {
			width = n
		}
	}
	for _, id := range s.order {
		if id == dashboard.FieldActionClass {
			continue
		}
		fmt.Fprintf(&b, "  %-*s  %s\n", width, s.locale.Label(id), s.text[id])
	}

	if len(s.candles) > 0 {
		last := s.candles[len(s.candles)-1]
		fmt.Fprintf(&b, "\n  %s  %s bars  close %s\n",
			Sparkline(s.candles, sparkWidth),
			dashboard.FormatInt(len(s.candles)),
			strconv.FormatFloat(last.Close, 'f', -1, 64))
	}

	b.WriteString("\n")
	for _, it := range s.news {
		if it.Placeholder {
			fmt.Fprintf(&b, "  %s\n", it.Title)
			continue
		}
		fmt.Fprintf(&b, "  %s %-8s %s (%s)\n", marker(it), it.Sentiment, it.Title, it.Source)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// Sparkline draws the closes of the last width candles as block characters,
// scaled between the lowest low and highest high of that window.
func Sparkline(candles []dashboard.Candle, width int) string {
	if len(candles) == 0 || width <= 0 {
		return ""
	}
	if len(candles) > width {
		candles = candles[len(candles)-width:]
	}
	lo, hi := candles[0].Low, candles[0].High
	for _, c := range candles[1:] {
		lo = min(lo, c.Low)
		hi = max(hi, c.High)
	}

	out := make([]rune, len(candles))
	top := len(sparkRunes) - 1
	for i, c := range candles {
		idx := top / 2
		if hi > lo {
			idx = int((c.Close - lo) / (hi - lo) * float64(top))
			idx = max(0, min(top, idx))
		}
		out[i] = sparkRunes[idx]
	}
	return string(out)
}

func marker(it dashboard.NewsItem) string {
	switch it.Class {
	case news.Positive:
		return "+"
	case news.Negative:
		return "-"
	default:
		return "="
	}
}
