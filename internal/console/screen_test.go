package console

import (
	"strings"
	"testing"

	"signaldash/internal/dashboard"
	"signaldash/internal/news"
)

func TestPrintFrame(t *testing.T) {
	s := NewScreen(dashboard.LocaleEN, false)
	dashboard.Render(s, dashboard.ViewModel{
		Price:       "64250.5",
		Action:      "BUY",
		ActionClass: dashboard.Buy,
		Candles: []dashboard.Candle{
			{Time: 1, Open: 1, High: 2, Low: 1, Close: 1},
			{Time: 2, Open: 1, High: 2, Low: 1, Close: 2},
		},
		News: []dashboard.NewsItem{
			{Title: "Rally", Source: "rss", Sentiment: "0.50", Class: news.Positive},
			{Title: "Selloff", Source: "rss", Sentiment: "-0.30", Class: news.Negative},
		},
	})
	s.SetStatus(dashboard.StatusOK, "Data up to date")

	var b strings.Builder
	if err := s.Print(&b); err != nil {
		t.Fatalf("Print: %v", err)
	}
	out := b.String()

	for _, want := range []string{
		"[OK] Data up to date",
		"Price",
		"64250.5",
		"2 bars  close 2",
		"+ 0.50     Rally (rss)",
		"- -0.30    Selloff (rss)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("frame missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "action_class") {
		t.Errorf("frame shows the internal action class field:\n%s", out)
	}
	if strings.HasPrefix(out, clearScreen) {
		t.Error("frame clears the screen with clear=false")
	}
}

func TestPrintPlaceholderAndNoChart(t *testing.T) {
	s := NewScreen(dashboard.LocaleDE, true)
	s.SetList([]dashboard.NewsItem{{Title: "keine News", Placeholder: true}})
	s.SetStatus(dashboard.StatusUnreachable, "Backend nicht erreichbar")

	var b strings.Builder
	if err := s.Print(&b); err != nil {
		t.Fatalf("Print: %v", err)
	}
	out := b.String()
	if !strings.HasPrefix(out, clearScreen) {
		t.Error("frame does not start with clear sequence")
	}
	if !strings.Contains(out, "[UNREACHABLE] Backend nicht erreichbar") {
		t.Errorf("missing status line:\n%s", out)
	}
	if !strings.Contains(out, "  keine News\n") {
		t.Errorf("missing placeholder:\n%s", out)
	}
	if strings.Contains(out, "bars") {
		t.Errorf("chart line printed without candles:\n%s", out)
	}
}

func TestSparkline(t *testing.T) {
	candles := []dashboard.Candle{
		{Low: 10, High: 20, Close: 10},
		{Low: 10, High: 20, Close: 15},
		{Low: 10, High: 20, Close: 20},
	}
	if got, want := Sparkline(candles, 10), "▁▄█"; got != want {
		t.Errorf("Sparkline = %q, want %q", got, want)
	}
	if got := Sparkline(candles, 2); len([]rune(got)) != 2 {
		t.Errorf("Sparkline width 2 = %q, want 2 runes", got)
	}
	if got := Sparkline(nil, 10); got != "" {
		t.Errorf("Sparkline(nil) = %q, want empty", got)
	}
	flat := []dashboard.Candle{{Low: 5, High: 5, Close: 5}}
	if got, want := Sparkline(flat, 10), "▄"; got != want {
		t.Errorf("flat Sparkline = %q, want %q", got, want)
	}
}
