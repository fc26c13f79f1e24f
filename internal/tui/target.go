package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"signaldash/internal/dashboard"
)

// Messages delivered by Target. Each carries its own copy of the data.
type (
	seriesMsg []dashboard.Candle
	fitMsg    struct{}
	textMsg   struct {
		id    dashboard.FieldID
		value string
	}
	listMsg   []dashboard.NewsItem
	statusMsg struct {
		state   dashboard.Connectivity
		message string
	}
	renderedMsg struct{ vm dashboard.ViewModel }
)

// Target adapts the render and status callbacks of the sync loop to
// bubbletea messages, so the model is only ever mutated inside Update.
type Target struct {
	send func(tea.Msg)
}

// NewTarget creates a target that delivers through send, usually
// (*tea.Program).Send.
func NewTarget(send func(tea.Msg)) *Target {
	return &Target{send: send}
}

func (t *Target) SetSeries(candles []dashboard.Candle) {
	t.send(seriesMsg(append([]dashboard.Candle(nil), candles...)))
}

func (t *Target) FitView() { t.send(fitMsg{}) }

func (t *Target) SetText(id dashboard.FieldID, value string) {
	t.send(textMsg{id: id, value: value})
}

func (t *Target) SetList(items []dashboard.NewsItem) {
	t.send(listMsg(append([]dashboard.NewsItem(nil), items...)))
}

func (t *Target) SetStatus(c dashboard.Connectivity, msg string) {
	t.send(statusMsg{state: c, message: msg})
}

// Rendered announces a completed render pass. The model journals the signal
// and refreshes its timeline in response.
func (t *Target) Rendered(vm dashboard.ViewModel) {
	t.send(renderedMsg{vm: vm})
}
