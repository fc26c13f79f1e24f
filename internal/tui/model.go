// Package tui is the bubbletea front end of the dashboard: a live chart,
// indicator panel, news list and signal timeline, plus a settings editor.
package tui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"signaldash/internal/dashboard"
	"signaldash/internal/news"
	"signaldash/internal/settings"
	"signaldash/internal/store"
	"signaldash/pkg/signalapi"
)

// Styles.
var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("4"))
	footerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("15")).Background(lipgloss.Color("8"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	valueStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	riseStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	fallStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	buyStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	sellStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	neutralStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11"))
	sectionStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	idleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("8"))
	okStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("0")).Background(lipgloss.Color("10"))
	warnStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("0")).Background(lipgloss.Color("11"))
	errStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("9"))
)

const saveTimeout = 15 * time.Second

// SettingsStore writes the backend settings document.
type SettingsStore interface {
	PutSettings(ctx context.Context, s signalapi.Settings) error
}

// Deps are the collaborators of the model. Everything except Locale is
// optional; missing collaborators disable the matching key.
type Deps struct {
	Locale       dashboard.Locale
	ChartHeight  int
	TimelineSize int

	Refresh  func()
	Cancel   func()
	Journal  store.SignalJournal
	Exporter store.CandleExporter
	Settings SettingsStore

	// InitialSettings seeds the editor; nil uses settings.Defaults.
	InitialSettings settings.Document

	Logger *slog.Logger
	Now    func() time.Time
}

type tab int

const (
	tabDashboard tab = iota
	tabSettings
)

type (
	timelineMsg struct {
		entries []store.SignalEntry
		err     error
	}
	exportMsg struct {
		path string
		err  error
	}
	settingsSavedMsg struct {
		doc settings.Document
		err error
	}
)

// Model is the bubbletea model.
type Model struct {
	deps Deps
	log  *slog.Logger

	viewport      viewport.Model
	ready         bool
	width, height int
	tab           tab

	candles  []dashboard.Candle
	text     map[dashboard.FieldID]string
	news     []dashboard.NewsItem
	status   dashboard.Connectivity
	message  string
	flash    string
	pair     string
	timeline []store.SignalEntry

	form form
}

// New creates the model.
func New(deps Deps) Model {
	if deps.ChartHeight <= 0 {
		deps.ChartHeight = 12
	}
	if deps.TimelineSize <= 0 {
		deps.TimelineSize = 5
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	doc := settings.Merge(settings.Defaults(), deps.InitialSettings)
	return Model{
		deps:    deps,
		log:     deps.Logger,
		text:    make(map[dashboard.FieldID]string),
		status:  dashboard.StatusLoading,
		message: deps.Locale.Message(dashboard.MsgStatusLoading),
		form:    newForm(doc),
	}
}

func (m Model) Init() tea.Cmd {
	if m.deps.Journal == nil {
		return nil
	}
	return m.loadTimeline()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m.quit()
		}
		if msg.String() == "tab" {
			return m.switchTab()
		}
		if m.tab == tabSettings {
			return m.updateSettings(msg)
		}
		switch msg.String() {
		case "q":
			return m.quit()
		case "r":
			if m.deps.Refresh != nil {
				m.deps.Refresh()
			}
			return m, nil
		case "x":
			return m.export()
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		vpHeight := max(1, m.height-2)
		if !m.ready {
			m.viewport = viewport.New(m.width, vpHeight)
			m.viewport.MouseWheelEnabled = true
			m.ready = true
		} else {
			m.viewport.Width = m.width
			m.viewport.Height = vpHeight
		}
		m.refreshContent()
		return m, nil

	case seriesMsg:
		m.candles = msg
		m.refreshContent()
		return m, nil

	case fitMsg:
		// The chart is rescaled to the whole series on every draw.
		return m, nil

	case textMsg:
		m.text[msg.id] = msg.value
		m.refreshContent()
		return m, nil

	case listMsg:
		m.news = msg
		m.refreshContent()
		return m, nil

	case statusMsg:
		m.status = msg.state
		m.message = msg.message
		return m, nil

	case renderedMsg:
		m.pair = msg.vm.Pair
		if m.deps.Journal == nil {
			return m, nil
		}
		return m, m.recordSignal(msg.vm)

	case timelineMsg:
		if msg.err != nil {
			m.log.Warn("updating timeline", "error", msg.err)
			return m, nil
		}
		m.timeline = msg.entries
		m.refreshContent()
		return m, nil

	case exportMsg:
		if msg.err != nil {
			m.log.Error("exporting candles", "error", msg.err)
			m.flash = m.deps.Locale.Message(dashboard.MsgExportFailed) + ": " + msg.err.Error()
			return m, nil
		}
		m.log.Info("candles exported", "path", msg.path)
		m.flash = m.deps.Locale.Message(dashboard.MsgExportDone) + ": " + msg.path
		return m, nil

	case settingsSavedMsg:
		if msg.err != nil {
			m.log.Error("saving settings", "error", msg.err)
			m.flash = m.deps.Locale.Message(dashboard.MsgSettingsFailed) + ": " + msg.err.Error()
			return m, nil
		}
		m.log.Info("settings saved")
		m.form.reset(msg.doc)
		m.flash = m.deps.Locale.Message(dashboard.MsgSettingsSaved)
		return m, nil
	}

	if m.tab == tabDashboard {
		m.viewport, cmd = m.viewport.Update(msg)
	}
	return m, cmd
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	if m.deps.Cancel != nil {
		m.deps.Cancel()
	}
	return m, tea.Quit
}

func (m Model) switchTab() (tea.Model, tea.Cmd) {
	m.flash = ""
	if m.tab == tabDashboard {
		m.tab = tabSettings
		cmd := m.form.focus()
		return m, cmd
	}
	m.tab = tabDashboard
	m.form.blur()
	return m, nil
}

func (m Model) updateSettings(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		return m.switchTab()
	case "up", "shift+tab":
		cmd := m.form.move(-1)
		return m, cmd
	case "down", "enter":
		cmd := m.form.move(1)
		return m, cmd
	case "ctrl+s":
		return m.save()
	}
	var cmd tea.Cmd
	m.form, cmd = m.form.update(msg)
	return m, cmd
}

func (m Model) save() (tea.Model, tea.Cmd) {
	doc, err := settings.Coerce(m.form.document())
	if err != nil {
		m.flash = m.deps.Locale.Message(dashboard.MsgSettingsFailed) + ": " + err.Error()
		return m, nil
	}
	st := m.deps.Settings
	if st == nil {
		m.form.reset(doc)
		m.flash = m.deps.Locale.Message(dashboard.MsgSettingsSaved)
		return m, nil
	}
	return m, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		defer cancel()
		return settingsSavedMsg{doc: doc, err: st.PutSettings(ctx, doc)}
	}
}

func (m Model) export() (tea.Model, tea.Cmd) {
	if len(m.candles) == 0 {
		m.flash = m.deps.Locale.Message(dashboard.MsgExportEmpty)
		return m, nil
	}
	x := m.deps.Exporter
	if x == nil {
		return m, nil
	}
	pair := m.pair
	candles := append([]dashboard.Candle(nil), m.candles...)
	at := m.deps.Now()
	return m, func() tea.Msg {
		path, err := x.ExportCandles(pair, candles, at)
		return exportMsg{path: path, err: err}
	}
}

func (m Model) recordSignal(vm dashboard.ViewModel) tea.Cmd {
	j := m.deps.Journal
	n := m.deps.TimelineSize
	entry := store.EntryFromView(vm, m.deps.Now())
	return func() tea.Msg {
		ctx := context.Background()
		if _, err := j.Record(ctx, entry); err != nil {
			return timelineMsg{err: err}
		}
		entries, err := j.Recent(ctx, n)
		return timelineMsg{entries: entries, err: err}
	}
}

func (m Model) loadTimeline() tea.Cmd {
	j := m.deps.Journal
	n := m.deps.TimelineSize
	return func() tea.Msg {
		entries, err := j.Recent(context.Background(), n)
		return timelineMsg{entries: entries, err: err}
	}
}

func (m *Model) refreshContent() {
	if m.ready {
		m.viewport.SetContent(m.renderContent())
	}
}

func (m Model) View() string {
	if !m.ready {
		return "\n  Initializing..."
	}

	title := " signaldash"
	if m.pair != "" {
		title += "  " + m.pair
	}
	if m.tab == tabSettings {
		title += "  [settings]"
	}
	badge := m.statusBadge()
	gap := max(0, m.width-lipgloss.Width(title)-lipgloss.Width(badge))
	header := headerStyle.Render(title+strings.Repeat(" ", gap)) + badge

	var body string
	if m.tab == tabSettings {
		body = m.form.view(m.height - 2)
	} else {
		body = m.viewport.View()
	}

	keys := " q quit  r refresh  x export  tab settings  pgup/dn scroll"
	if m.tab == tabSettings {
		keys = " ctrl+s save  up/dn field  esc/tab back  ctrl+c quit"
	}
	right := m.message
	if m.flash != "" {
		right = m.flash
	}
	right += " "
	gap = max(0, m.width-lipgloss.Width(keys)-lipgloss.Width(right))
	footer := footerStyle.Render(padOrTrunc(keys+strings.Repeat(" ", gap)+right, m.width))

	return header + "\n" + body + "\n" + footer
}

func (m Model) statusBadge() string {
	label := " " + strings.ToUpper(string(m.status)) + " "
	switch m.status {
	case dashboard.StatusLoading:
		return idleStyle.Render(label)
	case dashboard.StatusOK:
		return okStyle.Render(label)
	case dashboard.StatusDegraded:
		return warnStyle.Render(label)
	default:
		return errStyle.Render(label)
	}
}

func (m Model) renderContent() string {
	var b strings.Builder
	loc := m.deps.Locale

	b.WriteString(renderChart(m.candles, m.width, m.deps.ChartHeight))
	b.WriteString("\n\n")

	width := 0
	for _, f := range (dashboard.ViewModel{}).Fields() {
		if f.ID == dashboard.FieldActionClass {
			continue
		}
		if n := lipgloss.Width(loc.Label(f.ID)); n > width {
			width = n
		}
	}
	for _, f := range (dashboard.ViewModel{}).Fields() {
		if f.ID == dashboard.FieldActionClass {
			continue
		}
		v, ok := m.text[f.ID]
		if !ok {
			continue
		}
		style := valueStyle
		if f.ID == dashboard.FieldAction {
			style = categoryStyle(dashboard.Category(m.text[dashboard.FieldActionClass]))
		}
		fmt.Fprintf(&b, "  %s  %s\n", labelStyle.Render(padOrTrunc(loc.Label(f.ID), width)), style.Render(v))
	}

	b.WriteString("\n" + sectionStyle.Render("  News") + "\n")
	for _, it := range m.news {
		if it.Placeholder {
			b.WriteString("  " + dimStyle.Render(it.Title) + "\n")
			continue
		}
		style := neutralStyle
		switch it.Class {
		case news.Positive:
			style = riseStyle
		case news.Negative:
			style = fallStyle
		}
		fmt.Fprintf(&b, "  %s %s %s\n", style.Render(fmt.Sprintf("%6s", it.Sentiment)), it.Title, dimStyle.Render("("+it.Source+")"))
	}

	if len(m.timeline) > 0 {
		b.WriteString("\n" + sectionStyle.Render("  Timeline") + "\n")
		for _, e := range m.timeline {
			fmt.Fprintf(&b, "  %s  %s  %s  %s  %s\n",
				dimStyle.Render(e.RecordedAt.Format("01-02 15:04")),
				e.Pair,
				categoryStyle(dashboard.Category(e.Category)).Render(e.Action),
				e.Confidence,
				dimStyle.Render(e.Entry+" / "+e.StopLoss+" / "+e.TakeProfit))
		}
	}
	return b.String()
}

// padOrTrunc pads s with spaces or truncates it to exactly width cells.
func padOrTrunc(s string, width int) string {
	n := lipgloss.Width(s)
	if n > width {
		r := []rune(s)
		for len(r) > 0 && lipgloss.Width(string(r)) > width {
			r = r[:len(r)-1]
		}
		return string(r)
	}
	return s + strings.Repeat(" ", width-n)
}
