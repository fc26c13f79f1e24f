package live

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"sync"
	"testing"
	"time"

	"signaldash/internal/dashboard"
	"signaldash/pkg/signalapi"
)

const waitTimeout = 2 * time.Second

type fetchResult struct {
	snap *signalapi.Snapshot
	err  error
}

type fetchCall struct {
	ctx   context.Context
	reply chan fetchResult
}

// scriptedFetcher hands every call to the test, which decides when and what
// it returns. Replies ignore cancellation to simulate late responses.
type scriptedFetcher struct {
	calls chan fetchCall
}

func newScriptedFetcher() *scriptedFetcher {
	return &scriptedFetcher{calls: make(chan fetchCall, 8)}
}

func (f *scriptedFetcher) FetchState(ctx context.Context) (*signalapi.Snapshot, error) {
	c := fetchCall{ctx: ctx, reply: make(chan fetchResult, 1)}
	f.calls <- c
	r := <-c.reply
	return r.snap, r.err
}

func (f *scriptedFetcher) next(t *testing.T) fetchCall {
	t.Helper()
	select {
	case c := <-f.calls:
		return c
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for a fetch")
		return fetchCall{}
	}
}

func (f *scriptedFetcher) none(t *testing.T) {
	t.Helper()
	select {
	case <-f.calls:
		t.Fatal("unexpected fetch")
	case <-time.After(50 * time.Millisecond):
	}
}

// screen records render and status calls; status updates are also signalled
// on a channel because they close every poll cycle.
type screen struct {
	mu      sync.Mutex
	series  []dashboard.Candle
	sets    int
	fits    int
	text    map[dashboard.FieldID]string
	list    []dashboard.NewsItem
	renders int
	status  chan dashboard.Connectivity
}

func newScreen() *screen {
	return &screen{text: make(map[dashboard.FieldID]string), status: make(chan dashboard.Connectivity, 16)}
}

func (s *screen) SetSeries(c []dashboard.Candle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.series = c
	s.sets++
}

func (s *screen) FitView() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fits++
}

func (s *screen) SetText(id dashboard.FieldID, v string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.text[id] = v
}

func (s *screen) SetList(items []dashboard.NewsItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.list = items
	s.renders++
}

func (s *screen) SetStatus(c dashboard.Connectivity, _ string) {
	s.status <- c
}

type screenState struct {
	series  []dashboard.Candle
	sets    int
	fits    int
	text    map[dashboard.FieldID]string
	list    []dashboard.NewsItem
	renders int
}

func (s *screen) state() screenState {
	s.mu.Lock()
	defer s.mu.Unlock()
	text := make(map[dashboard.FieldID]string, len(s.text))
	for k, v := range s.text {
		text[k] = v
	}
	return screenState{series: s.series, sets: s.sets, fits: s.fits, text: text, list: s.list, renders: s.renders}
}

// awaitStatus returns the next status update.
func (s *screen) awaitStatus(t *testing.T) dashboard.Connectivity {
	t.Helper()
	select {
	case c := <-s.status:
		return c
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for status")
		return ""
	}
}

type harness struct {
	clock   *FakeClock
	fetcher *scriptedFetcher
	screen  *screen
	syncer  *Syncer
	errc    chan error
	cancel  context.CancelFunc
}

func startHarness(t *testing.T, cfg Config) *harness {
	t.Helper()
	h := &harness{
		clock:   NewFakeClock(time.Unix(1700000000, 0)),
		fetcher: newScriptedFetcher(),
		screen:  newScreen(),
		errc:    make(chan error, 1),
	}
	cfg.Clock = h.clock
	cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	h.syncer = NewSyncer(h.fetcher, h.screen, h.screen, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go func() { h.errc <- h.syncer.Sync(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case <-h.syncer.Done():
		case <-time.After(waitTimeout):
			// A test left a fetch unanswered; answer it so the loop can exit.
			select {
			case c := <-h.fetcher.calls:
				c.reply <- fetchResult{err: errors.New("cleanup")}
			default:
			}
		}
	})

	if c := h.screen.awaitStatus(t); c != dashboard.StatusLoading {
		t.Fatalf("initial status = %q, want loading", c)
	}
	return h
}

// poll answers the next fetch and waits for the cycle to finish.
func (h *harness) poll(t *testing.T, snap *signalapi.Snapshot, err error) dashboard.Connectivity {
	t.Helper()
	h.fetcher.next(t).reply <- fetchResult{snap: snap, err: err}
	return h.screen.awaitStatus(t)
}

func (h *harness) waitDone(t *testing.T) error {
	t.Helper()
	select {
	case err := <-h.errc:
		return err
	case <-time.After(waitTimeout):
		t.Fatal("Sync did not return")
		return nil
	}
}

func snapshot(t *testing.T, doc string) *signalapi.Snapshot {
	t.Helper()
	var s signalapi.Snapshot
	if err := json.Unmarshal([]byte(doc), &s); err != nil {
		t.Fatalf("decoding snapshot: %v", err)
	}
	return &s
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(waitTimeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestSyncStrongBuyEndToEnd(t *testing.T) {
	var rendered []dashboard.ViewModel
	h := startHarness(t, Config{OnRender: func(vm dashboard.ViewModel) { rendered = append(rendered, vm) }})

	c := h.poll(t, snapshot(t, `{"signal":{"action":"STRONG_BUY","confidence":80},"indicators":{"rsi14":55.4},"news":[]}`), nil)
	if c != dashboard.StatusOK {
		t.Errorf("status = %q, want ok", c)
	}

	st := h.screen.state()
	if st.text[dashboard.FieldActionClass] != "BUY" {
		t.Errorf("action_class = %q, want BUY", st.text[dashboard.FieldActionClass])
	}
	if st.text[dashboard.FieldConfidence] != "80%" {
		t.Errorf("confidence = %q, want 80%%", st.text[dashboard.FieldConfidence])
	}
	if st.text[dashboard.FieldRSI] != "55.4" {
		t.Errorf("rsi = %q, want 55.4", st.text[dashboard.FieldRSI])
	}
	if len(st.list) != 1 || !st.list[0].Placeholder {
		t.Errorf("news = %+v, want placeholder", st.list)
	}
	if st.sets != 0 {
		t.Errorf("SetSeries called %d times without candles", st.sets)
	}

	h.syncer.Stop()
	if err := h.waitDone(t); err != nil {
		t.Errorf("Sync = %v, want nil", err)
	}
	if len(rendered) != 1 {
		t.Errorf("OnRender calls = %d, want 1", len(rendered))
	}
}

func TestSyncIntervalChange(t *testing.T) {
	h := startHarness(t, Config{})

	h.poll(t, snapshot(t, `{"meta":{"refresh_seconds":300}}`), nil)
	if h.clock.Armed() != 1 {
		t.Fatalf("armed = %d, want 1", h.clock.Armed())
	}

	h.clock.Advance(300 * time.Second)
	h.poll(t, snapshot(t, `{"meta":{"refresh_seconds":60}}`), nil)

	if got := h.syncer.Stats().Rearms; got != 1 {
		t.Errorf("rearms = %d, want 1", got)
	}
	if h.clock.Armed() != 2 || h.clock.Active() != 1 {
		t.Errorf("armed/active = %d/%d, want 2/1", h.clock.Armed(), h.clock.Active())
	}

	h.clock.Advance(60 * time.Second)
	h.poll(t, snapshot(t, `{"meta":{"refresh_seconds":60}}`), nil)

	h.clock.Advance(59 * time.Second)
	h.fetcher.none(t)
	h.clock.Advance(time.Second)
	h.poll(t, snapshot(t, `{"meta":{"refresh_seconds":60}}`), nil)

	// Three more 60s periods reach the point where the old 300s timer would
	// have fired; only the new timer may tick.
	for i := 0; i < 3; i++ {
		if n := h.clock.Advance(60 * time.Second); n != 1 {
			t.Fatalf("timer callbacks = %d, want 1", n)
		}
		h.poll(t, snapshot(t, `{"meta":{"refresh_seconds":60}}`), nil)
	}

	if got := h.syncer.Stats().Rearms; got != 1 {
		t.Errorf("rearms = %d, want 1", got)
	}
	if h.clock.Armed() != 2 {
		t.Errorf("armed = %d, want 2", h.clock.Armed())
	}
}

func TestSyncShowsIntervalInEffect(t *testing.T) {
	h := startHarness(t, Config{})

	h.poll(t, snapshot(t, `{"signal":{"action":"HOLD"}}`), nil)
	if got := h.screen.state().text[dashboard.FieldRefresh]; got != "300s" {
		t.Errorf("refresh without meta = %q, want default 300s", got)
	}

	h.clock.Advance(300 * time.Second)
	h.poll(t, snapshot(t, `{"meta":{"refresh_seconds":60}}`), nil)
	if got := h.screen.state().text[dashboard.FieldRefresh]; got != "60s" {
		t.Errorf("refresh after change = %q, want 60s", got)
	}

	h.clock.Advance(60 * time.Second)
	h.poll(t, snapshot(t, `{"meta":{"refresh_seconds":0}}`), nil)
	if got := h.screen.state().text[dashboard.FieldRefresh]; got != "60s" {
		t.Errorf("refresh after rejected value = %q, want 60s", got)
	}
}

func TestSyncFailureKeepsView(t *testing.T) {
	h := startHarness(t, Config{})

	h.poll(t, snapshot(t, `{
		"market":{"price":161.2},
		"signal":{"action":"SELL"},
		"chart":{"candles":[{"time":1,"open":1,"high":2,"low":0.5,"close":1.5}]},
		"news":[{"title":"Yen","sentiment":-0.3}]
	}`), nil)
	before := h.screen.state()

	for _, err := range []error{
		&signalapi.FetchError{Op: "GET /api/state", Reason: signalapi.ReasonNetwork, Err: errors.New("refused")},
		&signalapi.FetchError{Op: "GET /api/state", Reason: signalapi.ReasonHTTPStatus, Status: 502},
		&signalapi.FetchError{Op: "GET /api/state", Reason: signalapi.ReasonParse},
	} {
		h.clock.Advance(300 * time.Second)
		c := h.poll(t, nil, err)
		if c == dashboard.StatusOK {
			t.Errorf("%v: status = ok, want degraded or unreachable", err)
		}
		if after := h.screen.state(); !reflect.DeepEqual(before, after) {
			t.Errorf("%v: rendered state changed on failure", err)
		}
	}

	if got := h.syncer.Stats().Failures; got != 3 {
		t.Errorf("failures = %d, want 3", got)
	}
	if h.clock.Active() != 1 || h.syncer.Stats().Rearms != 0 {
		t.Error("failure changed the schedule")
	}
}

func TestSyncEmptyCandlesKeepChart(t *testing.T) {
	h := startHarness(t, Config{})

	h.poll(t, snapshot(t, `{"chart":{"candles":[{"time":1,"open":1,"high":2,"low":0.5,"close":1.5}]}}`), nil)
	h.clock.Advance(300 * time.Second)
	h.poll(t, snapshot(t, `{"chart":{"candles":[]}}`), nil)

	st := h.screen.state()
	if st.sets != 1 || st.fits != 1 {
		t.Errorf("setSeries/fit = %d/%d, want 1/1", st.sets, st.fits)
	}
	if len(st.series) != 1 {
		t.Errorf("series = %+v, want the first series", st.series)
	}
	if st.renders != 2 {
		t.Errorf("renders = %d, want 2", st.renders)
	}
}

func TestSyncDegradedBackendNote(t *testing.T) {
	h := startHarness(t, Config{})

	c := h.poll(t, snapshot(t, `{"meta":{"error":"cache is stale"},"signal":{"action":"BUY"}}`), nil)
	if c != dashboard.StatusDegraded {
		t.Errorf("status = %q, want degraded", c)
	}
	if got := h.screen.state().text[dashboard.FieldAction]; got != "BUY" {
		t.Errorf("action = %q, want BUY rendered despite the note", got)
	}
}

func TestSyncDropsTickWhileInFlight(t *testing.T) {
	h := startHarness(t, Config{})

	first := h.fetcher.next(t)
	h.clock.Advance(300 * time.Second)
	waitFor(t, "dropped tick", func() bool { return h.syncer.Stats().DroppedTicks == 1 })

	h.syncer.Refresh()
	waitFor(t, "dropped refresh", func() bool { return h.syncer.Stats().DroppedTicks == 2 })
	h.fetcher.none(t)

	first.reply <- fetchResult{snap: &signalapi.Snapshot{}}
	h.screen.awaitStatus(t)

	h.syncer.Refresh()
	h.poll(t, &signalapi.Snapshot{}, nil)
	if got := h.syncer.Stats().Fetches; got != 2 {
		t.Errorf("fetches = %d, want 2", got)
	}
}

func TestSyncStaleAfterStop(t *testing.T) {
	h := startHarness(t, Config{})

	h.poll(t, snapshot(t, `{"signal":{"action":"BUY"}}`), nil)
	before := h.screen.state()

	h.clock.Advance(300 * time.Second)
	late := h.fetcher.next(t)

	h.syncer.Stop()
	waitFor(t, "fetch cancellation", func() bool { return late.ctx.Err() != nil })
	late.reply <- fetchResult{snap: snapshot(t, `{"meta":{"refresh_seconds":60},"signal":{"action":"SELL"}}`)}

	if err := h.waitDone(t); err != nil {
		t.Fatalf("Sync = %v, want nil", err)
	}

	if after := h.screen.state(); !reflect.DeepEqual(before, after) {
		t.Error("late result was rendered after Stop")
	}
	st := h.syncer.Stats()
	if st.StaleResults != 1 {
		t.Errorf("stale results = %d, want 1", st.StaleResults)
	}
	if st.Rearms != 0 {
		t.Errorf("rearms = %d, want 0", st.Rearms)
	}
	if h.clock.Active() != 0 {
		t.Errorf("active timers = %d, want 0", h.clock.Active())
	}
	select {
	case c := <-h.screen.status:
		t.Errorf("status %q reported after Stop", c)
	default:
	}
}

func TestSyncContextCancel(t *testing.T) {
	h := startHarness(t, Config{})
	h.poll(t, &signalapi.Snapshot{}, nil)

	h.cancel()
	if err := h.waitDone(t); err != nil {
		t.Errorf("Sync = %v, want nil", err)
	}
	if h.clock.Active() != 0 {
		t.Errorf("active timers = %d, want 0", h.clock.Active())
	}
	if err := h.syncer.Sync(context.Background()); err == nil {
		t.Error("second Sync should fail")
	}
}
