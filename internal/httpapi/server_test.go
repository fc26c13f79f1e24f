package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"signaldash/internal/dashboard"
	"signaldash/internal/metrics"
)

func testView() dashboard.ViewModel {
	return dashboard.ViewModel{
		Updated:     "2026-01-02 10:00:00",
		Price:       "64250.5",
		Meta:        "BTCUSDT | Interval: 1h",
		Action:      "STRONG_BUY",
		ActionClass: dashboard.Buy,
		Candles: []dashboard.Candle{
			{Time: 1, Open: 1, High: 2, Low: 0.5, Close: 1.5},
			{Time: 2, Open: 1.5, High: 2.5, Low: 1, Close: 2},
		},
		News: []dashboard.NewsItem{{Title: "ETF inflows", Link: "#", Source: "rss", Sentiment: "0.40"}},
	}
}

func getJSON(t *testing.T, h http.Handler, path string, v any) int {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if v != nil {
		if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
			t.Fatalf("decoding %s: %v (body %q)", path, err, rec.Body.String())
		}
	}
	return rec.Code
}

func TestViewBeforeFirstRender(t *testing.T) {
	m := NewMirror(dashboard.LocaleEN)
	h := NewServer(m, nil, nil).Handler()

	var got ViewResponse
	if code := getJSON(t, h, "/api/view", &got); code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	if got.Renders != 0 {
		t.Errorf("Renders = %d, want 0", got.Renders)
	}
	if got.UpdatedAt != nil {
		t.Errorf("UpdatedAt = %v, want nil", got.UpdatedAt)
	}
	if len(got.Fields) != 0 || len(got.Candles) != 0 {
		t.Errorf("unexpected content: %+v", got)
	}
}

func TestViewAfterRender(t *testing.T) {
	m := NewMirror(dashboard.LocaleDE)
	stamp := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return stamp }

	dashboard.Render(m, testView())
	m.SetStatus(dashboard.StatusOK, "Daten aktuell")

	var got ViewResponse
	getJSON(t, NewServer(m, nil, nil).Handler(), "/api/view", &got)

	if len(got.Fields) != len(testView().Fields()) {
		t.Fatalf("len(Fields) = %d, want %d", len(got.Fields), len(testView().Fields()))
	}
	if got.Fields[0].ID != dashboard.FieldUpdated || got.Fields[0].Label != "Aktualisiert" {
		t.Errorf("Fields[0] = %+v, want updated/Aktualisiert", got.Fields[0])
	}
	if got.Fields[1].Value != "64250.5" {
		t.Errorf("price = %q, want %q", got.Fields[1].Value, "64250.5")
	}
	if len(got.Candles) != 2 {
		t.Errorf("len(Candles) = %d, want 2", len(got.Candles))
	}
	if len(got.News) != 1 || got.News[0].Title != "ETF inflows" {
		t.Errorf("News = %+v", got.News)
	}
	if got.Status.State != dashboard.StatusOK || got.Status.Message != "Daten aktuell" {
		t.Errorf("Status = %+v", got.Status)
	}
	if got.Renders != 1 {
		t.Errorf("Renders = %d, want 1", got.Renders)
	}
	if got.UpdatedAt == nil || !got.UpdatedAt.Equal(stamp) {
		t.Errorf("UpdatedAt = %v, want %v", got.UpdatedAt, stamp)
	}
}

func TestEmptySeriesKeepsMirroredChart(t *testing.T) {
	m := NewMirror(dashboard.LocaleEN)
	dashboard.Render(m, testView())

	vm := testView()
	vm.Candles = nil
	vm.Price = "65000"
	dashboard.Render(m, vm)

	got := m.View()
	if len(got.Candles) != 2 {
		t.Errorf("len(Candles) = %d, want 2", len(got.Candles))
	}
	if got.Fields[1].Value != "65000" {
		t.Errorf("price = %q, want %q", got.Fields[1].Value, "65000")
	}
	if got.Renders != 2 {
		t.Errorf("Renders = %d, want 2", got.Renders)
	}
}

func TestHealth(t *testing.T) {
	m := NewMirror(dashboard.LocaleEN)
	h := NewServer(m, nil, nil).Handler()

	var got HealthResponse
	if code := getJSON(t, h, "/healthz", &got); code != http.StatusOK {
		t.Errorf("status = %d, want 200", code)
	}
	if !got.OK {
		t.Error("OK = false, want true")
	}

	m.SetStatus(dashboard.StatusDegraded, "HTTP error (HTTP 503)")
	if code := getJSON(t, h, "/healthz", &got); code != http.StatusOK {
		t.Errorf("degraded status = %d, want 200", code)
	}

	m.SetStatus(dashboard.StatusUnreachable, "Backend unreachable")
	if code := getJSON(t, h, "/healthz", &got); code != http.StatusServiceUnavailable {
		t.Errorf("unreachable status = %d, want 503", code)
	}
	if got.OK || got.Status != dashboard.StatusUnreachable {
		t.Errorf("health = %+v, want not ok / unreachable", got)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := metrics.New(reg)
	rec.ObservePoll(metrics.OutcomeOK, 20*time.Millisecond)
	rec.SetInterval(60 * time.Second)

	srv := httptest.NewServer(NewServer(NewMirror(dashboard.LocaleEN), reg, nil).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	for _, want := range []string{
		`signaldash_polls_total{outcome="ok"} 1`,
		"signaldash_refresh_interval_seconds 60",
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestMetricsDisabledWithoutGatherer(t *testing.T) {
	h := NewServer(NewMirror(dashboard.LocaleEN), nil, nil).Handler()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	h := NewServer(NewMirror(dashboard.LocaleEN), nil, nil).Handler()
	req := httptest.NewRequest(http.MethodOptions, "/api/view", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Allow-Origin = %q, want %q", got, "*")
	}
}

func TestStreamPublishesOnStatus(t *testing.T) {
	m := NewMirror(dashboard.LocaleEN)
	api := NewServer(m, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go api.Run(ctx)

	srv := httptest.NewServer(api.Handler())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	dashboard.Render(m, testView())
	m.SetStatus(dashboard.StatusDegraded, "Backend reports a problem: stale")

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var got ViewResponse
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("reading stream: %v", err)
	}
	if got.Status.State != dashboard.StatusDegraded {
		t.Errorf("Status.State = %q, want %q", got.Status.State, dashboard.StatusDegraded)
	}
	if got.Renders != 1 || len(got.Candles) != 2 {
		t.Errorf("got renders=%d candles=%d, want 1 and 2", got.Renders, len(got.Candles))
	}
}

func TestHubSendsLatestOnConnect(t *testing.T) {
	m := NewMirror(dashboard.LocaleEN)
	api := NewServer(m, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go api.Run(ctx)

	m.SetStatus(dashboard.StatusUnreachable, "Backend unreachable")

	srv := httptest.NewServer(api.Handler())
	defer srv.Close()

	// The publish may still be queued; either path delivers it exactly once.
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var got ViewResponse
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("reading stream: %v", err)
	}
	if got.Status.State != dashboard.StatusUnreachable {
		t.Errorf("Status.State = %q, want %q", got.Status.State, dashboard.StatusUnreachable)
	}
}

func TestSubscribeWhileReporting(t *testing.T) {
	m := NewMirror(dashboard.LocaleEN)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < sendBuffer/2; i++ {
			m.SetStatus(dashboard.StatusLoading, "Loading...")
		}
	}()
	api := NewServer(m, nil, nil)
	<-done

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go api.Run(ctx)

	// Once subscribed, every status update reaches the hub.
	m.SetStatus(dashboard.StatusDegraded, "Backend reports a problem: stale")

	srv := httptest.NewServer(api.Handler())
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		var got ViewResponse
		if err := conn.ReadJSON(&got); err != nil {
			t.Fatalf("reading stream: %v", err)
		}
		if got.Status.State == dashboard.StatusDegraded {
			return
		}
	}
}
