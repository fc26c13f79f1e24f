package signalapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
)

// OptFloat is a JSON number that may be absent, null or of the wrong type.
// Decoding never fails; anything that is not a finite number (or a string
// holding one) leaves Valid false.
type OptFloat struct {
	Value float64
	Valid bool
}

// Float returns a valid OptFloat holding v.
func Float(v float64) OptFloat {
	return OptFloat{Value: v, Valid: true}
}

// UnmarshalJSON implements json.Unmarshaler.
func (f *OptFloat) UnmarshalJSON(b []byte) error {
	*f = OptFloat{}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return nil
	}
	switch x := v.(type) {
	case float64:
		f.Value, f.Valid = x, true
	case string:
		p, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err == nil && !math.IsNaN(p) && !math.IsInf(p, 0) {
			f.Value, f.Valid = p, true
		}
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (f OptFloat) MarshalJSON() ([]byte, error) {
	if !f.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(f.Value)
}

// OptString is a JSON string that may be absent, null or of the wrong type.
// Numbers are accepted in their literal textual form. Blank strings are
// treated as absent.
type OptString struct {
	Value string
	Valid bool
}

// String returns a valid OptString holding s.
func String(s string) OptString {
	return OptString{Value: s, Valid: strings.TrimSpace(s) != ""}
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *OptString) UnmarshalJSON(b []byte) error {
	*s = OptString{}
	var v any
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return nil
	}
	switch x := v.(type) {
	case string:
		*s = String(x)
	case json.Number:
		*s = String(x.String())
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (s OptString) MarshalJSON() ([]byte, error) {
	if !s.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(s.Value)
}

// Market holds the latest market quote.
type Market struct {
	Price OptFloat `json:"price"`
}

// Meta describes the instrument and the server-side refresh cadence.
type Meta struct {
	Pair            OptString `json:"pair"`
	Interval        OptString `json:"interval"`
	RefreshSeconds  OptFloat  `json:"refresh_seconds"`
	DisplayCurrency OptString `json:"display_currency"`
	Error           OptString `json:"error"` // set when the backend served stale data
}

// Signal is the trade recommendation block.
type Signal struct {
	Action         OptString `json:"action"`
	Confidence     OptFloat  `json:"confidence"`
	Entry          OptFloat  `json:"entry"`
	StopLoss       OptFloat  `json:"stop_loss"`
	TakeProfit     OptFloat  `json:"take_profit"`
	Score          OptFloat  `json:"score"`
	Reason         OptString `json:"reason"`
	SuccessChance  OptFloat  `json:"success_chance"`
	EntryETAHours  OptFloat  `json:"expected_entry_hours"`
	TargetETAHours OptFloat  `json:"expected_tp_hours"`
}

// Indicators holds technical indicator readings; any may be absent.
type Indicators struct {
	RSI14    OptFloat `json:"rsi14"`
	EMA20    OptFloat `json:"ema20"`
	EMA50    OptFloat `json:"ema50"`
	MACDHist OptFloat `json:"macd_hist"`
	ATR14    OptFloat `json:"atr14"`
}

// TradingView is the optional third-party technical summary.
type TradingView struct {
	Recommendation OptString `json:"recommendation"`
}

// Candle is one OHLC bar keyed by epoch seconds.
type Candle struct {
	Time  OptFloat `json:"time"`
	Open  OptFloat `json:"open"`
	High  OptFloat `json:"high"`
	Low   OptFloat `json:"low"`
	Close OptFloat `json:"close"`
}

// Complete reports whether the candle has a time and all four prices.
func (c Candle) Complete() bool {
	return c.Time.Valid && c.Open.Valid && c.High.Valid && c.Low.Valid && c.Close.Valid
}

// Chart carries the candle series.
type Chart struct {
	Candles []Candle `json:"candles"`
}

// UnmarshalJSON decodes candles one by one, skipping entries that are not
// objects.
func (c *Chart) UnmarshalJSON(b []byte) error {
	var raw struct {
		Candles []json.RawMessage `json:"candles"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	c.Candles = decodeEach[Candle](raw.Candles)
	return nil
}

// NewsItem is one headline with its sentiment score in [-1, 1].
type NewsItem struct {
	Title     OptString `json:"title"`
	Link      OptString `json:"link"`
	Source    OptString `json:"source"`
	Sentiment OptFloat  `json:"sentiment"`
}

// Snapshot is one backend state document. Every block is optional; a block
// with the wrong JSON shape decodes as absent instead of failing the whole
// document.
type Snapshot struct {
	UpdatedEpoch OptFloat     `json:"updated_epoch"`
	Market       *Market      `json:"market,omitempty"`
	Meta         *Meta        `json:"meta,omitempty"`
	Signal       *Signal      `json:"signal,omitempty"`
	Indicators   *Indicators  `json:"indicators,omitempty"`
	TradingView  *TradingView `json:"tradingview_ta,omitempty"`
	Chart        *Chart       `json:"chart,omitempty"`
	News         []NewsItem   `json:"news,omitempty"`
}

var errNotObject = errors.New("snapshot is not a JSON object")

// UnmarshalJSON implements json.Unmarshaler. Only a document that is not a
// JSON object is an error.
func (s *Snapshot) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return errNotObject
	}
	if raw == nil {
		return errNotObject
	}

	*s = Snapshot{}
	if msg, ok := raw["updated_epoch"]; ok {
		_ = s.UpdatedEpoch.UnmarshalJSON(msg)
	}
	s.Market = decodeBlock[Market](raw, "market")
	s.Meta = decodeBlock[Meta](raw, "meta")
	s.Signal = decodeBlock[Signal](raw, "signal")
	s.Indicators = decodeBlock[Indicators](raw, "indicators")
	s.TradingView = decodeBlock[TradingView](raw, "tradingview_ta")
	s.Chart = decodeBlock[Chart](raw, "chart")

	if msg, ok := raw["news"]; ok {
		var items []json.RawMessage
		if err := json.Unmarshal(msg, &items); err == nil {
			s.News = decodeEach[NewsItem](items)
		}
	}
	return nil
}

// RefreshSeconds returns the server-advertised polling interval.
func (s *Snapshot) RefreshSeconds() OptFloat {
	if s == nil || s.Meta == nil {
		return OptFloat{}
	}
	return s.Meta.RefreshSeconds
}

// BackendError returns the backend's own error note, or "".
func (s *Snapshot) BackendError() string {
	if s == nil || s.Meta == nil || !s.Meta.Error.Valid {
		return ""
	}
	return s.Meta.Error.Value
}

// decodeBlock decodes raw[key] into a fresh T. Missing keys, null and
// mismatched shapes all yield nil.
func decodeBlock[T any](raw map[string]json.RawMessage, key string) *T {
	msg, ok := raw[key]
	if !ok || bytes.Equal(bytes.TrimSpace(msg), []byte("null")) {
		return nil
	}
	var v T
	if err := json.Unmarshal(msg, &v); err != nil {
		return nil
	}
	return &v
}

// decodeEach decodes every element independently and skips nulls and the
// ones that fail.
func decodeEach[T any](items []json.RawMessage) []T {
	out := make([]T, 0, len(items))
	for _, msg := range items {
		if bytes.Equal(bytes.TrimSpace(msg), []byte("null")) {
			continue
		}
		var v T
		if err := json.Unmarshal(msg, &v); err != nil {
			continue
		}
		out = append(out, v)
	}
	return out
}
