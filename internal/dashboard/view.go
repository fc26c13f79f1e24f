// Package dashboard turns backend snapshots into a render-ready view model
// and fans it out to the display surfaces. It also owns the connectivity
// status shown next to the data.
package dashboard

import "signaldash/internal/news"

// Category is the semantic class of a signal action.
type Category string

const (
	Buy     Category = "BUY"
	Sell    Category = "SELL"
	Neutral Category = "NEUTRAL"
)

// FieldID names one labeled text field of the indicator/signal panel.
type FieldID string

const (
	FieldUpdated     FieldID = "updated"
	FieldPrice       FieldID = "price"
	FieldMeta        FieldID = "meta"
	FieldRefresh     FieldID = "refresh"
	FieldAction      FieldID = "action"
	FieldActionClass FieldID = "action_class"
	FieldConfidence  FieldID = "confidence"
	FieldEntry       FieldID = "entry"
	FieldStopLoss    FieldID = "stop_loss"
	FieldTakeProfit  FieldID = "take_profit"
	FieldScore       FieldID = "score"
	FieldSuccess     FieldID = "success_chance"
	FieldEntryETA    FieldID = "entry_eta"
	FieldTargetETA   FieldID = "target_eta"
	FieldReason      FieldID = "reason"
	FieldRSI         FieldID = "rsi14"
	FieldEMA20       FieldID = "ema20"
	FieldEMA50       FieldID = "ema50"
	FieldMACDHist    FieldID = "macd_hist"
	FieldATR         FieldID = "atr14"
	FieldTradingView FieldID = "tradingview"
)

// Candle is one chart bar with time in epoch seconds.
type Candle struct {
	Time  int64   `json:"time" parquet:"time"`
	Open  float64 `json:"open" parquet:"open"`
	High  float64 `json:"high" parquet:"high"`
	Low   float64 `json:"low" parquet:"low"`
	Close float64 `json:"close" parquet:"close"`
}

// NewsItem is one rendered headline. A placeholder item carries only the
// empty-feed message in Title.
type NewsItem struct {
	Title       string         `json:"title"`
	Link        string         `json:"link"`
	Source      string         `json:"source"`
	Sentiment   string         `json:"sentiment"`
	Class       news.Sentiment `json:"class"`
	Placeholder bool           `json:"placeholder,omitempty"`
}

// ViewModel is the fully defaulted projection of one snapshot. Every text
// field holds a display value; absent data shows as Sentinel.
type ViewModel struct {
	Epoch int64 `json:"epoch"` // 0 when the snapshot had no timestamp

	Updated string `json:"updated"`
	Price   string `json:"price"`
	Pair    string `json:"pair"`
	Meta    string `json:"meta"`
	Refresh string `json:"refresh"`

	Action      string   `json:"action"`
	ActionClass Category `json:"action_class"`
	Confidence  string   `json:"confidence"`
	Entry       string   `json:"entry"`
	StopLoss    string   `json:"stop_loss"`
	TakeProfit  string   `json:"take_profit"`
	Score       string   `json:"score"`
	Success     string   `json:"success_chance"`
	EntryETA    string   `json:"entry_eta"`
	TargetETA   string   `json:"target_eta"`
	Reason      string   `json:"reason"`

	RSI         string `json:"rsi14"`
	EMA20       string `json:"ema20"`
	EMA50       string `json:"ema50"`
	MACDHist    string `json:"macd_hist"`
	ATR         string `json:"atr14"`
	TradingView string `json:"tradingview"`

	Candles []Candle   `json:"candles"`
	News    []NewsItem `json:"news"`
}

// Field is one labeled value of the panel.
type Field struct {
	ID    FieldID
	Value string
}

// Fields returns the panel fields in display order.
func (vm ViewModel) Fields() []Field {
	return []Field{
		{FieldUpdated, vm.Updated},
		{FieldPrice, vm.Price},
		{FieldMeta, vm.Meta},
		{FieldRefresh, vm.Refresh},
		{FieldAction, vm.Action},
		{FieldActionClass, string(vm.ActionClass)},
		{FieldConfidence, vm.Confidence},
		{FieldEntry, vm.Entry},
		{FieldStopLoss, vm.StopLoss},
		{FieldTakeProfit, vm.TakeProfit},
		{FieldScore, vm.Score},
		{FieldSuccess, vm.Success},
		{FieldEntryETA, vm.EntryETA},
		{FieldTargetETA, vm.TargetETA},
		{FieldReason, vm.Reason},
		{FieldRSI, vm.RSI},
		{FieldEMA20, vm.EMA20},
		{FieldEMA50, vm.EMA50},
		{FieldMACDHist, vm.MACDHist},
		{FieldATR, vm.ATR},
		{FieldTradingView, vm.TradingView},
	}
}

// Value returns the display value of one field, or "" for an unknown ID.
func (vm ViewModel) Value(id FieldID) string {
	for _, f := range vm.Fields() {
		if f.ID == id {
			return f.Value
		}
	}
	return ""
}
