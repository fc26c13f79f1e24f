package dashboard

import (
	"math"
	"sort"
	"strings"
	"time"

	"signaldash/internal/news"
	"signaldash/pkg/signalapi"
)

// Options control locale-dependent parts of normalization.
type Options struct {
	Locale   Locale
	Location *time.Location
}

const (
	oscillatorPlaces = 1
	pricePlaces      = 4
	sentimentPlaces  = 2

	defaultSource = "rss"
	defaultLink   = "#"
)

// Normalize projects snap into a ViewModel. It is pure and never fails; a nil
// snapshot yields an all-sentinel model.
func Normalize(snap *signalapi.Snapshot, opts Options) ViewModel {
	if snap == nil {
		snap = &signalapi.Snapshot{}
	}
	var (
		market signalapi.Market
		meta   signalapi.Meta
		sig    signalapi.Signal
		ind    signalapi.Indicators
	)
	if snap.Market != nil {
		market = *snap.Market
	}
	if snap.Meta != nil {
		meta = *snap.Meta
	}
	if snap.Signal != nil {
		sig = *snap.Signal
	}
	if snap.Indicators != nil {
		ind = *snap.Indicators
	}

	vm := ViewModel{
		Updated: FormatEpoch(snap.UpdatedEpoch, opts.Location),
		Price:   FormatPlain(market.Price),
		Pair:    FormatText(meta.Pair),
		Meta:    FormatText(meta.Pair) + " | " + opts.Locale.Message(MsgIntervalLabel) + ": " + FormatText(meta.Interval),
		Refresh: FormatSeconds(meta.RefreshSeconds),

		Action:      FormatText(sig.Action),
		ActionClass: Classify(sig.Action.Value),
		Confidence:  FormatPercent(sig.Confidence),
		Entry:       FormatPlain(sig.Entry),
		StopLoss:    FormatPlain(sig.StopLoss),
		TakeProfit:  FormatPlain(sig.TakeProfit),
		Score:       FormatPlain(sig.Score),
		Success:     FormatPercent(sig.SuccessChance),
		EntryETA:    FormatHours(sig.EntryETAHours),
		TargetETA:   FormatHours(sig.TargetETAHours),
		Reason:      FormatText(sig.Reason),

		RSI:      FormatFixed(ind.RSI14, oscillatorPlaces),
		EMA20:    FormatFixed(ind.EMA20, pricePlaces),
		EMA50:    FormatFixed(ind.EMA50, pricePlaces),
		MACDHist: FormatFixed(ind.MACDHist, pricePlaces),
		ATR:      FormatFixed(ind.ATR14, pricePlaces),

		TradingView: tradingView(snap.TradingView, opts.Locale),
		Candles:     candles(snap.Chart),
		News:        newsItems(snap.News, opts.Locale),
	}
	if usable(snap.UpdatedEpoch) {
		vm.Epoch = int64(snap.UpdatedEpoch.Value)
	}
	return vm
}

// Classify maps free-form action text to its category by substring match.
func Classify(action string) Category {
	a := strings.ToUpper(action)
	switch {
	case strings.Contains(a, string(Buy)):
		return Buy
	case strings.Contains(a, string(Sell)):
		return Sell
	default:
		return Neutral
	}
}

func tradingView(tv *signalapi.TradingView, l Locale) string {
	if tv == nil {
		return l.Message(MsgTradingViewNone)
	}
	rec := FormatText(tv.Recommendation)
	if rec == Sentinel {
		return l.Message(MsgTradingViewNone)
	}
	return l.Message(MsgTradingViewPrefix) + rec
}

// candles returns the complete bars sorted by time. The input is not touched.
func candles(ch *signalapi.Chart) []Candle {
	if ch == nil {
		return nil
	}
	out := make([]Candle, 0, len(ch.Candles))
	for _, c := range ch.Candles {
		if !c.Complete() || !usable(c.Time) || !usable(c.Open) || !usable(c.High) ||
			!usable(c.Low) || !usable(c.Close) {
			continue
		}
		out = append(out, Candle{
			Time:  int64(math.Floor(c.Time.Value)),
			Open:  c.Open.Value,
			High:  c.High.Value,
			Low:   c.Low.Value,
			Close: c.Close.Value,
		})
	}
	if len(out) == 0 {
		return nil
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time < out[j].Time })
	return out
}

func newsItems(items []signalapi.NewsItem, l Locale) []NewsItem {
	if len(items) == 0 {
		return []NewsItem{{
			Title:       l.Message(MsgNewsPlaceholder),
			Link:        defaultLink,
			Source:      Sentinel,
			Sentiment:   Sentinel,
			Class:       news.Neutral,
			Placeholder: true,
		}}
	}
	out := make([]NewsItem, 0, len(items))
	for _, it := range items {
		n := NewsItem{
			Title:     Sentinel,
			Link:      defaultLink,
			Source:    defaultSource,
			Sentiment: FormatFixed(it.Sentiment, sentimentPlaces),
			Class:     news.Neutral,
		}
		if t := news.StripHTML(it.Title.Value); it.Title.Valid && t != "" {
			n.Title = t
		}
		if s := strings.TrimSpace(it.Link.Value); it.Link.Valid && s != "" {
			n.Link = s
		}
		if s := strings.TrimSpace(it.Source.Value); it.Source.Valid && s != "" {
			n.Source = s
		}
		if usable(it.Sentiment) {
			n.Class = news.Classify(it.Sentiment.Value)
		}
		out = append(out, n)
	}
	return out
}
