// Package store keeps the dashboard's local artifacts: a journal of signal
// changes for the timeline pane and Parquet exports of the rendered chart.
package store

import (
	"context"
	"time"

	"signaldash/internal/dashboard"
)

// SignalEntry is one journaled recommendation.
type SignalEntry struct {
	ID         int64     `json:"id"`
	Epoch      int64     `json:"epoch"`
	Pair       string    `json:"pair"`
	Action     string    `json:"action"`
	Category   string    `json:"category"`
	Confidence string    `json:"confidence"`
	Entry      string    `json:"entry"`
	StopLoss   string    `json:"stop_loss"`
	TakeProfit string    `json:"take_profit"`
	RecordedAt time.Time `json:"recorded_at"`
}

// EntryFromView extracts the journaled part of a view model.
func EntryFromView(vm dashboard.ViewModel, at time.Time) SignalEntry {
	return SignalEntry{
		Epoch:      vm.Epoch,
		Pair:       vm.Pair,
		Action:     vm.Action,
		Category:   string(vm.ActionClass),
		Confidence: vm.Confidence,
		Entry:      vm.Entry,
		StopLoss:   vm.StopLoss,
		TakeProfit: vm.TakeProfit,
		RecordedAt: at,
	}
}

// sameSignal reports whether two entries describe the same recommendation.
func sameSignal(a, b SignalEntry) bool {
	return a.Pair == b.Pair && a.Action == b.Action && a.Confidence == b.Confidence &&
		a.Entry == b.Entry && a.StopLoss == b.StopLoss && a.TakeProfit == b.TakeProfit
}

// SignalJournal records recommendation changes.
type SignalJournal interface {
	// Record appends e unless it repeats the latest entry. It reports whether
	// a row was written.
	Record(ctx context.Context, e SignalEntry) (bool, error)

	// Recent returns up to n entries, newest first.
	Recent(ctx context.Context, n int) ([]SignalEntry, error)
}

// CandleExporter writes a rendered candle series somewhere durable.
type CandleExporter interface {
	// ExportCandles writes candles for pair and returns the file written.
	ExportCandles(pair string, candles []dashboard.Candle, at time.Time) (string, error)
}
