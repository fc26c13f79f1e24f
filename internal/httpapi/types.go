// Package httpapi mirrors the dashboard's rendered state over HTTP as JSON,
// serving the same fields the TUI shows.
package httpapi

import (
	"time"

	"signaldash/internal/dashboard"
)

// FieldJSON is one labeled panel value.
type FieldJSON struct {
	ID    dashboard.FieldID `json:"id"`
	Label string            `json:"label"`
	Value string            `json:"value"`
}

// StatusJSON is the connectivity indicator.
type StatusJSON struct {
	State   dashboard.Connectivity `json:"state"`
	Message string                 `json:"message"`
}

// ViewResponse is the body of GET /api/view.
type ViewResponse struct {
	Fields    []FieldJSON          `json:"fields"`
	Candles   []dashboard.Candle   `json:"candles"`
	News      []dashboard.NewsItem `json:"news"`
	Status    StatusJSON           `json:"status"`
	Renders   int                  `json:"renders"`
	UpdatedAt *time.Time           `json:"updatedAt,omitempty"` // last render, mirror clock
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	OK     bool                   `json:"ok"`
	Status dashboard.Connectivity `json:"status"`
}
