package dashboard

import "strings"

// Locale selects the message catalog.
type Locale string

const (
	LocaleEN Locale = "en"
	LocaleDE Locale = "de"
)

// ParseLocale maps a config value to a supported locale, defaulting to English.
func ParseLocale(s string) Locale {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "de", "de-de", "de_de", "german":
		return LocaleDE
	default:
		return LocaleEN
	}
}

// MessageKey identifies a user-visible string.
type MessageKey string

const (
	MsgNewsPlaceholder   MessageKey = "news_placeholder"
	MsgTradingViewPrefix MessageKey = "tradingview_prefix"
	MsgTradingViewNone   MessageKey = "tradingview_none"
	MsgIntervalLabel     MessageKey = "interval_label"
	MsgStatusLoading     MessageKey = "status_loading"
	MsgStatusOK          MessageKey = "status_ok"
	MsgStatusBackend     MessageKey = "status_backend"
	MsgStatusHTTP        MessageKey = "status_http"
	MsgStatusParse       MessageKey = "status_parse"
	MsgStatusUnreachable MessageKey = "status_unreachable"
	MsgSettingsSaved     MessageKey = "settings_saved"
	MsgSettingsFailed    MessageKey = "settings_failed"
	MsgExportDone        MessageKey = "export_done"
	MsgExportEmpty       MessageKey = "export_empty"
	MsgExportFailed      MessageKey = "export_failed"
)

var catalog = map[Locale]map[MessageKey]string{
	LocaleEN: {
		MsgNewsPlaceholder:   "No matching news found or RSS temporarily unreachable.",
		MsgTradingViewPrefix: "TradingView-TA: ",
		MsgTradingViewNone:   "TradingView-TA: not available (optional)",
		MsgIntervalLabel:     "Interval",
		MsgStatusLoading:     "Loading...",
		MsgStatusOK:          "Data up to date",
		MsgStatusBackend:     "Backend reported a problem",
		MsgStatusHTTP:        "Backend answered with an error",
		MsgStatusParse:       "Backend sent an unreadable response",
		MsgStatusUnreachable: "Backend unreachable",
		MsgSettingsSaved:     "Settings saved",
		MsgSettingsFailed:    "Saving failed",
		MsgExportDone:        "Chart exported",
		MsgExportEmpty:       "No chart data to export",
		MsgExportFailed:      "Export failed",
	},
	LocaleDE: {
		MsgNewsPlaceholder:   "Keine passenden News gefunden oder RSS temporaer nicht erreichbar.",
		MsgTradingViewPrefix: "TradingView-TA: ",
		MsgTradingViewNone:   "TradingView-TA: nicht verfuegbar (optional)",
		MsgIntervalLabel:     "Intervall",
		MsgStatusLoading:     "Lade...",
		MsgStatusOK:          "Daten aktuell",
		MsgStatusBackend:     "Backend meldet ein Problem",
		MsgStatusHTTP:        "Backend antwortet mit Fehler",
		MsgStatusParse:       "Antwort des Backends unlesbar",
		MsgStatusUnreachable: "Backend nicht erreichbar",
		MsgSettingsSaved:     "Einstellungen gespeichert",
		MsgSettingsFailed:    "Speichern fehlgeschlagen",
		MsgExportDone:        "Chart exportiert",
		MsgExportEmpty:       "Keine Chartdaten zum Exportieren",
		MsgExportFailed:      "Export fehlgeschlagen",
	},
}

// Message returns the localized text for key, falling back to English.
func (l Locale) Message(key MessageKey) string {
	if m, ok := catalog[l][key]; ok {
		return m
	}
	return catalog[LocaleEN][key]
}

var fieldLabels = map[Locale]map[FieldID]string{
	LocaleEN: {
		FieldUpdated:     "Updated",
		FieldPrice:       "Price",
		FieldMeta:        "Market",
		FieldRefresh:     "Refresh",
		FieldAction:      "Signal",
		FieldConfidence:  "Confidence",
		FieldEntry:       "Entry",
		FieldStopLoss:    "Stop loss",
		FieldTakeProfit:  "Take profit",
		FieldScore:       "Score",
		FieldSuccess:     "Success chance",
		FieldEntryETA:    "Entry ETA",
		FieldTargetETA:   "Target ETA",
		FieldReason:      "Reason",
		FieldRSI:         "RSI 14",
		FieldEMA20:       "EMA 20",
		FieldEMA50:       "EMA 50",
		FieldMACDHist:    "MACD hist",
		FieldATR:         "ATR 14",
		FieldTradingView: "Third party",
	},
	LocaleDE: {
		FieldUpdated:     "Aktualisiert",
		FieldPrice:       "Kurs",
		FieldMeta:        "Markt",
		FieldRefresh:     "Refresh",
		FieldAction:      "Signal",
		FieldConfidence:  "Konfidenz",
		FieldEntry:       "Einstieg",
		FieldStopLoss:    "Stop-Loss",
		FieldTakeProfit:  "Take-Profit",
		FieldScore:       "Score",
		FieldSuccess:     "Erfolgschance",
		FieldEntryETA:    "Einstieg in",
		FieldTargetETA:   "Ziel in",
		FieldReason:      "Begruendung",
		FieldRSI:         "RSI 14",
		FieldEMA20:       "EMA 20",
		FieldEMA50:       "EMA 50",
		FieldMACDHist:    "MACD Hist.",
		FieldATR:         "ATR 14",
		FieldTradingView: "Drittanbieter",
	},
}

// Label returns the localized caption of a field, or the field ID itself.
func (l Locale) Label(id FieldID) string {
	if s, ok := fieldLabels[l][id]; ok {
		return s
	}
	if s, ok := fieldLabels[LocaleEN][id]; ok {
		return s
	}
	return string(id)
}
