// Package settings edits the backend settings document. The document is
// opaque: keys the editor does not know survive a load/save round trip, and
// broker credentials are passed through untouched. Only the numeric
// thresholds, the session filter flag and the timeframe list are coerced
// before submission.
package settings

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"signaldash/pkg/signalapi"
)

// Document is the settings payload exchanged with the backend.
type Document = signalapi.Settings

// Kind selects how a field is edited and coerced.
type Kind int

const (
	KindText Kind = iota
	KindNumber
	KindBool
	KindList
	KindSecret
)

// Field describes one editable setting.
type Field struct {
	Key   string
	Label string
	Kind  Kind
}

// Fields lists the editable settings in form order.
var Fields = []Field{
	{"symbol", "Symbol", KindText},
	{"risk_per_trade", "Risk per trade %", KindNumber},
	{"min_ai_probability", "Min AI probability", KindNumber},
	{"min_rr", "Min RR", KindNumber},
	{"analysis_interval_minutes", "Interval (minutes)", KindNumber},
	{"session_filter", "Session filter", KindBool},
	{"timeframes", "Timeframes (CSV)", KindList},
	{"etoro_base_url", "Broker base URL", KindText},
	{"etoro_client_id", "Broker client ID", KindText},
	{"etoro_client_secret", "Broker client secret", KindSecret},
	{"etoro_refresh_token", "Broker refresh token", KindSecret},
}

// Lookup returns the field definition for key.
func Lookup(key string) (Field, bool) {
	for _, f := range Fields {
		if f.Key == key {
			return f, true
		}
	}
	return Field{}, false
}

// Defaults returns the document used before the backend answers.
func Defaults() Document {
	return Document{
		"symbol":                    "EURJPY",
		"risk_per_trade":            1.0,
		"min_ai_probability":        0.72,
		"min_rr":                    2.2,
		"analysis_interval_minutes": 5.0,
		"session_filter":            true,
		"timeframes":                []any{"H4", "H1", "M15"},
		"etoro_base_url":            "https://api.etoro.example",
		"etoro_client_id":           "",
		"etoro_client_secret":       "",
		"etoro_refresh_token":       "",
	}
}

// Merge returns base overlaid with loaded. Neither input is modified.
func Merge(base, loaded Document) Document {
	out := make(Document, len(base)+len(loaded))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range loaded {
		out[k] = v
	}
	return out
}

// FormValue renders doc[key] as editable text.
func FormValue(doc Document, key string) string {
	switch v := doc[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case []string:
		return strings.Join(v, ",")
	case []any:
		parts := make([]string, 0, len(v))
		for _, x := range v {
			parts = append(parts, fmt.Sprint(x))
		}
		return strings.Join(parts, ",")
	default:
		return fmt.Sprint(v)
	}
}

// Set stores edited text for key. Known fields keep the text as is until
// Coerce; unknown keys are stored as plain strings.
func Set(doc Document, key, text string) Document {
	out := Merge(doc, nil)
	if f, ok := Lookup(key); ok && f.Kind == KindList {
		out[key] = SplitList(text)
		return out
	}
	out[key] = text
	return out
}

// Coerce returns a copy of doc with numeric thresholds parsed as numbers,
// the session filter as a boolean and timeframes as a list. Every other key
// is copied verbatim.
func Coerce(doc Document) (Document, error) {
	out := Merge(doc, nil)
	for _, f := range Fields {
		v, ok := out[f.Key]
		if !ok {
			continue
		}
		switch f.Kind {
		case KindNumber:
			n, err := toNumber(v)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", f.Key, err)
			}
			out[f.Key] = n
		case KindBool:
			b, err := toBool(v)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", f.Key, err)
			}
			out[f.Key] = b
		case KindList:
			if s, ok := v.(string); ok {
				out[f.Key] = SplitList(s)
			}
		}
	}
	return out, nil
}

// SplitList splits comma-separated text, trimming entries and dropping
// empty ones.
func SplitList(s string) []string {
	out := []string{}
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// toNumber parses v as a finite number; blank text counts as zero.
func toNumber(v any) (float64, error) {
	switch x := v.(type) {
	case nil:
		return 0, nil
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return 0, fmt.Errorf("%v is not a number", x)
		}
		return x, nil
	case int:
		return float64(x), nil
	case bool:
		if x {
			return 1, nil
		}
		return 0, nil
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0, nil
		}
		n, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, fmt.Errorf("%q is not a number", x)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("unsupported value %v", v)
	}
}

func toBool(v any) (bool, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(x)) {
		case "true", "1", "yes", "on", "aktiv":
			return true, nil
		case "false", "0", "no", "off", "inaktiv", "":
			return false, nil
		}
		return false, fmt.Errorf("%q is not a boolean", x)
	case float64:
		return x != 0, nil
	default:
		return false, fmt.Errorf("unsupported value %v", v)
	}
}
