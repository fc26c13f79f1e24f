package settings

import (
	"math"
	"reflect"
	"strings"
	"testing"
)

func TestCoerce(t *testing.T) {
	doc := Document{
		"symbol":                    "EURJPY",
		"risk_per_trade":            " 1.5 ",
		"min_ai_probability":        0.8,
		"min_rr":                    "",
		"analysis_interval_minutes": "15",
		"session_filter":            "false",
		"timeframes":                " H4, ,M15 ,",
		"etoro_client_secret":       " s3cr3t ",
		"extra_backend_key":         map[string]any{"nested": true},
	}

	got, err := Coerce(doc)
	if err != nil {
		t.Fatalf("Coerce: %v", err)
	}

	want := Document{
		"symbol":                    "EURJPY",
		"risk_per_trade":            1.5,
		"min_ai_probability":        0.8,
		"min_rr":                    0.0,
		"analysis_interval_minutes": 15.0,
		"session_filter":            false,
		"timeframes":                []string{"H4", "M15"},
		"etoro_client_secret":       " s3cr3t ",
		"extra_backend_key":         map[string]any{"nested": true},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Coerce =\n  %v\nwant\n  %v", got, want)
	}
	if doc["risk_per_trade"] != " 1.5 " {
		t.Error("Coerce modified its input")
	}
}

func TestCoerceInvalid(t *testing.T) {
	_, err := Coerce(Document{"min_rr": "two"})
	if err == nil || !strings.Contains(err.Error(), "min_rr") {
		t.Errorf("Coerce = %v, want min_rr error", err)
	}
	for _, v := range []any{"NaN", " inf ", "-Infinity", math.Inf(1)} {
		_, err = Coerce(Document{"min_rr": v})
		if err == nil || !strings.Contains(err.Error(), "min_rr") || !strings.Contains(err.Error(), "not a number") {
			t.Errorf("Coerce(%v) = %v, want min_rr not a number", v, err)
		}
	}
	_, err = Coerce(Document{"session_filter": "maybe"})
	if err == nil || !strings.Contains(err.Error(), "session_filter") {
		t.Errorf("Coerce = %v, want session_filter error", err)
	}
}

func TestFormValue(t *testing.T) {
	doc := Defaults()
	tests := []struct {
		key, want string
	}{
		{"symbol", "EURJPY"},
		{"min_ai_probability", "0.72"},
		{"analysis_interval_minutes", "5"},
		{"session_filter", "true"},
		{"timeframes", "H4,H1,M15"},
		{"missing", ""},
	}
	for _, tt := range tests {
		if got := FormValue(doc, tt.key); got != tt.want {
			t.Errorf("FormValue(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestSetAndMerge(t *testing.T) {
	loaded := Document{"symbol": "GBPJPY", "custom": 1.0}
	doc := Merge(Defaults(), loaded)
	if doc["symbol"] != "GBPJPY" || doc["custom"] != 1.0 || doc["min_rr"] != 2.2 {
		t.Errorf("Merge = %v", doc)
	}

	edited := Set(doc, "timeframes", "D1, H4")
	if !reflect.DeepEqual(edited["timeframes"], []string{"D1", "H4"}) {
		t.Errorf("timeframes = %v", edited["timeframes"])
	}
	edited = Set(edited, "min_rr", "3")
	if edited["min_rr"] != "3" {
		t.Errorf("min_rr = %v, want raw text before Coerce", edited["min_rr"])
	}
	if doc["min_rr"] != 2.2 {
		t.Error("Set modified its input")
	}
}

func TestFieldsCoverDefaults(t *testing.T) {
	d := Defaults()
	for _, f := range Fields {
		if _, ok := d[f.Key]; !ok {
			t.Errorf("field %q has no default", f.Key)
		}
	}
	if len(d) != len(Fields) {
		t.Errorf("defaults = %d keys, fields = %d", len(d), len(Fields))
	}
}
