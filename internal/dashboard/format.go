package dashboard

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"signaldash/pkg/signalapi"
)

// Sentinel is displayed for every absent value.
const Sentinel = "-"

// TimeLayout is used for the "updated" field.
const TimeLayout = "2006-01-02 15:04:05"

// FormatInt formats an integer with comma separators.
func FormatInt(n int) string {
	s := fmt.Sprintf("%d", n)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	if len(s) <= 3 {
		if neg {
			return "-" + s
		}
		return s
	}
	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	start := len(s) % 3
	if start > 0 {
		b.WriteString(s[:start])
	}
	for i := start; i < len(s); i += 3 {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// FormatFixed formats v with exactly places decimals, or the sentinel.
func FormatFixed(v signalapi.OptFloat, places int32) string {
	if !usable(v) {
		return Sentinel
	}
	return decimal.NewFromFloat(v.Value).StringFixed(places)
}

// FormatPlain formats v in its shortest exact decimal form, or the sentinel.
func FormatPlain(v signalapi.OptFloat) string {
	if !usable(v) {
		return Sentinel
	}
	return strconv.FormatFloat(v.Value, 'f', -1, 64)
}

// FormatPercent formats v as "<n>%".
func FormatPercent(v signalapi.OptFloat) string {
	return withUnit(v, "%")
}

// FormatHours formats an ETA as "<n>h".
func FormatHours(v signalapi.OptFloat) string {
	return withUnit(v, "h")
}

// FormatSeconds formats a duration in seconds as "<n>s".
func FormatSeconds(v signalapi.OptFloat) string {
	return withUnit(v, "s")
}

// FormatInterval formats a polling interval as "<n>s".
func FormatInterval(d time.Duration) string {
	if d <= 0 {
		return Sentinel
	}
	return strconv.FormatFloat(d.Seconds(), 'f', -1, 64) + "s"
}

// FormatEpoch formats epoch seconds in loc (UTC when nil).
func FormatEpoch(v signalapi.OptFloat, loc *time.Location) string {
	if !usable(v) {
		return Sentinel
	}
	if loc == nil {
		loc = time.UTC
	}
	sec, frac := math.Modf(v.Value)
	return time.Unix(int64(sec), int64(frac*1e9)).In(loc).Format(TimeLayout)
}

// FormatText returns the trimmed string, or the sentinel when blank.
func FormatText(s signalapi.OptString) string {
	if !s.Valid {
		return Sentinel
	}
	if t := strings.TrimSpace(s.Value); t != "" {
		return t
	}
	return Sentinel
}

func withUnit(v signalapi.OptFloat, unit string) string {
	s := FormatPlain(v)
	if s == Sentinel {
		return s
	}
	return s + unit
}

func usable(v signalapi.OptFloat) bool {
	return v.Valid && !math.IsNaN(v.Value) && !math.IsInf(v.Value, 0)
}
