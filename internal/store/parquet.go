package store

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"

	"signaldash/internal/dashboard"
)

// Compile-time interface check.
var _ CandleExporter = (*ParquetExporter)(nil)

// ParquetExporter implements CandleExporter using Parquet files on disk.
type ParquetExporter struct {
	Dir string
}

// NewParquetExporter creates an exporter writing into dir.
func NewParquetExporter(dir string) *ParquetExporter {
	return &ParquetExporter{Dir: dir}
}

// CandleRecord is the Parquet schema for an exported candle.
type CandleRecord struct {
	Pair      string  `parquet:"pair"`
	Timestamp int64   `parquet:"timestamp,timestamp(millisecond)"` // Unix ms
	Open      float64 `parquet:"open"`
	High      float64 `parquet:"high"`
	Low       float64 `parquet:"low"`
	Close     float64 `parquet:"close"`
}

// ExportCandles writes candles to <Dir>/<PAIR>-<unix>.parquet.
func (x *ParquetExporter) ExportCandles(pair string, candles []dashboard.Candle, at time.Time) (string, error) {
	if len(candles) == 0 {
		return "", fmt.Errorf("export %s: no candles", pair)
	}
	name := fileSafe(pair)
	records := make([]CandleRecord, len(candles))
	for i, c := range candles {
		records[i] = CandleRecord{
			Pair:      name,
			Timestamp: c.Time * 1000,
			Open:      c.Open,
			High:      c.High,
			Low:       c.Low,
			Close:     c.Close,
		}
	}

	path := x.exportPath(name, at)
	if err := writeParquetFile(path, records); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}

// ReadCandles loads an exported file back into chart candles.
func ReadCandles(path string) ([]dashboard.Candle, error) {
	records, err := readParquetFile[CandleRecord](path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	out := make([]dashboard.Candle, len(records))
	for i, r := range records {
		out[i] = dashboard.Candle{
			Time:  r.Timestamp / 1000,
			Open:  r.Open,
			High:  r.High,
			Low:   r.Low,
			Close: r.Close,
		}
	}
	return out, nil
}

// exportPath returns the filesystem path for an export.
// Layout: <Dir>/<PAIR>-<unix seconds>.parquet
func (x *ParquetExporter) exportPath(name string, at time.Time) string {
	return filepath.Join(x.Dir, fmt.Sprintf("%s-%d.parquet", name, at.Unix()))
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// fileSafe upper-cases pair and strips characters unfit for a file name.
func fileSafe(pair string) string {
	s := unsafeName.ReplaceAllString(strings.ToUpper(strings.TrimSpace(pair)), "")
	if s == "" {
		return "CHART"
	}
	return s
}

// ---------------------------------------------------------------------------
// Parquet file helpers
// ---------------------------------------------------------------------------

func writeParquetFile[T any](path string, records []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return parquet.WriteFile(path, records)
}

func readParquetFile[T any](path string) ([]T, error) {
	rows, err := parquet.ReadFile[T](path)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
