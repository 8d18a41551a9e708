// Package report writes analysis output files: a per-sample CSV time
// series and a JSON summary of the aggregate statistics.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/skywatch/covergo/internal/coverage"
)

const (
	seriesFile = "coverage_data.csv"
	statsFile  = "coverage_stats.json"
)

// Writer persists analysis results under a fixed output directory.
type Writer struct {
	dir    string
	logger *slog.Logger
}

// NewWriter creates the output directory if needed.
func NewWriter(dir string, logger *slog.Logger) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	return &Writer{dir: dir, logger: logger}, nil
}

// WriteSeries writes the per-sample time series as CSV.
func (w *Writer) WriteSeries(points []coverage.Point) (string, error) {
	path := filepath.Join(w.dir, seriesFile)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create series file: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err := cw.Write([]string{"timestamp", "visible_count", "elevation", "best_satellite", "distance_km"}); err != nil {
		return "", fmt.Errorf("write series header: %w", err)
	}
	for _, p := range points {
		rec := []string{
			p.Timestamp.UTC().Format(time.RFC3339),
			strconv.Itoa(p.VisibleCount),
			strconv.FormatFloat(p.Elevation, 'f', 2, 64),
			p.BestSatellite,
			strconv.FormatFloat(p.DistanceKm, 'f', 2, 64),
		}
		if err := cw.Write(rec); err != nil {
			return "", fmt.Errorf("write series row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return "", fmt.Errorf("flush series file: %w", err)
	}

	w.logger.Info("series written", "path", path, "samples", len(points))
	return path, nil
}

// WriteStats writes the aggregate statistics as indented JSON.
func (w *Writer) WriteStats(stats coverage.Statistics) (string, error) {
	path := filepath.Join(w.dir, statsFile)
	data, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal stats: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write stats file: %w", err)
	}

	w.logger.Info("stats written", "path", path)
	return path, nil
}
