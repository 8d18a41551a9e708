package tle

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"
)

// LoadConfig controls catalog acquisition.
type LoadConfig struct {
	Sources  []string // remote sources, tried in order (DefaultSources when empty)
	CacheDir string   // disk cache location; empty disables caching
	MaxFiles int      // cache files to retain
	MinSets  int      // reject downloads with fewer element sets than this
}

// Load acquires a catalog: remote sources first, then the local disk cache
// when every source fails. A successful download is written back to the cache.
// Downloads that parse to fewer than MinSets element sets are treated as
// failures, matching the sanity check on constellation-sized catalogs.
func Load(ctx context.Context, cfg LoadConfig, logger *slog.Logger) (*Catalog, error) {
	fetcher := NewFetcher(cfg.Sources, logger)

	data, source, fetchErr := fetcher.Fetch(ctx)
	if fetchErr == nil {
		sets, dropped, err := Parse(bytes.NewReader(data), logger)
		if err == nil && len(sets) >= cfg.MinSets {
			fetchedAt := time.Now().UTC()
			if cfg.CacheDir != "" {
				if cerr := NewCache(cfg.CacheDir, cfg.MaxFiles).Write(data, fetchedAt); cerr != nil {
					logger.Warn("failed to cache TLE data", "error", cerr)
				}
			}
			logger.Info("TLE catalog downloaded",
				"source", source,
				"sets", len(sets),
				"dropped", dropped,
			)
			return &Catalog{Source: source, FetchedAt: fetchedAt, Sets: sets, Dropped: dropped}, nil
		}
		if err != nil {
			fetchErr = err
		} else {
			fetchErr = fmt.Errorf("downloaded catalog has only %d element sets (minimum %d)", len(sets), cfg.MinSets)
		}
		logger.Warn("downloaded TLE data unusable", "source", source, "error", fetchErr)
	}

	if cfg.CacheDir == "" {
		return nil, fmt.Errorf("acquiring TLE catalog: %w", fetchErr)
	}

	data, ts, cacheErr := NewCache(cfg.CacheDir, cfg.MaxFiles).LoadLatest()
	if cacheErr != nil {
		return nil, fmt.Errorf("acquiring TLE catalog: download failed (%v), cache failed (%v)", fetchErr, cacheErr)
	}

	sets, dropped, err := Parse(bytes.NewReader(data), logger)
	if err != nil {
		return nil, fmt.Errorf("parsing cached TLE data: %w", err)
	}
	logger.Info("using cached TLE catalog",
		"cached_at", ts.UTC().Format(time.RFC3339),
		"sets", len(sets),
		"dropped", dropped,
	)
	return &Catalog{Source: "cache", FetchedAt: ts, Sets: sets, Dropped: dropped}, nil
}

// LoadFile parses a catalog from raw bytes, for local file input.
func LoadFile(data []byte, path string, logger *slog.Logger) (*Catalog, error) {
	sets, dropped, err := Parse(bytes.NewReader(data), logger)
	if err != nil {
		return nil, fmt.Errorf("parsing TLE file: %w", err)
	}
	return &Catalog{Source: path, FetchedAt: time.Now().UTC(), Sets: sets, Dropped: dropped}, nil
}
