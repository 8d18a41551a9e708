package tle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// DefaultSources are tried in order until one yields a usable catalog.
var DefaultSources = []string{
	"https://celestrak.org/NORAD/elements/gp.php?GROUP=starlink&FORMAT=tle",
	"https://celestrak.org/NORAD/elements/supplemental/starlink.txt",
	"https://celestrak.org/NORAD/elements/starlink.txt",
}

// Fetcher retrieves raw TLE text from a list of remote sources with
// per-source fallback.
type Fetcher struct {
	sources    []string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewFetcher creates a Fetcher. An empty source list falls back to
// DefaultSources.
func NewFetcher(sources []string, logger *slog.Logger) *Fetcher {
	if len(sources) == 0 {
		sources = DefaultSources
	}
	return &Fetcher{
		sources: sources,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// Fetch tries each source in order and returns the first successful body
// along with the source URL it came from. All failures are joined into the
// returned error when every source fails.
func (f *Fetcher) Fetch(ctx context.Context) ([]byte, string, error) {
	var errs []error
	for _, src := range f.sources {
		data, err := f.fetchOne(ctx, src)
		if err != nil {
			f.logger.Warn("TLE source failed", "source", src, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", src, err))
			continue
		}
		return data, src, nil
	}
	return nil, "", fmt.Errorf("all TLE sources failed: %w", errors.Join(errs...))
}

func (f *Fetcher) fetchOne(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching TLE data: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	return body, nil
}
