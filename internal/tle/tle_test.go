package tle

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var testLogger = slog.New(slog.NewJSONHandler(io.Discard, nil))

const (
	issTLE = "ISS (ZARYA)\n" +
		"1 25544U 98067A   24100.50000000  .00016717  00000-0  10270-3 0  9005\n" +
		"2 25544  51.6400 100.0000 0001000   0.0000   0.0000 15.50000000    09\n"
	starlinkTLE = "STARLINK-1007\n" +
		"1 44713U 19074A   24100.50000000  .00001000  00000-0  10000-4 0  9995\n" +
		"2 44713  53.0000 200.0000 0001500  90.0000 270.0000 15.06000000    05\n"
)

func TestParse(t *testing.T) {
	sets, dropped, err := Parse(strings.NewReader(issTLE+starlinkTLE), testLogger)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if dropped != 0 {
		t.Errorf("dropped = %d, want 0", dropped)
	}
	if len(sets) != 2 {
		t.Fatalf("expected 2 element sets, got %d", len(sets))
	}
	if sets[0].Name != "ISS (ZARYA)" {
		t.Errorf("first name = %q, want ISS (ZARYA)", sets[0].Name)
	}
	if !strings.HasPrefix(sets[1].Line2, "2 ") {
		t.Errorf("line2 prefix missing: %q", sets[1].Line2)
	}
}

func TestParse_DropsMalformed(t *testing.T) {
	// The line-1 marker is wrong in the middle entry; the parser must drop it
	// and still recover the surrounding entries.
	input := issTLE +
		"BROKEN\nX bad line one\n2 00001  51.6400 100.0000 0001000   0.0000   0.0000 15.50000000    09\n" +
		starlinkTLE

	sets, dropped, err := Parse(strings.NewReader(input), testLogger)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(sets) != 2 {
		t.Errorf("expected 2 valid element sets, got %d", len(sets))
	}
	if dropped == 0 {
		t.Error("expected dropped > 0 for malformed entry")
	}
	for _, s := range sets {
		if s.Name == "BROKEN" {
			t.Error("malformed entry survived parsing")
		}
	}
}

func TestParse_Empty(t *testing.T) {
	sets, dropped, err := Parse(strings.NewReader(""), testLogger)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(sets) != 0 || dropped != 0 {
		t.Errorf("expected empty result, got %d sets, %d dropped", len(sets), dropped)
	}
}

func TestStore(t *testing.T) {
	s := NewStore()
	if s.Get() != nil {
		t.Error("empty store should return nil")
	}
	if s.AgeSeconds() != -1 {
		t.Errorf("empty store age = %f, want -1", s.AgeSeconds())
	}

	c := &Catalog{Source: "test", FetchedAt: time.Now().Add(-10 * time.Second)}
	s.Set(c)
	if got := s.Get(); got != c {
		t.Error("Get did not return the stored catalog")
	}
	if age := s.AgeSeconds(); age < 9 || age > 60 {
		t.Errorf("age = %f, want ~10s", age)
	}
}

func TestFetcher_FallbackToSecondSource(t *testing.T) {
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer failing.Close()

	ok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(issTLE))
	}))
	defer ok.Close()

	f := NewFetcher([]string{failing.URL, ok.URL}, testLogger)
	data, source, err := f.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if source != ok.URL {
		t.Errorf("source = %q, want fallback %q", source, ok.URL)
	}
	if string(data) != issTLE {
		t.Errorf("body mismatch: got %d bytes, want %d", len(data), len(issTLE))
	}
}

func TestFetcher_AllSourcesFail(t *testing.T) {
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer failing.Close()

	f := NewFetcher([]string{failing.URL, failing.URL}, testLogger)
	_, _, err := f.Fetch(context.Background())
	if err == nil {
		t.Fatal("expected error when every source fails")
	}
}

func TestCache_WriteLoadPrune(t *testing.T) {
	dir := t.TempDir()
	c := NewCache(dir, 2)

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		data := []byte(strings.Repeat("x", i+1))
		if err := c.Write(data, base.Add(time.Duration(i)*time.Minute)); err != nil {
			t.Fatalf("Write %d: %v", i, err)
		}
	}

	data, ts, err := c.LoadLatest()
	if err != nil {
		t.Fatalf("LoadLatest: %v", err)
	}
	if len(data) != 3 {
		t.Errorf("latest payload = %d bytes, want 3", len(data))
	}
	if !ts.Equal(time.Unix(base.Add(2*time.Minute).Unix(), 0)) {
		t.Errorf("latest ts = %v, want %v", ts, base.Add(2*time.Minute))
	}

	files, err := filepath.Glob(filepath.Join(dir, "catalog_*.tle"))
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(files) != 2 {
		t.Errorf("expected 2 retained cache files, got %d", len(files))
	}
}

func TestCache_LoadLatestEmpty(t *testing.T) {
	c := NewCache(t.TempDir(), 5)
	if _, _, err := c.LoadLatest(); err == nil {
		t.Fatal("expected error for empty cache")
	}
}

func TestLoad_CacheFallback(t *testing.T) {
	dir := t.TempDir()
	if err := NewCache(dir, 5).Write([]byte(issTLE), time.Now()); err != nil {
		t.Fatalf("seeding cache: %v", err)
	}

	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer failing.Close()

	cat, err := Load(context.Background(), LoadConfig{
		Sources:  []string{failing.URL},
		CacheDir: dir,
		MinSets:  1,
	}, testLogger)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cat.Source != "cache" {
		t.Errorf("source = %q, want cache", cat.Source)
	}
	if len(cat.Sets) != 1 {
		t.Errorf("sets = %d, want 1", len(cat.Sets))
	}
}

func TestLoad_RejectsTinyCatalog(t *testing.T) {
	tiny := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(issTLE))
	}))
	defer tiny.Close()

	_, err := Load(context.Background(), LoadConfig{
		Sources: []string{tiny.URL},
		MinSets: 100,
	}, testLogger)
	if err == nil {
		t.Fatal("expected error for catalog below MinSets with no cache")
	}
}
