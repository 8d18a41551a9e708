package visibility

import (
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/skywatch/covergo/internal/frame"
	"github.com/skywatch/covergo/internal/tle"
)

// ISS orbital elements (epoch 2024); propagate reasonably near the epoch.
const (
	issLine1 = "1 25544U 98067A   24100.50000000  .00016717  00000-0  10270-3 0  9005"
	issLine2 = "2 25544  51.6400 100.0000 0001000   0.0000   0.0000 15.50000000    09"
)

// Typical Starlink-shell LEO elements.
const (
	starlinkLine1 = "1 44713U 19074A   24100.50000000  .00001000  00000-0  10000-4 0  9995"
	starlinkLine2 = "2 44713  53.0000 200.0000 0001500  90.0000 270.0000 15.06000000    05"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestNewEphemeris_Valid(t *testing.T) {
	eph, err := NewEphemeris("ISS", issLine1, issLine2)
	if err != nil {
		t.Fatalf("NewEphemeris: %v", err)
	}

	target := time.Date(2024, 4, 10, 12, 0, 0, 0, time.UTC)
	teme, err := eph.StateAt(target.Year(), int(target.Month()), target.Day(), target.Hour(), target.Minute(), target.Second())
	if err != nil {
		t.Fatalf("StateAt: %v", err)
	}

	// ISS altitude ~420 km: magnitude near 6791 km.
	mag := math.Sqrt(teme.X*teme.X + teme.Y*teme.Y + teme.Z*teme.Z)
	if mag < 6500 || mag > 7000 {
		t.Errorf("TEME magnitude = %.1f km, expected ~6791 km", mag)
	}
}

func TestNewEphemeris_Invalid(t *testing.T) {
	if _, err := NewEphemeris("BAD", "invalid line 1", "invalid line 2"); err == nil {
		t.Fatal("expected error for invalid TLE, got nil")
	}
	if _, err := NewEphemeris("SWAPPED", issLine2, issLine1); err == nil {
		t.Fatal("expected error for swapped TLE lines, got nil")
	}
}

func TestNewEngine_SkipsBadSets(t *testing.T) {
	catalog := &tle.Catalog{
		Sets: []tle.ElementSet{
			{Name: "ISS", Line1: issLine1, Line2: issLine2},
			{Name: "BROKEN", Line1: "1 garbage", Line2: "2 garbage"},
			{Name: "STARLINK-1007", Line1: starlinkLine1, Line2: starlinkLine2},
		},
	}
	obs, _ := frame.NewObserver(25.0330, 121.5654, 10)

	eng, skipped := NewEngine(catalog, obs, 25, testLogger())
	if skipped != 1 {
		t.Errorf("skipped = %d, want 1", skipped)
	}
	if eng.Satellites() != 2 {
		t.Errorf("usable satellites = %d, want 2", eng.Satellites())
	}
}

func TestNewEngine_NilCatalog(t *testing.T) {
	obs, _ := frame.NewObserver(0, 0, 0)
	eng, skipped := NewEngine(nil, obs, 25, testLogger())
	if skipped != 0 || eng.Satellites() != 0 {
		t.Errorf("nil catalog: satellites=%d skipped=%d, want 0/0", eng.Satellites(), skipped)
	}
	if recs := eng.VisibleAt(time.Now()); len(recs) != 0 {
		t.Errorf("expected no records from empty engine, got %d", len(recs))
	}
}

func TestVisibleAt_ThresholdFilters(t *testing.T) {
	catalog := &tle.Catalog{
		Sets: []tle.ElementSet{
			{Name: "ISS", Line1: issLine1, Line2: issLine2},
			{Name: "STARLINK-1007", Line1: starlinkLine1, Line2: starlinkLine2},
		},
	}
	obs, _ := frame.NewObserver(25.0330, 121.5654, 10)
	target := time.Date(2024, 4, 10, 12, 0, 0, 0, time.UTC)

	// With an impossible threshold nothing can be visible.
	engHigh, _ := NewEngine(catalog, obs, 90, testLogger())
	if recs := engHigh.VisibleAt(target); len(recs) != 0 {
		t.Errorf("threshold 90°: got %d records, want 0", len(recs))
	}

	// With threshold -90 every satellite that propagates cleanly is "visible";
	// this checks record fields rather than geometry.
	engAll, _ := NewEngine(catalog, obs, -90, testLogger())
	recs := engAll.VisibleAt(target)
	if len(recs) != 2 {
		t.Fatalf("threshold -90°: got %d records, want 2", len(recs))
	}
	for _, r := range recs {
		if r.Satellite == "" {
			t.Error("record missing satellite name")
		}
		if r.RangeKm <= 0 {
			t.Errorf("%s: range %.1f km, want > 0", r.Satellite, r.RangeKm)
		}
		if r.ElevationDeg < -90 || r.ElevationDeg > 90 {
			t.Errorf("%s: elevation %.1f out of range", r.Satellite, r.ElevationDeg)
		}
		if r.AzimuthDeg < 0 || r.AzimuthDeg >= 360 {
			t.Errorf("%s: azimuth %.1f out of range", r.Satellite, r.AzimuthDeg)
		}
		if !r.Timestamp.Equal(target) {
			t.Errorf("%s: timestamp %v, want %v", r.Satellite, r.Timestamp, target)
		}
	}
	// Catalog order must be preserved.
	if recs[0].Satellite != "ISS" || recs[1].Satellite != "STARLINK-1007" {
		t.Errorf("records out of catalog order: %s, %s", recs[0].Satellite, recs[1].Satellite)
	}
}

func TestVisibleAt_Deterministic(t *testing.T) {
	catalog := &tle.Catalog{
		Sets: []tle.ElementSet{{Name: "ISS", Line1: issLine1, Line2: issLine2}},
	}
	obs, _ := frame.NewObserver(25.0330, 121.5654, 10)
	eng, _ := NewEngine(catalog, obs, -90, testLogger())

	target := time.Date(2024, 4, 10, 12, 0, 0, 0, time.UTC)
	a := eng.VisibleAt(target)
	b := eng.VisibleAt(target)
	if len(a) != len(b) {
		t.Fatalf("run lengths differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("record %d differs between identical evaluations: %+v vs %+v", i, a[i], b[i])
		}
	}
}
