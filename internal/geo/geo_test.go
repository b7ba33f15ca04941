// ABOUTME: Tests for geohash helpers and the static locator.
// ABOUTME: Checks distances against known city pairs and that prefilters never drop nearby points.
package geo

import (
	"context"
	"math"
	"testing"
)

func TestNewStaticLocator(t *testing.T) {
	loc, err := NewStaticLocator(" U4PRUYDQQVJ ")
	if err != nil {
		t.Fatalf("NewStaticLocator failed: %v", err)
	}
	if loc.Hash() != "u4pruydqqvj" {
		t.Errorf("expected normalized hash, got %q", loc.Hash())
	}
	lat, lng, err := loc.Locate(context.Background())
	if err != nil {
		t.Fatalf("Locate failed: %v", err)
	}
	if math.Abs(lat-57.64911) > 0.001 || math.Abs(lng-10.40744) > 0.001 {
		t.Errorf("unexpected position %f,%f", lat, lng)
	}
}

func TestNewStaticLocatorRejectsBadHash(t *testing.T) {
	for _, h := range []string{"", "   ", "abc!", "ailo"} {
		if _, err := NewStaticLocator(h); err == nil {
			t.Errorf("expected error for %q", h)
		}
	}
}

func TestLocateHonoursCancelledContext(t *testing.T) {
	loc, err := NewStaticLocator("u4pru")
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := loc.Locate(ctx); err == nil {
		t.Error("expected context error")
	}
}

func TestDistanceKm(t *testing.T) {
	tests := []struct {
		name                   string
		lat1, lng1, lat2, lng2 float64
		want, tolerance        float64
	}{
		{"same point", 53.9, 27.56, 53.9, 27.56, 0, 0.001},
		{"minsk to brest", 53.9006, 27.5590, 52.0976, 23.7341, 326, 5},
		{"paris to london", 48.8566, 2.3522, 51.5074, -0.1278, 344, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DistanceKm(tt.lat1, tt.lng1, tt.lat2, tt.lng2)
			if math.Abs(got-tt.want) > tt.tolerance {
				t.Errorf("DistanceKm = %.1f, want %.1f±%.1f", got, tt.want, tt.tolerance)
			}
		})
	}
}

func TestCoverPrefixesContainNearbyPoints(t *testing.T) {
	lat, lng, radius := 53.9006, 27.5590, 5.0
	prefixes := CoverPrefixes(lat, lng, radius)
	if len(prefixes) != 9 {
		t.Fatalf("expected centre plus 8 neighbours, got %d", len(prefixes))
	}

	// Points on a ring just inside the radius.
	for deg := 0; deg < 360; deg += 15 {
		rad := float64(deg) * math.Pi / 180
		dLat := (radius * 0.99 / kmPerDegree) * math.Cos(rad)
		dLng := (radius * 0.99 / (kmPerDegree * math.Cos(lat*math.Pi/180))) * math.Sin(rad)
		h := Encode(lat+dLat, lng+dLng)
		if !HasAnyPrefix(h, prefixes) {
			t.Errorf("point at bearing %d (%s) not covered by %v", deg, h, prefixes)
		}
	}

	far := Encode(52.0976, 23.7341)
	if HasAnyPrefix(far, prefixes) {
		t.Errorf("distant point %s should be filtered out", far)
	}
}

func TestHasAnyPrefixEmptyMatchesAll(t *testing.T) {
	if !HasAnyPrefix("u4pru", nil) {
		t.Error("empty prefix list should match")
	}
}
