// ABOUTME: Geohash helpers: a static locator for a configured home cell and radius prefilters.
// ABOUTME: Distances are great-circle kilometres on a spherical earth.
package geo

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/mmcloughlin/geohash"
)

const earthRadiusKm = 6371.0

// kmPerDegree is the length of one degree of latitude.
const kmPerDegree = 111.32

// StaticLocator reports a fixed position decoded from a geohash.
type StaticLocator struct {
	hash string
	lat  float64
	lng  float64
}

// NewStaticLocator validates hash and returns a locator at its cell centre.
func NewStaticLocator(hash string) (*StaticLocator, error) {
	hash = strings.ToLower(strings.TrimSpace(hash))
	if hash == "" {
		return nil, fmt.Errorf("empty geohash")
	}
	if err := geohash.Validate(hash); err != nil {
		return nil, fmt.Errorf("invalid geohash %q: %w", hash, err)
	}
	lat, lng := geohash.DecodeCenter(hash)
	return &StaticLocator{hash: hash, lat: lat, lng: lng}, nil
}

// Locate returns the cell centre. It never blocks.
func (l *StaticLocator) Locate(ctx context.Context) (float64, float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, 0, err
	}
	return l.lat, l.lng, nil
}

// Hash returns the normalized geohash.
func (l *StaticLocator) Hash() string {
	return l.hash
}

// Encode returns the full-precision geohash of a point.
func Encode(lat, lng float64) string {
	return geohash.Encode(lat, lng)
}

// DistanceKm is the haversine distance between two points.
func DistanceKm(lat1, lng1, lat2, lng2 float64) float64 {
	lat1r := lat1 * math.Pi / 180
	lat2r := lat2 * math.Pi / 180
	dLat := (lat2 - lat1) * math.Pi / 180
	dLng := (lng2 - lng1) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1r)*math.Cos(lat2r)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// CoverPrefixes returns geohash prefixes whose cells together contain every
// point within radiusKm of (lat, lng): the centre cell and its eight
// neighbours, at the finest precision whose cells are at least radiusKm on
// each side. An empty result means the radius is too large to prefilter.
func CoverPrefixes(lat, lng, radiusKm float64) []string {
	if radiusKm <= 0 {
		radiusKm = 0.001
	}
	for chars := uint(12); chars >= 1; chars-- {
		hash := geohash.EncodeWithPrecision(lat, lng, chars)
		box := geohash.BoundingBox(hash)
		heightKm := (box.MaxLat - box.MinLat) * kmPerDegree
		widthKm := (box.MaxLng - box.MinLng) * kmPerDegree * math.Cos(lat*math.Pi/180)
		if heightKm >= radiusKm && widthKm >= radiusKm {
			return append([]string{hash}, geohash.Neighbors(hash)...)
		}
	}
	return nil
}

// HasAnyPrefix reports whether hash starts with one of prefixes. An empty
// prefix list matches everything.
func HasAnyPrefix(hash string, prefixes []string) bool {
	if len(prefixes) == 0 {
		return true
	}
	for _, p := range prefixes {
		if strings.HasPrefix(hash, p) {
			return true
		}
	}
	return false
}
