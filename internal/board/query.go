// ABOUTME: Filter and pagination state and its reduction to a request signature.
// ABOUTME: Geo filters only reach the signature when point and radius are both set.
package board

import (
	"strings"

	"github.com/2389-research/adboard/internal/models"
)

// GeoFilter is a point plus radius. Without a radius the point is kept but no
// geo parameters are sent.
type GeoFilter struct {
	Lat      float64
	Lng      float64
	RadiusKm *float64
}

// complete reports whether the filter can be attached to a request.
func (g *GeoFilter) complete() bool {
	return g != nil && g.RadiusKm != nil
}

// Query is the engine's filter and pagination state.
type Query struct {
	Page     int
	PageSize int
	Category string
	Location string
	// Search is the raw text as typed. The request uses the debounced value.
	Search string
	Geo    *GeoFilter
}

func (q Query) clone() Query {
	if q.Geo != nil {
		g := *q.Geo
		if g.RadiusKm != nil {
			r := *g.RadiusKm
			g.RadiusKm = &r
		}
		q.Geo = &g
	}
	return q
}

// signature builds the request identity from the query and the committed
// search term.
func (q Query) signature(search string) models.QuerySignature {
	sig := models.QuerySignature{
		Search:   search,
		Category: q.Category,
		Location: q.Location,
		Page:     q.Page,
		PageSize: q.PageSize,
	}
	if q.Geo.complete() {
		sig.HasGeo = true
		sig.Lat = q.Geo.Lat
		sig.Lng = q.Geo.Lng
		sig.RadiusKm = *q.Geo.RadiusKm
	}
	return sig.Normalize()
}

// normalizeFilter maps blank input to "unset".
func normalizeFilter(v string) string {
	if strings.TrimSpace(v) == "" {
		return ""
	}
	return v
}
