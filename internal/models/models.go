// ABOUTME: Core data models for listings, paged results, and query signatures.
// ABOUTME: Mirrors the board's REST wire contract and the partial-record patch type.
package models

import (
	"strings"
	"time"
)

// Ad is a single listing on the board. Identity is the ID; everything else
// is mutable by the owner or an admin.
type Ad struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	ShortDescription string    `json:"shortDescription"`
	Category         string    `json:"category"`
	Location         string    `json:"location"`
	CreatedAt        time.Time `json:"createdAt"`
	ImageURL         string    `json:"imageUrl,omitempty"`
	UserName         string    `json:"userName,omitempty"`
	Latitude         *float64  `json:"latitude,omitempty"`
	Longitude        *float64  `json:"longitude,omitempty"`
	Address          string    `json:"address,omitempty"`
}

// PagedResult is one authoritative page for one query signature.
type PagedResult struct {
	Items      []Ad `json:"items"`
	TotalCount int  `json:"totalCount"`
	Page       int  `json:"page"`
	PageSize   int  `json:"pageSize"`
}

// EmptyPage returns the synthetic page used when a fetch fails.
func EmptyPage(page, pageSize int) PagedResult {
	return PagedResult{Items: []Ad{}, TotalCount: 0, Page: page, PageSize: pageSize}
}

// QuerySignature is the full set of inputs that identifies one list request.
// It is comparable with ==. Geo fields only count when HasGeo is set.
type QuerySignature struct {
	Search   string
	Category string
	Location string
	HasGeo   bool
	Lat      float64
	Lng      float64
	RadiusKm float64
	Page     int
	PageSize int
}

// Normalize trims the search term and zeroes geo fields when HasGeo is false,
// so that equal requests compare equal.
func (q QuerySignature) Normalize() QuerySignature {
	q.Search = strings.TrimSpace(q.Search)
	if !q.HasGeo {
		q.Lat, q.Lng, q.RadiusKm = 0, 0, 0
	}
	return q
}

// AdCreate is the body of the create endpoint.
type AdCreate struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Location    string   `json:"location"`
	ImageURL    string   `json:"imageUrl,omitempty"`
	Latitude    *float64 `json:"latitude,omitempty"`
	Longitude   *float64 `json:"longitude,omitempty"`
}

// AdUpdate is the body of the update endpoint. Nil fields are left untouched.
type AdUpdate struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Category    *string `json:"category,omitempty"`
	Location    *string `json:"location,omitempty"`
	ImageURL    *string `json:"imageUrl,omitempty"`
}

// Patch converts an update into the display fields it touches.
func (u AdUpdate) Patch() AdPatch {
	return AdPatch{
		Title:            u.Title,
		ShortDescription: u.Description,
		Category:         u.Category,
		Location:         u.Location,
		ImageURL:         u.ImageURL,
	}
}

// AdPatch is a partial Ad. A nil field means "not set".
type AdPatch struct {
	Title            *string `json:"title,omitempty"`
	ShortDescription *string `json:"shortDescription,omitempty"`
	Category         *string `json:"category,omitempty"`
	Location         *string `json:"location,omitempty"`
	ImageURL         *string `json:"imageUrl,omitempty"`
}

// IsEmpty reports whether no field is set.
func (p AdPatch) IsEmpty() bool {
	return p.Title == nil && p.ShortDescription == nil && p.Category == nil &&
		p.Location == nil && p.ImageURL == nil
}

// Merge returns p with every field set in next overwriting the same field in p.
func (p AdPatch) Merge(next AdPatch) AdPatch {
	if next.Title != nil {
		p.Title = next.Title
	}
	if next.ShortDescription != nil {
		p.ShortDescription = next.ShortDescription
	}
	if next.Category != nil {
		p.Category = next.Category
	}
	if next.Location != nil {
		p.Location = next.Location
	}
	if next.ImageURL != nil {
		p.ImageURL = next.ImageURL
	}
	return p
}

// Or fills fields missing from p with the ones in fallback.
func (p AdPatch) Or(fallback AdPatch) AdPatch {
	return fallback.Merge(p)
}

// Clone returns a copy that shares no pointers with p.
func (p AdPatch) Clone() AdPatch {
	return AdPatch{
		Title:            cloneString(p.Title),
		ShortDescription: cloneString(p.ShortDescription),
		Category:         cloneString(p.Category),
		Location:         cloneString(p.Location),
		ImageURL:         cloneString(p.ImageURL),
	}
}

// Apply splices the set fields of p onto ad.
func (p AdPatch) Apply(ad Ad) Ad {
	if p.Title != nil {
		ad.Title = *p.Title
	}
	if p.ShortDescription != nil {
		ad.ShortDescription = *p.ShortDescription
	}
	if p.Category != nil {
		ad.Category = *p.Category
	}
	if p.Location != nil {
		ad.Location = *p.Location
	}
	if p.ImageURL != nil {
		ad.ImageURL = *p.ImageURL
	}
	return ad
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// String returns a pointer to s. Handy for building patches and updates.
func String(s string) *string {
	return &s
}

// Float returns a pointer to f.
func Float(f float64) *float64 {
	return &f
}

// Login is the body of the login endpoint.
type Login struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Signup is the body of the signup endpoint.
type Signup struct {
	UserName string `json:"userName"`
	Password string `json:"password"`
}

// LoginResult is the response of the login endpoint.
type LoginResult struct {
	Token    string `json:"token"`
	Role     string `json:"role"`
	UserName string `json:"userName,omitempty"`
}
