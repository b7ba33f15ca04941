// ABOUTME: In-memory listing store for the dev server with search, filters, and radius queries.
// ABOUTME: Listings are ordered newest first; geo queries prefilter by geohash before haversine.
package devserver

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/text/cases"

	"github.com/2389-research/adboard/internal/geo"
	"github.com/2389-research/adboard/internal/models"
)

// shortDescriptionRunes caps the description shown in list results.
const shortDescriptionRunes = 140

// ErrNotFound is returned for unknown listing ids.
var ErrNotFound = errors.New("listing not found")

// listing is a stored record. The full description is kept so the short
// form can be recomputed after edits.
type listing struct {
	ad          models.Ad
	description string
	geohash     string
}

// Filter selects and pages listings.
type Filter struct {
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

// Store holds listings in memory. It is safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	listings map[string]*listing
	now      func() time.Time
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		listings: make(map[string]*listing),
		now:      time.Now,
	}
}

// List returns one page of listings matching f, newest first.
func (s *Store) List(f Filter) models.PagedResult {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// cases.Caser is stateful, so each call folds with its own copy.
	fold := cases.Fold()
	search := fold.String(strings.TrimSpace(f.Search))

	var prefixes []string
	if f.HasGeo {
		prefixes = geo.CoverPrefixes(f.Lat, f.Lng, f.RadiusKm)
	}

	matched := make([]*listing, 0, len(s.listings))
	for _, l := range s.listings {
		if search != "" &&
			!strings.Contains(fold.String(l.ad.Title), search) &&
			!strings.Contains(fold.String(l.description), search) {
			continue
		}
		if f.Category != "" && !strings.EqualFold(l.ad.Category, f.Category) {
			continue
		}
		if f.Location != "" && !strings.EqualFold(l.ad.Location, f.Location) {
			continue
		}
		if f.HasGeo {
			if l.geohash == "" || !geo.HasAnyPrefix(l.geohash, prefixes) {
				continue
			}
			if geo.DistanceKm(f.Lat, f.Lng, *l.ad.Latitude, *l.ad.Longitude) > f.RadiusKm {
				continue
			}
		}
		matched = append(matched, l)
	}

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].ad.CreatedAt.Equal(matched[j].ad.CreatedAt) {
			return matched[i].ad.CreatedAt.After(matched[j].ad.CreatedAt)
		}
		return matched[i].ad.ID < matched[j].ad.ID
	})

	result := models.PagedResult{
		Items:      []models.Ad{},
		TotalCount: len(matched),
		Page:       f.Page,
		PageSize:   f.PageSize,
	}
	start := (f.Page - 1) * f.PageSize
	if start >= len(matched) {
		return result
	}
	end := min(start+f.PageSize, len(matched))
	for _, l := range matched[start:end] {
		result.Items = append(result.Items, l.ad)
	}
	return result
}

// Get returns one listing.
func (s *Store) Get(id string) (models.Ad, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.listings[id]
	if !ok {
		return models.Ad{}, "", ErrNotFound
	}
	return l.ad, l.description, nil
}

// Owner returns the user name that created id.
func (s *Store) Owner(id string) (string, error) {
	ad, _, err := s.Get(id)
	return ad.UserName, err
}

// Create stores a new listing owned by owner and returns it.
func (s *Store) Create(in models.AdCreate, owner string) models.Ad {
	return s.createAt(in, owner, s.now())
}

func (s *Store) createAt(in models.AdCreate, owner string, at time.Time) models.Ad {
	l := &listing{
		ad: models.Ad{
			ID:        uuid.NewString(),
			Title:     strings.TrimSpace(in.Title),
			Category:  strings.TrimSpace(in.Category),
			Location:  strings.TrimSpace(in.Location),
			CreatedAt: at.UTC(),
			ImageURL:  in.ImageURL,
			UserName:  owner,
		},
		description: in.Description,
	}
	l.ad.ShortDescription = shorten(in.Description)
	if in.Latitude != nil && in.Longitude != nil {
		lat, lng := *in.Latitude, *in.Longitude
		l.ad.Latitude, l.ad.Longitude = &lat, &lng
		l.geohash = geo.Encode(lat, lng)
	}

	s.mu.Lock()
	s.listings[l.ad.ID] = l
	s.mu.Unlock()
	return l.ad
}

// Update applies the set fields of in to id and returns the new record.
func (s *Store) Update(id string, in models.AdUpdate) (models.Ad, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.listings[id]
	if !ok {
		return models.Ad{}, ErrNotFound
	}
	if in.Title != nil {
		l.ad.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		l.description = *in.Description
		l.ad.ShortDescription = shorten(*in.Description)
	}
	if in.Category != nil {
		l.ad.Category = strings.TrimSpace(*in.Category)
	}
	if in.Location != nil {
		l.ad.Location = strings.TrimSpace(*in.Location)
	}
	if in.ImageURL != nil {
		l.ad.ImageURL = *in.ImageURL
	}
	return l.ad, nil
}

// Delete removes id.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.listings[id]; !ok {
		return ErrNotFound
	}
	delete(s.listings, id)
	return nil
}

// Len returns the number of stored listings.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.listings)
}

func shorten(desc string) string {
	desc = strings.TrimSpace(desc)
	if utf8.RuneCountInString(desc) <= shortDescriptionRunes {
		return desc
	}
	return string([]rune(desc)[:shortDescriptionRunes])
}
