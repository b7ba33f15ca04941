// ABOUTME: Sample listings for a fresh dev server so the board has something to show.
// ABOUTME: Listings span several categories and towns with staggered creation times.
package devserver

import (
	"time"

	"github.com/2389-research/adboard/internal/models"
)

var sampleListings = []models.AdCreate{
	{Title: "Road bike, 56cm frame", Description: "Aluminium frame, Shimano 105 groupset, new tyres. Collection only.", Category: "Sport", Location: "Minsk", Latitude: models.Float(53.9006), Longitude: models.Float(27.5590)},
	{Title: "Oak writing desk", Description: "Solid oak, two drawers, minor scratches on the top.", Category: "Home", Location: "Minsk", Latitude: models.Float(53.9150), Longitude: models.Float(27.5500)},
	{Title: "Piano lessons", Description: "Beginner and intermediate lessons at your place or mine.", Category: "Services", Location: "Brest", Latitude: models.Float(52.0976), Longitude: models.Float(23.7341)},
	{Title: "Winter tyres 205/55 R16", Description: "Set of four, two seasons of use, stored indoors.", Category: "Cars", Location: "Grodno", Latitude: models.Float(53.6694), Longitude: models.Float(23.8131)},
	{Title: "Kitten looking for a home", Description: "Ten weeks old, litter trained, vaccinated.", Category: "Pets", Location: "Gomel"},
}

// Seed adds the sample listings owned by owner, spaced one hour apart so
// their order is stable.
func (s *Server) Seed(owner string) {
	base := s.store.now()
	for i, in := range sampleListings {
		at := base.Add(-time.Duration(len(sampleListings)-i) * time.Hour)
		s.store.createAt(in, owner, at)
	}
}
