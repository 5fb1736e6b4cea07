package domain

import (
	"fmt"
	"strings"
)

// Listing is a new product submitted by an artisan.
type Listing struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       int64  `json:"price"`
	Category    string `json:"category"`
	Image       string `json:"image"`
	ArtisanID   string `json:"artisanId,omitempty"`
	ArtisanName string `json:"artisanName,omitempty"`
}

// Normalize trims fields, applies the default category and validates.
func (l Listing) Normalize() (Listing, error) {
	l.Name = strings.TrimSpace(l.Name)
	l.Description = strings.TrimSpace(l.Description)
	l.Category = strings.TrimSpace(l.Category)
	l.Image = strings.TrimSpace(l.Image)
	l.ArtisanName = strings.TrimSpace(l.ArtisanName)

	if l.Name == "" {
		return l, fmt.Errorf("%w: name is required", ErrInvalidListing)
	}
	if l.Price < 0 {
		return l, fmt.Errorf("%w: price must not be negative", ErrInvalidListing)
	}
	if l.Category == "" {
		l.Category = DefaultCategory
	}
	return l, nil
}

// ToProduct builds the catalog entry for a listing stored under id.
func (l Listing) ToProduct(id string) Product {
	image := l.Image
	if image == "" {
		image = PlaceholderImage
	}
	return Product{
		ID:          id,
		Name:        l.Name,
		Price:       l.Price,
		Image:       image,
		Artisan:     firstNonBlank(l.ArtisanName, DefaultArtisan),
		Rating:      DefaultRating,
		Reviews:     DefaultReviews,
		Category:    l.Category,
		IsNew:       true,
		Description: l.Description,
	}
}
