package domain

import "strings"

const (
	PlaceholderImage = "/placeholder.svg"
	DefaultArtisan   = "Community Artisan"
	DefaultCategory  = "Crafts"
	DefaultRating    = 5.0
	DefaultReviews   = 0
	MaxRating        = 5.0

	// DraftIDPrefix marks products authored locally rather than fetched remotely.
	DraftIDPrefix = "c-"
)

// Product is a catalog entry. Prices are whole currency units.
type Product struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Price         int64   `json:"price"`
	OriginalPrice *int64  `json:"originalPrice,omitempty"`
	Image         string  `json:"image"`
	Artisan       string  `json:"artisan"`
	Rating        float64 `json:"rating"`
	Reviews       int     `json:"reviews"`
	Category      string  `json:"category"`
	IsNew         bool    `json:"isNew,omitempty"`
	IsTrending    bool    `json:"isTrending,omitempty"`
	Description   string  `json:"description,omitempty"`
}

func (p Product) IsDraft() bool {
	return strings.HasPrefix(p.ID, DraftIDPrefix)
}

// MergeCatalog concatenates remote before local and keeps the first
// occurrence of every id, so a remote product shadows a draft with the same id.
func MergeCatalog(remote, local []Product) []Product {
	merged := make([]Product, 0, len(remote)+len(local))
	seen := make(map[string]struct{}, len(remote)+len(local))

	for _, group := range [][]Product{remote, local} {
		for _, p := range group {
			if _, ok := seen[p.ID]; ok {
				continue
			}
			seen[p.ID] = struct{}{}
			merged = append(merged, p)
		}
	}

	return merged
}
