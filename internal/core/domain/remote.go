package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rl1809/artisan-storefront/internal/money"
)

// RemoteRow is an active product row as read from the remote catalog,
// before any defaulting. Optional columns stay empty when absent.
type RemoteRow struct {
	ID           string
	Name         string
	Price        decimal.NullDecimal
	Images       []string
	Category     string
	IsNew        bool
	IsTrending   bool
	CreatedAt    time.Time
	ArtisanID    string
	ArtisanName  string
	UserFullName string
	Rating       *float64
	Reviews      *int
}

// ParseRemoteRow maps a row into a Product. Rows without an id or name, or
// with a missing or negative price, are rejected.
func ParseRemoteRow(row RemoteRow) (Product, error) {
	id := strings.TrimSpace(row.ID)
	name := strings.TrimSpace(row.Name)
	if id == "" || name == "" {
		return Product{}, ErrMissingIdentity
	}
	if !row.Price.Valid || row.Price.Decimal.IsNegative() {
		return Product{}, fmt.Errorf("%w: product %s has no usable price", ErrMalformedRow, id)
	}

	p := Product{
		ID:         id,
		Name:       name,
		Price:      money.Round(row.Price.Decimal),
		Image:      PlaceholderImage,
		Artisan:    firstNonBlank(row.ArtisanName, row.UserFullName, DefaultArtisan),
		Rating:     DefaultRating,
		Reviews:    DefaultReviews,
		Category:   firstNonBlank(row.Category, DefaultCategory),
		IsNew:      row.IsNew,
		IsTrending: row.IsTrending,
	}

	if len(row.Images) > 0 && strings.TrimSpace(row.Images[0]) != "" {
		p.Image = row.Images[0]
	}
	if row.Rating != nil && *row.Rating >= 0 && *row.Rating <= MaxRating {
		p.Rating = *row.Rating
	}
	if row.Reviews != nil && *row.Reviews >= 0 {
		p.Reviews = *row.Reviews
	}

	return p, nil
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
