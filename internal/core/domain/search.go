package domain

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
)

const CategoryAll = "all"

type SortKey string

const (
	SortRelevance SortKey = "relevance"
	SortPriceLow  SortKey = "price-low"
	SortPriceHigh SortKey = "price-high"
	SortRating    SortKey = "rating"
	SortNewest    SortKey = "newest"
	SortPopular   SortKey = "popular"
)

func ParseSortKey(s string) (SortKey, error) {
	switch key := SortKey(strings.ToLower(strings.TrimSpace(s))); key {
	case "":
		return SortRelevance, nil
	case SortRelevance, SortPriceLow, SortPriceHigh, SortRating, SortNewest, SortPopular:
		return key, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownSortKey, s)
	}
}

type PriceRange string

const (
	PriceAny        PriceRange = "all"
	PriceUnder1000  PriceRange = "under-1000"
	Price1000To2500 PriceRange = "1000-2500"
	Price2500To5000 PriceRange = "2500-5000"
	PriceOver5000   PriceRange = "over-5000"
)

func ParsePriceRange(s string) (PriceRange, error) {
	switch r := PriceRange(strings.ToLower(strings.TrimSpace(s))); r {
	case "":
		return PriceAny, nil
	case PriceAny, PriceUnder1000, Price1000To2500, Price2500To5000, PriceOver5000:
		return r, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPriceBand, s)
	}
}

func (r PriceRange) Contains(price int64) bool {
	switch r {
	case PriceUnder1000:
		return price < 1000
	case Price1000To2500:
		return price >= 1000 && price <= 2500
	case Price2500To5000:
		return price > 2500 && price <= 5000
	case PriceOver5000:
		return price > 5000
	default:
		return true
	}
}

// Query is one search request: free text plus filter and sort selections.
type Query struct {
	Text       string     `json:"q"`
	Category   string     `json:"category"`
	Sort       SortKey    `json:"sort"`
	PriceRange PriceRange `json:"price"`
}

func (q Query) Blank() bool {
	return strings.TrimSpace(q.Text) == ""
}

// Apply filters catalog by q and orders the survivors. A blank query yields
// an empty result without touching the catalog.
func Apply(catalog []Product, q Query) []Product {
	if q.Blank() {
		return []Product{}
	}

	needle := strings.ToLower(strings.TrimSpace(q.Text))
	category := strings.ToLower(strings.TrimSpace(q.Category))
	filterCategory := category != "" && category != CategoryAll

	results := make([]Product, 0)
	for _, p := range catalog {
		if !matchesText(p, needle) {
			continue
		}
		if filterCategory && strings.ToLower(p.Category) != category {
			continue
		}
		if !q.PriceRange.Contains(p.Price) {
			continue
		}
		results = append(results, p)
	}

	SortProducts(results, q.Sort)
	return results
}

func matchesText(p Product, needle string) bool {
	return strings.Contains(strings.ToLower(p.Name), needle) ||
		strings.Contains(strings.ToLower(p.Artisan), needle) ||
		strings.Contains(strings.ToLower(p.Category), needle)
}

// SortProducts orders products in place. Every ordering is stable, so ties
// keep their filtered order; relevance leaves the slice untouched.
func SortProducts(products []Product, key SortKey) {
	var compare func(a, b Product) int

	switch key {
	case SortPriceLow:
		compare = func(a, b Product) int { return cmp.Compare(a.Price, b.Price) }
	case SortPriceHigh:
		compare = func(a, b Product) int { return cmp.Compare(b.Price, a.Price) }
	case SortRating:
		compare = func(a, b Product) int { return cmp.Compare(b.Rating, a.Rating) }
	case SortPopular:
		compare = func(a, b Product) int { return cmp.Compare(b.Reviews, a.Reviews) }
	case SortNewest:
		compare = func(a, b Product) int { return cmp.Compare(newRank(a), newRank(b)) }
	default:
		return
	}

	slices.SortStableFunc(products, compare)
}

func newRank(p Product) int {
	if p.IsNew {
		return 0
	}
	return 1
}
