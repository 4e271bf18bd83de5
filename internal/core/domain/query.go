package domain

import (
	"fmt"
	"time"
)

// FilterPredicate is a conjunction of optional constraints over the product
// attribute schema. Empty strings and nil price bounds mean unconstrained.
type FilterPredicate struct {
	Category string   `json:"category,omitempty"`
	Brand    string   `json:"brand,omitempty"`
	PriceMin *float64 `json:"price_min,omitempty"`
	PriceMax *float64 `json:"price_max,omitempty"`
	Source   string   `json:"source,omitempty"`
	Language string   `json:"language,omitempty"`
}

func (f FilterPredicate) Validate() error {
	if f.PriceMin != nil && f.PriceMax != nil && *f.PriceMin > *f.PriceMax {
		return WrapError(ErrInvalidInput, "validate filter",
			fmt.Errorf("price_min %.2f greater than price_max %.2f", *f.PriceMin, *f.PriceMax))
	}
	return nil
}

type Query struct {
	Text     string          `json:"text"`
	UserID   string          `json:"user_id,omitempty"`
	Filter   FilterPredicate `json:"filter"`
	K        int             `json:"k"`
	Deadline time.Time       `json:"deadline,omitzero"`
}

// NormalizedQuery is the cleaned (and possibly rewritten) form of a raw query.
// RewriteHistory records every text transformation for caller-side logging.
type NormalizedQuery struct {
	Text           string
	Filter         FilterPredicate
	Rewritten      bool
	RewriteHistory []string
}
