package types

import "github.com/google/uuid"

// ColorOption is a per-color sub-variant with its own price and stock.
type ColorOption struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	PriceCents int64     `json:"price_cents"`
	Stock      int       `json:"stock"`
}

// ColorOptions is the jsonb list stored on a product variant.
type ColorOptions []ColorOption

// TotalStock sums the per-color stocks.
func (c ColorOptions) TotalStock() int {
	total := 0
	for _, option := range c {
		total += option.Stock
	}
	return total
}

// Find returns the index of the color with the given id, or -1.
func (c ColorOptions) Find(id uuid.UUID) int {
	for i, option := range c {
		if option.ID == id {
			return i
		}
	}
	return -1
}
