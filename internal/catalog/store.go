package catalog

import (
	"fmt"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID          string          `json:"id"`
	CommonName  string          `json:"common_name"`
	SpeciesName string          `json:"species_name"`
	Price       decimal.Decimal `json:"price"`
	ImageURL    string          `json:"image_url"`
	IsRare      bool            `json:"is_rare"`
}

// Store is an immutable snapshot of the catalog. It is safe for concurrent reads
// once Parse or LoadFile has returned.
type Store struct {
	byID  map[string]Product
	order []string
}

func (s *Store) Get(id string) (Product, error) {
	p, ok := s.byID[id]
	if !ok {
		return Product{}, fmt.Errorf("product %q: %w", id, ErrNotFound)
	}
	return p, nil
}

// All returns the products in file order.
func (s *Store) All() []Product {
	out := make([]Product, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out
}

func (s *Store) Len() int { return len(s.order) }
