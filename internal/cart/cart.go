// Package cart models a shopping cart as a value: every operation returns a new
// Cart and leaves its receiver untouched, so a session snapshot can be decoded,
// changed and written back without shared mutable state.
package cart

import (
	"maps"

	"github.com/shopspring/decimal"

	"Ubermelon/internal/catalog"
)

// Catalog is the read side of the product catalog a cart prices against.
type Catalog interface {
	Get(id string) (catalog.Product, error)
	All() []catalog.Product
}

// Cart maps product id to a quantity of at least one.
type Cart map[string]int

type Line struct {
	Product   catalog.Product `json:"product"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
}

type View struct {
	Lines []Line          `json:"lines"`
	Total decimal.Decimal `json:"total"`
}

// Add returns a copy of c with one more of product id. Unknown ids fail with
// catalog.ErrNotFound.
func (c Cart) Add(cat Catalog, id string) (Cart, error) {
	if _, err := cat.Get(id); err != nil {
		return c, err
	}
	out := c.clone()
	out[id]++
	return out, nil
}

// Remove returns a copy of c with one fewer of product id; the entry is dropped
// when it reaches zero. Removing an absent id is a no-op.
func (c Cart) Remove(id string) Cart {
	if _, ok := c[id]; !ok {
		return c
	}
	out := c.clone()
	if out[id] <= 1 {
		delete(out, id)
	} else {
		out[id]--
	}
	return out
}

func (c Cart) Quantity(id string) int { return c[id] }

// Count is the number of items, not distinct products.
func (c Cart) Count() int {
	n := 0
	for _, q := range c {
		n += q
	}
	return n
}

// Total sums quantity times price. Entries missing from the catalog contribute nothing.
func (c Cart) Total(cat Catalog) decimal.Decimal {
	total := decimal.Zero
	for id, q := range c {
		p, err := cat.Get(id)
		if err != nil {
			continue
		}
		total = total.Add(p.Price.Mul(decimal.NewFromInt(int64(q))))
	}
	return total
}

// View lists the cart in catalog order.
func (c Cart) View(cat Catalog) View {
	v := View{Lines: []Line{}, Total: decimal.Zero}
	if len(c) == 0 {
		return v
	}
	for _, p := range cat.All() {
		q, ok := c[p.ID]
		if !ok {
			continue
		}
		line := Line{
			Product:   p,
			Quantity:  q,
			LineTotal: p.Price.Mul(decimal.NewFromInt(int64(q))),
		}
		v.Lines = append(v.Lines, line)
		v.Total = v.Total.Add(line.LineTotal)
	}
	return v
}

// Prune drops entries that are no longer valid against cat, such as ids
// removed from the catalog since the cart was stored. It returns the dropped ids.
func (c Cart) Prune(cat Catalog) (Cart, []string) {
	var dropped []string
	for id, q := range c {
		if _, err := cat.Get(id); err != nil || q < 1 {
			dropped = append(dropped, id)
		}
	}
	if len(dropped) == 0 {
		return c, nil
	}
	out := c.clone()
	for _, id := range dropped {
		delete(out, id)
	}
	return out, dropped
}

func (c Cart) clone() Cart {
	out := make(Cart, len(c)+1)
	maps.Copy(out, c)
	return out
}
