// Package cart keeps storefront carts behind an explicit store. A Cart is a value:
// every transition returns a new Cart and leaves the receiver untouched.
package cart

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrInvalidProduct  = errors.New("product id must not be empty")
	ErrInvalidQuantity = errors.New("quantity must be positive")
)

// Cart maps product id to quantity. Quantities are always positive.
type Cart struct {
	Items map[string]int `json:"items"`
}

func New() Cart {
	return Cart{Items: map[string]int{}}
}

func (c Cart) clone() Cart {
	out := Cart{Items: make(map[string]int, len(c.Items))}
	for id, qty := range c.Items {
		out.Items[id] = qty
	}
	return out
}

// Add increases the quantity of productID by qty
func (c Cart) Add(productID string, qty int) (Cart, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return c, ErrInvalidProduct
	}
	if qty <= 0 {
		return c, ErrInvalidQuantity
	}
	out := c.clone()
	out.Items[productID] += qty
	return out, nil
}

// Remove drops productID. Removing an absent product is a no-op.
func (c Cart) Remove(productID string) Cart {
	out := c.clone()
	delete(out.Items, strings.TrimSpace(productID))
	return out
}

// SetQuantity replaces the quantity of productID; zero removes it
func (c Cart) SetQuantity(productID string, qty int) (Cart, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return c, ErrInvalidProduct
	}
	if qty < 0 {
		return c, ErrInvalidQuantity
	}
	if qty == 0 {
		return c.Remove(productID), nil
	}
	out := c.clone()
	out.Items[productID] = qty
	return out, nil
}

func (c Cart) Quantity(productID string) int {
	return c.Items[productID]
}

// Units is the total number of units across all products
func (c Cart) Units() int {
	n := 0
	for _, qty := range c.Items {
		n += qty
	}
	return n
}

func (c Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// ProductIDs returns the product ids in lexical order
func (c Cart) ProductIDs() []string {
	ids := make([]string, 0, len(c.Items))
	for id := range c.Items {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
