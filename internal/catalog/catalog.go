// Package catalog maps detected class names to unit prices.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrInvalidPrice = errors.New("invalid catalog price")

// Price is a unit price that may be absent. The zero value is unpriced,
// which is distinct from a price of zero.
type Price struct {
	amount decimal.Decimal
	ok     bool
}

func PriceOf(amount decimal.Decimal) Price {
	return Price{amount: amount, ok: true}
}

func Unpriced() Price {
	return Price{}
}

// Amount returns the price and whether one exists.
func (p Price) Amount() (decimal.Decimal, bool) {
	return p.amount, p.ok
}

func (p Price) IsPriced() bool {
	return p.ok
}

func (p Price) String() string {
	if !p.ok {
		return "unpriced"
	}
	return "$" + p.amount.StringFixed(2)
}

// Catalog is immutable after construction and safe for concurrent reads.
type Catalog struct {
	prices map[string]decimal.Decimal
}

// New builds a catalog; names are matched case-insensitively.
func New(prices map[string]decimal.Decimal) (*Catalog, error) {
	c := &Catalog{prices: make(map[string]decimal.Decimal, len(prices))}
	for name, price := range prices {
		key := Normalize(name)
		if key == "" {
			return nil, fmt.Errorf("%w: empty item name", ErrInvalidPrice)
		}
		if price.IsNegative() {
			return nil, fmt.Errorf("%w: %s costs %s", ErrInvalidPrice, name, price)
		}
		if _, dup := c.prices[key]; dup {
			return nil, fmt.Errorf("%w: %s listed more than once", ErrInvalidPrice, key)
		}
		c.prices[key] = price
	}
	return c, nil
}

// Default is the price list the kiosk ships with.
func Default() *Catalog {
	c, err := New(map[string]decimal.Decimal{
		"apple":  decimal.NewFromInt(1),
		"banana": decimal.NewFromInt(2),
		"orange": decimal.NewFromInt(3),
		"bottle": decimal.NewFromInt(4),
		"mouse":  decimal.NewFromInt(5),
		"carrot": decimal.NewFromInt(6),
		"chair":  decimal.NewFromInt(20),
		"human":  decimal.NewFromInt(10),
	})
	if err != nil {
		panic(err)
	}
	return c
}

// LoadFile reads a JSON object of item name to price. Prices may be numbers
// or decimal strings ("2.49").
func LoadFile(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}

	var entries map[string]decimal.Decimal
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse catalog %s: %w", path, err)
	}
	return New(entries)
}

func (c *Catalog) Lookup(name string) Price {
	price, ok := c.prices[Normalize(name)]
	if !ok {
		return Unpriced()
	}
	return PriceOf(price)
}

func (c *Catalog) Len() int {
	return len(c.prices)
}

// Names returns the catalog keys in sorted order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.prices))
	for name := range c.prices {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Normalize returns the case-insensitive key used for class names.
func Normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
