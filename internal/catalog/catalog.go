// Package catalog supplies the input fields each product asks for. The
// account components never originate this schema; they only consume it.
package catalog

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"topup/internal/account/models"
	"topup/pkg/platform/sentinel"
	pstrings "topup/pkg/platform/strings"
)

// Product is a purchasable game or service identified by a stable slug.
type Product struct {
	Slug   string                   `json:"slug"`
	Name   string                   `json:"name"`
	Fields []models.FieldDescriptor `json:"fields"`
}

// FieldNames returns the product's field names in declaration order,
// without duplicates. It is the allow-list for what may be stored.
func (p Product) FieldNames() []string {
	return pstrings.DedupeAndTrim(models.FieldNames(p.Fields))
}

// InMemory is a read-mostly catalog keyed by lowercased slug.
type InMemory struct {
	mu       sync.RWMutex
	products map[string]Product
}

// NewInMemory creates a catalog holding products.
func NewInMemory(products ...Product) *InMemory {
	c := &InMemory{products: make(map[string]Product, len(products))}
	for _, p := range products {
		c.products[strings.ToLower(p.Slug)] = p
	}
	return c
}

// Product returns the product with slug, or sentinel.ErrNotFound.
func (c *InMemory) Product(_ context.Context, slug string) (*Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	p, ok := c.products[strings.ToLower(strings.TrimSpace(slug))]
	if !ok {
		return nil, fmt.Errorf("product %q: %w", slug, sentinel.ErrNotFound)
	}
	return &p, nil
}

// Products lists every product ordered by slug.
func (c *InMemory) Products(_ context.Context) []Product {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Product, 0, len(c.products))
	for _, p := range c.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out
}

type fileFormat struct {
	Products []struct {
		Slug   string             `yaml:"slug"`
		Name   string             `yaml:"name"`
		Fields []models.FieldSpec `yaml:"fields"`
	} `yaml:"products"`
}

// Parse reads a YAML catalog document.
func Parse(data []byte) ([]Product, error) {
	var doc fileFormat
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	products := make([]Product, 0, len(doc.Products))
	seen := make(map[string]struct{}, len(doc.Products))
	for _, raw := range doc.Products {
		slug := strings.ToLower(strings.TrimSpace(raw.Slug))
		if slug == "" {
			return nil, fmt.Errorf("parse catalog: product slug is required")
		}
		if _, dup := seen[slug]; dup {
			return nil, fmt.Errorf("parse catalog: duplicate product %q", slug)
		}
		seen[slug] = struct{}{}

		p := Product{Slug: slug, Name: raw.Name}
		for _, spec := range raw.Fields {
			d, err := spec.Descriptor()
			if err != nil {
				return nil, fmt.Errorf("parse catalog: product %s: %w", slug, err)
			}
			p.Fields = append(p.Fields, d)
		}
		products = append(products, p)
	}
	return products, nil
}

// LoadFile reads a YAML catalog from path.
func LoadFile(path string) ([]Product, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}
