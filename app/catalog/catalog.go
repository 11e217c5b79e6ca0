// Package catalog provides the static lists the configurator offers: product types, backgrounds,
// finishes, materials and preset colors. The default catalog is embedded, a YAML file can override it.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"regexp"

	log "github.com/go-pkgz/lgr"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yml
var defaultCatalog []byte

var hexColorRe = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// Catalog is the full set of choices available to the configurator
type Catalog struct {
	Categories    []Category    `yaml:"categories" json:"categories" jsonschema:"required,minItems=1"`
	Products      []ProductType `yaml:"products" json:"products" jsonschema:"required,minItems=1"`
	Backgrounds   []Background  `yaml:"backgrounds" json:"backgrounds" jsonschema:"required,minItems=1"`
	Finishes      []Option      `yaml:"finishes" json:"finishes" jsonschema:"required,minItems=1"`
	Materials     []Option      `yaml:"materials" json:"materials" jsonschema:"required,minItems=1"`
	Colors        []Color       `yaml:"colors" json:"colors,omitempty"`
	MaxVariations int           `yaml:"max_variations" json:"max_variations" jsonschema:"minimum=1,maximum=16,default=4"`
}

// Category groups product types
type Category struct {
	ID   string `yaml:"id" json:"id" jsonschema:"required"`
	Name string `yaml:"name" json:"name" jsonschema:"required"`
}

// ProductType is a packaging item a label can be applied to
type ProductType struct {
	ID       string   `yaml:"id" json:"id" jsonschema:"required"`
	Name     string   `yaml:"name" json:"name" jsonschema:"required"`
	Category string   `yaml:"category" json:"category" jsonschema:"required"`
	Sizes    []string `yaml:"sizes" json:"sizes" jsonschema:"required,minItems=1"`
}

// Background is a scene style with the description used in prompts
type Background struct {
	ID          string `yaml:"id" json:"id" jsonschema:"required"`
	Name        string `yaml:"name" json:"name" jsonschema:"required"`
	Description string `yaml:"description" json:"description" jsonschema:"required"`
}

// Option is a generic id/name pair for finishes and materials
type Option struct {
	ID   string `yaml:"id" json:"id" jsonschema:"required"`
	Name string `yaml:"name" json:"name" jsonschema:"required"`
}

// Color is a preset swatch
type Color struct {
	Name string `yaml:"name" json:"name" jsonschema:"required"`
	Hex  string `yaml:"hex" json:"hex" jsonschema:"required,pattern=^#[0-9A-Fa-f]{6}$"`
}

// ErrNotFound returned by lookups for unknown ids
var ErrNotFound = errors.New("not found in catalog")

// Default returns the embedded catalog
func Default() (*Catalog, error) {
	return parse(defaultCatalog)
}

// Load reads catalog from a YAML file, empty path means the embedded default
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path) // #nosec G304 - path comes from trusted config
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}
	c, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	log.Printf("[INFO] catalog loaded from %s, %d products, %d backgrounds", path, len(c.Products), len(c.Backgrounds))
	return c, nil
}

func parse(data []byte) (*Catalog, error) {
	c := Catalog{}
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	if c.MaxVariations == 0 {
		c.MaxVariations = 4
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid catalog: %w", err)
	}
	return &c, nil
}

// Validate checks ids are unique and every reference resolves
func (c *Catalog) Validate() error {
	if len(c.Categories) == 0 || len(c.Products) == 0 || len(c.Backgrounds) == 0 ||
		len(c.Finishes) == 0 || len(c.Materials) == 0 {
		return errors.New("categories, products, backgrounds, finishes and materials are required")
	}
	if c.MaxVariations < 1 {
		return fmt.Errorf("max_variations must be positive, got %d", c.MaxVariations)
	}

	cats := make(map[string]int, len(c.Categories))
	for _, cat := range c.Categories {
		if _, dup := cats[cat.ID]; dup || cat.ID == "" {
			return fmt.Errorf("category id %q is empty or duplicated", cat.ID)
		}
		cats[cat.ID] = 0
	}

	seen := map[string]bool{}
	for _, p := range c.Products {
		if p.ID == "" || seen[p.ID] {
			return fmt.Errorf("product id %q is empty or duplicated", p.ID)
		}
		seen[p.ID] = true
		if _, ok := cats[p.Category]; !ok {
			return fmt.Errorf("product %s: unknown category %q", p.ID, p.Category)
		}
		if len(p.Sizes) == 0 {
			return fmt.Errorf("product %s: at least one size required", p.ID)
		}
		cats[p.Category]++
	}
	for id, n := range cats {
		if n == 0 {
			return fmt.Errorf("category %s has no products", id)
		}
	}

	if err := uniqueIDs("background", len(c.Backgrounds), func(i int) string { return c.Backgrounds[i].ID }); err != nil {
		return err
	}
	if err := uniqueIDs("finish", len(c.Finishes), func(i int) string { return c.Finishes[i].ID }); err != nil {
		return err
	}
	if err := uniqueIDs("material", len(c.Materials), func(i int) string { return c.Materials[i].ID }); err != nil {
		return err
	}
	for _, col := range c.Colors {
		if !hexColorRe.MatchString(col.Hex) {
			return fmt.Errorf("color %s: invalid hex %q", col.Name, col.Hex)
		}
	}
	return nil
}

func uniqueIDs(kind string, n int, id func(i int) string) error {
	seen := make(map[string]bool, n)
	for i := range n {
		v := id(i)
		if v == "" || seen[v] {
			return fmt.Errorf("%s id %q is empty or duplicated", kind, v)
		}
		seen[v] = true
	}
	return nil
}

// Product returns product type by id
func (c *Catalog) Product(id string) (ProductType, error) {
	for _, p := range c.Products {
		if p.ID == id {
			return p, nil
		}
	}
	return ProductType{}, fmt.Errorf("product %q: %w", id, ErrNotFound)
}

// ProductsIn returns product types of the category, in catalog order
func (c *Catalog) ProductsIn(category string) []ProductType {
	res := []ProductType{}
	for _, p := range c.Products {
		if p.Category == category {
			res = append(res, p)
		}
	}
	return res
}

// Background returns background by id
func (c *Catalog) Background(id string) (Background, error) {
	for _, b := range c.Backgrounds {
		if b.ID == id {
			return b, nil
		}
	}
	return Background{}, fmt.Errorf("background %q: %w", id, ErrNotFound)
}

// HasCategory checks if category id is known
func (c *Catalog) HasCategory(id string) bool {
	for _, cat := range c.Categories {
		if cat.ID == id {
			return true
		}
	}
	return false
}

// Finish returns finish option by id
func (c *Catalog) Finish(id string) (Option, error) {
	return findOption(c.Finishes, "finish", id)
}

// Material returns material option by id
func (c *Catalog) Material(id string) (Option, error) {
	return findOption(c.Materials, "material", id)
}

func findOption(opts []Option, kind, id string) (Option, error) {
	for _, o := range opts {
		if o.ID == id {
			return o, nil
		}
	}
	return Option{}, fmt.Errorf("%s %q: %w", kind, id, ErrNotFound)
}
