package catalog

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/umputun/mockstudio/app/studio"
)

// names of settings fields accepted by Change
const (
	FieldCategory   = "category"
	FieldProduct    = "product_type_id"
	FieldSize       = "size"
	FieldBackground = "background_id"
	FieldVariations = "variations"
	FieldFinish     = "finish"
	FieldMaterial   = "material"
	FieldBodyColor  = "body_color"
	FieldCapColor   = "cap_color"
)

// Change validates value for the field and returns a pure updater applying it.
// Category and product changes also reset dependent fields, see SelectCategory and SelectProduct.
func (c *Catalog) Change(field, value string) (func(studio.Settings) studio.Settings, error) {
	value = strings.TrimSpace(value)
	switch field {
	case FieldCategory:
		if !c.HasCategory(value) {
			return nil, fmt.Errorf("category %q: %w", value, ErrNotFound)
		}
		return func(s studio.Settings) studio.Settings { return c.SelectCategory(s, value) }, nil
	case FieldProduct:
		if _, err := c.Product(value); err != nil {
			return nil, err
		}
		return func(s studio.Settings) studio.Settings { return c.SelectProduct(s, value) }, nil
	case FieldSize:
		// size depends on the product active when the change is applied, unknown sizes leave settings as is
		return func(s studio.Settings) studio.Settings {
			if p, err := c.Product(s.ProductTypeID); err == nil && slices.Contains(p.Sizes, value) {
				s.Size = value
			}
			return s
		}, nil
	case FieldBackground:
		if _, err := c.Background(value); err != nil {
			return nil, err
		}
		return func(s studio.Settings) studio.Settings { s.BackgroundID = value; return s }, nil
	case FieldVariations:
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 || n > c.MaxVariations {
			return nil, fmt.Errorf("variations must be between 1 and %d, got %q", c.MaxVariations, value)
		}
		return func(s studio.Settings) studio.Settings { s.Variations = n; return s }, nil
	case FieldFinish:
		if _, err := c.Finish(value); err != nil {
			return nil, err
		}
		return func(s studio.Settings) studio.Settings { s.Finish = value; return s }, nil
	case FieldMaterial:
		if _, err := c.Material(value); err != nil {
			return nil, err
		}
		return func(s studio.Settings) studio.Settings { s.Material = value; return s }, nil
	case FieldBodyColor, FieldCapColor:
		if !hexColorRe.MatchString(value) {
			return nil, fmt.Errorf("invalid color %q, expected #RRGGBB", value)
		}
		hex := strings.ToUpper(value)
		if field == FieldBodyColor {
			return func(s studio.Settings) studio.Settings { s.BodyColor = hex; return s }, nil
		}
		return func(s studio.Settings) studio.Settings { s.CapColor = hex; return s }, nil
	default:
		return nil, fmt.Errorf("unknown settings field %q", field)
	}
}

// SelectCategory switches to category and selects its first product with the first size.
// Settings returned unchanged for an unknown or empty category.
func (c *Catalog) SelectCategory(s studio.Settings, category string) studio.Settings {
	products := c.ProductsIn(category)
	if len(products) == 0 {
		return s
	}
	s.Category = category
	s.ProductTypeID = products[0].ID
	s.Size = products[0].Sizes[0]
	return s
}

// SelectProduct switches to product and its first size, category follows the product
func (c *Catalog) SelectProduct(s studio.Settings, id string) studio.Settings {
	p, err := c.Product(id)
	if err != nil {
		return s
	}
	s.Category = p.Category
	s.ProductTypeID = p.ID
	s.Size = p.Sizes[0]
	return s
}

// CheckSettings validates the whole settings record against the catalog
func (c *Catalog) CheckSettings(s studio.Settings) error {
	p, err := c.Product(s.ProductTypeID)
	if err != nil {
		return err
	}
	if p.Category != s.Category {
		return fmt.Errorf("product %s does not belong to category %s", p.ID, s.Category)
	}
	if !slices.Contains(p.Sizes, s.Size) {
		return fmt.Errorf("size %q is not available for %s", s.Size, p.ID)
	}
	if _, err := c.Background(s.BackgroundID); err != nil {
		return err
	}
	if _, err := c.Finish(s.Finish); err != nil {
		return err
	}
	if _, err := c.Material(s.Material); err != nil {
		return err
	}
	if s.Variations < 1 || s.Variations > c.MaxVariations {
		return fmt.Errorf("variations must be between 1 and %d, got %d", c.MaxVariations, s.Variations)
	}
	if !hexColorRe.MatchString(s.BodyColor) || !hexColorRe.MatchString(s.CapColor) {
		return fmt.Errorf("invalid colors %q/%q", s.BodyColor, s.CapColor)
	}
	return nil
}

// InitialSettings returns the settings a new workspace starts with. The built-in defaults are used
// when the catalog carries them, otherwise the first category with its first product and size
// and the first background, finish and material.
func (c *Catalog) InitialSettings() studio.Settings {
	s := studio.DefaultSettings()
	if c.CheckSettings(s) == nil {
		return s
	}
	s = c.SelectCategory(s, c.Categories[0].ID)
	s.BackgroundID = c.Backgrounds[0].ID
	s.Finish = c.Finishes[0].ID
	s.Material = c.Materials[0].ID
	return s
}
