package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umputun/mockstudio/app/studio"
)

func TestCatalog_Change(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)
	base := studio.DefaultSettings()

	tests := []struct {
		name   string
		field  string
		value  string
		check  func(t *testing.T, s studio.Settings)
		hasErr bool
	}{
		{name: "category resets product and size", field: FieldCategory, value: "MERCHANDISE",
			check: func(t *testing.T, s studio.Settings) {
				assert.Equal(t, "MERCHANDISE", s.Category)
				assert.Equal(t, "tshirt", s.ProductTypeID)
				assert.Equal(t, "XS", s.Size)
			}},
		{name: "unknown category", field: FieldCategory, value: "FOOD", hasErr: true},
		{name: "product resets size", field: FieldProduct, value: "pump",
			check: func(t *testing.T, s studio.Settings) {
				assert.Equal(t, "pump", s.ProductTypeID)
				assert.Equal(t, "100 ml", s.Size)
				assert.Equal(t, "COSMETIC", s.Category)
			}},
		{name: "product from another category", field: FieldProduct, value: "journal",
			check: func(t *testing.T, s studio.Settings) {
				assert.Equal(t, "PRINT", s.Category)
				assert.Equal(t, "A5", s.Size)
			}},
		{name: "unknown product", field: FieldProduct, value: "barrel", hasErr: true},
		{name: "size", field: FieldSize, value: "100g / 3.4 oz",
			check: func(t *testing.T, s studio.Settings) { assert.Equal(t, "100g / 3.4 oz", s.Size) }},
		{name: "size of another product ignored", field: FieldSize, value: "XXL",
			check: func(t *testing.T, s studio.Settings) { assert.Equal(t, base.Size, s.Size) }},
		{name: "background", field: FieldBackground, value: "tabletop",
			check: func(t *testing.T, s studio.Settings) { assert.Equal(t, "tabletop", s.BackgroundID) }},
		{name: "unknown background", field: FieldBackground, value: "moon", hasErr: true},
		{name: "variations", field: FieldVariations, value: "3",
			check: func(t *testing.T, s studio.Settings) { assert.Equal(t, 3, s.Variations) }},
		{name: "variations too many", field: FieldVariations, value: "5", hasErr: true},
		{name: "variations zero", field: FieldVariations, value: "0", hasErr: true},
		{name: "variations not a number", field: FieldVariations, value: "two", hasErr: true},
		{name: "finish", field: FieldFinish, value: "glossy",
			check: func(t *testing.T, s studio.Settings) { assert.Equal(t, "glossy", s.Finish) }},
		{name: "unknown finish", field: FieldFinish, value: "sparkly", hasErr: true},
		{name: "material", field: FieldMaterial, value: "ceramic",
			check: func(t *testing.T, s studio.Settings) { assert.Equal(t, "ceramic", s.Material) }},
		{name: "unknown material", field: FieldMaterial, value: "wood", hasErr: true},
		{name: "body color upper-cased", field: FieldBodyColor, value: "#7e481c",
			check: func(t *testing.T, s studio.Settings) { assert.Equal(t, "#7E481C", s.BodyColor) }},
		{name: "cap color", field: FieldCapColor, value: "#002E5D",
			check: func(t *testing.T, s studio.Settings) {
				assert.Equal(t, "#002E5D", s.CapColor)
				assert.Equal(t, base.BodyColor, s.BodyColor)
			}},
		{name: "bad color", field: FieldCapColor, value: "blue", hasErr: true},
		{name: "unknown field", field: "shape", value: "round", hasErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			upd, err := c.Change(tt.field, tt.value)
			if tt.hasErr {
				assert.Error(t, err)
				assert.Nil(t, upd)
				return
			}
			require.NoError(t, err)
			res := upd(base)
			tt.check(t, res)
			assert.NoError(t, c.CheckSettings(res))
			assert.Equal(t, studio.DefaultSettings(), base, "input not modified")
		})
	}
}

func TestCatalog_ChangeThroughStore(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)
	st := studio.NewStore(studio.DefaultSettings())

	upd, err := c.Change(FieldCategory, "PRINT")
	require.NoError(t, err)
	st.ApplyChange(upd)
	upd, err = c.Change(FieldSize, "A4")
	require.NoError(t, err)
	st.ApplyChange(upd) // journal is not the first print product, A4 is not a size of paperback
	assert.Equal(t, "6 × 9 inches", st.Current().Settings.Size)
	assert.Equal(t, 2, st.Position().Len, "ignored size does not grow history")

	upd, err = c.Change(FieldSize, "8.5 × 11 inches")
	require.NoError(t, err)
	st.ApplyChange(upd)
	assert.Equal(t, 3, st.Position().Len)

	cur, ok := st.Undo()
	require.True(t, ok)
	assert.Equal(t, "book_paperback", cur.Settings.ProductTypeID)
	cur, ok = st.Undo()
	require.True(t, ok)
	assert.Equal(t, studio.DefaultSettings(), cur.Settings)
}

func TestCatalog_CheckSettings(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	tests := []struct {
		name   string
		modify func(s *studio.Settings)
	}{
		{"unknown product", func(s *studio.Settings) { s.ProductTypeID = "barrel" }},
		{"category mismatch", func(s *studio.Settings) { s.Category = "PRINT" }},
		{"wrong size", func(s *studio.Settings) { s.Size = "XL" }},
		{"unknown background", func(s *studio.Settings) { s.BackgroundID = "moon" }},
		{"unknown finish", func(s *studio.Settings) { s.Finish = "sparkly" }},
		{"unknown material", func(s *studio.Settings) { s.Material = "wood" }},
		{"too many variations", func(s *studio.Settings) { s.Variations = 10 }},
		{"bad color", func(s *studio.Settings) { s.BodyColor = "white" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := studio.DefaultSettings()
			tt.modify(&s)
			assert.Error(t, c.CheckSettings(s))
		})
	}
}

func TestCatalog_SelectUnknown(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)
	s := studio.DefaultSettings()
	assert.Equal(t, s, c.SelectCategory(s, "FOOD"))
	assert.Equal(t, s, c.SelectProduct(s, "barrel"))
}

func TestCatalog_InitialSettings(t *testing.T) {
	t.Run("default catalog keeps built-in defaults", func(t *testing.T) {
		c, err := Default()
		require.NoError(t, err)
		assert.Equal(t, studio.DefaultSettings(), c.InitialSettings())
	})

	t.Run("catalog without jar", func(t *testing.T) {
		data := `
categories: [{id: PRINT, name: Print}, {id: STATIONERY, name: Stationery}]
products:
  - {id: journal, name: Journal, category: PRINT, sizes: [A5, A4]}
  - {id: card, name: Card, category: STATIONERY, sizes: [Standard]}
backgrounds: [{id: desk, name: Desk, description: "Wooden desk."}]
finishes: [{id: soft_touch, name: Soft Touch}]
materials: [{id: paper, name: Paper}]
`
		c, err := parse([]byte(data))
		require.NoError(t, err)
		require.Error(t, c.CheckSettings(studio.DefaultSettings()), "built-in defaults don't fit")

		s := c.InitialSettings()
		require.NoError(t, c.CheckSettings(s))
		assert.Equal(t, "PRINT", s.Category)
		assert.Equal(t, "journal", s.ProductTypeID)
		assert.Equal(t, "A5", s.Size)
		assert.Equal(t, "desk", s.BackgroundID)
		assert.Equal(t, "soft_touch", s.Finish)
		assert.Equal(t, "paper", s.Material)
		assert.Equal(t, 1, s.Variations)
		assert.Len(t, c.ProductsIn(s.Category), 1)
	})

	t.Run("partial match falls back to catalog choices", func(t *testing.T) {
		c, err := Default()
		require.NoError(t, err)
		c.Finishes = []Option{{ID: "satin", Name: "Satin"}}
		s := c.InitialSettings()
		require.NoError(t, c.CheckSettings(s))
		assert.Equal(t, "satin", s.Finish)
		assert.Equal(t, "COSMETIC", s.Category, "first category of the default catalog")
	})
}
