// Package studio holds the editable configuration of a mockup workspace and its linear undo/redo history.
// Store is the single owner of the current settings and label, History is the log of snapshots behind it.
package studio

// Settings is the fixed-shape configuration record edited by the user.
// All fields are independent, there are no optional parts.
type Settings struct {
	Category      string `json:"category"`
	ProductTypeID string `json:"product_type_id"`
	Size          string `json:"size"`
	BackgroundID  string `json:"background_id"`
	Variations    int    `json:"variations"`
	Finish        string `json:"finish"`
	Material      string `json:"material"`
	BodyColor     string `json:"body_color"`
	CapColor      string `json:"cap_color"`
}

// DefaultSettings returns the settings a new workspace starts with
func DefaultSettings() Settings {
	return Settings{
		Category:      "COSMETIC",
		ProductTypeID: "jar",
		Size:          "50g / 1.7 oz",
		BackgroundID:  "studio_white",
		Variations:    1,
		Finish:        "matte",
		Material:      "glass",
		BodyColor:     "#FFFFFF",
		CapColor:      "#000000",
	}
}

// Equal compares settings field by field
func (s Settings) Equal(o Settings) bool {
	return s.Category == o.Category &&
		s.ProductTypeID == o.ProductTypeID &&
		s.Size == o.Size &&
		s.BackgroundID == o.BackgroundID &&
		s.Variations == o.Variations &&
		s.Finish == o.Finish &&
		s.Material == o.Material &&
		s.BodyColor == o.BodyColor &&
		s.CapColor == o.CapColor
}

// Snapshot is an immutable capture of everything undo/redo restores.
// Label is nil when nothing is uploaded.
type Snapshot struct {
	Settings Settings
	Label    *Label
}

// Equal reports whether two snapshots describe the same observable state.
// Labels are equal when both are absent, or both present with the same reference or the same content digest.
func (s Snapshot) Equal(o Snapshot) bool {
	return s.Settings.Equal(o.Settings) && sameLabel(s.Label, o.Label)
}

// HasLabel reports whether a label is uploaded in this snapshot
func (s Snapshot) HasLabel() bool {
	return s.Label != nil
}

func sameLabel(a, b *Label) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return a.Digest == b.Digest
}
