package catalog

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// Schema returns JSON schema of the catalog file
func Schema() *jsonschema.Schema {
	s := jsonschema.Reflect(&Catalog{})
	s.Title = "Mockstudio Catalog Schema"
	s.Description = "Schema for mockstudio catalog YAML file"
	return s
}

// SchemaJSON returns indented JSON schema of the catalog file
func SchemaJSON() ([]byte, error) {
	data, err := json.MarshalIndent(Schema(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	return data, nil
}
