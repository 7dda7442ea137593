package schema

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Overrides is the schema override file. It lets a deployment mark columns
// unique or mandatory, or relabel them, without changing the entity types.
//
//	entities:
//	  spatial_unit:
//	    columns:
//	      name:
//	        mandatory: true
//	        label: Parcel Name
type Overrides struct {
	Entities map[string]EntityOverride `yaml:"entities"`
}

type EntityOverride struct {
	Columns map[string]ColumnOverride `yaml:"columns"`
}

type ColumnOverride struct {
	Unique    *bool  `yaml:"unique,omitempty"`
	Mandatory *bool  `yaml:"mandatory,omitempty"`
	Label     string `yaml:"label,omitempty"`
}

// LoadOverrides reads an override file. Unknown keys are rejected.
func LoadOverrides(path string) (*Overrides, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open schema overrides: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	var o Overrides
	if err := dec.Decode(&o); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse schema overrides %s: %w", path, err)
	}
	return &o, nil
}
