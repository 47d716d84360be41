// Package sector holds the fixed business-sector taxonomy offered by the
// finder UI. The list ships embedded so the CLI and the dashboard always
// agree on the same choices.
package sector

import (
	_ "embed"

	"gopkg.in/yaml.v3"
)

//go:embed sectors.yaml
var sectorsYAML []byte

// AllSectors is the default selection and means "no sector filter".
const AllSectors = "All Sectors"

var sectors []string

func init() {
	var doc struct {
		Sectors []string `yaml:"sectors"`
	}
	if err := yaml.Unmarshal(sectorsYAML, &doc); err != nil {
		panic("sector: decode embedded taxonomy: " + err.Error())
	}
	sectors = doc.Sectors
}

// List returns the taxonomy in display order, AllSectors first.
func List() []string {
	out := make([]string, len(sectors))
	copy(out, sectors)
	return out
}

// Default returns the default sector selection.
func Default() string {
	return AllSectors
}

// Valid reports whether s is a known sector.
func Valid(s string) bool {
	for _, known := range sectors {
		if known == s {
			return true
		}
	}
	return false
}
