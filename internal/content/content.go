// Package content provides catalog content: the built-in AWS ML study catalog
// and loading of operator-supplied catalog files.
package content

import (
	_ "embed"
	"fmt"
	"os"

	"certiflash/internal/domain"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalogYAML []byte

type catalogFile struct {
	Modules   []domain.Module   `yaml:"modules"`
	Questions []domain.Question `yaml:"questions"`
}

// Default returns the built-in catalog.
func Default() domain.Catalog {
	c, err := Parse(defaultCatalogYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded catalog is invalid: %v", err))
	}
	return c
}

// LoadFile reads a YAML catalog from path.
func LoadFile(path string) (domain.Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Catalog{}, err
	}
	return Parse(data)
}

// Parse decodes YAML catalog content and indexes it.
func Parse(data []byte) (domain.Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return domain.Catalog{}, fmt.Errorf("parse catalog: %w", err)
	}
	return domain.NewCatalog(f.Modules, f.Questions)
}
