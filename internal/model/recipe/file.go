package recipe

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

type recipeFile struct {
	Recipes []Recipe `toml:"recipes"`
}

// LoadFile reads a TOML document of [[recipes]] tables.
func LoadFile(path string) ([]Recipe, error) {
	var doc recipeFile
	if _, err := toml.DecodeFile(path, &doc); err != nil {
		return nil, fmt.Errorf("decode recipes file %s: %w", path, err)
	}

	seen := make(map[string]struct{}, len(doc.Recipes))
	for i, r := range doc.Recipes {
		if r.ID == "" {
			return nil, fmt.Errorf("recipe #%d in %s has no id", i+1, path)
		}
		if _, dup := seen[r.ID]; dup {
			return nil, fmt.Errorf("duplicate recipe id %q in %s", r.ID, path)
		}
		seen[r.ID] = struct{}{}
		if err := r.Validate(); err != nil {
			return nil, fmt.Errorf("recipe %q: %w", r.ID, err)
		}
	}
	return doc.Recipes, nil
}
