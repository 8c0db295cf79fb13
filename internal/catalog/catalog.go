// Package catalog provides the equipment category reference data that
// inspection sessions are materialized from.
package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ppecheck/ppecheck/pkg/errclass"
	"github.com/ppecheck/ppecheck/pkg/ident"
	"github.com/ppecheck/ppecheck/pkg/model"
)

// Load reads a YAML catalog file, fills in each template's owning category
// and validates the result.
func Load(path string) (*model.Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

// Resolve loads the catalog at path, or the built-in catalog when path is
// empty.
func Resolve(path string) (*model.Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	return Load(path)
}

// Parse decodes and validates a YAML catalog document.
func Parse(data []byte) (*model.Catalog, error) {
	var cat model.Catalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, errclass.ErrCatalogInvalid.WithMessagef("parse: %v", err)
	}
	link(&cat)
	if err := Validate(&cat); err != nil {
		return nil, err
	}
	return &cat, nil
}

// Marshal encodes a catalog as YAML.
func Marshal(cat *model.Catalog) ([]byte, error) {
	data, err := yaml.Marshal(cat)
	if err != nil {
		return nil, fmt.Errorf("marshal catalog: %w", err)
	}
	return data, nil
}

// Validate checks identifiers, names and uniqueness. Item identifiers must
// be unique within their category; the same id may appear in two
// categories. An empty catalog passes here and is rejected by session
// creation instead.
func Validate(cat *model.Catalog) error {
	seenCat := make(map[model.CategoryID]bool, len(cat.Categories))
	for _, c := range cat.Categories {
		if err := ident.ValidateID("category", string(c.ID)); err != nil {
			return errclass.ErrCatalogInvalid.WithMessage(err.Error())
		}
		if seenCat[c.ID] {
			return errclass.ErrCatalogInvalid.WithMessagef("duplicate category %s", c.ID)
		}
		seenCat[c.ID] = true
		if ident.IsBlank(c.Name) {
			return errclass.ErrCatalogInvalid.WithMessagef("category %s has no name", c.ID)
		}

		seenItem := make(map[model.ItemID]bool, len(c.Items))
		for _, it := range c.Items {
			if err := ident.ValidateID("item", string(it.ID)); err != nil {
				return errclass.ErrCatalogInvalid.WithMessagef("category %s: %v", c.ID, err)
			}
			if seenItem[it.ID] {
				return errclass.ErrCatalogInvalid.WithMessagef("duplicate item %s/%s", c.ID, it.ID)
			}
			seenItem[it.ID] = true
			if it.CategoryID != "" && it.CategoryID != c.ID {
				return errclass.ErrCatalogInvalid.WithMessagef("item %s belongs to %s, listed under %s", it.ID, it.CategoryID, c.ID)
			}
			if ident.IsBlank(it.Title) {
				return errclass.ErrCatalogInvalid.WithMessagef("item %s/%s has no title", c.ID, it.ID)
			}
		}
	}
	return nil
}

func link(cat *model.Catalog) {
	for i := range cat.Categories {
		c := &cat.Categories[i]
		for j := range c.Items {
			c.Items[j].CategoryID = c.ID
		}
	}
}
