package model

// CategoryID identifies an equipment category (e.g. "harness").
type CategoryID string

// ItemID identifies a checklist item template within its category.
type ItemID string

// ItemTemplate is the static definition of one checklist question.
type ItemTemplate struct {
	ID          ItemID     `json:"id" yaml:"id"`
	CategoryID  CategoryID `json:"category_id" yaml:"-"`
	Title       string     `json:"title" yaml:"title"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
}

// Category is a named group of item templates for one equipment type.
type Category struct {
	ID    CategoryID     `json:"id" yaml:"id"`
	Name  string         `json:"name" yaml:"name"`
	Items []ItemTemplate `json:"items" yaml:"items"`
}

// ItemIDs returns the template identifiers in checklist order.
func (c *Category) ItemIDs() []ItemID {
	ids := make([]ItemID, len(c.Items))
	for i, it := range c.Items {
		ids[i] = it.ID
	}
	return ids
}

// Catalog is the immutable reference data sessions are built from.
// Callers must not modify a catalog once sessions have been created from it.
type Catalog struct {
	Version    string     `json:"version" yaml:"version"`
	Categories []Category `json:"categories" yaml:"categories"`
}

// TotalItems returns the number of templates across all categories.
func (c *Catalog) TotalItems() int {
	n := 0
	for i := range c.Categories {
		n += len(c.Categories[i].Items)
	}
	return n
}

// Category returns the category with the given id.
func (c *Catalog) Category(id CategoryID) (*Category, bool) {
	for i := range c.Categories {
		if c.Categories[i].ID == id {
			return &c.Categories[i], true
		}
	}
	return nil, false
}

// Template returns the template for a (category, item) pair.
func (c *Catalog) Template(cat CategoryID, item ItemID) (*ItemTemplate, bool) {
	category, ok := c.Category(cat)
	if !ok {
		return nil, false
	}
	for i := range category.Items {
		if category.Items[i].ID == item {
			return &category.Items[i], true
		}
	}
	return nil, false
}
