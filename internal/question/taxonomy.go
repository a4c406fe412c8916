package question

// CategoryDef is one category of the fixed taxonomy and its ordered subcategories.
type CategoryDef struct {
	Name          string
	SubCategories []string
}

// Taxonomy is the ordered, fixed set of categories known to the client.
type Taxonomy []CategoryDef

// DefaultTaxonomy returns the product-management interview taxonomy.
// A fresh copy is returned on each call.
func DefaultTaxonomy() Taxonomy {
	return Taxonomy{
		{
			Name: "Behavioral",
			SubCategories: []string{
				"Achievement & Success",
				"Challenges & Problem-Solving",
				"Interpersonal & Collaboration",
			},
		},
		{
			Name: "Product Design",
			SubCategories: []string{
				"Product Analysis",
				"New Product Design",
				"Product Improvement",
			},
		},
		{
			Name: "Strategy",
			SubCategories: []string{
				"Market Entry & Expansion",
				"Future Planning & Growth",
			},
		},
		{
			Name: "Execution",
			SubCategories: []string{
				"Metrics & Analysis",
				"Root Cause Analysis",
			},
		},
		{
			Name: "Estimation",
			SubCategories: []string{
				"Market Size & Scale",
			},
		},
	}
}

// Names returns the category names in taxonomy order.
func (t Taxonomy) Names() []string {
	names := make([]string, len(t))
	for i, c := range t {
		names[i] = c.Name
	}
	return names
}

// Lookup returns the category definition with the given name.
func (t Taxonomy) Lookup(name string) (CategoryDef, bool) {
	for _, c := range t {
		if c.Name == name {
			return c, true
		}
	}
	return CategoryDef{}, false
}

// Contains reports whether the (category, subCategory) pair belongs to the taxonomy.
func (t Taxonomy) Contains(category, subCategory string) bool {
	c, ok := t.Lookup(category)
	if !ok {
		return false
	}
	for _, s := range c.SubCategories {
		if s == subCategory {
			return true
		}
	}
	return false
}
