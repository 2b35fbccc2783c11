package search

import (
	"testing"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"polycycle/internal/catalog"
)

func fixtureProducts() []*catalog.Product {
	return []*catalog.Product{
		{
			ID:                uuid.New(),
			Name:              "Polyethylene Pellets",
			Description:       "Recycled HDPE pellets for injection molding",
			SKU:               "HDPE-001",
			Price:             decimal.RequireFromString("120.50"),
			Category:          "pellets",
			AvailableColors:   pq.StringArray{"green", "black"},
			AvailableQuantity: 40,
			ReorderThreshold:  10,
		},
		{
			ID:                uuid.New(),
			Name:              "PET Flakes",
			Description:       "Clear washed PET flakes",
			SKU:               "PET-002",
			Price:             decimal.RequireFromString("89.99"),
			Category:          "flakes",
			AvailableColors:   pq.StringArray{"clear"},
			AvailableQuantity: 0,
			ReorderThreshold:  10,
		},
		{
			ID:                uuid.New(),
			Name:              "Polypropylene Regrind",
			Description:       "Grey PP regrind from post-industrial scrap",
			SKU:               "PP-003",
			Price:             decimal.RequireFromString("64.00"),
			Category:          "regrind",
			AvailableColors:   pq.StringArray{"grey"},
			AvailableQuantity: 5,
			ReorderThreshold:  10,
		},
	}
}

func names(products []*catalog.Product) []string {
	out := make([]string, len(products))
	for i, p := range products {
		out[i] = p.Name
	}
	return out
}

func TestApplyEmptyQueryKeepsSnapshotOrder(t *testing.T) {
	got := Apply("", DefaultFilters(), fixtureProducts())
	assert.Equal(t, []string{"Polyethylene Pellets", "PET Flakes", "Polypropylene Regrind"}, names(got))
}

func TestApplySubstringMatch(t *testing.T) {
	got := Apply("pellets", DefaultFilters(), fixtureProducts())
	require.NotEmpty(t, got)
	assert.Contains(t, names(got), "Polyethylene Pellets")
	assert.NotContains(t, names(got), "PET Flakes")
}

func TestApplyToleratesTransposition(t *testing.T) {
	// One transposed pair inside the word still resolves to the product.
	got := Apply("Polyethlyene", DefaultFilters(), fixtureProducts())
	require.NotEmpty(t, got)
	assert.Equal(t, "Polyethylene Pellets", got[0].Name)
}

func TestApplyRejectsUnrelatedQuery(t *testing.T) {
	got := Apply("aluminium ingots", DefaultFilters(), fixtureProducts())
	assert.Empty(t, got)
}

func TestFiltersCombineWithAnd(t *testing.T) {
	f := DefaultFilters()
	f.Category = "flakes"
	f.InStock = true

	// The only flakes product is out of stock, so both predicates together
	// eliminate everything.
	assert.Empty(t, Apply("", f, fixtureProducts()))

	f.InStock = false
	got := Apply("", f, fixtureProducts())
	require.Len(t, got, 1)
	assert.Equal(t, "PET Flakes", got[0].Name)
}

func TestFilterPriceRange(t *testing.T) {
	f := DefaultFilters()
	f.PriceMin = decimal.RequireFromString("80")
	f.PriceMax = decimal.RequireFromString("100")

	got := Apply("", f, fixtureProducts())
	require.Len(t, got, 1)
	assert.Equal(t, "PET Flakes", got[0].Name)
}

func TestFilterColorsMatchAnyListed(t *testing.T) {
	f := DefaultFilters()
	f.Colors = []string{"GREY", "clear"}

	got := Apply("", f, fixtureProducts())
	assert.ElementsMatch(t, []string{"PET Flakes", "Polypropylene Regrind"}, names(got))
}

func TestFilterLowStock(t *testing.T) {
	f := DefaultFilters()
	f.LowStock = true

	got := Apply("", f, fixtureProducts())
	assert.ElementsMatch(t, []string{"PET Flakes", "Polypropylene Regrind"}, names(got))
}

func TestDefaultFiltersPassTheWholeCatalog(t *testing.T) {
	got := Apply("", DefaultFilters(), fixtureProducts())
	assert.Len(t, got, len(fixtureProducts()))
}

func TestTextAndFiltersTogether(t *testing.T) {
	f := DefaultFilters()
	f.InStock = true

	got := Apply("poly", f, fixtureProducts())
	assert.ElementsMatch(t, []string{"Polyethylene Pellets", "Polypropylene Regrind"}, names(got))
}
