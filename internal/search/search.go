package search

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/shopspring/decimal"

	"polycycle/internal/catalog"
)

// similarityThreshold keeps matches that survive minor typos (a transposed
// character pair in a product name stays above it) while discarding unrelated
// terms.
const similarityThreshold = 0.7

// Filters is the structured predicate state applied after the text step.
// All predicates AND together.
type Filters struct {
	PriceMin decimal.Decimal `json:"price_min"`
	PriceMax decimal.Decimal `json:"price_max"`
	Colors   []string        `json:"colors"`
	Category string          `json:"category"`
	InStock  bool            `json:"in_stock"`
	LowStock bool            `json:"low_stock"`
}

// DefaultFilters is the reset state: full price range, no colors, every
// category, both stock flags off.
func DefaultFilters() Filters {
	return Filters{
		PriceMin: decimal.Zero,
		PriceMax: decimal.NewFromInt(1000),
		Category: "all",
	}
}

func (f Filters) matches(p *catalog.Product) bool {
	if p.Price.Cmp(f.PriceMin) < 0 || p.Price.Cmp(f.PriceMax) > 0 {
		return false
	}
	if f.Category != "" && f.Category != "all" && p.Category != f.Category {
		return false
	}
	if f.InStock && p.AvailableQuantity <= 0 {
		return false
	}
	if f.LowStock && !p.LowOnStock() {
		return false
	}
	if len(f.Colors) > 0 {
		found := false
		for _, want := range f.Colors {
			for _, have := range p.AvailableColors {
				if strings.EqualFold(want, have) {
					found = true
					break
				}
			}
			if found {
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Apply runs the free-text step (when query is non-empty) followed by the
// structured filters over a catalog snapshot. Text matches are ordered by
// descending similarity; with an empty query the snapshot order is kept.
func Apply(query string, f Filters, products []*catalog.Product) []*catalog.Product {
	candidates := products
	if q := strings.TrimSpace(query); q != "" {
		candidates = rank(q, products)
	}

	var out []*catalog.Product
	for _, p := range candidates {
		if f.matches(p) {
			out = append(out, p)
		}
	}
	return out
}

type scored struct {
	product *catalog.Product
	score   float64
}

func rank(query string, products []*catalog.Product) []*catalog.Product {
	var hits []scored
	for _, p := range products {
		score := productScore(query, p)
		if score >= similarityThreshold {
			hits = append(hits, scored{product: p, score: score})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].score > hits[j].score
	})

	out := make([]*catalog.Product, len(hits))
	for i, h := range hits {
		out[i] = h.product
	}
	return out
}

func productScore(query string, p *catalog.Product) float64 {
	best := 0.0
	for _, field := range []string{p.Name, p.Description, p.SKU, p.Category} {
		if s := fieldScore(query, field); s > best {
			best = s
		}
	}
	return best
}

// fieldScore compares the query against the whole field and against each of
// its words, keeping the best normalized Levenshtein similarity. Exact
// substring containment counts as a full match so multi-word descriptions
// still surface short queries.
func fieldScore(query, field string) float64 {
	q := strings.ToLower(query)
	f := strings.ToLower(field)
	if f == "" {
		return 0
	}
	if strings.Contains(f, q) {
		return 1
	}

	best := similarity(q, f)
	for _, word := range strings.Fields(f) {
		if s := similarity(q, word); s > best {
			best = s
		}
	}
	return best
}

func similarity(a, b string) float64 {
	longest := len(a)
	if len(b) > longest {
		longest = len(b)
	}
	if longest == 0 {
		return 0
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1 - float64(dist)/float64(longest)
}
