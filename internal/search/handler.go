package search

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"polycycle/internal/catalog"
)

// Engine answers storefront search requests over the catalog mirror's
// snapshot, preferring the Meilisearch index for the text step when one is
// configured.
type Engine struct {
	mirror *catalog.Mirror
	index  *Index
	logger *slog.Logger
}

func NewEngine(mirror *catalog.Mirror, index *Index, logger *slog.Logger) *Engine {
	return &Engine{mirror: mirror, index: index, logger: logger}
}

// Search runs the text step and structured filters over the current snapshot.
func (e *Engine) Search(query string, f Filters) []*catalog.Product {
	snapshot := e.mirror.Products()

	if q := strings.TrimSpace(query); q != "" && e.index != nil {
		ids, err := e.index.Query(q, int64(len(snapshot))+1)
		if err == nil {
			byID := make(map[uuid.UUID]*catalog.Product, len(snapshot))
			for _, p := range snapshot {
				byID[p.ID] = p
			}
			var ranked []*catalog.Product
			for _, id := range ids {
				if p, ok := byID[id]; ok {
					ranked = append(ranked, p)
				}
			}
			return Apply("", f, ranked)
		}
		e.logger.Warn("meilisearch unavailable, using local matcher", "error", err)
	}

	return Apply(query, f, snapshot)
}

type Handler struct {
	engine *Engine
}

func NewHandler(engine *Engine) *Handler {
	return &Handler{engine: engine}
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.handleSearch)
	return r
}

// handleSearch reads the query and filter state from URL parameters.
// Omitted parameters keep their reset-state defaults.
func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := DefaultFilters()

	if v := q.Get("min_price"); v != "" {
		if d, err := decimal.NewFromString(v); err == nil {
			f.PriceMin = d
		}
	}
	if v := q.Get("max_price"); v != "" {
		if d, err := decimal.NewFromString(v); err == nil {
			f.PriceMax = d
		}
	}
	if v := q.Get("category"); v != "" {
		f.Category = v
	}
	if v := q.Get("colors"); v != "" {
		f.Colors = strings.Split(v, ",")
	}
	f.InStock, _ = strconv.ParseBool(q.Get("in_stock"))
	f.LowStock, _ = strconv.ParseBool(q.Get("low_stock"))

	results := h.engine.Search(q.Get("q"), f)
	if results == nil {
		results = []*catalog.Product{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(results)
}
