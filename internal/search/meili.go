package search

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/meilisearch/meilisearch-go"

	"polycycle/internal/catalog"
)

// Index mirrors the catalog into a Meilisearch index and answers free-text
// queries through it. It is optional: when no host is configured the engine
// falls back to the in-process matcher.
type Index struct {
	index  meilisearch.IndexManager
	logger *slog.Logger
}

func NewIndex(host, apiKey, indexName string, logger *slog.Logger) *Index {
	client := meilisearch.New(host, meilisearch.WithAPIKey(apiKey))
	return &Index{
		index:  client.Index(indexName),
		logger: logger,
	}
}

type document struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	SKU         string `json:"sku"`
	Category    string `json:"category"`
}

// Sync replaces the indexed documents with the given snapshot. Called after
// every catalog mirror reload; Meilisearch upserts by primary key.
func (ix *Index) Sync(products []*catalog.Product) {
	docs := make([]document, len(products))
	for i, p := range products {
		docs[i] = document{
			ID:          p.ID.String(),
			Name:        p.Name,
			Description: p.Description,
			SKU:         p.SKU,
			Category:    p.Category,
		}
	}
	pk := "id"
	if _, err := ix.index.AddDocuments(docs, &pk); err != nil {
		ix.logger.Warn("meilisearch sync failed", "error", err)
	}
}

// Query returns matching product IDs in relevance order.
func (ix *Index) Query(query string, limit int64) ([]uuid.UUID, error) {
	resp, err := ix.index.Search(query, &meilisearch.SearchRequest{Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("meilisearch query: %w", err)
	}

	var ids []uuid.UUID
	for _, hit := range resp.Hits {
		var doc document
		if err := hit.DecodeInto(&doc); err != nil {
			continue
		}
		id, err := uuid.Parse(doc.ID)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}
