package retrieval

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/fieldmate/backend/internal/domain"
	"github.com/fieldmate/backend/internal/gap"
	graphdb "github.com/fieldmate/backend/internal/graph/neo4j"
	"github.com/fieldmate/backend/internal/vector/milvus"
	"github.com/fieldmate/backend/pkg/logger"
)

// Embedder turns query text into a vector. Satisfied by the LLM client.
type Embedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// Client is the concrete retrieval adapter: it fuses vector matches with
// knowledge-graph lookups and normalizes both into MatchedItems. The router
// core only sees the Search contract.
type Client struct {
	vector   *milvus.Client
	graph    *graphdb.Client
	embedder Embedder
	lex      *gap.Lexicon
}

func NewClient(vector *milvus.Client, graph *graphdb.Client, embedder Embedder, lex *gap.Lexicon) *Client {
	return &Client{
		vector:   vector,
		graph:    graph,
		embedder: embedder,
		lex:      lex,
	}
}

// Search returns up to k matches ranked by relevance. Either backend may
// fail on its own; Search errors only when no backend produced anything.
func (c *Client) Search(ctx context.Context, text string, k int) ([]domain.MatchedItem, error) {
	if k <= 0 {
		k = 5
	}

	vectorItems, vectorErr := c.searchVector(ctx, text, k)
	if vectorErr != nil {
		logger.Warn("Vector retrieval failed", zap.Error(vectorErr))
	}

	graphItems, graphErr := c.searchGraph(ctx, text)
	if graphErr != nil {
		logger.Warn("Graph retrieval failed", zap.Error(graphErr))
	}

	if vectorErr != nil && graphErr != nil {
		return nil, fmt.Errorf("all retrieval backends failed: %w", vectorErr)
	}

	fused := fuse(vectorItems, graphItems, k)

	logger.Debug("Retrieval completed",
		zap.Int("vector_results", len(vectorItems)),
		zap.Int("graph_results", len(graphItems)),
		zap.Int("fused_results", len(fused)),
	)

	return fused, nil
}

func (c *Client) searchVector(ctx context.Context, text string, k int) ([]domain.MatchedItem, error) {
	embedding, err := c.embedder.GenerateEmbedding(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	results, err := c.vector.Search(ctx, embedding, k)
	if err != nil {
		return nil, err
	}

	items := make([]domain.MatchedItem, 0, len(results))
	for _, r := range results {
		items = append(items, domain.MatchedItem{
			ItemID:        r.ItemID,
			Relevance:     clamp01(float64(r.Score)),
			Vendor:        r.Vendor,
			EquipmentType: r.EquipmentType,
			SourceRef:     r.SourceRef,
			Quality:       r.Quality,
			Snippet:       r.Text,
		})
	}
	return items, nil
}

func (c *Client) searchGraph(ctx context.Context, text string) ([]domain.MatchedItem, error) {
	entities := c.lex.EntityTokens(text)
	if len(entities) == 0 {
		return nil, nil
	}

	facts, err := c.graph.SearchEquipment(ctx, entities, 0.5)
	if err != nil {
		return nil, err
	}

	items := make([]domain.MatchedItem, 0, len(facts))
	for _, f := range facts {
		items = append(items, domain.MatchedItem{
			ItemID:        f.ModelID,
			Relevance:     clamp01(f.Confidence),
			Vendor:        f.Vendor,
			EquipmentType: f.EquipmentType,
			SourceRef:     f.SourceRef,
			Quality:       clamp01(f.Confidence),
		})
	}
	return items, nil
}

// fuse merges both result sets, keeping the higher-relevance entry when an
// item appears in both, and truncates to k.
func fuse(vectorItems, graphItems []domain.MatchedItem, k int) []domain.MatchedItem {
	byID := make(map[string]domain.MatchedItem, len(vectorItems)+len(graphItems))

	for _, item := range vectorItems {
		byID[item.ItemID] = item
	}
	for _, item := range graphItems {
		if existing, ok := byID[item.ItemID]; !ok || item.Relevance > existing.Relevance {
			byID[item.ItemID] = item
		}
	}

	fused := make([]domain.MatchedItem, 0, len(byID))
	for _, item := range byID {
		fused = append(fused, item)
	}

	sort.Slice(fused, func(i, j int) bool {
		if fused[i].Relevance != fused[j].Relevance {
			return fused[i].Relevance > fused[j].Relevance
		}
		return fused[i].ItemID < fused[j].ItemID
	})

	if len(fused) > k {
		fused = fused[:k]
	}
	return fused
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
