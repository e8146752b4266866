package milvus

import (
	"context"
	"fmt"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"go.uber.org/zap"

	"github.com/fieldmate/backend/pkg/logger"
)

// Client reads the knowledge_items collection maintained by the external
// ingestion pipeline. This side only searches; writes happen elsewhere.
type Client struct {
	client         client.Client
	collectionName string
	vectorDim      int
}

type SearchResult struct {
	ItemID        string
	Text          string
	Vendor        string
	EquipmentType string
	SourceRef     string
	Quality       float64
	Score         float32
}

func NewClient(endpoint, apiKey, collectionName string, vectorDim int) (*Client, error) {
	c, err := client.NewGrpcClient(
		context.Background(),
		endpoint,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create milvus client: %w", err)
	}

	logger.Info("Milvus client initialized",
		zap.String("endpoint", endpoint),
		zap.String("collection", collectionName),
	)

	return &Client{
		client:         c,
		collectionName: collectionName,
		vectorDim:      vectorDim,
	}, nil
}

func (m *Client) Close() error {
	return m.client.Close()
}

// EnsureCollection creates and loads the collection if the ingestion side
// has not done so yet, so a fresh environment still boots.
func (m *Client) EnsureCollection(ctx context.Context) error {
	has, err := m.client.HasCollection(ctx, m.collectionName)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}

	if has {
		logger.Info("Collection already exists", zap.String("collection", m.collectionName))
		return nil
	}

	schema := &entity.Schema{
		CollectionName: m.collectionName,
		Description:    "Equipment knowledge item embeddings",
		Fields: []*entity.Field{
			{
				Name:       "item_id",
				DataType:   entity.FieldTypeVarChar,
				PrimaryKey: true,
				AutoID:     false,
				TypeParams: map[string]string{
					"max_length": "64",
				},
			},
			{
				Name:     "embedding",
				DataType: entity.FieldTypeFloatVector,
				TypeParams: map[string]string{
					"dim": fmt.Sprintf("%d", m.vectorDim),
				},
			},
			{
				Name:     "text",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "4096",
				},
			},
			{
				Name:     "vendor",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "128",
				},
			},
			{
				Name:     "equipment_type",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "128",
				},
			},
			{
				Name:     "source_ref",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "512",
				},
			},
			{
				Name:     "quality",
				DataType: entity.FieldTypeFloat,
			},
			{
				Name:     "timestamp",
				DataType: entity.FieldTypeInt64,
			},
		},
	}

	err = m.client.CreateCollection(ctx, schema, entity.DefaultShardNumber)
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	idx, err := entity.NewIndexIvfFlat(entity.IP, 1024)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	err = m.client.CreateIndex(ctx, m.collectionName, "embedding", idx, false)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	err = m.client.LoadCollection(ctx, m.collectionName, false)
	if err != nil {
		return fmt.Errorf("failed to load collection: %w", err)
	}

	logger.Info("Collection created and loaded", zap.String("collection", m.collectionName))

	return nil
}

// Search runs an inner-product search over normalized embeddings; scores
// land in [0,1] and are usable as relevance directly.
func (m *Client) Search(ctx context.Context, queryEmbedding []float32, topK int) ([]SearchResult, error) {
	sp, _ := entity.NewIndexIvfFlatSearchParam(16)

	searchResult, err := m.client.Search(
		ctx,
		m.collectionName,
		[]string{},
		"",
		[]string{"item_id", "text", "vendor", "equipment_type", "source_ref", "quality"},
		[]entity.Vector{entity.FloatVector(queryEmbedding)},
		"embedding",
		entity.IP,
		topK,
		sp,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	results := make([]SearchResult, 0)
	for _, sr := range searchResult {
		for i := 0; i < sr.ResultCount; i++ {
			itemIDCol := sr.Fields.GetColumn("item_id")
			textCol := sr.Fields.GetColumn("text")
			vendorCol := sr.Fields.GetColumn("vendor")
			equipmentCol := sr.Fields.GetColumn("equipment_type")
			sourceRefCol := sr.Fields.GetColumn("source_ref")
			qualityCol := sr.Fields.GetColumn("quality")

			itemID, _ := itemIDCol.Get(i)
			text, _ := textCol.Get(i)
			vendor, _ := vendorCol.Get(i)
			equipment, _ := equipmentCol.Get(i)
			sourceRef, _ := sourceRefCol.Get(i)
			quality, _ := qualityCol.Get(i)

			qualityVal := 0.0
			if q, ok := quality.(float32); ok {
				qualityVal = float64(q)
			}

			results = append(results, SearchResult{
				ItemID:        itemID.(string),
				Text:          text.(string),
				Vendor:        vendor.(string),
				EquipmentType: equipment.(string),
				SourceRef:     sourceRef.(string),
				Quality:       qualityVal,
				Score:         sr.Scores[i],
			})
		}
	}

	logger.Debug("Vector search completed",
		zap.Int("topK", topK),
		zap.Int("results", len(results)),
	)

	return results, nil
}
