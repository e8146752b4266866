package neo4j

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/fieldmate/backend/pkg/circuitbreaker"
	"github.com/fieldmate/backend/pkg/logger"
	"github.com/fieldmate/backend/pkg/retry"
)

// Client looks up equipment models and vendors in the knowledge graph built
// by the external ingestion pipeline.
type Client struct {
	driver      neo4j.DriverWithContext
	database    string
	cb          *circuitbreaker.CircuitBreaker
	retryConfig retry.Config
}

// EquipmentFact is one graph hit: a model/vendor pair plus the strongest
// documentation reference for it.
type EquipmentFact struct {
	ModelID       string
	ModelName     string
	Vendor        string
	EquipmentType string
	SourceRef     string
	Confidence    float64
}

func NewClient(uri, username, password, database string) (*Client, error) {
	driver, err := neo4j.NewDriverWithContext(
		uri,
		neo4j.BasicAuth(username, password, ""),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}

	ctx := context.Background()
	err = driver.VerifyConnectivity(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to verify connectivity: %w", err)
	}

	cb := circuitbreaker.NewCircuitBreaker("neo4j", circuitbreaker.Config{
		MaxRequests:      3,
		Interval:         time.Minute,
		Timeout:          20 * time.Second,
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Logger:           logger.GetLogger(),
	})

	retryConfig := retry.Config{
		MaxAttempts:    3,
		InitialDelay:   200 * time.Millisecond,
		MaxDelay:       3 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.1,
		Logger:         logger.GetLogger(),
	}

	logger.Info("Neo4j client initialized", zap.String("uri", uri))

	return &Client{
		driver:      driver,
		database:    database,
		cb:          cb,
		retryConfig: retryConfig,
	}, nil
}

func (c *Client) Close(ctx context.Context) error {
	return c.driver.Close(ctx)
}

func (c *Client) executeWithRetry(ctx context.Context, operation func(neo4j.SessionWithContext) error) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	return c.cb.Execute(ctx, func() error {
		return retry.Do(ctx, c.retryConfig, func() error {
			session := c.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: c.database})
			defer session.Close(ctx)
			return operation(session)
		})
	})
}

// SearchEquipment matches extracted entity tokens (model numbers, vendor
// names, equipment classes) against the graph.
func (c *Client) SearchEquipment(ctx context.Context, entities []string, minConfidence float64) ([]EquipmentFact, error) {
	if len(entities) == 0 {
		return nil, nil
	}

	var facts []EquipmentFact

	err := c.executeWithRetry(ctx, func(session neo4j.SessionWithContext) error {
		query := `
			MATCH (m:Model)-[:MADE_BY]->(v:Vendor)
			OPTIONAL MATCH (m)-[d:DOCUMENTED_BY]->(doc:Document)
			WHERE d.confidence >= $min_confidence
			WITH m, v, doc, d
			WHERE toLower(m.name) IN $entities
			   OR toLower(v.name) IN $entities
			   OR toLower(m.equipment_type) IN $entities
			RETURN m.id, m.name, m.equipment_type, v.name,
			       doc.ref, coalesce(d.confidence, 0.5)
			ORDER BY coalesce(d.confidence, 0.5) DESC
			LIMIT 20
		`

		result, err := session.Run(ctx, query, map[string]interface{}{
			"entities":       entities,
			"min_confidence": minConfidence,
		})
		if err != nil {
			return fmt.Errorf("failed to search equipment: %w", err)
		}

		for result.Next(ctx) {
			record := result.Record()

			modelID, _ := record.Get("m.id")
			modelName, _ := record.Get("m.name")
			equipmentType, _ := record.Get("m.equipment_type")
			vendorName, _ := record.Get("v.name")
			docRef, _ := record.Get("doc.ref")
			confidence, _ := record.Get("coalesce(d.confidence, 0.5)")

			fact := EquipmentFact{
				ModelID:       asString(modelID),
				ModelName:     asString(modelName),
				EquipmentType: asString(equipmentType),
				Vendor:        asString(vendorName),
				SourceRef:     asString(docRef),
			}
			if conf, ok := confidence.(float64); ok {
				fact.Confidence = conf
			}

			facts = append(facts, fact)
		}

		if err = result.Err(); err != nil {
			return fmt.Errorf("error iterating results: %w", err)
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	logger.Debug("Graph search completed",
		zap.Int("num_entities", len(entities)),
		zap.Int("results_found", len(facts)),
	)

	return facts, nil
}

func asString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
