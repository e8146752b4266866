package coverage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fieldmate/backend/internal/domain"
)

type fakeSearcher struct {
	matches []domain.MatchedItem
	err     error
	calls   int
}

func (f *fakeSearcher) Search(ctx context.Context, text string, k int) ([]domain.MatchedItem, error) {
	f.calls++
	return f.matches, f.err
}

type fakeHints struct {
	vendor string
}

func (f *fakeHints) VendorHint(text string) string {
	return f.vendor
}

// richMatches builds fully-populated matches: alternating vendors and
// equipment types so the breadth signal saturates at two or more items.
func richMatches(relevance float64, n int, quality float64) []domain.MatchedItem {
	vendors := []string{"carrier", "trane"}
	equipment := []string{"chiller", "boiler"}

	matches := make([]domain.MatchedItem, n)
	for i := range matches {
		matches[i] = domain.MatchedItem{
			ItemID:        "item",
			Relevance:     relevance,
			Vendor:        vendors[i%2],
			EquipmentType: equipment[i%2],
			Quality:       quality,
		}
	}
	return matches
}

func TestEvaluateClassification(t *testing.T) {
	tests := []struct {
		name      string
		relevance float64
		count     int
		quality   float64
		want      domain.CoverageLevel
	}{
		// 0.36 + 0.20 + 0.225 + 0.15 = 0.935
		{"high relevance high count", 0.90, 5, 0.9, domain.CoverageStrong},
		// 0.24 + 0.12 + 0.175 + 0.15 = 0.685
		{"moderate relevance", 0.60, 3, 0.7, domain.CoverageModerate},
		// 0.20 + 0.04 + 0.125 + 0.075 = 0.44
		{"thin single match", 0.50, 1, 0.5, domain.CoverageThin},
		// 0.04 + 0.04 + 0.05 + 0.075 = 0.205
		{"weak single match", 0.10, 1, 0.2, domain.CoverageNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			searcher := &fakeSearcher{matches: richMatches(tt.relevance, tt.count, tt.quality)}
			e := NewEvaluator(searcher, NewScorer(ScorerConfig{}), &fakeHints{}, EvaluatorConfig{})

			cov := e.Evaluate(context.Background(), domain.Request{ID: "r1", Text: "query"})
			if cov.Level != tt.want {
				t.Errorf("Evaluate() level = %v (confidence %v), want %v", cov.Level, cov.Confidence, tt.want)
			}
		})
	}
}

func TestEvaluateNoMatches(t *testing.T) {
	searcher := &fakeSearcher{}
	e := NewEvaluator(searcher, NewScorer(ScorerConfig{}), &fakeHints{}, EvaluatorConfig{})

	cov := e.Evaluate(context.Background(), domain.Request{ID: "r1", Text: "anything"})

	if cov.Level != domain.CoverageNone {
		t.Errorf("level = %v, want NONE", cov.Level)
	}
	if cov.Confidence != 0 {
		t.Errorf("confidence = %v, want 0", cov.Confidence)
	}
	if cov.ItemCount != 0 {
		t.Errorf("item count = %v, want 0", cov.ItemCount)
	}
}

func TestEvaluateRetrievalFailureDegrades(t *testing.T) {
	searcher := &fakeSearcher{err: errors.New("backend down")}
	e := NewEvaluator(searcher, NewScorer(ScorerConfig{}), &fakeHints{}, EvaluatorConfig{})

	cov := e.Evaluate(context.Background(), domain.Request{ID: "r1", Text: "anything"})

	if cov.Level != domain.CoverageNone {
		t.Errorf("level after retrieval failure = %v, want NONE", cov.Level)
	}
}

// slowSearcher only returns once its context is cancelled, simulating a
// retrieval backend that hangs past the deadline.
type slowSearcher struct{}

func (s *slowSearcher) Search(ctx context.Context, text string, k int) ([]domain.MatchedItem, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestEvaluateRetrievalTimeoutDegrades(t *testing.T) {
	e := NewEvaluator(&slowSearcher{}, NewScorer(ScorerConfig{}), &fakeHints{}, EvaluatorConfig{
		RetrievalTimeout: 50 * time.Millisecond,
	})

	start := time.Now()
	cov := e.Evaluate(context.Background(), domain.Request{ID: "r1", Text: "anything"})
	elapsed := time.Since(start)

	if cov.Level != domain.CoverageNone {
		t.Errorf("level after timeout = %v, want NONE", cov.Level)
	}
	if cov.Confidence != 0 || cov.ItemCount != 0 {
		t.Errorf("coverage after timeout = %+v, want zero confidence and items", cov)
	}
	if elapsed > 2*time.Second {
		t.Errorf("Evaluate took %v, want prompt return after the 50ms timeout", elapsed)
	}
}

func TestEvaluatePopulatesCoverage(t *testing.T) {
	matches := []domain.MatchedItem{
		{ItemID: "a", Relevance: 0.8},
		{ItemID: "b", Relevance: 0.6},
	}
	searcher := &fakeSearcher{matches: matches}
	e := NewEvaluator(searcher, NewScorer(ScorerConfig{}), &fakeHints{}, EvaluatorConfig{})

	cov := e.Evaluate(context.Background(), domain.Request{ID: "r1", Text: "q"})

	if cov.ItemCount != 2 {
		t.Errorf("item count = %v, want 2", cov.ItemCount)
	}
	if want := 0.7; cov.AvgRelevance != want {
		t.Errorf("avg relevance = %v, want %v", cov.AvgRelevance, want)
	}
	if len(cov.Items) != 2 {
		t.Errorf("items = %d, want 2", len(cov.Items))
	}
}

func TestEvaluateCustomThresholds(t *testing.T) {
	searcher := &fakeSearcher{matches: makeMatches(0.5, 2)}
	e := NewEvaluator(searcher, NewScorer(ScorerConfig{}), &fakeHints{}, EvaluatorConfig{
		Thresholds: Thresholds{Strong: 0.3, Moderate: 0.2, Thin: 0.1},
	})

	cov := e.Evaluate(context.Background(), domain.Request{ID: "r1", Text: "q"})
	if cov.Level != domain.CoverageStrong {
		t.Errorf("level = %v, want STRONG with lowered thresholds", cov.Level)
	}
}
