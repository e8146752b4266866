package coverage

import (
	"testing"

	"github.com/fieldmate/backend/internal/domain"
)

func makeMatches(relevance float64, n int) []domain.MatchedItem {
	matches := make([]domain.MatchedItem, n)
	for i := range matches {
		matches[i] = domain.MatchedItem{
			ItemID:    "item",
			Relevance: relevance,
		}
	}
	return matches
}

func TestScoreEmptyMatches(t *testing.T) {
	s := NewScorer(ScorerConfig{})
	if got := s.Score(nil, ""); got != 0 {
		t.Errorf("Score(nil) = %v, want 0", got)
	}
	if got := s.Score([]domain.MatchedItem{}, "carrier"); got != 0 {
		t.Errorf("Score(empty) = %v, want 0", got)
	}
}

func TestScoreRange(t *testing.T) {
	s := NewScorer(ScorerConfig{})

	tests := []struct {
		name    string
		matches []domain.MatchedItem
	}{
		{"single weak match", makeMatches(0.1, 1)},
		{"five strong matches", makeMatches(0.99, 5)},
		{"relevance above one is clamped", makeMatches(1.5, 3)},
		{"negative relevance is clamped", makeMatches(-0.5, 2)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Score(tt.matches, "")
			if got < 0 || got > 1 {
				t.Errorf("Score() = %v, want value in [0,1]", got)
			}
		})
	}
}

func TestScoreStrongScenario(t *testing.T) {
	s := NewScorer(ScorerConfig{})

	matches := []domain.MatchedItem{
		{ItemID: "a", Relevance: 0.85, Vendor: "carrier", EquipmentType: "chiller", Quality: 0.9},
		{ItemID: "b", Relevance: 0.85, Vendor: "carrier", EquipmentType: "chiller", Quality: 0.9},
		{ItemID: "c", Relevance: 0.85, Vendor: "trane", EquipmentType: "chiller", Quality: 0.9},
		{ItemID: "d", Relevance: 0.85, Vendor: "carrier", EquipmentType: "compressor", Quality: 0.9},
		{ItemID: "e", Relevance: 0.85, Vendor: "carrier", EquipmentType: "chiller", Quality: 0.9},
	}

	got := s.Score(matches, "carrier")
	if got < 0.80 {
		t.Errorf("Score() = %v, want >= 0.80 for a well-covered query", got)
	}
}

func TestScoreMonotonicInSimilarity(t *testing.T) {
	s := NewScorer(ScorerConfig{})

	low := s.Score(makeMatches(0.3, 3), "")
	high := s.Score(makeMatches(0.7, 3), "")

	if high < low {
		t.Errorf("score decreased as relevance rose: %v -> %v", low, high)
	}
}

func TestScoreMonotonicInCount(t *testing.T) {
	s := NewScorer(ScorerConfig{})

	fewer := s.Score(makeMatches(0.6, 2), "")
	more := s.Score(makeMatches(0.6, 5), "")

	if more < fewer {
		t.Errorf("score decreased as count rose: %v -> %v", fewer, more)
	}
}

func TestScoreQualityNeutralWhenAbsent(t *testing.T) {
	s := NewScorer(ScorerConfig{})

	withQuality := makeMatches(0.6, 3)
	for i := range withQuality {
		withQuality[i].Quality = 0.5
	}
	noQuality := makeMatches(0.6, 3)

	if got, want := s.Score(noQuality, ""), s.Score(withQuality, ""); got != want {
		t.Errorf("missing quality scored %v, want %v (neutral 0.5)", got, want)
	}
}

func TestScoreVendorHintPenalty(t *testing.T) {
	s := NewScorer(ScorerConfig{})

	matches := []domain.MatchedItem{
		{ItemID: "a", Relevance: 0.7, Vendor: "trane", EquipmentType: "chiller"},
		{ItemID: "b", Relevance: 0.7, Vendor: "york", EquipmentType: "boiler"},
	}

	covered := s.Score(matches, "trane")
	uncovered := s.Score(matches, "carrier")

	if uncovered >= covered {
		t.Errorf("unmatched vendor hint scored %v, want less than %v", uncovered, covered)
	}
}
