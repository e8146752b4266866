package coverage

import (
	"sort"

	"github.com/fieldmate/backend/internal/domain"
)

// Weights for the four confidence signals. Each signal is normalized to
// [0,1] before weighting; the weighted sum is clamped to [0,1].
type Weights struct {
	Similarity float64
	Count      float64
	Quality    float64
	Breadth    float64
}

func DefaultWeights() Weights {
	return Weights{
		Similarity: 0.40,
		Count:      0.20,
		Quality:    0.25,
		Breadth:    0.15,
	}
}

type ScorerConfig struct {
	Weights Weights
	TopK    int
}

// Scorer computes a scalar confidence from a ranked match list. It is
// monotonic non-decreasing in similarity and count when the other signals
// are held fixed.
type Scorer struct {
	cfg ScorerConfig
}

func NewScorer(cfg ScorerConfig) *Scorer {
	if cfg.TopK <= 0 {
		cfg.TopK = 5
	}
	zero := Weights{}
	if cfg.Weights == zero {
		cfg.Weights = DefaultWeights()
	}
	return &Scorer{cfg: cfg}
}

// Score returns a confidence in [0,1]. An empty match list scores zero.
// vendorHint is the vendor named in the query itself, "" when absent; breadth
// across vendors that does not include the hinted vendor is penalized.
func (s *Scorer) Score(matches []domain.MatchedItem, vendorHint string) float64 {
	if len(matches) == 0 {
		return 0
	}

	w := s.cfg.Weights
	score := w.Similarity*s.similaritySignal(matches) +
		w.Count*s.countSignal(matches) +
		w.Quality*s.qualitySignal(matches) +
		w.Breadth*s.breadthSignal(matches, vendorHint)

	return clamp01(score)
}

// similaritySignal is the mean relevance of the top-k matches.
func (s *Scorer) similaritySignal(matches []domain.MatchedItem) float64 {
	relevances := make([]float64, len(matches))
	for i, m := range matches {
		relevances[i] = clamp01(m.Relevance)
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(relevances)))

	k := s.cfg.TopK
	if k > len(relevances) {
		k = len(relevances)
	}

	var sum float64
	for _, r := range relevances[:k] {
		sum += r
	}
	return sum / float64(k)
}

func (s *Scorer) countSignal(matches []domain.MatchedItem) float64 {
	n := len(matches)
	if n > 5 {
		n = 5
	}
	return float64(n) / 5.0
}

// qualitySignal averages per-item quality metadata where present; items
// without it do not drag the average. No quality metadata at all is neutral.
func (s *Scorer) qualitySignal(matches []domain.MatchedItem) float64 {
	var sum float64
	var n int
	for _, m := range matches {
		if m.Quality > 0 {
			sum += clamp01(m.Quality)
			n++
		}
	}
	if n == 0 {
		return 0.5
	}
	return sum / float64(n)
}

// breadthSignal rewards distinct vendors and equipment types among the
// matches, halved when the query names a vendor the matches never cover.
func (s *Scorer) breadthSignal(matches []domain.MatchedItem, vendorHint string) float64 {
	vendors := make(map[string]struct{})
	equipment := make(map[string]struct{})
	for _, m := range matches {
		if m.Vendor != "" {
			vendors[m.Vendor] = struct{}{}
		}
		if m.EquipmentType != "" {
			equipment[m.EquipmentType] = struct{}{}
		}
	}

	breadth := float64(len(vendors)+len(equipment)) / 4.0
	if breadth > 1 {
		breadth = 1
	}

	if vendorHint != "" {
		if _, covered := vendors[vendorHint]; !covered {
			breadth *= 0.5
		}
	}

	return breadth
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
