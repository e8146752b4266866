package coverage

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/fieldmate/backend/internal/domain"
	"github.com/fieldmate/backend/pkg/logger"
)

// Searcher is the retrieval port. Implementations must honor ctx deadlines.
type Searcher interface {
	Search(ctx context.Context, text string, k int) ([]domain.MatchedItem, error)
}

// HintSource extracts the vendor the query itself names, if any.
type HintSource interface {
	VendorHint(text string) string
}

// Thresholds map confidence to a coverage level. Injected, not constant, so
// they can be tuned without touching logic.
type Thresholds struct {
	Strong   float64
	Moderate float64
	Thin     float64
}

func DefaultThresholds() Thresholds {
	return Thresholds{Strong: 0.80, Moderate: 0.60, Thin: 0.40}
}

type EvaluatorConfig struct {
	Thresholds       Thresholds
	TopK             int
	RetrievalTimeout time.Duration
}

// Evaluator classifies how well the knowledge store covers a request.
// Evaluate never fails: a retrieval error or timeout degrades to NONE
// coverage and lets the router fall back.
type Evaluator struct {
	retrieval Searcher
	scorer    *Scorer
	hints     HintSource
	cfg       EvaluatorConfig
}

func NewEvaluator(retrieval Searcher, scorer *Scorer, hints HintSource, cfg EvaluatorConfig) *Evaluator {
	if cfg.TopK <= 0 {
		cfg.TopK = 5
	}
	if cfg.RetrievalTimeout <= 0 {
		cfg.RetrievalTimeout = 5 * time.Second
	}
	zero := Thresholds{}
	if cfg.Thresholds == zero {
		cfg.Thresholds = DefaultThresholds()
	}
	return &Evaluator{
		retrieval: retrieval,
		scorer:    scorer,
		hints:     hints,
		cfg:       cfg,
	}
}

func (e *Evaluator) Evaluate(ctx context.Context, req domain.Request) domain.Coverage {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.RetrievalTimeout)
	defer cancel()

	matches, err := e.retrieval.Search(ctx, req.Text, e.cfg.TopK)
	if err != nil {
		logger.Warn("Retrieval failed, degrading coverage to NONE",
			zap.String("request_id", req.ID),
			zap.Error(err),
		)
		return domain.Coverage{Level: domain.CoverageNone}
	}

	var vendorHint string
	if e.hints != nil {
		vendorHint = e.hints.VendorHint(req.Text)
	}

	confidence := e.scorer.Score(matches, vendorHint)

	cov := domain.Coverage{
		Level:        e.classify(confidence),
		ItemCount:    len(matches),
		AvgRelevance: avgRelevance(matches),
		Confidence:   confidence,
		Items:        matches,
	}

	logger.Debug("Coverage evaluated",
		zap.String("request_id", req.ID),
		zap.String("level", string(cov.Level)),
		zap.Float64("confidence", cov.Confidence),
		zap.Int("items", cov.ItemCount),
	)

	return cov
}

func (e *Evaluator) classify(confidence float64) domain.CoverageLevel {
	t := e.cfg.Thresholds
	switch {
	case confidence >= t.Strong:
		return domain.CoverageStrong
	case confidence >= t.Moderate:
		return domain.CoverageModerate
	case confidence >= t.Thin:
		return domain.CoverageThin
	default:
		return domain.CoverageNone
	}
}

func avgRelevance(matches []domain.MatchedItem) float64 {
	if len(matches) == 0 {
		return 0
	}
	var sum float64
	for _, m := range matches {
		sum += m.Relevance
	}
	return sum / float64(len(matches))
}
