package router

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fieldmate/backend/internal/domain"
	"github.com/fieldmate/backend/internal/handler"
	"github.com/fieldmate/backend/internal/metrics"
	"github.com/fieldmate/backend/internal/route"
	"github.com/fieldmate/backend/internal/storage/models"
	"github.com/fieldmate/backend/pkg/logger"
)

// ErrEmptyQuery is the only error Ask returns for caller mistakes; everything
// downstream degrades instead of failing.
var ErrEmptyQuery = errors.New("query text is required")

// Evaluator classifies knowledge coverage for a request.
type Evaluator interface {
	Evaluate(ctx context.Context, req domain.Request) domain.Coverage
}

// Detector builds a repair request from a poorly-covered query.
type Detector interface {
	Detect(ctx context.Context, req domain.Request, cov domain.Coverage) domain.RepairRequest
}

// GapStore persists detected gaps with fingerprint deduplication.
type GapStore interface {
	UpsertGap(ctx context.Context, repair domain.RepairRequest) (*models.GapRecord, bool, error)
}

// EnqueueGuard suppresses redundant research enqueues for a fingerprint
// within a time window. A lost guard (error) is treated as won so a flaky
// guard backend can only over-enqueue, never silence a gap.
type EnqueueGuard interface {
	AcquireEnqueueGuard(ctx context.Context, fingerprint string, window time.Duration) (bool, error)
}

// Trigger publishes repair requests to the research pipeline.
type Trigger interface {
	Enqueue(ctx context.Context, repair domain.RepairRequest, gapID string)
}

// Dispatcher produces the answer for non-escalated routes.
type Dispatcher interface {
	Dispatch(ctx context.Context, rt route.Route, req domain.Request, cov domain.Coverage) domain.Answer
}

// RequestLog records routed requests for offline analysis. Optional.
type RequestLog interface {
	InsertRequestRecord(record *models.RequestRecord) error
}

type Config struct {
	// EnqueueSuppressionWindow bounds how often one fingerprint may reach
	// the research queue.
	EnqueueSuppressionWindow time.Duration
	// GapPipelineTimeout bounds the detached background gap work.
	GapPipelineTimeout time.Duration
}

// Router is the façade the ingress layer talks to: evaluate coverage, decide
// a route, produce an answer, and kick off gap repair in the background.
type Router struct {
	evaluator  Evaluator
	detector   Detector
	gaps       GapStore
	guard      EnqueueGuard
	trigger    Trigger
	dispatcher Dispatcher
	requestLog RequestLog
	cfg        Config
}

func New(
	evaluator Evaluator,
	detector Detector,
	gaps GapStore,
	guard EnqueueGuard,
	trigger Trigger,
	dispatcher Dispatcher,
	requestLog RequestLog,
	cfg Config,
) *Router {
	if cfg.EnqueueSuppressionWindow <= 0 {
		cfg.EnqueueSuppressionWindow = time.Hour
	}
	if cfg.GapPipelineTimeout <= 0 {
		cfg.GapPipelineTimeout = 30 * time.Second
	}
	return &Router{
		evaluator:  evaluator,
		detector:   detector,
		gaps:       gaps,
		guard:      guard,
		trigger:    trigger,
		dispatcher: dispatcher,
		requestLog: requestLog,
		cfg:        cfg,
	}
}

// Ask routes a single request end to end. The answer path never waits on gap
// persistence or the research queue.
func (r *Router) Ask(ctx context.Context, req domain.Request) (domain.Response, error) {
	if req.Text == "" {
		return domain.Response{}, ErrEmptyQuery
	}
	if req.ID == "" {
		req.ID = uuid.New().String()
	}
	if req.ReceivedAt.IsZero() {
		req.ReceivedAt = time.Now()
	}

	start := time.Now()

	cov := r.evaluator.Evaluate(ctx, req)
	decision := route.Decide(cov, req)

	logger.Info("Request routed",
		zap.String("request_id", req.ID),
		zap.String("route", decision.Route.String()),
		zap.String("coverage_level", string(cov.Level)),
		zap.Float64("confidence", cov.Confidence),
		zap.String("reason", decision.Reason),
	)

	metrics.RequestsTotal.WithLabelValues(decision.Route.String()).Inc()
	metrics.CoverageLevels.WithLabelValues(string(cov.Level)).Inc()
	metrics.ConfidenceScores.Observe(cov.Confidence)

	var answer domain.Answer
	escalated := false
	if decision.Route == route.RouteEscalate {
		// Escalations never reach a handler; the notice is fixed.
		answer = domain.Answer{Text: handler.EscalationNotice}
		escalated = true
	} else {
		answer = r.dispatcher.Dispatch(ctx, decision.Route, req, cov)
	}

	// Gap repair starts only once the answer is ready, so detector and
	// handler work never contend on the same request.
	if decision.RepairNeeded {
		r.startGapPipeline(req, cov)
	}

	latency := time.Since(start)
	metrics.RequestDuration.WithLabelValues(decision.Route.String()).Observe(latency.Seconds())

	resp := domain.Response{
		ID:            req.ID,
		Route:         decision.Route.String(),
		CoverageLevel: string(cov.Level),
		Confidence:    cov.Confidence,
		Text:          answer.Text,
		Citations:     answer.Citations,
		Escalated:     escalated,
		LatencyMS:     latency.Milliseconds(),
	}

	r.logRequest(req, decision, cov, escalated, latency)

	return resp, nil
}

// startGapPipeline detaches the detect/persist/enqueue sequence from the
// caller. It uses a fresh context so the work survives the HTTP request that
// triggered it being done.
func (r *Router) startGapPipeline(req domain.Request, cov domain.Coverage) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), r.cfg.GapPipelineTimeout)
		defer cancel()

		repair := r.detector.Detect(ctx, req, cov)

		record, created, err := r.gaps.UpsertGap(ctx, repair)
		if err != nil {
			logger.Error("Gap upsert failed, enqueueing research anyway",
				zap.String("fingerprint", repair.Fingerprint),
				zap.Error(err),
			)
			metrics.GapPipelineFailures.WithLabelValues("upsert").Inc()
			// A broken store must not hide the gap from the research
			// pipeline. Synthesize an unpersisted record.
			record = &models.GapRecord{
				ID:               uuid.New().String(),
				QueryFingerprint: repair.Fingerprint,
				QueryText:        repair.QueryText,
				Vendor:           repair.VendorHint,
				Equipment:        repair.EquipmentHint,
				Symptom:          repair.SymptomHint,
				Frequency:        1,
				Priority:         repair.Priority,
			}
			created = true
		}

		if created {
			metrics.GapUpserts.WithLabelValues("true").Inc()
		} else {
			metrics.GapUpserts.WithLabelValues("false").Inc()
		}

		won := true
		if r.guard != nil {
			var guardErr error
			won, guardErr = r.guard.AcquireEnqueueGuard(ctx, repair.Fingerprint, r.cfg.EnqueueSuppressionWindow)
			if guardErr != nil {
				logger.Warn("Enqueue guard unavailable, enqueueing anyway",
					zap.String("fingerprint", repair.Fingerprint),
					zap.Error(guardErr),
				)
				metrics.GapPipelineFailures.WithLabelValues("guard").Inc()
				won = true
			}
		}

		if !won {
			metrics.ResearchSuppressed.Inc()
			logger.Debug("Research enqueue suppressed",
				zap.String("fingerprint", repair.Fingerprint),
			)
			return
		}

		r.trigger.Enqueue(ctx, repair, record.ID)
		metrics.ResearchEnqueued.Inc()
	}()
}

func (r *Router) logRequest(req domain.Request, decision route.Decision, cov domain.Coverage, escalated bool, latency time.Duration) {
	if r.requestLog == nil {
		return
	}

	err := r.requestLog.InsertRequestRecord(&models.RequestRecord{
		ID:            req.ID,
		UserID:        req.UserID,
		Channel:       req.Channel,
		QueryText:     req.Text,
		Route:         decision.Route.String(),
		CoverageLevel: string(cov.Level),
		Confidence:    cov.Confidence,
		ItemCount:     cov.ItemCount,
		Escalated:     escalated,
		LatencyMS:     latency.Milliseconds(),
		CreatedAt:     time.Now(),
	})
	if err != nil {
		logger.Warn("Failed to write request log", zap.String("request_id", req.ID), zap.Error(err))
	}
}
