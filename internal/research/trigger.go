package research

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/fieldmate/backend/internal/domain"
	"github.com/fieldmate/backend/pkg/logger"
)

// Queue is the transport the trigger publishes to. Satisfied by the redis
// client's Push.
type Queue interface {
	Push(ctx context.Context, queueName, payload string) error
}

// Message is the research work order consumed by the external acquisition
// pipeline.
type Message struct {
	GapID         string   `json:"gap_id"`
	Fingerprint   string   `json:"fingerprint"`
	QueryText     string   `json:"query_text"`
	VendorHint    string   `json:"vendor_hint,omitempty"`
	EquipmentHint string   `json:"equipment_hint,omitempty"`
	SymptomHint   string   `json:"symptom_hint,omitempty"`
	SearchTerms   []string `json:"search_terms"`
	Priority      int      `json:"priority"`
}

// Trigger publishes repair requests to the research queue. Publishing is
// best-effort: the gap record already persists the need, so a failed enqueue
// is logged and absorbed rather than surfaced to the caller.
type Trigger struct {
	queue     Queue
	queueName string
}

func NewTrigger(queue Queue, queueName string) *Trigger {
	if queueName == "" {
		queueName = "research:requests"
	}
	return &Trigger{
		queue:     queue,
		queueName: queueName,
	}
}

// Enqueue serializes the repair request and pushes it. It never returns an
// error to keep the answer path independent of queue health.
func (t *Trigger) Enqueue(ctx context.Context, repair domain.RepairRequest, gapID string) {
	msg := Message{
		GapID:         gapID,
		Fingerprint:   repair.Fingerprint,
		QueryText:     repair.QueryText,
		VendorHint:    repair.VendorHint,
		EquipmentHint: repair.EquipmentHint,
		SymptomHint:   repair.SymptomHint,
		SearchTerms:   repair.SearchTerms,
		Priority:      repair.Priority,
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		logger.Error("Failed to serialize research message",
			zap.String("fingerprint", repair.Fingerprint),
			zap.Error(err),
		)
		return
	}

	if err := t.queue.Push(ctx, t.queueName, string(payload)); err != nil {
		logger.Error("Failed to enqueue research request",
			zap.String("fingerprint", repair.Fingerprint),
			zap.String("gap_id", gapID),
			zap.Error(err),
		)
		return
	}

	logger.Info("Research request enqueued",
		zap.String("fingerprint", repair.Fingerprint),
		zap.String("gap_id", gapID),
		zap.Int("priority", repair.Priority),
	)
}

// QueueName exposes the destination for observability endpoints.
func (t *Trigger) QueueName() string {
	return t.queueName
}
