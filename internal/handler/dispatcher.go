package handler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/fieldmate/backend/internal/domain"
	"github.com/fieldmate/backend/internal/route"
	"github.com/fieldmate/backend/pkg/logger"
)

// EscalationNotice is the fixed text returned for escalated requests. No
// handler runs for them, so no generated prose can leak into the response.
const EscalationNotice = "This request has been flagged for human review. " +
	"A technician coordinator will follow up; no automated guidance is provided for flagged requests."

const degradedNotice = "We could not produce a complete answer right now. " +
	"Please retry shortly or contact support if the problem persists."

// Dispatcher selects and invokes the specialist handler for a routed
// request. Handler calls are bounded by a timeout; a failed or slow handler
// degrades to a generic notice instead of failing the request.
type Dispatcher struct {
	registry *Registry
	timeout  time.Duration
}

func NewDispatcher(registry *Registry, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Dispatcher{
		registry: registry,
		timeout:  timeout,
	}
}

func (d *Dispatcher) Dispatch(ctx context.Context, rt route.Route, req domain.Request, cov domain.Coverage) domain.Answer {
	if rt == route.RouteEscalate {
		// Defense in depth: the router short-circuits escalations before
		// dispatch, but a misrouted call must still never reach a handler.
		return domain.Answer{Text: EscalationNotice}
	}

	var h Handler
	switch rt {
	case route.RouteFallback:
		h = d.registry.Generic()
	default:
		h = d.registry.Lookup(d.specialistKey(cov))
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	answer, err := h.Handle(ctx, req, cov)
	if err != nil {
		logger.Warn("Handler failed, returning degraded response",
			zap.String("request_id", req.ID),
			zap.String("route", rt.String()),
			zap.Error(err),
		)
		return domain.Answer{Text: degradedNotice}
	}

	return answer
}

// specialistKey picks the lookup key from the matched items: vendor first,
// equipment type second, otherwise generic.
func (d *Dispatcher) specialistKey(cov domain.Coverage) string {
	for _, item := range cov.Items {
		if item.Vendor != "" {
			return item.Vendor
		}
	}
	for _, item := range cov.Items {
		if item.EquipmentType != "" {
			return item.EquipmentType
		}
	}
	return GenericKey
}
