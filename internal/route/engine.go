package route

import (
	"github.com/fieldmate/backend/internal/domain"
)

// Route is one of exactly four handling strategies. Modeled as a typed enum
// so the decision table stays exhaustively checkable.
type Route int

const (
	// RouteDirect answers directly from strong coverage.
	RouteDirect Route = iota
	// RouteEnriched answers with specialist enrichment; over thin coverage
	// it additionally triggers background gap repair.
	RouteEnriched
	// RouteFallback returns a fallback answer and triggers gap repair.
	RouteFallback
	// RouteEscalate hands off to a human; no generated prose.
	RouteEscalate
)

func (r Route) String() string {
	switch r {
	case RouteDirect:
		return "A"
	case RouteEnriched:
		return "B"
	case RouteFallback:
		return "C"
	case RouteEscalate:
		return "D"
	default:
		return "unknown"
	}
}

// Decision is a derived value, never persisted.
type Decision struct {
	Route    Route
	Coverage domain.Coverage
	Reason   string

	// RepairNeeded is true for the routes that feed the background gap
	// pipeline: B over thin coverage, and C.
	RepairNeeded bool
}

// Decide maps coverage and the upstream safety flag to a route. Pure total
// function of (level, flag); no I/O, no hidden state.
func Decide(cov domain.Coverage, req domain.Request) Decision {
	if req.SafetyFlag {
		return Decision{
			Route:    RouteEscalate,
			Coverage: cov,
			Reason:   "safety or urgency flag set by upstream classifier",
		}
	}

	switch cov.Level {
	case domain.CoverageStrong:
		return Decision{
			Route:    RouteDirect,
			Coverage: cov,
			Reason:   "strong coverage, answering directly",
		}
	case domain.CoverageModerate:
		return Decision{
			Route:    RouteEnriched,
			Coverage: cov,
			Reason:   "moderate coverage, answering with specialist enrichment",
		}
	case domain.CoverageThin:
		return Decision{
			Route:        RouteEnriched,
			Coverage:     cov,
			Reason:       "thin coverage, answering and scheduling gap repair",
			RepairNeeded: true,
		}
	default:
		return Decision{
			Route:        RouteFallback,
			Coverage:     cov,
			Reason:       "no usable coverage, falling back and scheduling gap repair",
			RepairNeeded: true,
		}
	}
}
