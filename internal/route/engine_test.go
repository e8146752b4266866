package route

import (
	"testing"

	"github.com/fieldmate/backend/internal/domain"
)

func TestDecideRouteTable(t *testing.T) {
	tests := []struct {
		name       string
		level      domain.CoverageLevel
		safetyFlag bool
		wantRoute  Route
		wantRepair bool
	}{
		{"strong answers directly", domain.CoverageStrong, false, RouteDirect, false},
		{"moderate enriches", domain.CoverageModerate, false, RouteEnriched, false},
		{"thin enriches and repairs", domain.CoverageThin, false, RouteEnriched, true},
		{"none falls back and repairs", domain.CoverageNone, false, RouteFallback, true},
		{"safety flag beats strong coverage", domain.CoverageStrong, true, RouteEscalate, false},
		{"safety flag beats moderate coverage", domain.CoverageModerate, true, RouteEscalate, false},
		{"safety flag beats thin coverage", domain.CoverageThin, true, RouteEscalate, false},
		{"safety flag beats no coverage", domain.CoverageNone, true, RouteEscalate, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cov := domain.Coverage{Level: tt.level}
			req := domain.Request{ID: "r1", Text: "q", SafetyFlag: tt.safetyFlag}

			d := Decide(cov, req)

			if d.Route != tt.wantRoute {
				t.Errorf("Decide() route = %v, want %v", d.Route, tt.wantRoute)
			}
			if d.RepairNeeded != tt.wantRepair {
				t.Errorf("Decide() repair = %v, want %v", d.RepairNeeded, tt.wantRepair)
			}
			if d.Reason == "" {
				t.Error("Decide() reason is empty")
			}
		})
	}
}

func TestDecideIsPure(t *testing.T) {
	cov := domain.Coverage{Level: domain.CoverageThin, Confidence: 0.5}
	req := domain.Request{ID: "r1", Text: "q"}

	first := Decide(cov, req)
	second := Decide(cov, req)

	if first.Route != second.Route || first.RepairNeeded != second.RepairNeeded || first.Reason != second.Reason {
		t.Errorf("Decide() not deterministic: %+v vs %+v", first, second)
	}
}

func TestRouteString(t *testing.T) {
	tests := []struct {
		route Route
		want  string
	}{
		{RouteDirect, "A"},
		{RouteEnriched, "B"},
		{RouteFallback, "C"},
		{RouteEscalate, "D"},
		{Route(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.route.String(); got != tt.want {
			t.Errorf("Route(%d).String() = %q, want %q", tt.route, got, tt.want)
		}
	}
}
