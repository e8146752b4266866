package retrieval

import (
	"testing"

	"github.com/fieldmate/backend/internal/domain"
)

func TestFuseDeduplicatesByItemID(t *testing.T) {
	vectorItems := []domain.MatchedItem{
		{ItemID: "a", Relevance: 0.9},
		{ItemID: "b", Relevance: 0.5},
	}
	graphItems := []domain.MatchedItem{
		{ItemID: "b", Relevance: 0.8},
		{ItemID: "c", Relevance: 0.6},
	}

	fused := fuse(vectorItems, graphItems, 5)

	if len(fused) != 3 {
		t.Fatalf("fused = %d items, want 3", len(fused))
	}
	for _, item := range fused {
		if item.ItemID == "b" && item.Relevance != 0.8 {
			t.Errorf("duplicate kept relevance %v, want the higher 0.8", item.Relevance)
		}
	}
}

func TestFuseSortsByRelevance(t *testing.T) {
	fused := fuse(
		[]domain.MatchedItem{{ItemID: "low", Relevance: 0.2}},
		[]domain.MatchedItem{{ItemID: "high", Relevance: 0.9}, {ItemID: "mid", Relevance: 0.5}},
		5,
	)

	wantOrder := []string{"high", "mid", "low"}
	for i, want := range wantOrder {
		if fused[i].ItemID != want {
			t.Errorf("fused[%d] = %s, want %s", i, fused[i].ItemID, want)
		}
	}
}

func TestFuseTruncatesToK(t *testing.T) {
	items := []domain.MatchedItem{
		{ItemID: "a", Relevance: 0.9},
		{ItemID: "b", Relevance: 0.8},
		{ItemID: "c", Relevance: 0.7},
	}

	fused := fuse(items, nil, 2)
	if len(fused) != 2 {
		t.Fatalf("fused = %d items, want 2", len(fused))
	}
	if fused[0].ItemID != "a" || fused[1].ItemID != "b" {
		t.Errorf("truncation kept %v, want the top two", fused)
	}
}

func TestFuseTiesBreakOnItemID(t *testing.T) {
	a := fuse(
		[]domain.MatchedItem{{ItemID: "z", Relevance: 0.5}, {ItemID: "a", Relevance: 0.5}},
		nil, 5,
	)
	if a[0].ItemID != "a" {
		t.Errorf("tie broke to %s, want deterministic a-first order", a[0].ItemID)
	}
}
