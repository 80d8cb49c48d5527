package analysis

import (
	"math"
	"testing"

	"github.com/atri1011/datafx/internal/domain"
)

func TestFindOutliersFlagsFarValues(t *testing.T) {
	views := []int64{10, 10, 10, 10, 10, 10, 10, 10, 10, 1000}
	items := make([]domain.DerivedItem, len(views))
	for i, v := range views {
		items[i] = Derive(domain.RawItem{BVID: string(rune('a' + i)), View: v})
	}
	stats := Summarize(items, SummaryFields)

	got := FindOutliers(items, stats, []string{domain.FieldView}, 2)

	if len(got) != 1 || got[0].BVID != "j" || got[0].Field != "view" {
		t.Fatalf("unexpected outliers: %+v", got)
	}
	if got[0].ZScore < 2 {
		t.Fatalf("z = %v", got[0].ZScore)
	}
}

func TestFindOutliersZeroSpread(t *testing.T) {
	items := viewsOf(5, 5, 5)
	stats := Summarize(items, SummaryFields)
	if got := FindOutliers(items, stats, OutlierFields, 2); len(got) != 0 {
		t.Fatalf("expected none, got %+v", got)
	}
}

func TestCorrelate(t *testing.T) {
	items := []domain.DerivedItem{
		Derive(domain.RawItem{View: 100, Like: 10, Coin: 3}),
		Derive(domain.RawItem{View: 200, Like: 20, Coin: 3}),
		Derive(domain.RawItem{View: 300, Like: 30, Coin: 3}),
	}

	m := Correlate(items, []string{"view", "like", "coin", "bogus"})

	if _, ok := m["bogus"]; ok {
		t.Fatal("unknown field present")
	}
	if math.Abs(m["view"]["like"]-1) > 1e-12 {
		t.Fatalf("view/like = %v, want 1", m["view"]["like"])
	}
	if m["view"]["coin"] != 0 || m["coin"]["coin"] != 0 {
		t.Fatalf("zero-variance pairs should be 0: %v", m["coin"])
	}
	if math.Abs(m["view"]["view"]-1) > 1e-12 {
		t.Fatalf("diagonal = %v", m["view"]["view"])
	}
}
