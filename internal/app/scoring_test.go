package app

import (
	"math"
	"testing"
)

func TestNormRating(t *testing.T) {
	cases := []struct {
		in   float64
		want float64
	}{
		{1, 0},
		{2, 0.25},
		{3, 0.5},
		{4, 0.75},
		{5, 1},
		{0, 0},  // below range clamps to 1
		{6, 1},  // above range clamps to 5
		{-3, 0},
	}
	for _, c := range cases {
		if got := normRating(c.in); math.Abs(got-c.want) > 1e-9 {
			t.Fatalf("normRating(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestApplyEMASeedsFirstValue(t *testing.T) {
	affinity := map[string]float64{}
	applyEMA(affinity, []string{"Fantasy"}, 0.7, 1.0)
	if affinity["Fantasy"] != 1.0 {
		t.Fatalf("first value should seed affinity, got %v", affinity["Fantasy"])
	}
	applyEMA(affinity, []string{"Fantasy"}, 0.7, 0.0)
	if math.Abs(affinity["Fantasy"]-0.7) > 1e-9 {
		t.Fatalf("after [1, 0] with alpha 0.7, want 0.7, got %v", affinity["Fantasy"])
	}
}

func TestApplyEMAOrderDependent(t *testing.T) {
	a := map[string]float64{}
	applyEMA(a, []string{"x"}, 0.7, 1.0)
	applyEMA(a, []string{"x"}, 0.7, 0.0)

	b := map[string]float64{}
	applyEMA(b, []string{"x"}, 0.7, 0.0)
	applyEMA(b, []string{"x"}, 0.7, 1.0)

	if a["x"] == b["x"] {
		t.Fatalf("EMA should depend on order, both got %v", a["x"])
	}
}

func TestJaccard(t *testing.T) {
	if got := jaccard(nil, nil); got != 0 {
		t.Fatalf("jaccard of empty sets = %v, want 0", got)
	}
	if got := jaccard([]string{"a", "b"}, nil); got != 0 {
		t.Fatalf("jaccard with one empty set = %v, want 0", got)
	}
	got := jaccard([]string{"a", "b", "c"}, []string{"b", "c", "d"})
	if math.Abs(got-0.5) > 1e-9 {
		t.Fatalf("jaccard = %v, want 0.5", got)
	}
	if got := jaccard([]string{"a"}, []string{"a"}); got != 1 {
		t.Fatalf("jaccard of identical sets = %v, want 1", got)
	}
}

func TestMinMaxNormalize(t *testing.T) {
	got := minMaxNormalize([]float64{2, 4, 6})
	want := []float64{0, 0.5, 1}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-9 {
			t.Fatalf("normalize[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestMinMaxNormalizeConstant(t *testing.T) {
	got := minMaxNormalize([]float64{3, 3, 3})
	for i, v := range got {
		if v != 0 {
			t.Fatalf("constant input should normalize to 0, got %v at %d", v, i)
		}
	}
	if out := minMaxNormalize(nil); out != nil {
		t.Fatalf("empty input should return nil, got %v", out)
	}
}

func TestRatingSignal(t *testing.T) {
	if got := ratingSignal(4, 0); got != 0 {
		t.Fatalf("zero-count signal = %v, want 0", got)
	}
	want := 4 * math.Log(101)
	if got := ratingSignal(4, 100); math.Abs(got-want) > 1e-9 {
		t.Fatalf("ratingSignal(4,100) = %v, want %v", got, want)
	}
}

func TestTokensAbove(t *testing.T) {
	affinity := map[string]float64{"a": 0.05, "b": 0.1, "c": 0.11}
	got := tokensAbove(affinity, 0.1)
	if len(got) != 1 || got[0] != "c" {
		t.Fatalf("tokensAbove = %v, want [c]", got)
	}
}
