package models

import (
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestNextRating_FirstReview(t *testing.T) {
	got := NextRating(decimal.Zero, 1, 4)
	if !got.Equal(dec("4")) {
		t.Fatalf("first review should set the rating to its score, got %s", got)
	}
}

func TestNextRating_RunningAverage(t *testing.T) {
	cases := []struct {
		oldRating string
		n         int
		score     int
		want      string
	}{
		{"4", 2, 5, "4.5"},
		{"4.5", 3, 2, "3.67"},
		{"3.67", 4, 5, "4"},
		{"4.25", 5, 1, "3.6"},
	}
	for _, tc := range cases {
		got := NextRating(dec(tc.oldRating), tc.n, tc.score)
		if !got.Equal(dec(tc.want)) {
			t.Fatalf("NextRating(%s, %d, %d) = %s, want %s", tc.oldRating, tc.n, tc.score, got, tc.want)
		}
	}
}

func TestNextRating_ZeroCount(t *testing.T) {
	if got := NextRating(dec("4.2"), 0, 5); !got.IsZero() {
		t.Fatalf("n=0 must yield zero, got %s", got)
	}
}

func TestRatingAfterRemoval_Inverse(t *testing.T) {
	// adding then removing the same score restores the prior rating when no
	// rounding was involved
	old := dec("4")
	n := 3
	withNew := NextRating(old, n, 1) // (4*2+1)/3 = 3
	back := RatingAfterRemoval(withNew, n, 1)
	if !back.Equal(old) {
		t.Fatalf("expected removal to restore %s, got %s", old, back)
	}
}

func TestRatingAfterRemoval_LastReviewResetsToZero(t *testing.T) {
	if got := RatingAfterRemoval(dec("5"), 1, 5); !got.IsZero() {
		t.Fatalf("removing the last review must reset the rating, got %s", got)
	}
	if got := RatingAfterRemoval(dec("5"), 0, 5); !got.IsZero() {
		t.Fatalf("removal with zero count must stay zero, got %s", got)
	}
}

func TestRatingAfterRemoval_Rounding(t *testing.T) {
	// (3.67*3 - 5) / 2 = 3.005 -> 3.01 (round half up)
	got := RatingAfterRemoval(dec("3.67"), 3, 5)
	if !got.Equal(dec("3.01")) {
		t.Fatalf("expected 3.01, got %s", got)
	}
}
