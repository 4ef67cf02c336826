package helpers

import (
	"testing"

	"github.com/google/uuid"
)

func TestGroupByMerchant(t *testing.T) {
	t.Parallel()

	merchantA := uuid.New()
	merchantB := uuid.New()

	lines := []Line{
		{MerchantID: merchantA, VariantID: uuid.New(), Qty: 1, UnitPriceCents: 50_000, WeightGrams: 200},
		{MerchantID: merchantB, VariantID: uuid.New(), Qty: 2, UnitPriceCents: 120_000, WeightGrams: 500},
		{MerchantID: merchantA, VariantID: uuid.New(), Qty: 3, UnitPriceCents: 10_000, WeightGrams: 100},
	}

	groups := GroupByMerchant(lines)
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}

	// Sorted by subtotal descending: merchant B (240000) before A (80000).
	if groups[0].MerchantID != merchantB {
		t.Fatalf("expected merchant B first, got %s", groups[0].MerchantID)
	}
	if got := groups[0].SubtotalCents(); got != 240_000 {
		t.Fatalf("group B subtotal = %d, want 240000", got)
	}
	if groups[1].MerchantID != merchantA {
		t.Fatalf("expected merchant A second, got %s", groups[1].MerchantID)
	}
	if got := groups[1].SubtotalCents(); got != 80_000 {
		t.Fatalf("group A subtotal = %d, want 80000", got)
	}
	if got := groups[1].WeightGrams(); got != 500 {
		t.Fatalf("group A weight = %d, want 500", got)
	}
	if len(groups[1].Lines) != 2 {
		t.Fatalf("group A should keep both lines, got %d", len(groups[1].Lines))
	}
}

func TestGroupByMerchantEmpty(t *testing.T) {
	t.Parallel()

	if groups := GroupByMerchant(nil); len(groups) != 0 {
		t.Fatalf("expected no groups, got %d", len(groups))
	}
}
