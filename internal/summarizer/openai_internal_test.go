package summarizer

import "testing"

func TestInitialOutputTokenBudgetCarriesCap(t *testing.T) {
	if got := initialOutputTokenBudget(50); got != 50+reasoningHeadroomTokens {
		t.Fatalf("expected cap plus headroom, got %d", got)
	}

	if got := initialOutputTokenBudget(1); got != 1+reasoningHeadroomTokens {
		t.Fatalf("expected cap plus headroom for budget 1, got %d", got)
	}
}

func TestInitialOutputTokenBudgetNegativeCapIsMinimal(t *testing.T) {
	if got := initialOutputTokenBudget(-1); got != reasoningHeadroomTokens {
		t.Fatalf("expected headroom only for a minimal request, got %d", got)
	}
}

func TestInitialOutputTokenBudgetIsBounded(t *testing.T) {
	if got := initialOutputTokenBudget(1000000); got != limitMaxOutputTokens {
		t.Fatalf("expected budget bounded by the limit, got %d", got)
	}
}
