package scoring

import (
	"testing"
	"time"

	"github.com/adivish/fundlens/internal/contracts"
	"github.com/adivish/fundlens/internal/scorepolicy"
)

func fptr(v float64) *float64 { return &v }

func TestFundamentalsKnownFund(t *testing.T) {
	calc := NewFundamentalsCalculator(scorepolicy.Default())

	inception := time.Date(2014, 1, 1, 0, 0, 0, 0, time.UTC)
	fund := &contracts.Fund{
		ID:            1,
		Category:      "Equity",
		Subcategory:   "Large Cap",
		InceptionDate: &inception,
		ExpenseRatio:  fptr(0.45),
		AumCrores:     fptr(5000),
	}

	out := calc.Calculate(fund, time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC))

	if out.ExpenseScore != 8.0 {
		t.Errorf("expense score = %v, want 8.0", out.ExpenseScore)
	}
	if out.AumScore != 8.0 {
		t.Errorf("aum score = %v, want 8.0", out.AumScore)
	}
	if out.AgeScore != 4.0 {
		t.Errorf("age score = %v, want 4.0 for a 12 year old fund", out.AgeScore)
	}
	if out.ExpenseDefaulted || out.AumDefaulted || out.AgeDefaulted {
		t.Error("no attribute was missing, no flag should be set")
	}
	if out.Total != 20.0 {
		t.Errorf("total = %v, want 20.0", out.Total)
	}
}

func TestFundamentalsMissingAttributes(t *testing.T) {
	calc := NewFundamentalsCalculator(scorepolicy.Default())

	fund := &contracts.Fund{ID: 2, Category: "Equity", Subcategory: "Mid Cap"}
	out := calc.Calculate(fund, time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC))

	// Neutral defaults, all flagged.
	if out.ExpenseScore != 4.0 || out.AumScore != 4.0 || out.AgeScore != 2.0 {
		t.Errorf("defaults = %v/%v/%v, want 4/4/2", out.ExpenseScore, out.AumScore, out.AgeScore)
	}
	if !out.ExpenseDefaulted || !out.AumDefaulted || !out.AgeDefaulted {
		t.Error("every missing attribute must be flagged")
	}
	if out.Total != 10.0 {
		t.Errorf("total = %v, want 10.0", out.Total)
	}
}

func TestFundamentalsCategoryTables(t *testing.T) {
	calc := NewFundamentalsCalculator(scorepolicy.Default())
	asOf := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)

	// A .45% expense ratio is cheap for an equity fund and mid-pack for
	// a debt fund.
	equity := &contracts.Fund{ID: 3, Category: "Equity", ExpenseRatio: fptr(0.45)}
	debt := &contracts.Fund{ID: 4, Category: "Debt", ExpenseRatio: fptr(0.45)}

	if s := calc.Calculate(equity, asOf).ExpenseScore; s != 8.0 {
		t.Errorf("equity expense score = %v, want 8.0", s)
	}
	if s := calc.Calculate(debt, asOf).ExpenseScore; s >= 8.0 {
		t.Errorf("debt expense score = %v, want below equity's for the same ratio", s)
	}

	// Debt funds reward scale: 30,000 crores is top band for Debt.
	bigDebt := &contracts.Fund{ID: 5, Category: "Debt", AumCrores: fptr(30000)}
	if s := calc.Calculate(bigDebt, asOf).AumScore; s != 8.0 {
		t.Errorf("debt aum score = %v, want 8.0", s)
	}
}

func TestFundamentalsUnknownCategory(t *testing.T) {
	calc := NewFundamentalsCalculator(scorepolicy.Default())

	fund := &contracts.Fund{ID: 6, Category: "Commodity", ExpenseRatio: fptr(0.45), AumCrores: fptr(5000)}
	out := calc.Calculate(fund, time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC))

	// Unknown categories fall back to the default tables instead of
	// being treated as missing data.
	if out.ExpenseDefaulted || out.AumDefaulted {
		t.Error("an unknown category is not a missing attribute")
	}
	if out.ExpenseScore != 8.0 {
		t.Errorf("expense score = %v, want 8.0 from the default table", out.ExpenseScore)
	}
	if out.AumScore != 8.0 {
		t.Errorf("aum score = %v, want 8.0 from the default table", out.AumScore)
	}
}

func TestFundamentalsYoungFund(t *testing.T) {
	calc := NewFundamentalsCalculator(scorepolicy.Default())
	asOf := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)

	sixMonths := asOf.AddDate(0, -6, 0)
	young := &contracts.Fund{ID: 7, Category: "Equity", InceptionDate: &sixMonths}
	if s := calc.Calculate(young, asOf).AgeScore; s != 0.5 {
		t.Errorf("age score = %v, want floor 0.5 for a six month old fund", s)
	}

	// An inception date in the future is unknowable data, not a zero
	// age fund.
	future := asOf.AddDate(1, 0, 0)
	broken := &contracts.Fund{ID: 8, Category: "Equity", InceptionDate: &future}
	out := calc.Calculate(broken, asOf)
	if !out.AgeDefaulted {
		t.Error("future inception must fall back to the default")
	}
	if out.AgeScore != 2.0 {
		t.Errorf("age score = %v, want default 2.0", out.AgeScore)
	}
}
