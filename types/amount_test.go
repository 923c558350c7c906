package types

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestRound2(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"half rounds away from zero", "1.005", "1.01"},
		{"negative half rounds away from zero", "-1.005", "-1.01"},
		{"below half rounds down", "1.004", "1"},
		{"above half rounds up", "1.006", "1.01"},
		{"already two decimals", "70.00", "70"},
		{"long tail", "2.67499", "2.67"},
		{"zero", "0", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Round2(decimal.RequireFromString(tt.input))
			want := decimal.RequireFromString(tt.want)
			if !got.Equal(want) {
				t.Errorf("Round2(%s) = %s, want %s", tt.input, got, want)
			}
		})
	}
}

func TestSplitSigned(t *testing.T) {
	deltas := []decimal.Decimal{
		Amount("100.00"),
		Amount("-30.00"),
		Amount("0.50"),
		Amount("-0.25"),
	}

	credits, debits := SplitSigned(deltas)

	if !credits.Equal(Amount("100.50")) {
		t.Errorf("credits = %s, want 100.50", credits)
	}
	if !debits.Equal(Amount("-30.25")) {
		t.Errorf("debits = %s, want -30.25", debits)
	}
}

func TestSplitSignedEmpty(t *testing.T) {
	credits, debits := SplitSigned(nil)
	if !credits.IsZero() || !debits.IsZero() {
		t.Errorf("expected zero sums, got credits=%s debits=%s", credits, debits)
	}
}
