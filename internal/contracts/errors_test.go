package contracts

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorTaxonomy(t *testing.T) {
	if !errors.Is(ErrIncompletePeerSet, ErrDataUnavailable) {
		t.Error("Expected ErrIncompletePeerSet to be a data-unavailable error")
	}

	err := Unavailable("quotes", "AAPL")
	if !errors.Is(err, ErrDataUnavailable) {
		t.Errorf("Expected %v to wrap ErrDataUnavailable", err)
	}
	if !strings.Contains(err.Error(), "quotes for AAPL") {
		t.Errorf("Unexpected message: %v", err)
	}

	if errors.Is(ErrInvalidSymbol, ErrDataUnavailable) {
		t.Error("ErrInvalidSymbol must stay distinct")
	}
}

func TestCalculationError(t *testing.T) {
	tests := []struct {
		name string
		err  *CalculationError
		want string
	}{
		{
			name: "reason only",
			err:  &CalculationError{Reason: "no peers"},
			want: "calculation fault: no peers",
		},
		{
			name: "with symbol and missing",
			err: &CalculationError{
				Reason:  "incomplete record",
				Symbol:  "MSFT",
				Peers:   3,
				Missing: []string{"EPS", "P/E Ratio"},
			},
			want: "calculation fault: incomplete record (symbol=MSFT, peers=3): missing EPS, P/E Ratio",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsCalculationError(t *testing.T) {
	wrapped := fmt.Errorf("score AAPL: %w", &CalculationError{Reason: "non-finite value"})

	if !IsCalculationError(wrapped) {
		t.Error("Expected wrapped calculation error to be detected")
	}
	if IsCalculationError(ErrDataUnavailable) {
		t.Error("Expected sentinel not to be a calculation error")
	}
	if IsCalculationError(nil) {
		t.Error("Expected nil not to be a calculation error")
	}
}
