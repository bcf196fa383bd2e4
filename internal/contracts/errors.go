package contracts

import (
	"errors"
	"fmt"
	"strings"
)

// Error taxonomy shared by every component.
// Expected absence is reported with sentinel errors; CalculationError is the
// only hard fault.
var (
	// ErrInvalidSymbol: format or existence check failed
	ErrInvalidSymbol = errors.New("invalid symbol")

	// ErrDataUnavailable: an upstream dataset was empty, null or an error payload
	ErrDataUnavailable = errors.New("data unavailable")

	// ErrIncompletePeerSet: no usable peers survived filtering.
	// errors.Is(err, ErrDataUnavailable) also holds.
	ErrIncompletePeerSet = fmt.Errorf("%w: no usable sector peers", ErrDataUnavailable)

	// ErrAnalysisFailed: an unexpected fault was caught at the orchestrator boundary
	ErrAnalysisFailed = errors.New("analysis failed")
)

// Unavailable wraps ErrDataUnavailable with the dataset and subject
func Unavailable(dataset, subject string) error {
	return fmt.Errorf("%s for %s: %w", dataset, subject, ErrDataUnavailable)
}

// CalculationError reports a violated scoring precondition
type CalculationError struct {
	Reason  string
	Symbol  string
	Peers   int
	Missing []string
}

func (e *CalculationError) Error() string {
	var b strings.Builder
	b.WriteString("calculation fault: ")
	b.WriteString(e.Reason)
	if e.Symbol != "" {
		fmt.Fprintf(&b, " (symbol=%s", e.Symbol)
		fmt.Fprintf(&b, ", peers=%d)", e.Peers)
	}
	if len(e.Missing) > 0 {
		fmt.Fprintf(&b, ": missing %s", strings.Join(e.Missing, ", "))
	}
	return b.String()
}

// IsCalculationError reports whether err wraps a *CalculationError
func IsCalculationError(err error) bool {
	var ce *CalculationError
	return errors.As(err, &ce)
}
