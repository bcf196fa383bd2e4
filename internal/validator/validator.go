// Package validator checks ticker symbols for format and existence.
package validator

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/wonny/finscore/internal/contracts"
	"github.com/wonny/finscore/internal/external/fmp"
	"github.com/wonny/finscore/pkg/logger"
)

// symbolPattern: 1-6 of A-Z or '.', applied to the uppercased input
var symbolPattern = regexp.MustCompile(`^[A-Z.]{1,6}$`)

// Searcher is the cache-through search accessor
type Searcher interface {
	Search(ctx context.Context, symbol string) ([]fmp.SearchResult, error)
}

// Validator is the Symbol Validator
type Validator struct {
	search Searcher
	logger *logger.Logger
}

// New creates a validator
func New(search Searcher, log *logger.Logger) *Validator {
	return &Validator{
		search: search,
		logger: log.WithComponent("validator"),
	}
}

// Normalize trims and uppercases a symbol
func Normalize(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// ValidFormat reports whether symbol passes the format check. No I/O.
func ValidFormat(symbol string) bool {
	return symbolPattern.MatchString(Normalize(symbol))
}

// Validate returns the normalized symbol, or an error matching
// contracts.ErrInvalidSymbol when the format check fails or the provider
// does not know the symbol. Upstream failures also make the symbol invalid.
func (v *Validator) Validate(ctx context.Context, symbol string) (string, error) {
	normalized := Normalize(symbol)
	log := v.logger.WithSymbol(normalized)

	if !symbolPattern.MatchString(normalized) {
		log.Debug("symbol rejected by format")
		return "", fmt.Errorf("%w: bad format %q", contracts.ErrInvalidSymbol, symbol)
	}

	results, err := v.search.Search(ctx, normalized)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		if errors.Is(err, context.Canceled) {
			return "", err
		}
		if !errors.Is(err, contracts.ErrDataUnavailable) {
			log.WithError(err).Warn("symbol search failed")
		}
		return "", fmt.Errorf("%w: %s not found: %w", contracts.ErrInvalidSymbol, normalized, err)
	}

	if len(results) == 0 || !strings.EqualFold(results[0].Symbol, normalized) {
		log.Debug("first search candidate does not match")
		return "", fmt.Errorf("%w: %s not found", contracts.ErrInvalidSymbol, normalized)
	}

	return normalized, nil
}

// IsValid reports whether symbol is well-formed and known upstream
func (v *Validator) IsValid(ctx context.Context, symbol string) bool {
	_, err := v.Validate(ctx, symbol)
	return err == nil
}
