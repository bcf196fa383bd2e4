package validator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/finscore/internal/contracts"
	"github.com/wonny/finscore/internal/external/fmp"
	"github.com/wonny/finscore/internal/marketdata"
	"github.com/wonny/finscore/internal/marketdata/mdtest"
	"github.com/wonny/finscore/pkg/logger"
)

func newTestValidator(t *testing.T) (*Validator, *mdtest.Provider) {
	t.Helper()
	p := mdtest.NewProvider()
	p.SearchResults["GOOG"] = []fmp.SearchResult{{Symbol: "GOOG", Name: "Alphabet Inc."}}
	p.SearchResults["BRK.B"] = []fmp.SearchResult{{Symbol: "BRK.B"}}
	p.SearchResults["GOO"] = []fmp.SearchResult{{Symbol: "GOOG"}}
	md := marketdata.New(p, mdtest.NewCache(t), logger.Nop())
	return New(md, logger.Nop()), p
}

func TestValidFormat(t *testing.T) {
	tests := []struct {
		symbol string
		want   bool
	}{
		{"GOOG", true},
		{"goog", true},
		{" aapl ", true},
		{"BRK.B", true},
		{"A", true},
		{"ABCDEF", true},
		{"TOOLONGSYM", false},
		{"ABCDEFG", false},
		{"", false},
		{"BRK-B", false},
		{"AB1", false},
		{"ÄBC", false},
	}

	for _, tt := range tests {
		t.Run(tt.symbol, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidFormat(tt.symbol))
		})
	}
}

func TestValidate_CaseInsensitive(t *testing.T) {
	v, _ := newTestValidator(t)
	ctx := context.Background()

	upper, err := v.Validate(ctx, "GOOG")
	require.NoError(t, err)
	lower, err := v.Validate(ctx, "goog")
	require.NoError(t, err)

	assert.Equal(t, "GOOG", upper)
	assert.Equal(t, upper, lower)
}

func TestValidate_FormatRejectedWithoutNetwork(t *testing.T) {
	v, p := newTestValidator(t)

	_, err := v.Validate(context.Background(), "TOOLONGSYM")

	assert.ErrorIs(t, err, contracts.ErrInvalidSymbol)
	assert.Zero(t, p.TotalCalls())
}

func TestValidate_Existence(t *testing.T) {
	tests := []struct {
		name   string
		symbol string
		valid  bool
	}{
		{"known", "GOOG", true},
		{"with dot", "brk.b", true},
		{"first candidate differs", "GOO", false},
		{"unknown", "ZZZZ", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, _ := newTestValidator(t)
			assert.Equal(t, tt.valid, v.IsValid(context.Background(), tt.symbol))
		})
	}
}

func TestValidate_SearchCached(t *testing.T) {
	v, p := newTestValidator(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		assert.True(t, v.IsValid(ctx, "GOOG"))
	}
	assert.Equal(t, 1, p.Calls(fmp.EndpointSearch))
}

func TestValidate_UpstreamFailure(t *testing.T) {
	v, p := newTestValidator(t)
	p.Err = errors.New("503 service unavailable")

	_, err := v.Validate(context.Background(), "GOOG")

	assert.ErrorIs(t, err, contracts.ErrInvalidSymbol)
}

type cancelledSearch struct{}

func (cancelledSearch) Search(context.Context, string) ([]fmp.SearchResult, error) {
	return nil, context.Canceled
}

func TestValidate_CancelledSearchIsNotInvalid(t *testing.T) {
	v := New(cancelledSearch{}, logger.Nop())

	_, err := v.Validate(context.Background(), "GOOG")

	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, contracts.ErrInvalidSymbol)
}

func TestValidate_CallerCancelled(t *testing.T) {
	v, _ := newTestValidator(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := v.Validate(ctx, "GOOG")

	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, contracts.ErrInvalidSymbol)
}
