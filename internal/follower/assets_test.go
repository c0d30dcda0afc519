package follower

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubNetValues struct {
	netValue decimal.Decimal
	err      error
}

func (s *stubNetValues) NetValue(ctx context.Context, strategyID string) (decimal.Decimal, error) {
	return s.netValue, s.err
}

func fp(v float64) *float64 { return &v }

func TestCalculateAssetsTotalWins(t *testing.T) {
	nv := &stubNetValues{netValue: dec("2.0")}

	assets, err := CalculateAssets(context.Background(), "ZH1", fp(5000), fp(1000), nv)
	require.NoError(t, err)
	assert.True(t, assets.Equal(decimal.NewFromInt(5000)), "got %s", assets)
}

func TestCalculateAssetsFromNetValue(t *testing.T) {
	nv := &stubNetValues{netValue: dec("1.5")}

	assets, err := CalculateAssets(context.Background(), "ZH1", nil, fp(1000), nv)
	require.NoError(t, err)
	assert.True(t, assets.Equal(decimal.NewFromInt(1500)), "got %s", assets)
}

func TestCalculateAssetsBelowMinimum(t *testing.T) {
	nv := &stubNetValues{netValue: dec("0.5")}

	_, err := CalculateAssets(context.Background(), "ZH1", nil, fp(1000), nv)
	require.Error(t, err)

	var cfgErr *ConfigError
	assert.True(t, errors.As(err, &cfgErr), "want ConfigError, got %T", err)
}

func TestCalculateAssetsMissingSpec(t *testing.T) {
	_, err := CalculateAssets(context.Background(), "ZH1", nil, nil, &stubNetValues{})
	var cfgErr *ConfigError
	assert.True(t, errors.As(err, &cfgErr), "want ConfigError, got %T", err)
}

func TestCalculateAssetsNotANumber(t *testing.T) {
	nan := math.NaN()
	_, err := CalculateAssets(context.Background(), "ZH1", &nan, nil, &stubNetValues{})
	var cfgErr *ConfigError
	assert.True(t, errors.As(err, &cfgErr), "want ConfigError, got %T", err)
}

func TestCalculateAssetsNetValueFetchError(t *testing.T) {
	nv := &stubNetValues{err: errors.New("site unreachable")}

	_, err := CalculateAssets(context.Background(), "ZH1", nil, fp(2000), nv)
	require.Error(t, err)

	var cfgErr *ConfigError
	assert.False(t, errors.As(err, &cfgErr), "fetch failures are not configuration errors")
}
