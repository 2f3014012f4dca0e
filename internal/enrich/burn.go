package enrich

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"poolwatch/internal/models"
	chain "poolwatch/pkg/solana"
)

// ErrZeroSupply is returned when an LP mint reports no supply
var ErrZeroSupply = errors.New("lp mint has zero supply")

// HolderSource answers the chain queries the burn check needs
type HolderSource interface {
	LargestHolder(ctx context.Context, mint string) (*chain.Holder, error)
	TokenSupply(ctx context.Context, mint string) (*chain.Supply, error)
}

// CheckBurn reports the share of lpMint held by the burn address, formatted
// with two decimals and a percent sign. When the largest holder is not the
// burn address the result is "0%". On failure it returns "0%" together with
// the error; callers must treat that as not checked.
func CheckBurn(ctx context.Context, src HolderSource, pool, lpMint string) (string, error) {
	top, err := src.LargestHolder(ctx, lpMint)
	if err != nil {
		return models.ZeroPercent, fmt.Errorf("largest holder of lp %s (pool %s): %w", lpMint, pool, err)
	}
	if top.Address != chain.BURN_ADDRESS.String() {
		return models.ZeroPercent, nil
	}

	supply, err := src.TokenSupply(ctx, lpMint)
	if err != nil {
		return models.ZeroPercent, fmt.Errorf("supply of lp %s (pool %s): %w", lpMint, pool, err)
	}

	held, err := decimal.NewFromString(top.Amount)
	if err != nil {
		return models.ZeroPercent, fmt.Errorf("parse holder amount %q: %w", top.Amount, err)
	}
	total, err := decimal.NewFromString(supply.Amount)
	if err != nil {
		return models.ZeroPercent, fmt.Errorf("parse supply %q: %w", supply.Amount, err)
	}
	if total.IsZero() {
		return models.ZeroPercent, ErrZeroSupply
	}

	pct := held.Div(total).Mul(decimal.NewFromInt(100))
	return pct.StringFixed(2) + "%", nil
}
