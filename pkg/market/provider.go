package market

import (
	"context"
	"errors"
)

// ErrUnsupported is returned by providers that do not serve a capability.
var ErrUnsupported = errors.New("market: capability not supported by provider")

// Provider exposes equity market data for a single upstream source.
type Provider interface {
	// Quote returns the latest quote for the symbol.
	Quote(ctx context.Context, ticker string) (Quote, error)
	// Series returns the price series for the requested display range.
	Series(ctx context.Context, ticker string, rng Range) (Series, error)
	// Metadata returns descriptive company data.
	Metadata(ctx context.Context, ticker string) (Metadata, error)
	// AnalystRatings returns the analyst consensus and price targets.
	AnalystRatings(ctx context.Context, ticker string) (AnalystRatings, error)
}
