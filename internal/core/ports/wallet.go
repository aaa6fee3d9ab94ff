package ports

import (
	"context"

	"github.com/openmarket-os/marketd/internal/core/domain"
)

// WalletService moves native currency out of the marketplace's custody.
// Transfer is the terminal action of a settlement: a failed transfer is the
// wallet's responsibility to report, it is never retried by the caller.
type WalletService interface {
	Transfer(ctx context.Context, to string, amount domain.Amount) error
	Close()
}
