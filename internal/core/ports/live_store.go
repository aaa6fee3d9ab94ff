package ports

import (
	"context"
	"time"

	"github.com/openmarket-os/marketd/internal/core/domain"
)

type LiveStore interface {
	PendingSettlements() PendingSettlementStore
}

// PendingSettlement is the correlation token of an offer whose custody
// request is in flight: everything the continuation needs to resolve the
// settlement without re-reading the sale registry.
type PendingSettlement struct {
	SettlementId string
	SaleKey      string
	Buyer        string
	Seller       string
	Amount       domain.Amount
	Timestamp    time.Time
}

// PendingSettlementStore tracks in-flight settlements. Pop removes and
// returns a token exactly once; a second Pop for the same id returns nil,
// which is what makes double resolution structurally impossible.
type PendingSettlementStore interface {
	Push(ctx context.Context, token PendingSettlement) error
	Pop(ctx context.Context, settlementId string) (*PendingSettlement, error)
	Includes(ctx context.Context, saleKey string) (bool, error)
	Len(ctx context.Context) (int64, error)
}
