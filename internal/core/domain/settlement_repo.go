package domain

import (
	"context"
	"errors"
)

var ErrSettlementNotFound = errors.New("settlement not found")

type SettlementRepository interface {
	Add(ctx context.Context, settlement Settlement) error
	Update(ctx context.Context, settlement Settlement) error
	Get(ctx context.Context, id string) (*Settlement, error)
	// GetPendingBefore returns pending settlements created before the given
	// unix timestamp. Used by the watchdog to surface stuck resolutions.
	GetPendingBefore(ctx context.Context, before int64) ([]Settlement, error)
	Delete(ctx context.Context, id string) error
	Close()
}
