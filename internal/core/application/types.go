package application

import (
	"context"

	"github.com/openmarket-os/marketd/internal/core/domain"
	"github.com/openmarket-os/marketd/pkg/errors"
)

type Service interface {
	Start() errors.Error
	Stop()
	// CreateSale is invoked by the custody service's approval notification:
	// the owner approved the marketplace to transfer the asset and the
	// credential proving it is the approval id.
	CreateSale(
		ctx context.Context, ownerId string, approvalId uint64,
		assetContractId, assetId string, price domain.Amount,
	) errors.Error
	GetSale(
		ctx context.Context, assetContractId, assetId string,
	) (*domain.Sale, errors.Error)
	Delist(
		ctx context.Context, caller, assetContractId, assetId string,
		deposit domain.Amount,
	) errors.Error
	UpdatePrice(
		ctx context.Context, caller, assetContractId, assetId string,
		deposit, newPrice domain.Amount,
	) errors.Error
	Offer(
		ctx context.Context, buyer, assetContractId, assetId string,
		attached domain.Amount,
	) (string, errors.Error)
	GetSettlement(ctx context.Context, id string) (*domain.Settlement, errors.Error)
}
