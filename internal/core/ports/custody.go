package ports

import (
	"context"

	"github.com/openmarket-os/marketd/internal/core/domain"
)

// TransferRequest asks a custody service to move an asset to the receiver,
// proving authority with the approval credential issued at listing time, and
// to report how Amount should be split among payees.
type TransferRequest struct {
	AssetContractId string
	AssetId         string
	ReceiverId      string
	ApprovalId      uint64
	Amount          domain.Amount
	MaxPayees       uint32
	Memo            string
}

// CustodyService is the external collaborator holding traded assets. The
// returned bytes are the serialized payee-to-amount mapping, completely
// untrusted: parsing and validation belong to the settlement resolver.
// Any error, including a timeout, means the transfer outcome is unknown.
type CustodyService interface {
	TransferWithPayout(ctx context.Context, req TransferRequest) ([]byte, error)
}
