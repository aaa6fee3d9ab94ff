package ports

import "github.com/openmarket-os/marketd/internal/core/domain"

type RepoManager interface {
	Sales() domain.SaleRepository
	Settlements() domain.SettlementRepository
	Close()
}
