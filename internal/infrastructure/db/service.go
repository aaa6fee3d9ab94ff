package db

import (
	"fmt"

	"github.com/openmarket-os/marketd/internal/core/domain"
	"github.com/openmarket-os/marketd/internal/core/ports"
	badgerdb "github.com/openmarket-os/marketd/internal/infrastructure/db/badger"
)

var (
	saleStoreTypes = map[string]func(...interface{}) (domain.SaleRepository, error){
		"badger": badgerdb.NewSaleRepository,
	}
	settlementStoreTypes = map[string]func(...interface{}) (domain.SettlementRepository, error){
		"badger": badgerdb.NewSettlementRepository,
	}
)

type ServiceConfig struct {
	DataStoreType   string
	DataStoreConfig []interface{}
}

type service struct {
	saleStore       domain.SaleRepository
	settlementStore domain.SettlementRepository
}

func NewService(config ServiceConfig) (ports.RepoManager, error) {
	saleStoreFactory, ok := saleStoreTypes[config.DataStoreType]
	if !ok {
		return nil, fmt.Errorf("sale store type not supported")
	}
	settlementStoreFactory, ok := settlementStoreTypes[config.DataStoreType]
	if !ok {
		return nil, fmt.Errorf("invalid data store type: %s", config.DataStoreType)
	}

	saleStore, err := saleStoreFactory(config.DataStoreConfig...)
	if err != nil {
		return nil, fmt.Errorf("failed to open sale store: %s", err)
	}
	settlementStore, err := settlementStoreFactory(config.DataStoreConfig...)
	if err != nil {
		return nil, fmt.Errorf("failed to open settlement store: %s", err)
	}

	return &service{
		saleStore:       saleStore,
		settlementStore: settlementStore,
	}, nil
}

func (s *service) Sales() domain.SaleRepository {
	return s.saleStore
}

func (s *service) Settlements() domain.SettlementRepository {
	return s.settlementStore
}

func (s *service) Close() {
	s.saleStore.Close()
	s.settlementStore.Close()
}
