package badgerdb

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/openmarket-os/marketd/internal/core/domain"
	"github.com/timshannon/badgerhold/v4"
)

const saleStoreDir = "sales"

type saleRepository struct {
	store *badgerhold.Store
}

// saleDTO is the stored shape of a sale. The price is kept as a decimal
// string so arbitrary-precision amounts survive the codec untouched.
type saleDTO struct {
	OwnerId         string
	ApprovalId      uint64
	AssetContractId string
	AssetId         string
	Price           string
	CreatedAt       int64
}

func NewSaleRepository(config ...interface{}) (domain.SaleRepository, error) {
	if len(config) != 2 {
		return nil, fmt.Errorf("invalid config")
	}
	baseDir, ok := config[0].(string)
	if !ok {
		return nil, fmt.Errorf("invalid base directory")
	}
	var logger badger.Logger
	if config[1] != nil {
		logger, ok = config[1].(badger.Logger)
		if !ok {
			return nil, fmt.Errorf("invalid logger")
		}
	}

	var dir string
	if len(baseDir) > 0 {
		dir = filepath.Join(baseDir, saleStoreDir)
	}
	store, err := createDB(dir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open sale store: %s", err)
	}

	return &saleRepository{store}, nil
}

func (r *saleRepository) Get(ctx context.Context, key string) (*domain.Sale, error) {
	var dto saleDTO
	if err := r.store.Get(key, &dto); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, domain.ErrSaleNotFound
		}
		return nil, fmt.Errorf("failed to get sale %s: %w", key, err)
	}
	return fromSaleDTO(dto)
}

func (r *saleRepository) Insert(ctx context.Context, sale domain.Sale) error {
	insertFn := func() error {
		return r.store.Insert(sale.Key(), toSaleDTO(sale))
	}
	if err := insertFn(); err != nil {
		if errors.Is(err, badgerhold.ErrKeyExists) {
			return domain.ErrSaleAlreadyExists
		}
		if errors.Is(err, badger.ErrConflict) {
			attempts := 1
			for errors.Is(err, badger.ErrConflict) && attempts <= maxRetries {
				time.Sleep(100 * time.Millisecond)
				err = insertFn()
				attempts++
			}
		}
		return err
	}
	return nil
}

func (r *saleRepository) Update(ctx context.Context, sale domain.Sale) error {
	if err := r.store.Update(sale.Key(), toSaleDTO(sale)); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return domain.ErrSaleNotFound
		}
		return fmt.Errorf("failed to update sale %s: %w", sale.Key(), err)
	}
	return nil
}

func (r *saleRepository) Remove(ctx context.Context, key string) (*domain.Sale, error) {
	sale, err := r.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	deleteFn := func() error {
		return r.store.Delete(key, saleDTO{})
	}
	if err := deleteFn(); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, domain.ErrSaleNotFound
		}
		if errors.Is(err, badger.ErrConflict) {
			attempts := 1
			for errors.Is(err, badger.ErrConflict) && attempts <= maxRetries {
				time.Sleep(100 * time.Millisecond)
				err = deleteFn()
				attempts++
			}
		}
		if err != nil {
			return nil, fmt.Errorf("failed to remove sale %s: %w", key, err)
		}
	}
	return sale, nil
}

func (r *saleRepository) Close() {
	// nolint:all
	r.store.Close()
}

func toSaleDTO(sale domain.Sale) saleDTO {
	return saleDTO{
		OwnerId:         sale.OwnerId,
		ApprovalId:      sale.ApprovalId,
		AssetContractId: sale.AssetContractId,
		AssetId:         sale.AssetId,
		Price:           sale.Price.String(),
		CreatedAt:       sale.CreatedAt,
	}
}

func fromSaleDTO(dto saleDTO) (*domain.Sale, error) {
	price, err := domain.AmountFromString(dto.Price)
	if err != nil {
		return nil, fmt.Errorf("corrupted price in sale store: %s", err)
	}
	return &domain.Sale{
		OwnerId:         dto.OwnerId,
		ApprovalId:      dto.ApprovalId,
		AssetContractId: dto.AssetContractId,
		AssetId:         dto.AssetId,
		Price:           price,
		CreatedAt:       dto.CreatedAt,
	}, nil
}
