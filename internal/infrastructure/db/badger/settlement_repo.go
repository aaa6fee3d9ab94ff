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

const settlementStoreDir = "settlements"

type settlementRepository struct {
	store *badgerhold.Store
}

type settlementDTO struct {
	Id         string
	SaleKey    string
	Buyer      string
	Seller     string
	Amount     string
	Status     uint8
	FailReason string
	CreatedAt  int64
	ResolvedAt int64
}

func NewSettlementRepository(config ...interface{}) (domain.SettlementRepository, error) {
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
		dir = filepath.Join(baseDir, settlementStoreDir)
	}
	store, err := createDB(dir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open settlement store: %s", err)
	}

	return &settlementRepository{store}, nil
}

func (r *settlementRepository) Add(ctx context.Context, settlement domain.Settlement) error {
	insertFn := func() error {
		return r.store.Insert(settlement.Id, toSettlementDTO(settlement))
	}
	if err := insertFn(); err != nil {
		if errors.Is(err, badgerhold.ErrKeyExists) {
			return fmt.Errorf("settlement %s already recorded", settlement.Id)
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

func (r *settlementRepository) Update(ctx context.Context, settlement domain.Settlement) error {
	updateFn := func() error {
		return r.store.Update(settlement.Id, toSettlementDTO(settlement))
	}
	if err := updateFn(); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return domain.ErrSettlementNotFound
		}
		if errors.Is(err, badger.ErrConflict) {
			attempts := 1
			for errors.Is(err, badger.ErrConflict) && attempts <= maxRetries {
				time.Sleep(100 * time.Millisecond)
				err = updateFn()
				attempts++
			}
		}
		return err
	}
	return nil
}

func (r *settlementRepository) Get(
	ctx context.Context, id string,
) (*domain.Settlement, error) {
	var dto settlementDTO
	if err := r.store.Get(id, &dto); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, domain.ErrSettlementNotFound
		}
		return nil, fmt.Errorf("failed to get settlement %s: %w", id, err)
	}
	return fromSettlementDTO(dto)
}

func (r *settlementRepository) GetPendingBefore(
	ctx context.Context, before int64,
) ([]domain.Settlement, error) {
	query := badgerhold.Where("Status").
		Eq(uint8(domain.SettlementStatusPending)).
		And("CreatedAt").Lt(before)

	var dtos []settlementDTO
	if err := r.store.Find(&dtos, query); err != nil {
		return nil, fmt.Errorf("failed to find pending settlements: %w", err)
	}

	settlements := make([]domain.Settlement, 0, len(dtos))
	for _, dto := range dtos {
		settlement, err := fromSettlementDTO(dto)
		if err != nil {
			return nil, err
		}
		settlements = append(settlements, *settlement)
	}
	return settlements, nil
}

func (r *settlementRepository) Delete(ctx context.Context, id string) error {
	if err := r.store.Delete(id, settlementDTO{}); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to delete settlement %s: %w", id, err)
	}
	return nil
}

func (r *settlementRepository) Close() {
	// nolint:all
	r.store.Close()
}

func toSettlementDTO(settlement domain.Settlement) settlementDTO {
	return settlementDTO{
		Id:         settlement.Id,
		SaleKey:    settlement.SaleKey,
		Buyer:      settlement.Buyer,
		Seller:     settlement.Seller,
		Amount:     settlement.Amount.String(),
		Status:     uint8(settlement.Status),
		FailReason: settlement.FailReason,
		CreatedAt:  settlement.CreatedAt,
		ResolvedAt: settlement.ResolvedAt,
	}
}

func fromSettlementDTO(dto settlementDTO) (*domain.Settlement, error) {
	amount, err := domain.AmountFromString(dto.Amount)
	if err != nil {
		return nil, fmt.Errorf("corrupted amount in settlement store: %s", err)
	}
	return &domain.Settlement{
		Id:         dto.Id,
		SaleKey:    dto.SaleKey,
		Buyer:      dto.Buyer,
		Seller:     dto.Seller,
		Amount:     amount,
		Status:     domain.SettlementStatus(dto.Status),
		FailReason: dto.FailReason,
		CreatedAt:  dto.CreatedAt,
		ResolvedAt: dto.ResolvedAt,
	}, nil
}
