package db_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/openmarket-os/marketd/internal/core/domain"
	"github.com/openmarket-os/marketd/internal/core/ports"
	"github.com/openmarket-os/marketd/internal/infrastructure/db"
	"github.com/stretchr/testify/require"
)

// newRepoManager opens in-memory badger stores.
func newRepoManager(t *testing.T) ports.RepoManager {
	svc, err := db.NewService(db.ServiceConfig{
		DataStoreType:   "badger",
		DataStoreConfig: []interface{}{"", nil},
	})
	require.NoError(t, err)
	t.Cleanup(svc.Close)
	return svc
}

func TestUnsupportedStoreType(t *testing.T) {
	_, err := db.NewService(db.ServiceConfig{
		DataStoreType:   "mongo",
		DataStoreConfig: []interface{}{"", nil},
	})
	require.Error(t, err)
}

func TestSaleRepository(t *testing.T) {
	repo := newRepoManager(t)
	ctx := t.Context()

	price, err := domain.AmountFromString("18446744073709551616") // 2^64
	require.NoError(t, err)

	sale := domain.Sale{
		OwnerId:         "seller.example",
		ApprovalId:      7,
		AssetContractId: "nft.collection.example",
		AssetId:         "token-42",
		Price:           price,
		CreatedAt:       time.Now().Unix(),
	}

	_, err = repo.Sales().Get(ctx, sale.Key())
	require.ErrorIs(t, err, domain.ErrSaleNotFound)

	require.NoError(t, repo.Sales().Insert(ctx, sale))
	require.ErrorIs(t, repo.Sales().Insert(ctx, sale), domain.ErrSaleAlreadyExists)

	got, err := repo.Sales().Get(ctx, sale.Key())
	require.NoError(t, err)
	require.Equal(t, sale.OwnerId, got.OwnerId)
	require.Equal(t, sale.ApprovalId, got.ApprovalId)
	// amounts above 2^64 must survive the store round-trip
	require.True(t, got.Price.Equal(price))

	sale.Price = domain.NewAmount(500)
	require.NoError(t, repo.Sales().Update(ctx, sale))
	got, err = repo.Sales().Get(ctx, sale.Key())
	require.NoError(t, err)
	require.True(t, got.Price.Equal(domain.NewAmount(500)))

	removed, err := repo.Sales().Remove(ctx, sale.Key())
	require.NoError(t, err)
	require.Equal(t, sale.OwnerId, removed.OwnerId)

	_, err = repo.Sales().Get(ctx, sale.Key())
	require.ErrorIs(t, err, domain.ErrSaleNotFound)
	_, err = repo.Sales().Remove(ctx, sale.Key())
	require.ErrorIs(t, err, domain.ErrSaleNotFound)
}

func TestSettlementRepository(t *testing.T) {
	repo := newRepoManager(t)
	ctx := t.Context()

	sale := domain.Sale{
		OwnerId:         "seller.example",
		AssetContractId: "nft.collection.example",
		AssetId:         "token-42",
		Price:           domain.NewAmount(100),
	}
	settlement := domain.NewSettlement(
		uuid.NewString(), sale, "buyer.example", domain.NewAmount(100),
	)

	_, err := repo.Settlements().Get(ctx, settlement.Id)
	require.ErrorIs(t, err, domain.ErrSettlementNotFound)

	require.NoError(t, repo.Settlements().Add(ctx, settlement))

	got, err := repo.Settlements().Get(ctx, settlement.Id)
	require.NoError(t, err)
	require.Equal(t, domain.SettlementStatusPending, got.Status)
	require.Equal(t, settlement.Buyer, got.Buyer)
	require.Equal(t, settlement.Seller, got.Seller)

	t.Run("pending scan", func(t *testing.T) {
		stuck, err := repo.Settlements().GetPendingBefore(ctx, time.Now().Unix()+1)
		require.NoError(t, err)
		require.Len(t, stuck, 1)
		require.Equal(t, settlement.Id, stuck[0].Id)

		none, err := repo.Settlements().GetPendingBefore(ctx, settlement.CreatedAt-10)
		require.NoError(t, err)
		require.Empty(t, none)
	})

	t.Run("resolution persisted", func(t *testing.T) {
		require.NoError(t, got.Refund("payout rejected"))
		require.NoError(t, repo.Settlements().Update(ctx, *got))

		updated, err := repo.Settlements().Get(ctx, settlement.Id)
		require.NoError(t, err)
		require.Equal(t, domain.SettlementStatusRefunded, updated.Status)
		require.Equal(t, "payout rejected", updated.FailReason)

		// resolved settlements no longer show up in the pending scan
		stuck, err := repo.Settlements().GetPendingBefore(ctx, time.Now().Unix()+1)
		require.NoError(t, err)
		require.Empty(t, stuck)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, repo.Settlements().Delete(ctx, settlement.Id))
		_, err := repo.Settlements().Get(ctx, settlement.Id)
		require.ErrorIs(t, err, domain.ErrSettlementNotFound)
		// deleting twice is not an error
		require.NoError(t, repo.Settlements().Delete(ctx, settlement.Id))
	})
}
