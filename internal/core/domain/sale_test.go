package domain_test

import (
	"testing"

	"github.com/openmarket-os/marketd/internal/core/domain"
	"github.com/stretchr/testify/require"
)

func TestSaleKey(t *testing.T) {
	tests := []struct {
		name            string
		assetContractId string
		assetId         string
		expectError     bool
		expected        string
	}{
		{
			name:            "valid",
			assetContractId: "nft.collection.example",
			assetId:         "token-42",
			expected:        "nft.collection.example||token-42",
		},
		{
			name:            "empty contract id",
			assetContractId: "",
			assetId:         "token-42",
			expectError:     true,
		},
		{
			name:            "empty asset id",
			assetContractId: "nft.collection.example",
			assetId:         "",
			expectError:     true,
		},
		{
			name:            "delimiter in contract id",
			assetContractId: "nft||collection",
			assetId:         "token-42",
			expectError:     true,
		},
		{
			name:            "delimiter in asset id",
			assetContractId: "nft.collection.example",
			assetId:         "token||42",
			expectError:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, err := domain.SaleKey(tt.assetContractId, tt.assetId)
			if tt.expectError {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.expected, key)

			sale := domain.Sale{
				AssetContractId: tt.assetContractId,
				AssetId:         tt.assetId,
			}
			require.Equal(t, key, sale.Key())
		})
	}
}

func TestSettlementTransitions(t *testing.T) {
	sale := domain.Sale{
		OwnerId:         "seller.example",
		AssetContractId: "nft.collection.example",
		AssetId:         "token-42",
		Price:           domain.NewAmount(100),
	}

	t.Run("settle", func(t *testing.T) {
		settlement := domain.NewSettlement("id-1", sale, "buyer.example", domain.NewAmount(100))
		require.Equal(t, domain.SettlementStatusPending, settlement.Status)
		require.False(t, settlement.IsResolved())

		require.NoError(t, settlement.Settle())
		require.Equal(t, domain.SettlementStatusSettled, settlement.Status)
		require.True(t, settlement.IsResolved())

		require.Error(t, settlement.Settle())
		require.Error(t, settlement.Refund("too late"))
	})

	t.Run("refund", func(t *testing.T) {
		settlement := domain.NewSettlement("id-2", sale, "buyer.example", domain.NewAmount(100))
		require.NoError(t, settlement.Refund("payout rejected"))
		require.Equal(t, domain.SettlementStatusRefunded, settlement.Status)
		require.Equal(t, "payout rejected", settlement.FailReason)

		require.Error(t, settlement.Settle())
	})
}
