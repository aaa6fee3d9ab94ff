package domain

import (
	"fmt"
	"strings"
)

// KeyDelimiter separates the asset contract id from the asset id in a sale
// key. It is rejected inside either component so keys can never collide.
const KeyDelimiter = "||"

type Sale struct {
	OwnerId         string
	ApprovalId      uint64
	AssetContractId string
	AssetId         string
	Price           Amount
	CreatedAt       int64
}

func (s Sale) Key() string {
	return s.AssetContractId + KeyDelimiter + s.AssetId
}

// SaleKey builds the composite registry key for an asset.
func SaleKey(assetContractId, assetId string) (string, error) {
	if assetContractId == "" || assetId == "" {
		return "", fmt.Errorf("asset contract id and asset id must not be empty")
	}
	if strings.Contains(assetContractId, KeyDelimiter) ||
		strings.Contains(assetId, KeyDelimiter) {
		return "", fmt.Errorf("asset identifiers must not contain %q", KeyDelimiter)
	}
	return assetContractId + KeyDelimiter + assetId, nil
}
