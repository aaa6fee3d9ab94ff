package domain

import (
	"fmt"
	"time"
)

type SettlementStatus uint8

const (
	SettlementStatusPending SettlementStatus = iota
	SettlementStatusSettled
	SettlementStatusRefunded
)

func (s SettlementStatus) String() string {
	return []string{
		"pending",
		"settled",
		"refunded",
	}[s]
}

// Settlement is the durable record of an accepted offer. It is created in
// pending state before the custody request is issued and resolved exactly
// once, to settled (funds disbursed to the payout) or refunded (full amount
// back to the buyer). No other transition exists.
type Settlement struct {
	Id         string
	SaleKey    string
	Buyer      string
	Seller     string
	Amount     Amount
	Status     SettlementStatus
	FailReason string
	CreatedAt  int64
	ResolvedAt int64
}

func NewSettlement(id string, sale Sale, buyer string, amount Amount) Settlement {
	return Settlement{
		Id:        id,
		SaleKey:   sale.Key(),
		Buyer:     buyer,
		Seller:    sale.OwnerId,
		Amount:    amount,
		Status:    SettlementStatusPending,
		CreatedAt: time.Now().Unix(),
	}
}

func (s *Settlement) IsResolved() bool {
	return s.Status != SettlementStatusPending
}

// Settle marks the settlement as disbursed. Fails if already resolved.
func (s *Settlement) Settle() error {
	if s.IsResolved() {
		return fmt.Errorf("settlement %s already resolved to %s", s.Id, s.Status)
	}
	s.Status = SettlementStatusSettled
	s.ResolvedAt = time.Now().Unix()
	return nil
}

// Refund marks the settlement as reversed, recording why the payout was
// rejected. Fails if already resolved.
func (s *Settlement) Refund(reason string) error {
	if s.IsResolved() {
		return fmt.Errorf("settlement %s already resolved to %s", s.Id, s.Status)
	}
	s.Status = SettlementStatusRefunded
	s.FailReason = reason
	s.ResolvedAt = time.Now().Unix()
	return nil
}
