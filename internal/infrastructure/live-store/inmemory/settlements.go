package inmemorylivestore

import (
	"context"
	"fmt"
	"sync"

	"github.com/openmarket-os/marketd/internal/core/ports"
)

type liveStore struct {
	pendingSettlements ports.PendingSettlementStore
}

func NewLiveStore() ports.LiveStore {
	return &liveStore{
		pendingSettlements: NewPendingSettlementStore(),
	}
}

func (s *liveStore) PendingSettlements() ports.PendingSettlementStore {
	return s.pendingSettlements
}

type pendingSettlementStore struct {
	lock     sync.RWMutex
	tokens   map[string]*ports.PendingSettlement
	saleKeys map[string]string // sale key --> settlement id
}

func NewPendingSettlementStore() ports.PendingSettlementStore {
	return &pendingSettlementStore{
		tokens:   make(map[string]*ports.PendingSettlement),
		saleKeys: make(map[string]string),
	}
}

func (m *pendingSettlementStore) Push(
	_ context.Context, token ports.PendingSettlement,
) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	if _, ok := m.tokens[token.SettlementId]; ok {
		return fmt.Errorf("duplicated settlement %s", token.SettlementId)
	}
	if id, ok := m.saleKeys[token.SaleKey]; ok {
		return fmt.Errorf(
			"sale %s already has in-flight settlement %s", token.SaleKey, id,
		)
	}

	m.tokens[token.SettlementId] = &token
	m.saleKeys[token.SaleKey] = token.SettlementId
	return nil
}

func (m *pendingSettlementStore) Pop(
	_ context.Context, settlementId string,
) (*ports.PendingSettlement, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	token, ok := m.tokens[settlementId]
	if !ok {
		return nil, nil
	}
	delete(m.tokens, settlementId)
	delete(m.saleKeys, token.SaleKey)
	return token, nil
}

func (m *pendingSettlementStore) Includes(
	_ context.Context, saleKey string,
) (bool, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()

	_, ok := m.saleKeys[saleKey]
	return ok, nil
}

func (m *pendingSettlementStore) Len(_ context.Context) (int64, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()

	return int64(len(m.tokens)), nil
}
