package redislivestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/openmarket-os/marketd/internal/core/ports"
	"github.com/redis/go-redis/v9"
)

const (
	pendingSettlementsHashKey = "pendingSettlementStore:tokens"
	pendingSaleKeysHashKey    = "pendingSettlementStore:saleKeys"
)

type liveStore struct {
	pendingSettlements ports.PendingSettlementStore
}

func NewLiveStore(rdb *redis.Client, numOfRetries int) ports.LiveStore {
	return &liveStore{
		pendingSettlements: NewPendingSettlementStore(rdb, numOfRetries),
	}
}

func (s *liveStore) PendingSettlements() ports.PendingSettlementStore {
	return s.pendingSettlements
}

type pendingSettlementStore struct {
	rdb          *redis.Client
	numOfRetries int
	retryDelay   time.Duration
}

func NewPendingSettlementStore(
	rdb *redis.Client, numOfRetries int,
) ports.PendingSettlementStore {
	return &pendingSettlementStore{
		rdb:          rdb,
		numOfRetries: numOfRetries,
		retryDelay:   10 * time.Millisecond,
	}
}

func (s *pendingSettlementStore) Push(
	ctx context.Context, token ports.PendingSettlement,
) error {
	val, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf(
			"failed to marshal pending settlement %s: %v", token.SettlementId, err,
		)
	}

	for range s.numOfRetries {
		if err = s.rdb.Watch(ctx, func(tx *redis.Tx) error {
			exists, err := tx.HExists(ctx, pendingSettlementsHashKey, token.SettlementId).Result()
			if err != nil {
				return err
			}
			if exists {
				return fmt.Errorf("duplicated settlement %s", token.SettlementId)
			}
			inFlight, err := tx.HExists(ctx, pendingSaleKeysHashKey, token.SaleKey).Result()
			if err != nil {
				return err
			}
			if inFlight {
				return fmt.Errorf("sale %s already has an in-flight settlement", token.SaleKey)
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.HSet(ctx, pendingSettlementsHashKey, token.SettlementId, val)
				pipe.HSet(ctx, pendingSaleKeysHashKey, token.SaleKey, token.SettlementId)
				return nil
			})
			return err
		}, pendingSettlementsHashKey, pendingSaleKeysHashKey); err == nil {
			return nil
		}
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
		time.Sleep(s.retryDelay)
	}
	return fmt.Errorf(
		"failed to push pending settlement %s after max number of retries: %v",
		token.SettlementId, err,
	)
}

func (s *pendingSettlementStore) Pop(
	ctx context.Context, settlementId string,
) (*ports.PendingSettlement, error) {
	tokenStr, err := s.rdb.HGet(ctx, pendingSettlementsHashKey, settlementId).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get pending settlement %s: %v", settlementId, err)
	}
	var token ports.PendingSettlement
	if err := json.Unmarshal([]byte(tokenStr), &token); err != nil {
		return nil, fmt.Errorf(
			"malformed pending settlement in storage %s: %v", settlementId, err,
		)
	}

	for range s.numOfRetries {
		var removed bool
		if err = s.rdb.Watch(ctx, func(tx *redis.Tx) error {
			exists, err := tx.HExists(ctx, pendingSettlementsHashKey, settlementId).Result()
			if err != nil {
				return err
			}
			if !exists {
				return nil
			}
			if _, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.HDel(ctx, pendingSettlementsHashKey, settlementId)
				pipe.HDel(ctx, pendingSaleKeysHashKey, token.SaleKey)
				return nil
			}); err != nil {
				return err
			}
			removed = true
			return nil
		}, pendingSettlementsHashKey, pendingSaleKeysHashKey); err == nil {
			if !removed {
				// raced with another resolver, which owns the token now
				return nil, nil
			}
			return &token, nil
		}
		time.Sleep(s.retryDelay)
	}
	return nil, fmt.Errorf(
		"failed to pop pending settlement %s after max number of retries: %v",
		settlementId, err,
	)
}

func (s *pendingSettlementStore) Includes(
	ctx context.Context, saleKey string,
) (bool, error) {
	exists, err := s.rdb.HExists(ctx, pendingSaleKeysHashKey, saleKey).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check sale %s: %v", saleKey, err)
	}
	return exists, nil
}

func (s *pendingSettlementStore) Len(ctx context.Context) (int64, error) {
	count, err := s.rdb.HLen(ctx, pendingSettlementsHashKey).Result()
	if err != nil {
		return -1, fmt.Errorf("failed to count pending settlements: %v", err)
	}
	return count, nil
}
