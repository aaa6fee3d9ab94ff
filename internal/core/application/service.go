package application

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/openmarket-os/marketd/internal/core/domain"
	"github.com/openmarket-os/marketd/internal/core/ports"
	"github.com/openmarket-os/marketd/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const custodyTransferMemo = "payout from market"

// guardDeposit is the confirmation payment required on owner-authorized
// mutations: exactly one indivisible unit, refundable, not a fee.
var guardDeposit = domain.NewAmount(1)

type service struct {
	wallet      ports.WalletService
	custody     ports.CustodyService
	repoManager ports.RepoManager
	scheduler   ports.SchedulerService
	cache       ports.LiveStore

	custodyCallTimeout time.Duration
	pendingAlertAfter  time.Duration

	// stop and in-flight settlement handlers
	stop func()
	ctx  context.Context
	wg   *sync.WaitGroup
}

func NewService(
	wallet ports.WalletService,
	custody ports.CustodyService,
	repoManager ports.RepoManager,
	scheduler ports.SchedulerService,
	cache ports.LiveStore,
	custodyCallTimeout, pendingAlertAfter time.Duration,
) (Service, error) {
	if custodyCallTimeout <= 0 {
		return nil, fmt.Errorf("custody call timeout must be positive")
	}

	ctx, cancel := context.WithCancel(context.Background())

	svc := &service{
		wallet:             wallet,
		custody:            custody,
		repoManager:        repoManager,
		scheduler:          scheduler,
		cache:              cache,
		custodyCallTimeout: custodyCallTimeout,
		pendingAlertAfter:  pendingAlertAfter,
		stop:               cancel,
		ctx:                ctx,
		wg:                 &sync.WaitGroup{},
	}
	return svc, nil
}

func (s *service) Start() errors.Error {
	if s.pendingAlertAfter > 0 {
		if err := s.scheduler.ScheduleTaskEvery(
			s.pendingAlertAfter, s.reportStuckSettlements,
		); err != nil {
			return errors.INTERNAL_ERROR.New(
				"failed to schedule settlement watchdog: %s", err,
			).WithMetadata(map[string]any{"component": "scheduler"})
		}
	}
	s.scheduler.Start()
	return nil
}

func (s *service) Stop() {
	s.scheduler.Stop()
	s.stop()
	s.wg.Wait()
	s.repoManager.Close()
	s.wallet.Close()
	log.Debug("stopped settlement service")
}

func (s *service) CreateSale(
	ctx context.Context, ownerId string, approvalId uint64,
	assetContractId, assetId string, price domain.Amount,
) errors.Error {
	key, err := domain.SaleKey(assetContractId, assetId)
	if err != nil {
		return errors.SALE_NOT_FOUND.New("invalid sale key: %s", err)
	}
	if ownerId == "" {
		return errors.UNAUTHORIZED.New("owner id is required")
	}
	if price.IsZero() {
		return errors.INVALID_AMOUNT.New("listing price must be greater than 0").
			WithMetadata(errors.InvalidAmountMetadata{Amount: price.String()})
	}

	sale := domain.Sale{
		OwnerId:         ownerId,
		ApprovalId:      approvalId,
		AssetContractId: assetContractId,
		AssetId:         assetId,
		Price:           price,
		CreatedAt:       time.Now().Unix(),
	}
	if err := s.repoManager.Sales().Insert(ctx, sale); err != nil {
		if err == domain.ErrSaleAlreadyExists {
			return errors.SALE_ALREADY_EXISTS.New("sale %s already listed", key).
				WithMetadata(errors.SaleMetadata{SaleKey: key})
		}
		return errors.INTERNAL_ERROR.New("failed to insert sale: %s", err)
	}

	log.WithField("sale_key", key).WithField("price", price.String()).
		Debug("created new listing")
	return nil
}

func (s *service) GetSale(
	ctx context.Context, assetContractId, assetId string,
) (*domain.Sale, errors.Error) {
	key, err := domain.SaleKey(assetContractId, assetId)
	if err != nil {
		return nil, errors.SALE_NOT_FOUND.New("invalid sale key: %s", err)
	}
	sale, err := s.repoManager.Sales().Get(ctx, key)
	if err != nil {
		if err == domain.ErrSaleNotFound {
			return nil, errors.SALE_NOT_FOUND.New("no sale at key %s", key).
				WithMetadata(errors.SaleMetadata{SaleKey: key})
		}
		return nil, errors.INTERNAL_ERROR.New("failed to get sale: %s", err)
	}
	return sale, nil
}

func (s *service) Delist(
	ctx context.Context, caller, assetContractId, assetId string,
	deposit domain.Amount,
) errors.Error {
	if err := checkGuardDeposit(deposit); err != nil {
		return err
	}
	key, err := domain.SaleKey(assetContractId, assetId)
	if err != nil {
		return errors.SALE_NOT_FOUND.New("invalid sale key: %s", err)
	}

	sale, err := s.repoManager.Sales().Get(ctx, key)
	if err != nil {
		if err == domain.ErrSaleNotFound {
			return errors.SALE_NOT_FOUND.New("no sale at key %s", key).
				WithMetadata(errors.SaleMetadata{SaleKey: key})
		}
		return errors.INTERNAL_ERROR.New("failed to get sale: %s", err)
	}
	if caller != sale.OwnerId {
		return errors.UNAUTHORIZED.New("caller is not the sale owner").
			WithMetadata(errors.UnauthorizedMetadata{
				SaleKey: key, Caller: caller, Owner: sale.OwnerId,
			})
	}

	if _, err := s.repoManager.Sales().Remove(ctx, key); err != nil {
		return errors.INTERNAL_ERROR.New("failed to remove sale: %s", err)
	}
	log.WithField("sale_key", key).Debug("delisted sale")
	return nil
}

func (s *service) UpdatePrice(
	ctx context.Context, caller, assetContractId, assetId string,
	deposit, newPrice domain.Amount,
) errors.Error {
	if err := checkGuardDeposit(deposit); err != nil {
		return err
	}
	key, err := domain.SaleKey(assetContractId, assetId)
	if err != nil {
		return errors.SALE_NOT_FOUND.New("invalid sale key: %s", err)
	}
	if newPrice.IsZero() {
		return errors.INVALID_AMOUNT.New("listing price must be greater than 0").
			WithMetadata(errors.InvalidAmountMetadata{Amount: newPrice.String()})
	}

	sale, err := s.repoManager.Sales().Get(ctx, key)
	if err != nil {
		if err == domain.ErrSaleNotFound {
			return errors.SALE_NOT_FOUND.New("no sale at key %s", key).
				WithMetadata(errors.SaleMetadata{SaleKey: key})
		}
		return errors.INTERNAL_ERROR.New("failed to get sale: %s", err)
	}
	if caller != sale.OwnerId {
		return errors.UNAUTHORIZED.New("caller is not the sale owner").
			WithMetadata(errors.UnauthorizedMetadata{
				SaleKey: key, Caller: caller, Owner: sale.OwnerId,
			})
	}

	// Price is the only field that changes, approval and listing time stay.
	sale.Price = newPrice
	if err := s.repoManager.Sales().Update(ctx, *sale); err != nil {
		return errors.INTERNAL_ERROR.New("failed to update sale: %s", err)
	}
	log.WithField("sale_key", key).WithField("price", newPrice.String()).
		Debug("updated listing price")
	return nil
}

// Offer validates a funded offer against the listing, removes the listing
// and issues the asynchronous transfer-and-payout request. The removal is
// committed strictly before the custody call is dispatched: because the
// listing no longer exists, no second offer for the same asset can reach the
// custody service, whatever happens to this one.
func (s *service) Offer(
	ctx context.Context, buyer, assetContractId, assetId string,
	attached domain.Amount,
) (string, errors.Error) {
	if attached.IsZero() {
		return "", errors.ZERO_PAYMENT.New("attached amount must be greater than 0")
	}
	key, err := domain.SaleKey(assetContractId, assetId)
	if err != nil {
		return "", errors.SALE_NOT_FOUND.New("invalid sale key: %s", err)
	}

	sale, err := s.repoManager.Sales().Get(ctx, key)
	if err != nil {
		if err == domain.ErrSaleNotFound {
			return "", errors.SALE_NOT_FOUND.New("no sale at key %s", key).
				WithMetadata(errors.SaleMetadata{SaleKey: key})
		}
		return "", errors.INTERNAL_ERROR.New("failed to get sale: %s", err)
	}
	if buyer == sale.OwnerId {
		return "", errors.SELF_TRADE.New("cannot bid on your own sale").
			WithMetadata(errors.SaleMetadata{SaleKey: key})
	}
	if attached.LessThan(sale.Price) {
		return "", errors.INSUFFICIENT_FUNDS.New(
			"attached amount must be greater than or equal to the current price",
		).WithMetadata(errors.InsufficientFundsMetadata{
			SaleKey:  key,
			Price:    sale.Price.String(),
			Attached: attached.String(),
		})
	}

	removed, err := s.repoManager.Sales().Remove(ctx, key)
	if err != nil {
		return "", errors.INTERNAL_ERROR.New("failed to remove sale: %s", err)
	}

	settlement := domain.NewSettlement(uuid.NewString(), *removed, buyer, attached)
	if err := s.repoManager.Settlements().Add(ctx, settlement); err != nil {
		s.rollbackOffer(ctx, *removed, "")
		return "", errors.INTERNAL_ERROR.New("failed to record settlement: %s", err)
	}

	token := ports.PendingSettlement{
		SettlementId: settlement.Id,
		SaleKey:      key,
		Buyer:        buyer,
		Seller:       removed.OwnerId,
		Amount:       attached,
		Timestamp:    time.Now(),
	}
	if err := s.cache.PendingSettlements().Push(ctx, token); err != nil {
		s.rollbackOffer(ctx, *removed, settlement.Id)
		return "", errors.INTERNAL_ERROR.New("failed to track settlement: %s", err)
	}

	log.WithField("sale_key", key).
		WithField("settlement_id", settlement.Id).
		WithField("buyer", buyer).
		WithField("amount", attached.String()).
		Info("accepted offer, requesting asset transfer")

	s.wg.Add(1)
	go s.settle(*removed, token)

	return settlement.Id, nil
}

func (s *service) GetSettlement(
	ctx context.Context, id string,
) (*domain.Settlement, errors.Error) {
	settlement, err := s.repoManager.Settlements().Get(ctx, id)
	if err != nil {
		if err == domain.ErrSettlementNotFound {
			return nil, errors.SETTLEMENT_NOT_FOUND.New("no settlement with id %s", id).
				WithMetadata(errors.SettlementMetadata{SettlementId: id})
		}
		return nil, errors.INTERNAL_ERROR.New("failed to get settlement: %s", err)
	}
	return settlement, nil
}

// rollbackOffer undoes the registry mutation when the offer could not reach
// the dispatch point, so the whole invocation is all-or-nothing. Past
// dispatch there is no abort path.
func (s *service) rollbackOffer(ctx context.Context, sale domain.Sale, settlementId string) {
	if settlementId != "" {
		if err := s.repoManager.Settlements().Delete(ctx, settlementId); err != nil {
			log.WithError(err).Errorf("failed to roll back settlement %s", settlementId)
		}
	}
	if err := s.repoManager.Sales().Insert(ctx, sale); err != nil {
		log.WithError(err).Errorf("failed to re-insert sale %s", sale.Key())
	}
}

// settle issues the custody request and hands its outcome, whatever it is,
// to the resolver. This is the only suspension point of the protocol.
func (s *service) settle(sale domain.Sale, token ports.PendingSettlement) {
	defer s.wg.Done()

	ctx, cancel := context.WithTimeout(s.ctx, s.custodyCallTimeout)
	defer cancel()

	raw, err := s.custody.TransferWithPayout(ctx, ports.TransferRequest{
		AssetContractId: sale.AssetContractId,
		AssetId:         sale.AssetId,
		ReceiverId:      token.Buyer,
		ApprovalId:      sale.ApprovalId,
		Amount:          token.Amount,
		MaxPayees:       domain.MaxPayoutEntries,
		Memo:            custodyTransferMemo,
	})

	s.resolveSettlement(token.SettlementId, raw, err)
}

// resolveSettlement is the continuation of an accepted offer and the sole
// place where value leaves the marketplace's custody. It runs exactly once
// per settlement: the pending token is popped from the live store before any
// fund movement, so a duplicate invocation finds nothing to resolve.
// It never touches the sale registry.
func (s *service) resolveSettlement(
	settlementId string, rawPayout []byte, callErr error,
) domain.Amount {
	ctx := context.Background()

	token, err := s.cache.PendingSettlements().Pop(ctx, settlementId)
	if err != nil {
		log.WithError(err).Errorf("failed to pop pending settlement %s", settlementId)
		return domain.Amount{}
	}
	if token == nil {
		log.Warnf("settlement %s already resolved, skipping", settlementId)
		return domain.Amount{}
	}

	logger := log.WithField("settlement_id", settlementId).
		WithField("sale_key", token.SaleKey).
		WithField("buyer", token.Buyer).
		WithField("amount", token.Amount.String())

	payout, invalidReason := validatePayout(token.Amount, rawPayout, callErr)

	settlement, err := s.repoManager.Settlements().Get(ctx, settlementId)
	if err != nil {
		// The record must exist, it was written before dispatch. Resolve from
		// the token anyway: buyer funds must never stay stuck on a bookkeeping
		// failure.
		logger.WithError(err).Error("failed to load settlement record")
		settlement = &domain.Settlement{
			Id:      settlementId,
			SaleKey: token.SaleKey,
			Buyer:   token.Buyer,
			Seller:  token.Seller,
			Amount:  token.Amount,
		}
	}

	if invalidReason != "" {
		logger.WithField("reason", invalidReason).Info("refunding buyer")
		if err := settlement.Refund(invalidReason); err != nil {
			logger.WithError(err).Error("refusing to resolve settlement twice")
			return domain.Amount{}
		}
		s.persistResolution(ctx, *settlement)
		if err := s.wallet.Transfer(ctx, token.Buyer, token.Amount); err != nil {
			logger.WithError(err).Error("refund transfer failed")
		}
		return token.Amount
	}

	if err := settlement.Settle(); err != nil {
		logger.WithError(err).Error("refusing to resolve settlement twice")
		return domain.Amount{}
	}
	s.persistResolution(ctx, *settlement)

	for payee, amount := range payout {
		if err := s.wallet.Transfer(ctx, payee, amount); err != nil {
			logger.WithError(err).Errorf("payout transfer to %s failed", payee)
		}
	}
	logger.WithField("payees", len(payout)).Info("disbursed settlement")

	return token.Amount
}

func (s *service) persistResolution(ctx context.Context, settlement domain.Settlement) {
	if err := s.repoManager.Settlements().Update(ctx, settlement); err != nil {
		log.WithError(err).Errorf(
			"failed to persist resolution of settlement %s", settlement.Id,
		)
	}
}

// validatePayout turns the outcome of the custody request into either a
// disbursable payout or the reason it must be refunded. Anything outside the
// bounds rejects: a failed or timed-out request, an unparseable payload, a
// bad entry count, or a sum outside the attached amount.
func validatePayout(
	total domain.Amount, raw []byte, callErr error,
) (domain.Payout, string) {
	if callErr != nil {
		return nil, fmt.Sprintf("custody request did not complete: %s", callErr)
	}
	payout, err := domain.ParsePayout(raw)
	if err != nil {
		return nil, err.Error()
	}
	if err := payout.Validate(total); err != nil {
		return nil, err.Error()
	}
	return payout, ""
}

// reportStuckSettlements surfaces pending settlements that should have been
// resolved long ago, typically after a crash between dispatch and
// resolution. It only reports: resolving automatically could move funds a
// second time when the custody outcome is unknown.
func (s *service) reportStuckSettlements() {
	ctx := context.Background()
	before := time.Now().Add(-s.pendingAlertAfter).Unix()
	stuck, err := s.repoManager.Settlements().GetPendingBefore(ctx, before)
	if err != nil {
		log.WithError(err).Warn("failed to scan for stuck settlements")
		return
	}
	for _, settlement := range stuck {
		log.WithField("settlement_id", settlement.Id).
			WithField("sale_key", settlement.SaleKey).
			WithField("created_at", settlement.CreatedAt).
			Warn("settlement pending past alert threshold, manual resolution needed")
	}
}

func checkGuardDeposit(deposit domain.Amount) errors.Error {
	if !deposit.Equal(guardDeposit) {
		return errors.INVALID_DEPOSIT.New(
			"owner operations require a confirmation deposit of exactly 1 unit",
		).WithMetadata(errors.InvalidDepositMetadata{Deposit: deposit.String()})
	}
	return nil
}
