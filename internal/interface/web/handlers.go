package web

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/openmarket-os/marketd/internal/core/application"
	"github.com/openmarket-os/marketd/internal/core/domain"
	"github.com/openmarket-os/marketd/pkg/errors"
)

type handler struct {
	svc application.Service
}

func newHandler(svc application.Service) *handler {
	return &handler{svc}
}

type saleResponse struct {
	OwnerId         string `json:"owner_id"`
	ApprovalId      uint64 `json:"approval_id"`
	AssetContractId string `json:"asset_contract_id"`
	AssetId         string `json:"asset_id"`
	Price           string `json:"price"`
	CreatedAt       int64  `json:"created_at"`
}

type settlementResponse struct {
	Id         string `json:"id"`
	SaleKey    string `json:"sale_key"`
	Buyer      string `json:"buyer"`
	Seller     string `json:"seller"`
	Amount     string `json:"amount"`
	Status     string `json:"status"`
	FailReason string `json:"fail_reason,omitempty"`
	CreatedAt  int64  `json:"created_at"`
	ResolvedAt int64  `json:"resolved_at,omitempty"`
}

func (h *handler) createSale(c *gin.Context) {
	var req struct {
		OwnerId         string `json:"owner_id"`
		ApprovalId      uint64 `json:"approval_id"`
		AssetContractId string `json:"asset_contract_id"`
		AssetId         string `json:"asset_id"`
		Price           string `json:"price"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}
	price, err := parseAmount(req.Price)
	if err != nil {
		writeError(c, err)
		return
	}

	if err := h.svc.CreateSale(
		c.Request.Context(),
		req.OwnerId, req.ApprovalId, req.AssetContractId, req.AssetId, price,
	); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusCreated)
}

func (h *handler) getSale(c *gin.Context) {
	sale, err := h.svc.GetSale(c.Request.Context(), c.Param("contract"), c.Param("asset"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toSaleResponse(*sale))
}

func (h *handler) delistSale(c *gin.Context) {
	var req struct {
		Caller  string `json:"caller"`
		Deposit string `json:"deposit"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}
	deposit, err := parseAmount(req.Deposit)
	if err != nil {
		writeError(c, err)
		return
	}

	if err := h.svc.Delist(
		c.Request.Context(), req.Caller, c.Param("contract"), c.Param("asset"), deposit,
	); err != nil {
		writeError(c, err)
		return
	}
	// the guard deposit is refundable by definition
	c.JSON(http.StatusOK, gin.H{"refunded_deposit": deposit.String()})
}

func (h *handler) updatePrice(c *gin.Context) {
	var req struct {
		Caller  string `json:"caller"`
		Deposit string `json:"deposit"`
		Price   string `json:"price"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}
	deposit, err := parseAmount(req.Deposit)
	if err != nil {
		writeError(c, err)
		return
	}
	price, err := parseAmount(req.Price)
	if err != nil {
		writeError(c, err)
		return
	}

	if err := h.svc.UpdatePrice(
		c.Request.Context(), req.Caller, c.Param("contract"), c.Param("asset"),
		deposit, price,
	); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"refunded_deposit": deposit.String()})
}

func (h *handler) offer(c *gin.Context) {
	var req struct {
		Buyer    string `json:"buyer"`
		Attached string `json:"attached"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}
	attached, err := parseAmount(req.Attached)
	if err != nil {
		writeError(c, err)
		return
	}

	settlementId, err := h.svc.Offer(
		c.Request.Context(), req.Buyer, c.Param("contract"), c.Param("asset"), attached,
	)
	if err != nil {
		writeError(c, err)
		return
	}
	// the settlement resolves asynchronously once the custody service answers
	c.JSON(http.StatusAccepted, gin.H{"settlement_id": settlementId})
}

func (h *handler) getSettlement(c *gin.Context) {
	settlement, err := h.svc.GetSettlement(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toSettlementResponse(*settlement))
}

func parseAmount(s string) (domain.Amount, errors.Error) {
	amount, err := domain.AmountFromString(s)
	if err != nil {
		return domain.Amount{}, errors.INVALID_AMOUNT.New("%s", err).
			WithMetadata(errors.InvalidAmountMetadata{Amount: s})
	}
	return amount, nil
}

func writeError(c *gin.Context, err errors.Error) {
	c.JSON(err.HTTPStatus(), gin.H{
		"code":     err.CodeName(),
		"error":    err.Error(),
		"metadata": err.Metadata(),
	})
}

func toSaleResponse(sale domain.Sale) saleResponse {
	return saleResponse{
		OwnerId:         sale.OwnerId,
		ApprovalId:      sale.ApprovalId,
		AssetContractId: sale.AssetContractId,
		AssetId:         sale.AssetId,
		Price:           sale.Price.String(),
		CreatedAt:       sale.CreatedAt,
	}
}

func toSettlementResponse(settlement domain.Settlement) settlementResponse {
	return settlementResponse{
		Id:         settlement.Id,
		SaleKey:    settlement.SaleKey,
		Buyer:      settlement.Buyer,
		Seller:     settlement.Seller,
		Amount:     settlement.Amount.String(),
		Status:     settlement.Status.String(),
		FailReason: settlement.FailReason,
		CreatedAt:  settlement.CreatedAt,
		ResolvedAt: settlement.ResolvedAt,
	}
}
