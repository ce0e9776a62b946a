package handler

import (
	"wallet-ledger/internal/adapter/http/dto"
	"wallet-ledger/internal/adapter/http/middleware"
	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"
	"wallet-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// HeaderIdempotencyKey carries the payment idempotency key. It takes
// precedence over the body field.
const HeaderIdempotencyKey = "Idempotency-Key"

// PaymentHandler handles payment-related endpoints.
type PaymentHandler struct {
	walletSvc ports.WalletService
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(walletSvc ports.WalletService) *PaymentHandler {
	return &PaymentHandler{walletSvc: walletSvc}
}

// Pay handles POST /api/v1/payments.
func (h *PaymentHandler) Pay(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.PaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.TrimStrings(&req)

	raw := req.IdempotencyKey
	if header := c.GetHeader(HeaderIdempotencyKey); header != "" {
		raw = header
	}
	key, valid := domain.NormalizeIdempotencyKey(raw)
	if !valid || (key != nil && !dto.ValidIdempotencyKey(*key)) {
		response.Error(c, apperror.Validation("invalid idempotency key"))
		return
	}

	merchantID, err := uuid.Parse(req.MerchantID)
	if err != nil {
		response.Error(c, apperror.Validation("merchant_id must be a UUID"))
		return
	}

	result, err := h.walletSvc.Pay(c.Request.Context(), ports.PaymentRequest{
		UserID:         userID,
		MerchantID:     merchantID,
		Amount:         req.Amount,
		Currency:       req.Currency,
		IdempotencyKey: key,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.NewTransactionResponse(result))
}
