package handler

import (
	"wallet-ledger/internal/adapter/http/dto"
	"wallet-ledger/internal/adapter/http/middleware"
	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"
	"wallet-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// WalletHandler handles wallet-related endpoints.
type WalletHandler struct {
	walletSvc    ports.WalletService
	reportingSvc ports.ReportingService
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(walletSvc ports.WalletService, reportingSvc ports.ReportingService) *WalletHandler {
	return &WalletHandler{
		walletSvc:    walletSvc,
		reportingSvc: reportingSvc,
	}
}

// List handles GET /api/v1/wallets. With ?kind= it returns that single
// wallet, provisioning it on first access.
func (h *WalletHandler) List(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	if raw, set := c.GetQuery("kind"); set {
		kind, valid := domain.ParseWalletKind(raw)
		if !valid {
			response.Error(c, apperror.Validation("kind must be MONEY or POINT"))
			return
		}
		wallet, err := h.walletSvc.GetWallet(c.Request.Context(), userID, kind)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.OK(c, dto.NewWalletResponse(wallet))
		return
	}

	wallets, err := h.reportingSvc.ListWallets(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.WalletResponse, 0, len(wallets))
	for i := range wallets {
		items = append(items, dto.NewWalletResponse(&wallets[i]))
	}
	response.OK(c, items)
}

// Charge handles POST /api/v1/wallets/charge.
func (h *WalletHandler) Charge(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.ChargeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.TrimStrings(&req)
	kind, _ := domain.ParseWalletKind(req.WalletKind)

	wallet, err := h.walletSvc.Charge(c.Request.Context(), ports.ChargeRequest{
		UserID: userID,
		Kind:   kind,
		Amount: req.Amount,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.NewWalletResponse(wallet))
}
