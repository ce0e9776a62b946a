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

// AdminHandler serves operator endpoints. Routes must sit behind JWTAuth and
// RequireAdmin.
type AdminHandler struct {
	walletSvc    ports.WalletService
	reportingSvc ports.ReportingService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(walletSvc ports.WalletService, reportingSvc ports.ReportingService) *AdminHandler {
	return &AdminHandler{walletSvc: walletSvc, reportingSvc: reportingSvc}
}

// Adjust handles POST /api/v1/admin/users/:user_id/adjust.
func (h *AdminHandler) Adjust(c *gin.Context) {
	operatorID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}
	targetID, err := uuid.Parse(c.Param("user_id"))
	if err != nil {
		response.Error(c, apperror.Validation("user_id must be a UUID"))
		return
	}

	var req dto.AdjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.TrimStrings(&req)
	kind, _ := domain.ParseWalletKind(req.WalletKind)

	wallet, err := h.walletSvc.Adjust(c.Request.Context(), ports.AdjustRequest{
		UserID:     targetID,
		Kind:       kind,
		Amount:     req.Amount,
		Reason:     req.Reason,
		OperatorID: operatorID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.NewWalletResponse(wallet))
}

// Reconcile handles GET /api/v1/admin/users/:user_id/reconcile?kind=.
func (h *AdminHandler) Reconcile(c *gin.Context) {
	targetID, err := uuid.Parse(c.Param("user_id"))
	if err != nil {
		response.Error(c, apperror.Validation("user_id must be a UUID"))
		return
	}
	kind, valid := domain.ParseWalletKind(c.Query("kind"))
	if !valid {
		response.Error(c, apperror.Validation("kind must be MONEY or POINT"))
		return
	}

	result, err := h.reportingSvc.ReconcileWallet(c.Request.Context(), targetID, kind)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, result)
}
