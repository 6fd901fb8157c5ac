package handler

import (
	"strconv"

	"klover-backend/internal/adapter/http/dto"
	"klover-backend/internal/adapter/http/middleware"
	"klover-backend/internal/core/domain"
	"klover-backend/internal/core/ports"
	"klover-backend/pkg/apperror"
	"klover-backend/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

const defaultLedgerLimit = 50

// WalletHandler handles withdrawals, ledger queries and summaries.
type WalletHandler struct {
	withdrawalSvc ports.WithdrawalService
	rewardSvc     ports.RewardService
	reportingSvc  ports.ReportingService
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(withdrawalSvc ports.WithdrawalService, rewardSvc ports.RewardService, reportingSvc ports.ReportingService) *WalletHandler {
	return &WalletHandler{withdrawalSvc: withdrawalSvc, rewardSvc: rewardSvc, reportingSvc: reportingSvc}
}

// Withdraw handles POST /api/v1/wallet/withdrawals.
func (h *WalletHandler) Withdraw(c *gin.Context) {
	accountID, ok := middleware.AccountID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.WithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		response.Error(c, apperror.ErrInvalidAmount())
		return
	}

	tx, err := h.withdrawalSvc.Withdraw(c.Request.Context(), ports.WithdrawRequest{
		AccountID:   accountID,
		Method:      domain.WithdrawalMethod(req.Method),
		Amount:      amount,
		Destination: req.Destination,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.FromTransaction(*tx))
}

// Ledger handles GET /api/v1/wallet/ledger.
func (h *WalletHandler) Ledger(c *gin.Context) {
	accountID, ok := middleware.AccountID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	limit := defaultLedgerLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 200 {
			response.Error(c, apperror.Validation("limit must be between 1 and 200"))
			return
		}
		limit = n
	}

	txs, err := h.rewardSvc.GetLedger(c.Request.Context(), accountID, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.LedgerResponse{Items: dto.FromTransactions(txs)})
}

// Summary handles GET /api/v1/wallet/summary.
func (h *WalletHandler) Summary(c *gin.Context) {
	accountID, ok := middleware.AccountID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	summary, err := h.reportingSvc.EarningsSummary(c.Request.Context(), accountID, c.Query("period"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.FromSummary(summary))
}
