package handler

import (
	"klover-backend/internal/adapter/http/dto"
	"klover-backend/internal/adapter/http/middleware"
	"klover-backend/internal/core/domain"
	"klover-backend/internal/core/ports"
	"klover-backend/pkg/apperror"
	"klover-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

// RewardHandler handles ad rewards, chests, roulette and missions.
type RewardHandler struct {
	rewardSvc ports.RewardService
}

// NewRewardHandler creates a new RewardHandler.
func NewRewardHandler(rewardSvc ports.RewardService) *RewardHandler {
	return &RewardHandler{rewardSvc: rewardSvc}
}

// WatchAd handles POST /api/v1/rewards/ad.
func (h *RewardHandler) WatchAd(c *gin.Context) {
	accountID, ok := middleware.AccountID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	result, err := h.rewardSvc.CreditAdReward(c.Request.Context(), accountID)
	if err != nil {
		response.Error(c, err)
		return
	}

	resp := dto.AdRewardResponse{
		XPGranted:   result.XPGranted,
		SpinGranted: result.SpinGranted,
		LeveledUp:   result.LeveledUp,
		NewLevel:    result.NewLevel,
		Account:     dto.FromAccount(result.Account),
	}
	if result.Chest != nil {
		chest := dto.FromChest(*result.Chest)
		resp.Chest = &chest
	}
	response.OK(c, resp)
}

// OpenChest handles POST /api/v1/chests/open.
func (h *RewardHandler) OpenChest(c *gin.Context) {
	accountID, ok := middleware.AccountID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.OpenChestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	outcome, err := h.rewardSvc.OpenChest(c.Request.Context(), accountID, req.ChestID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toRewardResponse(outcome))
}

// SpinRoulette handles POST /api/v1/roulette/spin.
func (h *RewardHandler) SpinRoulette(c *gin.Context) {
	accountID, ok := middleware.AccountID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	outcome, err := h.rewardSvc.SpinRoulette(c.Request.Context(), accountID)
	if err != nil {
		response.Error(c, err)
		return
	}

	resp := dto.SpinResponse{
		Prize:        outcome.Prize.Label,
		Account:      dto.FromAccount(outcome.Account),
		Transactions: dto.FromTransactions(outcome.Transactions),
	}
	if outcome.Amount.IsPositive() {
		resp.Amount = outcome.Amount.String()
	}
	response.OK(c, resp)
}

// ClaimMission handles POST /api/v1/missions/:id/claim.
func (h *RewardHandler) ClaimMission(c *gin.Context) {
	accountID, ok := middleware.AccountID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	missionID := c.Param("id")
	if missionID == "" {
		response.Error(c, apperror.Validation("mission id is required"))
		return
	}

	outcome, err := h.rewardSvc.ClaimMission(c.Request.Context(), accountID, missionID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toRewardResponse(outcome))
}

// PurchaseChest handles POST /api/v1/shop/chests.
func (h *RewardHandler) PurchaseChest(c *gin.Context) {
	accountID, ok := middleware.AccountID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.PurchaseChestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	account, err := h.rewardSvc.PurchaseChest(c.Request.Context(), accountID, domain.ChestRarity(req.Rarity))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.FromAccount(account))
}

func toRewardResponse(outcome *ports.RewardOutcome) dto.RewardResponse {
	resp := dto.RewardResponse{
		Account:      dto.FromAccount(outcome.Account),
		Transactions: dto.FromTransactions(outcome.Transactions),
	}
	if outcome.Chest != nil {
		chest := dto.FromChest(*outcome.Chest)
		resp.Chest = &chest
	}
	return resp
}
