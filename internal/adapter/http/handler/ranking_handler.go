package handler

import (
	"strconv"

	"klover-backend/internal/adapter/http/dto"
	"klover-backend/internal/core/ports"
	"klover-backend/pkg/apperror"
	"klover-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

// RankingHandler handles the public XP leaderboard.
type RankingHandler struct {
	rankingSvc ports.RankingService
}

// NewRankingHandler creates a new RankingHandler.
func NewRankingHandler(rankingSvc ports.RankingService) *RankingHandler {
	return &RankingHandler{rankingSvc: rankingSvc}
}

// Top handles GET /api/v1/ranking.
func (h *RankingHandler) Top(c *gin.Context) {
	n := 10
	if raw := c.Query("n"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 100 {
			response.Error(c, apperror.Validation("n must be between 1 and 100"))
			return
		}
		n = parsed
	}

	entries, err := h.rankingSvc.Top(c.Request.Context(), n)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.RankingResponse{Entries: entries})
}
