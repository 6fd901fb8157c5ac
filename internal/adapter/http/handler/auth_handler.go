package handler

import (
	"net/http"

	"klover-backend/internal/adapter/http/dto"
	"klover-backend/internal/adapter/http/middleware"
	"klover-backend/internal/core/ports"
	"klover-backend/pkg/apperror"
	"klover-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

// AuthHandler handles login and account profile endpoints.
type AuthHandler struct {
	authSvc     ports.AuthService
	accountRepo ports.AccountRepository
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authSvc ports.AuthService, accountRepo ports.AccountRepository) *AuthHandler {
	return &AuthHandler{authSvc: authSvc, accountRepo: accountRepo}
}

// Login handles POST /api/v1/auth/telegram.
// The init data is passed through untouched: escaping it would break the
// signature check.
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	result, err := h.authSvc.LoginWithTelegram(c.Request.Context(), req.InitData, req.ReferralCode)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.LoginResponse{
		Token:   result.Token,
		Expiry:  result.Expiry.Unix(),
		Account: dto.FromAccount(result.Account),
	})
}

// Profile handles GET /api/v1/accounts/me.
func (h *AuthHandler) Profile(c *gin.Context) {
	accountID, ok := middleware.AccountID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	account, err := h.accountRepo.GetByID(c.Request.Context(), accountID)
	if err != nil {
		response.Error(c, err)
		return
	}
	if account == nil {
		response.Error(c, apperror.ErrAccountNotFound())
		return
	}

	response.OK(c, dto.FromAccount(account))
}

// HealthCheck handles GET /health — deep health check verifying all dependencies.
func HealthCheck(checkers ...ports.HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		type depStatus struct {
			Status string `json:"status"`
			Error  string `json:"error,omitempty"`
		}

		deps := make(map[string]depStatus)
		allHealthy := true

		for _, checker := range checkers {
			if err := checker.Ping(c.Request.Context()); err != nil {
				deps[checker.Name()] = depStatus{Status: "unhealthy", Error: err.Error()}
				allHealthy = false
			} else {
				deps[checker.Name()] = depStatus{Status: "healthy"}
			}
		}

		status := "healthy"
		httpCode := http.StatusOK
		if !allHealthy {
			status = "degraded"
			httpCode = http.StatusServiceUnavailable
		}

		c.JSON(httpCode, gin.H{
			"status":       status,
			"dependencies": deps,
		})
	}
}
