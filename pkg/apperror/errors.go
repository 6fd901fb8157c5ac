package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Reward & Ledger (RWD) ----

func ErrInsufficientFunds(currency string) *AppError {
	return New("RWD_001", fmt.Sprintf("Insufficient %s balance", currency), http.StatusPaymentRequired)
}

func ErrInvalidAmount() *AppError {
	return New("RWD_002", "Invalid amount", http.StatusBadRequest)
}

func ErrChestNotFound() *AppError {
	return New("RWD_003", "Chest not found in inventory", http.StatusNotFound)
}

func ErrNoSpinsLeft() *AppError {
	return New("RWD_004", "No roulette spins left", http.StatusUnprocessableEntity)
}

func ErrMissionNotFound() *AppError {
	return New("RWD_005", "Unknown mission", http.StatusNotFound)
}

func ErrMissionNotComplete() *AppError {
	return New("RWD_006", "Mission goal not reached", http.StatusUnprocessableEntity)
}

func ErrMissionAlreadyClaimed() *AppError {
	return New("RWD_007", "Mission reward already claimed", http.StatusConflict)
}

func ErrDailyAdLimitReached() *AppError {
	return New("RWD_008", "Daily ad reward limit reached", http.StatusTooManyRequests)
}

func ErrItemNotFound() *AppError {
	return New("RWD_009", "Shop item not found", http.StatusNotFound)
}

// ---- Withdrawal (WDR) ----

func ErrBelowMinimumWithdrawal(method string, minimum string) *AppError {
	return New("WDR_001", fmt.Sprintf("Minimum %s withdrawal is %s", method, minimum), http.StatusBadRequest)
}

func ErrUnsupportedMethod(method string) *AppError {
	return New("WDR_002", fmt.Sprintf("Unsupported withdrawal method: %s", method), http.StatusBadRequest)
}

// ErrPayoutFailed marks a gateway-side failure. The reservation has already
// been refunded when this reaches the caller; retrying starts a fresh request.
func ErrPayoutFailed(err error) *AppError {
	return Wrap("WDR_003", "Payout provider rejected the withdrawal", http.StatusBadGateway, err)
}

// ---- Account resources (ACC) ----

func ErrAccountNotFound() *AppError {
	return New("ACC_001", "Account not found", http.StatusNotFound)
}

func ErrStoreConflict() *AppError {
	return New("ACC_002", "Concurrent account update, retry the request", http.StatusConflict)
}

// ---- Authentication (AUTH) ----

func ErrInvalidInitData() *AppError {
	return New("AUTH_001", "Invalid Telegram init data", http.StatusUnauthorized)
}

func ErrInvalidToken() *AppError {
	return New("AUTH_002", "Invalid or expired token", http.StatusUnauthorized)
}

func ErrAccountBanned() *AppError {
	return New("AUTH_003", "Account is banned", http.StatusForbidden)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

// Validation returns a RWD_002-style validation error with a custom message.
func Validation(message string) *AppError {
	return New("RWD_002", message, http.StatusBadRequest)
}
