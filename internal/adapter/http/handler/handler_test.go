package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"klover-backend/internal/adapter/http/dto"
	"klover-backend/internal/adapter/http/middleware"
	"klover-backend/internal/core/domain"
	"klover-backend/internal/core/ports"
	"klover-backend/internal/core/ports/mocks"
	"klover-backend/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testAccount(id string) *domain.Account {
	a := domain.NewAccount(id, "player_"+id, time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC))
	a.SetBalance(domain.CurrencyBRL, decimal.RequireFromString("12.34"))
	return a
}

func jsonRequest(t *testing.T, method, path string, body interface{}) *http.Request {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(method, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func authedContext(w *httptest.ResponseRecorder, accountID string) *gin.Context {
	c, _ := gin.CreateTestContext(w)
	c.Set(middleware.CtxAccountID, accountID)
	return c
}

// --- Auth Handler ---

func TestLogin_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockAuth := mocks.NewMockAuthService(ctrl)
	h := NewAuthHandler(mockAuth, nil)

	expiry := time.Now().Add(24 * time.Hour)
	mockAuth.EXPECT().LoginWithTelegram(gomock.Any(), "query_id=abc&hash=def", gomock.Nil()).
		Return(&ports.LoginResult{
			Account: testAccount("tg-42"),
			Token:   "jwt-token",
			Expiry:  expiry,
		}, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = jsonRequest(t, http.MethodPost, "/api/v1/auth/telegram", dto.LoginRequest{
		InitData: "query_id=abc&hash=def",
	})

	h.Login(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "jwt-token", data["token"])
	account := data["account"].(map[string]interface{})
	assert.Equal(t, "tg-42", account["id"])
}

func TestLogin_MissingInitData(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h := NewAuthHandler(mocks.NewMockAuthService(ctrl), nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = jsonRequest(t, http.MethodPost, "/api/v1/auth/telegram", map[string]string{})

	h.Login(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLogin_InvalidInitData(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockAuth := mocks.NewMockAuthService(ctrl)
	h := NewAuthHandler(mockAuth, nil)

	mockAuth.EXPECT().LoginWithTelegram(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, apperror.ErrInvalidInitData())

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = jsonRequest(t, http.MethodPost, "/api/v1/auth/telegram", dto.LoginRequest{InitData: "tampered"})

	h.Login(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "AUTH_001")
}

func TestProfile_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockAccountRepository(ctrl)
	h := NewAuthHandler(nil, mockRepo)

	mockRepo.EXPECT().GetByID(gomock.Any(), "tg-42").Return(testAccount("tg-42"), nil)

	w := httptest.NewRecorder()
	c := authedContext(w, "tg-42")
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/accounts/me", nil)

	h.Profile(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"player_tg-42"`)
}

func TestProfile_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockAccountRepository(ctrl)
	h := NewAuthHandler(nil, mockRepo)

	mockRepo.EXPECT().GetByID(gomock.Any(), "ghost").Return(nil, nil)

	w := httptest.NewRecorder()
	c := authedContext(w, "ghost")
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/accounts/me", nil)

	h.Profile(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "ACC_001")
}

// --- Reward Handler ---

func TestWatchAd_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockReward := mocks.NewMockRewardService(ctrl)
	h := NewRewardHandler(mockReward)

	acct := testAccount("tg-42")
	mockReward.EXPECT().CreditAdReward(gomock.Any(), "tg-42").Return(&ports.AdRewardResult{
		Account:     acct,
		Chest:       &domain.Chest{ID: "ch-1", Rarity: domain.RarityRare, AcquiredAt: time.Now()},
		XPGranted:   10,
		SpinGranted: true,
		LeveledUp:   true,
		NewLevel:    2,
	}, nil)

	w := httptest.NewRecorder()
	c := authedContext(w, "tg-42")
	c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/rewards/ad", nil)

	h.WatchAd(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, float64(10), data["xp_granted"])
	assert.Equal(t, true, data["spin_granted"])
	assert.Equal(t, "RARE", data["chest"].(map[string]interface{})["rarity"])
}

func TestWatchAd_DailyLimitReached(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockReward := mocks.NewMockRewardService(ctrl)
	h := NewRewardHandler(mockReward)

	mockReward.EXPECT().CreditAdReward(gomock.Any(), "tg-42").
		Return(nil, apperror.ErrDailyAdLimitReached())

	w := httptest.NewRecorder()
	c := authedContext(w, "tg-42")
	c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/rewards/ad", nil)

	h.WatchAd(c)

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "RWD_008")
}

func TestOpenChest_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockReward := mocks.NewMockRewardService(ctrl)
	h := NewRewardHandler(mockReward)

	tx := domain.Transaction{
		ID:       uuid.New(),
		Kind:     domain.KindChestReward,
		Currency: domain.CurrencyBRL,
		Amount:   decimal.RequireFromString("0.03"),
		Status:   domain.StatusCommitted,
	}
	mockReward.EXPECT().OpenChest(gomock.Any(), "tg-42", "ch-9").Return(&ports.RewardOutcome{
		Account:      testAccount("tg-42"),
		Transactions: []domain.Transaction{tx},
	}, nil)

	w := httptest.NewRecorder()
	c := authedContext(w, "tg-42")
	c.Request = jsonRequest(t, http.MethodPost, "/api/v1/chests/open", dto.OpenChestRequest{ChestID: "ch-9"})

	h.OpenChest(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "CHEST_REWARD")
}

func TestOpenChest_UnsafeID(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h := NewRewardHandler(mocks.NewMockRewardService(ctrl))

	w := httptest.NewRecorder()
	c := authedContext(w, "tg-42")
	c.Request = jsonRequest(t, http.MethodPost, "/api/v1/chests/open", map[string]string{"chest_id": "ch 9; drop"})

	h.OpenChest(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSpinRoulette_NoSpinsLeft(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockReward := mocks.NewMockRewardService(ctrl)
	h := NewRewardHandler(mockReward)

	mockReward.EXPECT().SpinRoulette(gomock.Any(), "tg-42").Return(nil, apperror.ErrNoSpinsLeft())

	w := httptest.NewRecorder()
	c := authedContext(w, "tg-42")
	c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/roulette/spin", nil)

	h.SpinRoulette(c)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "RWD_004")
}

func TestSpinRoulette_CashPrize(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockReward := mocks.NewMockRewardService(ctrl)
	h := NewRewardHandler(mockReward)

	mockReward.EXPECT().SpinRoulette(gomock.Any(), "tg-42").Return(&ports.SpinOutcome{
		Account: testAccount("tg-42"),
		Prize:   domain.RewardEntry{ID: "cash_small", Label: "R$ 0.25"},
		Amount:  decimal.RequireFromString("0.25"),
	}, nil)

	w := httptest.NewRecorder()
	c := authedContext(w, "tg-42")
	c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/roulette/spin", nil)

	h.SpinRoulette(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "R$ 0.25", data["prize"])
	assert.Equal(t, "0.25", data["amount"])
}

func TestClaimMission_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockReward := mocks.NewMockRewardService(ctrl)
	h := NewRewardHandler(mockReward)

	mockReward.EXPECT().ClaimMission(gomock.Any(), "tg-42", "daily_watch_5").Return(&ports.RewardOutcome{
		Account: testAccount("tg-42"),
	}, nil)

	w := httptest.NewRecorder()
	c := authedContext(w, "tg-42")
	c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/missions/daily_watch_5/claim", nil)
	c.Params = gin.Params{{Key: "id", Value: "daily_watch_5"}}

	h.ClaimMission(c)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestClaimMission_AlreadyClaimed(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockReward := mocks.NewMockRewardService(ctrl)
	h := NewRewardHandler(mockReward)

	mockReward.EXPECT().ClaimMission(gomock.Any(), "tg-42", "daily_watch_5").
		Return(nil, apperror.ErrMissionAlreadyClaimed())

	w := httptest.NewRecorder()
	c := authedContext(w, "tg-42")
	c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/missions/daily_watch_5/claim", nil)
	c.Params = gin.Params{{Key: "id", Value: "daily_watch_5"}}

	h.ClaimMission(c)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "RWD_007")
}

func TestPurchaseChest_InvalidRarity(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h := NewRewardHandler(mocks.NewMockRewardService(ctrl))

	w := httptest.NewRecorder()
	c := authedContext(w, "tg-42")
	c.Request = jsonRequest(t, http.MethodPost, "/api/v1/shop/chests", map[string]string{"rarity": "MYTHIC"})

	h.PurchaseChest(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// --- Wallet Handler ---

func TestWithdraw_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockWithdrawal := mocks.NewMockWithdrawalService(ctrl)
	h := NewWalletHandler(mockWithdrawal, nil, nil)

	txID := uuid.New()
	mockWithdrawal.EXPECT().Withdraw(gomock.Any(), ports.WithdrawRequest{
		AccountID:   "tg-42",
		Method:      domain.MethodPIX,
		Amount:      decimal.RequireFromString("10.00"),
		Destination: "user@bank.br",
	}).Return(&domain.Transaction{
		ID:       txID,
		Kind:     domain.KindWithdrawal,
		Currency: domain.CurrencyBRL,
		Amount:   decimal.RequireFromString("-10.00"),
		Status:   domain.StatusCommitted,
		Method:   domain.MethodPIX,
	}, nil)

	w := httptest.NewRecorder()
	c := authedContext(w, "tg-42")
	c.Request = jsonRequest(t, http.MethodPost, "/api/v1/wallet/withdrawals", dto.WithdrawRequest{
		Method:      "PIX",
		Amount:      "10.00",
		Destination: "user@bank.br",
	})

	h.Withdraw(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), txID.String())
}

func TestWithdraw_BelowMinimum(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockWithdrawal := mocks.NewMockWithdrawalService(ctrl)
	h := NewWalletHandler(mockWithdrawal, nil, nil)

	mockWithdrawal.EXPECT().Withdraw(gomock.Any(), gomock.Any()).
		Return(nil, apperror.ErrBelowMinimumWithdrawal("PIX", "5.00"))

	w := httptest.NewRecorder()
	c := authedContext(w, "tg-42")
	c.Request = jsonRequest(t, http.MethodPost, "/api/v1/wallet/withdrawals", dto.WithdrawRequest{
		Method:      "PIX",
		Amount:      "1.00",
		Destination: "user@bank.br",
	})

	h.Withdraw(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "WDR_001")
}

func TestWithdraw_RejectsBadAmount(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h := NewWalletHandler(mocks.NewMockWithdrawalService(ctrl), nil, nil)

	for _, amount := range []string{"-5", "0", "abc"} {
		w := httptest.NewRecorder()
		c := authedContext(w, "tg-42")
		c.Request = jsonRequest(t, http.MethodPost, "/api/v1/wallet/withdrawals", map[string]string{
			"method":      "PIX",
			"amount":      amount,
			"destination": "user@bank.br",
		})

		h.Withdraw(c)
		assert.Equal(t, http.StatusBadRequest, w.Code, "amount %q must be rejected", amount)
	}
}

func TestLedger_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockReward := mocks.NewMockRewardService(ctrl)
	h := NewWalletHandler(nil, mockReward, nil)

	mockReward.EXPECT().GetLedger(gomock.Any(), "tg-42", 50).Return([]domain.Transaction{
		{ID: uuid.New(), Kind: domain.KindChestReward, Currency: domain.CurrencyBRL, Amount: decimal.RequireFromString("0.10"), Status: domain.StatusCommitted},
	}, nil)

	w := httptest.NewRecorder()
	c := authedContext(w, "tg-42")
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/wallet/ledger", nil)

	h.Ledger(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "CHEST_REWARD")
}

func TestLedger_InvalidLimit(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h := NewWalletHandler(nil, mocks.NewMockRewardService(ctrl), nil)

	w := httptest.NewRecorder()
	c := authedContext(w, "tg-42")
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/wallet/ledger?limit=9999", nil)

	h.Ledger(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSummary_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockReporting := mocks.NewMockReportingService(ctrl)
	h := NewWalletHandler(nil, nil, mockReporting)

	mockReporting.EXPECT().EarningsSummary(gomock.Any(), "tg-42", "week").
		Return(&ports.EarningsSummary{
			Period: "week",
			Rows: []ports.KindSummary{
				{Kind: domain.KindChestReward, Currency: domain.CurrencyBRL, Count: 3, Total: decimal.RequireFromString("0.30")},
			},
		}, nil)

	w := httptest.NewRecorder()
	c := authedContext(w, "tg-42")
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/wallet/summary?period=week", nil)

	h.Summary(c)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data dto.SummaryResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "week", resp.Data.Period)
	require.Len(t, resp.Data.Rows, 1)
	assert.Equal(t, "CHEST_REWARD", resp.Data.Rows[0].Kind)
	assert.Equal(t, "0.30", resp.Data.Rows[0].Total)
}

func TestSummary_InvalidPeriod(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockReporting := mocks.NewMockReportingService(ctrl)
	h := NewWalletHandler(nil, nil, mockReporting)

	mockReporting.EXPECT().EarningsSummary(gomock.Any(), "tg-42", "year").
		Return(nil, apperror.Validation("invalid period: must be day, week, month, or all"))

	w := httptest.NewRecorder()
	c := authedContext(w, "tg-42")
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/wallet/summary?period=year", nil)

	h.Summary(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// --- Ranking Handler ---

func TestRankingTop_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRanking := mocks.NewMockRankingService(ctrl)
	h := NewRankingHandler(mockRanking)

	mockRanking.EXPECT().Top(gomock.Any(), 10).Return([]ports.RankEntry{
		{Rank: 1, UserID: "tg-1", Username: "top_player", Level: 9, XP: 4200},
	}, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/ranking", nil)

	h.Top(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "top_player")
}

func TestRankingTop_InvalidN(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h := NewRankingHandler(mocks.NewMockRankingService(ctrl))

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/ranking?n=0", nil)

	h.Top(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
