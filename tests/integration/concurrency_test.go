package integration

import (
	"context"
	"net/http"
	"sync"
	"testing"

	"klover-backend/internal/core/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fire runs fn n times in parallel and returns the observed status codes.
func fire(t *testing.T, n int, fn func() *http.Response) map[int]int {
	t.Helper()

	var wg sync.WaitGroup
	var mu sync.Mutex
	codes := make(map[int]int)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp := fn()
			resp.Body.Close()
			mu.Lock()
			codes[resp.StatusCode]++
			mu.Unlock()
		}()
	}
	wg.Wait()
	return codes
}

func TestConcurrentWithdrawals_OnlyOneSucceeds(t *testing.T) {
	app := newTestApp(t)
	token := app.login(t, 20001, "racer", "")
	app.seedBalance(t, "20001", domain.CurrencyBRL, "10.00")

	codes := fire(t, 5, func() *http.Response {
		return app.postJSON(t, "/api/v1/wallet/withdrawals", token, map[string]string{
			"method":      "PIX",
			"amount":      "10.00",
			"destination": "racer@bank.br",
		})
	})

	// the balance covers exactly one withdrawal
	assert.Equal(t, 1, codes[http.StatusCreated], "status codes: %v", codes)
	assert.Equal(t, 4, codes[http.StatusPaymentRequired], "status codes: %v", codes)
	assert.True(t, app.balance(t, "20001", domain.CurrencyBRL).IsZero())
	assert.Equal(t, int64(1), app.gateway.calls.Load())
}

func TestConcurrentChestOpens_CreditOnce(t *testing.T) {
	app := newTestApp(t)
	token := app.login(t, 20002, "greedy", "")

	resp := app.getJSON(t, "/api/v1/accounts/me", token)
	me := decodeData(t, resp)
	chestID := me["inventory"].([]interface{})[0].(map[string]interface{})["id"].(string)

	codes := fire(t, 8, func() *http.Response {
		return app.postJSON(t, "/api/v1/chests/open", token, map[string]string{"chest_id": chestID})
	})

	assert.Equal(t, 1, codes[http.StatusOK], "status codes: %v", codes)
	assert.Equal(t, 7, codes[http.StatusNotFound], "status codes: %v", codes)
	assert.True(t, app.balance(t, "20002", domain.CurrencyBRL).Equal(decimal.RequireFromString("0.10")))
}

func TestConcurrentAdWatches_RespectDailyCap(t *testing.T) {
	app := newTestApp(t)
	token := app.login(t, 20003, "binger", "")

	codes := fire(t, 10, func() *http.Response {
		return app.postJSON(t, "/api/v1/rewards/ad", token, nil)
	})

	// the cap is 3 per day, counted atomically in Redis
	assert.Equal(t, 3, codes[http.StatusOK], "status codes: %v", codes)
	assert.Equal(t, 7, codes[http.StatusTooManyRequests], "status codes: %v", codes)

	app.accounts.mu.RLock()
	xp := app.accounts.accounts["20003"].XP
	app.accounts.mu.RUnlock()
	assert.Equal(t, int64(30), xp)
}

func TestConcurrentMissionClaims_SingleReward(t *testing.T) {
	app := newTestApp(t)
	token := app.login(t, 20004, "claimer", "")

	for i := 0; i < 2; i++ {
		resp := app.postJSON(t, "/api/v1/rewards/ad", token, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close()
	}

	codes := fire(t, 6, func() *http.Response {
		return app.postJSON(t, "/api/v1/missions/weekly_cash/claim", token, nil)
	})

	assert.Equal(t, 1, codes[http.StatusOK], "status codes: %v", codes)
	assert.Equal(t, 5, codes[http.StatusConflict], "status codes: %v", codes)

	// the 0.50 BRL reward landed exactly once
	assert.True(t, app.balance(t, "20004", domain.CurrencyBRL).Equal(decimal.RequireFromString("0.50")))
}

// TestLedgerConservation drives a mixed workload and then checks that the
// committed ledger sum reproduces the balance exactly.
func TestLedgerConservation(t *testing.T) {
	app := newTestApp(t)
	token := app.login(t, 20005, "auditor", "")

	// three ad watches: 3 chests, 3 spins
	for i := 0; i < 3; i++ {
		resp := app.postJSON(t, "/api/v1/rewards/ad", token, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close()
	}

	// open everything in the inventory, starter chest included
	resp := app.getJSON(t, "/api/v1/accounts/me", token)
	me := decodeData(t, resp)
	for _, raw := range me["inventory"].([]interface{}) {
		chestID := raw.(map[string]interface{})["id"].(string)
		resp := app.postJSON(t, "/api/v1/chests/open", token, map[string]string{"chest_id": chestID})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close()
	}

	// spend the spins
	for i := 0; i < 3; i++ {
		resp := app.postJSON(t, "/api/v1/roulette/spin", token, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close()
	}

	// 4 chests at 0.10 plus 3 spins at 0.25
	want := decimal.RequireFromString("1.15")
	balance := app.balance(t, "20005", domain.CurrencyBRL)
	assert.True(t, balance.Equal(want), "balance %s, want %s", balance, want)

	sum, err := app.txs.SumCommittedByCurrency(context.Background(), "20005", domain.CurrencyBRL)
	require.NoError(t, err)
	assert.True(t, sum.Equal(balance), "ledger sum %s, balance %s", sum, balance)

	// the summary endpoint reports the same totals, grouped by kind
	resp = app.getJSON(t, "/api/v1/wallet/summary", token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data := decodeData(t, resp)
	assert.Equal(t, "all", data["period"])

	total := decimal.Zero
	for _, raw := range data["rows"].([]interface{}) {
		row := raw.(map[string]interface{})
		total = total.Add(decimal.RequireFromString(row["total"].(string)))
	}
	assert.True(t, total.Equal(balance), "summary total %s, balance %s", total, balance)
}
