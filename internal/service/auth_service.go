package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"klover-backend/internal/core/domain"
	"klover-backend/internal/core/ports"
	"klover-backend/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// telegramUser is the user payload embedded in Mini App init data.
type telegramUser struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
	PhotoURL  string `json:"photo_url"`
}

// AuthServiceImpl implements ports.AuthService. Sessions are established by
// verifying Telegram Mini App init data (HMAC-SHA256 over the sorted fields,
// keyed by the bot token) and issuing a JWT.
type AuthServiceImpl struct {
	accountRepo ports.AccountRepository
	tokenSvc    ports.TokenService
	leaderboard ports.Leaderboard
	botToken    string
	maxAge      time.Duration
	log         zerolog.Logger
}

// NewAuthService creates a new AuthServiceImpl. maxAge bounds how old the
// init data's auth_date may be.
func NewAuthService(
	accountRepo ports.AccountRepository,
	tokenSvc ports.TokenService,
	leaderboard ports.Leaderboard,
	botToken string,
	maxAge time.Duration,
	log zerolog.Logger,
) *AuthServiceImpl {
	return &AuthServiceImpl{
		accountRepo: accountRepo,
		tokenSvc:    tokenSvc,
		leaderboard: leaderboard,
		botToken:    botToken,
		maxAge:      maxAge,
		log:         log,
	}
}

// LoginWithTelegram verifies the init data, creates the account on first
// login (one starter COMMON chest, optional referral back-reference) and
// returns a session token. Banned accounts cannot log in.
func (s *AuthServiceImpl) LoginWithTelegram(ctx context.Context, initData string, referralCode *string) (*ports.LoginResult, error) {
	tgUser, err := s.verifyInitData(initData)
	if err != nil {
		s.log.Warn().Err(err).Msg("init data verification failed")
		return nil, apperror.ErrInvalidInitData()
	}

	accountID := strconv.FormatInt(tgUser.ID, 10)
	acct, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get account: %w", err))
	}

	if acct == nil {
		acct, err = s.bootstrapAccount(ctx, accountID, tgUser, referralCode)
		if err != nil {
			return nil, err
		}
	}
	if acct.Status == domain.AccountStatusBanned {
		return nil, apperror.ErrAccountBanned()
	}

	token, expiry, err := s.tokenSvc.Generate(acct.ID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("generate token: %w", err))
	}

	s.log.Info().
		Str("account_id", acct.ID).
		Str("username", acct.Username).
		Msg("account logged in")

	return &ports.LoginResult{Account: acct, Token: token, Expiry: expiry}, nil
}

// bootstrapAccount creates a fresh account with its starter chest. The
// referral code is honored only when it resolves to an existing account that
// is not the new account itself.
func (s *AuthServiceImpl) bootstrapAccount(ctx context.Context, accountID string, tgUser *telegramUser, referralCode *string) (*domain.Account, error) {
	now := time.Now().UTC()

	username := tgUser.Username
	if username == "" {
		username = strings.TrimSpace(tgUser.FirstName + " " + tgUser.LastName)
	}

	acct := domain.NewAccount(accountID, username, now)
	acct.PhotoURL = tgUser.PhotoURL
	acct.AddChest(domain.Chest{
		ID:         uuid.NewString(),
		Rarity:     domain.RarityCommon,
		AcquiredAt: now,
	})

	if referralCode != nil && *referralCode != "" && *referralCode != accountID {
		referrer, err := s.accountRepo.GetByID(ctx, *referralCode)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("resolve referrer: %w", err))
		}
		if referrer != nil {
			ref := referrer.ID
			acct.ReferredBy = &ref
		} else {
			s.log.Warn().
				Str("account_id", accountID).
				Str("referral_code", *referralCode).
				Msg("referral code does not resolve, ignoring")
		}
	}

	if err := s.accountRepo.Create(ctx, acct); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create account: %w", err))
	}
	if err := s.leaderboard.SetScore(ctx, acct.ID, 0); err != nil {
		s.log.Warn().Err(err).Str("account_id", acct.ID).Msg("leaderboard seed failed")
	}

	s.log.Info().
		Str("account_id", acct.ID).
		Bool("referred", acct.ReferredBy != nil).
		Msg("account created")
	return acct, nil
}

// verifyInitData checks the init data signature and freshness per the
// Telegram Mini App scheme: the data-check-string is every field except hash,
// sorted, joined with newlines; the key is HMAC-SHA256("WebAppData", bot
// token).
func (s *AuthServiceImpl) verifyInitData(initData string) (*telegramUser, error) {
	values, err := url.ParseQuery(initData)
	if err != nil {
		return nil, fmt.Errorf("parse init data: %w", err)
	}

	gotHash := values.Get("hash")
	if gotHash == "" {
		return nil, fmt.Errorf("missing hash field")
	}

	pairs := make([]string, 0, len(values))
	for key := range values {
		if key == "hash" {
			continue
		}
		pairs = append(pairs, key+"="+values.Get(key))
	}
	sort.Strings(pairs)
	checkString := strings.Join(pairs, "\n")

	secretMac := hmac.New(sha256.New, []byte("WebAppData"))
	secretMac.Write([]byte(s.botToken))
	secret := secretMac.Sum(nil)

	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(checkString))
	wantHash := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(wantHash), []byte(gotHash)) {
		return nil, fmt.Errorf("hash mismatch")
	}

	if s.maxAge > 0 {
		authDate, err := strconv.ParseInt(values.Get("auth_date"), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid auth_date: %w", err)
		}
		if time.Since(time.Unix(authDate, 0)) > s.maxAge {
			return nil, fmt.Errorf("init data expired")
		}
	}

	var tgUser telegramUser
	if err := json.Unmarshal([]byte(values.Get("user")), &tgUser); err != nil {
		return nil, fmt.Errorf("parse user payload: %w", err)
	}
	if tgUser.ID == 0 {
		return nil, fmt.Errorf("missing user id")
	}
	return &tgUser, nil
}
