package job

import (
	"context"
	"log/slog"
	"sync"
	"time"

	config "github.com/reelflow/reelflow/configs"
	"github.com/reelflow/reelflow/internal/models"
	"github.com/reelflow/reelflow/internal/repository"
	"github.com/reelflow/reelflow/internal/service"
	"github.com/reelflow/reelflow/pkg/utils"
)

// refreshWindow is how far ahead of expiry tokens get refreshed proactively,
// so the publish cycle rarely needs its inline fallback.
const refreshWindow = 48 * time.Hour

type TokenRefreshJob struct {
	cfg config.Config
	sr  repository.SocialAccountRepository
	ig  service.InstagramPublisher
	now func() time.Time
}

func NewTokenRefreshJob(cfg config.Config, sr repository.SocialAccountRepository, ig service.InstagramPublisher) *TokenRefreshJob {
	return &TokenRefreshJob{
		cfg: cfg,
		sr:  sr,
		ig:  ig,
		now: time.Now,
	}
}

func (c *TokenRefreshJob) RefreshTokens() {
	ctx := context.Background()

	accounts, err := c.sr.ListExpiring(ctx, c.now().Add(refreshWindow))
	if err != nil {
		slog.Info(err.Error())
		return
	}

	var wg sync.WaitGroup

	concurrencyLimit := 10
	semaphore := make(chan struct{}, concurrencyLimit)

	for _, acc := range accounts {
		wg.Add(1)
		semaphore <- struct{}{}

		go func(acc *models.SocialAccount) {
			defer wg.Done()
			defer func() { <-semaphore }()

			c.refreshAccount(ctx, acc)
		}(acc)
	}

	wg.Wait()
}

func (c *TokenRefreshJob) refreshAccount(ctx context.Context, acc *models.SocialAccount) {
	refreshToken, err := utils.Decrypt(acc.RefreshToken, []byte(c.cfg.SecretKey))
	if err != nil {
		slog.Info("unable to decrypt refresh token", "account_id", acc.ID)
		return
	}

	newToken, expiresAt, err := c.ig.RefreshToken(ctx, refreshToken)
	if err == service.ErrTokenInvalid {
		// Not transient: the user has to reconnect the account.
		if derr := c.sr.Deactivate(ctx, acc.ID, "refresh token rejected by platform"); derr != nil {
			slog.Error("unable to deactivate account", "account_id", acc.ID, "error", derr.Error())
		}
		return
	}
	if err != nil {
		// Transient; the next daily run (or the publish cycle's inline
		// fallback) will retry.
		slog.Info("unable to refresh token", "account_id", acc.ID, "error", err.Error())
		return
	}

	encrypted, err := utils.Encrypt([]byte(newToken), []byte(c.cfg.SecretKey))
	if err != nil {
		slog.Info("unable to encrypt refreshed token", "account_id", acc.ID)
		return
	}

	if err := c.sr.SetToken(ctx, acc.ID, encrypted, encrypted, expiresAt); err != nil {
		slog.Error("unable to persist refreshed token", "account_id", acc.ID, "error", err.Error())
	}
}
