package job

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	config "github.com/reelflow/reelflow/configs"
	"github.com/reelflow/reelflow/internal/models"
	"github.com/reelflow/reelflow/internal/repository"
	"github.com/reelflow/reelflow/internal/service"
	"github.com/reelflow/reelflow/pkg/utils"
)

const (
	// MaxPublishAttempts is the retry ceiling; a post moves to failed once it
	// has been attempted this many times.
	MaxPublishAttempts = 3

	// StuckTimeout is how long a post may sit in an in-flight status before
	// the recovery step assumes a previous cycle crashed mid-publish. Long
	// enough to cover a slow Instagram-side processing pass.
	StuckTimeout = 15 * time.Minute

	presignExpiry = time.Hour
)

// ArtifactStore resolves a stored video artifact to a URL Instagram can
// download from.
type ArtifactStore interface {
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// PublishCycleRunner executes one publish cycle per tick: recover posts a
// crashed cycle abandoned, find due posts, publish them one at a time.
// Attempts are deliberately sequential so outbound Graph API calls never
// burst, and a crash leaves at most one post in an ambiguous state.
type PublishCycleRunner struct {
	cfg config.Config
	pr  repository.QueuedPostRepository
	ar  repository.SocialAccountRepository
	vr  repository.VideoRepository
	ig  service.InstagramPublisher
	st  ArtifactStore

	inFlight atomic.Bool
	now      func() time.Time
}

func NewPublishCycleRunner(
	cfg config.Config,
	pr repository.QueuedPostRepository,
	ar repository.SocialAccountRepository,
	vr repository.VideoRepository,
	ig service.InstagramPublisher,
	st ArtifactStore) *PublishCycleRunner {
	return &PublishCycleRunner{
		cfg: cfg,
		pr:  pr,
		ar:  ar,
		vr:  vr,
		ig:  ig,
		st:  st,
		now: time.Now,
	}
}

// RunCycle is invoked by the scheduler once per tick. Ticks never overlap: if
// the previous cycle is still running the new tick is skipped, which is an
// accepted degradation rather than an error. A panic inside a cycle is
// contained so one bad post can never kill the recurring job.
func (r *PublishCycleRunner) RunCycle() {
	if !r.inFlight.CompareAndSwap(false, true) {
		slog.Info("previous publish cycle still running, skipping tick")
		return
	}
	defer r.inFlight.Store(false)
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("publish cycle panicked", "panic", rec)
		}
	}()

	ctx := context.Background()
	now := r.now()

	var published, failed, recovered int

	recovered, alreadyLive := r.recoverStuckPosts(ctx, now)
	published += alreadyLive

	due, err := r.pr.ListDue(ctx, now)
	if err != nil {
		slog.Error("unable to list due posts", "error", err.Error())
		return
	}

	for _, post := range due {
		switch r.PublishOne(ctx, post) {
		case models.PostStatusPublished:
			published++
		case models.PostStatusFailed:
			failed++
		}
	}

	if published+failed+recovered > 0 {
		slog.Info("publish cycle summary",
			"published", published,
			"failed", failed,
			"recovered", recovered)
	}
}

// recoverStuckPosts resets posts abandoned in an in-flight status. When the
// stuck post already has a media container, its status is checked against
// Instagram first: a container that went live before the crash is marked
// published instead of being retried, which closes the duplicate-publish
// window for everything past container creation.
func (r *PublishCycleRunner) recoverStuckPosts(ctx context.Context, now time.Time) (recovered, alreadyLive int) {
	stuck, err := r.pr.ListStuck(ctx, now.Add(-StuckTimeout))
	if err != nil {
		slog.Error("unable to list stuck posts", "error", err.Error())
		return 0, 0
	}

	for _, post := range stuck {
		if post.IGContainerID != "" {
			status, err := r.containerStatus(ctx, post)
			if err == nil && status == service.ContainerStatusPublished {
				// Media ID and permalink were lost with the crashed cycle.
				if err := r.pr.MarkPublished(ctx, post.ID, "", "", now); err == nil {
					alreadyLive++
					continue
				}
			}
		}

		if err := r.pr.UpdateStatus(ctx, models.PostStatusScheduled, post.ID); err != nil {
			slog.Error("unable to reset stuck post", "post_id", post.ID, "error", err.Error())
			continue
		}
		recovered++
	}

	return recovered, alreadyLive
}

func (r *PublishCycleRunner) containerStatus(ctx context.Context, post *models.QueuedPost) (string, error) {
	account, err := r.ar.GetByID(ctx, post.AccountID)
	if err != nil || account == nil {
		return "", fmt.Errorf("account %d unavailable", post.AccountID)
	}
	token, err := utils.Decrypt(account.AccessToken, []byte(r.cfg.SecretKey))
	if err != nil {
		return "", err
	}
	return r.ig.ContainerStatus(ctx, token, post.IGContainerID)
}

// PublishOne runs a single publish attempt and returns the post's resulting
// status. The post is claimed with a conditional scheduled-to-uploading
// update first, so when the cron cycle and the publish-now worker race on
// the same post exactly one of them proceeds.
func (r *PublishCycleRunner) PublishOne(ctx context.Context, post *models.QueuedPost) string {
	claimed, err := r.pr.ClaimForPublish(ctx, post.ID)
	if err != nil {
		slog.Error("unable to claim post", "post_id", post.ID, "error", err.Error())
		return post.Status
	}
	if !claimed {
		slog.Info("post no longer scheduled, skipping", "post_id", post.ID)
		return post.Status
	}

	account, err := r.ar.GetByID(ctx, post.AccountID)
	if err != nil {
		return r.failAttempt(ctx, post, fmt.Errorf("loading account: %w", err))
	}
	if account == nil || !account.IsActive {
		return r.failPermanently(ctx, post, "social account is disconnected")
	}

	token, err := r.usableToken(ctx, post, account)
	if err != nil {
		if err == service.ErrTokenInvalid {
			return r.failPermanently(ctx, post, "refresh token rejected; account must be reconnected")
		}
		return r.failAttempt(ctx, post, err)
	}

	video, err := r.vr.GetByID(ctx, post.VideoID)
	if err != nil || video == nil {
		return r.failAttempt(ctx, post, fmt.Errorf("video %d unavailable", post.VideoID))
	}

	videoURL := video.FileURL
	if videoURL == "" {
		videoURL, err = r.st.PresignGet(ctx, video.StorageKey, presignExpiry)
		if err != nil {
			return r.failAttempt(ctx, post, fmt.Errorf("presigning artifact: %w", err))
		}
	}

	caption := post.Caption
	if post.Hashtags != "" {
		caption = caption + "\n\n" + post.Hashtags
	}

	containerID, err := r.ig.StartUpload(ctx, account.IGUserID, token, videoURL, caption)
	if err != nil {
		return r.failAttempt(ctx, post, err)
	}
	if err := r.pr.SetContainerID(ctx, post.ID, containerID); err != nil {
		slog.Error("unable to record container id", "post_id", post.ID, "error", err.Error())
	}

	if err := r.pr.UpdateStatus(ctx, models.PostStatusProcessingVideo, post.ID); err != nil {
		slog.Error("unable to mark post processing", "post_id", post.ID, "error", err.Error())
	}

	mediaID, permalink, err := r.ig.FinishPublish(ctx, account.IGUserID, token, containerID)
	if err != nil {
		return r.failAttempt(ctx, post, err)
	}

	if err := r.pr.MarkPublished(ctx, post.ID, mediaID, permalink, r.now()); err != nil {
		slog.Error("unable to mark post published", "post_id", post.ID, "error", err.Error())
		return post.Status
	}

	return models.PostStatusPublished
}

// usableToken returns a decrypted access token, refreshing inline when the
// stored one has expired. The daily refresh cycle usually gets there first;
// this is the defensive fallback.
func (r *PublishCycleRunner) usableToken(ctx context.Context, post *models.QueuedPost, account *models.SocialAccount) (string, error) {
	if account.TokenExpiresAt.After(r.now()) {
		return utils.Decrypt(account.AccessToken, []byte(r.cfg.SecretKey))
	}

	refreshToken, err := utils.Decrypt(account.RefreshToken, []byte(r.cfg.SecretKey))
	if err != nil {
		return "", err
	}

	newToken, expiresAt, err := r.ig.RefreshToken(ctx, refreshToken)
	if err == service.ErrTokenInvalid {
		if derr := r.ar.Deactivate(ctx, account.ID, "refresh token rejected by platform"); derr != nil {
			slog.Error("unable to deactivate account", "account_id", account.ID, "error", derr.Error())
		}
		return "", service.ErrTokenInvalid
	}
	if err != nil {
		return "", fmt.Errorf("inline token refresh: %w", err)
	}

	encrypted, err := utils.Encrypt([]byte(newToken), []byte(r.cfg.SecretKey))
	if err != nil {
		return "", err
	}
	if err := r.ar.SetToken(ctx, account.ID, encrypted, encrypted, expiresAt); err != nil {
		slog.Error("unable to persist refreshed token", "account_id", account.ID, "error", err.Error())
	}

	return newToken, nil
}

// failAttempt records a transient failure: the post goes back to scheduled
// while attempts remain, to failed once the ceiling is hit.
func (r *PublishCycleRunner) failAttempt(ctx context.Context, post *models.QueuedPost, cause error) string {
	status := models.PostStatusScheduled
	if post.AttemptCount+1 >= MaxPublishAttempts {
		status = models.PostStatusFailed
	}

	slog.Info("publish attempt failed",
		"post_id", post.ID,
		"attempt", post.AttemptCount+1,
		"next_status", status,
		"error", cause.Error())

	if err := r.pr.MarkAttemptFailed(ctx, post.ID, status, cause.Error()); err != nil {
		slog.Error("unable to record failed attempt", "post_id", post.ID, "error", err.Error())
		return post.Status
	}
	return status
}

// failPermanently is for non-retryable conditions: the post moves straight to
// failed regardless of remaining attempts.
func (r *PublishCycleRunner) failPermanently(ctx context.Context, post *models.QueuedPost, reason string) string {
	slog.Info("publish failed permanently", "post_id", post.ID, "reason", reason)
	if err := r.pr.MarkAttemptFailed(ctx, post.ID, models.PostStatusFailed, reason); err != nil {
		slog.Error("unable to record failure", "post_id", post.ID, "error", err.Error())
		return post.Status
	}
	return models.PostStatusFailed
}
