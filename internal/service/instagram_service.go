package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	config "github.com/reelflow/reelflow/configs"
	"github.com/reelflow/reelflow/internal/models"
	"github.com/reelflow/reelflow/internal/repository"
	"github.com/reelflow/reelflow/internal/transfer"
	"github.com/reelflow/reelflow/pkg/utils"
)

const (
	instagramAuthURL  = "https://www.instagram.com/oauth/authorize"
	instagramGraphURL = "https://graph.instagram.com/v21.0"

	// Graph API OAuth error code: invalid or expired token.
	igErrorCodeOAuth = 190
)

// Container status codes reported by the Graph API while Instagram processes
// an uploaded video.
const (
	ContainerStatusInProgress = "IN_PROGRESS"
	ContainerStatusFinished   = "FINISHED"
	ContainerStatusPublished  = "PUBLISHED"
	ContainerStatusError      = "ERROR"
	ContainerStatusExpired    = "EXPIRED"
)

// InstagramPublisher is the narrow publish surface the cycle runner depends
// on. Publishing a reel is a three-step exchange: upload a media container,
// wait for Instagram-side processing, then publish the container.
type InstagramPublisher interface {
	StartUpload(ctx context.Context, igUserID, accessToken, videoURL, caption string) (containerID string, err error)
	FinishPublish(ctx context.Context, igUserID, accessToken, containerID string) (mediaID, permalink string, err error)
	ContainerStatus(ctx context.Context, accessToken, containerID string) (string, error)
	RefreshToken(ctx context.Context, refreshToken string) (accessToken string, expiresAt time.Time, err error)
}

// InstagramService adds the OAuth connect flow on top of the publisher.
type InstagramService interface {
	InstagramPublisher
	GetAuthURL(state string) string
	InstagramCallback(ctx context.Context, code string, userID int64) error
}

type instagramService struct {
	cfg          config.Config
	sa           repository.SocialAccountRepository
	pollInterval time.Duration
	maxPolls     int
}

func NewInstagramService(cfg config.Config, sa repository.SocialAccountRepository) InstagramService {
	return &instagramService{
		cfg:          cfg,
		sa:           sa,
		pollInterval: 10 * time.Second,
		maxPolls:     30,
	}
}

func (ig *instagramService) GetAuthURL(state string) string {
	params := url.Values{}
	params.Add("client_id", ig.cfg.InstagramClientID)
	params.Add("scope", "instagram_business_basic,instagram_business_content_publish")
	params.Add("response_type", "code")
	params.Add("redirect_uri", ig.cfg.InstagramRedirectURI)
	params.Add("state", state)

	return fmt.Sprintf("%s?%s", instagramAuthURL, params.Encode())
}

func (ig *instagramService) InstagramCallback(ctx context.Context, code string, userID int64) error {
	if code == "" {
		err := errors.New("code is empty")
		slog.Info(err.Error())
		return err
	}

	if userID == 0 {
		err := errors.New("user not found")
		slog.Info(err.Error())
		return err
	}

	token, err := ig.exchangeCodeForToken(ctx, code)
	if err != nil {
		return err
	}

	userInfo, err := ig.getInstagramUserInfo(token.AccessToken)
	if err != nil {
		return err
	}

	encryptedAccessToken, err := utils.Encrypt([]byte(token.AccessToken), []byte(ig.cfg.SecretKey))
	if err != nil {
		return err
	}

	// Instagram long-lived tokens refresh against themselves; the refresh
	// token column carries the same ciphertext.
	accountInfo := &models.SocialAccount{
		UserID:          userID,
		IGUserID:        userInfo.UserID,
		AccountName:     userInfo.Name,
		AccountUsername: userInfo.Username,
		ProfilePicture:  userInfo.ProfilePicture,
		AccessToken:     encryptedAccessToken,
		RefreshToken:    encryptedAccessToken,
		TokenExpiresAt:  token.ExpiresAt,
	}

	_, err = ig.sa.Create(ctx, nil, accountInfo)
	if err != nil {
		return err
	}

	return nil
}

func (ig *instagramService) getShortLivedToken(code string) (string, error) {
	data := url.Values{}
	data.Set("client_id", ig.cfg.InstagramClientID)
	data.Set("client_secret", ig.cfg.InstagramClientSecret)
	data.Set("grant_type", "authorization_code")
	data.Set("redirect_uri", ig.cfg.InstagramRedirectURI)
	data.Set("code", code)

	resp, err := http.Post(
		"https://api.instagram.com/oauth/access_token",
		"application/x-www-form-urlencoded",
		strings.NewReader(data.Encode()),
	)
	if err != nil {
		slog.Info(err.Error())
		return "", fmt.Errorf("failed to get short-lived token: %w", err)
	}
	defer resp.Body.Close()

	var result struct {
		AccessToken string `json:"access_token"`
		UserID      int64  `json:"user_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		slog.Info(err.Error())
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}

	return result.AccessToken, nil
}

func (ig *instagramService) exchangeCodeForToken(ctx context.Context, code string) (*transfer.InstagramToken, error) {
	shortLived, err := ig.getShortLivedToken(code)
	if err != nil {
		return nil, err
	}

	reqURL := fmt.Sprintf(
		"https://graph.instagram.com/access_token?grant_type=ig_exchange_token&client_secret=%s&access_token=%s",
		ig.cfg.InstagramClientSecret,
		shortLived,
	)

	resp, err := http.Get(reqURL)
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("failed to get long-lived token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("error response from Instagram: %s (status code: %d)", body, resp.StatusCode)
	}

	var result struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("failed to decode long-lived token response: %w", err)
	}

	return &transfer.InstagramToken{
		AccessToken: result.AccessToken,
		ExpiresAt:   time.Now().Add(time.Second * time.Duration(result.ExpiresIn)),
	}, nil
}

func (ig *instagramService) getInstagramUserInfo(accessToken string) (*transfer.InstagramUserInfo, error) {
	var userInfo transfer.InstagramUserInfo

	reqURL := fmt.Sprintf(
		"https://graph.instagram.com/me?fields=id,username,name,account_type,profile_picture_url&access_token=%s",
		accessToken,
	)

	resp, err := http.Get(reqURL)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(&userInfo); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return &userInfo, nil
}

// RefreshToken exchanges a long-lived token for a fresh one. A 190 response
// means the token itself is no longer valid and the account has to be
// reconnected; anything else is treated as transient.
func (ig *instagramService) RefreshToken(ctx context.Context, refreshToken string) (string, time.Time, error) {
	reqURL := fmt.Sprintf(
		"https://graph.instagram.com/refresh_access_token?grant_type=ig_refresh_token&access_token=%s",
		refreshToken,
	)

	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return "", time.Time{}, err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", time.Time{}, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("error reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if igErrorCode(respBody) == igErrorCodeOAuth {
			return "", time.Time{}, ErrTokenInvalid
		}
		return "", time.Time{}, fmt.Errorf("unexpected status code from Instagram: %d", resp.StatusCode)
	}

	var result struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		slog.Info(err.Error())
		return "", time.Time{}, err
	}

	return result.AccessToken, time.Now().Add(time.Second * time.Duration(result.ExpiresIn)), nil
}

// StartUpload creates a REELS media container pointing at the video artifact.
// Instagram downloads and processes the video asynchronously.
func (ig *instagramService) StartUpload(ctx context.Context, igUserID, accessToken, videoURL, caption string) (string, error) {
	reqURL := fmt.Sprintf("%s/%s/media", instagramGraphURL, igUserID)

	payload := map[string]interface{}{
		"media_type":   "REELS",
		"video_url":    videoURL,
		"caption":      caption,
		"access_token": accessToken,
	}

	var result struct {
		ID string `json:"id"`
	}
	if err := ig.postJSON(ctx, reqURL, payload, &result); err != nil {
		return "", err
	}
	if result.ID == "" {
		return "", errors.New("no container ID returned from Instagram")
	}

	return result.ID, nil
}

// ContainerStatus reports where Instagram-side processing of a container
// stands. Also used after crash recovery to detect containers that were
// already published before the local status write was lost.
func (ig *instagramService) ContainerStatus(ctx context.Context, accessToken, containerID string) (string, error) {
	reqURL := fmt.Sprintf("%s/%s?fields=status_code&access_token=%s", instagramGraphURL, containerID, accessToken)

	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return "", fmt.Errorf("error creating request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("HTTP request error: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("error reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if igErrorCode(respBody) == igErrorCodeOAuth {
			return "", ErrTokenExpired
		}
		return "", fmt.Errorf("unexpected status code from Instagram: %d", resp.StatusCode)
	}

	var result struct {
		StatusCode string `json:"status_code"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("error parsing response: %w", err)
	}

	return result.StatusCode, nil
}

// FinishPublish waits for the container to finish processing, publishes it,
// and resolves the permalink of the resulting media.
func (ig *instagramService) FinishPublish(ctx context.Context, igUserID, accessToken, containerID string) (string, string, error) {
	ready := false
	for i := 0; i < ig.maxPolls; i++ {
		status, err := ig.ContainerStatus(ctx, accessToken, containerID)
		if err != nil {
			return "", "", err
		}

		switch status {
		case ContainerStatusFinished:
			ready = true
		case ContainerStatusInProgress:
			select {
			case <-ctx.Done():
				return "", "", ctx.Err()
			case <-time.After(ig.pollInterval):
			}
			continue
		case ContainerStatusError, ContainerStatusExpired:
			return "", "", fmt.Errorf("container %s entered status %s", containerID, status)
		default:
			return "", "", fmt.Errorf("container %s in unexpected status %s", containerID, status)
		}
		break
	}
	if !ready {
		return "", "", fmt.Errorf("container %s still processing after %d polls", containerID, ig.maxPolls)
	}

	reqURL := fmt.Sprintf("%s/%s/media_publish", instagramGraphURL, igUserID)
	payload := map[string]interface{}{
		"creation_id":  containerID,
		"access_token": accessToken,
	}

	var result struct {
		ID string `json:"id"`
	}
	if err := ig.postJSON(ctx, reqURL, payload, &result); err != nil {
		return "", "", err
	}
	if result.ID == "" {
		return "", "", errors.New("no media ID returned from Instagram")
	}

	permalink, err := ig.getPermalink(ctx, accessToken, result.ID)
	if err != nil {
		// The media is live; a missing permalink is not worth failing over.
		slog.Info(err.Error())
	}

	return result.ID, permalink, nil
}

func (ig *instagramService) getPermalink(ctx context.Context, accessToken, mediaID string) (string, error) {
	reqURL := fmt.Sprintf("%s/%s?fields=permalink&access_token=%s", instagramGraphURL, mediaID, accessToken)

	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return "", err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var result struct {
		Permalink string `json:"permalink"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	return result.Permalink, nil
}

func (ig *instagramService) postJSON(ctx context.Context, reqURL string, payload interface{}, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("error marshalling payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", reqURL, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request error: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("error reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if igErrorCode(respBody) == igErrorCodeOAuth {
			return ErrTokenExpired
		}
		return fmt.Errorf("unexpected status code from Instagram: %d (%s)", resp.StatusCode, respBody)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("error parsing response: %w", err)
	}
	return nil
}

func igErrorCode(body []byte) int {
	var igErr transfer.InstagramErrorResponse
	if err := json.Unmarshal(body, &igErr); err != nil {
		return 0
	}
	return igErr.Error.Code
}
