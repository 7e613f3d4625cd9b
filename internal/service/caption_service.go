package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	config "github.com/reelflow/reelflow/configs"
)

// CaptionGenerator produces a caption and hashtags from a video transcript.
// Callers treat failure as non-fatal and fall back to an empty caption.
type CaptionGenerator interface {
	Generate(ctx context.Context, transcript, title string) (caption, hashtags string, err error)
}

type captionService struct {
	cfg config.Config
}

func NewCaptionService(cfg config.Config) CaptionGenerator {
	return &captionService{cfg: cfg}
}

func (s *captionService) Generate(ctx context.Context, transcript, title string) (string, string, error) {
	payload := map[string]string{
		"transcript": transcript,
		"title":      title,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", "", fmt.Errorf("error marshalling payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.cfg.CaptionAPIURL, bytes.NewBuffer(body))
	if err != nil {
		return "", "", fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.cfg.CaptionAPIKey)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return "", "", fmt.Errorf("HTTP request error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("unexpected status code from caption API: %d", resp.StatusCode)
	}

	var result struct {
		Caption  string   `json:"caption"`
		Hashtags []string `json:"hashtags"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		slog.Info(err.Error())
		return "", "", fmt.Errorf("error parsing response: %w", err)
	}

	return result.Caption, strings.Join(result.Hashtags, " "), nil
}
