package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/reelflow/reelflow/internal/models"
	"github.com/reelflow/reelflow/internal/repository"
)

type AccountService interface {
	List(ctx context.Context, userID int64) ([]*models.SocialAccount, error)
	Disconnect(ctx context.Context, userID, accountID int64) error
}

type accountService struct {
	sa repository.SocialAccountRepository
	pr repository.QueuedPostRepository
}

func NewAccountService(sa repository.SocialAccountRepository, pr repository.QueuedPostRepository) AccountService {
	return &accountService{
		sa: sa,
		pr: pr,
	}
}

func (s *accountService) List(ctx context.Context, userID int64) ([]*models.SocialAccount, error) {
	var err error

	if userID == 0 {
		err = errors.New("UserID is not valid")
		slog.Info(err.Error())
		return nil, err
	}

	accounts, err := s.sa.ListInfoByUserID(ctx, userID)
	if err != nil {
		return nil, errors.New("error getting social accounts")
	}

	return accounts, nil
}

// Disconnect deactivates the account (the row and its history survive) and
// cancels every queued post still pointing at it.
func (s *accountService) Disconnect(ctx context.Context, userID, accountID int64) error {
	var err error

	if userID == 0 {
		err = errors.New("UserID is not valid")
		slog.Info(err.Error())
		return err
	}

	if accountID == 0 {
		err = errors.New("AccountID is not valid")
		slog.Info(err.Error())
		return err
	}

	isValid, err := s.sa.CheckByUserID(ctx, accountID, userID)
	if err != nil {
		return err
	}

	if !isValid {
		return ErrAccountNotFound
	}

	cancelled, err := s.pr.CancelActiveByAccount(ctx, accountID)
	if err != nil {
		return fmt.Errorf("error cancelling queued posts: %w", err)
	}
	if cancelled > 0 {
		slog.Info("cancelled queued posts for disconnected account", "account_id", accountID, "count", cancelled)
	}

	return s.sa.Deactivate(ctx, accountID, "disconnected by user")
}
