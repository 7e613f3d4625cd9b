package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/reelflow/reelflow/internal/models"
	"github.com/reelflow/reelflow/internal/repository"
	"github.com/reelflow/reelflow/internal/transfer"
)

type SlotService interface {
	Create(ctx context.Context, userID int64, sc *transfer.SlotCreation) (int64, error)
	List(ctx context.Context, userID, accountID int64) ([]*models.SlotDefinition, error)
	Update(ctx context.Context, userID int64, su *transfer.SlotUpdate) error
	Remove(ctx context.Context, userID, slotID int64) error
	ApplyPreset(ctx context.Context, userID int64, preset *transfer.SlotPreset) error
}

type slotService struct {
	sr repository.SlotRepository
	ar repository.SocialAccountRepository
}

func NewSlotService(sr repository.SlotRepository, ar repository.SocialAccountRepository) SlotService {
	return &slotService{
		sr: sr,
		ar: ar,
	}
}

func validateSlot(dayOfWeek int, timeOfDay, timezone string) error {
	if dayOfWeek < 0 || dayOfWeek > 6 {
		return fmt.Errorf("day_of_week %d out of range", dayOfWeek)
	}
	if _, err := time.Parse("15:04", timeOfDay); err != nil {
		return fmt.Errorf("invalid time_of_day %q", timeOfDay)
	}
	if _, err := time.LoadLocation(timezone); err != nil {
		return fmt.Errorf("unknown timezone %q", timezone)
	}
	return nil
}

func (s *slotService) Create(ctx context.Context, userID int64, sc *transfer.SlotCreation) (int64, error) {
	if err := validateSlot(sc.DayOfWeek, sc.TimeOfDay, sc.Timezone); err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	owned, err := s.ar.CheckByUserID(ctx, sc.AccountID, userID)
	if err != nil {
		return 0, err
	}
	if !owned {
		return 0, ErrAccountNotFound
	}

	slot := &models.SlotDefinition{
		UserID:    userID,
		AccountID: sc.AccountID,
		DayOfWeek: sc.DayOfWeek,
		TimeOfDay: sc.TimeOfDay,
		Timezone:  sc.Timezone,
		IsActive:  true,
	}

	id, err := s.sr.Create(ctx, nil, slot)
	if err != nil {
		// duplicate (account, day, time) is a rejected mutation, not a merge
		return 0, err
	}
	return id, nil
}

func (s *slotService) List(ctx context.Context, userID, accountID int64) ([]*models.SlotDefinition, error) {
	owned, err := s.ar.CheckByUserID(ctx, accountID, userID)
	if err != nil {
		return nil, err
	}
	if !owned {
		return nil, ErrAccountNotFound
	}

	slots, err := s.sr.ListByAccountID(ctx, accountID)
	if err != nil {
		return nil, errors.New("error listing slots")
	}
	return slots, nil
}

func (s *slotService) Update(ctx context.Context, userID int64, su *transfer.SlotUpdate) error {
	if err := validateSlot(su.DayOfWeek, su.TimeOfDay, su.Timezone); err != nil {
		slog.Info(err.Error())
		return err
	}

	owned, err := s.sr.CheckByUserID(ctx, su.SlotID, userID)
	if err != nil {
		return err
	}
	if !owned {
		return errors.New("slot doesn't exist")
	}

	slot := &models.SlotDefinition{
		ID:        su.SlotID,
		DayOfWeek: su.DayOfWeek,
		TimeOfDay: su.TimeOfDay,
		Timezone:  su.Timezone,
		IsActive:  su.IsActive,
	}
	return s.sr.Update(ctx, slot)
}

func (s *slotService) Remove(ctx context.Context, userID, slotID int64) error {
	owned, err := s.sr.CheckByUserID(ctx, slotID, userID)
	if err != nil {
		return err
	}
	if !owned {
		return errors.New("slot doesn't exist")
	}

	return s.sr.Remove(ctx, slotID)
}

// ApplyPreset replaces the full slot calendar for an account in a single
// transaction (the quick-setup flow). Duplicate day/time pairs inside the
// preset are rejected up front rather than surfacing as a constraint error
// halfway through.
func (s *slotService) ApplyPreset(ctx context.Context, userID int64, preset *transfer.SlotPreset) error {
	owned, err := s.ar.CheckByUserID(ctx, preset.AccountID, userID)
	if err != nil {
		return err
	}
	if !owned {
		return ErrAccountNotFound
	}

	seen := make(map[string]struct{}, len(preset.Slots))
	slots := make([]*models.SlotDefinition, 0, len(preset.Slots))
	for _, ps := range preset.Slots {
		if err := validateSlot(ps.DayOfWeek, ps.TimeOfDay, preset.Timezone); err != nil {
			slog.Info(err.Error())
			return err
		}
		key := fmt.Sprintf("%d/%s", ps.DayOfWeek, ps.TimeOfDay)
		if _, dup := seen[key]; dup {
			return repository.ErrDuplicateSlot
		}
		seen[key] = struct{}{}

		slots = append(slots, &models.SlotDefinition{
			UserID:    userID,
			AccountID: preset.AccountID,
			DayOfWeek: ps.DayOfWeek,
			TimeOfDay: ps.TimeOfDay,
			Timezone:  preset.Timezone,
			IsActive:  true,
		})
	}

	return s.sr.ReplaceForAccount(ctx, userID, preset.AccountID, slots)
}
