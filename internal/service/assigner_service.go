package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/reelflow/reelflow/internal/models"
	"github.com/reelflow/reelflow/internal/repository"
	"github.com/reelflow/reelflow/internal/transfer"
)

// LookaheadDays bounds the slot search so a sparse calendar cannot trigger an
// unbounded walk.
const LookaheadDays = 30

type AssignerService interface {
	FindNextOpenSlot(ctx context.Context, userID, accountID int64, searchFrom time.Time) (time.Time, error)
	AssignVideoToNextSlot(ctx context.Context, userID int64, req *transfer.AssignRequest) (*transfer.AssignResult, error)
	PreviewUpcomingSlots(ctx context.Context, userID, accountID int64, count int) ([]time.Time, error)
}

type assignerService struct {
	sr  repository.SlotRepository
	pr  repository.QueuedPostRepository
	vr  repository.VideoRepository
	ar  repository.SocialAccountRepository
	cg  CaptionGenerator
	now func() time.Time
}

func NewAssignerService(
	sr repository.SlotRepository,
	pr repository.QueuedPostRepository,
	vr repository.VideoRepository,
	ar repository.SocialAccountRepository,
	cg CaptionGenerator) AssignerService {
	return &assignerService{
		sr:  sr,
		pr:  pr,
		vr:  vr,
		ar:  ar,
		cg:  cg,
		now: time.Now,
	}
}

// FindNextOpenSlot walks forward day by day from searchFrom, at most
// LookaheadDays, and returns the earliest slot instant that is strictly after
// searchFrom and not occupied by a non-terminal post. Linear in days x slots,
// which is fine for the tens of slots an account realistically has.
func (s *assignerService) FindNextOpenSlot(ctx context.Context, userID, accountID int64, searchFrom time.Time) (time.Time, error) {
	slots, err := s.sr.ListActive(ctx, userID, accountID)
	if err != nil {
		return time.Time{}, err
	}
	if len(slots) == 0 {
		return time.Time{}, ErrNoActiveSlots
	}

	horizon := searchFrom.AddDate(0, 0, LookaheadDays)

	existing, err := s.pr.ListActiveInWindow(ctx, accountID, searchFrom, horizon)
	if err != nil {
		return time.Time{}, err
	}
	occupied := make(map[int64]struct{}, len(existing))
	for _, p := range existing {
		occupied[p.ScheduledFor.Unix()] = struct{}{}
	}

	for day := 0; day <= LookaheadDays; day++ {
		var best time.Time
		for _, slot := range slots {
			instant, ok := s.slotInstantOnDay(slot, searchFrom, day)
			if !ok {
				continue
			}
			if !instant.After(searchFrom) || instant.After(horizon) {
				continue
			}
			if _, taken := occupied[instant.Unix()]; taken {
				continue
			}
			if best.IsZero() || instant.Before(best) {
				best = instant
			}
		}
		if !best.IsZero() {
			return best, nil
		}
	}

	return time.Time{}, ErrNoOpenSlot
}

// slotInstantOnDay resolves a slot against the calendar date that lies `day`
// days after searchFrom in the slot's own timezone. The day-of-week match has
// to happen in that zone, not in UTC.
func (s *assignerService) slotInstantOnDay(slot *models.SlotDefinition, searchFrom time.Time, day int) (time.Time, bool) {
	loc, err := time.LoadLocation(slot.Timezone)
	if err != nil {
		slog.Info(err.Error(), "slot_id", slot.ID)
		return time.Time{}, false
	}

	date := searchFrom.In(loc).AddDate(0, 0, day)
	if int(date.Weekday()) != slot.DayOfWeek {
		return time.Time{}, false
	}

	instant, err := LocalTimeToUTC(date, slot.TimeOfDay, slot.Timezone)
	if err != nil {
		slog.Info(err.Error(), "slot_id", slot.ID)
		return time.Time{}, false
	}
	return instant, true
}

// AssignVideoToNextSlot binds a completed video to the next open slot instant
// and creates the post in scheduled state. When no caption is supplied one is
// generated opportunistically; generation failure falls back to an empty
// caption rather than blocking the assignment.
func (s *assignerService) AssignVideoToNextSlot(ctx context.Context, userID int64, req *transfer.AssignRequest) (*transfer.AssignResult, error) {
	owned, err := s.ar.CheckByUserID(ctx, req.AccountID, userID)
	if err != nil {
		return nil, err
	}
	if !owned {
		return nil, ErrAccountNotFound
	}

	account, err := s.ar.GetByID(ctx, req.AccountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, ErrAccountNotFound
	}
	if !account.IsActive {
		return nil, ErrAccountInactive
	}

	video, err := s.vr.GetByID(ctx, req.VideoID)
	if err != nil {
		return nil, err
	}
	if video == nil || video.UserID != userID {
		return nil, ErrVideoNotReady
	}
	if video.Status != models.VideoStatusCompleted {
		return nil, ErrVideoNotReady
	}

	alreadyQueued, err := s.pr.HasActiveForVideo(ctx, req.VideoID)
	if err != nil {
		return nil, err
	}
	if alreadyQueued {
		return nil, ErrVideoAlreadyQueued
	}

	scheduledFor, err := s.FindNextOpenSlot(ctx, userID, req.AccountID, s.now())
	if err != nil {
		return nil, err
	}

	caption := req.Caption
	hashtags := req.Hashtags
	captionGenerated := false
	if caption == "" && s.cg != nil {
		generated, tags, genErr := s.cg.Generate(ctx, video.Transcript, video.Title)
		if genErr != nil {
			slog.Info("caption generation failed, continuing with empty caption", "video_id", video.ID, "error", genErr.Error())
		} else {
			caption = generated
			hashtags = tags
			captionGenerated = true
		}
	}

	post := &models.QueuedPost{
		UserID:           userID,
		AccountID:        req.AccountID,
		VideoID:          req.VideoID,
		Caption:          caption,
		Hashtags:         hashtags,
		ScheduledFor:     scheduledFor,
		Status:           models.PostStatusScheduled,
		CaptionGenerated: captionGenerated,
	}

	postID, err := s.pr.Create(ctx, nil, post)
	if err != nil {
		return nil, err
	}

	return &transfer.AssignResult{
		PostID:       postID,
		ScheduledFor: scheduledFor,
	}, nil
}

// PreviewUpcomingSlots returns the next count distinct slot instants without
// creating any posts. Each iteration re-seeds the search one minute past the
// previous hit.
func (s *assignerService) PreviewUpcomingSlots(ctx context.Context, userID, accountID int64, count int) ([]time.Time, error) {
	instants := make([]time.Time, 0, count)
	searchFrom := s.now()

	for i := 0; i < count; i++ {
		instant, err := s.FindNextOpenSlot(ctx, userID, accountID, searchFrom)
		if err == ErrNoOpenSlot {
			break
		}
		if err != nil {
			return nil, err
		}
		instants = append(instants, instant)
		searchFrom = instant.Add(time.Minute)
	}

	return instants, nil
}
