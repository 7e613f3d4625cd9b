package service

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/reelflow/reelflow/internal/models"
	"github.com/reelflow/reelflow/internal/repository"
	"github.com/reelflow/reelflow/internal/transfer"
)

type QueueService interface {
	List(ctx context.Context, userID int64, status string) ([]*models.QueuedPost, error)
	Reorder(ctx context.Context, userID int64, req *transfer.ReorderRequest) error
	Cancel(ctx context.Context, userID, postID int64) error
	Edit(ctx context.Context, userID int64, edit *transfer.PostEdit) error
	Stats(ctx context.Context, userID int64) (*transfer.QueueStats, error)
	PublishNow(ctx context.Context, userID, postID int64) error
}

type queueService struct {
	pr  repository.QueuedPostRepository
	now func() time.Time
}

func NewQueueService(pr repository.QueuedPostRepository) QueueService {
	return &queueService{
		pr:  pr,
		now: time.Now,
	}
}

func (s *queueService) List(ctx context.Context, userID int64, status string) ([]*models.QueuedPost, error) {
	posts, err := s.pr.ListByUserID(ctx, userID, status)
	if err != nil {
		return nil, errors.New("error listing queued posts")
	}
	return posts, nil
}

// Reorder reassigns the already-allocated publish instants across the
// caller-supplied ordering: the existing scheduled_for values of the named
// posts are sorted ascending and handed out positionally, so the first post
// in the new order gets the earliest instant. The instant set is never
// changed, which keeps the slot calendar cadence intact and cannot introduce
// new conflicts. IDs that do not resolve to an editable post owned by the
// caller are skipped.
func (s *queueService) Reorder(ctx context.Context, userID int64, req *transfer.ReorderRequest) error {
	var posts []*models.QueuedPost
	for _, id := range req.PostIDs {
		post, err := s.pr.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if post == nil || post.UserID != userID || post.AccountID != req.AccountID {
			continue
		}
		if !post.CanEdit() {
			continue
		}
		posts = append(posts, post)
	}

	instants := make([]time.Time, len(posts))
	for i, post := range posts {
		instants[i] = post.ScheduledFor
	}
	sort.Slice(instants, func(i, j int) bool { return instants[i].Before(instants[j]) })

	changes := make(map[int64]time.Time)
	for i, post := range posts {
		if !post.ScheduledFor.Equal(instants[i]) {
			changes[post.ID] = instants[i]
		}
	}
	if len(changes) == 0 {
		return nil
	}

	// All reassignments commit together; a partial reorder would leave two
	// posts sharing an instant.
	return s.pr.ReassignScheduledFor(ctx, changes)
}

// Cancel moves a post to the terminal cancelled status. The row is kept for
// audit history.
func (s *queueService) Cancel(ctx context.Context, userID, postID int64) error {
	post, err := s.ownedPost(ctx, userID, postID)
	if err != nil {
		return err
	}

	if !post.CanCancel() {
		slog.Info("cancel rejected", "post_id", postID, "status", post.Status)
		return ErrPostNotCancellable
	}

	return s.pr.UpdateStatus(ctx, models.PostStatusCancelled, postID)
}

// Edit updates caption and/or scheduled time. Rejected once the post has left
// the queued/scheduled states. A new scheduled time must not collide with
// another non-terminal post on the same account.
func (s *queueService) Edit(ctx context.Context, userID int64, edit *transfer.PostEdit) error {
	post, err := s.ownedPost(ctx, userID, edit.PostID)
	if err != nil {
		return err
	}

	if !post.CanEdit() {
		slog.Info("edit rejected", "post_id", edit.PostID, "status", post.Status)
		return ErrPostNotEditable
	}

	if edit.Caption != nil || edit.Hashtags != nil {
		caption := post.Caption
		hashtags := post.Hashtags
		if edit.Caption != nil {
			caption = *edit.Caption
		}
		if edit.Hashtags != nil {
			hashtags = *edit.Hashtags
		}
		if err := s.pr.UpdateCaption(ctx, post.ID, caption, hashtags); err != nil {
			return err
		}
	}

	if edit.ScheduledFor != nil && !edit.ScheduledFor.Equal(post.ScheduledFor) {
		occupied, err := s.instantOccupied(ctx, post, *edit.ScheduledFor)
		if err != nil {
			return err
		}
		if occupied {
			return ErrSlotOccupied
		}
		if err := s.pr.UpdateScheduledFor(ctx, post.ID, *edit.ScheduledFor); err != nil {
			return err
		}
	}

	return nil
}

func (s *queueService) instantOccupied(ctx context.Context, post *models.QueuedPost, instant time.Time) (bool, error) {
	existing, err := s.pr.ListActiveInWindow(ctx, post.AccountID, instant, instant)
	if err != nil {
		return false, err
	}
	for _, other := range existing {
		if other.ID != post.ID {
			return true, nil
		}
	}
	return false, nil
}

func (s *queueService) Stats(ctx context.Context, userID int64) (*transfer.QueueStats, error) {
	counts, err := s.pr.CountByStatus(ctx, userID)
	if err != nil {
		return nil, err
	}

	next, err := s.pr.NextUpcoming(ctx, userID, s.now())
	if err != nil {
		return nil, err
	}

	return &transfer.QueueStats{
		Counts:       counts,
		NextUpcoming: next,
	}, nil
}

// PublishNow pulls a post's instant up to the present so the next cycle (or
// the immediate task the handler enqueues) picks it up.
func (s *queueService) PublishNow(ctx context.Context, userID, postID int64) error {
	post, err := s.ownedPost(ctx, userID, postID)
	if err != nil {
		return err
	}

	if !post.CanEdit() {
		slog.Info("publish-now rejected", "post_id", postID, "status", post.Status)
		return ErrPostNotEditable
	}

	if err := s.pr.UpdateScheduledFor(ctx, postID, s.now()); err != nil {
		return err
	}
	if post.Status == models.PostStatusQueued {
		return s.pr.UpdateStatus(ctx, models.PostStatusScheduled, postID)
	}
	return nil
}

func (s *queueService) ownedPost(ctx context.Context, userID, postID int64) (*models.QueuedPost, error) {
	post, err := s.pr.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post == nil || post.UserID != userID {
		return nil, ErrPostNotFound
	}
	return post, nil
}
