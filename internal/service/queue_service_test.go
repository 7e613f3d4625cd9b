package service

import (
	"context"
	"testing"
	"time"

	"github.com/reelflow/reelflow/internal/models"
	"github.com/reelflow/reelflow/internal/transfer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var queueNow = time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)

func newTestQueueService() (*queueService, *fakePostRepo) {
	pr := newFakePostRepo()
	s := &queueService{
		pr:  pr,
		now: func() time.Time { return queueNow },
	}
	return s, pr
}

func scheduledPost(pr *fakePostRepo, userID, accountID int64, at time.Time) *models.QueuedPost {
	return pr.add(&models.QueuedPost{
		UserID:       userID,
		AccountID:    accountID,
		Status:       models.PostStatusScheduled,
		ScheduledFor: at,
	})
}

func TestReorderReassignsInstantsPositionally(t *testing.T) {
	s, pr := newTestQueueService()

	t1 := queueNow.Add(24 * time.Hour)
	t2 := queueNow.Add(48 * time.Hour)
	t3 := queueNow.Add(72 * time.Hour)
	a := scheduledPost(pr, 1, 10, t1)
	b := scheduledPost(pr, 1, 10, t2)
	c := scheduledPost(pr, 1, 10, t3)

	err := s.Reorder(context.Background(), 1, &transfer.ReorderRequest{
		AccountID: 10,
		PostIDs:   []int64{c.ID, a.ID, b.ID},
	})
	require.NoError(t, err)

	cAfter, _ := pr.GetByID(context.Background(), c.ID)
	aAfter, _ := pr.GetByID(context.Background(), a.ID)
	bAfter, _ := pr.GetByID(context.Background(), b.ID)

	// Same instants, handed out in the caller's order.
	assert.True(t, cAfter.ScheduledFor.Equal(t1))
	assert.True(t, aAfter.ScheduledFor.Equal(t2))
	assert.True(t, bAfter.ScheduledFor.Equal(t3))
}

func TestReorderSkipsUnresolvableIDs(t *testing.T) {
	s, pr := newTestQueueService()

	t1 := queueNow.Add(24 * time.Hour)
	t2 := queueNow.Add(48 * time.Hour)
	a := scheduledPost(pr, 1, 10, t1)
	b := scheduledPost(pr, 1, 10, t2)
	other := scheduledPost(pr, 2, 20, queueNow.Add(12*time.Hour))

	err := s.Reorder(context.Background(), 1, &transfer.ReorderRequest{
		AccountID: 10,
		PostIDs:   []int64{b.ID, 999, other.ID, a.ID},
	})
	require.NoError(t, err)

	aAfter, _ := pr.GetByID(context.Background(), a.ID)
	bAfter, _ := pr.GetByID(context.Background(), b.ID)
	otherAfter, _ := pr.GetByID(context.Background(), other.ID)

	assert.True(t, bAfter.ScheduledFor.Equal(t1))
	assert.True(t, aAfter.ScheduledFor.Equal(t2))
	// Another user's post is untouched.
	assert.True(t, otherAfter.ScheduledFor.Equal(queueNow.Add(12*time.Hour)))
}

func TestReorderFailureLeavesInstantsUntouched(t *testing.T) {
	s, pr := newTestQueueService()

	t1 := queueNow.Add(24 * time.Hour)
	t2 := queueNow.Add(48 * time.Hour)
	a := scheduledPost(pr, 1, 10, t1)
	b := scheduledPost(pr, 1, 10, t2)

	pr.reassignErr = assert.AnError
	err := s.Reorder(context.Background(), 1, &transfer.ReorderRequest{
		AccountID: 10,
		PostIDs:   []int64{b.ID, a.ID},
	})
	require.Error(t, err)

	// The reassignment is a single transaction, so neither post moved.
	aAfter, _ := pr.GetByID(context.Background(), a.ID)
	bAfter, _ := pr.GetByID(context.Background(), b.ID)
	assert.True(t, aAfter.ScheduledFor.Equal(t1))
	assert.True(t, bAfter.ScheduledFor.Equal(t2))
}

func TestReorderLeavesPublishingPostsAlone(t *testing.T) {
	s, pr := newTestQueueService()

	t1 := queueNow.Add(24 * time.Hour)
	inFlight := pr.add(&models.QueuedPost{
		UserID:       1,
		AccountID:    10,
		Status:       models.PostStatusUploading,
		ScheduledFor: queueNow.Add(-time.Minute),
	})
	a := scheduledPost(pr, 1, 10, t1)

	err := s.Reorder(context.Background(), 1, &transfer.ReorderRequest{
		AccountID: 10,
		PostIDs:   []int64{a.ID, inFlight.ID},
	})
	require.NoError(t, err)

	inFlightAfter, _ := pr.GetByID(context.Background(), inFlight.ID)
	aAfter, _ := pr.GetByID(context.Background(), a.ID)
	assert.True(t, inFlightAfter.ScheduledFor.Equal(queueNow.Add(-time.Minute)))
	assert.True(t, aAfter.ScheduledFor.Equal(t1))
}

func TestCancelScheduledPost(t *testing.T) {
	s, pr := newTestQueueService()
	post := scheduledPost(pr, 1, 10, queueNow.Add(24*time.Hour))

	err := s.Cancel(context.Background(), 1, post.ID)
	require.NoError(t, err)

	after, _ := pr.GetByID(context.Background(), post.ID)
	assert.Equal(t, models.PostStatusCancelled, after.Status)
}

func TestCancelRejectsTerminalPost(t *testing.T) {
	s, pr := newTestQueueService()
	post := pr.add(&models.QueuedPost{
		UserID: 1,
		Status: models.PostStatusPublished,
	})

	err := s.Cancel(context.Background(), 1, post.ID)
	assert.ErrorIs(t, err, ErrPostNotCancellable)

	after, _ := pr.GetByID(context.Background(), post.ID)
	assert.Equal(t, models.PostStatusPublished, after.Status)
}

func TestCancelRejectsForeignPost(t *testing.T) {
	s, pr := newTestQueueService()
	post := scheduledPost(pr, 2, 20, queueNow.Add(24*time.Hour))

	err := s.Cancel(context.Background(), 1, post.ID)
	assert.ErrorIs(t, err, ErrPostNotFound)
}

func TestEditCaption(t *testing.T) {
	s, pr := newTestQueueService()
	post := scheduledPost(pr, 1, 10, queueNow.Add(24*time.Hour))

	caption := "new caption"
	err := s.Edit(context.Background(), 1, &transfer.PostEdit{
		PostID:  post.ID,
		Caption: &caption,
	})
	require.NoError(t, err)

	after, _ := pr.GetByID(context.Background(), post.ID)
	assert.Equal(t, "new caption", after.Caption)
	assert.True(t, after.ScheduledFor.Equal(queueNow.Add(24*time.Hour)))
}

func TestEditRejectsTerminalPost(t *testing.T) {
	s, pr := newTestQueueService()
	post := pr.add(&models.QueuedPost{
		UserID: 1,
		Status: models.PostStatusFailed,
	})

	caption := "too late"
	err := s.Edit(context.Background(), 1, &transfer.PostEdit{PostID: post.ID, Caption: &caption})
	assert.ErrorIs(t, err, ErrPostNotEditable)
}

func TestEditRejectsOccupiedInstant(t *testing.T) {
	s, pr := newTestQueueService()

	taken := queueNow.Add(48 * time.Hour)
	scheduledPost(pr, 1, 10, taken)
	post := scheduledPost(pr, 1, 10, queueNow.Add(24*time.Hour))

	err := s.Edit(context.Background(), 1, &transfer.PostEdit{
		PostID:       post.ID,
		ScheduledFor: &taken,
	})
	assert.ErrorIs(t, err, ErrSlotOccupied)
}

func TestEditMovesToFreeInstant(t *testing.T) {
	s, pr := newTestQueueService()
	post := scheduledPost(pr, 1, 10, queueNow.Add(24*time.Hour))

	target := queueNow.Add(96 * time.Hour)
	err := s.Edit(context.Background(), 1, &transfer.PostEdit{
		PostID:       post.ID,
		ScheduledFor: &target,
	})
	require.NoError(t, err)

	after, _ := pr.GetByID(context.Background(), post.ID)
	assert.True(t, after.ScheduledFor.Equal(target))
}

func TestPublishNowPullsInstantForward(t *testing.T) {
	s, pr := newTestQueueService()
	post := scheduledPost(pr, 1, 10, queueNow.Add(24*time.Hour))

	err := s.PublishNow(context.Background(), 1, post.ID)
	require.NoError(t, err)

	after, _ := pr.GetByID(context.Background(), post.ID)
	assert.True(t, after.ScheduledFor.Equal(queueNow))
	assert.Equal(t, models.PostStatusScheduled, after.Status)
}

func TestPublishNowRejectsInFlightPost(t *testing.T) {
	s, pr := newTestQueueService()
	post := pr.add(&models.QueuedPost{
		UserID: 1,
		Status: models.PostStatusUploading,
	})

	err := s.PublishNow(context.Background(), 1, post.ID)
	assert.ErrorIs(t, err, ErrPostNotEditable)
}

func TestStats(t *testing.T) {
	s, pr := newTestQueueService()

	next := queueNow.Add(24 * time.Hour)
	scheduledPost(pr, 1, 10, next)
	scheduledPost(pr, 1, 10, queueNow.Add(48*time.Hour))
	pr.add(&models.QueuedPost{UserID: 1, Status: models.PostStatusPublished})
	pr.add(&models.QueuedPost{UserID: 2, Status: models.PostStatusScheduled, ScheduledFor: queueNow.Add(time.Hour)})

	stats, err := s.Stats(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Counts[models.PostStatusScheduled])
	assert.Equal(t, 1, stats.Counts[models.PostStatusPublished])
	require.NotNil(t, stats.NextUpcoming)
	assert.True(t, stats.NextUpcoming.Equal(next))
}
