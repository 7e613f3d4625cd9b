package service

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"github.com/reelflow/reelflow/internal/models"
)

// In-memory repository fakes. They mirror the SQL semantics closely enough
// for service-level tests: window bounds are inclusive, list methods sort by
// scheduled_for, MarkAttemptFailed increments the attempt counter.

type fakePostRepo struct {
	nextID      int64
	posts       map[int64]*models.QueuedPost
	reassignErr error
}

func newFakePostRepo() *fakePostRepo {
	return &fakePostRepo{posts: make(map[int64]*models.QueuedPost)}
}

func (f *fakePostRepo) add(post *models.QueuedPost) *models.QueuedPost {
	f.nextID++
	post.ID = f.nextID
	f.posts[post.ID] = post
	return post
}

func terminal(status string) bool {
	return status == models.PostStatusPublished ||
		status == models.PostStatusFailed ||
		status == models.PostStatusCancelled
}

func (f *fakePostRepo) Create(ctx context.Context, tx *sql.Tx, post *models.QueuedPost) (int64, error) {
	cp := *post
	f.add(&cp)
	return cp.ID, nil
}

func (f *fakePostRepo) GetByID(ctx context.Context, id int64) (*models.QueuedPost, error) {
	post, ok := f.posts[id]
	if !ok {
		return nil, nil
	}
	cp := *post
	return &cp, nil
}

func (f *fakePostRepo) ListByUserID(ctx context.Context, userID int64, status string) ([]*models.QueuedPost, error) {
	var out []*models.QueuedPost
	for _, p := range f.posts {
		if p.UserID != userID {
			continue
		}
		if status != "" && p.Status != status {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledFor.Before(out[j].ScheduledFor) })
	return out, nil
}

func (f *fakePostRepo) ListActiveInWindow(ctx context.Context, accountID int64, from, to time.Time) ([]*models.QueuedPost, error) {
	var out []*models.QueuedPost
	for _, p := range f.posts {
		if p.AccountID != accountID || terminal(p.Status) {
			continue
		}
		if p.ScheduledFor.Before(from) || p.ScheduledFor.After(to) {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakePostRepo) ListDue(ctx context.Context, now time.Time) ([]*models.QueuedPost, error) {
	var out []*models.QueuedPost
	for _, p := range f.posts {
		if p.Status == models.PostStatusScheduled && !p.ScheduledFor.After(now) {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledFor.Before(out[j].ScheduledFor) })
	return out, nil
}

func (f *fakePostRepo) ListStuck(ctx context.Context, cutoff time.Time) ([]*models.QueuedPost, error) {
	var out []*models.QueuedPost
	for _, p := range f.posts {
		inFlight := p.Status == models.PostStatusUploading || p.Status == models.PostStatusProcessingVideo
		if inFlight && p.UpdatedAt.Before(cutoff) {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	return out, nil
}

func (f *fakePostRepo) HasActiveForVideo(ctx context.Context, videoID int64) (bool, error) {
	for _, p := range f.posts {
		if p.VideoID == videoID && !terminal(p.Status) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakePostRepo) CheckByUserID(ctx context.Context, postID, userID int64) (bool, error) {
	p, ok := f.posts[postID]
	return ok && p.UserID == userID, nil
}

func (f *fakePostRepo) UpdateStatus(ctx context.Context, status string, postID int64) error {
	if p, ok := f.posts[postID]; ok {
		p.Status = status
		p.UpdatedAt = time.Now()
	}
	return nil
}

func (f *fakePostRepo) ClaimForPublish(ctx context.Context, postID int64) (bool, error) {
	p, ok := f.posts[postID]
	if !ok || p.Status != models.PostStatusScheduled {
		return false, nil
	}
	p.Status = models.PostStatusUploading
	p.UpdatedAt = time.Now()
	return true, nil
}

func (f *fakePostRepo) UpdateCaption(ctx context.Context, postID int64, caption, hashtags string) error {
	if p, ok := f.posts[postID]; ok {
		p.Caption = caption
		p.Hashtags = hashtags
		p.CaptionGenerated = false
	}
	return nil
}

func (f *fakePostRepo) UpdateScheduledFor(ctx context.Context, postID int64, scheduledFor time.Time) error {
	if p, ok := f.posts[postID]; ok {
		p.ScheduledFor = scheduledFor
	}
	return nil
}

// ReassignScheduledFor is all-or-nothing like the SQL transaction it mirrors.
func (f *fakePostRepo) ReassignScheduledFor(ctx context.Context, instants map[int64]time.Time) error {
	if f.reassignErr != nil {
		return f.reassignErr
	}
	for postID, scheduledFor := range instants {
		if p, ok := f.posts[postID]; ok {
			p.ScheduledFor = scheduledFor
		}
	}
	return nil
}

func (f *fakePostRepo) SetContainerID(ctx context.Context, postID int64, containerID string) error {
	if p, ok := f.posts[postID]; ok {
		p.IGContainerID = containerID
	}
	return nil
}

func (f *fakePostRepo) MarkPublished(ctx context.Context, postID int64, mediaID, permalink string, publishedAt time.Time) error {
	if p, ok := f.posts[postID]; ok {
		p.Status = models.PostStatusPublished
		p.IGMediaID = mediaID
		p.IGPermalink = permalink
		p.PublishedAt = &publishedAt
		p.LastError = ""
	}
	return nil
}

func (f *fakePostRepo) MarkAttemptFailed(ctx context.Context, postID int64, status, lastError string) error {
	if p, ok := f.posts[postID]; ok {
		p.Status = status
		p.AttemptCount++
		p.LastError = lastError
	}
	return nil
}

func (f *fakePostRepo) CancelActiveByAccount(ctx context.Context, accountID int64) (int64, error) {
	var affected int64
	for _, p := range f.posts {
		if p.AccountID == accountID && !terminal(p.Status) {
			p.Status = models.PostStatusCancelled
			affected++
		}
	}
	return affected, nil
}

func (f *fakePostRepo) CountByStatus(ctx context.Context, userID int64) (map[string]int, error) {
	counts := make(map[string]int)
	for _, p := range f.posts {
		if p.UserID == userID {
			counts[p.Status]++
		}
	}
	return counts, nil
}

func (f *fakePostRepo) NextUpcoming(ctx context.Context, userID int64, now time.Time) (*time.Time, error) {
	var next *time.Time
	for _, p := range f.posts {
		if p.UserID != userID || p.Status != models.PostStatusScheduled || !p.ScheduledFor.After(now) {
			continue
		}
		t := p.ScheduledFor
		if next == nil || t.Before(*next) {
			next = &t
		}
	}
	return next, nil
}

type fakeSlotRepo struct {
	nextID int64
	slots  map[int64]*models.SlotDefinition
}

func newFakeSlotRepo() *fakeSlotRepo {
	return &fakeSlotRepo{slots: make(map[int64]*models.SlotDefinition)}
}

func (f *fakeSlotRepo) add(slot *models.SlotDefinition) *models.SlotDefinition {
	f.nextID++
	slot.ID = f.nextID
	f.slots[slot.ID] = slot
	return slot
}

func (f *fakeSlotRepo) Create(ctx context.Context, tx *sql.Tx, slot *models.SlotDefinition) (int64, error) {
	cp := *slot
	f.add(&cp)
	return cp.ID, nil
}

func (f *fakeSlotRepo) GetByID(ctx context.Context, id int64) (*models.SlotDefinition, error) {
	slot, ok := f.slots[id]
	if !ok {
		return nil, nil
	}
	cp := *slot
	return &cp, nil
}

func (f *fakeSlotRepo) ListByAccountID(ctx context.Context, accountID int64) ([]*models.SlotDefinition, error) {
	var out []*models.SlotDefinition
	for _, s := range f.slots {
		if s.AccountID == accountID {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeSlotRepo) ListActive(ctx context.Context, userID, accountID int64) ([]*models.SlotDefinition, error) {
	var out []*models.SlotDefinition
	for _, s := range f.slots {
		if s.UserID == userID && s.AccountID == accountID && s.IsActive {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeSlotRepo) Update(ctx context.Context, slot *models.SlotDefinition) error {
	if existing, ok := f.slots[slot.ID]; ok {
		existing.DayOfWeek = slot.DayOfWeek
		existing.TimeOfDay = slot.TimeOfDay
		existing.Timezone = slot.Timezone
		existing.IsActive = slot.IsActive
	}
	return nil
}

func (f *fakeSlotRepo) Remove(ctx context.Context, id int64) error {
	delete(f.slots, id)
	return nil
}

func (f *fakeSlotRepo) ReplaceForAccount(ctx context.Context, userID, accountID int64, slots []*models.SlotDefinition) error {
	for id, s := range f.slots {
		if s.AccountID == accountID {
			delete(f.slots, id)
		}
	}
	for _, s := range slots {
		cp := *s
		f.add(&cp)
	}
	return nil
}

func (f *fakeSlotRepo) CheckByUserID(ctx context.Context, slotID, userID int64) (bool, error) {
	s, ok := f.slots[slotID]
	return ok && s.UserID == userID, nil
}

type fakeVideoRepo struct {
	videos map[int64]*models.Video
}

func newFakeVideoRepo() *fakeVideoRepo {
	return &fakeVideoRepo{videos: make(map[int64]*models.Video)}
}

func (f *fakeVideoRepo) Create(ctx context.Context, tx *sql.Tx, video *models.Video) (int64, error) {
	f.videos[video.ID] = video
	return video.ID, nil
}

func (f *fakeVideoRepo) GetByID(ctx context.Context, id int64) (*models.Video, error) {
	v, ok := f.videos[id]
	if !ok {
		return nil, nil
	}
	cp := *v
	return &cp, nil
}

func (f *fakeVideoRepo) ListByUserID(ctx context.Context, userID int64) ([]*models.Video, error) {
	var out []*models.Video
	for _, v := range f.videos {
		if v.UserID == userID {
			cp := *v
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeVideoRepo) CheckByUserID(ctx context.Context, videoID, userID int64) (bool, error) {
	v, ok := f.videos[videoID]
	return ok && v.UserID == userID, nil
}

type fakeAccountRepo struct {
	accounts map[int64]*models.SocialAccount
}

func newFakeAccountRepo() *fakeAccountRepo {
	return &fakeAccountRepo{accounts: make(map[int64]*models.SocialAccount)}
}

func (f *fakeAccountRepo) Create(ctx context.Context, tx *sql.Tx, sa *models.SocialAccount) (int64, error) {
	f.accounts[sa.ID] = sa
	return sa.ID, nil
}

func (f *fakeAccountRepo) GetByID(ctx context.Context, id int64) (*models.SocialAccount, error) {
	a, ok := f.accounts[id]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (f *fakeAccountRepo) ListInfoByUserID(ctx context.Context, userID int64) ([]*models.SocialAccount, error) {
	var out []*models.SocialAccount
	for _, a := range f.accounts {
		if a.UserID == userID {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeAccountRepo) ListExpiring(ctx context.Context, before time.Time) ([]*models.SocialAccount, error) {
	var out []*models.SocialAccount
	for _, a := range f.accounts {
		if a.IsActive && a.TokenExpiresAt.Before(before) {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeAccountRepo) CheckByUserID(ctx context.Context, accountID, userID int64) (bool, error) {
	a, ok := f.accounts[accountID]
	return ok && a.UserID == userID, nil
}

func (f *fakeAccountRepo) SetToken(ctx context.Context, accountID int64, accessToken, refreshToken string, expiresAt time.Time) error {
	if a, ok := f.accounts[accountID]; ok {
		a.AccessToken = accessToken
		a.RefreshToken = refreshToken
		a.TokenExpiresAt = expiresAt
	}
	return nil
}

func (f *fakeAccountRepo) Deactivate(ctx context.Context, accountID int64, lastError string) error {
	if a, ok := f.accounts[accountID]; ok {
		a.IsActive = false
		a.LastError = lastError
	}
	return nil
}

type fakeCaption struct {
	caption  string
	hashtags string
	err      error
	calls    int
}

func (f *fakeCaption) Generate(ctx context.Context, transcript, title string) (string, string, error) {
	f.calls++
	return f.caption, f.hashtags, f.err
}
