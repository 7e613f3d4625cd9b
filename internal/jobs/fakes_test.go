package job

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"github.com/reelflow/reelflow/internal/models"
)

type fakePostRepo struct {
	nextID int64
	posts  map[int64]*models.QueuedPost
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
	return nil, nil
}

func (f *fakePostRepo) ListActiveInWindow(ctx context.Context, accountID int64, from, to time.Time) ([]*models.QueuedPost, error) {
	return nil, nil
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

func (f *fakePostRepo) ReassignScheduledFor(ctx context.Context, instants map[int64]time.Time) error {
	for postID, scheduledFor := range instants {
		if p, ok := f.posts[postID]; ok {
			p.ScheduledFor = scheduledFor
		}
	}
	return nil
}

func (f *fakePostRepo) UpdateCaption(ctx context.Context, postID int64, caption, hashtags string) error {
	if p, ok := f.posts[postID]; ok {
		p.Caption = caption
		p.Hashtags = hashtags
	}
	return nil
}

func (f *fakePostRepo) UpdateScheduledFor(ctx context.Context, postID int64, scheduledFor time.Time) error {
	if p, ok := f.posts[postID]; ok {
		p.ScheduledFor = scheduledFor
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
	return nil, nil
}

func (f *fakePostRepo) NextUpcoming(ctx context.Context, userID int64, now time.Time) (*time.Time, error) {
	return nil, nil
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
	return nil, nil
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
	return nil, nil
}

func (f *fakeVideoRepo) CheckByUserID(ctx context.Context, videoID, userID int64) (bool, error) {
	v, ok := f.videos[videoID]
	return ok && v.UserID == userID, nil
}

// fakePublisher scripts the Instagram side of a publish attempt.
type fakePublisher struct {
	containerID string
	startErr    error
	mediaID     string
	permalink   string
	finishErr   error

	containerStatuses map[string]string
	statusErr         error

	refreshedToken string
	refreshExpiry  time.Time
	refreshErr     error

	startCalls   int
	finishCalls  int
	refreshCalls int
	lastToken    string
	lastVideoURL string
	lastCaption  string
}

func (f *fakePublisher) StartUpload(ctx context.Context, igUserID, accessToken, videoURL, caption string) (string, error) {
	f.startCalls++
	f.lastToken = accessToken
	f.lastVideoURL = videoURL
	f.lastCaption = caption
	if f.startErr != nil {
		return "", f.startErr
	}
	return f.containerID, nil
}

func (f *fakePublisher) FinishPublish(ctx context.Context, igUserID, accessToken, containerID string) (string, string, error) {
	f.finishCalls++
	if f.finishErr != nil {
		return "", "", f.finishErr
	}
	return f.mediaID, f.permalink, nil
}

func (f *fakePublisher) ContainerStatus(ctx context.Context, accessToken, containerID string) (string, error) {
	if f.statusErr != nil {
		return "", f.statusErr
	}
	return f.containerStatuses[containerID], nil
}

func (f *fakePublisher) RefreshToken(ctx context.Context, refreshToken string) (string, time.Time, error) {
	f.refreshCalls++
	if f.refreshErr != nil {
		return "", time.Time{}, f.refreshErr
	}
	return f.refreshedToken, f.refreshExpiry, nil
}

type fakeStore struct {
	url string
	err error
}

func (f *fakeStore) PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.url, nil
}
