package models

import "time"

// QueuedPost binds one processed video to one social account and one absolute
// publish instant. Rows are never deleted; cancellation is a terminal status.
type QueuedPost struct {
	ID               int64      `db:"id" json:"id"`
	UserID           int64      `db:"user_id" json:"user_id"`
	AccountID        int64      `db:"account_id" json:"account_id"`
	VideoID          int64      `db:"video_id" json:"video_id"`
	Caption          string     `db:"caption" json:"caption"`
	Hashtags         string     `db:"hashtags" json:"hashtags"`
	ScheduledFor     time.Time  `db:"scheduled_for" json:"scheduled_for"`
	Status           string     `db:"status" json:"status"`
	AttemptCount     int        `db:"attempt_count" json:"attempt_count"`
	CaptionGenerated bool       `db:"caption_generated" json:"caption_generated"`
	LastError        string     `db:"last_error" json:"last_error"`
	IGContainerID    string     `db:"ig_container_id" json:"-"`
	IGMediaID        string     `db:"ig_media_id" json:"ig_media_id"`
	IGPermalink      string     `db:"ig_permalink" json:"ig_permalink"`
	PublishedAt      *time.Time `db:"published_at" json:"published_at"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}

const (
	// PostStatusQueued is a post not yet bound to a slot instant.
	PostStatusQueued = "queued"
	// PostStatusScheduled is the initial assigned state, awaiting its due time.
	PostStatusScheduled = "scheduled"
	// PostStatusUploading covers the media-container upload to Instagram.
	PostStatusUploading = "uploading"
	// PostStatusProcessingVideo covers Instagram-side video processing before
	// the container can be published.
	PostStatusProcessingVideo = "processing_video"
	PostStatusPublished       = "published"
	PostStatusFailed          = "failed"
	PostStatusCancelled       = "cancelled"
)

// IsTerminal reports whether no further transition is permitted.
func (p *QueuedPost) IsTerminal() bool {
	switch p.Status {
	case PostStatusPublished, PostStatusFailed, PostStatusCancelled:
		return true
	}
	return false
}

// InFlight reports whether a publish attempt currently owns the post.
func (p *QueuedPost) InFlight() bool {
	return p.Status == PostStatusUploading || p.Status == PostStatusProcessingVideo
}

// CanEdit reports whether caption and scheduled time may still change.
// Edits are rejected once publishing has started or finished.
func (p *QueuedPost) CanEdit() bool {
	return p.Status == PostStatusQueued || p.Status == PostStatusScheduled
}

// CanCancel reports whether the post may move to cancelled.
func (p *QueuedPost) CanCancel() bool {
	return !p.IsTerminal()
}
