package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/reelflow/reelflow/internal/models"
)

const queuedPostColumns = `id, user_id, account_id, video_id, caption, hashtags,
	scheduled_for, status, attempt_count, caption_generated, last_error,
	ig_container_id, ig_media_id, ig_permalink, published_at, created_at, updated_at`

type QueuedPostRepository interface {
	Create(ctx context.Context, tx *sql.Tx, post *models.QueuedPost) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.QueuedPost, error)
	ListByUserID(ctx context.Context, userID int64, status string) ([]*models.QueuedPost, error)
	ListActiveInWindow(ctx context.Context, accountID int64, from, to time.Time) ([]*models.QueuedPost, error)
	ListDue(ctx context.Context, now time.Time) ([]*models.QueuedPost, error)
	ListStuck(ctx context.Context, cutoff time.Time) ([]*models.QueuedPost, error)
	HasActiveForVideo(ctx context.Context, videoID int64) (bool, error)
	CheckByUserID(ctx context.Context, postID, userID int64) (bool, error)
	UpdateStatus(ctx context.Context, status string, postID int64) error
	ClaimForPublish(ctx context.Context, postID int64) (bool, error)
	UpdateCaption(ctx context.Context, postID int64, caption, hashtags string) error
	UpdateScheduledFor(ctx context.Context, postID int64, scheduledFor time.Time) error
	ReassignScheduledFor(ctx context.Context, instants map[int64]time.Time) error
	SetContainerID(ctx context.Context, postID int64, containerID string) error
	MarkPublished(ctx context.Context, postID int64, mediaID, permalink string, publishedAt time.Time) error
	MarkAttemptFailed(ctx context.Context, postID int64, status, lastError string) error
	CancelActiveByAccount(ctx context.Context, accountID int64) (int64, error)
	CountByStatus(ctx context.Context, userID int64) (map[string]int, error)
	NextUpcoming(ctx context.Context, userID int64, now time.Time) (*time.Time, error)
}

type queuedPostRepository struct {
	db *sql.DB
}

func NewQueuedPostRepository(db *sql.DB) QueuedPostRepository {
	return &queuedPostRepository{db: db}
}

func scanQueuedPost(row interface{ Scan(...interface{}) error }) (*models.QueuedPost, error) {
	var p models.QueuedPost
	err := row.Scan(&p.ID, &p.UserID, &p.AccountID, &p.VideoID, &p.Caption, &p.Hashtags,
		&p.ScheduledFor, &p.Status, &p.AttemptCount, &p.CaptionGenerated, &p.LastError,
		&p.IGContainerID, &p.IGMediaID, &p.IGPermalink, &p.PublishedAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *queuedPostRepository) Create(ctx context.Context, tx *sql.Tx, post *models.QueuedPost) (int64, error) {
	query := `
		INSERT INTO queued_posts (user_id, account_id, video_id, caption, hashtags, scheduled_for, status, caption_generated)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	var id int64
	var err error

	if tx != nil {
		err = tx.QueryRowContext(ctx, query, post.UserID, post.AccountID, post.VideoID,
			post.Caption, post.Hashtags, post.ScheduledFor, post.Status, post.CaptionGenerated).Scan(&id)
	} else {
		err = r.db.QueryRowContext(ctx, query, post.UserID, post.AccountID, post.VideoID,
			post.Caption, post.Hashtags, post.ScheduledFor, post.Status, post.CaptionGenerated).Scan(&id)
	}
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *queuedPostRepository) GetByID(ctx context.Context, id int64) (*models.QueuedPost, error) {
	query := `SELECT ` + queuedPostColumns + ` FROM queued_posts WHERE id = $1`
	post, err := scanQueuedPost(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return post, nil
}

func (r *queuedPostRepository) ListByUserID(ctx context.Context, userID int64, status string) ([]*models.QueuedPost, error) {
	query := `SELECT ` + queuedPostColumns + ` FROM queued_posts WHERE user_id = $1`
	args := []interface{}{userID}

	if status != "" {
		query += ` AND status = $2`
		args = append(args, status)
	}
	query += ` ORDER BY scheduled_for ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	return collectQueuedPosts(rows)
}

// ListActiveInWindow returns non-terminal posts for one account whose
// scheduled_for falls within [from, to]. Used to build the occupied-instant
// set during slot assignment.
func (r *queuedPostRepository) ListActiveInWindow(ctx context.Context, accountID int64, from, to time.Time) ([]*models.QueuedPost, error) {
	query := `SELECT ` + queuedPostColumns + `
		FROM queued_posts
		WHERE account_id = $1
		AND scheduled_for BETWEEN $2 AND $3
		AND status NOT IN ($4, $5, $6)`

	rows, err := r.db.QueryContext(ctx, query, accountID, from, to,
		models.PostStatusPublished, models.PostStatusFailed, models.PostStatusCancelled)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	return collectQueuedPosts(rows)
}

// ListDue returns scheduled posts whose instant has passed, oldest first.
func (r *queuedPostRepository) ListDue(ctx context.Context, now time.Time) ([]*models.QueuedPost, error) {
	query := `SELECT ` + queuedPostColumns + `
		FROM queued_posts
		WHERE status = $1 AND scheduled_for <= $2
		ORDER BY scheduled_for ASC`

	rows, err := r.db.QueryContext(ctx, query, models.PostStatusScheduled, now)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	return collectQueuedPosts(rows)
}

// ListStuck returns posts abandoned in an in-flight status by a crashed cycle.
func (r *queuedPostRepository) ListStuck(ctx context.Context, cutoff time.Time) ([]*models.QueuedPost, error) {
	query := `SELECT ` + queuedPostColumns + `
		FROM queued_posts
		WHERE status IN ($1, $2) AND updated_at < $3
		ORDER BY updated_at ASC`

	rows, err := r.db.QueryContext(ctx, query,
		models.PostStatusUploading, models.PostStatusProcessingVideo, cutoff)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	return collectQueuedPosts(rows)
}

func (r *queuedPostRepository) HasActiveForVideo(ctx context.Context, videoID int64) (bool, error) {
	query := `SELECT 1 FROM queued_posts
		WHERE video_id = $1 AND status NOT IN ($2, $3, $4)
		LIMIT 1`

	var result int
	err := r.db.QueryRowContext(ctx, query, videoID,
		models.PostStatusPublished, models.PostStatusFailed, models.PostStatusCancelled).Scan(&result)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		slog.Info(err.Error())
		return false, err
	}

	return result == 1, nil
}

func (r *queuedPostRepository) CheckByUserID(ctx context.Context, postID, userID int64) (bool, error) {
	query := "SELECT 1 FROM queued_posts WHERE id = $1 AND user_id = $2"

	var result int
	err := r.db.QueryRowContext(ctx, query, postID, userID).Scan(&result)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		slog.Info(err.Error())
		return false, err
	}

	return result == 1, nil
}

func (r *queuedPostRepository) UpdateStatus(ctx context.Context, status string, postID int64) error {
	query := `
		UPDATE queued_posts
		SET status = $1,
			updated_at = $2
		WHERE id = $3
	`
	_, err := r.db.ExecContext(ctx, query, status, time.Now(), postID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

// ClaimForPublish moves a post to uploading only if it is still scheduled.
// The conditional update is what keeps the cron cycle and the publish-now
// worker from both publishing the same post: whichever loses the race sees
// zero rows affected and backs off.
func (r *queuedPostRepository) ClaimForPublish(ctx context.Context, postID int64) (bool, error) {
	query := `
		UPDATE queued_posts
		SET status = $1,
			updated_at = $2
		WHERE id = $3 AND status = $4
	`
	result, err := r.db.ExecContext(ctx, query, models.PostStatusUploading, time.Now(), postID, models.PostStatusScheduled)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	return affected == 1, nil
}

func (r *queuedPostRepository) UpdateCaption(ctx context.Context, postID int64, caption, hashtags string) error {
	query := `
		UPDATE queued_posts
		SET caption = $1,
			hashtags = $2,
			caption_generated = FALSE,
			updated_at = $3
		WHERE id = $4
	`
	_, err := r.db.ExecContext(ctx, query, caption, hashtags, time.Now(), postID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *queuedPostRepository) UpdateScheduledFor(ctx context.Context, postID int64, scheduledFor time.Time) error {
	query := `
		UPDATE queued_posts
		SET scheduled_for = $1,
			updated_at = $2
		WHERE id = $3
	`
	_, err := r.db.ExecContext(ctx, query, scheduledFor, time.Now(), postID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

// ReassignScheduledFor applies a set of instant reassignments inside one
// transaction so a crash mid-reorder cannot leave two posts sharing an
// instant.
func (r *queuedPostRepository) ReassignScheduledFor(ctx context.Context, instants map[int64]time.Time) error {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	defer tx.Rollback()

	query := `
		UPDATE queued_posts
		SET scheduled_for = $1,
			updated_at = $2
		WHERE id = $3
	`
	for postID, scheduledFor := range instants {
		if _, err := tx.ExecContext(ctx, query, scheduledFor, time.Now(), postID); err != nil {
			slog.Info(err.Error())
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *queuedPostRepository) SetContainerID(ctx context.Context, postID int64, containerID string) error {
	query := `
		UPDATE queued_posts
		SET ig_container_id = $1,
			updated_at = $2
		WHERE id = $3
	`
	_, err := r.db.ExecContext(ctx, query, containerID, time.Now(), postID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *queuedPostRepository) MarkPublished(ctx context.Context, postID int64, mediaID, permalink string, publishedAt time.Time) error {
	query := `
		UPDATE queued_posts
		SET status = $1,
			ig_media_id = $2,
			ig_permalink = $3,
			published_at = $4,
			last_error = '',
			updated_at = $5
		WHERE id = $6
	`
	_, err := r.db.ExecContext(ctx, query, models.PostStatusPublished, mediaID, permalink, publishedAt, time.Now(), postID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

// MarkAttemptFailed records a failed publish attempt: increments the attempt
// counter and moves the post to the given status (scheduled for another try,
// or failed once the ceiling is hit).
func (r *queuedPostRepository) MarkAttemptFailed(ctx context.Context, postID int64, status, lastError string) error {
	query := `
		UPDATE queued_posts
		SET status = $1,
			attempt_count = attempt_count + 1,
			last_error = $2,
			updated_at = $3
		WHERE id = $4
	`
	_, err := r.db.ExecContext(ctx, query, status, lastError, time.Now(), postID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *queuedPostRepository) CancelActiveByAccount(ctx context.Context, accountID int64) (int64, error) {
	query := `
		UPDATE queued_posts
		SET status = $1,
			updated_at = $2
		WHERE account_id = $3 AND status NOT IN ($4, $5, $6)
	`
	result, err := r.db.ExecContext(ctx, query, models.PostStatusCancelled, time.Now(), accountID,
		models.PostStatusPublished, models.PostStatusFailed, models.PostStatusCancelled)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return affected, nil
}

func (r *queuedPostRepository) CountByStatus(ctx context.Context, userID int64) (map[string]int, error) {
	query := `SELECT status, COUNT(*) FROM queued_posts WHERE user_id = $1 GROUP BY status`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		counts[status] = count
	}
	return counts, nil
}

func (r *queuedPostRepository) NextUpcoming(ctx context.Context, userID int64, now time.Time) (*time.Time, error) {
	query := `SELECT MIN(scheduled_for) FROM queued_posts
		WHERE user_id = $1 AND status = $2 AND scheduled_for > $3`

	var next sql.NullTime
	err := r.db.QueryRowContext(ctx, query, userID, models.PostStatusScheduled, now).Scan(&next)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	if !next.Valid {
		return nil, nil
	}
	return &next.Time, nil
}

func collectQueuedPosts(rows *sql.Rows) ([]*models.QueuedPost, error) {
	var posts []*models.QueuedPost
	for rows.Next() {
		post, err := scanQueuedPost(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return posts, nil
}
