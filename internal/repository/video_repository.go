package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/reelflow/reelflow/internal/models"
)

type VideoRepository interface {
	Create(ctx context.Context, tx *sql.Tx, video *models.Video) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Video, error)
	ListByUserID(ctx context.Context, userID int64) ([]*models.Video, error)
	CheckByUserID(ctx context.Context, videoID, userID int64) (bool, error)
}

type videoRepository struct {
	db *sql.DB
}

func NewVideoRepository(db *sql.DB) VideoRepository {
	return &videoRepository{db: db}
}

func (r *videoRepository) Create(ctx context.Context, tx *sql.Tx, video *models.Video) (int64, error) {
	query := `
		INSERT INTO videos (user_id, title, transcript, storage_key, file_url, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	var id int64
	var err error

	if tx != nil {
		err = tx.QueryRowContext(ctx, query, video.UserID, video.Title, video.Transcript,
			video.StorageKey, video.FileURL, video.Status).Scan(&id)
	} else {
		err = r.db.QueryRowContext(ctx, query, video.UserID, video.Title, video.Transcript,
			video.StorageKey, video.FileURL, video.Status).Scan(&id)
	}
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *videoRepository) GetByID(ctx context.Context, id int64) (*models.Video, error) {
	query := `SELECT id, user_id, title, transcript, storage_key, file_url, status, created_at, updated_at
		FROM videos WHERE id = $1`
	row := r.db.QueryRowContext(ctx, query, id)

	var video models.Video
	err := row.Scan(&video.ID, &video.UserID, &video.Title, &video.Transcript,
		&video.StorageKey, &video.FileURL, &video.Status, &video.CreatedAt, &video.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return &video, nil
}

func (r *videoRepository) ListByUserID(ctx context.Context, userID int64) ([]*models.Video, error) {
	query := `SELECT id, user_id, title, transcript, storage_key, file_url, status, created_at, updated_at
		FROM videos WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var videos []*models.Video
	for rows.Next() {
		var video models.Video
		err := rows.Scan(&video.ID, &video.UserID, &video.Title, &video.Transcript,
			&video.StorageKey, &video.FileURL, &video.Status, &video.CreatedAt, &video.UpdatedAt)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		videos = append(videos, &video)
	}
	return videos, nil
}

func (r *videoRepository) CheckByUserID(ctx context.Context, videoID, userID int64) (bool, error) {
	query := "SELECT 1 FROM videos WHERE id = $1 AND user_id = $2"

	var result int
	err := r.db.QueryRowContext(ctx, query, videoID, userID).Scan(&result)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		slog.Info(err.Error())
		return false, err
	}

	return result == 1, nil
}
