package models

import "time"

// Video is the artifact produced by the external processing pipeline. The
// scheduler only consumes rows whose status is completed.
type Video struct {
	ID         int64     `db:"id" json:"id"`
	UserID     int64     `db:"user_id" json:"user_id"`
	Title      string    `db:"title" json:"title"`
	Transcript string    `db:"transcript" json:"transcript"`
	StorageKey string    `db:"storage_key" json:"storage_key"`
	FileURL    string    `db:"file_url" json:"file_url"`
	Status     string    `db:"status" json:"status"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

const (
	VideoStatusProcessing = "processing"
	VideoStatusCompleted  = "completed"
	VideoStatusFailed     = "failed"
)
