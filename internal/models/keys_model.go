package models

import "time"

type APIKey struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"-"`
	Key       string    `db:"api_key" json:"key"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
