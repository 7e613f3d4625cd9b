package models

import "time"

// SlotDefinition is one recurring weekly posting opportunity for a social
// account. Uniqueness over (account_id, day_of_week, time_of_day) is enforced
// by the database.
type SlotDefinition struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	AccountID int64     `db:"account_id" json:"account_id"`
	DayOfWeek int       `db:"day_of_week" json:"day_of_week"` // 0 = Sunday .. 6 = Saturday
	TimeOfDay string    `db:"time_of_day" json:"time_of_day"` // "HH:MM"
	Timezone  string    `db:"timezone" json:"timezone"`       // IANA name
	IsActive  bool      `db:"is_active" json:"is_active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
