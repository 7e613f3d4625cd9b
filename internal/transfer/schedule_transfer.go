package transfer

import "time"

type AssignRequest struct {
	VideoID   int64  `json:"video_id"`
	AccountID int64  `json:"account_id"`
	Caption   string `json:"caption"`
	Hashtags  string `json:"hashtags"`
}

type AssignResult struct {
	PostID       int64     `json:"post_id"`
	ScheduledFor time.Time `json:"scheduled_for"`
}

type SlotCreation struct {
	AccountID int64  `json:"account_id"`
	DayOfWeek int    `json:"day_of_week"`
	TimeOfDay string `json:"time_of_day"`
	Timezone  string `json:"timezone"`
}

type SlotUpdate struct {
	SlotID    int64  `json:"slot_id"`
	DayOfWeek int    `json:"day_of_week"`
	TimeOfDay string `json:"time_of_day"`
	Timezone  string `json:"timezone"`
	IsActive  bool   `json:"is_active"`
}

// SlotPreset is the "quick setup" bulk replace: the full new slot set for one
// account, applied transactionally.
type SlotPreset struct {
	AccountID int64        `json:"account_id"`
	Timezone  string       `json:"timezone"`
	Slots     []PresetSlot `json:"slots"`
}

type PresetSlot struct {
	DayOfWeek int    `json:"day_of_week"`
	TimeOfDay string `json:"time_of_day"`
}

type ReorderRequest struct {
	AccountID int64   `json:"account_id"`
	PostIDs   []int64 `json:"post_ids"`
}

type PostEdit struct {
	PostID       int64      `json:"post_id"`
	Caption      *string    `json:"caption"`
	Hashtags     *string    `json:"hashtags"`
	ScheduledFor *time.Time `json:"scheduled_for"`
}

type QueueStats struct {
	Counts       map[string]int `json:"counts"`
	NextUpcoming *time.Time     `json:"next_upcoming"`
}
