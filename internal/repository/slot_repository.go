package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/lib/pq"
	"github.com/reelflow/reelflow/internal/models"
)

// ErrDuplicateSlot is returned when a slot with the same account, day and
// time already exists. Backed by the unique index on
// (account_id, day_of_week, time_of_day).
var ErrDuplicateSlot = errors.New("slot already exists for this day and time")

type SlotRepository interface {
	Create(ctx context.Context, tx *sql.Tx, slot *models.SlotDefinition) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.SlotDefinition, error)
	ListByAccountID(ctx context.Context, accountID int64) ([]*models.SlotDefinition, error)
	ListActive(ctx context.Context, userID, accountID int64) ([]*models.SlotDefinition, error)
	Update(ctx context.Context, slot *models.SlotDefinition) error
	Remove(ctx context.Context, id int64) error
	ReplaceForAccount(ctx context.Context, userID, accountID int64, slots []*models.SlotDefinition) error
	CheckByUserID(ctx context.Context, slotID, userID int64) (bool, error)
}

type slotRepository struct {
	db *sql.DB
}

func NewSlotRepository(db *sql.DB) SlotRepository {
	return &slotRepository{db: db}
}

const uniqueViolation = "23505"

func mapSlotError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return ErrDuplicateSlot
	}
	return err
}

func (r *slotRepository) Create(ctx context.Context, tx *sql.Tx, slot *models.SlotDefinition) (int64, error) {
	query := `
		INSERT INTO slot_definitions (user_id, account_id, day_of_week, time_of_day, timezone, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	var id int64
	var err error

	if tx != nil {
		err = tx.QueryRowContext(ctx, query, slot.UserID, slot.AccountID,
			slot.DayOfWeek, slot.TimeOfDay, slot.Timezone, slot.IsActive).Scan(&id)
	} else {
		err = r.db.QueryRowContext(ctx, query, slot.UserID, slot.AccountID,
			slot.DayOfWeek, slot.TimeOfDay, slot.Timezone, slot.IsActive).Scan(&id)
	}
	if err != nil {
		slog.Info(err.Error())
		return 0, mapSlotError(err)
	}

	return id, nil
}

func (r *slotRepository) GetByID(ctx context.Context, id int64) (*models.SlotDefinition, error) {
	query := `SELECT id, user_id, account_id, day_of_week, time_of_day, timezone, is_active, created_at, updated_at
		FROM slot_definitions WHERE id = $1`
	row := r.db.QueryRowContext(ctx, query, id)

	var slot models.SlotDefinition
	err := row.Scan(&slot.ID, &slot.UserID, &slot.AccountID, &slot.DayOfWeek,
		&slot.TimeOfDay, &slot.Timezone, &slot.IsActive, &slot.CreatedAt, &slot.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return &slot, nil
}

func (r *slotRepository) ListByAccountID(ctx context.Context, accountID int64) ([]*models.SlotDefinition, error) {
	query := `SELECT id, user_id, account_id, day_of_week, time_of_day, timezone, is_active, created_at, updated_at
		FROM slot_definitions
		WHERE account_id = $1
		ORDER BY day_of_week, time_of_day`

	rows, err := r.db.QueryContext(ctx, query, accountID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	return collectSlots(rows)
}

func (r *slotRepository) ListActive(ctx context.Context, userID, accountID int64) ([]*models.SlotDefinition, error) {
	query := `SELECT id, user_id, account_id, day_of_week, time_of_day, timezone, is_active, created_at, updated_at
		FROM slot_definitions
		WHERE user_id = $1 AND account_id = $2 AND is_active = TRUE
		ORDER BY day_of_week, time_of_day`

	rows, err := r.db.QueryContext(ctx, query, userID, accountID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	return collectSlots(rows)
}

func (r *slotRepository) Update(ctx context.Context, slot *models.SlotDefinition) error {
	query := `
		UPDATE slot_definitions
		SET day_of_week = $1,
			time_of_day = $2,
			timezone = $3,
			is_active = $4,
			updated_at = $5
		WHERE id = $6
	`
	_, err := r.db.ExecContext(ctx, query, slot.DayOfWeek, slot.TimeOfDay,
		slot.Timezone, slot.IsActive, time.Now(), slot.ID)
	if err != nil {
		slog.Info(err.Error())
		return mapSlotError(err)
	}
	return nil
}

func (r *slotRepository) Remove(ctx context.Context, id int64) error {
	query := `DELETE FROM slot_definitions WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

// ReplaceForAccount swaps the full slot set for an account inside one
// transaction so a crash cannot leave a half-populated calendar.
func (r *slotRepository) ReplaceForAccount(ctx context.Context, userID, accountID int64, slots []*models.SlotDefinition) error {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `DELETE FROM slot_definitions WHERE user_id = $1 AND account_id = $2`, userID, accountID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	for _, slot := range slots {
		if _, err := r.Create(ctx, tx, slot); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *slotRepository) CheckByUserID(ctx context.Context, slotID, userID int64) (bool, error) {
	query := "SELECT 1 FROM slot_definitions WHERE id = $1 AND user_id = $2"

	var result int
	err := r.db.QueryRowContext(ctx, query, slotID, userID).Scan(&result)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		slog.Info(err.Error())
		return false, err
	}

	return result == 1, nil
}

func collectSlots(rows *sql.Rows) ([]*models.SlotDefinition, error) {
	var slots []*models.SlotDefinition
	for rows.Next() {
		var slot models.SlotDefinition
		err := rows.Scan(&slot.ID, &slot.UserID, &slot.AccountID, &slot.DayOfWeek,
			&slot.TimeOfDay, &slot.Timezone, &slot.IsActive, &slot.CreatedAt, &slot.UpdatedAt)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		slots = append(slots, &slot)
	}
	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return slots, nil
}
