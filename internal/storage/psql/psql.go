package psql

import (
	"DebtNotifier/internal/models"
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrReminderNotFound is returned when the reminder row no longer exists.
var ErrReminderNotFound = errors.New("reminder not found")

type Storage struct {
	db *sql.DB
}

// New opens the connection to the reminders database. The schema itself is
// owned by the CRUD service; this side only reads reminders and flips
// was_notified.
func New(storagePath string) (*Storage, error) {
	const op = "storage.psql.New" // Mark for errors

	db, err := sql.Open("postgres", storagePath)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{db: db}, nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}

// Get returns the current state of a reminder.
func (s *Storage) Get(ctx context.Context, id int64) (models.Reminder, error) {
	const op = "storage.psql.Get"

	var rem models.Reminder
	err := s.db.QueryRowContext(ctx, `
	SELECT id, debtor_id, user_id, title, message, due_date, is_active, is_completed, was_notified
	FROM reminders
	WHERE id = $1`, id).Scan(
		&rem.ID,
		&rem.DebtorID,
		&rem.UserID,
		&rem.Title,
		&rem.Message,
		&rem.DueDate,
		&rem.IsActive,
		&rem.IsCompleted,
		&rem.WasNotified,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Reminder{}, ErrReminderNotFound
	}
	if err != nil {
		return models.Reminder{}, fmt.Errorf("%s: %w", op, err)
	}

	return rem, nil
}

// SetNotified marks the overdue notification as dispatched. Setting it twice
// is harmless, which is what makes a duplicate delivery of the same job safe.
func (s *Storage) SetNotified(ctx context.Context, id int64) error {
	const op = "storage.psql.SetNotified"

	_, err := s.db.ExecContext(ctx, `UPDATE reminders SET was_notified = true WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Snapshot projects the reminder together with its debtor and user into the
// denormalized job payload. Used when the CRUD layer sends only a reminder id
// with the schedule event.
func (s *Storage) Snapshot(ctx context.Context, id int64) (models.ReminderSnapshot, bool, error) {
	const op = "storage.psql.Snapshot"

	var (
		snap        models.ReminderSnapshot
		phone       sql.NullString
		pushToken   sql.NullString
		wasNotified bool
	)
	err := s.db.QueryRowContext(ctx, `
	SELECT r.id, r.user_id, r.debtor_id, d.name, d.amount_owed, d.phone_number,
	       u.expo_push_token, r.title, r.message, r.due_date, r.was_notified
	FROM reminders r
	JOIN debtors d ON d.id = r.debtor_id
	JOIN users u ON u.id = r.user_id
	WHERE r.id = $1`, id).Scan(
		&snap.ReminderID,
		&snap.UserID,
		&snap.DebtorID,
		&snap.DebtorName,
		&snap.AmountOwed,
		&phone,
		&pushToken,
		&snap.Title,
		&snap.Message,
		&snap.DueDate,
		&wasNotified,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ReminderSnapshot{}, false, ErrReminderNotFound
	}
	if err != nil {
		return models.ReminderSnapshot{}, false, fmt.Errorf("%s: %w", op, err)
	}

	snap.PhoneNumber = phone.String
	snap.ExpoPushToken = pushToken.String
	return snap, wasNotified, nil
}
