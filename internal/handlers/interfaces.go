package handlers

import (
	"DebtNotifier/internal/models"
	"context"
	"time"
)

// ReminderScheduler interface for scheduling operations
type ReminderScheduler interface {
	ScheduleReminder(ctx context.Context, snap models.ReminderSnapshot, wasNotified bool) error
	CancelReminder(ctx context.Context, reminderID int64) error
}

// SnapshotSource projects a reminder with its debtor/user into a job payload.
type SnapshotSource interface {
	Snapshot(ctx context.Context, id int64) (models.ReminderSnapshot, bool, error)
}

// QueueAdmin interface for the operational surface
type QueueAdmin interface {
	Stats(ctx context.Context) (models.QueueStats, error)
	Cleanup(ctx context.Context, olderThan time.Duration) (int64, error)
}
