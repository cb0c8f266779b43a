package models

import (
	"fmt"
	"time"
)

type JobType string

const (
	JobTypeUpcoming JobType = "upcoming"
	JobTypeOverdue  JobType = "overdue"
)

// Job statuses as kept in Redis.
const (
	StatusWaiting   = "waiting"
	StatusActive    = "active"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// AllStatuses is used to move a job between status indexes.
var AllStatuses = []string{StatusWaiting, StatusActive, StatusCompleted, StatusFailed}

// JobID builds the deterministic job identifier for a reminder and job type.
// The same reminder always maps to the same pair of ids, which is what makes
// re-scheduling replace earlier jobs instead of stacking up next to them.
func JobID(reminderID int64, jobType JobType) string {
	return fmt.Sprintf("reminder-%d-%s", reminderID, jobType)
}

// Reminder is the row owned by the CRUD layer; this service only reads it
// and flips was_notified.
type Reminder struct {
	ID          int64     `json:"id"`
	DebtorID    int64     `json:"debtor_id"`
	UserID      int64     `json:"user_id"`
	Title       string    `json:"title"`
	Message     string    `json:"message"`
	DueDate     time.Time `json:"due_date"`
	IsActive    bool      `json:"is_active"`
	IsCompleted bool      `json:"is_completed"`
	WasNotified bool      `json:"was_notified"`
}

// ReminderSnapshot is the denormalized job payload captured at schedule time.
// It is deliberately not re-read when the job fires; only the reminder's
// liveness is re-checked then.
type ReminderSnapshot struct {
	ReminderID    int64     `json:"reminder_id"`
	UserID        int64     `json:"user_id"`
	DebtorID      int64     `json:"debtor_id"`
	DebtorName    string    `json:"debtor_name"`
	AmountOwed    float64   `json:"amount_owed"`
	PhoneNumber   string    `json:"phone_number"`
	ExpoPushToken string    `json:"expo_push_token"`
	Title         string    `json:"title"`
	Message       string    `json:"message"`
	DueDate       time.Time `json:"due_date"`
	Type          JobType   `json:"type"`
}

// JobMessage is the AMQP message body. The payload itself lives in Redis;
// the broker only carries the id and the sequence number that was current
// when the message was published.
type JobMessage struct {
	JobID string `json:"job_id"`
	Seq   int64  `json:"seq"`
}

// JobRecord is the Redis-side job state.
type JobRecord struct {
	Seq       int64
	Status    string
	Snapshot  ReminderSnapshot
	UpdatedAt time.Time
}

type QueueStats struct {
	Waiting   int64 `json:"waiting"`
	Active    int64 `json:"active"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
}
