package scheduler

import (
	"DebtNotifier/internal/models"
	"context"
	"fmt"
	"log/slog"
	"time"
)

// UpcomingLead is how long before the due date the early-warning job fires.
const UpcomingLead = time.Hour

// JobStore keeps the authoritative job record (payload snapshot, seq, status).
type JobStore interface {
	SaveJob(ctx context.Context, jobID string, snap models.ReminderSnapshot) (int64, error)
	DeleteJob(ctx context.Context, jobID string) error
}

// JobPublisher puts a delayed job reference on the broker.
type JobPublisher interface {
	PublishJob(ctx context.Context, msg models.JobMessage, delay time.Duration) error
}

// Service translates reminder lifecycle events into queue operations. It runs
// synchronously inside the request path: an enqueue that fails is reported to
// the caller, because a silently un-enqueued reminder never notifies.
type Service struct {
	store    JobStore
	producer JobPublisher
	log      *slog.Logger

	now func() time.Time
}

func New(store JobStore, producer JobPublisher, log *slog.Logger) *Service {
	return &Service{
		store:    store,
		producer: producer,
		log:      log,
		now:      time.Now,
	}
}

// ScheduleReminder enqueues the overdue job and, while there is still time,
// the upcoming job. Called on create and on every update; saving under the
// same job id replaces the previous schedule, so repeated edits leave exactly
// one job per type and the snapshot is never stale relative to the latest
// title/message.
func (s *Service) ScheduleReminder(ctx context.Context, snap models.ReminderSnapshot, wasNotified bool) error {
	const op = "scheduler.ScheduleReminder"

	now := s.now()
	due := snap.DueDate

	// Overdue job. A due date already in the past is not rejected here
	// (upstream validates creation); it fires on the next poll.
	notBefore := due
	if !due.After(now) && !wasNotified {
		notBefore = now
	}

	overdue := snap
	overdue.Type = models.JobTypeOverdue
	if err := s.enqueue(ctx, overdue, notBefore.Sub(now)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	// Upcoming job, one hour ahead. Pointless once that moment has passed.
	upcomingAt := due.Add(-UpcomingLead)
	if upcomingAt.After(now) {
		upcoming := snap
		upcoming.Type = models.JobTypeUpcoming
		if err := s.enqueue(ctx, upcoming, upcomingAt.Sub(now)); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	} else {
		s.log.Debug("upcoming window already passed, skipping",
			slog.Int64("reminder_id", snap.ReminderID))
	}

	s.log.Info("reminder scheduled",
		slog.Int64("reminder_id", snap.ReminderID),
		slog.Time("due_date", due))
	return nil
}

func (s *Service) enqueue(ctx context.Context, snap models.ReminderSnapshot, delay time.Duration) error {
	jobID := models.JobID(snap.ReminderID, snap.Type)

	seq, err := s.store.SaveJob(ctx, jobID, snap)
	if err != nil {
		return err
	}
	return s.producer.PublishJob(ctx, models.JobMessage{JobID: jobID, Seq: seq}, delay)
}

// CancelReminder removes both jobs for a reminder. Cancelling jobs that were
// never scheduled, were already consumed, or were cancelled before is a
// no-op; a delivery already in flight is caught by the worker's re-validation
// instead.
func (s *Service) CancelReminder(ctx context.Context, reminderID int64) error {
	const op = "scheduler.CancelReminder"

	for _, jobType := range []models.JobType{models.JobTypeOverdue, models.JobTypeUpcoming} {
		if err := s.store.DeleteJob(ctx, models.JobID(reminderID, jobType)); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	s.log.Info("reminder jobs cancelled", slog.Int64("reminder_id", reminderID))
	return nil
}
