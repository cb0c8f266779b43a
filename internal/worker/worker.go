package worker

import (
	"DebtNotifier/internal/models"
	"DebtNotifier/internal/notify"
	"DebtNotifier/internal/redisdb"
	"DebtNotifier/internal/storage/psql"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ReminderStore re-checks the live reminder state at delivery time.
type ReminderStore interface {
	Get(ctx context.Context, id int64) (models.Reminder, error)
	SetNotified(ctx context.Context, id int64) error
}

// JobStore resolves job references and records their outcome.
type JobStore interface {
	GetJob(ctx context.Context, jobID string) (models.JobRecord, error)
	SetStatus(ctx context.Context, jobID string, status string) error
}

// Pusher is the push-delivery provider.
type Pusher interface {
	Send(ctx context.Context, msg notify.PushMessage) error
}

// Pool consumes ready jobs with bounded concurrency. The payload snapshot in
// the job may be stale relative to a completion or deletion that happened
// after enqueue, so every delivery is re-validated against the reminder store
// before anything is sent.
type Pool struct {
	log       *slog.Logger
	reminders ReminderStore
	jobs      JobStore
	pusher    Pusher

	concurrency int
	sendTimeout time.Duration

	now func() time.Time
	wg  sync.WaitGroup
}

func New(log *slog.Logger, reminders ReminderStore, jobs JobStore, pusher Pusher, concurrency int, sendTimeout time.Duration) *Pool {
	if concurrency <= 0 {
		concurrency = 10
	}
	return &Pool{
		log:         log,
		reminders:   reminders,
		jobs:        jobs,
		pusher:      pusher,
		concurrency: concurrency,
		sendTimeout: sendTimeout,
		now:         time.Now,
	}
}

// Run consumes deliveries until the context is cancelled or the channel
// closes, then waits for in-flight jobs to finish.
func (p *Pool) Run(ctx context.Context, deliveries <-chan amqp.Delivery) {
	sem := make(chan struct{}, p.concurrency)

	p.log.Info("worker pool started", slog.Int("concurrency", p.concurrency))

	for {
		select {
		case <-ctx.Done():
			p.wg.Wait()
			p.log.Info("worker pool stopped")
			return
		case d, ok := <-deliveries:
			if !ok {
				p.wg.Wait()
				p.log.Info("delivery channel closed, worker pool stopped")
				return
			}
			sem <- struct{}{}
			p.wg.Add(1)
			go func(d amqp.Delivery) {
				defer p.wg.Done()
				defer func() { <-sem }()
				p.Handle(ctx, d)
			}(d)
		}
	}
}

// Handle processes one delivery and settles it. A job fails only when the
// provider (or a transient store error) fails; stale, cancelled, superseded
// and token-less jobs are discarded as completed. Failed jobs are not
// redelivered: a late duplicate push is worse than a missed one.
func (p *Pool) Handle(ctx context.Context, d amqp.Delivery) {
	var msg models.JobMessage
	if err := json.Unmarshal(d.Body, &msg); err != nil {
		p.log.Warn("dropping malformed job message", slog.String("err", err.Error()))
		_ = d.Ack(false)
		return
	}

	log := p.log.With(slog.String("job_id", msg.JobID))

	if err := p.process(ctx, log, msg); err != nil {
		log.Error("job failed", slog.String("err", err.Error()))
		if err := p.jobs.SetStatus(ctx, msg.JobID, models.StatusFailed); err != nil {
			log.Error("failed to record job failure", slog.String("err", err.Error()))
		}
		// no requeue: single attempt
		_ = d.Nack(false, false)
		return
	}

	_ = d.Ack(false)
}

func (p *Pool) process(ctx context.Context, log *slog.Logger, msg models.JobMessage) error {
	const op = "worker.process"

	rec, err := p.jobs.GetJob(ctx, msg.JobID)
	if errors.Is(err, redisdb.ErrJobNotFound) {
		// cancelled после постановки
		log.Debug("job record gone, assuming cancelled")
		return nil
	}
	if err != nil {
		return fmt.Errorf("%s: resolve job: %w", op, err)
	}
	if rec.Seq != msg.Seq {
		// a newer enqueue for the same job id superseded this delivery
		log.Debug("stale delivery, superseded by re-schedule",
			slog.Int64("msg_seq", msg.Seq), slog.Int64("cur_seq", rec.Seq))
		return nil
	}

	if err := p.jobs.SetStatus(ctx, msg.JobID, models.StatusActive); err != nil {
		log.Warn("failed to mark job active", slog.String("err", err.Error()))
	}

	snap := rec.Snapshot

	rem, err := p.reminders.Get(ctx, snap.ReminderID)
	if errors.Is(err, psql.ErrReminderNotFound) {
		log.Info("reminder deleted, discarding job")
		return p.complete(ctx, msg.JobID)
	}
	if err != nil {
		return fmt.Errorf("%s: fetch reminder: %w", op, err)
	}
	if !rem.IsActive || rem.IsCompleted {
		log.Info("reminder no longer active, discarding job",
			slog.Bool("is_active", rem.IsActive), slog.Bool("is_completed", rem.IsCompleted))
		return p.complete(ctx, msg.JobID)
	}
	if snap.Type == models.JobTypeOverdue && rem.WasNotified {
		// overdue push already went out once; reprocessing must not repeat it
		log.Info("reminder already notified, discarding job")
		return p.complete(ctx, msg.JobID)
	}

	if !notify.IsExpoPushToken(snap.ExpoPushToken) {
		log.Warn("invalid or missing push token, discarding job",
			slog.Int64("user_id", snap.UserID))
		return p.complete(ctx, msg.JobID)
	}

	push := notify.Compose(snap, p.now())

	sendCtx := ctx
	if p.sendTimeout > 0 {
		var cancel context.CancelFunc
		sendCtx, cancel = context.WithTimeout(ctx, p.sendTimeout)
		defer cancel()
	}
	if err := p.pusher.Send(sendCtx, push); err != nil {
		return fmt.Errorf("%s: send push: %w", op, err)
	}

	if snap.Type == models.JobTypeOverdue {
		// best effort: the push is already out, so a persistence hiccup here
		// must not fail the job
		if err := p.reminders.SetNotified(ctx, snap.ReminderID); err != nil {
			log.Error("failed to mark reminder notified", slog.String("err", err.Error()))
		}
	}

	log.Info("notification sent",
		slog.Int64("reminder_id", snap.ReminderID),
		slog.String("type", string(snap.Type)))
	return p.complete(ctx, msg.JobID)
}

func (p *Pool) complete(ctx context.Context, jobID string) error {
	if err := p.jobs.SetStatus(ctx, jobID, models.StatusCompleted); err != nil {
		p.log.Warn("failed to mark job completed",
			slog.String("job_id", jobID), slog.String("err", err.Error()))
	}
	return nil
}
