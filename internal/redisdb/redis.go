package redisdb

import (
	"DebtNotifier/internal/models"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrJobNotFound is returned when no record exists under a job id, either
// because it was never scheduled or because it was cancelled.
var ErrJobNotFound = errors.New("job not found")

const jobKeyPrefix = "job:"

func jobKey(jobID string) string {
	return jobKeyPrefix + jobID
}

// The seq counter lives outside the job hash so that cancel + recreate keeps
// it monotonic: a delivery published before the cancel can never collide with
// a seq issued after it.
func seqKey(jobID string) string {
	return "jobseq:" + jobID
}

func statusKey(status string) string {
	return "jobs:" + status
}

type RedisConnection struct {
	rdb *redis.Client
}

// Close redis connection
func (rc *RedisConnection) Close() {
	err := rc.rdb.Close()
	if err != nil {
		panic(err)
	}
}

func DeclareRedisDataBase(options redis.Options) *RedisConnection {
	rdb := redis.NewClient(&options)
	return &RedisConnection{rdb: rdb}
}

// SaveJob writes the payload snapshot under the job id and bumps its sequence
// number. The returned seq goes into the broker message; deliveries carrying
// an older seq are recognized as superseded by the consumer. Calling SaveJob
// for an existing id is how replace-on-enqueue works.
func (rc *RedisConnection) SaveJob(ctx context.Context, jobID string, snap models.ReminderSnapshot) (int64, error) {
	const op = "redisdb.SaveJob"

	seq, err := rc.rdb.Incr(ctx, seqKey(jobID)).Result()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	payload, err := json.Marshal(snap)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	now := time.Now()
	pipe := rc.rdb.TxPipeline()
	pipe.HSet(ctx, jobKey(jobID),
		"seq", seq,
		"payload", payload,
		"status", models.StatusWaiting,
		"updated_at", now.Unix(),
	)
	for _, st := range models.AllStatuses {
		if st != models.StatusWaiting {
			pipe.ZRem(ctx, statusKey(st), jobID)
		}
	}
	pipe.ZAdd(ctx, statusKey(models.StatusWaiting), redis.Z{Score: float64(now.Unix()), Member: jobID})
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return seq, nil
}

// GetJob loads the current state of a job. ErrJobNotFound means the job was
// cancelled (or never existed).
func (rc *RedisConnection) GetJob(ctx context.Context, jobID string) (models.JobRecord, error) {
	const op = "redisdb.GetJob"

	fields, err := rc.rdb.HGetAll(ctx, jobKey(jobID)).Result()
	if err != nil {
		return models.JobRecord{}, fmt.Errorf("%s: %w", op, err)
	}
	if len(fields) == 0 {
		return models.JobRecord{}, ErrJobNotFound
	}

	var rec models.JobRecord
	rec.Status = fields["status"]

	rec.Seq, err = strconv.ParseInt(fields["seq"], 10, 64)
	if err != nil {
		return models.JobRecord{}, fmt.Errorf("%s: bad seq: %w", op, err)
	}
	if ts, err := strconv.ParseInt(fields["updated_at"], 10, 64); err == nil {
		rec.UpdatedAt = time.Unix(ts, 0)
	}
	if err := json.Unmarshal([]byte(fields["payload"]), &rec.Snapshot); err != nil {
		return models.JobRecord{}, fmt.Errorf("%s: bad payload: %w", op, err)
	}

	return rec, nil
}

// SetStatus moves the job to the given status and its status index.
func (rc *RedisConnection) SetStatus(ctx context.Context, jobID string, status string) error {
	const op = "redisdb.SetStatus"

	now := time.Now()
	pipe := rc.rdb.TxPipeline()
	pipe.HSet(ctx, jobKey(jobID), "status", status, "updated_at", now.Unix())
	for _, st := range models.AllStatuses {
		if st != status {
			pipe.ZRem(ctx, statusKey(st), jobID)
		}
	}
	pipe.ZAdd(ctx, statusKey(status), redis.Z{Score: float64(now.Unix()), Member: jobID})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// DeleteJob removes the job record and all index entries. Deleting an absent
// job is not an error; cancellation is allowed to race with consumption.
func (rc *RedisConnection) DeleteJob(ctx context.Context, jobID string) error {
	const op = "redisdb.DeleteJob"

	pipe := rc.rdb.TxPipeline()
	pipe.Del(ctx, jobKey(jobID))
	for _, st := range models.AllStatuses {
		pipe.ZRem(ctx, statusKey(st), jobID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Stats returns the number of jobs per status.
func (rc *RedisConnection) Stats(ctx context.Context) (models.QueueStats, error) {
	const op = "redisdb.Stats"

	var stats models.QueueStats
	for _, st := range models.AllStatuses {
		n, err := rc.rdb.ZCard(ctx, statusKey(st)).Result()
		if err != nil {
			return models.QueueStats{}, fmt.Errorf("%s: %w", op, err)
		}
		switch st {
		case models.StatusWaiting:
			stats.Waiting = n
		case models.StatusActive:
			stats.Active = n
		case models.StatusCompleted:
			stats.Completed = n
		case models.StatusFailed:
			stats.Failed = n
		}
	}
	return stats, nil
}

// Cleanup deletes completed and failed job records whose last update is older
// than the given age. Returns the number of removed jobs.
func (rc *RedisConnection) Cleanup(ctx context.Context, olderThan time.Duration) (int64, error) {
	const op = "redisdb.Cleanup"

	cutoff := strconv.FormatInt(time.Now().Add(-olderThan).Unix(), 10)

	var removed int64
	for _, st := range []string{models.StatusCompleted, models.StatusFailed} {
		ids, err := rc.rdb.ZRangeByScore(ctx, statusKey(st), &redis.ZRangeBy{
			Min: "-inf",
			Max: cutoff,
		}).Result()
		if err != nil {
			return removed, fmt.Errorf("%s: %w", op, err)
		}
		if len(ids) == 0 {
			continue
		}

		pipe := rc.rdb.TxPipeline()
		for _, id := range ids {
			pipe.Del(ctx, jobKey(id), seqKey(id))
		}
		pipe.ZRemRangeByScore(ctx, statusKey(st), "-inf", cutoff)
		if _, err := pipe.Exec(ctx); err != nil {
			return removed, fmt.Errorf("%s: %w", op, err)
		}
		removed += int64(len(ids))
	}
	return removed, nil
}
