package handlers

import (
	"DebtNotifier/internal/models"
	"DebtNotifier/internal/storage/psql"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

// cleanupAge matches the reference policy: finished jobs older than a day
// are purged.
const cleanupAge = 24 * time.Hour

type Response struct {
	Status int    `json:"status"`
	Error  string `json:"error,omitempty"`
}

type statsResponse struct {
	Stats    models.QueueStats `json:"stats"`
	Response `json:"response"`
}

type cleanupResponse struct {
	Removed  int64 `json:"removed"`
	Response `json:"response"`
}

func reminderID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

// ScheduleReminder handles the lifecycle hook the CRUD service calls on
// reminder create and update (including due-date changes). The snapshot is
// projected from the store at this moment, so the job payload always carries
// the latest title, message and debtor figures.
func ScheduleReminder(log *slog.Logger, snapshots SnapshotSource, scheduler ReminderScheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := reminderID(r)
		if err != nil {
			log.Error("bad reminder id", "error", err)
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, Response{Status: http.StatusBadRequest, Error: "invalid reminder id"})
			return
		}

		snap, wasNotified, err := snapshots.Snapshot(r.Context(), id)
		if errors.Is(err, psql.ErrReminderNotFound) {
			log.Warn("schedule requested for missing reminder", "reminder_id", id)
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, Response{Status: http.StatusNotFound, Error: "reminder not found"})
			return
		}
		if err != nil {
			log.Error("snapshot error", "error", err)
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, Response{Status: http.StatusInternalServerError, Error: "failed to load reminder"})
			return
		}

		if err := scheduler.ScheduleReminder(r.Context(), snap, wasNotified); err != nil {
			log.Error("schedule error", "error", err)
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, Response{Status: http.StatusInternalServerError, Error: "failed to schedule notification"})
			return
		}

		w.WriteHeader(http.StatusCreated)
		render.JSON(w, r, Response{Status: http.StatusCreated})
	}
}

// CancelReminder handles the hook called on complete, cancel and delete.
// Idempotent: cancelling jobs that are gone or already consumed succeeds.
func CancelReminder(log *slog.Logger, scheduler ReminderScheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := reminderID(r)
		if err != nil {
			log.Error("bad reminder id", "error", err)
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, Response{Status: http.StatusBadRequest, Error: "invalid reminder id"})
			return
		}

		if err := scheduler.CancelReminder(r.Context(), id); err != nil {
			log.Error("cancel error", "error", err)
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, Response{Status: http.StatusInternalServerError, Error: "failed to cancel notification"})
			return
		}

		render.JSON(w, r, Response{Status: http.StatusOK})
	}
}

// QueueStats reports waiting/active/completed/failed counts.
func QueueStats(log *slog.Logger, admin QueueAdmin) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := admin.Stats(r.Context())
		if err != nil {
			log.Error("stats error", "error", err)
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, Response{Status: http.StatusInternalServerError, Error: "failed to get queue statistics"})
			return
		}

		render.JSON(w, r, statsResponse{
			Stats:    stats,
			Response: Response{Status: http.StatusOK},
		})
	}
}

// QueueCleanup purges completed and failed jobs older than 24 hours.
func QueueCleanup(log *slog.Logger, admin QueueAdmin) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		removed, err := admin.Cleanup(r.Context(), cleanupAge)
		if err != nil {
			log.Error("cleanup error", "error", err)
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, Response{Status: http.StatusInternalServerError, Error: "failed to clean up queue"})
			return
		}

		log.Info("queue cleanup done", "removed", removed)
		render.JSON(w, r, cleanupResponse{
			Removed:  removed,
			Response: Response{Status: http.StatusOK},
		})
	}
}
