package notify

import (
	"DebtNotifier/internal/models"
	"testing"
	"time"
)

func baseSnapshot(jobType models.JobType) models.ReminderSnapshot {
	return models.ReminderSnapshot{
		ReminderID:    42,
		UserID:        7,
		DebtorID:      3,
		DebtorName:    "Kwame Mensah",
		AmountOwed:    150.5,
		PhoneNumber:   "+233201234567",
		ExpoPushToken: "ExponentPushToken[xxxxxxxxxxxxxxxxxxxxxx]",
		Title:         "Loan payment",
		Message:       "Collect the June installment",
		DueDate:       time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Type:          jobType,
	}
}

func TestCompose_Overdue(t *testing.T) {
	snap := baseSnapshot(models.JobTypeOverdue)
	now := snap.DueDate.Add(3 * time.Hour)

	msg := Compose(snap, now)

	if msg.Title != "Payment Overdue: Kwame Mensah" {
		t.Errorf("title = %q", msg.Title)
	}
	if msg.Body != "GHS 150.50 is overdue." {
		t.Errorf("body = %q", msg.Body)
	}
	if msg.To != snap.ExpoPushToken {
		t.Errorf("to = %q", msg.To)
	}
	if msg.Data["type"] != "overdue_reminder" {
		t.Errorf("data type = %v", msg.Data["type"])
	}
	if msg.Data["reminder_id"] != int64(42) {
		t.Errorf("data reminder_id = %v", msg.Data["reminder_id"])
	}
}

func TestCompose_Upcoming(t *testing.T) {
	tests := []struct {
		name     string
		sendAt   time.Time
		wantBody string
	}{
		{
			name:     "full hour remaining",
			sendAt:   time.Date(2025, 6, 1, 11, 0, 0, 0, time.UTC),
			wantBody: "Payment of GHS 150.50 is due in 60 minutes.",
		},
		{
			name:     "late delivery shrinks the window",
			sendAt:   time.Date(2025, 6, 1, 11, 45, 0, 0, time.UTC),
			wantBody: "Payment of GHS 150.50 is due in 15 minutes.",
		},
		{
			name:     "delivery after due date floors at zero",
			sendAt:   time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC),
			wantBody: "Payment of GHS 150.50 is due in 0 minutes.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := Compose(baseSnapshot(models.JobTypeUpcoming), tt.sendAt)
			if msg.Title != "Payment Due Soon: Kwame Mensah" {
				t.Errorf("title = %q", msg.Title)
			}
			if msg.Body != tt.wantBody {
				t.Errorf("body = %q, want %q", msg.Body, tt.wantBody)
			}
			if msg.Data["type"] != "upcoming_reminder" {
				t.Errorf("data type = %v", msg.Data["type"])
			}
		})
	}
}

func TestIsExpoPushToken(t *testing.T) {
	tests := []struct {
		token string
		want  bool
	}{
		{"ExponentPushToken[xxxxxxxxxxxxxxxxxxxxxx]", true},
		{"ExpoPushToken[abc123]", true},
		{"ExponentPushToken[]", false},
		{"ExponentPushToken[abc", false},
		{"abc]", false},
		{"", false},
		{"FCM:some-raw-token", false},
	}

	for _, tt := range tests {
		if got := IsExpoPushToken(tt.token); got != tt.want {
			t.Errorf("IsExpoPushToken(%q) = %v, want %v", tt.token, got, tt.want)
		}
	}
}
