package notify

import (
	"DebtNotifier/internal/models"
	"fmt"
	"time"
)

// PushMessage is one message for the push provider.
type PushMessage struct {
	To    string         `json:"to"`
	Sound string         `json:"sound"`
	Title string         `json:"title"`
	Body  string         `json:"body"`
	Data  map[string]any `json:"data"`
}

// Compose renders the push message for a job payload. Pure; the "due in N
// minutes" figure is computed from now, not from enqueue time, so a delivery
// that fires late tells the truth.
func Compose(snap models.ReminderSnapshot, now time.Time) PushMessage {
	var title, body string

	switch snap.Type {
	case models.JobTypeOverdue:
		title = fmt.Sprintf("Payment Overdue: %s", snap.DebtorName)
		body = fmt.Sprintf("GHS %.2f is overdue.", snap.AmountOwed)
	default:
		minutes := int(snap.DueDate.Sub(now).Minutes())
		if minutes < 0 {
			minutes = 0
		}
		title = fmt.Sprintf("Payment Due Soon: %s", snap.DebtorName)
		body = fmt.Sprintf("Payment of GHS %.2f is due in %d minutes.", snap.AmountOwed, minutes)
	}

	return PushMessage{
		To:    snap.ExpoPushToken,
		Sound: "default",
		Title: title,
		Body:  body,
		Data: map[string]any{
			"type":         string(snap.Type) + "_reminder",
			"reminder_id":  snap.ReminderID,
			"debtor_id":    snap.DebtorID,
			"debtor_name":  snap.DebtorName,
			"amount":       snap.AmountOwed,
			"phone_number": snap.PhoneNumber,
		},
	}
}
