package model

type NotificationKind string

const (
	NotificationBookingRequested   NotificationKind = "booking_requested"
	NotificationBookingConfirmed   NotificationKind = "booking_confirmed"
	NotificationBookingRejected    NotificationKind = "booking_rejected"
	NotificationBookingCanceled    NotificationKind = "booking_canceled"
	NotificationBookingReminder    NotificationKind = "booking_reminder"
	NotificationBookingNoShow      NotificationKind = "booking_no_show"
	NotificationSessionStarted     NotificationKind = "session_started"
	NotificationSessionEnded       NotificationKind = "session_ended"
	NotificationRecurringRequested NotificationKind = "recurring_requested"
	NotificationPaymentCompleted   NotificationKind = "payment_completed"
	NotificationPayoutUpdated      NotificationKind = "payout_updated"
)

// Notification исходящее уведомление пользователю
type Notification struct {
	Kind  NotificationKind
	Title string
	Body  string
	Refs  map[string]int64 // booking_id, payout_id и т.п.
}
