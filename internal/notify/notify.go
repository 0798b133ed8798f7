// Package notify reports sweep completions to the operator. Long
// sweeps run unattended; the notification carries the tally.
package notify

import "fmt"

// NotificationType represents the type of notification
type NotificationType int

const (
	NotifyInfo NotificationType = iota
	NotifySuccess
	NotifyWarning
	NotifyError
)

// Notification represents a notification to be sent
type Notification struct {
	Title   string
	Message string
	Type    NotificationType
	Plan    string // Optional sweep plan reference
}

// Notifier is the interface for sending notifications
type Notifier interface {
	Send(n Notification) error
}

// MultiNotifier sends to multiple notifiers
type MultiNotifier struct {
	notifiers []Notifier
}

// NewMultiNotifier creates a notifier that sends to all provided notifiers
func NewMultiNotifier(notifiers ...Notifier) *MultiNotifier {
	return &MultiNotifier{notifiers: notifiers}
}

// Send sends the notification to all notifiers
func (m *MultiNotifier) Send(n Notification) error {
	var lastErr error
	for _, notifier := range m.notifiers {
		if err := notifier.Send(n); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// NoopNotifier does nothing (for testing or disabled notifications)
type NoopNotifier struct{}

func (NoopNotifier) Send(n Notification) error { return nil }

// SweepNotification builds the completion notification for a sweep
func SweepNotification(plan string, total, passed int) Notification {
	n := Notification{
		Title: "Sweep complete: " + plan,
		Plan:  plan,
		Type:  NotifySuccess,
	}
	if passed < total {
		n.Type = NotifyWarning
	}
	n.Message = messageFor(total, passed)
	return n
}

func messageFor(total, passed int) string {
	if total == 0 {
		return "no runs executed"
	}
	return fmt.Sprintf("%d/%d runs passed", passed, total)
}
