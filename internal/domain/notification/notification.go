// Package notification persists per-admin order notifications and fans a
// confirmation out to the real-time channel and best-effort email jobs.
package notification

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned when a notification does not exist or belongs to a
// different admin.
var ErrNotFound = errors.New("notification not found")

// Notification is one message addressed to one administrator. Immutable
// except for the Read flag.
type Notification struct {
	ID        int64
	AdminID   string
	Message   string
	Read      bool
	CreatedAt time.Time
}

// Repository persists notifications and their read state.
type Repository interface {
	Create(ctx context.Context, adminID, message string) (*Notification, error)
	// ListByAdmin returns the admin's most recent notifications, newest
	// first, capped at limit.
	ListByAdmin(ctx context.Context, adminID string, limit int) ([]Notification, error)
	// MarkAllRead marks every unread notification of the admin as read.
	// Idempotent.
	MarkAllRead(ctx context.Context, adminID string) error
	// MarkRead marks a single notification as read, enforcing ownership.
	// Idempotent; returns ErrNotFound for foreign or unknown ids.
	MarkRead(ctx context.Context, adminID string, id int64) error
}

// Admin identifies one administrator account.
type Admin struct {
	ID    string
	Name  string
	Email string
}

// AdminDirectory lists the administrator accounts to notify. Injected rather
// than queried ad hoc so the fan-out has an explicit, testable admin set.
type AdminDirectory interface {
	ListAdmins(ctx context.Context) ([]Admin, error)
}

// Broadcaster is the best-effort real-time push channel. Delivery is
// at-most-once to currently connected subscribers; there is no replay.
type Broadcaster interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// EmailSender delivers outbound mail. Failures are logged, never retried.
type EmailSender interface {
	Send(ctx context.Context, to, subject, body string) error
}
