package application

import (
	"context"
	"log/slog"
)

// Notifier delivers audit and channel messages for completed mutations.
// Services call it strictly after the gateway write commits, and only for
// mutations that actually changed a row; a delivery failure never fails the
// mutation it describes.
type Notifier interface {
	// PostChannelMessage posts text into the channel or thread behind ref.
	PostChannelMessage(ctx context.Context, channelRef, text string) error
	// PostAuditLog posts text to the routine audit channel.
	PostAuditLog(ctx context.Context, text string) error
	// PostImportantLog posts text to the high-visibility log channel.
	PostImportantLog(ctx context.Context, text string) error
}

// Messenger manages the per-cleaning discussion threads on the chat
// platform. All calls are context-bounded; the platform protocol itself
// lives behind this interface.
type Messenger interface {
	// CreateThread opens a private thread, posts the instruction message,
	// and returns the thread reference.
	CreateThread(ctx context.Context, name, instructions string) (string, error)
	// ArchiveThread archives and locks the thread.
	ArchiveThread(ctx context.Context, threadRef string) error
	// DeleteThread removes the thread entirely.
	DeleteThread(ctx context.Context, threadRef string) error
	// RevokeThreadAccess removes the user from the thread.
	RevokeThreadAccess(ctx context.Context, threadRef, externalID string) error
	// UpdateInstructions rewrites the thread's instruction message.
	UpdateInstructions(ctx context.Context, threadRef, instructions string) error
}

// NopNotifier satisfies Notifier without delivering anything. It stands in
// when no chat integration is configured.
type NopNotifier struct{}

func (NopNotifier) PostChannelMessage(context.Context, string, string) error { return nil }
func (NopNotifier) PostAuditLog(context.Context, string) error               { return nil }
func (NopNotifier) PostImportantLog(context.Context, string) error           { return nil }

// NopMessenger satisfies Messenger without a chat platform. CreateThread
// returns an empty reference, which downstream messaging treats as "no
// thread".
type NopMessenger struct{}

func (NopMessenger) CreateThread(context.Context, string, string) (string, error) { return "", nil }
func (NopMessenger) ArchiveThread(context.Context, string) error                  { return nil }
func (NopMessenger) DeleteThread(context.Context, string) error                   { return nil }
func (NopMessenger) RevokeThreadAccess(context.Context, string, string) error     { return nil }
func (NopMessenger) UpdateInstructions(context.Context, string, string) error     { return nil }

// notify runs one best-effort delivery and logs the failure instead of
// propagating it.
func notify(ctx context.Context, logger *slog.Logger, kind string, fn func(ctx context.Context) error) {
	if err := fn(ctx); err != nil {
		logger.WarnContext(ctx, "notification delivery failed", "kind", kind, "error", err)
	}
}
