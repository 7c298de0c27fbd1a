package port

import "context"

type NotificationPusher interface {
	// Connected reports whether the user has at least one open channel
	Connected(username string) bool

	// Push writes v to every open channel of the user, best effort
	Push(ctx context.Context, username string, v any) error
}
