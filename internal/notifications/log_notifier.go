package notifications

import (
	"context"
	"log/slog"
)

// LogNotifier stands in for the webhook when none is configured.
type LogNotifier struct {
	log *slog.Logger
}

func NewLogNotifier(log *slog.Logger) *LogNotifier {
	if log == nil {
		log = slog.Default()
	}
	return &LogNotifier{log: log}
}

func (n *LogNotifier) RequestDBAccess(ctx context.Context, in DBAccessRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	n.log.InfoContext(ctx, "notification.db_access",
		"timeout_minutes", in.Timeout,
		"requested_by", in.RequestedBy,
	)
	return nil
}
