package notify

import (
	"context"
	"log/slog"
)

// LogNotifier records consent events in the application log. Used in
// development and tests when no brokers are configured.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) ConsentStatusChanged(ctx context.Context, event ConsentEvent) error {
	n.logger.InfoContext(ctx, "consent notification",
		"kind", event.Kind,
		"user_id", event.UserID,
		"parent_email", event.ParentEmail,
	)
	return nil
}
