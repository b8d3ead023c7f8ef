package service

import (
	"context"
	"log/slog"

	notificationDomain "github.com/allisson/signflow/internal/notification/domain"
)

// slogSender is a Sender for local development: it logs the message instead of
// delivering it. Production deployments replace it with a real transport.
type slogSender struct {
	logger *slog.Logger
}

// NewSlogSender returns a Sender that logs every message at info level and
// always reports delivery success.
func NewSlogSender(logger *slog.Logger) Sender {
	return &slogSender{logger: logger}
}

func (s *slogSender) Send(ctx context.Context, msg notificationDomain.Message) notificationDomain.SendResult {
	s.logger.InfoContext(ctx, "notification dispatched",
		slog.String("to", msg.To),
		slog.String("template", string(msg.Template)),
		slog.String("envelope_slug", msg.EnvelopeSlug),
		slog.String("link", msg.Link),
		slog.Int("attachments", len(msg.Attachments)),
	)
	return notificationDomain.SendResult{
		To:        msg.To,
		Template:  msg.Template,
		Delivered: true,
	}
}
