// Package service implements the notification dispatcher. Sends are
// deliberately sequential with an enforced minimum inter-send delay: the
// downstream email provider rate-limits, so batches must never fan out
// concurrently.
package service

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	notificationDomain "github.com/allisson/signflow/internal/notification/domain"
)

// Sender is the external notification transport collaborator. Every call is
// fallible; callers treat failures as non-fatal for state transitions.
type Sender interface {
	Send(ctx context.Context, msg notificationDomain.Message) notificationDomain.SendResult
}

// Dispatcher delivers a batch of messages sequentially, collecting every
// per-recipient outcome. One recipient's failure never aborts the batch.
type Dispatcher interface {
	Dispatch(ctx context.Context, messages []notificationDomain.Message) []notificationDomain.SendResult
}

// throttledDispatcher implements Dispatcher with a token-bucket limiter that
// enforces the minimum delay between consecutive sends.
type throttledDispatcher struct {
	sender  Sender
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewDispatcher creates a Dispatcher that waits at least minSendDelay between
// consecutive sends. The limiter is shared by every caller of this dispatcher,
// so the delay holds across concurrent batches as well.
func NewDispatcher(sender Sender, minSendDelay time.Duration, logger *slog.Logger) Dispatcher {
	return &throttledDispatcher{
		sender:  sender,
		limiter: rate.NewLimiter(rate.Every(minSendDelay), 1),
		logger:  logger,
	}
}

// Dispatch sends every message in order. A cancelled context stops waiting;
// messages not yet attempted are reported as undelivered.
func (d *throttledDispatcher) Dispatch(
	ctx context.Context,
	messages []notificationDomain.Message,
) []notificationDomain.SendResult {
	results := make([]notificationDomain.SendResult, 0, len(messages))

	for _, msg := range messages {
		if err := d.limiter.Wait(ctx); err != nil {
			results = append(results, notificationDomain.SendResult{
				To:       msg.To,
				Template: msg.Template,
				Err:      err,
			})
			continue
		}

		result := d.sender.Send(ctx, msg)
		if result.Err != nil && d.logger != nil {
			d.logger.Error("notification send failed",
				slog.String("to", result.To),
				slog.String("template", string(result.Template)),
				slog.Any("error", result.Err),
			)
		}
		results = append(results, result)
	}

	return results
}
