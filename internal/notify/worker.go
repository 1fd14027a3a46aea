package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shoplite/shoplite-api/internal/platform/mailer"
	"github.com/shoplite/shoplite-api/pkg/config"
	"github.com/shoplite/shoplite-api/pkg/events"
	"github.com/shoplite/shoplite-api/pkg/logger"
)

// Worker consumes notify.send events and delivers emails through the
// configured mailer. Delivery is retried a bounded number of times; a message
// that still fails is logged and dropped, it never affects the request that
// queued it.
type Worker struct {
	sub    events.Subscriber
	mailer mailer.Service
	cfg    config.NotifyConfig
	otpTTL time.Duration
}

func NewWorker(sub events.Subscriber, m mailer.Service, cfg config.NotifyConfig, otpTTL time.Duration) *Worker {
	return &Worker{sub: sub, mailer: m, cfg: cfg, otpTTL: otpTTL}
}

// Run subscribes and blocks until ctx is cancelled. Workers share a queue
// group so a message is handled once even with several instances.
func (w *Worker) Run(ctx context.Context) error {
	err := w.sub.QueueSubscribe(events.NotifySend, "notify-workers", func(msg *events.Message) {
		var evt events.NotifySendEvent
		if err := json.Unmarshal(msg.Data, &evt); err != nil {
			logger.Error("failed to decode notification", "error", err, "subject", msg.Subject)
			return
		}
		w.deliver(ctx, &evt)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", events.NotifySend, err)
	}

	logger.Info("notification worker started", "subject", events.NotifySend)
	<-ctx.Done()
	return ctx.Err()
}

func (w *Worker) deliver(ctx context.Context, evt *events.NotifySendEvent) {
	subject, text, html, err := w.render(evt)
	if err != nil {
		logger.Error("failed to render notification", "error", err, "message_id", evt.MessageID, "kind", evt.Kind)
		return
	}

	attempts := w.cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		_, lastErr = w.mailer.Send(evt.To, evt.ToName, subject, text, html)
		if lastErr == nil {
			logger.Info("notification sent",
				"message_id", evt.MessageID, "kind", evt.Kind, "to", evt.To, "attempt", attempt)
			return
		}

		logger.Warn("notification attempt failed",
			"message_id", evt.MessageID, "kind", evt.Kind, "attempt", attempt, "error", lastErr)

		if attempt < attempts {
			select {
			case <-time.After(w.cfg.RetryBackoff):
			case <-ctx.Done():
				return
			}
		}
	}

	logger.Error("notification dropped after retries",
		"message_id", evt.MessageID, "kind", evt.Kind, "to", evt.To, "attempts", attempts, "error", lastErr)
}

func (w *Worker) render(evt *events.NotifySendEvent) (subject, text, html string, err error) {
	switch evt.Kind {
	case events.NotifyOTP:
		if evt.OTPCode == "" {
			return "", "", "", fmt.Errorf("otp notification without code")
		}
		subject, text, html = otpEmail(evt.OTPCode, int(w.otpTTL.Minutes()))
	case events.NotifyOrderConfirmation:
		if evt.Order == nil {
			return "", "", "", fmt.Errorf("order confirmation without order")
		}
		subject, text, html = orderConfirmationEmail(evt.ToName, evt.Order)
	case events.NotifyAdminOrderAlert:
		if evt.Order == nil {
			return "", "", "", fmt.Errorf("admin alert without order")
		}
		subject, text, html = adminOrderAlertEmail(evt.Order, evt.Customer)
	default:
		return "", "", "", fmt.Errorf("unknown notification kind: %s", evt.Kind)
	}
	return subject, text, html, nil
}
