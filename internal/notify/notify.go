// Package notify fires a single best-effort notification through shoutrrr
// when the graph transitions to InError. It never blocks the caller:
// NotifyGraphError runs the retry loop on its own goroutine and only logs the outcome.
package notify

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/nicholas-fedor/shoutrrr"
	"github.com/nicholas-fedor/shoutrrr/pkg/types"
	"github.com/nowsound-go/nowsound/internal/logging"
)

const (
	defaultMaxRetries = 3
	defaultRetryDelay = 2 * time.Second
	defaultTimeout    = 5 * time.Second
)

// Notifier sends operator alerts to a single shoutrrr URL (Telegram,
// Discord, a webhook, whatever the operator configured). A zero-value
// Notifier with no URL is a no-op, so callers can construct one
// unconditionally and let an empty config disable it.
type Notifier struct {
	url        string
	maxRetries int
	retryDelay time.Duration
	timeout    time.Duration
	log        *slog.Logger
}

// New builds a Notifier for url. An empty url disables sending entirely.
func New(url string) *Notifier {
	return &Notifier{
		url:        url,
		maxRetries: defaultMaxRetries,
		retryDelay: defaultRetryDelay,
		timeout:    defaultTimeout,
		log:        logging.ForService("notify"),
	}
}

// NotifyGraphError fires a best-effort alert that the graph entered
// InError, with the triggering error's message. It returns immediately;
// delivery (and its retries) happen on a background goroutine.
func (n *Notifier) NotifyGraphError(cause error) {
	if n == nil || n.url == "" {
		return
	}
	message := "NowSound graph entered InError"
	if cause != nil {
		message += ": " + cause.Error()
	}
	go n.sendWithRetry(message)
}

func (n *Notifier) sendWithRetry(message string) {
	sender, err := shoutrrr.CreateSender(n.url)
	if err != nil {
		n.log.Error("failed to create notification sender", "error", err)
		return
	}

	for attempt := 1; attempt <= n.maxRetries; attempt++ {
		errs := sender.Send(message, &types.Params{})

		sendErr := firstNonNil(errs)
		if sendErr == nil {
			n.log.Info("notification delivered", "attempt", attempt)
			return
		}

		if isTimeoutError(sendErr) {
			n.log.Warn("notification timed out, not retrying", "error", sendErr)
			return
		}

		n.log.Warn("notification send failed, retrying", "attempt", attempt, "error", sendErr)
		if attempt < n.maxRetries {
			time.Sleep(n.retryDelay)
		}
	}
	n.log.Error("notification delivery exhausted retries")
}

func firstNonNil(errs []error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// isTimeoutError reports whether err represents a request timeout, which
// shoutrrr providers surface as plain strings rather than a sentinel
// error. Timeouts mean the message may already have been delivered, so
// retrying risks a duplicate alert; every other failure is assumed safe
// to retry.
func isTimeoutError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timed out"):
		return true
	case strings.Contains(msg, "timeout"):
		return true
	case strings.Contains(msg, "deadline exceeded"):
		return true
	case strings.Contains(msg, "504"):
		return true
	}
	return false
}
