package notify

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsTimeoutErrorClassifiesKnownPatterns(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil", nil, false},
		{"deadline_exceeded", context.DeadlineExceeded, true},
		{"canceled", context.Canceled, true},
		{"wrapped_deadline", fmt.Errorf("send: %w", context.DeadlineExceeded), true},
		{"router_timeout", errors.New("failed to send: timed out: using telegram"), true},
		{"gateway_timeout_504", errors.New("got unexpected HTTP status: 504 Gateway Time-out"), true},
		{"connection_refused", errors.New("dial tcp 127.0.0.1:443: connect: connection refused"), false},
		{"http_500", errors.New("got unexpected HTTP status: 500 Internal Server Error"), false},
		{"dns_failure", errors.New("lookup api.telegram.org: no such host"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, isTimeoutError(tt.err))
		})
	}
}

func TestNewWithEmptyURLIsANoOp(t *testing.T) {
	n := New("")
	assert.NotPanics(t, func() {
		n.NotifyGraphError(errors.New("boom"))
	})
}

func TestNilNotifierNotifyGraphErrorIsANoOp(t *testing.T) {
	var n *Notifier
	assert.NotPanics(t, func() {
		n.NotifyGraphError(errors.New("boom"))
	})
}
