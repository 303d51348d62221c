package notify

import (
	"os"
	"testing"

	"go.uber.org/goleak"
)

// TestMain verifies that NotifyGraphError's fire-and-forget retry goroutine
// (notify.go) never outlives the test that triggered it.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("testing.(*T).Run"),
		goleak.IgnoreTopFunction("time.Sleep"),
	)
	os.Exit(m.Run())
}
