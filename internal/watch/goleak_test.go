package watch_test

import (
	"testing"

	"go.uber.org/goleak"
)

// TestMain checks that starting and stopping a Watcher never leaks the
// fsnotify read-loop or debounce-timer goroutines.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
	)
}
