package dispatcher_test

import (
	"testing"

	"go.uber.org/goleak"
)

// TestMain checks that spawning and shutting down worker links never
// leaks goroutines, the same guard the teacher runs over its LSP client
// connection pool tests.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
