package debug

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogDispatch_WritesWhenEnabled(t *testing.T) {
	var buf bytes.Buffer
	SetDebugOutput(&buf)
	EnableDebug = true
	defer func() { EnableDebug = false }()

	LogDispatch("worker %s spawned", "w1")

	assert.Contains(t, buf.String(), "[dispatch]")
	assert.Contains(t, buf.String(), "worker w1 spawned")
}

func TestLog_SilentWhenDisabled(t *testing.T) {
	var buf bytes.Buffer
	SetDebugOutput(&buf)
	EnableDebug = false

	LogResolve("should not appear")

	assert.Empty(t, buf.String())
}

func TestLog_ComponentTagsDiffer(t *testing.T) {
	var buf bytes.Buffer
	SetDebugOutput(&buf)
	EnableDebug = true
	defer func() { EnableDebug = false }()

	LogReconcile("upserted %d nodes", 3)
	LogWatch("debounced %s", "file.go")
	LogVisit("visited %s", "file.go")

	out := buf.String()
	assert.Contains(t, out, "[reconcile]")
	assert.Contains(t, out, "[watch]")
	assert.Contains(t, out, "[visit]")
}
