// Package debug provides a process-wide, mutex-guarded debug output sink,
// following the teacher's internal/debug package: a toggle, an io.Writer
// target defaulting to stderr (InitDebugLogFile switches it to a temp-dir
// log file), and small Log* helpers per
// subsystem rather than a general-purpose structured logger.
package debug

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// EnableDebug gates all Log* calls. Off by default; cmd/bmcp sets it from
// a --debug flag.
var EnableDebug bool

var (
	debugMutex  sync.Mutex
	debugOutput io.Writer = os.Stderr
	debugFile   *os.File
)

// SetDebugOutput redirects debug output, e.g. to a test buffer.
func SetDebugOutput(w io.Writer) {
	debugMutex.Lock()
	defer debugMutex.Unlock()
	debugOutput = w
}

// InitDebugLogFile opens a timestamped log file under
// os.TempDir()/bmcp-debug-logs and routes debug output to it. Callers
// should defer the returned close function.
func InitDebugLogFile() (close func() error, err error) {
	dir := filepath.Join(os.TempDir(), "bmcp-debug-logs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("debug: create log dir: %w", err)
	}
	name := filepath.Join(dir, fmt.Sprintf("debug-%d.log", time.Now().UnixNano()))
	f, err := os.Create(name)
	if err != nil {
		return nil, fmt.Errorf("debug: create log file: %w", err)
	}
	debugMutex.Lock()
	debugFile = f
	debugOutput = f
	debugMutex.Unlock()
	return f.Close, nil
}

func logf(component, format string, args ...any) {
	if !EnableDebug {
		return
	}
	debugMutex.Lock()
	defer debugMutex.Unlock()
	fmt.Fprintf(debugOutput, "[%s] %s %s\n", time.Now().Format(time.RFC3339Nano), component, fmt.Sprintf(format, args...))
}

// LogDispatch logs parser-dispatcher activity: request send, response
// receipt, timeout, respawn.
func LogDispatch(format string, args ...any) { logf("dispatch", format, args...) }

// LogResolve logs pass-two placeholder resolution activity.
func LogResolve(format string, args ...any) { logf("resolve", format, args...) }

// LogReconcile logs store reconciliation activity: upserts, deletes.
func LogReconcile(format string, args ...any) { logf("reconcile", format, args...) }

// LogWatch logs filesystem watch and debounce activity.
func LogWatch(format string, args ...any) { logf("watch", format, args...) }

// LogVisit logs per-file visitor activity (node/relationship extraction).
func LogVisit(format string, args ...any) { logf("visit", format, args...) }

// LogIndexing logs whole-tree analysis progress: scan start/finish, file
// counts, batch boundaries.
func LogIndexing(format string, args ...any) { logf("indexing", format, args...) }

// LogParser logs grammar registry and worker-protocol activity that isn't
// specific to one dispatcher request (grammar load, CST framing).
func LogParser(format string, args ...any) { logf("parser", format, args...) }
