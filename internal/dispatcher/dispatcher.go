// Package dispatcher manages a pool of out-of-process parser workers: it
// sends workerproto requests over a duplex channel, correlates responses by
// request id, and respawns workers that die or stop answering. The
// correlation/pending-map/timeout shape is grounded on the LSP client's
// request/response pairing (odvcencio-mane/lsp/client.go), generalized here
// from one connection to a pool with health tracking and respawn.
package dispatcher

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/standardbeagle/bmcp/internal/config"
	"github.com/standardbeagle/bmcp/internal/debug"
	bmcperrors "github.com/standardbeagle/bmcp/internal/errors"
	"github.com/standardbeagle/bmcp/internal/workerproto"
)

// State is a worker link's position in its lifecycle state machine:
// Spawning -> Ready -> Degraded (on send error) -> Dead -> (Spawning).
type State int

const (
	Spawning State = iota
	Ready
	Degraded
	Dead
)

func (s State) String() string {
	switch s {
	case Spawning:
		return "spawning"
	case Ready:
		return "ready"
	case Degraded:
		return "degraded"
	case Dead:
		return "dead"
	default:
		return "unknown"
	}
}

// Worker is one spawned parser-worker connection: a readable/writable
// duplex channel plus lifecycle controls. Real workers are subprocesses
// (ProcessSpawner); tests substitute in-memory pipes.
type Worker interface {
	Stdin() io.WriteCloser
	Stdout() io.Reader
	Wait() error
	Kill() error
}

// Spawner creates a new Worker connection, e.g. by exec'ing the
// bmcp-worker binary.
type Spawner interface {
	Spawn(ctx context.Context) (Worker, error)
}

type pendingRequest struct {
	resp chan workerproto.Response
	errc chan error
}

type workerLink struct {
	id    string
	mu    sync.Mutex
	state State
	w     Worker
	stdin io.WriteCloser

	pendingMu sync.Mutex
	pending   map[string]*pendingRequest

	consecutiveTimeouts atomic.Int32
	closed              atomic.Bool
}

func (wl *workerLink) setState(s State) {
	wl.mu.Lock()
	wl.state = s
	wl.mu.Unlock()
}

func (wl *workerLink) getState() State {
	wl.mu.Lock()
	defer wl.mu.Unlock()
	return wl.state
}

// WorkerHealth is an observable snapshot of one worker link, mirroring the
// teacher's FileWatcher.GetStats() probe shape.
type WorkerHealth struct {
	WorkerID string
	State    string
	Pending  int
}

// Dispatcher routes parse requests across a pool of worker links.
type Dispatcher struct {
	spawner Spawner
	cfg     config.Dispatcher

	mu      sync.RWMutex
	workers []*workerLink
	next    atomic.Uint64

	shutdownOnce sync.Once
	closed       atomic.Bool
}

// New creates a Dispatcher and spawns cfg.WorkerCount initial workers. If
// any initial spawn fails, New returns that error and no Dispatcher; the
// initial spawn is not retried.
func New(ctx context.Context, spawner Spawner, cfg config.Dispatcher) (*Dispatcher, error) {
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 1
	}
	d := &Dispatcher{spawner: spawner, cfg: cfg}
	for i := 0; i < cfg.WorkerCount; i++ {
		wl, err := d.spawn(ctx)
		if err != nil {
			return nil, fmt.Errorf("dispatcher: initial spawn: %w", err)
		}
		d.workers = append(d.workers, wl)
	}
	return d, nil
}

func (d *Dispatcher) spawn(ctx context.Context) (*workerLink, error) {
	w, err := d.spawner.Spawn(ctx)
	if err != nil {
		return nil, err
	}
	wl := &workerLink{
		id:      uuid.NewString(),
		state:   Spawning,
		w:       w,
		stdin:   w.Stdin(),
		pending: make(map[string]*pendingRequest),
	}
	wl.setState(Ready)
	go d.readLoop(wl)
	debug.LogDispatch("worker %s spawned", wl.id)
	return wl, nil
}

func (d *Dispatcher) readLoop(wl *workerLink) {
	reader := bufio.NewReader(wl.w.Stdout())
	for {
		var resp workerproto.Response
		if err := workerproto.ReadMessage(reader, &resp); err != nil {
			d.failWorker(wl, err)
			return
		}
		wl.pendingMu.Lock()
		pr, ok := wl.pending[resp.ID]
		if ok {
			delete(wl.pending, resp.ID)
		}
		wl.pendingMu.Unlock()
		if !ok {
			continue
		}
		pr.resp <- resp
	}
}

func (d *Dispatcher) failWorker(wl *workerLink, cause error) {
	if !wl.closed.CompareAndSwap(false, true) {
		return
	}
	wl.setState(Dead)
	debug.LogDispatch("worker %s gone: %v", wl.id, cause)

	wl.pendingMu.Lock()
	pending := wl.pending
	wl.pending = make(map[string]*pendingRequest)
	wl.pendingMu.Unlock()

	goneErr := bmcperrors.NewWorkerGoneError(wl.id, cause.Error())
	for _, pr := range pending {
		pr.errc <- goneErr
	}

	// §4.4: respawn only "if the dispatcher is not shutting down" — a
	// worker whose channel breaks as a side effect of Shutdown closing its
	// stdin must not spawn a replacement Shutdown never tracks or kills.
	if d.closed.Load() {
		return
	}
	go d.respawn(wl)
}

func (d *Dispatcher) respawn(dead *workerLink) {
	time.Sleep(d.cfg.RespawnBackoff)
	if d.closed.Load() {
		return
	}
	replacement, err := d.spawn(context.Background())
	if err != nil {
		debug.LogDispatch("respawn of %s failed: %v", dead.id, err)
		return
	}
	d.mu.Lock()
	for i, wl := range d.workers {
		if wl == dead {
			d.workers[i] = replacement
			break
		}
	}
	d.mu.Unlock()
}

func (d *Dispatcher) pickWorker() (*workerLink, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	n := uint64(len(d.workers))
	if n == 0 {
		return nil, bmcperrors.NewDispatcherBusyError(d.cfg.PendingMapLimit)
	}
	start := d.next.Add(1)
	for i := uint64(0); i < n; i++ {
		wl := d.workers[(start+i)%n]
		if wl.getState() == Ready {
			return wl, nil
		}
	}
	return nil, bmcperrors.NewDispatcherBusyError(d.cfg.PendingMapLimit)
}

// Dispatch sends req to a ready worker and waits for its matching
// response, honoring ctx and the dispatcher's configured request timeout.
// A second consecutive timeout against the same worker triggers a respawn
// of that worker (§4.2).
func (d *Dispatcher) Dispatch(ctx context.Context, req workerproto.Request) (*workerproto.CST, error) {
	if d.closed.Load() {
		return nil, bmcperrors.NewWorkerGoneError("dispatcher", "shut down")
	}
	wl, err := d.pickWorker()
	if err != nil {
		return nil, err
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	pr := &pendingRequest{resp: make(chan workerproto.Response, 1), errc: make(chan error, 1)}

	wl.pendingMu.Lock()
	if len(wl.pending) >= d.cfg.PendingMapLimit {
		wl.pendingMu.Unlock()
		return nil, bmcperrors.NewDispatcherBusyError(d.cfg.PendingMapLimit)
	}
	wl.pending[req.ID] = pr
	wl.pendingMu.Unlock()

	wl.mu.Lock()
	err = workerproto.WriteMessage(wl.stdin, req)
	wl.mu.Unlock()
	if err != nil {
		wl.setState(Degraded)
		wl.pendingMu.Lock()
		delete(wl.pending, req.ID)
		wl.pendingMu.Unlock()
		return nil, fmt.Errorf("dispatcher: write request: %w", err)
	}

	timeout := d.cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case resp := <-pr.resp:
		wl.consecutiveTimeouts.Store(0)
		if !resp.OK {
			return nil, bmcperrors.NewParseFailureError(req.FilePath, fmt.Errorf("%s", resp.Error))
		}
		return resp.Root, nil
	case err := <-pr.errc:
		return nil, err
	case <-timer.C:
		wl.pendingMu.Lock()
		delete(wl.pending, req.ID)
		wl.pendingMu.Unlock()
		if wl.consecutiveTimeouts.Add(1) >= 2 {
			d.failWorker(wl, fmt.Errorf("two consecutive request timeouts"))
			_ = wl.w.Kill()
		}
		return nil, bmcperrors.NewParseTimeoutError(req.ID, req.FilePath, timeout)
	case <-ctx.Done():
		wl.pendingMu.Lock()
		delete(wl.pending, req.ID)
		wl.pendingMu.Unlock()
		return nil, ctx.Err()
	}
}

// WorkerCount returns the pool size this Dispatcher was configured with,
// the figure callers bound their own fan-out against (§5: parallelism
// degree defaults to workers x 2).
func (d *Dispatcher) WorkerCount() int {
	return d.cfg.WorkerCount
}

// Health returns a snapshot of every worker link's lifecycle state and
// pending-request count.
func (d *Dispatcher) Health() []WorkerHealth {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]WorkerHealth, 0, len(d.workers))
	for _, wl := range d.workers {
		wl.pendingMu.Lock()
		pending := len(wl.pending)
		wl.pendingMu.Unlock()
		out = append(out, WorkerHealth{WorkerID: wl.id, State: wl.getState().String(), Pending: pending})
	}
	return out
}

// Shutdown stops all workers, waiting up to the configured grace window
// for each to exit before killing it.
func (d *Dispatcher) Shutdown() {
	d.shutdownOnce.Do(func() {
		d.closed.Store(true)
		d.mu.Lock()
		workers := d.workers
		d.mu.Unlock()

		grace := time.Duration(d.cfg.ShutdownGraceSec) * time.Second
		if grace <= 0 {
			grace = 2 * time.Second
		}

		var wg sync.WaitGroup
		for _, wl := range workers {
			wg.Add(1)
			go func(wl *workerLink) {
				defer wg.Done()
				_ = wl.stdin.Close()
				done := make(chan error, 1)
				go func() { done <- wl.w.Wait() }()
				select {
				case <-done:
				case <-time.After(grace):
					_ = wl.w.Kill()
				}
			}(wl)
		}
		wg.Wait()
	})
}
