package dispatcher_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/bmcp/internal/config"
	"github.com/standardbeagle/bmcp/internal/dispatcher"
	bmcperrors "github.com/standardbeagle/bmcp/internal/errors"
	"github.com/standardbeagle/bmcp/internal/workerproto"
	"github.com/standardbeagle/bmcp/testhelpers/workerstub"
)

func baseCfg() config.Dispatcher {
	return config.Dispatcher{
		WorkerCount:      1,
		RequestTimeout:   200 * time.Millisecond,
		RespawnBackoff:   5 * time.Millisecond,
		PendingMapLimit:  8,
		ShutdownGraceSec: 1,
	}
}

func TestDispatch_RoundTripsSuccessfulParse(t *testing.T) {
	spawner := &workerstub.Spawner{Factory: func(int) workerstub.Handler {
		return func(req workerproto.Request) workerproto.Response {
			return workerproto.Response{ID: req.ID, OK: true, Root: &workerproto.CST{Nodes: []workerproto.CSTNode{{Type: "module"}}}}
		}
	}}
	d, err := dispatcher.New(context.Background(), spawner, baseCfg())
	require.NoError(t, err)
	defer d.Shutdown()

	cst, err := d.Dispatch(context.Background(), workerproto.Request{Language: "go", FilePath: "a.go", Source: "package a", Output: "ast"})

	require.NoError(t, err)
	require.NotNil(t, cst)
	assert.Equal(t, "module", cst.Nodes[0].Type)
}

func TestDispatch_WorkerReportedFailureSurfacesParseFailureError(t *testing.T) {
	spawner := &workerstub.Spawner{Factory: func(int) workerstub.Handler {
		return func(req workerproto.Request) workerproto.Response {
			return workerproto.Response{ID: req.ID, OK: false, Error: "syntax error"}
		}
	}}
	d, err := dispatcher.New(context.Background(), spawner, baseCfg())
	require.NoError(t, err)
	defer d.Shutdown()

	_, err = d.Dispatch(context.Background(), workerproto.Request{Language: "go", FilePath: "a.go"})

	require.Error(t, err)
	var pf *bmcperrors.ParseFailureError
	assert.ErrorAs(t, err, &pf)
}

func TestDispatch_TimeoutThenRespawnRecoversPool(t *testing.T) {
	spawner := &workerstub.Spawner{Factory: func(gen int) workerstub.Handler {
		return func(req workerproto.Request) workerproto.Response {
			if gen == 0 {
				time.Sleep(time.Second) // never answers before the test's short timeout
			}
			return workerproto.Response{ID: req.ID, OK: true, Root: &workerproto.CST{Nodes: []workerproto.CSTNode{{Type: "module"}}}}
		}
	}}
	cfg := baseCfg()
	cfg.RequestTimeout = 30 * time.Millisecond
	cfg.RespawnBackoff = 10 * time.Millisecond
	d, err := dispatcher.New(context.Background(), spawner, cfg)
	require.NoError(t, err)
	defer d.Shutdown()

	_, err = d.Dispatch(context.Background(), workerproto.Request{FilePath: "slow.go"})
	require.Error(t, err)
	var timeoutErr *bmcperrors.ParseTimeoutError
	assert.ErrorAs(t, err, &timeoutErr)

	_, err = d.Dispatch(context.Background(), workerproto.Request{FilePath: "slow.go"})
	require.Error(t, err)
	assert.ErrorAs(t, err, &timeoutErr)

	assert.Eventually(t, func() bool {
		for _, h := range d.Health() {
			if h.State == "ready" {
				return true
			}
		}
		return false
	}, time.Second, 10*time.Millisecond)
}

func TestHealth_ReportsWorkerCount(t *testing.T) {
	spawner := &workerstub.Spawner{Factory: func(int) workerstub.Handler {
		return func(req workerproto.Request) workerproto.Response {
			return workerproto.Response{ID: req.ID, OK: true, Root: &workerproto.CST{}}
		}
	}}
	cfg := baseCfg()
	cfg.WorkerCount = 3
	d, err := dispatcher.New(context.Background(), spawner, cfg)
	require.NoError(t, err)
	defer d.Shutdown()

	assert.Len(t, d.Health(), 3)
}
