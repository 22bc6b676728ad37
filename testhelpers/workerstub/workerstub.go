// Package workerstub provides an in-memory stand-in for a bmcp-worker
// subprocess, so dispatcher tests exercise the real wire protocol without
// spawning a binary (the Go toolchain is never invoked to build one here).
package workerstub

import (
	"bufio"
	"context"
	"io"
	"sync/atomic"

	"github.com/standardbeagle/bmcp/internal/dispatcher"
	"github.com/standardbeagle/bmcp/internal/workerproto"
)

// Handler produces a response for one request, standing in for a worker's
// parse logic.
type Handler func(req workerproto.Request) workerproto.Response

// Stub is an in-memory Worker: writes to Stdin() are read by the handler
// loop, and the handler's responses are readable from Stdout().
type Stub struct {
	inR  *io.PipeReader
	inW  *io.PipeWriter
	outR *io.PipeReader
	outW *io.PipeWriter

	killed atomic.Bool
	done   chan struct{}
}

// New starts a stub worker backed by handler.
func New(handler Handler) *Stub {
	inR, inW := io.Pipe()
	outR, outW := io.Pipe()
	s := &Stub{inR: inR, inW: inW, outR: outR, outW: outW, done: make(chan struct{})}
	go s.serve(handler)
	return s
}

func (s *Stub) serve(handler Handler) {
	defer close(s.done)
	defer s.outW.Close()
	reader := bufio.NewReader(s.inR)
	for {
		var req workerproto.Request
		if err := workerproto.ReadMessage(reader, &req); err != nil {
			return
		}
		resp := handler(req)
		if err := workerproto.WriteMessage(s.outW, resp); err != nil {
			return
		}
	}
}

func (s *Stub) Stdin() io.WriteCloser { return s.inW }
func (s *Stub) Stdout() io.Reader     { return s.outR }

func (s *Stub) Wait() error {
	<-s.done
	return nil
}

func (s *Stub) Kill() error {
	if s.killed.CompareAndSwap(false, true) {
		_ = s.inW.CloseWithError(io.ErrClosedPipe)
		_ = s.outW.CloseWithError(io.ErrClosedPipe)
	}
	return nil
}

// Spawner hands out stubs built from a factory, one per Spawn call, so
// respawn tests can vary behavior across spawn generations.
type Spawner struct {
	Factory func(generation int) Handler
	count   atomic.Int32
}

func (s *Spawner) Spawn(ctx context.Context) (dispatcher.Worker, error) {
	gen := int(s.count.Add(1)) - 1
	return New(s.Factory(gen)), nil
}
