package errors

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseFailureError_IsAndUnwrap(t *testing.T) {
	underlying := errors.New("tree-sitter panic")
	err := NewParseFailureError("src/main.go", underlying)

	assert.True(t, errors.Is(err, ErrParseFailure))
	assert.ErrorIs(t, err, underlying)
	assert.Contains(t, err.Error(), "src/main.go")
}

func TestGrammarUnavailableError_Is(t *testing.T) {
	err := NewGrammarUnavailableError("rust", "no loader registered")

	assert.True(t, errors.Is(err, ErrGrammarUnavailable))
	assert.Contains(t, err.Error(), "rust")
}

func TestParseTimeoutError_Is(t *testing.T) {
	err := NewParseTimeoutError("req-1", "big.go", 30*time.Second)

	assert.True(t, errors.Is(err, ErrParseTimeout))
	assert.Contains(t, err.Error(), "req-1")
}

func TestWorkerGoneError_Is(t *testing.T) {
	err := NewWorkerGoneError("worker-2", "exit status 2")

	assert.True(t, errors.Is(err, ErrWorkerGone))
}

func TestDispatcherBusyError_Is(t *testing.T) {
	err := NewDispatcherBusyError(128)

	assert.True(t, errors.Is(err, ErrDispatcherBusy))
	assert.Contains(t, err.Error(), "128")
}

func TestStoreError_IsAndUnwrap(t *testing.T) {
	underlying := errors.New("connection refused")
	err := NewStoreError("upsert_nodes", "src/main.go", underlying)

	assert.True(t, errors.Is(err, ErrStore))
	assert.ErrorIs(t, err, underlying)
}

func TestInvariantError_Is(t *testing.T) {
	err := NewInvariantError("duplicate gid", "go_aaaa", "go_bbbb")

	assert.True(t, errors.Is(err, ErrInvariant))
	assert.Contains(t, err.Error(), "go_aaaa")
}

func TestConfigError_Unwrap(t *testing.T) {
	underlying := errors.New("not an integer")
	err := NewConfigError("dispatcher.workers", "abc", underlying)

	assert.ErrorIs(t, err, underlying)
}

func TestMultiError_FiltersNilsAndCollapsesSingle(t *testing.T) {
	single := NewMultiError([]error{nil, errors.New("only one")})
	assert.Equal(t, "only one", single.Error())

	multi := NewMultiError([]error{errors.New("a"), nil, errors.New("b")})
	assert.Len(t, multi.Errors, 2)
	assert.Contains(t, multi.Error(), "2 errors")
}

func TestMultiError_AllNilReturnsNil(t *testing.T) {
	assert.Nil(t, NewMultiError([]error{nil, nil}))
}
