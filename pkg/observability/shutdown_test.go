package observability

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewShutdownManager_DefaultTimeout(t *testing.T) {
	logger := NewLogger(InfoLevel, io.Discard)

	sm := NewShutdownManager(logger, nil, 0)
	assert.Equal(t, 30*time.Second, sm.shutdownTimeout)

	sm = NewShutdownManager(logger, nil, 5*time.Second)
	assert.Equal(t, 5*time.Second, sm.shutdownTimeout)
}

func TestRegisterShutdownFunc(t *testing.T) {
	logger := NewLogger(InfoLevel, io.Discard)
	sm := NewShutdownManager(logger, nil, time.Second)

	sm.RegisterShutdownFunc(func(ctx context.Context) error { return nil })
	sm.RegisterShutdownFunc(func(ctx context.Context) error { return nil })

	assert.Len(t, sm.shutdownFuncs, 2)
}

func TestWaitForShutdown_RunsRegisteredFuncs(t *testing.T) {
	logger := NewLogger(InfoLevel, io.Discard)
	sm := NewShutdownManager(logger, nil, 5*time.Second)

	var calls int32
	sm.RegisterShutdownFunc(func(ctx context.Context) error {
		atomic.AddInt32(&calls, 1)
		return nil
	})
	sm.RegisterShutdownFunc(func(ctx context.Context) error {
		atomic.AddInt32(&calls, 1)
		return nil
	})

	errCh := make(chan error, 1)
	go func() { errCh <- sm.WaitForShutdown() }()

	// Give WaitForShutdown time to install its signal handler.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGTERM))

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("shutdown did not complete")
	}
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestWaitForShutdown_ReportsFuncErrors(t *testing.T) {
	logger := NewLogger(InfoLevel, io.Discard)
	sm := NewShutdownManager(logger, nil, 5*time.Second)

	sm.RegisterShutdownFunc(func(ctx context.Context) error { return errors.New("flush failed") })

	errCh := make(chan error, 1)
	go func() { errCh <- sm.WaitForShutdown() }()

	time.Sleep(100 * time.Millisecond)
	require.NoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGTERM))

	select {
	case err := <-errCh:
		require.Error(t, err)
		assert.Contains(t, err.Error(), "1 errors")
	case <-time.After(5 * time.Second):
		t.Fatal("shutdown did not complete")
	}
}

func TestWaitForShutdown_StopsHTTPServer(t *testing.T) {
	logger := NewLogger(InfoLevel, io.Discard)
	server := &http.Server{Addr: "127.0.0.1:0"}
	sm := NewShutdownManager(logger, server, 5*time.Second)

	errCh := make(chan error, 1)
	go func() { errCh <- sm.WaitForShutdown() }()

	time.Sleep(100 * time.Millisecond)
	require.NoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGTERM))

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("shutdown did not complete")
	}

	// A shut-down server refuses further ListenAndServe calls.
	assert.ErrorIs(t, server.ListenAndServe(), http.ErrServerClosed)
}
