package signals

import (
	"context"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestSetupHandler_CancelsContextOnSignal(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cleanup := SetupHandler(ctx, cancel)
	defer cleanup()

	proc, err := os.FindProcess(os.Getpid())
	require.NoError(t, err)
	require.NoError(t, proc.Signal(syscall.SIGTERM))

	select {
	case <-ctx.Done():
	case <-time.After(1 * time.Second):
		t.Fatal("Context was not cancelled after signal")
	}
}

func TestSetupHandler_CleanupStopsGoroutine(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithCancel(context.Background())
	cleanup := SetupHandler(ctx, cancel)

	cleanup()
	assert.Error(t, ctx.Err())
}

func TestContext_ParentCancellation(t *testing.T) {
	defer goleak.VerifyNone(t)

	parent, cancel := context.WithCancel(context.Background())
	ctx, cleanup := Context(parent)

	cancel()
	select {
	case <-ctx.Done():
	case <-time.After(1 * time.Second):
		t.Fatal("child context was not cancelled with its parent")
	}
	cleanup()
}
