package task

import (
	"context"
	"testing"
	"time"

	"taskgate/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecRunner(t *testing.T) {
	r := newExecRunner(5 * time.Second)
	ctx := context.Background()

	t.Run("captures output", func(t *testing.T) {
		out, code, err := r.Run(ctx, "/bin/echo", "hello")
		require.NoError(t, err)
		assert.Equal(t, 0, code)
		assert.Equal(t, "hello\n", out)
	})

	t.Run("reports exit code", func(t *testing.T) {
		out, code, err := r.Run(ctx, "/bin/sh", "-c", "echo oops >&2; exit 3")
		require.Error(t, err)
		assert.Equal(t, 3, code)
		assert.Contains(t, out, "oops")
	})

	t.Run("missing binary", func(t *testing.T) {
		_, code, err := r.Run(ctx, "/nonexistent/binary")
		require.Error(t, err)
		assert.Equal(t, -1, code)
	})
}

func TestExecRunnerTimeout(t *testing.T) {
	r := newExecRunner(100 * time.Millisecond)

	start := time.Now()
	_, _, err := r.Run(context.Background(), "/bin/sleep", "10")
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrExecutionTimeout)
	assert.Less(t, time.Since(start), 5*time.Second)
}
