package task

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"taskgate/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempLog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.log")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestTailFile(t *testing.T) {
	var b strings.Builder
	for i := 1; i <= 10; i++ {
		fmt.Fprintf(&b, "entry %d\n", i)
	}
	path := writeTempLog(t, b.String())

	t.Run("last lines", func(t *testing.T) {
		lines, err := tailFile(path, 3)
		require.NoError(t, err)
		assert.Equal(t, []string{"entry 8", "entry 9", "entry 10"}, lines)
	})

	t.Run("more than the file holds", func(t *testing.T) {
		lines, err := tailFile(path, 100)
		require.NoError(t, err)
		assert.Len(t, lines, 10)
		assert.Equal(t, "entry 1", lines[0])
	})

	t.Run("missing trailing newline", func(t *testing.T) {
		p := writeTempLog(t, "first\nsecond\nlast")
		lines, err := tailFile(p, 2)
		require.NoError(t, err)
		assert.Equal(t, []string{"second", "last"}, lines)
	})

	t.Run("crlf line endings", func(t *testing.T) {
		p := writeTempLog(t, "one\r\ntwo\r\n")
		lines, err := tailFile(p, 5)
		require.NoError(t, err)
		assert.Equal(t, []string{"one", "two"}, lines)
	})

	t.Run("empty file", func(t *testing.T) {
		p := writeTempLog(t, "")
		lines, err := tailFile(p, 5)
		require.NoError(t, err)
		assert.Empty(t, lines)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := tailFile(filepath.Join(t.TempDir(), "nope.log"), 5)
		assert.ErrorIs(t, err, types.ErrLogNotFound)
	})
}

// TestTailFileLarge exercises the backwards chunked read path with a
// file larger than one chunk.
func TestTailFileLarge(t *testing.T) {
	var b strings.Builder
	total := 2000
	for i := 1; i <= total; i++ {
		fmt.Fprintf(&b, "line %06d with some padding to grow the file\n", i)
	}
	require.Greater(t, b.Len(), tailChunkSize)
	path := writeTempLog(t, b.String())

	lines, err := tailFile(path, 50)
	require.NoError(t, err)
	require.Len(t, lines, 50)
	assert.Equal(t, fmt.Sprintf("line %06d with some padding to grow the file", total), lines[49])
	assert.Equal(t, fmt.Sprintf("line %06d with some padding to grow the file", total-49), lines[0])
}
