package task

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"taskgate/internal/types"
)

const tailChunkSize = 16 * 1024

// tailFile returns the last n lines of the file at path. It reads the
// file backwards in chunks so large logs are never loaded whole.
func tailFile(path string, n int) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", types.ErrLogNotFound, path)
		}
		return nil, fmt.Errorf("failed to open log: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	stat, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat log: %w", err)
	}

	var (
		buf    []byte
		offset = stat.Size()
		chunk  = make([]byte, tailChunkSize)
	)

	for offset > 0 {
		size := int64(tailChunkSize)
		if offset < size {
			size = offset
		}
		offset -= size

		if _, err := f.Seek(offset, io.SeekStart); err != nil {
			return nil, fmt.Errorf("failed to seek log: %w", err)
		}
		if _, err := io.ReadFull(f, chunk[:size]); err != nil {
			return nil, fmt.Errorf("failed to read log: %w", err)
		}

		buf = append(append([]byte{}, chunk[:size]...), buf...)

		// Stop once enough line breaks have been collected.
		if bytes.Count(buf, []byte{'\n'}) > n {
			break
		}
	}

	lines := splitTail(buf, n)
	return lines, nil
}

// splitTail returns at most n trailing lines from buf.
func splitTail(buf []byte, n int) []string {
	trimmed := bytes.TrimRight(buf, "\n")
	if len(trimmed) == 0 {
		return []string{}
	}

	parts := bytes.Split(trimmed, []byte{'\n'})
	if len(parts) > n {
		parts = parts[len(parts)-n:]
	}

	out := make([]string, len(parts))
	for i, p := range parts {
		out[i] = string(bytes.TrimSuffix(p, []byte{'\r'}))
	}
	return out
}
