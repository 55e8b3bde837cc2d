package service

import (
	"bufio"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drainOffsetSource(t *testing.T, src *offsetSource) []string {
	t.Helper()
	var lines []string
	for {
		line, err := src.Next()
		if err == io.EOF {
			return lines
		}
		require.NoError(t, err)
		lines = append(lines, line)
	}
}

func TestOffsetSourceCountsLineTerminators(t *testing.T) {
	tests := []struct {
		name    string
		content string
		lines   []string
	}{
		{"lf", "a,1\nb,2\nc,3\n", []string{"a,1", "b,2", "c,3"}},
		{"crlf", "a,1\r\nb,2\r\nc,3\r\n", []string{"a,1", "b,2", "c,3"}},
		{"mixed", "a,1\nb,2\r\nc,3\n", []string{"a,1", "b,2", "c,3"}},
		{"unterminated tail", "a,1\nb,2", []string{"a,1", "b,2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &offsetSource{
				ctx:    context.Background(),
				reader: bufio.NewReader(strings.NewReader(tt.content)),
			}
			assert.Equal(t, tt.lines, drainOffsetSource(t, src))
			// The offset must land exactly on the end of the content or
			// the next run re-reads (and re-publishes) the tail.
			assert.Equal(t, int64(len(tt.content)), src.offset)
		})
	}
}

func TestOffsetSourceStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	src := &offsetSource{
		ctx:    ctx,
		reader: bufio.NewReader(strings.NewReader("a\nb\n")),
	}

	line, err := src.Next()
	require.NoError(t, err)
	assert.Equal(t, "a", line)

	cancel()
	_, err = src.Next()
	assert.ErrorIs(t, err, context.Canceled)
}
