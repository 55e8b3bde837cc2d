package reader_test

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lognorm-backend/internal/reader"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func drain(t *testing.T, path string) []string {
	t.Helper()
	src, closer, err := reader.Open(path)
	require.NoError(t, err)
	defer closer.Close()

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

func TestOpenPlainText(t *testing.T) {
	path := writeFile(t, "app.log", "first line\nsecond line\n")
	assert.Equal(t, []string{"first line", "second line"}, drain(t, path))
}

func TestOpenCSVResolvesQuoting(t *testing.T) {
	path := writeFile(t, "events.csv", "ts,level,msg\n\"2024-01-15\",INFO,\"hello, world\"\n")
	lines := drain(t, path)
	require.Len(t, lines, 2)
	assert.Equal(t, "2024-01-15,INFO,hello, world", lines[1])
}

func TestOpenJSONArrayBecomesLines(t *testing.T) {
	path := writeFile(t, "events.json", `[{"msg":"one"},{"msg":"two"}]`)
	lines := drain(t, path)
	require.Len(t, lines, 2)
	assert.JSONEq(t, `{"msg":"one"}`, lines[0])
	assert.JSONEq(t, `{"msg":"two"}`, lines[1])
}

func TestOpenJSONSingleObject(t *testing.T) {
	path := writeFile(t, "event.json", `{"msg":"only"}`)
	lines := drain(t, path)
	require.Len(t, lines, 1)
	assert.JSONEq(t, `{"msg":"only"}`, lines[0])
}

func TestOpenJSONLStaysLineOriented(t *testing.T) {
	path := writeFile(t, "events.jsonl", "{\"msg\":\"one\"}\n{\"msg\":\"two\"}\n")
	lines := drain(t, path)
	assert.Len(t, lines, 2)
}

func TestOpenMissingFile(t *testing.T) {
	_, _, err := reader.Open(filepath.Join(t.TempDir(), "absent.log"))
	assert.Error(t, err)
}

func TestOpenMalformedJSON(t *testing.T) {
	path := writeFile(t, "broken.json", `[{"msg":`)
	_, _, err := reader.Open(path)
	assert.Error(t, err)
}
