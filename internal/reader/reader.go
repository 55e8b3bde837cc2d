package reader

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"lognorm-backend/internal/normalize"
)

// Open returns a line source for path, picking a decoder from the
// file extension. Unknown extensions are treated as plain text; the
// detection pipeline downstream copes with whatever comes out.
func Open(path string) (normalize.LineSource, io.Closer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open input file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return newCSVSource(f), f, nil
	case ".json":
		src, err := newJSONSource(f)
		if err != nil {
			f.Close()
			return nil, nil, err
		}
		return src, f, nil
	default:
		// .log, .txt, .jsonl and anything else go through line by
		// line; JSONL records are detected per line downstream.
		return normalize.ScanLines(f), f, nil
	}
}

// csvSource re-emits each CSV record as a comma-joined line so the
// pattern detector sees the same delimited shape it would in a raw
// file, with quoting already resolved.
type csvSource struct {
	reader *csv.Reader
}

func newCSVSource(r io.Reader) *csvSource {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	return &csvSource{reader: cr}
}

func (s *csvSource) Next() (string, error) {
	record, err := s.reader.Read()
	if err != nil {
		return "", err
	}
	return strings.Join(record, ","), nil
}

// jsonSource handles .json files that hold either a top-level array
// of records or a single object. Each element is re-serialized as one
// compact line, turning the document into JSONL for the pipeline.
type jsonSource struct {
	lines []string
	pos   int
}

func newJSONSource(r io.Reader) (*jsonSource, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read JSON input: %w", err)
	}

	trimmed := strings.TrimSpace(string(data))
	src := &jsonSource{}

	if strings.HasPrefix(trimmed, "[") {
		var records []json.RawMessage
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, fmt.Errorf("failed to parse JSON array: %w", err)
		}
		for _, rec := range records {
			line, err := compact(rec)
			if err != nil {
				log.Warn().Err(err).Msg("Skipping unserializable JSON record")
				continue
			}
			src.lines = append(src.lines, line)
		}
		return src, nil
	}

	var record json.RawMessage
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to parse JSON input: %w", err)
	}
	line, err := compact(record)
	if err != nil {
		return nil, err
	}
	src.lines = []string{line}
	return src, nil
}

func (s *jsonSource) Next() (string, error) {
	if s.pos >= len(s.lines) {
		return "", io.EOF
	}
	line := s.lines[s.pos]
	s.pos++
	return line, nil
}

func compact(raw json.RawMessage) (string, error) {
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", err
	}
	out, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
