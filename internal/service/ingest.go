package service

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"lognorm-backend/config"
	"lognorm-backend/internal/filestate"
	"lognorm-backend/internal/kafka"
	"lognorm-backend/internal/model"
	"lognorm-backend/internal/normalize"
)

// IngestService tails log files under the configured directory,
// detects each file's format once, normalizes new lines and publishes
// the events to Kafka. Progress and committed profiles are persisted
// so restarts resume where the last run stopped.
type IngestService interface {
	ProcessLogs(ctx context.Context) error
}

type ingestService struct {
	pipeline    *normalize.Pipeline
	producer    kafka.EventProducer
	cfg         *config.IngestConfig
	stateMgr    filestate.Manager
	processLock sync.Mutex
}

func NewIngestService(
	cfg *config.Config,
	stateMgr filestate.Manager,
	pipeline *normalize.Pipeline,
	producer kafka.EventProducer,
) IngestService {
	return &ingestService{
		cfg:      &cfg.Ingest,
		stateMgr: stateMgr,
		pipeline: pipeline,
		producer: producer,
	}
}

func (s *ingestService) ProcessLogs(ctx context.Context) error {
	if !s.processLock.TryLock() {
		log.Warn().Msg("Log processing already in progress, skipping run.")
		return nil
	}
	defer s.processLock.Unlock()

	log.Info().Msg("Starting log processing cycle...")
	startTime := time.Now()

	currentState, err := s.stateMgr.LoadState()
	if err != nil {
		log.Error().Err(err).Msg("Failed to load initial file state")
		return fmt.Errorf("failed to load file state: %w", err)
	}

	newState := make(filestate.FileProcessState)
	for k, v := range currentState {
		newState[k] = v
	}

	logFiles, err := s.findLogFiles()
	if err != nil {
		log.Error().Err(err).Msg("Failed to find log files")
		return fmt.Errorf("failed to find log files: %w", err)
	}
	log.Debug().Int("file_count", len(logFiles)).Msg("Found log files to process")

	var totalEventsSent int64
	var pending []model.LogEvent

	for _, filePath := range logFiles {
		fileState, events, err := s.processSingleFile(ctx, filePath, newState[filePath])
		if err != nil {
			log.Error().Err(err).Str("file", filePath).Msg("Failed to process file")
			continue
		}
		newState[filePath] = fileState

		if len(events) == 0 {
			continue
		}
		log.Debug().Str("file", filePath).Int("events", len(events)).Msg("Processed file")
		pending = append(pending, events...)

		for len(pending) >= s.cfg.BatchSize {
			batch := pending[:s.cfg.BatchSize]
			pending = pending[s.cfg.BatchSize:]
			if err := s.sendBatch(ctx, batch); err != nil {
				log.Error().Err(err).Msg("Failed to send intermediate batch to Kafka")
			} else {
				totalEventsSent += int64(len(batch))
			}
		}
	}

	if len(pending) > 0 {
		if err := s.sendBatch(ctx, pending); err != nil {
			log.Error().Err(err).Msg("Failed to send final batch to Kafka")
		} else {
			totalEventsSent += int64(len(pending))
		}
	}

	if err := s.stateMgr.SaveState(newState); err != nil {
		log.Error().Err(err).Msg("Failed to save final file state")
		return fmt.Errorf("failed to save final file state: %w", err)
	}

	log.Info().
		Int64("events_sent", totalEventsSent).
		Int("files_processed", len(logFiles)).
		Dur("duration", time.Since(startTime)).
		Msg("Finished log processing cycle.")

	return nil
}

// Scheduled ingestion tails line-oriented files only; CSV and JSON
// documents need whole-file decoding and go through the CLI instead.
var tailableExtensions = map[string]bool{
	".log":   true,
	".txt":   true,
	".jsonl": true,
}

func (s *ingestService) findLogFiles() ([]string, error) {
	var logFiles []string
	err := filepath.WalkDir(s.cfg.LogDirectory, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Failed to read directory entry")
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if tailableExtensions[strings.ToLower(filepath.Ext(path))] {
			logFiles = append(logFiles, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk log directory: %w", err)
	}
	return logFiles, nil
}

// offsetSource counts consumed bytes so the next run can seek past
// everything already normalized. It reads raw line terminators itself
// because CRLF endings must count two bytes toward the offset.
type offsetSource struct {
	ctx    context.Context
	reader *bufio.Reader
	offset int64
}

func (s *offsetSource) Next() (string, error) {
	if err := s.ctx.Err(); err != nil {
		return "", err
	}
	line, err := s.reader.ReadString('\n')
	if len(line) > 0 {
		s.offset += int64(len(line))
		line = strings.TrimSuffix(line, "\n")
		line = strings.TrimSuffix(line, "\r")
		return line, nil
	}
	if err == nil {
		err = io.EOF
	}
	return "", err
}

func (s *ingestService) processSingleFile(ctx context.Context, filePath string, prev filestate.FileState) (filestate.FileState, []model.LogEvent, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return prev, nil, fmt.Errorf("failed to open file %s: %w", filePath, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return prev, nil, fmt.Errorf("failed to stat file %s: %w", filePath, err)
	}

	if info.Size() < prev.Offset {
		log.Warn().Str("file", filePath).Int64("last_offset", prev.Offset).Int64("current_size", info.Size()).Msg("File truncated or rotated? Resetting offset.")
		prev = filestate.FileState{}
	}
	if info.Size() == prev.Offset {
		return prev, nil, nil
	}

	if _, err = file.Seek(prev.Offset, io.SeekStart); err != nil {
		return prev, nil, fmt.Errorf("failed to seek file %s to offset %d: %w", filePath, prev.Offset, err)
	}

	src := &offsetSource{
		ctx:    ctx,
		reader: bufio.NewReaderSize(file, 64*1024),
		offset: prev.Offset,
	}

	var stream *normalize.Stream
	if prev.Profile != nil {
		// Reuse the profile committed on an earlier run; a file's
		// format never changes mid-stream.
		stream = s.pipeline.RunWithProfile(prev.Profile, src, filePath)
	} else {
		stream, err = s.pipeline.Run(src, filePath)
		if err != nil {
			return prev, nil, fmt.Errorf("failed to start pipeline for %s: %w", filePath, err)
		}
	}

	var events []model.LogEvent
	lastLine := prev.LineNo
	for {
		ev, ok := stream.Next()
		if !ok {
			break
		}
		ev.LineNumber += prev.LineNo
		lastLine = ev.LineNumber + ev.LineCount - 1
		events = append(events, ev)
	}
	if err := stream.Err(); err != nil {
		return prev, events, fmt.Errorf("error reading file %s: %w", filePath, err)
	}

	next := filestate.FileState{
		Offset:  src.offset,
		LineNo:  lastLine,
		Profile: stream.Profile(),
	}
	log.Debug().Str("file", filePath).Int("events_created", len(events)).Int64("new_offset", next.Offset).Msg("Finished processing file")
	return next, events, nil
}

func (s *ingestService) sendBatch(ctx context.Context, batch []model.LogEvent) error {
	if len(batch) == 0 {
		return nil
	}
	log.Debug().Int("batch_size", len(batch)).Msg("Sending batch to Kafka...")
	err := s.producer.Produce(ctx, batch)
	if err != nil {
		return fmt.Errorf("kafka produce error: %w", err)
	}
	return nil
}
