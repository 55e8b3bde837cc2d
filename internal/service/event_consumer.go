package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	kafkaGo "github.com/segmentio/kafka-go"

	"lognorm-backend/config"
	"lognorm-backend/internal/elasticsearch"
	"lognorm-backend/internal/kafka"
	"lognorm-backend/internal/metrics"
	"lognorm-backend/internal/model"
	"lognorm-backend/internal/timescaledb"
)

// EventConsumerService drains the Kafka event topic into the search
// and metric stores.
type EventConsumerService interface {
	Run(ctx context.Context, wg *sync.WaitGroup)
}

type eventConsumerService struct {
	consumer    kafka.EventConsumer
	eventStore  elasticsearch.EventStore
	metricStore timescaledb.MetricStore
	extractor   metrics.Extractor
	batchSize   int
	maxWaitTime time.Duration
}

func NewEventConsumerService(
	consumer kafka.EventConsumer,
	eventStore elasticsearch.EventStore,
	metricStore timescaledb.MetricStore,
	extractor metrics.Extractor,
	cfg *config.Config,
) EventConsumerService {
	return &eventConsumerService{
		consumer:    consumer,
		eventStore:  eventStore,
		metricStore: metricStore,
		extractor:   extractor,
		batchSize:   cfg.Ingest.BatchSize,
		maxWaitTime: cfg.Ingest.MaxBatchWait,
	}
}

func (s *eventConsumerService) Run(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()
	log.Info().Msg("Starting Event Consumer Service loop...")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Event Consumer Service loop stopping due to context cancellation.")
			return
		default:
		}

		err := s.processBatch(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				log.Info().Msg("Context cancelled during batch processing.")
				return
			}
			log.Error().Err(err).Msg("Error processing consumer batch")
			time.Sleep(1 * time.Second)
		}
	}
}

func (s *eventConsumerService) processBatch(ctx context.Context) error {
	events := make([]*model.LogEvent, 0, s.batchSize)
	originalMessages := make([]kafkaGo.Message, 0, s.batchSize)
	batchStartTime := time.Now()
	commitNeeded := false

	for len(events) < s.batchSize {
		select {
		case <-ctx.Done():
			log.Info().Msg("Context cancelled while building consumer batch.")
			return ctx.Err()
		default:
		}

		fetchCtx, cancel := context.WithTimeout(ctx, s.maxWaitTime-time.Since(batchStartTime))
		event, originalMsg, err := s.consumer.FetchMessage(fetchCtx)
		cancel()

		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				log.Debug().Int("batch_size", len(events)).Msg("Max wait time reached for batch, processing partial batch.")
				break
			}
			// Unmarshal failures still return the message; track it so
			// the offset gets committed and the poison pill is skipped.
			if originalMsg.Topic != "" {
				originalMessages = append(originalMessages, originalMsg)
				if event == nil {
					log.Warn().Int64("offset", originalMsg.Offset).Msg("Adding message with unmarshal error to batch for commit tracking.")
				}
				events = append(events, event)
				continue
			}

			log.Error().Err(err).Msg("Failed to fetch message, stopping batch accumulation for now.")
			return fmt.Errorf("failed to fetch kafka message: %w", err)
		}

		events = append(events, event)
		originalMessages = append(originalMessages, originalMsg)
		commitNeeded = true

		if len(events) >= s.batchSize {
			break
		}
	}

	if len(events) == 0 {
		log.Debug().Msg("No messages in batch to process.")
		return nil
	}

	log.Debug().Int("batch_size", len(events)).Msg("Processing collected batch...")

	validEvents := make([]model.LogEvent, 0, len(events))
	metricEvents := make([]model.MetricEvent, 0, len(events))
	for _, event := range events {
		if event == nil {
			continue
		}
		validEvents = append(validEvents, *event)
		metricEvents = append(metricEvents, s.extractor.ExtractMetricEvents(event)...)
	}

	errEventStore := s.eventStore.StoreEvents(ctx, validEvents)
	if errEventStore != nil {
		log.Error().Err(errEventStore).Msg("Failed to store events to Elasticsearch")
		return fmt.Errorf("failed storing events: %w", errEventStore)
	}

	errMetricStore := s.metricStore.StoreMetricEvents(ctx, metricEvents)
	if errMetricStore != nil {
		log.Error().Err(errMetricStore).Msg("Failed to store metric events to TimescaleDB")
		return fmt.Errorf("failed storing metric events: %w", errMetricStore)
	}

	if commitNeeded {
		log.Debug().Int("message_count", len(originalMessages)).Msg("Attempting to commit Kafka messages...")
		errCommit := s.consumer.CommitMessages(ctx, originalMessages...)
		if errCommit != nil {
			log.Error().Err(errCommit).Msg("Failed to commit Kafka messages after successful storage")
			return fmt.Errorf("failed committing kafka messages: %w", errCommit)
		}
		log.Info().Int("batch_size", len(events)).Msg("Successfully processed and committed batch.")
	} else {
		log.Debug().Msg("No valid messages processed, skipping commit.")
	}

	return nil
}
