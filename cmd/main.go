package main

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"go.uber.org/fx"

	"lognorm-backend/config"
	"lognorm-backend/internal/controller"
	"lognorm-backend/internal/elasticsearch"
	"lognorm-backend/internal/filestate"
	"lognorm-backend/internal/kafka"
	"lognorm-backend/internal/metrics"
	"lognorm-backend/internal/normalize"
	"lognorm-backend/internal/scheduler"
	"lognorm-backend/internal/service"
	"lognorm-backend/internal/timescaledb"
)

func main() {
	var wg sync.WaitGroup

	app := fx.New(
		// Core Dependencies
		fx.Provide(
			NewConfig,
		),
		// Infrastructure Dependencies
		fx.Provide(
			NewGinEngine,
			NewPipeline,
			NewFileStateManager,
			elasticsearch.NewElasticsearchEventRepository,
			timescaledb.NewTimescaleMetricRepository,
			service.NewEventQueryService,
			service.NewMetricQueryService,
			service.NewDetectionService,
			controller.NewEventController,
			controller.NewMetricController,
			controller.NewDetectController,
			kafka.NewKafkaEventProducer,
			kafka.NewKafkaEventConsumer,
			elasticsearch.NewElasticEventStore,
			timescaledb.ProvideTimescaleDBPool,
			metrics.NewEventMetricExtractor,
			service.NewIngestService,
			service.NewEventConsumerService,
		),
		fx.Invoke(RegisterAPIRoutes,
			RegisterScheduler,
			func(lc fx.Lifecycle, consumerService service.EventConsumerService) {
				startEventConsumer(lc, &wg, consumerService)
			},
		),
	)

	startCtx, cancelStart := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelStart()
	if err := app.Start(startCtx); err != nil {
		log.Fatal().Err(err).Msg("Failed to start application")
	}
	<-app.Done()

	stopCtx, cancelStop := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelStop()
	log.Info().Msg("Shutting down application...")
	if err := app.Stop(stopCtx); err != nil {
		log.Error().Err(err).Msg("Forced shutdown due to error or timeout")
	}

	log.Info().Msg("Waiting for background goroutines to finish...")
	wg.Wait()
	log.Info().Msg("All background processes finished. Exiting.")
}

func NewConfig() (*config.Config, error) {
	return config.NewConfig()
}

func NewPipeline(cfg *config.Config) (*normalize.Pipeline, error) {
	return normalize.NewPipeline(&cfg.Detection)
}

func NewGinEngine() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	return r
}

func RegisterAPIRoutes(
	lifecycle fx.Lifecycle,
	router *gin.Engine,
	cfg *config.Config,
	eventController *controller.EventController,
	metricController *controller.MetricController,
	detectController *controller.DetectController,
) {
	if eventController != nil {
		controller.RegisterEventRoutes(router, eventController)
	} else {
		log.Warn().Msg("EventController not provided, skipping event API routes.")
	}

	if metricController != nil {
		controller.RegisterMetricRoutes(router, metricController)
	} else {
		log.Warn().Msg("MetricController not provided")
	}
	if detectController != nil {
		controller.RegisterDetectRoutes(router, detectController)
	} else {
		log.Warn().Msg("DetectController not provided")
	}

	server := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}
	lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info().Msgf("Starting HTTP server on port %s", cfg.Server.Port)
			go func() {
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Error().Err(err).Msg("HTTP server ListenAndServe error")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info().Msg("Shutting down HTTP server...")
			return server.Shutdown(ctx)
		},
	})
}

// --- Factory Functions ---

func NewFileStateManager(cfg *config.Config) filestate.Manager {
	return filestate.NewManager(cfg.FileState.FilePath)
}

// --- Invoker Functions ---

func RegisterScheduler(lc fx.Lifecycle, cfg *config.Config, ingestSvc service.IngestService) {
	scheduler.NewScheduler(lc, cfg, ingestSvc)
}

// startEventConsumer runs the consumer loop in a goroutine tied to
// the fx lifecycle.
func startEventConsumer(lc fx.Lifecycle, wg *sync.WaitGroup, consumerService service.EventConsumerService) {
	wg.Add(1)
	ctx, cancel := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			log.Info().Msg("Starting Event Consumer goroutine")
			go consumerService.Run(ctx, wg)
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			log.Info().Msg("Signaling Event Consumer goroutine to stop...")
			cancel()
			return nil
		},
	})
}
