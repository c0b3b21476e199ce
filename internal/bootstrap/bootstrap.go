// Package bootstrap wires configuration into the API server and the
// worker.
package bootstrap

import (
	"context"
	"errors"
	"os"
	"sync"
	"time"

	"campaign_worker/adapter/in/http"
	"campaign_worker/adapter/in/worker"
	"campaign_worker/adapter/out/backendapi"
	"campaign_worker/adapter/out/provider/gmail"
	"campaign_worker/config"
	"campaign_worker/core/agent"
	"campaign_worker/core/agent/llm"
	"campaign_worker/core/agent/tools"
	"campaign_worker/core/port/out"
	"campaign_worker/core/service/auth"
	"campaign_worker/core/service/campaign"
	"campaign_worker/core/service/reply"
	"campaign_worker/internal/stream"
	"campaign_worker/pkg/logger"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	fiberrecover "github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const defaultBackendURL = "http://localhost:8000"

type Dependencies struct {
	Config   *config.Config
	Redis    *redis.Client
	Stream   *stream.RedisStream
	Producer *stream.Producer

	Backend *backendapi.Client
	Gmail   *gmail.Adapter
	Tokens  *auth.TokenService
	Agent   *agent.ReplyAgent
	Poller  *reply.Poller
}

func NewDependencies(cfg *config.Config) (*Dependencies, func(), error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	redisClient := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		redisClient.Close()
		return nil, nil, err
	}

	backendURL := cfg.BackendURL
	if backendURL == "" {
		if cfg.AgentCalendarTools {
			redisClient.Close()
			return nil, nil, errors.New("BACKEND_URL must be set when calendar tools are enabled")
		}
		logger.Warn("BACKEND_URL not set, defaulting to %s", defaultBackendURL)
		backendURL = defaultBackendURL
	}

	zlog := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).
		With().Timestamp().Str("component", "stream").Logger()

	redisStream := stream.NewRedisStream(redisClient, cfg.ConsumerGroup, zlog)
	backend := backendapi.NewClient(backendURL)
	gmailAdapter := gmail.NewAdapter()
	tokenService := auth.NewTokenService(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.TokenExpiryBuffer)

	var textGen agent.TextGenerator
	if cfg.OpenAIAPIKey != "" {
		textGen = llm.NewClient(llm.ClientConfig{
			APIKey:      cfg.OpenAIAPIKey,
			Model:       cfg.LLMModel,
			MaxTokens:   cfg.LLMMaxTokens,
			Temperature: cfg.LLMTemperature,
		})
	} else {
		logger.Warn("No text generation API key configured, auto-replies use the static fallback")
	}

	var registry *tools.Registry
	if cfg.AgentCalendarTools {
		registry = tools.NewRegistry()
		registry.RegisterAll(
			tools.NewAvailabilityTool(backend),
			tools.NewBookMeetingTool(backend),
		)
		logger.Info("Calendar tools enabled (%d tools)", registry.Len())
	}

	replyAgent := agent.NewReplyAgent(textGen, registry, cfg.AgentMaxToolSteps)
	poller := reply.NewPoller(backend, gmailAdapter, tokenService, replyAgent, cfg.HistoryLimit)

	deps := &Dependencies{
		Config:   cfg,
		Redis:    redisClient,
		Stream:   redisStream,
		Producer: stream.NewProducer(redisStream),
		Backend:  backend,
		Gmail:    gmailAdapter,
		Tokens:   tokenService,
		Agent:    replyAgent,
		Poller:   poller,
	}

	cleanup := func() {
		if err := redisClient.Close(); err != nil {
			logger.WithError(err).Warn("failed to close redis client")
		}
	}
	return deps, cleanup, nil
}

// NewAPI builds the fiber app that accepts task submissions.
func NewAPI(cfg *config.Config) (*fiber.App, func(), error) {
	logLevel := logger.LevelInfo
	if cfg.IsDevelopment() {
		logLevel = logger.LevelDebug
	}
	logger.Init(logger.Config{
		Level:   logLevel,
		Service: "campaign-worker-api",
	})

	deps, cleanup, err := NewDependencies(cfg)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize dependencies")
		return nil, nil, err
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: cfg.IsProduction(),
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
		BodyLimit:             1024 * 1024,
	})
	app.Use(fiberrecover.New())

	taskHandler := http.NewTaskHandler(deps.Producer, deps.Stream, deps.Redis)
	taskHandler.Register(app)

	return app, cleanup, nil
}

// Worker runs the stream consumer and the reply-check scheduler.
type Worker struct {
	consumer  *stream.Consumer
	scheduler *worker.ReplyCheckScheduler
	deps      *Dependencies
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

func NewWorker(cfg *config.Config) (*Worker, func(), error) {
	logger.Init(logger.Config{
		Level:   logger.LevelInfo,
		Service: "campaign-worker",
	})

	deps, cleanup, err := NewDependencies(cfg)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize dependencies")
		return nil, nil, err
	}

	zlog := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).
		With().Timestamp().Str("component", "worker").Logger()

	campaignProcessor := worker.NewCampaignProcessor(
		func(baseURL string) out.Backend { return deps.Backend.WithBase(baseURL) },
		deps.Gmail,
		deps.Tokens,
		campaign.Config{
			PageSize:        cfg.ContactPageSize,
			TokenCheckEvery: cfg.TokenCheckEvery,
			SendDelay:       cfg.SendDelay,
			PageDelay:       cfg.PageDelay,
		},
	)
	replyProcessor := worker.NewReplyProcessor(deps.Poller, deps.Backend)
	handler := worker.NewHandler(campaignProcessor, replyProcessor)

	consumer := stream.NewConsumer(deps.Stream, handler, cfg.ConsumerName, zlog)

	ctx, cancel := context.WithCancel(context.Background())
	w := &Worker{
		consumer: consumer,
		deps:     deps,
		ctx:      ctx,
		cancel:   cancel,
	}

	if cfg.SchedulerEnabled {
		w.scheduler = worker.NewReplyCheckScheduler(deps.Producer, cfg.ReplyPollInterval)
		logger.Info("Reply check scheduler configured (interval %v)", cfg.ReplyPollInterval)
	}

	return w, cleanup, nil
}

// Start blocks until Stop is called.
func (w *Worker) Start() {
	if w.scheduler != nil {
		w.scheduler.Start()
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		if err := w.consumer.Run(w.ctx); err != nil && err != context.Canceled {
			logger.WithError(err).Error("consumer stopped")
		}
	}()

	w.wg.Wait()
}

// Stop shuts the worker down and waits for in-flight jobs.
func (w *Worker) Stop() {
	if w.scheduler != nil {
		w.scheduler.Stop()
	}
	w.cancel()
	w.wg.Wait()
}
