package bootstrap

import (
	"context"
	"log"
	"time"

	"ai-tutor-be/internal/config"
	"ai-tutor-be/internal/controller"
	"ai-tutor-be/internal/pkg/logger"
	"ai-tutor-be/internal/repository/unitofwork"
	"ai-tutor-be/internal/service"
	"ai-tutor-be/pkg/llm/factory"
	"ai-tutor-be/pkg/llm/openai"
	"ai-tutor-be/pkg/mode"
	"ai-tutor-be/pkg/mode/intent"
	"ai-tutor-be/pkg/mode/orchestrator"
	"ai-tutor-be/pkg/mode/session"
	"ai-tutor-be/pkg/mode/switcher"
	pktNats "ai-tutor-be/pkg/nats"
	"ai-tutor-be/pkg/tutor"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	SessionController    controller.ISessionController
	MonitoringController controller.IMonitoringController

	// Core
	Orchestrator *orchestrator.Orchestrator

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService

	closers []func()
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	c := &Container{}

	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	appLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
	auditLogger := logger.NewIsolatedLogger(cfg.App.AuditLogFilePath)
	c.closers = append(c.closers, func() {
		_ = appLogger.Sync()
		_ = auditLogger.Sync()
	})

	modesCfg, err := config.LoadModes(cfg.Session.ModesConfigPath, cfg.App.ModesEnvironment)
	if err != nil {
		log.Fatalf("[FATAL] Failed to load modes config: %v", err)
	}

	// 2. Event Bus
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermill.NewStdLogger(false, false),
	)
	c.closers = append(c.closers, func() { _ = pubSub.Close() })

	var remote switcher.EventPublisher
	if cfg.App.NatsURL != "" {
		natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL, appLogger)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
		} else {
			remote = natsPub
			c.closers = append(c.closers, natsPub.Close)
		}
	}

	// 3. Infrastructure
	var rdb redis.UniversalClient
	if cfg.App.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.App.RedisURL)
		if err != nil {
			log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
			opt = &redis.Options{Addr: cfg.App.RedisURL}
		}
		client := redis.NewClient(opt)
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := client.Ping(ctx).Err(); err != nil {
			log.Printf("[WARN] Failed to connect to Redis, learning context cache disabled: %v", err)
			_ = client.Close()
		} else {
			rdb = client
			c.closers = append(c.closers, func() { _ = client.Close() })
		}
		cancel()
	}

	// 4. LLM and mode handlers
	llmProvider, err := factory.NewLLMProvider(factory.Settings{
		Provider: cfg.Ai.LLMProvider,
		Model:    cfg.Ai.LLMModel,
		BaseURL:  cfg.Ai.LLMBaseURL,
		APIKey:   cfg.Ai.LLMAPIKey,
		Timeout:  cfg.Ai.RequestTimeout,
		RetryPolicy: openai.RetryPolicy{
			Attempts:    cfg.Ai.RetryAttempts,
			Delay:       cfg.Ai.RetryDelay,
			StatusCodes: cfg.Ai.RetryStatusCodes,
		},
	})
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	registry := mode.NewRegistry(modesCfg.Names(), map[mode.Name]mode.Handler{
		mode.Plan:   tutor.NewPlanner(llmProvider, cfg.Session.TTL, appLogger),
		mode.Learn:  tutor.NewLearner(llmProvider, cfg.Session.TTL, appLogger),
		mode.Assess: tutor.NewAssessor(llmProvider, cfg.Session.TTL, appLogger),
		mode.Review: tutor.NewReviewer(llmProvider, cfg.Session.TTL, appLogger),
	})

	resolver, err := intent.NewResolver(registry, intent.NewLLMClassifier(llmProvider), modesCfg.ResolverConfig(), appLogger)
	if err != nil {
		log.Fatalf("[FATAL] Failed to build intent resolver: %v", err)
	}

	// 5. Services
	learningContextService := service.NewLearningContextService(uowFactory, rdb, cfg.Session.ContextCacheTTL, appLogger)
	publisherService := service.NewPublisherService(cfg.Session.AuditTopicName, pubSub)
	modeEventService := service.NewModeEventService(publisherService, remote, appLogger)
	monitoringService := service.NewMonitoringService(appLogger, uowFactory)
	c.ConsumerService = service.NewConsumerService(pubSub, cfg.Session.AuditTopicName, uowFactory, auditLogger)

	c.Orchestrator = orchestrator.New(
		orchestrator.Config{
			DefaultMode:  modesCfg.Default(),
			FallbackMode: modesCfg.Fallback(),
		},
		registry,
		resolver,
		session.NewStore(cfg.Session.TTL),
		learningContextService,
		modeEventService,
		appLogger,
	)
	log.Printf("[INFO] Modes: %v (default %s, fallback %s)",
		c.Orchestrator.Modes(), c.Orchestrator.DefaultMode(), c.Orchestrator.FallbackMode())

	// 6. Controllers
	c.SessionController = controller.NewSessionController(c.Orchestrator, learningContextService)
	c.MonitoringController = controller.NewMonitoringController(monitoringService)

	return c
}

// Close releases connections in reverse order of creation
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
}
