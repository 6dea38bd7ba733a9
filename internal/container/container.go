package container

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	database "github.com/daytour-ai/daytour/app/db"
	"github.com/daytour-ai/daytour/app/observability/metrics"
	"github.com/daytour-ai/daytour/config"
	"github.com/daytour-ai/daytour/internal/api/chat"
	generativeAI "github.com/daytour-ai/daytour/internal/api/generative_ai"
	"github.com/daytour-ai/daytour/internal/api/intent"
	"github.com/daytour-ai/daytour/internal/api/match"
	"github.com/daytour-ai/daytour/internal/api/place"
	"github.com/daytour-ai/daytour/internal/api/retrieval"
	"github.com/daytour-ai/daytour/internal/api/session"
)

// Container holds all application dependencies
type Container struct {
	Config      *config.Config
	Logger      *slog.Logger
	Pool        *pgxpool.Pool
	Sessions    *session.Store
	ChatHandler *chat.HandlerImpl
}

// NewContainer initializes and returns a new dependency container
func NewContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	// Initialize database
	dbConfig, err := database.NewDatabaseConfig(cfg, logger)
	if err != nil {
		logger.Error("Failed to generate database config", slog.Any("error", err))
		return nil, err
	}

	pool, err := database.Init(dbConfig.ConnectionURL, logger)
	if err != nil {
		logger.Error("Failed to initialize database pool", slog.Any("error", err))
		return nil, err
	}

	// Model-backed capabilities
	aiClient, err := generativeAI.NewAIClient(ctx)
	if err != nil {
		logger.Error("Failed to initialize AI client", slog.Any("error", err))
		return nil, err
	}
	embeddingService, err := generativeAI.NewEmbeddingService(ctx, logger)
	if err != nil {
		logger.Error("Failed to initialize embedding service", slog.Any("error", err))
		return nil, err
	}

	// Repositories
	placeRepo := place.NewPlaceRepository(pool, logger)
	vectorIndex := place.NewVectorIndex(pool, logger)
	planRepo := chat.NewPlanRepository(pool, logger)

	// Services
	retrievalService := retrieval.NewRetrievalService(placeRepo, vectorIndex, embeddingService, cfg.Retrieval, logger)
	matcherService := match.NewMatcherService(logger)
	sessions := session.NewStore(cfg.Session.TTL, cfg.Session.SweepInterval, logger)
	sessions.OnSweep = func(removed int) {
		metrics.Get().SessionsSweptTotal.Add(context.Background(), int64(removed))
	}
	classifier := intent.NewGenAIClassifier(aiClient, logger)
	extractor := intent.NewGenAIExtractor(aiClient, logger)

	chatService := chat.NewChatService(
		sessions,
		retrievalService,
		matcherService,
		classifier,
		extractor,
		aiClient,
		planRepo,
		placeRepo,
		metrics.Get(),
		cfg.Retrieval,
		logger,
	)
	chatHandler := chat.NewHandlerImpl(chatService, logger)

	return &Container{
		Config:      cfg,
		Logger:      logger,
		Pool:        pool,
		Sessions:    sessions,
		ChatHandler: chatHandler,
	}, nil
}

// Close releases all resources held by the container
func (c *Container) Close() {
	if c.Sessions != nil {
		c.Sessions.Stop()
	}
	if c.Pool != nil {
		c.Pool.Close()
	}
}

// WaitForDB waits for the database to be ready
func (c *Container) WaitForDB(ctx context.Context) bool {
	return database.WaitForDB(ctx, c.Pool, c.Logger)
}

// RunMigrations runs database migrations
func (c *Container) RunMigrations(connectionURL string) error {
	return database.RunMigrations(connectionURL, c.Logger)
}
