package app

import (
	"context"
	"fmt"

	"realty/internal/config"
	"realty/internal/repository"
	"realty/internal/service"
	"realty/pkg/log"

	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"
)

// App holds the wired components shared by the server and the CLI
type App struct {
	Config    *config.Config
	DB        *sqlx.DB
	Listings  *repository.ListingRepository
	Index     repository.VectorIndex
	AI        service.AIClient
	Knowledge *service.KnowledgeBase
	Router    *service.Router
	Assistant *service.Assistant

	redis *redis.Client
}

// New opens every backend named by cfg and wires the assistant
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg}

	db, err := repository.Open(cfg.Database.Driver, cfg.GetDSN(), cfg.Database.MaxConnections, cfg.Database.MaxIdleConnections)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to listing store: %w", err)
	}
	a.DB = db
	log.Infow("Connected to listing store", "driver", cfg.Database.Driver)

	a.Listings = repository.NewListingRepository(db, repository.PriceFloors{
		Rent: cfg.Retrieval.RentPriceFloor,
		Sell: cfg.Retrieval.SellPriceFloor,
	})

	index, err := repository.NewVectorIndex(repository.VectorIndexOptions{
		Backend:    cfg.VectorIndex.Backend,
		Collection: cfg.VectorIndex.Collection,
		Dimensions: cfg.VectorIndex.Dimensions,
		QdrantHost: cfg.VectorIndex.QdrantHost,
		QdrantPort: cfg.VectorIndex.QdrantPort,
	}, db)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to open vector index: %w", err)
	}
	a.Index = index
	log.Infow("Vector index ready", "backend", cfg.VectorIndex.Backend, "collection", cfg.VectorIndex.Collection)

	ai, err := NewAIClient(&cfg.AI)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.AI = ai
	if !a.AI.IsEnabled() {
		log.Warnf("AI provider is disabled: set OPENAI_API_KEY to enable classification, embeddings and answers")
	}

	history, err := a.historyStore(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Knowledge = service.NewKnowledgeBase(a.Listings, a.Index, a.AI, cfg.VectorIndex.BatchSize)
	a.Router = service.NewRouter(a.Listings, a.Knowledge, nil, RouterOptions(cfg.Retrieval))
	a.Assistant = service.NewAssistant(service.NewIntentClassifier(a.AI), a.Router, a.AI, history, cfg.Sessions.MaxTurns)
	return a, nil
}

// NewAIClient creates the configured language model provider
func NewAIClient(cfg *config.AIConfig) (service.AIClient, error) {
	switch cfg.Provider {
	case "langchain":
		client, err := service.NewLangChainClient(cfg)
		if err != nil {
			return nil, err
		}
		log.Infow("AI client initialized", "provider", "langchain", "base", cfg.APIBase, "chat_model", cfg.ChatModel, "embedding_model", cfg.EmbeddingModel)
		return client, nil
	default:
		log.Infow("AI client initialized", "provider", "openai", "base", cfg.APIBase, "chat_model", cfg.ChatModel, "embedding_model", cfg.EmbeddingModel)
		return service.NewOpenAIClient(cfg), nil
	}
}

// RouterOptions maps retrieval config onto router sizes
func RouterOptions(cfg config.RetrievalConfig) service.RouterOptions {
	return service.RouterOptions{
		ListingLimit:      cfg.ListingLimit,
		SemanticTopK:      cfg.SemanticTopK,
		MergeHits:         cfg.MergeHits,
		StudentMaxRent:    cfg.StudentMaxRent,
		StudentDistricts:  cfg.StudentDistricts,
		FamilyDistricts:   cfg.FamilyDistricts,
		InvestDistricts:   cfg.InvestDistricts,
		OverviewDistricts: cfg.OverviewDistricts,
	}
}

func (a *App) historyStore(ctx context.Context) (repository.HistoryStore, error) {
	cfg := a.Config.Sessions
	if cfg.Backend != "redis" {
		return repository.NewMemoryHistoryStore(cfg.MaxTurns), nil
	}

	a.redis = redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := a.redis.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddr, err)
	}
	log.Infow("Session history in redis", "addr", cfg.RedisAddr, "ttl", cfg.TTL.String())
	return repository.NewRedisHistoryStore(a.redis, cfg.MaxTurns, cfg.TTL), nil
}

// Close releases every backend connection
func (a *App) Close() {
	if a.Index != nil {
		if err := a.Index.Close(); err != nil {
			log.Warnf("Failed to close vector index: %v", err)
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			log.Warnf("Failed to close redis client: %v", err)
		}
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			log.Warnf("Failed to close listing store: %v", err)
		}
	}
}
