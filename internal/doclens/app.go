package app

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/kart-io/logger"
	"github.com/lattice-io/doclens/internal/doclens/biz"
	"github.com/lattice-io/doclens/internal/doclens/handler"
	"github.com/lattice-io/doclens/internal/doclens/router"
	"github.com/lattice-io/doclens/internal/doclens/store"
	"github.com/lattice-io/doclens/pkg/app"
	"github.com/lattice-io/doclens/pkg/llm"
	"github.com/lattice-io/doclens/pkg/pool"

	// Register LLM providers
	_ "github.com/lattice-io/doclens/pkg/llm/mock"
	_ "github.com/lattice-io/doclens/pkg/llm/ollama"
	_ "github.com/lattice-io/doclens/pkg/llm/openai"
)

const (
	appName        = "doclens"
	appDescription = `DocLens Knowledge Base Service

A retrieval-augmented question answering service over ingested documents.

This server provides:
  - Document ingestion with sliding-window chunking and vector embeddings
  - Semantic similarity search over an in-memory or Milvus index
  - Grounded question answering with source citations`
)

// NewApp creates a new application instance.
func NewApp() *app.App {
	opts := NewOptions()

	return app.NewApp(
		app.WithName(appName),
		app.WithDescription(appDescription),
		app.WithOptions(opts),
		app.WithRunFunc(func() error {
			return Run(opts)
		}),
	)
}

// Run runs the knowledge base service with the given options.
func Run(opts *Options) error {
	printBanner(opts)

	// 1. 初始化日志
	opts.Log.AddInitialField("service.name", appName)
	opts.Log.AddInitialField("service.version", app.GetVersion())
	if err := opts.Log.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.Info("Starting doclens service...")

	// 2. 初始化向量存储
	vectorStore, err := newVectorStore(opts)
	if err != nil {
		return fmt.Errorf("failed to initialize vector store: %w", err)
	}
	defer vectorStore.Close(context.Background())
	logger.Infow("Vector store initialized", "backend", opts.Store.Backend)

	// 3. 初始化 LLM 供应商
	provider, err := llm.NewProvider(opts.Provider.Provider, opts.Provider.ToConfigMap())
	if err != nil {
		return fmt.Errorf("failed to initialize llm provider: %w", err)
	}
	logger.Infow("LLM provider initialized", "provider", provider.Name(), "dimension", provider.Dimension())

	// 4. 初始化 Redis 客户端（缓存启用时）
	var redisClient *goredis.Client
	if opts.Cache.Enabled {
		redisClient = goredis.NewClient(&goredis.Options{
			Addr:         fmt.Sprintf("%s:%d", opts.Cache.Redis.Host, opts.Cache.Redis.Port),
			Password:     opts.Cache.Redis.Password,
			DB:           opts.Cache.Redis.Database,
			MaxRetries:   opts.Cache.Redis.MaxRetries,
			PoolSize:     opts.Cache.Redis.PoolSize,
			MinIdleConns: opts.Cache.Redis.MinIdleConns,
		})
		defer redisClient.Close()
		logger.Infow("Redis client initialized", "host", opts.Cache.Redis.Host, "port", opts.Cache.Redis.Port)
	}

	// 5. 初始化嵌入工作池
	poolConfig := pool.EmbedPoolConfig()
	poolConfig.Capacity = opts.KB.EmbedConcurrency
	embedWorkers, err := pool.New("embed-workers", pool.EmbedPool, poolConfig)
	if err != nil {
		return fmt.Errorf("failed to initialize embed worker pool: %w", err)
	}
	defer embedWorkers.Release()

	embedder := biz.NewEmbedder(provider, &biz.EmbedderConfig{
		Dimension: opts.Provider.Dimension,
		BatchSize: opts.KB.EmbedBatchSize,
	}, embedWorkers)

	// 6. 初始化 Biz 层
	serviceConfig := &biz.ServiceConfig{
		ChunkerConfig: &biz.ChunkerConfig{
			ChunkSize:    opts.KB.ChunkSize,
			ChunkOverlap: opts.KB.ChunkOverlap,
		},
		RetrieverConfig: &biz.RetrieverConfig{
			TopK: opts.KB.TopK,
		},
		GeneratorConfig: &biz.GeneratorConfig{
			SystemPrompt:  opts.KB.SystemPrompt,
			ContextBudget: opts.KB.ContextBudget,
		},
		QueryCacheConfig: &biz.QueryCacheConfig{
			Enabled:   opts.Cache.Enabled,
			TTL:       opts.Cache.TTL,
			KeyPrefix: opts.Cache.KeyPrefix,
		},
		StoreBackend: opts.Store.Backend,
	}
	kbService, err := biz.NewKBService(vectorStore, provider, redisClient, serviceConfig, embedder)
	if err != nil {
		return fmt.Errorf("failed to initialize kb service: %w", err)
	}
	logger.Info("KB service initialized")

	// 7. 初始化 Handler 层与路由
	kbHandler := handler.NewKBHandler(kbService)
	httpServer := NewHTTPServer(opts.Server)
	router.Register(httpServer.Engine(), kbHandler)

	// 8. 启动服务器
	logger.Info("DocLens service is ready")
	return httpServer.Run()
}

// newVectorStore 按配置选择存储后端。
func newVectorStore(opts *Options) (store.VectorStore, error) {
	switch opts.Store.Backend {
	case StoreBackendMilvus:
		ctx, cancel := context.WithTimeout(context.Background(), opts.Store.Milvus.Timeout)
		defer cancel()
		return store.NewMilvusStore(ctx, &store.MilvusConfig{
			Address:    opts.Store.Milvus.Address,
			Username:   opts.Store.Milvus.Username,
			Password:   opts.Store.Milvus.Password,
			Database:   opts.Store.Milvus.Database,
			Collection: opts.Store.Milvus.Collection,
			Dimension:  opts.Provider.Dimension,
			Timeout:    opts.Store.Milvus.Timeout,
		})
	default:
		return store.NewMemoryStore(opts.Provider.Dimension), nil
	}
}

func printBanner(_ *Options) {
	fmt.Printf("Starting %s...\n", appName)
}
