// Package app provides the doclens knowledge base service application.
package app

import (
	"fmt"
	"time"

	"github.com/kart-io/logger"
	"github.com/kart-io/logger/option"
	"github.com/spf13/pflag"
)

// StoreBackendMemory 内存存储后端。
const StoreBackendMemory = "memory"

// StoreBackendMilvus Milvus 存储后端。
const StoreBackendMilvus = "milvus"

// Options contains all doclens service options.
type Options struct {
	// Server contains HTTP server configuration.
	Server *ServerOptions `json:"server" mapstructure:"server"`

	// Log contains logger configuration.
	Log *LogOptions `json:"log" mapstructure:"log"`

	// Store contains vector store configuration.
	Store *StoreOptions `json:"store" mapstructure:"store"`

	// Provider contains LLM provider configuration.
	Provider *LLMProviderOptions `json:"provider" mapstructure:"provider"`

	// KB contains knowledge base pipeline configuration.
	KB *KBOptions `json:"kb" mapstructure:"kb"`

	// Cache contains query cache configuration.
	Cache *CacheOptions `json:"cache" mapstructure:"cache"`
}

// ServerOptions HTTP 服务器配置。
type ServerOptions struct {
	// Addr 监听地址。
	Addr string `json:"addr" mapstructure:"addr"`

	// Mode gin 运行模式（debug|release|test）。
	Mode string `json:"mode" mapstructure:"mode"`

	// ShutdownTimeout 优雅关闭超时。
	ShutdownTimeout time.Duration `json:"shutdown-timeout" mapstructure:"shutdown-timeout"`
}

// LogOptions wraps the kart logger option with service defaults.
type LogOptions struct {
	*option.LogOption `mapstructure:",squash"`
}

// Init 根据配置创建并安装全局日志器。
func (o *LogOptions) Init() error {
	log, err := logger.New(o.LogOption)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	logger.SetGlobal(log)
	return nil
}

// StoreOptions 向量存储配置。
type StoreOptions struct {
	// Backend 存储后端（memory 或 milvus）。
	Backend string `json:"backend" mapstructure:"backend"`

	// Milvus Milvus 连接配置，backend 为 milvus 时生效。
	Milvus *MilvusOptions `json:"milvus" mapstructure:"milvus"`
}

// MilvusOptions Milvus 连接配置。
type MilvusOptions struct {
	// Address Milvus 服务地址。
	Address string `json:"address" mapstructure:"address"`

	// Username 用户名。
	Username string `json:"username" mapstructure:"username"`

	// Password 密码。
	Password string `json:"password" mapstructure:"password"`

	// Database 数据库名。
	Database string `json:"database" mapstructure:"database"`

	// Collection 集合名称。
	Collection string `json:"collection" mapstructure:"collection"`

	// Timeout 连接超时。
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`
}

// LLMProviderOptions LLM 供应商配置。
type LLMProviderOptions struct {
	// Provider 供应商名称（ollama, openai, mock）。
	Provider string `json:"provider" mapstructure:"provider"`

	// BaseURL API 基础地址。
	BaseURL string `json:"base-url" mapstructure:"base-url"`

	// APIKey API 密钥（OpenAI 等需要）。
	APIKey string `json:"api-key" mapstructure:"api-key"`

	// EmbedModel 嵌入模型名称。
	EmbedModel string `json:"embed-model" mapstructure:"embed-model"`

	// ChatModel 对话模型名称。
	ChatModel string `json:"chat-model" mapstructure:"chat-model"`

	// Dimension 嵌入向量维度。
	Dimension int `json:"dimension" mapstructure:"dimension"`

	// Timeout 请求超时时间。
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`

	// MaxRetries 最大重试次数。
	MaxRetries int `json:"max-retries" mapstructure:"max-retries"`
}

// ToConfigMap 转换为配置 map，用于供应商工厂。
func (o *LLMProviderOptions) ToConfigMap() map[string]any {
	return map[string]any{
		"base_url":    o.BaseURL,
		"api_key":     o.APIKey,
		"embed_model": o.EmbedModel,
		"chat_model":  o.ChatModel,
		"dimension":   o.Dimension,
		"timeout":     o.Timeout,
		"max_retries": o.MaxRetries,
	}
}

// KBOptions 知识库管道配置。
type KBOptions struct {
	// ChunkSize 文本块大小（rune 数）。
	ChunkSize int `json:"chunk-size" mapstructure:"chunk-size"`

	// ChunkOverlap 相邻块重叠大小。
	ChunkOverlap int `json:"chunk-overlap" mapstructure:"chunk-overlap"`

	// TopK 相似度检索默认返回的结果数。
	TopK int `json:"top-k" mapstructure:"top-k"`

	// ContextBudget 注入提示词的上下文总长度上限。
	ContextBudget int `json:"context-budget" mapstructure:"context-budget"`

	// SystemPrompt 提示词模板。
	SystemPrompt string `json:"system-prompt" mapstructure:"system-prompt"`

	// EmbedBatchSize 单次嵌入请求的最大文本数。
	EmbedBatchSize int `json:"embed-batch-size" mapstructure:"embed-batch-size"`

	// EmbedConcurrency 嵌入批次的并发度。
	EmbedConcurrency int `json:"embed-concurrency" mapstructure:"embed-concurrency"`
}

// CacheOptions 查询缓存配置。
type CacheOptions struct {
	// Enabled 是否启用缓存。
	Enabled bool `json:"enabled" mapstructure:"enabled"`

	// TTL 缓存过期时间。
	TTL time.Duration `json:"ttl" mapstructure:"ttl"`

	// KeyPrefix 缓存键前缀。
	KeyPrefix string `json:"key-prefix" mapstructure:"key-prefix"`

	// Redis Redis 连接配置。
	Redis *RedisOptions `json:"redis" mapstructure:"redis"`
}

// RedisOptions Redis 配置。
type RedisOptions struct {
	// Host Redis 主机地址。
	Host string `json:"host" mapstructure:"host"`

	// Port Redis 端口。
	Port int `json:"port" mapstructure:"port"`

	// Password Redis 密码。
	Password string `json:"password" mapstructure:"password"`

	// Database Redis 数据库编号。
	Database int `json:"database" mapstructure:"database"`

	// MaxRetries 最大重试次数。
	MaxRetries int `json:"max-retries" mapstructure:"max-retries"`

	// PoolSize 连接池大小。
	PoolSize int `json:"pool-size" mapstructure:"pool-size"`

	// MinIdleConns 最小空闲连接数。
	MinIdleConns int `json:"min-idle-conns" mapstructure:"min-idle-conns"`
}

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	return &Options{
		Server: &ServerOptions{
			Addr:            ":8080",
			Mode:            "release",
			ShutdownTimeout: 10 * time.Second,
		},
		Log: &LogOptions{
			LogOption: option.DefaultLogOption(),
		},
		Store: &StoreOptions{
			Backend: StoreBackendMemory,
			Milvus: &MilvusOptions{
				Address:    "localhost:19530",
				Collection: "doclens_entries",
				Timeout:    10 * time.Second,
			},
		},
		Provider: &LLMProviderOptions{
			Provider:   "ollama",
			BaseURL:    "http://localhost:11434",
			EmbedModel: "all-minilm",
			ChatModel:  "llama3.2",
			Dimension:  384,
			Timeout:    120 * time.Second,
			MaxRetries: 3,
		},
		KB: &KBOptions{
			ChunkSize:        1000,
			ChunkOverlap:     200,
			TopK:             5,
			ContextBudget:    8000,
			EmbedBatchSize:   32,
			EmbedConcurrency: 8,
		},
		Cache: &CacheOptions{
			Enabled:   false,
			TTL:       1 * time.Hour,
			KeyPrefix: "doclens:query:",
			Redis: &RedisOptions{
				Host:         "localhost",
				Port:         6379,
				Database:     0,
				MaxRetries:   3,
				PoolSize:     10,
				MinIdleConns: 5,
			},
		},
	}
}

// AddFlags adds flags to the flagset.
func (o *Options) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.Server.Addr, "server.addr", o.Server.Addr, "HTTP listen address")
	fs.StringVar(&o.Server.Mode, "server.mode", o.Server.Mode, "Server mode (debug|release|test)")
	fs.DurationVar(&o.Server.ShutdownTimeout, "server.shutdown-timeout", o.Server.ShutdownTimeout, "Graceful shutdown timeout")

	fs.StringVar(&o.Log.Engine, "log.engine", o.Log.Engine, "Logging engine (zap|slog)")
	fs.StringVar(&o.Log.Level, "log.level", o.Log.Level, "Log level (DEBUG|INFO|WARN|ERROR|FATAL)")
	fs.StringVar(&o.Log.Format, "log.format", o.Log.Format, "Log format (json|console)")
	fs.StringSliceVar(&o.Log.OutputPaths, "log.output-paths", o.Log.OutputPaths, "Output paths for logs")
	fs.BoolVar(&o.Log.Development, "log.development", o.Log.Development, "Enable development mode")

	fs.StringVar(&o.Store.Backend, "store.backend", o.Store.Backend, "Vector store backend (memory|milvus)")
	fs.StringVar(&o.Store.Milvus.Address, "store.milvus.address", o.Store.Milvus.Address, "Milvus address")
	fs.StringVar(&o.Store.Milvus.Username, "store.milvus.username", o.Store.Milvus.Username, "Milvus username")
	fs.StringVar(&o.Store.Milvus.Password, "store.milvus.password", o.Store.Milvus.Password, "Milvus password")
	fs.StringVar(&o.Store.Milvus.Database, "store.milvus.database", o.Store.Milvus.Database, "Milvus database name")
	fs.StringVar(&o.Store.Milvus.Collection, "store.milvus.collection", o.Store.Milvus.Collection, "Milvus collection name")
	fs.DurationVar(&o.Store.Milvus.Timeout, "store.milvus.timeout", o.Store.Milvus.Timeout, "Milvus connect timeout")

	fs.StringVar(&o.Provider.Provider, "provider.name", o.Provider.Provider, "LLM provider (ollama, openai, mock)")
	fs.StringVar(&o.Provider.BaseURL, "provider.base-url", o.Provider.BaseURL, "Provider API base URL")
	fs.StringVar(&o.Provider.APIKey, "provider.api-key", o.Provider.APIKey, "Provider API key (for OpenAI)")
	fs.StringVar(&o.Provider.EmbedModel, "provider.embed-model", o.Provider.EmbedModel, "Embedding model name")
	fs.StringVar(&o.Provider.ChatModel, "provider.chat-model", o.Provider.ChatModel, "Chat model name")
	fs.IntVar(&o.Provider.Dimension, "provider.dimension", o.Provider.Dimension, "Embedding vector dimension")
	fs.DurationVar(&o.Provider.Timeout, "provider.timeout", o.Provider.Timeout, "Provider request timeout")
	fs.IntVar(&o.Provider.MaxRetries, "provider.max-retries", o.Provider.MaxRetries, "Provider max retries")

	fs.IntVar(&o.KB.ChunkSize, "kb.chunk-size", o.KB.ChunkSize, "Size of text chunks in runes")
	fs.IntVar(&o.KB.ChunkOverlap, "kb.chunk-overlap", o.KB.ChunkOverlap, "Overlap between adjacent chunks")
	fs.IntVar(&o.KB.TopK, "kb.top-k", o.KB.TopK, "Default number of results from similarity search")
	fs.IntVar(&o.KB.ContextBudget, "kb.context-budget", o.KB.ContextBudget, "Max context length injected into the prompt")
	fs.StringVar(&o.KB.SystemPrompt, "kb.system-prompt", o.KB.SystemPrompt, "Prompt template ({{context}}, {{question}})")
	fs.IntVar(&o.KB.EmbedBatchSize, "kb.embed-batch-size", o.KB.EmbedBatchSize, "Max texts per embedding request")
	fs.IntVar(&o.KB.EmbedConcurrency, "kb.embed-concurrency", o.KB.EmbedConcurrency, "Concurrent embedding batches")

	fs.BoolVar(&o.Cache.Enabled, "cache.enabled", o.Cache.Enabled, "Enable query result cache")
	fs.DurationVar(&o.Cache.TTL, "cache.ttl", o.Cache.TTL, "Cache TTL duration")
	fs.StringVar(&o.Cache.KeyPrefix, "cache.key-prefix", o.Cache.KeyPrefix, "Cache key prefix")
	fs.StringVar(&o.Cache.Redis.Host, "cache.redis.host", o.Cache.Redis.Host, "Redis host")
	fs.IntVar(&o.Cache.Redis.Port, "cache.redis.port", o.Cache.Redis.Port, "Redis port")
	fs.StringVar(&o.Cache.Redis.Password, "cache.redis.password", o.Cache.Redis.Password, "Redis password")
	fs.IntVar(&o.Cache.Redis.Database, "cache.redis.database", o.Cache.Redis.Database, "Redis database number")
	fs.IntVar(&o.Cache.Redis.MaxRetries, "cache.redis.max-retries", o.Cache.Redis.MaxRetries, "Redis max retries")
	fs.IntVar(&o.Cache.Redis.PoolSize, "cache.redis.pool-size", o.Cache.Redis.PoolSize, "Redis connection pool size")
	fs.IntVar(&o.Cache.Redis.MinIdleConns, "cache.redis.min-idle-conns", o.Cache.Redis.MinIdleConns, "Redis minimum idle connections")
}

// Validate validates the options.
func (o *Options) Validate() error {
	if err := o.Log.Validate(); err != nil {
		return err
	}
	if o.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}

	switch o.Store.Backend {
	case StoreBackendMemory:
	case StoreBackendMilvus:
		if o.Store.Milvus.Address == "" {
			return fmt.Errorf("store.milvus.address is required for milvus backend")
		}
		if o.Store.Milvus.Collection == "" {
			return fmt.Errorf("store.milvus.collection is required for milvus backend")
		}
	default:
		return fmt.Errorf("unknown store backend %q (memory|milvus)", o.Store.Backend)
	}

	if o.Provider.Provider == "" {
		return fmt.Errorf("provider.name is required")
	}
	if o.Provider.Provider == "openai" && o.Provider.APIKey == "" {
		return fmt.Errorf("provider.api-key is required for openai provider")
	}
	if o.Provider.Dimension <= 0 {
		return fmt.Errorf("provider.dimension must be positive")
	}

	if o.KB.ChunkSize <= 0 {
		return fmt.Errorf("kb.chunk-size must be positive")
	}
	if o.KB.ChunkOverlap < 0 || o.KB.ChunkOverlap >= o.KB.ChunkSize {
		return fmt.Errorf("kb.chunk-overlap must be in [0, kb.chunk-size)")
	}
	if o.KB.TopK <= 0 {
		return fmt.Errorf("kb.top-k must be positive")
	}
	return nil
}

// Complete completes the options.
func (o *Options) Complete() error {
	if o.KB.EmbedBatchSize <= 0 {
		o.KB.EmbedBatchSize = 32
	}
	if o.KB.EmbedConcurrency <= 0 {
		o.KB.EmbedConcurrency = 8
	}
	return nil
}
