package biz

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kart-io/logger"
	goredis "github.com/redis/go-redis/v9"

	"github.com/lattice-io/doclens/internal/doclens/metrics"
	"github.com/lattice-io/doclens/internal/doclens/store"
	"github.com/lattice-io/doclens/internal/model"
	"github.com/lattice-io/doclens/pkg/errors"
	"github.com/lattice-io/doclens/pkg/llm"
)

// entryNamespace 条目 ID 的 UUIDv5 命名空间。
var entryNamespace = uuid.NameSpaceOID

// Service 定义知识库服务接口。
type Service interface {
	// IngestDocument 摄取并索引一篇文档。
	IngestDocument(ctx context.Context, filename, text string) (*model.IngestResult, error)
	// Query 执行知识库问答。
	Query(ctx context.Context, question string, k int, documentID string) (*model.QueryResult, error)
	// DeleteDocument 删除指定文档的全部条目。
	DeleteDocument(ctx context.Context, documentID string) (*model.DeleteResult, error)
	// ListDocuments 列出当前索引的全部文档。
	ListDocuments(ctx context.Context) ([]model.DocumentInfo, error)
	// Stats 获取知识库统计信息。
	Stats(ctx context.Context) (map[string]any, error)
	// Health 检查各依赖组件的健康状态。
	Health(ctx context.Context) (*model.HealthStatus, error)
}

// KBService 组合切分、嵌入、检索与生成，提供完整的知识库服务。
type KBService struct {
	chunker   *Chunker
	embedder  *Embedder
	retriever *Retriever
	generator *Generator
	cache     *QueryCache
	store     store.VectorStore
	provider  llm.Provider
	redis     *goredis.Client
	backend   string
	metrics   *metrics.KBMetrics
}

// ServiceConfig 知识库服务配置。
type ServiceConfig struct {
	ChunkerConfig    *ChunkerConfig
	RetrieverConfig  *RetrieverConfig
	GeneratorConfig  *GeneratorConfig
	QueryCacheConfig *QueryCacheConfig
	// StoreBackend 存储后端名称（memory 或 milvus），仅用于统计展示。
	StoreBackend string
}

// NewKBService 创建知识库服务实例。
func NewKBService(
	vectorStore store.VectorStore,
	provider llm.Provider,
	redis *goredis.Client,
	config *ServiceConfig,
	embedder *Embedder,
) (*KBService, error) {
	chunker, err := NewChunker(config.ChunkerConfig)
	if err != nil {
		return nil, err
	}

	retriever := NewRetriever(vectorStore, embedder, config.RetrieverConfig)
	generator := NewGenerator(provider, config.GeneratorConfig)
	cache := NewQueryCache(redis, config.QueryCacheConfig)

	return &KBService{
		chunker:   chunker,
		embedder:  embedder,
		retriever: retriever,
		generator: generator,
		cache:     cache,
		store:     vectorStore,
		provider:  provider,
		redis:     redis,
		backend:   config.StoreBackend,
		metrics:   metrics.GetKBMetrics(),
	}, nil
}

// DocumentID 计算文档的内容哈希 ID。
// 同名同内容的文档得到同一 ID，重复摄取即幂等替换；
// 内容改变则视为新文档版本。
func DocumentID(filename, text string) string {
	h := sha256.New()
	h.Write([]byte(filename))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}

// EntryID 为文档块生成确定性 UUIDv5。
func EntryID(documentID string, chunkIndex int) string {
	return uuid.NewSHA1(entryNamespace, []byte(fmt.Sprintf("%s_%d", documentID, chunkIndex))).String()
}

// IngestDocument 摄取文档：切分、全部嵌入成功后一次性写入。
// 嵌入或写入失败时不产生部分可见状态。
func (s *KBService) IngestDocument(ctx context.Context, filename, text string) (*model.IngestResult, error) {
	var ingestErr error
	defer func() {
		if ingestErr != nil {
			s.metrics.RecordIngest(0, 0, ingestErr)
		}
	}()

	if filename == "" {
		ingestErr = errors.ErrInvalidParam.WithMessage("filename must not be empty")
		return nil, ingestErr
	}

	chunks := s.chunker.SplitText(text)
	if len(chunks) == 0 {
		ingestErr = errors.ErrDocumentEmpty
		return nil, ingestErr
	}

	docID := DocumentID(filename, text)

	replaced := false
	existing, err := s.store.ListDocuments(ctx)
	if err != nil {
		ingestErr = err
		return nil, err
	}
	for _, id := range existing {
		if id == docID {
			replaced = true
			break
		}
	}

	// 先全部嵌入，任何失败则整篇放弃
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		ingestErr = err
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		ingestErr = err
		return nil, err
	}

	entries := make([]*store.Entry, len(chunks))
	for i, c := range chunks {
		entries[i] = &store.Entry{
			ID:     EntryID(docID, c.Index),
			Vector: vectors[i],
			Payload: store.Payload{
				DocumentID: docID,
				Filename:   filename,
				ChunkIndex: c.Index,
				Content:    c.Text,
				Start:      c.Start,
				End:        c.End,
			},
		}
	}

	if err := s.store.Upsert(ctx, entries); err != nil {
		// Milvus 部分失败时回收本篇已写入的条目，避免半索引状态
		if deleted, cleanupErr := s.store.DeleteByDocument(ctx, docID); cleanupErr != nil {
			logger.Errorw("failed to clean up partially ingested document",
				"document_id", docID, "error", cleanupErr.Error())
		} else if deleted > 0 {
			logger.Warnw("rolled back partially ingested document",
				"document_id", docID, "entries", deleted)
		}
		ingestErr = err
		return nil, err
	}

	// 索引变更后缓存整体失效
	if err := s.cache.Clear(ctx); err != nil {
		logger.Warnw("failed to clear query cache after ingest", "error", err.Error())
	}

	s.metrics.RecordIngest(1, len(chunks), nil)
	logger.Infow("document ingested",
		"document_id", docID,
		"filename", filename,
		"chunks", len(chunks),
		"replaced", replaced,
	)

	return &model.IngestResult{
		DocumentID: docID,
		Filename:   filename,
		ChunkCount: len(chunks),
		Replaced:   replaced,
	}, nil
}

// Query 执行知识库问答。
func (s *KBService) Query(ctx context.Context, question string, k int, documentID string) (*model.QueryResult, error) {
	var queryErr error
	defer func() {
		if queryErr != nil {
			s.metrics.RecordQuery(false, queryErr)
		}
	}()

	if question == "" {
		queryErr = errors.ErrInvalidParam.WithMessage("question must not be empty")
		return nil, queryErr
	}

	// 1. 尝试从缓存获取
	if cached, err := s.cache.Get(ctx, question, k, documentID); err == nil && cached != nil {
		s.metrics.RecordQuery(true, nil)
		cached.Cached = true
		return cached, nil
	}

	// 2. 检索相关块
	var filter *store.SearchFilter
	if documentID != "" {
		filter = &store.SearchFilter{DocumentID: documentID}
	}

	retrievalStart := time.Now()
	results, err := s.retriever.Retrieve(ctx, question, k, filter)
	s.metrics.RecordRetrieval(time.Since(retrievalStart), err)
	if err != nil {
		queryErr = err
		return nil, err
	}

	// 3. 生成答案
	llmStart := time.Now()
	result, err := s.generator.Answer(ctx, question, results)
	if err != nil {
		s.metrics.RecordLLMCall(time.Since(llmStart), err)
		queryErr = err
		return nil, err
	}
	s.metrics.RecordLLMCall(time.Since(llmStart), nil)
	if result.Fallback {
		s.metrics.RecordFallback()
	}

	// 4. 写入缓存，失败不影响返回
	_ = s.cache.Set(ctx, question, k, documentID, result)

	s.metrics.RecordQuery(false, nil)
	return result, nil
}

// DeleteDocument 删除文档的全部条目。未知文档返回 0，幂等。
func (s *KBService) DeleteDocument(ctx context.Context, documentID string) (*model.DeleteResult, error) {
	if documentID == "" {
		return nil, errors.ErrInvalidParam.WithMessage("document id must not be empty")
	}

	deleted, err := s.store.DeleteByDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}

	if deleted > 0 {
		s.metrics.RecordDelete(1)
		if err := s.cache.Clear(ctx); err != nil {
			logger.Warnw("failed to clear query cache after delete", "error", err.Error())
		}
	}

	logger.Infow("document deleted", "document_id", documentID, "entries", deleted)
	return &model.DeleteResult{DocumentID: documentID, Deleted: deleted}, nil
}

// ListDocuments 列出当前索引的全部文档。
func (s *KBService) ListDocuments(ctx context.Context) ([]model.DocumentInfo, error) {
	ids, err := s.store.ListDocuments(ctx)
	if err != nil {
		return nil, err
	}

	docs := make([]model.DocumentInfo, len(ids))
	for i, id := range ids {
		docs[i] = model.DocumentInfo{DocumentID: id}
	}
	return docs, nil
}

// Stats 获取知识库统计信息。
func (s *KBService) Stats(ctx context.Context) (map[string]any, error) {
	info, err := s.store.CollectionInfo(ctx)
	if err != nil {
		return nil, err
	}

	docs, err := s.store.ListDocuments(ctx)
	if err != nil {
		return nil, err
	}

	stats := map[string]any{
		"document_count": len(docs),
		"chunk_count":    info.EntryCount,
		"dimension":      info.Dimension,
		"metric":         info.Metric,
		"store_backend":  s.backend,
		"provider":       s.provider.Name(),
	}

	if cacheStats, err := s.cache.Stats(ctx); err == nil {
		stats["cache"] = cacheStats
	}

	stats["metrics"] = s.metrics.Stats()
	return stats, nil
}

// Health 检查各依赖组件的健康状态。
// 核心存储不可用时整体不健康，缓存不可用仅降级。
func (s *KBService) Health(ctx context.Context) (*model.HealthStatus, error) {
	components := make(map[string]string)
	status := "healthy"

	var entryCount int64
	var dimension int
	if info, err := s.store.CollectionInfo(ctx); err != nil {
		components["store"] = err.Error()
		status = "degraded"
	} else {
		components["store"] = "ok"
		entryCount = info.EntryCount
		dimension = info.Dimension
	}

	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			components["cache"] = err.Error()
			if status == "healthy" {
				status = "degraded"
			}
		} else {
			components["cache"] = "ok"
		}
	}

	components["provider"] = s.provider.Name()

	return &model.HealthStatus{
		Status:     status,
		EntryCount: entryCount,
		Dimension:  dimension,
		Components: components,
		CheckedAt:  time.Now(),
	}, nil
}

// 确保 KBService 实现了 Service 接口。
var _ Service = (*KBService)(nil)
