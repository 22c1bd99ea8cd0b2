package store

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/milvus-io/milvus/client/v2/column"
	"github.com/milvus-io/milvus/client/v2/entity"
	"github.com/milvus-io/milvus/client/v2/index"
	"github.com/milvus-io/milvus/client/v2/milvusclient"
)

// MilvusConfig Milvus 存储配置。
type MilvusConfig struct {
	// Address Milvus 服务地址。
	Address string
	// Username 用户名。
	Username string
	// Password 密码。
	Password string
	// Database 数据库名。
	Database string
	// Collection 集合名称。
	Collection string
	// Dimension 向量维度。
	Dimension int
	// Timeout 连接超时。
	Timeout time.Duration
}

// MilvusStore 实现基于 Milvus 的向量存储。
//
// 主键为显式 VarChar ID（非 AutoID），重复写入同一 ID 即原地替换。
// 注意：IVF_FLAT 近似索引召回非精确，同分条目的插入序不保证。
type MilvusStore struct {
	client     *milvusclient.Client
	collection string
	dimension  int
}

// NewMilvusStore 连接 Milvus 并确保集合存在。
func NewMilvusStore(ctx context.Context, config *MilvusConfig) (*MilvusStore, error) {
	if config == nil {
		return nil, fmt.Errorf("milvus config is nil")
	}

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	c, err := milvusclient.New(connectCtx, &milvusclient.ClientConfig{
		Address:  config.Address,
		Username: config.Username,
		Password: config.Password,
		DBName:   config.Database,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to milvus: %w", err)
	}

	s := &MilvusStore{
		client:     c,
		collection: config.Collection,
		dimension:  config.Dimension,
	}

	if err := s.ensureCollection(ctx); err != nil {
		_ = c.Close(ctx)
		return nil, err
	}
	return s, nil
}

// ensureCollection 创建集合与索引（若不存在）并加载到内存。
func (s *MilvusStore) ensureCollection(ctx context.Context) error {
	exists, err := s.client.HasCollection(ctx, milvusclient.NewHasCollectionOption(s.collection))
	if err != nil {
		return fmt.Errorf("failed to check collection existence: %w", err)
	}

	if !exists {
		schema := entity.NewSchema().
			WithName(s.collection).
			WithDescription("doclens knowledge base entries")

		schema.WithField(
			entity.NewField().
				WithName("id").
				WithDataType(entity.FieldTypeVarChar).
				WithMaxLength(64).
				WithIsPrimaryKey(true),
		)
		schema.WithField(
			entity.NewField().
				WithName("embedding").
				WithDataType(entity.FieldTypeFloatVector).
				WithDim(int64(s.dimension)),
		)
		schema.WithField(entity.NewField().WithName("document_id").WithDataType(entity.FieldTypeVarChar).WithMaxLength(64))
		schema.WithField(entity.NewField().WithName("filename").WithDataType(entity.FieldTypeVarChar).WithMaxLength(255))
		schema.WithField(entity.NewField().WithName("chunk_index").WithDataType(entity.FieldTypeInt64))
		schema.WithField(entity.NewField().WithName("content").WithDataType(entity.FieldTypeVarChar).WithMaxLength(65535))
		schema.WithField(entity.NewField().WithName("start_offset").WithDataType(entity.FieldTypeInt64))
		schema.WithField(entity.NewField().WithName("end_offset").WithDataType(entity.FieldTypeInt64))

		if err := s.client.CreateCollection(ctx, milvusclient.NewCreateCollectionOption(s.collection, schema)); err != nil {
			return fmt.Errorf("failed to create collection: %w", err)
		}

		idx := index.NewIvfFlatIndex(entity.COSINE, 128)
		createIdxTask, err := s.client.CreateIndex(ctx, milvusclient.NewCreateIndexOption(s.collection, "embedding", idx))
		if err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
		if err := createIdxTask.Await(ctx); err != nil {
			return fmt.Errorf("failed to wait for index creation: %w", err)
		}
	}

	loadTask, err := s.client.LoadCollection(ctx, milvusclient.NewLoadCollectionOption(s.collection))
	if err != nil {
		return fmt.Errorf("failed to load collection: %w", err)
	}
	if err := loadTask.Await(ctx); err != nil {
		return fmt.Errorf("failed to wait for collection loading: %w", err)
	}
	return nil
}

// Upsert 批量写入条目，按显式 ID 原地替换。
func (s *MilvusStore) Upsert(ctx context.Context, entries []*Entry) error {
	if len(entries) == 0 {
		return nil
	}

	ids := make([]string, len(entries))
	vectors := make([][]float32, len(entries))
	docIDs := make([]string, len(entries))
	filenames := make([]string, len(entries))
	chunkIndexes := make([]int64, len(entries))
	contents := make([]string, len(entries))
	starts := make([]int64, len(entries))
	ends := make([]int64, len(entries))

	for i, e := range entries {
		ids[i] = e.ID
		vectors[i] = e.Vector
		docIDs[i] = e.Payload.DocumentID
		filenames[i] = e.Payload.Filename
		chunkIndexes[i] = int64(e.Payload.ChunkIndex)
		contents[i] = e.Payload.Content
		starts[i] = int64(e.Payload.Start)
		ends[i] = int64(e.Payload.End)
	}

	columns := []column.Column{
		column.NewColumnVarChar("id", ids),
		column.NewColumnFloatVector("embedding", s.dimension, vectors),
		column.NewColumnVarChar("document_id", docIDs),
		column.NewColumnVarChar("filename", filenames),
		column.NewColumnInt64("chunk_index", chunkIndexes),
		column.NewColumnVarChar("content", contents),
		column.NewColumnInt64("start_offset", starts),
		column.NewColumnInt64("end_offset", ends),
	}

	if _, err := s.client.Upsert(ctx, milvusclient.NewColumnBasedInsertOption(s.collection, columns...)); err != nil {
		return fmt.Errorf("failed to upsert into milvus: %w", err)
	}

	// Flush 保证后续检索立即可见
	flushTask, err := s.client.Flush(ctx, milvusclient.NewFlushOption(s.collection))
	if err != nil {
		return fmt.Errorf("failed to flush collection: %w", err)
	}
	if err := flushTask.Await(ctx); err != nil {
		return fmt.Errorf("failed to wait for flush: %w", err)
	}
	return nil
}

// documentFilterExpr 构造按文档 ID 收窄候选集的 Milvus 过滤表达式。
func documentFilterExpr(documentID string) string {
	return fmt.Sprintf("document_id == %q", documentID)
}

// Search 执行向量相似度搜索。
// DocumentID 过滤下推为 Milvus 表达式，在取 top-k 之前收窄候选集；
// 谓词无法下推，在返回的结果集上二次过滤。
func (s *MilvusStore) Search(ctx context.Context, vector []float32, k int, filter *SearchFilter) ([]*SearchResult, error) {
	if k < 1 {
		return nil, fmt.Errorf("search k must be >= 1, got %d", k)
	}

	outputFields := []string{"document_id", "filename", "chunk_index", "content", "start_offset", "end_offset"}
	searchVectors := []entity.Vector{entity.FloatVector(vector)}

	searchOption := milvusclient.NewSearchOption(
		s.collection,
		k,
		searchVectors,
	).WithANNSField("embedding").
		WithSearchParam("nprobe", "16").
		WithOutputFields(outputFields...)
	if filter != nil && filter.DocumentID != "" {
		searchOption = searchOption.WithFilter(documentFilterExpr(filter.DocumentID))
	}

	results, err := s.client.Search(ctx, searchOption)
	if err != nil {
		return nil, fmt.Errorf("failed to search milvus: %w", err)
	}

	if len(results) == 0 {
		return []*SearchResult{}, nil
	}

	searchResults := make([]*SearchResult, 0, results[0].ResultCount)
	for i := 0; i < results[0].ResultCount; i++ {
		result := &SearchResult{Score: results[0].Scores[i]}

		if idCol, ok := results[0].IDs.(*column.ColumnVarChar); ok {
			result.ID = idCol.Data()[i]
		}

		for _, field := range results[0].Fields {
			switch col := field.(type) {
			case *column.ColumnVarChar:
				switch col.Name() {
				case "document_id":
					result.Payload.DocumentID = col.Data()[i]
				case "filename":
					result.Payload.Filename = col.Data()[i]
				case "content":
					result.Payload.Content = col.Data()[i]
				}
			case *column.ColumnInt64:
				switch col.Name() {
				case "chunk_index":
					result.Payload.ChunkIndex = int(col.Data()[i])
				case "start_offset":
					result.Payload.Start = int(col.Data()[i])
				case "end_offset":
					result.Payload.End = int(col.Data()[i])
				}
			}
		}

		if !filter.Matches(&result.Payload) {
			continue
		}
		searchResults = append(searchResults, result)
	}

	return searchResults, nil
}

// DeleteByDocument 按文档 ID 表达式删除条目。
func (s *MilvusStore) DeleteByDocument(ctx context.Context, documentID string) (int, error) {
	expr := documentFilterExpr(documentID)
	result, err := s.client.Delete(ctx, milvusclient.NewDeleteOption(s.collection).WithExpr(expr))
	if err != nil {
		return 0, fmt.Errorf("failed to delete by document: %w", err)
	}
	return int(result.DeleteCount), nil
}

// ListDocuments 查询全部 document_id 并在客户端去重。
func (s *MilvusStore) ListDocuments(ctx context.Context) ([]string, error) {
	rs, err := s.client.Query(ctx, milvusclient.NewQueryOption(s.collection).
		WithFilter(`document_id != ""`).
		WithOutputFields("document_id"))
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}

	col := rs.GetColumn("document_id")
	if col == nil {
		return []string{}, nil
	}
	varcharCol, ok := col.(*column.ColumnVarChar)
	if !ok {
		return nil, fmt.Errorf("unexpected column type for document_id: %T", col)
	}

	seen := make(map[string]struct{})
	docs := make([]string, 0)
	for _, docID := range varcharCol.Data() {
		if _, ok := seen[docID]; ok {
			continue
		}
		seen[docID] = struct{}{}
		docs = append(docs, docID)
	}
	return docs, nil
}

// CollectionInfo 获取集合统计信息。
func (s *MilvusStore) CollectionInfo(ctx context.Context) (*CollectionInfo, error) {
	stats, err := s.client.GetCollectionStats(ctx, milvusclient.NewGetCollectionStatsOption(s.collection))
	if err != nil {
		return nil, fmt.Errorf("failed to get collection stats: %w", err)
	}

	var count int64
	if val, ok := stats["row_count"]; ok {
		if count, err = strconv.ParseInt(val, 10, 64); err != nil {
			return nil, fmt.Errorf("failed to parse row_count: %w", err)
		}
	}

	return &CollectionInfo{
		EntryCount: count,
		Dimension:  s.dimension,
		Metric:     MetricCosine,
	}, nil
}

// Close 关闭 Milvus 连接。
func (s *MilvusStore) Close(ctx context.Context) error {
	return s.client.Close(ctx)
}

// 确保 MilvusStore 实现了 VectorStore 接口。
var _ VectorStore = (*MilvusStore)(nil)
