// Package metrics 提供知识库服务的业务指标收集。
package metrics

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// KBMetrics 知识库服务业务指标。
type KBMetrics struct {
	// 查询指标
	queriesTotal       uint64 // 总查询次数
	queriesCacheHits   uint64 // 缓存命中次数
	queriesCacheMisses uint64 // 缓存未命中次数
	queriesErrors      uint64 // 查询错误次数

	// 检索指标
	retrievalTotal    uint64  // 总检索次数
	retrievalDuration float64 // 检索总耗时（秒）
	retrievalErrors   uint64  // 检索错误次数

	// 生成指标
	llmCallsTotal    uint64  // LLM 总调用次数
	llmCallsDuration float64 // LLM 调用总耗时（秒）
	llmCallsErrors   uint64  // LLM 调用错误次数
	llmFallbacks     uint64  // 退化为原文摘录的次数

	// 摄取指标
	documentsIngested uint64 // 已摄取文档数
	chunksIngested    uint64 // 已摄取分块数
	ingestErrors      uint64 // 摄取错误次数

	// 删除指标
	documentsDeleted uint64 // 已删除文档数

	startTime  time.Time
	durationMu sync.Mutex
}

// globalKBMetrics 全局指标实例。
var (
	globalKBMetrics *KBMetrics
	kbMetricsOnce   sync.Once
)

// GetKBMetrics 获取全局指标实例。
func GetKBMetrics() *KBMetrics {
	kbMetricsOnce.Do(func() {
		globalKBMetrics = &KBMetrics{
			startTime: time.Now(),
		}
	})
	return globalKBMetrics
}

// RecordQuery 记录查询。
func (m *KBMetrics) RecordQuery(cacheHit bool, err error) {
	atomic.AddUint64(&m.queriesTotal, 1)
	if err != nil {
		atomic.AddUint64(&m.queriesErrors, 1)
		return
	}
	if cacheHit {
		atomic.AddUint64(&m.queriesCacheHits, 1)
	} else {
		atomic.AddUint64(&m.queriesCacheMisses, 1)
	}
}

// RecordRetrieval 记录检索操作。
func (m *KBMetrics) RecordRetrieval(duration time.Duration, err error) {
	atomic.AddUint64(&m.retrievalTotal, 1)
	if err != nil {
		atomic.AddUint64(&m.retrievalErrors, 1)
		return
	}

	m.durationMu.Lock()
	m.retrievalDuration += duration.Seconds()
	m.durationMu.Unlock()
}

// RecordLLMCall 记录 LLM 调用。
func (m *KBMetrics) RecordLLMCall(duration time.Duration, err error) {
	atomic.AddUint64(&m.llmCallsTotal, 1)
	if err != nil {
		atomic.AddUint64(&m.llmCallsErrors, 1)
		return
	}

	m.durationMu.Lock()
	m.llmCallsDuration += duration.Seconds()
	m.durationMu.Unlock()
}

// RecordFallback 记录一次答案退化为原文摘录。
func (m *KBMetrics) RecordFallback() {
	atomic.AddUint64(&m.llmFallbacks, 1)
}

// RecordIngest 记录摄取操作。
func (m *KBMetrics) RecordIngest(documents, chunks int, err error) {
	if err != nil {
		atomic.AddUint64(&m.ingestErrors, 1)
		return
	}
	atomic.AddUint64(&m.documentsIngested, uint64(documents))
	atomic.AddUint64(&m.chunksIngested, uint64(chunks))
}

// RecordDelete 记录文档删除。
func (m *KBMetrics) RecordDelete(documents int) {
	atomic.AddUint64(&m.documentsDeleted, uint64(documents))
}

// Export 导出 Prometheus 格式指标。
func (m *KBMetrics) Export(namespace, subsystem string) string {
	var sb strings.Builder
	prefix := namespace
	if subsystem != "" {
		prefix = prefix + "_" + subsystem
	}

	counter := func(name, help string, value uint64) {
		sb.WriteString(fmt.Sprintf("# HELP %s_%s %s\n", prefix, name, help))
		sb.WriteString(fmt.Sprintf("# TYPE %s_%s counter\n", prefix, name))
		sb.WriteString(fmt.Sprintf("%s_%s %d\n\n", prefix, name, value))
	}
	gauge := func(name, help string, value float64) {
		sb.WriteString(fmt.Sprintf("# HELP %s_%s %s\n", prefix, name, help))
		sb.WriteString(fmt.Sprintf("# TYPE %s_%s gauge\n", prefix, name))
		sb.WriteString(fmt.Sprintf("%s_%s %.6f\n\n", prefix, name, value))
	}

	counter("queries_total", "Total number of knowledge base queries.", atomic.LoadUint64(&m.queriesTotal))
	counter("queries_cache_hits_total", "Number of cache hits.", atomic.LoadUint64(&m.queriesCacheHits))
	counter("queries_cache_misses_total", "Number of cache misses.", atomic.LoadUint64(&m.queriesCacheMisses))
	counter("queries_errors_total", "Number of query errors.", atomic.LoadUint64(&m.queriesErrors))

	cacheHits := atomic.LoadUint64(&m.queriesCacheHits)
	cacheMisses := atomic.LoadUint64(&m.queriesCacheMisses)
	total := cacheHits + cacheMisses
	cacheHitRate := 0.0
	if total > 0 {
		cacheHitRate = float64(cacheHits) / float64(total)
	}
	gauge("cache_hit_rate", "Cache hit rate (0-1).", cacheHitRate)

	counter("retrieval_total", "Total number of retrievals.", atomic.LoadUint64(&m.retrievalTotal))
	counter("retrieval_errors_total", "Number of retrieval errors.", atomic.LoadUint64(&m.retrievalErrors))

	m.durationMu.Lock()
	retrievalDuration := m.retrievalDuration
	llmDuration := m.llmCallsDuration
	m.durationMu.Unlock()

	gauge("retrieval_duration_seconds_total", "Total retrieval duration.", retrievalDuration)

	counter("llm_calls_total", "Total number of LLM calls.", atomic.LoadUint64(&m.llmCallsTotal))
	counter("llm_calls_errors_total", "Number of LLM call errors.", atomic.LoadUint64(&m.llmCallsErrors))
	counter("llm_fallbacks_total", "Number of answers degraded to raw excerpts.", atomic.LoadUint64(&m.llmFallbacks))
	gauge("llm_calls_duration_seconds_total", "Total LLM call duration.", llmDuration)

	counter("documents_ingested_total", "Total documents ingested.", atomic.LoadUint64(&m.documentsIngested))
	counter("chunks_ingested_total", "Total chunks ingested.", atomic.LoadUint64(&m.chunksIngested))
	counter("ingest_errors_total", "Number of ingestion errors.", atomic.LoadUint64(&m.ingestErrors))
	counter("documents_deleted_total", "Total documents deleted.", atomic.LoadUint64(&m.documentsDeleted))

	gauge("uptime_seconds", "Service uptime in seconds.", time.Since(m.startTime).Seconds())

	return sb.String()
}

// Stats 返回当前统计信息（用于 API）。
func (m *KBMetrics) Stats() map[string]interface{} {
	m.durationMu.Lock()
	retrievalDuration := m.retrievalDuration
	llmDuration := m.llmCallsDuration
	m.durationMu.Unlock()

	cacheHits := atomic.LoadUint64(&m.queriesCacheHits)
	cacheMisses := atomic.LoadUint64(&m.queriesCacheMisses)
	cacheTotal := cacheHits + cacheMisses
	cacheHitRate := 0.0
	if cacheTotal > 0 {
		cacheHitRate = float64(cacheHits) / float64(cacheTotal)
	}

	retrievalTotal := atomic.LoadUint64(&m.retrievalTotal)
	avgRetrievalDuration := 0.0
	if retrievalTotal > 0 {
		avgRetrievalDuration = retrievalDuration / float64(retrievalTotal)
	}

	llmTotal := atomic.LoadUint64(&m.llmCallsTotal)
	avgLLMDuration := 0.0
	if llmTotal > 0 {
		avgLLMDuration = llmDuration / float64(llmTotal)
	}

	return map[string]interface{}{
		"queries": map[string]interface{}{
			"total":          atomic.LoadUint64(&m.queriesTotal),
			"cache_hits":     cacheHits,
			"cache_misses":   cacheMisses,
			"cache_hit_rate": cacheHitRate,
			"errors":         atomic.LoadUint64(&m.queriesErrors),
		},
		"retrieval": map[string]interface{}{
			"total":               retrievalTotal,
			"total_duration_secs": retrievalDuration,
			"avg_duration_secs":   avgRetrievalDuration,
			"errors":              atomic.LoadUint64(&m.retrievalErrors),
		},
		"llm": map[string]interface{}{
			"calls_total":         llmTotal,
			"total_duration_secs": llmDuration,
			"avg_duration_secs":   avgLLMDuration,
			"errors":              atomic.LoadUint64(&m.llmCallsErrors),
			"fallbacks":           atomic.LoadUint64(&m.llmFallbacks),
		},
		"ingestion": map[string]interface{}{
			"documents_ingested": atomic.LoadUint64(&m.documentsIngested),
			"chunks_ingested":    atomic.LoadUint64(&m.chunksIngested),
			"documents_deleted":  atomic.LoadUint64(&m.documentsDeleted),
			"errors":             atomic.LoadUint64(&m.ingestErrors),
		},
		"uptime_seconds": time.Since(m.startTime).Seconds(),
	}
}

// Reset 重置所有指标（仅用于测试）。
func (m *KBMetrics) Reset() {
	atomic.StoreUint64(&m.queriesTotal, 0)
	atomic.StoreUint64(&m.queriesCacheHits, 0)
	atomic.StoreUint64(&m.queriesCacheMisses, 0)
	atomic.StoreUint64(&m.queriesErrors, 0)
	atomic.StoreUint64(&m.retrievalTotal, 0)
	atomic.StoreUint64(&m.retrievalErrors, 0)
	atomic.StoreUint64(&m.llmCallsTotal, 0)
	atomic.StoreUint64(&m.llmCallsErrors, 0)
	atomic.StoreUint64(&m.llmFallbacks, 0)
	atomic.StoreUint64(&m.documentsIngested, 0)
	atomic.StoreUint64(&m.chunksIngested, 0)
	atomic.StoreUint64(&m.ingestErrors, 0)
	atomic.StoreUint64(&m.documentsDeleted, 0)

	m.durationMu.Lock()
	m.retrievalDuration = 0
	m.llmCallsDuration = 0
	m.startTime = time.Now()
	m.durationMu.Unlock()
}
