package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetKBMetricsSingleton(t *testing.T) {
	m1 := GetKBMetrics()
	m2 := GetKBMetrics()
	assert.Same(t, m1, m2)
}

func TestRecordQuery(t *testing.T) {
	m := GetKBMetrics()
	m.Reset()

	m.RecordQuery(true, nil)
	m.RecordQuery(false, nil)
	m.RecordQuery(false, errors.New("boom"))

	stats := m.Stats()
	queries := stats["queries"].(map[string]interface{})
	assert.Equal(t, uint64(3), queries["total"])
	assert.Equal(t, uint64(1), queries["cache_hits"])
	assert.Equal(t, uint64(1), queries["cache_misses"])
	assert.Equal(t, uint64(1), queries["errors"])
	assert.Equal(t, 0.5, queries["cache_hit_rate"])
}

func TestRecordRetrievalAndLLM(t *testing.T) {
	m := GetKBMetrics()
	m.Reset()

	m.RecordRetrieval(100*time.Millisecond, nil)
	m.RecordRetrieval(0, errors.New("boom"))
	m.RecordLLMCall(200*time.Millisecond, nil)
	m.RecordFallback()

	stats := m.Stats()
	retrieval := stats["retrieval"].(map[string]interface{})
	assert.Equal(t, uint64(2), retrieval["total"])
	assert.Equal(t, uint64(1), retrieval["errors"])

	llmStats := stats["llm"].(map[string]interface{})
	assert.Equal(t, uint64(1), llmStats["calls_total"])
	assert.Equal(t, uint64(1), llmStats["fallbacks"])
}

func TestRecordIngestAndDelete(t *testing.T) {
	m := GetKBMetrics()
	m.Reset()

	m.RecordIngest(1, 5, nil)
	m.RecordIngest(0, 0, errors.New("boom"))
	m.RecordDelete(1)

	stats := m.Stats()
	ingestion := stats["ingestion"].(map[string]interface{})
	assert.Equal(t, uint64(1), ingestion["documents_ingested"])
	assert.Equal(t, uint64(5), ingestion["chunks_ingested"])
	assert.Equal(t, uint64(1), ingestion["documents_deleted"])
	assert.Equal(t, uint64(1), ingestion["errors"])
}

func TestExportPrometheusFormat(t *testing.T) {
	m := GetKBMetrics()
	m.Reset()

	m.RecordQuery(false, nil)
	m.RecordIngest(1, 3, nil)

	out := m.Export("doclens", "kb")
	require.NotEmpty(t, out)
	assert.Contains(t, out, "doclens_kb_queries_total 1")
	assert.Contains(t, out, "doclens_kb_documents_ingested_total 1")
	assert.Contains(t, out, "doclens_kb_chunks_ingested_total 3")
	assert.Contains(t, out, "# TYPE doclens_kb_cache_hit_rate gauge")
}
