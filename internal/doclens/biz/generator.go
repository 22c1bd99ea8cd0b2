package biz

import (
	"context"
	"fmt"
	"strings"

	"github.com/kart-io/logger"

	"github.com/lattice-io/doclens/internal/doclens/store"
	"github.com/lattice-io/doclens/internal/model"
	"github.com/lattice-io/doclens/pkg/llm"
)

// DefaultSystemPrompt 默认提示词模板。
const DefaultSystemPrompt = `You are a helpful assistant answering questions about a document knowledge base.
Use ONLY the provided context to answer. If the context does not contain the answer, say so.

Context:
{{context}}

Question: {{question}}`

// GeneratorConfig 生成器配置。
type GeneratorConfig struct {
	// SystemPrompt 提示词模板，{{context}} 与 {{question}} 为占位符。
	SystemPrompt string
	// ContextBudget 注入提示词的上下文总长度上限（字节数）。
	ContextBudget int
}

// DefaultGeneratorConfig 返回默认生成配置。
func DefaultGeneratorConfig() *GeneratorConfig {
	return &GeneratorConfig{
		SystemPrompt:  DefaultSystemPrompt,
		ContextBudget: 8000,
	}
}

// Generator 负责根据检索结果编排答案生成。
type Generator struct {
	chatProvider llm.GenerationProvider
	config       *GeneratorConfig
}

// NewGenerator 创建生成器实例。
func NewGenerator(chatProvider llm.GenerationProvider, config *GeneratorConfig) *Generator {
	if config == nil {
		config = DefaultGeneratorConfig()
	}
	if config.SystemPrompt == "" {
		config.SystemPrompt = DefaultSystemPrompt
	}
	return &Generator{
		chatProvider: chatProvider,
		config:       config,
	}
}

// Answer 根据检索结果生成答案。
// 上下文按检索排名拼装，超出预算时丢弃低分块；进入提示词的每个块
// 都会原样出现在返回的引用列表中。生成失败时退化为最高分块的原文
// 摘录，结果标记 Fallback，不向调用方返回错误。
func (g *Generator) Answer(ctx context.Context, question string, results []*store.SearchResult) (*model.QueryResult, error) {
	if len(results) == 0 {
		return &model.QueryResult{
			Answer:  "I couldn't find any relevant information in the knowledge base.",
			Sources: []model.ChunkSource{},
		}, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context cancelled before generation: %w", err)
	}

	// 按排名拼装上下文，超出预算即停止
	var contextBuilder strings.Builder
	used := make([]*store.SearchResult, 0, len(results))
	budget := g.config.ContextBudget
	for i, result := range results {
		block := fmt.Sprintf("[%d] From %s #%d:\n%s\n\n",
			i+1, result.Payload.Filename, result.Payload.ChunkIndex, result.Payload.Content)
		if budget > 0 && contextBuilder.Len()+len(block) > budget && len(used) > 0 {
			break
		}
		contextBuilder.WriteString(block)
		used = append(used, result)
	}

	sources := make([]model.ChunkSource, len(used))
	for i, result := range used {
		sources[i] = model.ChunkSource{
			DocumentID: result.Payload.DocumentID,
			Filename:   result.Payload.Filename,
			ChunkIndex: result.Payload.ChunkIndex,
			Content:    result.Payload.Content,
			Score:      result.Score,
		}
	}

	prompt := strings.ReplaceAll(g.config.SystemPrompt, "{{context}}", contextBuilder.String())
	prompt = strings.ReplaceAll(prompt, "{{question}}", question)

	answer, err := g.chatProvider.Generate(ctx, prompt, "")
	if err != nil {
		// 生成失败退化为最高分块原文，请求本身不失败
		logger.Errorw("generation failed, falling back to excerpt", "error", err.Error())
		return &model.QueryResult{
			Answer:   used[0].Payload.Content,
			Sources:  sources,
			Fallback: true,
		}, nil
	}

	logger.Infow("answer generated", "answer_length", len(answer), "sources", len(sources))
	return &model.QueryResult{
		Answer:  answer,
		Sources: sources,
	}, nil
}
