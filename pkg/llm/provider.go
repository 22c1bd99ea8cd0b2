// Package llm 提供统一的 LLM 供应商抽象层。
// Embedding 和 Generation 可以使用不同供应商的模型。
package llm

import (
	"context"
	"fmt"
	"sync"
)

// EmbeddingProvider 定义 Embedding 供应商接口。
type EmbeddingProvider interface {
	// Embed 为多个文本生成向量嵌入，输出顺序与输入一一对应。
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedSingle 为单个文本生成向量嵌入。
	EmbedSingle(ctx context.Context, text string) ([]float32, error)

	// Dimension 返回向量维度。
	Dimension() int

	// Name 返回供应商名称。
	Name() string
}

// GenerationProvider 定义文本生成供应商接口。
type GenerationProvider interface {
	// Generate 根据提示生成文本（单轮，无状态）。
	Generate(ctx context.Context, prompt string, systemPrompt string) (string, error)

	// Name 返回供应商名称。
	Name() string
}

// Provider 同时支持 Embedding 和 Generation 的完整供应商。
type Provider interface {
	EmbeddingProvider
	GenerationProvider
}

// ProviderFactory 供应商工厂函数类型。
type ProviderFactory func(config map[string]any) (Provider, error)

// registry 供应商注册表。
var registry = &providerRegistry{
	providers: make(map[string]ProviderFactory),
}

type providerRegistry struct {
	mu        sync.RWMutex
	providers map[string]ProviderFactory
}

// RegisterProvider 注册供应商工厂。供应商包在 init 中调用，
// 重复注册同名供应商视为编码错误，直接 panic。
func RegisterProvider(name string, factory ProviderFactory) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	if _, ok := registry.providers[name]; ok {
		panic(fmt.Sprintf("duplicate provider registration: %q", name))
	}
	registry.providers[name] = factory
}

// NewProvider 根据名称创建供应商实例。
func NewProvider(name string, config map[string]any) (Provider, error) {
	registry.mu.RLock()
	factory, ok := registry.providers[name]
	registry.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown provider: %s", name)
	}

	return factory(config)
}

// NewEmbeddingProvider 根据名称创建 Embedding 供应商实例。
func NewEmbeddingProvider(name string, config map[string]any) (EmbeddingProvider, error) {
	return NewProvider(name, config)
}

// NewGenerationProvider 根据名称创建生成供应商实例。
func NewGenerationProvider(name string, config map[string]any) (GenerationProvider, error) {
	return NewProvider(name, config)
}

// ListProviders 列出所有已注册的供应商名称。
func ListProviders() []string {
	registry.mu.RLock()
	defer registry.mu.RUnlock()

	names := make([]string, 0, len(registry.providers))
	for name := range registry.providers {
		names = append(names, name)
	}
	return names
}
