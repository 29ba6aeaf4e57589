package core

import (
	"context"
)

// Logger interface - minimal logging interface shared by every module
type Logger interface {
	Info(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Debug(msg string, fields map[string]interface{})
}

// ComponentAwareLogger can derive a child logger attributed to a component
type ComponentAwareLogger interface {
	Logger
	WithComponent(component string) Logger
}

// AIClient interface - LLM access for decomposition and synthesis
type AIClient interface {
	GenerateResponse(ctx context.Context, prompt string, options *AIOptions) (*AIResponse, error)
}

// AIOptions for AI generation
type AIOptions struct {
	Model        string
	Temperature  float32
	MaxTokens    int
	SystemPrompt string
}

// AIResponse from AI client
type AIResponse struct {
	Content string
	Model   string
	Usage   TokenUsage
}

// TokenUsage for AI responses
type TokenUsage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// IndexRecord is one document in the external indexed store.
// Metadata carries the domain filter keys plus the optional
// "indexed_at" ISO-8601 timestamp the freshness oracle reads.
type IndexRecord struct {
	Text     string                 `json:"text"`
	Metadata map[string]interface{} `json:"metadata"`
	Score    float64                `json:"score"`
}

// DocumentIndex is the contract the indexed knowledge store presents to
// the core. Query returns up to topK records matching domain and one
// metadata filter, most relevant/recent first. Implementations live at
// the edges (Redis, in-memory); the core never depends on a concrete one.
type DocumentIndex interface {
	Query(ctx context.Context, domain, filterKey, filterValue string, topK int) ([]IndexRecord, error)
	Upsert(ctx context.Context, domain string, records []IndexRecord) error
}

// NoOpLogger provides a no-op logger implementation
type NoOpLogger struct{}

func (n *NoOpLogger) Info(msg string, fields map[string]interface{})  {}
func (n *NoOpLogger) Error(msg string, fields map[string]interface{}) {}
func (n *NoOpLogger) Warn(msg string, fields map[string]interface{})  {}
func (n *NoOpLogger) Debug(msg string, fields map[string]interface{}) {}
