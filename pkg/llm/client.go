// Package llm provides a client for interacting with Large Language Models.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"pai-search-go/internal/config"
	"pai-search-go/pkg/log"
	"strings"
)

// Client defines the interface for an LLM client.
type Client interface {
	// WebSearch 调用 Responses 接口并启用托管的 web search 工具。
	WebSearch(ctx context.Context, query string) (*Response, error)
	// ExtractJSON 以严格 JSON Schema 约束调用聊天接口，返回模型输出的 JSON 文本。
	ExtractJSON(ctx context.Context, messages []Message, schema JSONSchema) (string, error)
}

type openAIClient struct {
	cfg    config.LLMConfig
	client *http.Client
}

// NewClient creates a new LLM client based on the provider in the config.
// 超时由调用方通过 ctx 控制，这里不设置 http.Client.Timeout。
func NewClient(cfg config.LLMConfig) Client {
	return NewClientWithHTTP(cfg, &http.Client{})
}

// NewClientWithHTTP 允许注入自定义的 http.Client。
func NewClientWithHTTP(cfg config.LLMConfig, hc *http.Client) Client {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &openAIClient{cfg: cfg, client: hc}
}

// Message 表示一条角色消息
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Tool 是 Responses 接口的工具声明。
type Tool struct {
	Type              string `json:"type"`
	SearchContextSize string `json:"search_context_size,omitempty"`
}

type responsesRequest struct {
	Model string `json:"model"`
	Tools []Tool `json:"tools"`
	Input string `json:"input"`
}

// Response 是 Responses 接口返回的结构化输出。
type Response struct {
	ID     string       `json:"id"`
	Output []OutputItem `json:"output"`
}

// OutputItem 是 output 列表中的一项，常见类型有 web_search_call 与 message。
type OutputItem struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Status  string          `json:"status,omitempty"`
	Role    string          `json:"role,omitempty"`
	Content []OutputContent `json:"content,omitempty"`
}

// OutputContent 是 message 中的内容块。
type OutputContent struct {
	Type        string       `json:"type"`
	Text        string       `json:"text"`
	Annotations []Annotation `json:"annotations,omitempty"`
}

// Annotation 标记文本中某一区间引用自某个 URL。
type Annotation struct {
	Type       string `json:"type"`
	StartIndex int    `json:"start_index"`
	EndIndex   int    `json:"end_index"`
	URL        string `json:"url"`
	Title      string `json:"title,omitempty"`
}

// FirstMessageText 返回第一个 message 项的首个内容块及是否存在。
func (r *Response) FirstMessageText() (OutputContent, bool) {
	if r == nil {
		return OutputContent{}, false
	}
	for _, item := range r.Output {
		if item.Type != "message" {
			continue
		}
		if len(item.Content) == 0 {
			return OutputContent{}, false
		}
		return item.Content[0], true
	}
	return OutputContent{}, false
}

// JSONSchema 描述 response_format 中的 json_schema。
type JSONSchema struct {
	Name   string                 `json:"name"`
	Strict bool                   `json:"strict"`
	Schema map[string]interface{} `json:"schema"`
}

type responseFormat struct {
	Type       string     `json:"type"`
	JSONSchema JSONSchema `json:"json_schema"`
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []Message      `json:"messages"`
	Stream         bool           `json:"stream"`
	ResponseFormat responseFormat `json:"response_format"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
			Refusal string `json:"refusal,omitempty"`
		} `json:"message"`
	} `json:"choices"`
}

// WebSearch calls the Responses API with the web search tool enabled.
func (c *openAIClient) WebSearch(ctx context.Context, query string) (*Response, error) {
	reqBody := responsesRequest{
		Model: c.cfg.Model,
		Tools: []Tool{{Type: c.cfg.SearchTool, SearchContextSize: c.cfg.SearchContextSize}},
		Input: query,
	}

	var resp Response
	if err := c.postJSON(ctx, "/responses", reqBody, &resp); err != nil {
		return nil, err
	}
	log.Infof("[LLMClient] Responses 调用成功, id: %s, output 项数: %d", resp.ID, len(resp.Output))
	return &resp, nil
}

// ExtractJSON calls chat completions with a strict json_schema response format.
func (c *openAIClient) ExtractJSON(ctx context.Context, messages []Message, schema JSONSchema) (string, error) {
	model := c.cfg.ExtractionModel
	if model == "" {
		model = c.cfg.Model
	}
	reqBody := chatRequest{
		Model:          model,
		Messages:       messages,
		Stream:         false,
		ResponseFormat: responseFormat{Type: "json_schema", JSONSchema: schema},
	}

	var resp chatResponse
	if err := c.postJSON(ctx, "/chat/completions", reqBody, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat api returned no choices")
	}
	msg := resp.Choices[0].Message
	if msg.Refusal != "" {
		return "", fmt.Errorf("model refused structured extraction: %s", msg.Refusal)
	}
	return msg.Content, nil
}

func (c *openAIClient) postJSON(ctx context.Context, path string, body interface{}, out interface{}) error {
	reqBytes, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(reqBytes))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call %s: %w", path, err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read %s response: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s returned non-200 status: %s, body: %s", path, resp.Status, string(respBytes))
	}
	if err := json.Unmarshal(respBytes, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}
