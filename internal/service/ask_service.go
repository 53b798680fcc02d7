// Package service 包含了应用的业务逻辑层。
package service

import (
	"context"
	"errors"
	"time"

	"pai-search-go/internal/config"
	"pai-search-go/internal/model"
	"pai-search-go/pkg/llm"
	"pai-search-go/pkg/log"
	"pai-search-go/pkg/metrics"
	"pai-search-go/pkg/tasks"

	"github.com/google/uuid"
)

// ErrEmptyQuery 表示请求中缺少查询内容。
var ErrEmptyQuery = errors.New("query is required")

// AskService 接口定义了问答操作。
type AskService interface {
	Ask(ctx context.Context, query string) (*model.AskResponse, error)
}

type askService struct {
	llmClient llm.Client
	sink      SearchSink
	cfg       config.AskConfig
}

// NewAskService 创建一个新的 AskService 实例。
func NewAskService(llmClient llm.Client, sink SearchSink, cfg config.AskConfig) AskService {
	if cfg.DegradedAnswer == "" {
		cfg.DegradedAnswer = config.DefaultDegradedAnswer
	}
	if cfg.NoAnswer == "" {
		cfg.NoAnswer = config.DefaultNoAnswer
	}
	if cfg.ChartKeywords == nil {
		cfg.ChartKeywords = config.DefaultChartKeywords
	}
	return &askService{llmClient: llmClient, sink: sink, cfg: cfg}
}

// Ask 执行一次问答：web search → 抽取引用 → 清理文本 → (可选) 图表抽取 → 异步持久化。
// 搜索超时或失败时返回兜底回答而不是错误；只有空查询会返回错误。
func (s *askService) Ask(ctx context.Context, query string) (*model.AskResponse, error) {
	if query == "" {
		metrics.AskTotal.WithLabelValues("rejected").Inc()
		return nil, ErrEmptyQuery
	}
	start := time.Now()
	defer func() { metrics.AskDuration.Observe(time.Since(start).Seconds()) }()

	log.Infof("[AskService] 开始处理问答, query: '%s'", query)

	// 1. web search，独立超时
	searchCtx, cancel := s.withTimeout(ctx, s.cfg.SearchTimeout)
	resp, err := s.llmClient.WebSearch(searchCtx, query)
	cancel()
	if err != nil {
		log.Warnw("[AskService] web search 失败，返回兜底回答", "query", query, "error", err)
		metrics.AskTotal.WithLabelValues("degraded").Inc()
		return s.degraded(), nil
	}

	// 2. 抽取回答与引用
	text, results, found := extractAnswer(resp)
	if !found {
		log.Warnf("[AskService] 响应中没有可用的 message 文本, query: '%s'", query)
		metrics.AskTotal.WithLabelValues("no_answer").Inc()
		text = s.cfg.NoAnswer
	} else {
		metrics.AskTotal.WithLabelValues("answered").Inc()
	}
	log.Infof("[AskService] 抽取到 %d 个引用来源", len(results))

	// 3. 文本清理与引用编号
	answer := NormalizeAnswer(text, len(results))

	// 4. 图表抽取，失败不影响主回答
	out := &model.AskResponse{Results: results, Answer: answer}
	out.VisualizationData = s.visualize(ctx, query, answer)

	// 5. 异步持久化
	s.sink.Dispatch(tasks.SearchPersistTask{
		ID:          uuid.NewString(),
		Query:       query,
		Answer:      answer,
		Sources:     results,
		RequestedAt: time.Now(),
	})

	log.Infof("[AskService] 问答处理完成, query: '%s', 来源数: %d, 图表: %t", query, len(results), out.VisualizationData != nil)
	return out, nil
}

func (s *askService) visualize(ctx context.Context, query, answer string) *model.ChartData {
	if !NeedsVisualization(query, s.cfg.ChartKeywords) {
		metrics.VisualizationTotal.WithLabelValues("skipped").Inc()
		return nil
	}

	vizCtx, cancel := s.withTimeout(ctx, s.cfg.VisualizationTimeout)
	defer cancel()

	chart, err := extractVisualization(vizCtx, s.llmClient, s.cfg.VisualizationSystemPrompt, answer, query, s.cfg.VisualizationInputLimit)
	if err != nil {
		metrics.VisualizationTotal.WithLabelValues("failed").Inc()
		log.Warnw("[AskService] 图表数据抽取失败，忽略图表", "query", query, "error", err)
		return nil
	}
	if chart == nil {
		metrics.VisualizationTotal.WithLabelValues("rejected").Inc()
		log.Infof("[AskService] 未找到足够的真实数值数据, query: '%s'", query)
		return nil
	}
	metrics.VisualizationTotal.WithLabelValues("accepted").Inc()
	log.Infof("[AskService] 抽取到图表数据: '%s', 数据点: %d", chart.Title, len(chart.Data))
	return chart
}

func (s *askService) degraded() *model.AskResponse {
	return &model.AskResponse{
		Results:           []model.SearchResult{},
		Answer:            s.cfg.DegradedAnswer,
		VisualizationData: nil,
		Degraded:          true,
	}
}

func (s *askService) withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
