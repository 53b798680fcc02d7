package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"pai-search-go/internal/model"
	"pai-search-go/pkg/llm"
)

const (
	minChartPoints     = 3
	maxChartPoints     = 15
	chartDescription   = "Data visualization based on search results"
	visualizationName  = "visualization_extraction"
	chartTypeNone      = "none"
	truncatedInputMark = "…"
)

const defaultVisualizationPrompt = `Extract REAL numerical data from the web search results for visualization.
ONLY include data if you find actual numbers in the search results. Never estimate, approximate or invent values.

If real numerical data is found:
- Set chart_type to "bar" (comparisons/rankings), "line" (trends over time) or "pie" (percentages/shares)
- Provide a descriptive title
- Include the data source
- Extract 3-15 real data points

If NO real numerical data is found:
- Set chart_type to "none"
- Set title and data_source to empty strings
- Set data_points to an empty array`

// NeedsVisualization 对查询做小写子串匹配，任一关键词命中即返回 true。
func NeedsVisualization(query string, keywords []string) bool {
	lower := strings.ToLower(query)
	for _, k := range keywords {
		if k != "" && strings.Contains(lower, strings.ToLower(k)) {
			return true
		}
	}
	return false
}

// visualizationSchema 是严格模式下的 JSON Schema，所有字段必填且不允许额外字段。
func visualizationSchema() llm.JSONSchema {
	return llm.JSONSchema{
		Name:   visualizationName,
		Strict: true,
		Schema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"chart_type": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"bar", "line", "pie", chartTypeNone},
					"description": "Chart type or 'none' if no real data found",
				},
				"title": map[string]interface{}{
					"type":        "string",
					"description": "Chart title or empty string if no data",
				},
				"data_source": map[string]interface{}{
					"type":        "string",
					"description": "Where data came from or empty string if no data",
				},
				"data_points": map[string]interface{}{
					"type":        "array",
					"description": "Array of real data points, empty if no data found",
					"items": map[string]interface{}{
						"type": "object",
						"properties": map[string]interface{}{
							"name":  map[string]interface{}{"type": "string", "description": "Label for this data point"},
							"value": map[string]interface{}{"type": "number", "description": "Actual numerical value from search results"},
						},
						"required":             []string{"name", "value"},
						"additionalProperties": false,
					},
				},
			},
			"required":             []string{"chart_type", "title", "data_source", "data_points"},
			"additionalProperties": false,
		},
	}
}

type structuredChart struct {
	ChartType  string `json:"chart_type"`
	Title      string `json:"title"`
	DataSource string `json:"data_source"`
	DataPoints []struct {
		Name  string  `json:"name"`
		Value float64 `json:"value"`
	} `json:"data_points"`
}

// parseVisualization 解析模型返回的 JSON；chart_type 为 none、类型非法或数据点不足 3 个时返回 nil。
func parseVisualization(raw string) (*model.ChartData, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("empty structured output")
	}
	var sc structuredChart
	if err := json.Unmarshal([]byte(raw), &sc); err != nil {
		return nil, fmt.Errorf("failed to parse structured output: %w", err)
	}

	chartType := model.ChartType(sc.ChartType)
	if sc.ChartType == chartTypeNone || !chartType.Valid() || len(sc.DataPoints) < minChartPoints {
		return nil, nil
	}

	points := sc.DataPoints
	if len(points) > maxChartPoints {
		points = points[:maxChartPoints]
	}
	data := make([]model.ChartDatum, 0, len(points))
	for _, p := range points {
		data = append(data, model.ChartDatum{Name: p.Name, Value: p.Value})
	}
	return &model.ChartData{
		Type:        chartType,
		Title:       sc.Title,
		Description: chartDescription,
		DataSource:  sc.DataSource,
		Data:        data,
	}, nil
}

// visualizationMessages 构建抽取请求，回答文本超过 limit 个字符时截断。
func visualizationMessages(systemPrompt, answer, query string, limit int) []llm.Message {
	if systemPrompt == "" {
		systemPrompt = defaultVisualizationPrompt
	}
	if limit > 0 {
		if runes := []rune(answer); len(runes) > limit {
			answer = string(runes[:limit]) + truncatedInputMark
		}
	}
	user := fmt.Sprintf("Web search results: %s\n\nQuery: %s\n\nExtract real numerical data for visualization if it exists.", answer, query)
	return []llm.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: user},
	}
}

// extractVisualization 发起一次有超时的结构化抽取调用。
func extractVisualization(ctx context.Context, client llm.Client, systemPrompt, answer, query string, limit int) (*model.ChartData, error) {
	raw, err := client.ExtractJSON(ctx, visualizationMessages(systemPrompt, answer, query, limit), visualizationSchema())
	if err != nil {
		return nil, err
	}
	return parseVisualization(raw)
}
