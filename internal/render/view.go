// Package render 把问答结果转换为页面模板使用的视图模型。
package render

import (
	"encoding/json"
	"html/template"
	"regexp"
	"strconv"

	"pai-search-go/internal/model"
	"pai-search-go/internal/service"
)

var citationPattern = regexp.MustCompile(`\[(\d+)\]`)

// DefaultColors 是图表未指定颜色时使用的调色板。
var DefaultColors = []string{
	"#60a5fa", "#34d399", "#fbbf24", "#f472b6", "#a78bfa",
	"#fb7185", "#22d3ee", "#fcd34d", "#86efac", "#c084fc",
}

// Segment 是回答文本的一段。Citation > 0 表示这是一个 [n] 引用标记；
// Resolved 为 false 时没有对应来源，页面上渲染为不可点击的标签。
type Segment struct {
	Text     string
	Citation int
	Resolved bool
}

// Anchor 返回引用指向的来源卡片 ID。
func (s Segment) Anchor() string {
	return "source-" + strconv.Itoa(s.Citation)
}

// SourceCard 是来源列表中的一张卡片。
type SourceCard struct {
	Number  int
	Title   string
	URL     string
	Snippet string
	Host    string
}

// Anchor 返回卡片的元素 ID。
func (c SourceCard) Anchor() string {
	return "source-" + strconv.Itoa(c.Number)
}

// ChartView 是图表区域的数据，Config 为 Chart.js 配置 JSON。
type ChartView struct {
	Title       string
	Description string
	DataSource  string
	Config      template.JS
}

// View 是搜索结果页的完整视图模型。
type View struct {
	Query    string
	Answer   []Segment
	Sources  []SourceCard
	Chart    *ChartView
	Degraded bool
}

// BuildView 根据问答结果构建结果页视图。
func BuildView(query string, resp *model.AskResponse) View {
	v := View{Query: query}
	if resp == nil {
		return v
	}
	v.Degraded = resp.Degraded
	v.Answer = ParseCitations(resp.Answer, resp.Results)

	for _, r := range resp.Results {
		v.Sources = append(v.Sources, SourceCard{
			Number:  r.SourceID,
			Title:   r.Title,
			URL:     r.URL,
			Snippet: r.Snippet,
			Host:    service.Hostname(r.URL),
		})
	}

	if resp.VisualizationData != nil {
		if cfg, err := ChartConfig(resp.VisualizationData); err == nil {
			v.Chart = &ChartView{
				Title:       resp.VisualizationData.Title,
				Description: resp.VisualizationData.Description,
				DataSource:  resp.VisualizationData.DataSource,
				Config:      cfg,
			}
		}
	}
	return v
}

// ParseCitations 把文本按 [n] 标记切分为片段。
func ParseCitations(text string, results []model.SearchResult) []Segment {
	known := make(map[int]bool, len(results))
	for _, r := range results {
		known[r.SourceID] = true
	}

	var segments []Segment
	last := 0
	for _, m := range citationPattern.FindAllStringSubmatchIndex(text, -1) {
		if m[0] > last {
			segments = append(segments, Segment{Text: text[last:m[0]]})
		}
		n, err := strconv.Atoi(text[m[2]:m[3]])
		if err != nil {
			// 数字过大无法解析，按普通文本处理
			segments = append(segments, Segment{Text: text[m[0]:m[1]]})
		} else {
			segments = append(segments, Segment{Text: text[m[0]:m[1]], Citation: n, Resolved: known[n]})
		}
		last = m[1]
	}
	if last < len(text) {
		segments = append(segments, Segment{Text: text[last:]})
	}
	return segments
}

type chartDataset struct {
	Label           string      `json:"label"`
	Data            []float64   `json:"data"`
	BackgroundColor interface{} `json:"backgroundColor"`
	BorderColor     interface{} `json:"borderColor"`
	BorderWidth     int         `json:"borderWidth"`
	Tension         float64     `json:"tension,omitempty"`
}

type chartConfig struct {
	Type string `json:"type"`
	Data struct {
		Labels   []string       `json:"labels"`
		Datasets []chartDataset `json:"datasets"`
	} `json:"data"`
	Options map[string]interface{} `json:"options"`
}

// ChartConfig 生成 Chart.js 配置。饼图按数据点循环取色，柱状图和折线图使用第一个颜色。
func ChartConfig(c *model.ChartData) (template.JS, error) {
	colors := c.Colors
	if len(colors) == 0 {
		colors = DefaultColors
	}

	labels := make([]string, 0, len(c.Data))
	values := make([]float64, 0, len(c.Data))
	for _, d := range c.Data {
		labels = append(labels, d.Name)
		values = append(values, d.Value)
	}

	ds := chartDataset{Label: c.Title, Data: values, BorderWidth: 2}
	options := map[string]interface{}{
		"responsive":          true,
		"maintainAspectRatio": false,
	}
	switch c.Type {
	case model.ChartPie:
		slice := make([]string, len(values))
		for i := range values {
			slice[i] = colors[i%len(colors)]
		}
		ds.BackgroundColor = slice
		ds.BorderColor = "#1f2937"
	case model.ChartLine:
		ds.BackgroundColor = colors[0]
		ds.BorderColor = colors[0]
		ds.BorderWidth = 3
		ds.Tension = 0.3
		options["scales"] = axisScales(c)
	default:
		ds.BackgroundColor = colors[0]
		ds.BorderColor = colors[0]
		options["scales"] = axisScales(c)
	}

	var cfg chartConfig
	cfg.Type = string(c.Type)
	cfg.Data.Labels = labels
	cfg.Data.Datasets = []chartDataset{ds}
	cfg.Options = options

	b, err := json.Marshal(cfg)
	if err != nil {
		return "", err
	}
	// encoding/json 已转义 <、>、&，可以直接嵌入 <script>
	return template.JS(b), nil
}

func axisScales(c *model.ChartData) map[string]interface{} {
	axis := func(label string) map[string]interface{} {
		return map[string]interface{}{
			"title": map[string]interface{}{"display": label != "", "text": label},
		}
	}
	return map[string]interface{}{
		"x": axis(c.XAxisLabel),
		"y": axis(c.YAxisLabel),
	}
}
