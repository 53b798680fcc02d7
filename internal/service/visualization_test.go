package service

import (
	"fmt"
	"strings"
	"testing"

	"pai-search-go/internal/config"
	"pai-search-go/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNeedsVisualization(t *testing.T) {
	kw := config.DefaultChartKeywords
	assert.True(t, NeedsVisualization("Largest economies by GDP", kw))
	assert.True(t, NeedsVisualization("COMPARE iPhone and Pixel", kw))
	assert.True(t, NeedsVisualization("Show Me the population of Canada", kw))
	assert.False(t, NeedsVisualization("who wrote hamlet", kw))
	assert.False(t, NeedsVisualization("anything", nil))
	assert.False(t, NeedsVisualization("anything", []string{""}))
}

func chartJSON(chartType string, n int) string {
	points := make([]string, 0, n)
	for i := 0; i < n; i++ {
		points = append(points, fmt.Sprintf(`{"name":"P%d","value":%d}`, i, (i+1)*10))
	}
	return fmt.Sprintf(`{"chart_type":%q,"title":"GDP 2024","data_source":"IMF","data_points":[%s]}`, chartType, strings.Join(points, ","))
}

func TestParseVisualization_Accepts(t *testing.T) {
	chart, err := parseVisualization(chartJSON("bar", 3))
	require.NoError(t, err)
	require.NotNil(t, chart)
	assert.Equal(t, model.ChartBar, chart.Type)
	assert.Equal(t, "GDP 2024", chart.Title)
	assert.Equal(t, "IMF", chart.DataSource)
	assert.Equal(t, chartDescription, chart.Description)
	require.Len(t, chart.Data, 3)
	assert.Equal(t, "P0", chart.Data[0].Name)
	assert.Equal(t, 10.0, chart.Data[0].Value)
}

func TestParseVisualization_Rejects(t *testing.T) {
	for _, raw := range []string{
		chartJSON("none", 0),
		chartJSON("none", 5),
		chartJSON("line", 2),
		chartJSON("scatter", 5),
	} {
		chart, err := parseVisualization(raw)
		assert.NoError(t, err, raw)
		assert.Nil(t, chart, raw)
	}
}

func TestParseVisualization_TruncatesToFifteen(t *testing.T) {
	chart, err := parseVisualization(chartJSON("pie", 20))
	require.NoError(t, err)
	require.NotNil(t, chart)
	assert.Len(t, chart.Data, maxChartPoints)
}

func TestParseVisualization_Malformed(t *testing.T) {
	_, err := parseVisualization("")
	assert.Error(t, err)
	_, err = parseVisualization("{not json")
	assert.Error(t, err)
}

func TestVisualizationMessages(t *testing.T) {
	msgs := visualizationMessages("", "abcdefgh", "top cities", 5)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].Role)
	assert.Equal(t, defaultVisualizationPrompt, msgs[0].Content)
	assert.Contains(t, msgs[1].Content, "abcde…")
	assert.NotContains(t, msgs[1].Content, "abcdef")
	assert.Contains(t, msgs[1].Content, "Query: top cities")

	msgs = visualizationMessages("custom", "abcdefgh", "q", 0)
	assert.Equal(t, "custom", msgs[0].Content)
	assert.Contains(t, msgs[1].Content, "abcdefgh")
}

func TestVisualizationSchema(t *testing.T) {
	s := visualizationSchema()
	assert.Equal(t, "visualization_extraction", s.Name)
	assert.True(t, s.Strict)
	assert.Equal(t, false, s.Schema["additionalProperties"])
}
