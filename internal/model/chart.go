package model

import (
	"encoding/json"
	"fmt"
)

// ChartType 是前端支持的图表类型。
type ChartType string

const (
	ChartBar  ChartType = "bar"
	ChartLine ChartType = "line"
	ChartPie  ChartType = "pie"
)

// Valid 判断是否为可渲染的图表类型。
func (t ChartType) Valid() bool {
	switch t {
	case ChartBar, ChartLine, ChartPie:
		return true
	}
	return false
}

// ChartData 只在单次响应中存在，从不持久化。
type ChartData struct {
	Type        ChartType    `json:"type"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	DataSource  string       `json:"dataSource,omitempty"`
	Data        []ChartDatum `json:"data"`
	XAxisLabel  string       `json:"xAxisLabel,omitempty"`
	YAxisLabel  string       `json:"yAxisLabel,omitempty"`
	Colors      []string     `json:"colors,omitempty"`
}

// ChartDatum 是一个命名数值点，Extra 中的字段会原样透传。
type ChartDatum struct {
	Name  string
	Value float64
	Extra map[string]interface{}
}

// MarshalJSON 将 Extra 平铺到 name/value 同级。
func (d ChartDatum) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(d.Extra)+2)
	for k, v := range d.Extra {
		out[k] = v
	}
	out["name"] = d.Name
	out["value"] = d.Value
	return json.Marshal(out)
}

// UnmarshalJSON 读取 name/value，其余字段收进 Extra。
func (d *ChartDatum) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	var out ChartDatum
	if v, ok := raw["name"]; ok {
		if err := json.Unmarshal(v, &out.Name); err != nil {
			return fmt.Errorf("chart datum name: %w", err)
		}
		delete(raw, "name")
	}
	if v, ok := raw["value"]; ok {
		if err := json.Unmarshal(v, &out.Value); err != nil {
			return fmt.Errorf("chart datum value: %w", err)
		}
		delete(raw, "value")
	}
	if len(raw) > 0 {
		out.Extra = make(map[string]interface{}, len(raw))
		for k, v := range raw {
			var x interface{}
			if err := json.Unmarshal(v, &x); err != nil {
				return fmt.Errorf("chart datum %s: %w", k, err)
			}
			out.Extra[k] = x
		}
	}
	*d = out
	return nil
}
