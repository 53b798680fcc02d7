package service

import (
	"net/url"
	"strings"

	"pai-search-go/internal/model"
	"pai-search-go/pkg/llm"
)

const defaultSourceTitle = "Web Source"

// extractAnswer 从 Responses 输出中取出回答文本与 url_citation 来源。
// found 为 false 表示没有 message 或文本为空，调用方应使用兜底文案。
// 没有引用时返回空列表，不生成占位来源。
func extractAnswer(resp *llm.Response) (text string, results []model.SearchResult, found bool) {
	content, ok := resp.FirstMessageText()
	if !ok || content.Text == "" {
		return "", []model.SearchResult{}, false
	}

	results = make([]model.SearchResult, 0, len(content.Annotations))
	for _, a := range content.Annotations {
		if a.Type != "url_citation" {
			continue
		}
		cleanURL := stripQuery(a.URL)
		results = append(results, model.SearchResult{
			Title:    sourceTitle(a.Title, cleanURL),
			URL:      cleanURL,
			Snippet:  snippetAt(content.Text, a.StartIndex, a.EndIndex),
			SourceID: len(results) + 1,
		})
	}
	return content.Text, results, true
}

// snippetAt 按 Unicode 码点截取 [start, end)，越界时收敛到文本范围内。
func snippetAt(text string, start, end int) string {
	runes := []rune(text)
	if start < 0 {
		start = 0
	}
	if end > len(runes) {
		end = len(runes)
	}
	if start >= end {
		return ""
	}
	return string(runes[start:end])
}

// stripQuery 去掉 URL 中第一个 '?' 及其后的所有内容（utm 等追踪参数）。
func stripQuery(raw string) string {
	before, _, _ := strings.Cut(raw, "?")
	return before
}

func sourceTitle(title, rawURL string) string {
	if t := strings.TrimSpace(title); t != "" {
		return t
	}
	if host := Hostname(rawURL); host != "" {
		return host
	}
	return defaultSourceTitle
}

// Hostname 返回 URL 的主机名（去掉 www. 前缀），解析失败时返回空串。
func Hostname(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}
