// Package handler 包含了 Gin 的 HTTP 处理器。
package handler

import (
	"errors"
	"net/http"

	"pai-search-go/internal/middleware"
	"pai-search-go/internal/service"
	"pai-search-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// AskHandler 处理问答接口。
type AskHandler struct {
	askService service.AskService
}

// NewAskHandler 创建一个新的 AskHandler 实例。
func NewAskHandler(askService service.AskService) *AskHandler {
	return &AskHandler{askService: askService}
}

// Ask 处理 POST /api/ask，请求体为 {"query": string}。
func (h *AskHandler) Ask(c *gin.Context) {
	var body map[string]interface{}
	if err := c.ShouldBindJSON(&body); err != nil {
		log.Warnf("[AskHandler] 请求体不是合法 JSON: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	// query 原样透传，不做 trim
	query, ok := body["query"].(string)
	if !ok || query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Query is required"})
		return
	}

	resp, err := h.askService.Ask(c.Request.Context(), query)
	if err != nil {
		if errors.Is(err, service.ErrEmptyQuery) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Query is required"})
			return
		}
		log.Errorf("[AskHandler] 问答服务返回错误, query: '%s', error: %v", query, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": middleware.ErrProcessRequest})
		return
	}

	c.JSON(http.StatusOK, resp)
}
