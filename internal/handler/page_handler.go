package handler

import (
	"net/http"

	"pai-search-go/internal/middleware"
	"pai-search-go/internal/model"
	"pai-search-go/internal/render"
	"pai-search-go/internal/service"
	"pai-search-go/pkg/log"

	"github.com/gin-gonic/gin"
)

type pageData struct {
	Query  string
	Recent []model.SearchRecord
	View   *render.View
	Error  string
}

// PageHandler 渲染服务端 HTML 页面。
type PageHandler struct {
	askService     service.AskService
	historyService service.HistoryService
}

// NewPageHandler 创建一个新的 PageHandler 实例。
func NewPageHandler(askService service.AskService, historyService service.HistoryService) *PageHandler {
	return &PageHandler{askService: askService, historyService: historyService}
}

// Index 渲染首页：搜索框与最近搜索。
func (h *PageHandler) Index(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", pageData{
		Recent: h.historyService.RecentSearches(c.Request.Context()),
	})
}

// Search 处理 GET /search?q=，执行问答并渲染结果页。
func (h *PageHandler) Search(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.Redirect(http.StatusFound, "/")
		return
	}

	resp, err := h.askService.Ask(c.Request.Context(), query)
	if err != nil {
		log.Errorf("[PageHandler] 问答服务返回错误, query: '%s', error: %v", query, err)
		c.HTML(http.StatusInternalServerError, "search.html", pageData{Query: query, Error: middleware.ErrProcessRequest})
		return
	}

	view := render.BuildView(query, resp)
	c.HTML(http.StatusOK, "search.html", pageData{Query: query, View: &view})
}

// Healthz 是存活探针。
func Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
