// Package main 是应用程序的入口点。
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pai-search-go/internal/config"
	"pai-search-go/internal/handler"
	"pai-search-go/internal/middleware"
	"pai-search-go/internal/pipeline"
	"pai-search-go/internal/repository"
	"pai-search-go/internal/service"
	"pai-search-go/pkg/database"
	"pai-search-go/pkg/es"
	"pai-search-go/pkg/kafka"
	"pai-search-go/pkg/llm"
	"pai-search-go/pkg/log"
	"pai-search-go/pkg/storage"
	"pai-search-go/web"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// waiter 是可以等待在途持久化任务结束的 sink。
type waiter interface {
	Wait()
}

func main() {
	// 1. 初始化配置
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./configs/config.yaml"
	}
	config.Init(configPath)
	cfg := config.Conf

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync()
	log.Info("日志记录器初始化成功")

	if cfg.LLM.APIKey == "" {
		log.Warnf("未配置 llm.api_key（LLM_API_KEY / OPENAI_API_KEY），所有搜索都会返回兜底回答")
	}

	// 3. 初始化数据库和 Redis，二者不可用时服务降级运行，问答不受影响
	var searchRepo repository.SearchRepository
	if err := database.InitMySQL(cfg.Database.MySQL.DSN, cfg.Database.MySQL.AutoMigrate); err != nil {
		log.Errorf("MySQL 初始化失败，搜索记录不会被保存: %v", err)
	} else {
		defer database.CloseMySQL()
		searchRepo = repository.NewSearchRepository(database.DB)
	}
	if err := database.InitRedis(cfg.Database.Redis.Addr, cfg.Database.Redis.Password, cfg.Database.Redis.DB); err != nil {
		log.Warnf("Redis 暂不可用，最近搜索将直接查询数据库: %v", err)
	}
	recentCache := repository.NewRecentSearchCache(database.RDB, cfg.Cache.RecentTTL)

	// 4. 可选的历史索引与快照归档，初始化失败时降级为关闭
	var indexer pipeline.HistoryIndexer
	var searcher service.HistorySearcher
	if cfg.Elasticsearch.Enabled() {
		store, err := es.InitHistoryStore(cfg.Elasticsearch)
		if err != nil {
			log.Errorf("Elasticsearch 初始化失败，搜索历史检索已关闭: %v", err)
		} else {
			indexer, searcher = store, store
		}
	}
	var archiver pipeline.SnapshotArchiver
	if cfg.MinIO.Enabled() {
		store, err := storage.InitMinIO(cfg.MinIO)
		if err != nil {
			log.Errorf("MinIO 初始化失败，快照归档已关闭: %v", err)
		} else {
			archiver = store
		}
	}

	// 5. 初始化持久化管道与 sink
	processor := pipeline.NewProcessor(searchRepo, recentCache, indexer, archiver)

	consumerCtx, stopConsumer := context.WithCancel(context.Background())
	defer stopConsumer()
	consumerDone := make(chan struct{})

	var sink service.SearchSink
	var producer *kafka.Producer
	if cfg.Kafka.Enabled() {
		producer = kafka.NewProducer(cfg.Kafka)
		sink = service.NewKafkaSink(producer, cfg.Kafka.DispatchTimeout)
		go func() {
			defer close(consumerDone)
			kafka.StartConsumer(consumerCtx, cfg.Kafka, processor)
		}()
	} else {
		log.Info("未配置 Kafka，搜索持久化将在进程内异步执行")
		sink = service.NewLocalSink(processor, cfg.Kafka.DispatchTimeout)
		close(consumerDone)
	}

	// 6. 初始化 Service
	llmClient := llm.NewClient(cfg.LLM)
	askService := service.NewAskService(llmClient, sink, cfg.Ask)
	historyService := service.NewHistoryService(searchRepo, recentCache, searcher)

	// 7. 设置 Gin 模式并创建路由引擎
	gin.SetMode(cfg.Server.Mode)
	r := gin.New()
	r.Use(middleware.RequestLogger(), middleware.Recovery())

	tmpl, err := web.Templates()
	if err != nil {
		log.Fatal("解析页面模板失败", err)
	}
	r.SetHTMLTemplate(tmpl)
	r.StaticFS("/static", http.FS(web.Static()))

	// 8. 注册路由
	limiter := middleware.NewIPRateLimiter(cfg.RateLimit)
	askHandler := handler.NewAskHandler(askService)
	historyHandler := handler.NewHistoryHandler(historyService)
	pageHandler := handler.NewPageHandler(askService, historyService)

	r.GET("/", pageHandler.Index)
	r.GET("/search", middleware.RateLimit(limiter), pageHandler.Search)
	r.GET("/healthz", handler.Healthz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		api.POST("/ask", middleware.RateLimit(limiter), askHandler.Ask)
		api.GET("/recent-searches", historyHandler.RecentSearches)
		api.GET("/search-history", historyHandler.SearchHistory)
	}

	// 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP 服务监听失败: %s\n", err)
		}
	}()

	// 等待中断信号以实现优雅停机
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("接收到停机信号，正在关闭服务...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorf("HTTP 服务器关闭失败: %v", err)
	}

	// 等待在途的持久化任务，最多等到停机超时
	drained := make(chan struct{})
	go func() {
		if w, ok := sink.(waiter); ok {
			w.Wait()
		}
		close(drained)
	}()
	select {
	case <-drained:
	case <-ctx.Done():
		log.Warnf("等待在途持久化任务超时，部分搜索记录可能未写入")
	}

	stopConsumer()
	select {
	case <-consumerDone:
	case <-ctx.Done():
	}
	if producer != nil {
		if err := producer.Close(); err != nil {
			log.Errorf("关闭 Kafka 生产者失败: %v", err)
		}
	}

	log.Info("服务已优雅关闭")
}
