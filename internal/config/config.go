// Package config 负责加载和管理应用程序的配置。
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// 全局配置变量，存储从配置文件加载的所有设置。
var Conf Config

// Config 是整个应用程序的配置结构体，与 config.yaml 文件结构对应。
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Log           LogConfig           `mapstructure:"log"`
	Kafka         KafkaConfig         `mapstructure:"kafka"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	MinIO         MinIOConfig         `mapstructure:"minio"`
	LLM           LLMConfig           `mapstructure:"llm"`
	Ask           AskConfig           `mapstructure:"ask"`
	Cache         CacheConfig         `mapstructure:"cache"`
	RateLimit     RateLimitConfig     `mapstructure:"rate_limit"`
}

// ServerConfig 存储服务器相关的配置。
type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

// DatabaseConfig 存储所有数据库连接的配置。
type DatabaseConfig struct {
	MySQL MySQLConfig `mapstructure:"mysql"`
	Redis RedisConfig `mapstructure:"redis"`
}

// MySQLConfig 存储 MySQL 数据库的配置。
type MySQLConfig struct {
	DSN         string `mapstructure:"dsn"`
	AutoMigrate bool   `mapstructure:"auto_migrate"`
}

// RedisConfig 存储 Redis 的配置。
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// LogConfig 存储日志相关的配置。
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// KafkaConfig 存储 Kafka 相关的配置。Brokers 为空时，持久化任务在进程内异步执行。
type KafkaConfig struct {
	Brokers         string        `mapstructure:"brokers"`
	Topic           string        `mapstructure:"topic"`
	GroupID         string        `mapstructure:"group_id"`
	DispatchTimeout time.Duration `mapstructure:"dispatch_timeout"`
}

// Enabled 表示是否配置了 Kafka。
func (k KafkaConfig) Enabled() bool {
	return strings.TrimSpace(k.Brokers) != ""
}

// ElasticsearchConfig 存储 Elasticsearch 相关的配置。Addresses 为空时不启用历史检索。
type ElasticsearchConfig struct {
	Addresses          string `mapstructure:"addresses"`
	Username           string `mapstructure:"username"`
	Password           string `mapstructure:"password"`
	IndexName          string `mapstructure:"index_name"`
	// InsecureSkipVerify 跳过 TLS 证书校验，仅用于本地自签名证书的集群
	InsecureSkipVerify bool   `mapstructure:"insecure_skip_verify"`
}

// Enabled 表示是否配置了 Elasticsearch。
func (e ElasticsearchConfig) Enabled() bool {
	return strings.TrimSpace(e.Addresses) != ""
}

// MinIOConfig 存储 MinIO 对象存储的配置。Endpoint 为空时不归档答案快照。
type MinIOConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	BucketName      string `mapstructure:"bucket_name"`
}

// Enabled 表示是否配置了 MinIO。
func (m MinIOConfig) Enabled() bool {
	return strings.TrimSpace(m.Endpoint) != ""
}

// LLMConfig 存储大语言模型相关的配置。
type LLMConfig struct {
	APIKey            string `mapstructure:"api_key"`
	BaseURL           string `mapstructure:"base_url"`
	Model             string `mapstructure:"model"`
	ExtractionModel   string `mapstructure:"extraction_model"`
	SearchTool        string `mapstructure:"search_tool"`
	SearchContextSize string `mapstructure:"search_context_size"`
}

// AskConfig 控制问答流水线的超时、兜底文案与图表关键词。
type AskConfig struct {
	SearchTimeout             time.Duration `mapstructure:"search_timeout"`
	VisualizationTimeout      time.Duration `mapstructure:"visualization_timeout"`
	VisualizationInputLimit   int           `mapstructure:"visualization_input_limit"`
	DegradedAnswer            string        `mapstructure:"degraded_answer"`
	NoAnswer                  string        `mapstructure:"no_answer"`
	ChartKeywords             []string      `mapstructure:"chart_keywords"`
	VisualizationSystemPrompt string        `mapstructure:"visualization_system_prompt"`
}

// CacheConfig 存储 Redis 缓存相关的配置。
type CacheConfig struct {
	RecentTTL time.Duration `mapstructure:"recent_ttl"`
}

// RateLimitConfig 配置按客户端 IP 的限流，RequestsPerSecond 为 0 时关闭。
type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// DefaultChartKeywords 是触发图表抽取的默认关键词。
var DefaultChartKeywords = []string{
	"compare", "comparison", "vs", "versus", "top", "ranking", "largest", "biggest", "most", "best",
	"market cap", "gdp", "population", "stock price", "trend", "growth", "market share",
	"percentage", "statistics", "stats", "data", "revenue", "sales", "show me", "list",
}

const (
	DefaultDegradedAnswer = "The search is taking longer than expected. Please try again in a moment."
	DefaultNoAnswer       = "I couldn't generate an answer based on the search results."
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "release")
	// 空字符串默认值让 AutomaticEnv 能覆盖这些键
	v.SetDefault("database.mysql.dsn", "")
	v.SetDefault("database.mysql.auto_migrate", true)
	v.SetDefault("database.redis.addr", "localhost:6379")
	v.SetDefault("database.redis.password", "")
	v.SetDefault("database.redis.db", 0)
	v.SetDefault("kafka.brokers", "")
	v.SetDefault("elasticsearch.addresses", "")
	v.SetDefault("elasticsearch.username", "")
	v.SetDefault("elasticsearch.password", "")
	v.SetDefault("elasticsearch.insecure_skip_verify", false)
	v.SetDefault("minio.endpoint", "")
	v.SetDefault("minio.access_key_id", "")
	v.SetDefault("minio.secret_access_key", "")
	v.SetDefault("minio.use_ssl", false)
	v.SetDefault("log.output_path", "")
	v.SetDefault("ask.visualization_system_prompt", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("kafka.topic", "search-persist")
	v.SetDefault("kafka.group_id", "pai-search-go-consumer")
	v.SetDefault("kafka.dispatch_timeout", 10*time.Second)
	v.SetDefault("elasticsearch.index_name", "search_history")
	v.SetDefault("minio.bucket_name", "search-snapshots")
	v.SetDefault("llm.base_url", "https://api.openai.com/v1")
	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("llm.extraction_model", "gpt-4o-mini")
	v.SetDefault("llm.search_tool", "web_search_preview")
	v.SetDefault("llm.search_context_size", "low")
	v.SetDefault("ask.search_timeout", 15*time.Second)
	v.SetDefault("ask.visualization_timeout", 8*time.Second)
	v.SetDefault("ask.visualization_input_limit", 4000)
	v.SetDefault("ask.degraded_answer", DefaultDegradedAnswer)
	v.SetDefault("ask.no_answer", DefaultNoAnswer)
	v.SetDefault("ask.chart_keywords", DefaultChartKeywords)
	v.SetDefault("cache.recent_ttl", 30*time.Second)
	v.SetDefault("rate_limit.requests_per_second", 0)
	v.SetDefault("rate_limit.burst", 5)
}

// Load 从指定路径读取 YAML 配置，叠加默认值与环境变量（如 LLM_API_KEY、DATABASE_MYSQL_DSN）。
// 路径为空时只使用默认值与环境变量。
func Load(configPath string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// 兼容常见的 OPENAI_API_KEY 写法
	_ = v.BindEnv("llm.api_key", "LLM_API_KEY", "OPENAI_API_KEY")

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("无法将配置解析到结构体中: %w", err)
	}
	return cfg, nil
}

// Init 初始化配置加载，从指定的路径读取 YAML 文件并解析到 Conf 变量中。
func Init(configPath string) {
	cfg, err := Load(configPath)
	if err != nil {
		panic(err)
	}
	Conf = cfg
}
