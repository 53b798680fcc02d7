// Package kafka 提供了与 Kafka 消息队列交互的功能。
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"pai-search-go/internal/config"
	"pai-search-go/pkg/log"
	"pai-search-go/pkg/metrics"
	"pai-search-go/pkg/tasks"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

// TaskProcessor defines the interface for any service that can process a task.
// This decouples the Kafka consumer from the concrete pipeline implementation.
type TaskProcessor interface {
	Process(ctx context.Context, task tasks.SearchPersistTask) error
}

// Producer 封装 kafka.Writer，供持久化派发使用。
type Producer struct {
	writer *kafka.Writer
}

// NewProducer 初始化 Kafka 生产者。
func NewProducer(cfg config.KafkaConfig) *Producer {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(splitBrokers(cfg.Brokers)...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	log.Info("Kafka 生产者初始化成功")
	return &Producer{writer: w}
}

// ProduceSearchTask 发送一个搜索持久化任务到 Kafka，以任务 ID 作为消息 key。
func (p *Producer) ProduceSearchTask(ctx context.Context, task tasks.SearchPersistTask) error {
	taskBytes, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal search task: %w", err)
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(task.ID),
		Value: taskBytes,
	})
}

// Close 关闭底层 writer，刷新未发送的消息。
func (p *Producer) Close() error {
	return p.writer.Close()
}

const (
	// 读取失败后的初始退避时间，连续失败时翻倍
	minFetchBackoff = 500 * time.Millisecond
	maxFetchBackoff = 30 * time.Second
)

// messageReader 是消费循环用到的 kafka.Reader 方法子集。
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

// consumer 逐条处理持久化任务。每条消息只处理一次，无论成败都提交 offset：
// 持久化失败只记录日志和指标，不重试。
type consumer struct {
	reader     messageReader
	processor  TaskProcessor
	minBackoff time.Duration
	maxBackoff time.Duration
}

// StartConsumer 启动一个 Kafka 消费者来处理搜索持久化任务，ctx 取消时退出。
func StartConsumer(ctx context.Context, cfg config.KafkaConfig, processor TaskProcessor) {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  splitBrokers(cfg.Brokers),
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
	})
	defer func() {
		if err := r.Close(); err != nil {
			log.Errorf("关闭 Kafka 消费者失败: %v", err)
		}
	}()

	log.Infof("Kafka 消费者已启动，正在监听主题 '%s'", cfg.Topic)
	c := &consumer{reader: r, processor: processor, minBackoff: minFetchBackoff, maxBackoff: maxFetchBackoff}
	c.run(ctx)
}

func (c *consumer) run(ctx context.Context) {
	backoff := c.minBackoff
	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				log.Info("Kafka 消费者收到停止信号，退出")
				return
			}
			// broker 暂时不可用时退避后继续读取，不能让消费循环静默退出
			log.Errorf("从 Kafka 读取消息失败，%s 后重试: %v", backoff, err)
			if !sleep(ctx, backoff) {
				log.Info("Kafka 消费者收到停止信号，退出")
				return
			}
			backoff *= 2
			if backoff > c.maxBackoff {
				backoff = c.maxBackoff
			}
			continue
		}
		backoff = c.minBackoff

		c.handle(ctx, m)
		if err := c.reader.CommitMessages(ctx, m); err != nil {
			log.Errorf("提交 Kafka 消息 offset 失败: offset=%d, %v", m.Offset, err)
		}
	}
}

// handle 处理单条消息，错误只记录不返回。
func (c *consumer) handle(ctx context.Context, m kafka.Message) {
	var task tasks.SearchPersistTask
	if err := json.Unmarshal(m.Value, &task); err != nil || task.ID == "" {
		log.Errorf("无法解析 Kafka 消息，丢弃: %v, value: %s", err, string(m.Value))
		metrics.PersistTotal.WithLabelValues("malformed").Inc()
		return
	}

	log.Debugf("[KafkaConsumer] 开始处理搜索持久化任务: ID=%s, partition=%d, offset=%d", task.ID, m.Partition, m.Offset)
	if err := c.processor.Process(ctx, task); err != nil {
		log.Errorf("处理搜索持久化任务失败，已丢弃: ID=%s, Error: %v", task.ID, err)
		metrics.PersistTotal.WithLabelValues("failed").Inc()
		return
	}
	log.Infof("搜索持久化任务处理成功: ID=%s", task.ID)
	metrics.PersistTotal.WithLabelValues("stored").Inc()
}

// sleep 等待 d，ctx 先结束时返回 false。
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func splitBrokers(brokers string) []string {
	var out []string
	for _, b := range strings.Split(brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}
