package service

import (
	"context"
	"sync"
	"time"

	"pai-search-go/pkg/kafka"
	"pai-search-go/pkg/log"
	"pai-search-go/pkg/metrics"
	"pai-search-go/pkg/tasks"
)

// SearchSink 接收已完成搜索的持久化任务。Dispatch 不阻塞调用方，也不向调用方暴露失败。
type SearchSink interface {
	Dispatch(task tasks.SearchPersistTask)
}

// TaskProducer 是 Kafka 生产者的最小接口。
type TaskProducer interface {
	ProduceSearchTask(ctx context.Context, task tasks.SearchPersistTask) error
}

// KafkaSink 在独立的 goroutine 中把任务投递到 Kafka，由消费者完成写库。
type KafkaSink struct {
	producer TaskProducer
	timeout  time.Duration
	wg       sync.WaitGroup
}

// NewKafkaSink 创建一个基于 Kafka 的持久化派发器。
func NewKafkaSink(producer TaskProducer, timeout time.Duration) *KafkaSink {
	return &KafkaSink{producer: producer, timeout: timeout}
}

// Dispatch 异步投递任务，失败只记录日志。
func (s *KafkaSink) Dispatch(task tasks.SearchPersistTask) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := detachedContext(s.timeout)
		defer cancel()
		if err := s.producer.ProduceSearchTask(ctx, task); err != nil {
			metrics.PersistTotal.WithLabelValues("dispatch_failed").Inc()
			log.Errorf("[KafkaSink] 投递搜索持久化任务失败, ID: %s, error: %v", task.ID, err)
			return
		}
		metrics.PersistTotal.WithLabelValues("dispatched").Inc()
	}()
}

// Wait 等待所有在途投递结束，用于优雅停机。
func (s *KafkaSink) Wait() {
	s.wg.Wait()
}

// LocalSink 未配置 Kafka 时使用：在进程内的独立 goroutine 中直接执行持久化。
type LocalSink struct {
	processor kafka.TaskProcessor
	timeout   time.Duration
	wg        sync.WaitGroup
}

// NewLocalSink 创建一个进程内的持久化派发器。
func NewLocalSink(processor kafka.TaskProcessor, timeout time.Duration) *LocalSink {
	return &LocalSink{processor: processor, timeout: timeout}
}

// Dispatch 异步执行持久化，失败只记录日志。
func (s *LocalSink) Dispatch(task tasks.SearchPersistTask) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				metrics.PersistTotal.WithLabelValues("failed").Inc()
				log.Errorf("[LocalSink] 持久化任务 panic, ID: %s, panic: %v", task.ID, r)
			}
		}()
		ctx, cancel := detachedContext(s.timeout)
		defer cancel()
		if err := s.processor.Process(ctx, task); err != nil {
			metrics.PersistTotal.WithLabelValues("failed").Inc()
			log.Errorf("[LocalSink] 搜索持久化失败, ID: %s, error: %v", task.ID, err)
			return
		}
		metrics.PersistTotal.WithLabelValues("stored").Inc()
	}()
}

// Wait 等待所有在途持久化结束，用于优雅停机。
func (s *LocalSink) Wait() {
	s.wg.Wait()
}

// detachedContext 与请求生命周期解耦：请求结束或被取消都不影响持久化。
func detachedContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return context.WithTimeout(context.Background(), timeout)
}
