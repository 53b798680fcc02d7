package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"pai-search-go/pkg/tasks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingProcessor struct{}

func (failingProcessor) Process(context.Context, tasks.SearchPersistTask) error {
	return errors.New("db unavailable")
}

type panickingProcessor struct{}

func (panickingProcessor) Process(context.Context, tasks.SearchPersistTask) error {
	panic("boom")
}

type recordingProcessor struct {
	mu       sync.Mutex
	ids      []string
	deadline bool
}

func (p *recordingProcessor) Process(ctx context.Context, task tasks.SearchPersistTask) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ids = append(p.ids, task.ID)
	_, p.deadline = ctx.Deadline()
	return nil
}

type fakeProducer struct {
	mu    sync.Mutex
	sent  []string
	err   error
	block chan struct{}
}

func (p *fakeProducer) ProduceSearchTask(_ context.Context, task tasks.SearchPersistTask) error {
	if p.block != nil {
		<-p.block
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, task.ID)
	return p.err
}

func TestLocalSink_Processes(t *testing.T) {
	proc := &recordingProcessor{}
	sink := NewLocalSink(proc, time.Second)

	sink.Dispatch(tasks.SearchPersistTask{ID: "a"})
	sink.Dispatch(tasks.SearchPersistTask{ID: "b"})
	sink.Wait()

	assert.ElementsMatch(t, []string{"a", "b"}, proc.ids)
	assert.True(t, proc.deadline, "persistence runs with its own timeout")
}

func TestLocalSink_SwallowsFailures(t *testing.T) {
	for _, p := range []interface {
		Process(context.Context, tasks.SearchPersistTask) error
	}{failingProcessor{}, panickingProcessor{}} {
		sink := NewLocalSink(p, time.Second)
		require.NotPanics(t, func() {
			sink.Dispatch(tasks.SearchPersistTask{ID: "x"})
			sink.Wait()
		})
	}
}

func TestKafkaSink_DispatchDoesNotBlock(t *testing.T) {
	producer := &fakeProducer{block: make(chan struct{})}
	sink := NewKafkaSink(producer, time.Second)

	done := make(chan struct{})
	go func() {
		sink.Dispatch(tasks.SearchPersistTask{ID: "a"})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Dispatch blocked on the producer")
	}

	close(producer.block)
	sink.Wait()
	assert.Equal(t, []string{"a"}, producer.sent)
}

func TestKafkaSink_ProducerError(t *testing.T) {
	producer := &fakeProducer{err: errors.New("broker down")}
	sink := NewKafkaSink(producer, time.Second)

	require.NotPanics(t, func() {
		sink.Dispatch(tasks.SearchPersistTask{ID: "a"})
		sink.Wait()
	})
	assert.Equal(t, []string{"a"}, producer.sent)
}
