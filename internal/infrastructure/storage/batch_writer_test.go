package storage

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chenyang-zz/keyflow/pkg/events"
)

// fakeKeyEventRepository 记录写入的假仓储
type fakeKeyEventRepository struct {
	mu      sync.Mutex
	saved   []events.Event
	failAll bool
}

func (f *fakeKeyEventRepository) Save(event events.Event) error {
	return f.SaveBatch([]events.Event{event})
}

func (f *fakeKeyEventRepository) SaveBatch(eventList []events.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return fmt.Errorf("storage unavailable")
	}
	f.saved = append(f.saved, eventList...)
	return nil
}

func (f *fakeKeyEventRepository) FindByTimeRange(start, end time.Time) ([]events.Event, error) {
	return nil, nil
}

func (f *fakeKeyEventRepository) FindRecent(limit int) ([]events.Event, error) {
	return nil, nil
}

func (f *fakeKeyEventRepository) FindByType(eventType events.EventType, limit int) ([]events.Event, error) {
	return nil, nil
}

func (f *fakeKeyEventRepository) DeleteOlderThan(cutoff time.Time) (int64, error) {
	return 0, nil
}

func (f *fakeKeyEventRepository) GetStats() (*KeyEventStats, error) {
	return &KeyEventStats{}, nil
}

func (f *fakeKeyEventRepository) savedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.saved)
}

// TestBatchWriter_FlushOnBatchSize 测试达到批量大小时自动刷新
func TestBatchWriter_FlushOnBatchSize(t *testing.T) {
	repo := &fakeKeyEventRepository{}
	bw := NewBatchWriter(repo, BatchWriterConfig{
		BatchSize:     10,
		FlushInterval: time.Hour, // 排除定时刷新的干扰
		EventBuffer:   100,
	})

	bw.Start()
	defer bw.Stop()

	for i := 0; i < 10; i++ {
		require.True(t, bw.Write(*events.NewEvent(events.EventTypeKeyPress, nil)))
	}

	assert.Eventually(t, func() bool {
		return repo.savedCount() == 10
	}, time.Second, 5*time.Millisecond)
}

// TestBatchWriter_StopFlushesRemaining 测试停止时刷新剩余事件
func TestBatchWriter_StopFlushesRemaining(t *testing.T) {
	repo := &fakeKeyEventRepository{}
	bw := NewBatchWriter(repo, BatchWriterConfig{
		BatchSize:     100,
		FlushInterval: time.Hour,
		EventBuffer:   100,
	})

	bw.Start()
	for i := 0; i < 7; i++ {
		require.True(t, bw.Write(*events.NewEvent(events.EventTypeKeyPress, nil)))
	}
	bw.Stop()

	assert.Equal(t, 7, repo.savedCount())

	stats := bw.GetStats()
	assert.Equal(t, int64(7), stats.TotalEvents)
	assert.Equal(t, int64(7), stats.PersistedEvents)
	assert.Zero(t, stats.FailedEvents)
}

// TestBatchWriter_ForceFlush 测试强制刷新
func TestBatchWriter_ForceFlush(t *testing.T) {
	repo := &fakeKeyEventRepository{}
	bw := NewBatchWriter(repo, BatchWriterConfig{
		BatchSize:     100,
		FlushInterval: time.Hour,
		EventBuffer:   100,
	})

	bw.Start()
	defer bw.Stop()

	require.True(t, bw.Write(*events.NewEvent(events.EventTypeKeyPress, nil)))

	// 等事件从通道进入缓冲区
	assert.Eventually(t, func() bool {
		return bw.GetBufferSize() == 1
	}, time.Second, 5*time.Millisecond)

	bw.ForceFlush()
	assert.Equal(t, 1, repo.savedCount())
	assert.Zero(t, bw.GetBufferSize())
}

// TestBatchWriter_FailedFlushCountsErrors 测试写入失败的统计
func TestBatchWriter_FailedFlushCountsErrors(t *testing.T) {
	repo := &fakeKeyEventRepository{failAll: true}
	bw := NewBatchWriter(repo, BatchWriterConfig{
		BatchSize:     100,
		FlushInterval: time.Hour,
		EventBuffer:   100,
	})

	bw.Start()
	require.True(t, bw.Write(*events.NewEvent(events.EventTypeKeyPress, nil)))
	bw.Stop()

	stats := bw.GetStats()
	assert.Equal(t, int64(1), stats.TotalEvents)
	assert.Equal(t, int64(1), stats.FailedEvents)
	assert.Zero(t, stats.PersistedEvents)
}

// TestBatchWriter_WriteAfterBufferFull 测试通道满时丢弃事件
func TestBatchWriter_WriteAfterBufferFull(t *testing.T) {
	repo := &fakeKeyEventRepository{}
	bw := NewBatchWriter(repo, BatchWriterConfig{
		BatchSize:     100,
		FlushInterval: time.Hour,
		EventBuffer:   1,
	})
	// 未启动，事件堆积在通道里

	assert.True(t, bw.Write(*events.NewEvent(events.EventTypeKeyPress, nil)))
	assert.False(t, bw.Write(*events.NewEvent(events.EventTypeKeyPress, nil)))
}
