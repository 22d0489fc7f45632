package events

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestEventBus_PublishSubscribe 测试基本的发布-订阅
func TestEventBus_PublishSubscribe(t *testing.T) {
	bus := NewEventBus()
	defer func() { _ = bus.Stop(time.Second) }()

	var received atomic.Int32
	bus.Subscribe(string(EventTypeKeyPress), func(event Event) error {
		received.Add(1)
		return nil
	})

	event := NewEvent(EventTypeKeyPress, KeyEventData{Key: "enter", VK: 0x24}.ToMap())
	require.NoError(t, bus.Publish(string(EventTypeKeyPress), *event))

	assert.Eventually(t, func() bool {
		return received.Load() == 1
	}, time.Second, 5*time.Millisecond)
}

// TestEventBus_WildcardSubscription 测试通配符订阅收到所有事件
func TestEventBus_WildcardSubscription(t *testing.T) {
	bus := NewEventBus()
	defer func() { _ = bus.Stop(time.Second) }()

	var received atomic.Int32
	bus.Subscribe("*", func(event Event) error {
		received.Add(1)
		return nil
	})

	_ = bus.Publish(string(EventTypeKeyPress), *NewEvent(EventTypeKeyPress, nil))
	_ = bus.Publish(string(EventTypeKeyRelease), *NewEvent(EventTypeKeyRelease, nil))

	assert.Eventually(t, func() bool {
		return received.Load() == 2
	}, time.Second, 5*time.Millisecond)
}

// TestEventBus_Filter 测试订阅过滤器
func TestEventBus_Filter(t *testing.T) {
	bus := NewEventBus()
	defer func() { _ = bus.Stop(time.Second) }()

	var received atomic.Int32
	bus.SubscribeWithFilter(string(EventTypeKeyPress),
		func(event Event) error {
			received.Add(1)
			return nil
		},
		func(event Event) bool {
			return event.Data["key"] == "esc"
		},
	)

	_ = bus.Publish(string(EventTypeKeyPress), *NewEvent(EventTypeKeyPress,
		map[string]interface{}{"key": "enter"}))
	_ = bus.Publish(string(EventTypeKeyPress), *NewEvent(EventTypeKeyPress,
		map[string]interface{}{"key": "esc"}))

	assert.Eventually(t, func() bool {
		return received.Load() == 1
	}, time.Second, 5*time.Millisecond)
}

// TestEventBus_SubscribeOnce 测试一次性订阅自动取消
func TestEventBus_SubscribeOnce(t *testing.T) {
	bus := NewEventBus()
	defer func() { _ = bus.Stop(time.Second) }()

	var received atomic.Int32
	bus.SubscribeOnce(string(EventTypeStatus), func(event Event) error {
		received.Add(1)
		return nil
	})

	_ = bus.Publish(string(EventTypeStatus), *NewEvent(EventTypeStatus, nil))

	assert.Eventually(t, func() bool {
		return received.Load() == 1
	}, time.Second, 5*time.Millisecond)

	// 第二次发布不再触发
	_ = bus.Publish(string(EventTypeStatus), *NewEvent(EventTypeStatus, nil))
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), received.Load())
}

// TestEventBus_Unsubscribe 测试取消订阅
func TestEventBus_Unsubscribe(t *testing.T) {
	bus := NewEventBus()
	defer func() { _ = bus.Stop(time.Second) }()

	var received atomic.Int32
	id := bus.Subscribe(string(EventTypeKeyPress), func(event Event) error {
		received.Add(1)
		return nil
	})
	bus.Unsubscribe(id)

	_ = bus.Publish(string(EventTypeKeyPress), *NewEvent(EventTypeKeyPress, nil))
	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, received.Load())
}

// TestEventBus_StoppedRejectsPublish 测试停止后拒绝发布
func TestEventBus_StoppedRejectsPublish(t *testing.T) {
	bus := NewEventBus()
	require.NoError(t, bus.Stop(time.Second))

	err := bus.Publish(string(EventTypeKeyPress), *NewEvent(EventTypeKeyPress, nil))
	assert.Error(t, err)
}

// TestEventBus_StopTwice 测试重复停止不会 panic
func TestEventBus_StopTwice(t *testing.T) {
	bus := NewEventBus()
	require.NoError(t, bus.Stop(time.Second))

	assert.NotPanics(t, func() {
		require.NoError(t, bus.Stop(time.Second))
	})
}

// TestEventBus_RecoveryMiddleware 测试 panic 恢复中间件
func TestEventBus_RecoveryMiddleware(t *testing.T) {
	bus := NewEventBus()
	defer func() { _ = bus.Stop(time.Second) }()

	bus.Use(RecoveryMiddleware())

	var after atomic.Int32
	bus.Subscribe(string(EventTypeKeyPress), func(event Event) error {
		panic("boom")
	})
	bus.Subscribe(string(EventTypeKeyPress), func(event Event) error {
		after.Add(1)
		return nil
	})

	assert.NotPanics(t, func() {
		_ = bus.Publish(string(EventTypeKeyPress), *NewEvent(EventTypeKeyPress, nil))
	})

	assert.Eventually(t, func() bool {
		return after.Load() == 1
	}, time.Second, 5*time.Millisecond)
}

// TestEventBus_HandlerError 测试处理函数错误不影响其他订阅者
func TestEventBus_HandlerError(t *testing.T) {
	bus := NewEventBus()
	defer func() { _ = bus.Stop(time.Second) }()

	var received atomic.Int32
	bus.Subscribe(string(EventTypeKeyPress), func(event Event) error {
		return errors.New("handler failure")
	})
	bus.Subscribe(string(EventTypeKeyPress), func(event Event) error {
		received.Add(1)
		return nil
	})

	_ = bus.Publish(string(EventTypeKeyPress), *NewEvent(EventTypeKeyPress, nil))

	assert.Eventually(t, func() bool {
		return received.Load() == 1
	}, time.Second, 5*time.Millisecond)
}
