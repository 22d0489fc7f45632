/**
 * Package events 提供事件总线实现
 *
 * EventBus 是发布-订阅模式的核心实现，支持：
 * - 类型安全的订阅和发布
 * - 通配符订阅
 * - 异步事件处理
 * - 中间件链
 * - 优雅关闭
 */

package events

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chenyang-zz/keyflow/pkg/logger"
	"go.uber.org/zap"
)

/**
 * EventHandler 事件处理函数类型
 *
 * Parameters:
 *   - event: 事件对象
 *
 * Returns:
 *   - error: 处理过程中的错误
 */
type EventHandler func(event Event) error

/**
 * EventFilter 事件过滤器函数类型
 *
 * 返回 true 表示事件应该被处理，false 表示跳过
 */
type EventFilter func(event Event) bool

/**
 * Middleware 中间件类型
 *
 * 中间件可以包装事件处理函数，添加日志、恢复、持久化等功能
 */
type Middleware func(EventHandler) EventHandler

/**
 * Subscriber 订阅者信息
 */
type Subscriber struct {
	// ID 订阅者唯一标识
	ID string

	// Handler 事件处理函数
	Handler EventHandler

	// Filter 事件过滤器（可选）
	Filter EventFilter

	// Once 是否只触发一次
	Once bool

	// Chan 订阅者专用通道（用于异步交付）
	Chan chan Event

	// mu 保护 Chan 的发送和关闭
	mu sync.RWMutex
}

/**
 * EventBus 事件总线
 *
 * 核心的发布-订阅系统实现
 */
type EventBus struct {
	// subscribers 订阅者映射：事件类型 -> 订阅者列表
	subscribers map[string][]*Subscriber

	// mutex 保护 subscribers 的读写锁
	mutex sync.RWMutex

	// wg 等待组，用于优雅关闭
	wg sync.WaitGroup

	// stopChan 停止信号通道
	stopChan chan struct{}

	// middleware 中间件链
	middleware []Middleware

	// stopped 原子标志，标记总线是否已停止
	stopped atomic.Bool

	// asyncBufferSize 异步事件缓冲区大小
	asyncBufferSize int
}

/**
 * Option 配置选项类型
 */
type Option func(*EventBus)

/**
 * WithAsyncBufferSize 设置异步缓冲区大小
 */
func WithAsyncBufferSize(size int) Option {
	return func(bus *EventBus) {
		bus.asyncBufferSize = size
	}
}

/**
 * NewEventBus 创建新的事件总线
 *
 * Parameters:
 *   - opts: 配置选项（可选）
 *
 * Returns:
 *   - *EventBus: 新创建的事件总线
 */
func NewEventBus(opts ...Option) *EventBus {
	bus := &EventBus{
		subscribers:     make(map[string][]*Subscriber),
		stopChan:        make(chan struct{}),
		middleware:      make([]Middleware, 0),
		asyncBufferSize: 1000,
	}

	for _, opt := range opts {
		opt(bus)
	}

	return bus
}

/**
 * Subscribe 订阅事件
 *
 * Parameters:
 *   - eventType: 事件类型，使用 "*" 订阅所有事件
 *   - handler: 事件处理函数
 *
 * Returns:
 *   - string: 订阅者 ID，用于取消订阅
 */
func (bus *EventBus) Subscribe(eventType string, handler EventHandler) string {
	return bus.SubscribeWithFilter(eventType, handler, nil)
}

/**
 * SubscribeWithFilter 带过滤器订阅事件
 *
 * Parameters:
 *   - eventType: 事件类型
 *   - handler: 事件处理函数
 *   - filter: 事件过滤器（可选）
 *
 * Returns:
 *   - string: 订阅者 ID
 */
func (bus *EventBus) SubscribeWithFilter(
	eventType string,
	handler EventHandler,
	filter EventFilter,
) string {
	subscriber := &Subscriber{
		ID:      generateSubscriberID(),
		Handler: handler,
		Filter:  filter,
		Once:    false,
		Chan:    make(chan Event, bus.asyncBufferSize),
	}

	bus.addSubscriber(eventType, subscriber)
	return subscriber.ID
}

/**
 * SubscribeOnce 订阅一次性事件
 *
 * 事件只会被处理一次，之后自动取消订阅
 *
 * Parameters:
 *   - eventType: 事件类型
 *   - handler: 事件处理函数
 *
 * Returns:
 *   - string: 订阅者 ID
 */
func (bus *EventBus) SubscribeOnce(eventType string, handler EventHandler) string {
	subscriber := &Subscriber{
		ID:      generateSubscriberID(),
		Handler: handler,
		Filter:  nil,
		Once:    true,
		Chan:    make(chan Event, bus.asyncBufferSize),
	}

	bus.addSubscriber(eventType, subscriber)
	return subscriber.ID
}

/**
 * addSubscriber 注册订阅者并启动其处理协程
 */
func (bus *EventBus) addSubscriber(eventType string, subscriber *Subscriber) {
	bus.mutex.Lock()
	defer bus.mutex.Unlock()

	bus.subscribers[eventType] = append(bus.subscribers[eventType], subscriber)

	logger.Debug("订阅事件",
		zap.String("event_type", eventType),
		zap.String("subscriber_id", subscriber.ID),
	)

	bus.wg.Add(1)
	go bus.processSubscriber(subscriber)
}

/**
 * Unsubscribe 取消订阅
 *
 * Parameters:
 *   - subscriberID: 订阅者 ID
 */
func (bus *EventBus) Unsubscribe(subscriberID string) {
	bus.mutex.Lock()
	defer bus.mutex.Unlock()

	// 在所有事件类型中查找订阅者
	for eventType, subscribers := range bus.subscribers {
		for i, sub := range subscribers {
			if sub.ID == subscriberID {
				// 从列表中移除
				bus.subscribers[eventType] = append(subscribers[:i], subscribers[i+1:]...)

				logger.Debug("取消订阅",
					zap.String("event_type", eventType),
					zap.String("subscriber_id", subscriberID),
				)

				// 关闭通道（加锁保护）
				sub.mu.Lock()
				close(sub.Chan)
				sub.mu.Unlock()

				return
			}
		}
	}

	logger.Debug("订阅者不存在，无法取消订阅", zap.String("subscriber_id", subscriberID))
}

/**
 * Publish 发布事件
 *
 * 将事件投递到所有匹配订阅者的通道，不等待处理完成
 *
 * Parameters:
 *   - eventType: 事件类型
 *   - event: 事件对象
 *
 * Returns:
 *   - error: 发布过程中的错误
 */
func (bus *EventBus) Publish(eventType string, event Event) error {
	if bus.stopped.Load() {
		logger.Warn("事件总线已停止，无法发布事件",
			zap.String("event_type", eventType),
		)
		return fmt.Errorf("event bus is stopped")
	}

	// 获取订阅者
	bus.mutex.RLock()
	subscribers := bus.getSubscribers(eventType)
	bus.mutex.RUnlock()

	// 发送事件到所有订阅者
	for _, subscriber := range subscribers {
		if subscriber.Filter != nil && !subscriber.Filter(event) {
			continue // 过滤掉不匹配的事件
		}

		// 异步发送（加锁保护）
		subscriber.mu.RLock()
		select {
		case subscriber.Chan <- event:
		default:
			// 缓冲区满，丢弃事件
			logger.Warn("事件缓冲区满，丢弃事件",
				zap.String("subscriber_id", subscriber.ID),
				zap.String("event_type", eventType),
			)
		}
		subscriber.mu.RUnlock()
	}

	return nil
}

/**
 * Use 添加中间件
 *
 * 中间件按添加顺序执行
 *
 * Parameters:
 *   - middleware: 中间件函数
 */
func (bus *EventBus) Use(middleware Middleware) {
	bus.middleware = append(bus.middleware, middleware)
}

/**
 * Stop 优雅停止事件总线
 *
 * 会等待所有正在处理的事件完成
 *
 * Parameters:
 *   - timeout: 超时时间
 *
 * Returns:
 *   - error: 超时或停止过程中的错误
 */
func (bus *EventBus) Stop(timeout time.Duration) error {
	if !bus.stopped.CompareAndSwap(false, true) {
		return nil
	}

	// 立即关闭 stopChan，通知所有订阅者退出
	close(bus.stopChan)

	// 创建带超时的上下文
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// 等待所有订阅者处理完成
	done := make(chan struct{})
	go func() {
		bus.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		// 所有订阅者已完成
		return nil
	case <-ctx.Done():
		// 超时
		return fmt.Errorf("timeout waiting for event bus to stop")
	}
}

/**
 * processSubscriber 处理订阅者事件
 *
 * 在独立的 goroutine 中运行，从通道读取事件并处理
 *
 * Parameters:
 *   - subscriber: 订阅者对象
 */
func (bus *EventBus) processSubscriber(subscriber *Subscriber) {
	defer bus.wg.Done()

	for {
		select {
		case event, ok := <-subscriber.Chan:
			if !ok {
				// 通道关闭
				return
			}

			// 处理事件
			handler := bus.applyMiddleware(subscriber.Handler)
			if err := handler(event); err != nil {
				logger.Error("事件处理错误",
					zap.String("subscriber_id", subscriber.ID),
					zap.String("event_type", string(event.Type)),
					zap.Error(err),
				)
			}

			// 如果是一次性订阅，处理后取消
			if subscriber.Once {
				bus.Unsubscribe(subscriber.ID)
				return
			}

		case <-bus.stopChan:
			// 总线停止，退出
			return
		}
	}
}

/**
 * getSubscribers 获取事件类型的所有订阅者
 *
 * 包括通配符订阅者
 *
 * Parameters:
 *   - eventType: 事件类型
 *
 * Returns:
 *   - []*Subscriber: 订阅者列表
 */
func (bus *EventBus) getSubscribers(eventType string) []*Subscriber {
	subscribers := make([]*Subscriber, 0)

	// 添加特定类型的订阅者
	if subs, ok := bus.subscribers[eventType]; ok {
		subscribers = append(subscribers, subs...)
	}

	// 添加通配符订阅者
	if wildcardSubs, ok := bus.subscribers["*"]; ok {
		subscribers = append(subscribers, wildcardSubs...)
	}

	return subscribers
}

/**
 * applyMiddleware 应用中间件链
 *
 * Parameters:
 *   - handler: 原始处理函数
 *
 * Returns:
 *   - EventHandler: 包装后的处理函数
 */
func (bus *EventBus) applyMiddleware(handler EventHandler) EventHandler {
	// 中间件按相反顺序应用（洋葱模型）
	for i := len(bus.middleware) - 1; i >= 0; i-- {
		handler = bus.middleware[i](handler)
	}
	return handler
}

/**
 * generateSubscriberID 生成订阅者 ID
 */
func generateSubscriberID() string {
	return fmt.Sprintf("sub-%d", time.Now().UnixNano())
}

/**
 * RecoveryMiddleware 恢复中间件
 *
 * 防止事件处理函数中的 panic 导致程序崩溃
 */
func RecoveryMiddleware() Middleware {
	return func(next EventHandler) EventHandler {
		return func(event Event) (err error) {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("事件处理发生 panic",
						zap.String("event_id", event.ID),
						zap.Any("panic", r),
					)
					err = fmt.Errorf("panic in event handler: %v", r)
				}
			}()
			return next(event)
		}
	}
}
