package events

import (
	"sync"
	"time"
)

// FilterRule 事件过滤规则
//
// 定义了事件过滤的条件和阈值
type FilterRule struct {
	// MinInterval 事件最小间隔（同一事件类型的两次事件之间的最小时间间隔）
	// 小于此间隔的事件将被过滤
	MinInterval time.Duration

	// MaxPerSecond 每秒最大事件数（同一事件类型）
	// 超过此速率的事件将被丢弃
	MaxPerSecond int
}

// EventFilterManager 事件过滤器管理器
//
// 用于过滤过于频繁的事件（如按键自动重复造成的事件风暴）。
// 支持基于时间间隔和速率限制的过滤策略。
// 注意：不要与 EventFilter 函数类型混淆。
type EventFilterManager struct {
	// rules 每种事件类型的过滤规则
	rules map[EventType]*FilterRule

	// lastEventTime 每种事件类型最后一次事件的时间
	lastEventTime map[EventType]time.Time

	// eventCounters 用于速率限制的事件计数器（滑动窗口）
	eventCounters map[EventType][]time.Time

	// mu 互斥锁，保护并发访问
	mu sync.Mutex

	// windowSize 速率限制的时间窗口（默认1秒）
	windowSize time.Duration

	// now 时钟函数（测试中可替换）
	now func() time.Time
}

// NewEventFilterManager 创建事件过滤器管理器
//
// Returns: *EventFilterManager - 新创建的事件过滤器管理器实例
func NewEventFilterManager() *EventFilterManager {
	return &EventFilterManager{
		rules:         make(map[EventType]*FilterRule),
		lastEventTime: make(map[EventType]time.Time),
		eventCounters: make(map[EventType][]time.Time),
		windowSize:    1 * time.Second,
		now:           time.Now,
	}
}

// SetRule 设置过滤规则
//
// 为指定的事件类型设置过滤规则。
//
// Parameters:
//   - eventType: 事件类型
//   - rule: 过滤规则（nil 表示移除规则）
func (f *EventFilterManager) SetRule(eventType EventType, rule *FilterRule) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if rule == nil {
		delete(f.rules, eventType)
	} else {
		f.rules[eventType] = rule
	}
}

// Allow 判断事件是否应该被处理
//
// 依次检查最小间隔与速率限制；任一不满足则过滤该事件。
// 被放行的事件会推进内部状态（最后事件时间、滑动窗口计数）。
//
// Parameters:
//   - eventType: 事件类型
//
// Returns: bool - true 表示放行，false 表示过滤
func (f *EventFilterManager) Allow(eventType EventType) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	rule, ok := f.rules[eventType]
	if !ok {
		return true
	}

	now := f.now()

	// 最小间隔检查
	if rule.MinInterval > 0 {
		if last, seen := f.lastEventTime[eventType]; seen {
			if now.Sub(last) < rule.MinInterval {
				return false
			}
		}
	}

	// 速率限制检查（滑动窗口）
	if rule.MaxPerSecond > 0 {
		cutoff := now.Add(-f.windowSize)
		window := f.eventCounters[eventType]
		kept := window[:0]
		for _, t := range window {
			if t.After(cutoff) {
				kept = append(kept, t)
			}
		}
		if len(kept) >= rule.MaxPerSecond {
			f.eventCounters[eventType] = kept
			return false
		}
		f.eventCounters[eventType] = append(kept, now)
	}

	f.lastEventTime[eventType] = now
	return true
}
