package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// fakeClock 可手动推进的时钟
type fakeClock struct {
	current time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.current
}

func (c *fakeClock) Advance(d time.Duration) {
	c.current = c.current.Add(d)
}

// TestEventFilterManager_NoRuleAllowsAll 测试未配置规则时全部放行
func TestEventFilterManager_NoRuleAllowsAll(t *testing.T) {
	fm := NewEventFilterManager()

	for i := 0; i < 100; i++ {
		assert.True(t, fm.Allow(EventTypeKeyPress))
	}
}

// TestEventFilterManager_MinInterval 测试最小间隔限制
func TestEventFilterManager_MinInterval(t *testing.T) {
	clock := &fakeClock{current: time.Unix(1000, 0)}
	fm := NewEventFilterManager()
	fm.now = clock.Now
	fm.SetRule(EventTypeKeyPress, &FilterRule{MinInterval: 50 * time.Millisecond})

	assert.True(t, fm.Allow(EventTypeKeyPress))

	// 间隔不足被拦截
	clock.Advance(10 * time.Millisecond)
	assert.False(t, fm.Allow(EventTypeKeyPress))

	// 间隔满足后放行
	clock.Advance(50 * time.Millisecond)
	assert.True(t, fm.Allow(EventTypeKeyPress))
}

// TestEventFilterManager_MaxPerSecond 测试每秒速率限制
func TestEventFilterManager_MaxPerSecond(t *testing.T) {
	clock := &fakeClock{current: time.Unix(1000, 0)}
	fm := NewEventFilterManager()
	fm.now = clock.Now
	fm.SetRule(EventTypeKeyPress, &FilterRule{MaxPerSecond: 3})

	for i := 0; i < 3; i++ {
		clock.Advance(10 * time.Millisecond)
		assert.True(t, fm.Allow(EventTypeKeyPress), "第 %d 个事件应放行", i+1)
	}

	// 窗口内超出上限
	clock.Advance(10 * time.Millisecond)
	assert.False(t, fm.Allow(EventTypeKeyPress))

	// 窗口滑过后重新放行
	clock.Advance(1 * time.Second)
	assert.True(t, fm.Allow(EventTypeKeyPress))
}

// TestEventFilterManager_RulesAreIndependent 测试不同事件类型的规则互不影响
func TestEventFilterManager_RulesAreIndependent(t *testing.T) {
	clock := &fakeClock{current: time.Unix(1000, 0)}
	fm := NewEventFilterManager()
	fm.now = clock.Now
	fm.SetRule(EventTypeKeyPress, &FilterRule{MinInterval: time.Second})

	assert.True(t, fm.Allow(EventTypeKeyPress))
	assert.False(t, fm.Allow(EventTypeKeyPress))

	// key_release 没有规则，不受影响
	assert.True(t, fm.Allow(EventTypeKeyRelease))
	assert.True(t, fm.Allow(EventTypeKeyRelease))
}
