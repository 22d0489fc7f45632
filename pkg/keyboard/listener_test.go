package keyboard

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTap 假事件 tap：记录处理函数并允许测试注入事件
type fakeTap struct {
	handler  func(RawEvent) Verdict
	startErr error
	running  bool
	mu       sync.Mutex
}

func (f *fakeTap) Start(handler func(RawEvent) Verdict) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return f.startErr
	}
	f.handler = handler
	f.running = true
	return nil
}

func (f *fakeTap) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.running = false
	return nil
}

func (f *fakeTap) IsRunning() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running
}

// inject 模拟本机事件到达
func (f *fakeTap) inject(ev RawEvent) Verdict {
	f.mu.Lock()
	handler := f.handler
	f.mu.Unlock()
	return handler(ev)
}

// TestListener_Lifecycle CREATED → RUNNING → STOPPED 状态转换
func TestListener_Lifecycle(t *testing.T) {
	tap := &fakeTap{}
	l := NewListener(tap, Callbacks{})

	assert.Equal(t, StateCreated, l.State())
	assert.False(t, l.Running())

	require.NoError(t, l.Start())
	assert.Equal(t, StateRunning, l.State())
	assert.True(t, l.Running())
	assert.True(t, tap.IsRunning())

	// 重复启动报错
	assert.Error(t, l.Start())

	require.NoError(t, l.Stop())
	assert.Equal(t, StateStopped, l.State())
	assert.False(t, tap.IsRunning())

	// 重复停止是安全的
	assert.NoError(t, l.Stop())

	// 停止后不能再启动
	assert.Error(t, l.Start())
}

// TestListener_TapSetupFailure tap 建立失败时中止转换并停留在 STOPPED
func TestListener_TapSetupFailure(t *testing.T) {
	tap := &fakeTap{startErr: errors.New("no accessibility permission")}
	l := NewListener(tap, Callbacks{})

	err := l.Start()
	require.Error(t, err)
	assert.Equal(t, StateStopped, l.State())

	// 会话级错误同样通过 Wait 暴露
	assert.Error(t, l.Wait())
}

// TestListener_Dispatch 事件经过解码后触发回调
func TestListener_Dispatch(t *testing.T) {
	tap := &fakeTap{}
	var pressed []*KeyCode
	l := NewListener(tap, Callbacks{
		OnPress: func(key *KeyCode) Decision {
			pressed = append(pressed, key)
			return DecisionAllow
		},
	})
	require.NoError(t, l.Start())

	verdict := tap.inject(RawEvent{Type: EventKeyDown, VK: 0x00, Chars: "a"})
	assert.True(t, verdict.Handled)
	assert.False(t, verdict.Suppress)
	require.Len(t, pressed, 1)
	assert.Equal(t, "a", pressed[0].Char)
}

// TestListener_InterceptOption 仅启用拦截时回调的拦截请求才生效
func TestListener_InterceptOption(t *testing.T) {
	suppressAll := Callbacks{
		OnPress: func(key *KeyCode) Decision { return DecisionSuppress },
	}

	tap := &fakeTap{}
	plain := NewListener(tap, suppressAll)
	require.NoError(t, plain.Start())
	assert.False(t, tap.inject(RawEvent{Type: EventKeyDown, VK: 0x00}).Suppress)

	tap2 := &fakeTap{}
	intercepting := NewListener(tap2, suppressAll, WithIntercept())
	require.NoError(t, intercepting.Start())
	assert.True(t, tap2.inject(RawEvent{Type: EventKeyDown, VK: 0x00}).Suppress)
}

// TestListener_RunBlocksUntilStop Run 阻塞到 Stop 被调用
func TestListener_RunBlocksUntilStop(t *testing.T) {
	tap := &fakeTap{}
	l := NewListener(tap, Callbacks{})

	done := make(chan error, 1)
	go func() {
		done <- l.Run()
	}()

	// 等监听器进入 RUNNING 后停止
	require.Eventually(t, l.Running, time.Second, time.Millisecond)
	require.NoError(t, l.Stop())
	assert.NoError(t, <-done)
}
