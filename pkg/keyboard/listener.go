package keyboard

import (
	"fmt"
	"sync"
)

// EventTap 本机事件 tap 的抽象
//
// macOS 实现持有 CGEventTap 与 run loop；其他平台为存根。
// Start 在独立线程上安装 tap 并开始泵事件，安装失败时同步返回
// 错误；每个事件经由 handler 处理，处理结果决定事件去留。
type EventTap interface {
	// Start 安装事件 tap 并开始监听
	// Parameters: handler - 每个原始事件的处理函数
	// Returns: error - 安装失败时返回错误（如缺少辅助功能权限）
	Start(handler func(RawEvent) Verdict) error

	// Stop 停止监听并释放系统资源
	// Returns: error - 未在运行时返回错误
	Stop() error

	// IsRunning 检查运行状态
	IsRunning() bool
}

// ListenerState 监听器生命周期状态
type ListenerState int

const (
	// StateCreated 已创建，尚未启动
	StateCreated ListenerState = iota

	// StateRunning 事件 tap 已安装，run loop 泵事件中
	StateRunning

	// StateStopped tap 已拆除（显式停止或平台错误）
	StateStopped
)

// ListenerOption 监听器配置选项
type ListenerOption func(*Listener)

// WithIntercept 启用事件拦截
//
// 启用后回调返回 DecisionSuppress 会真正吞掉事件；
// 未启用时回调返回值仅被记录，不影响事件传递。
func WithIntercept() ListenerOption {
	return func(l *Listener) {
		l.intercept = true
	}
}

// Listener 键盘监听器
//
// 持有本机事件 tap，驱动解码状态机，把解码结果交给用户回调，
// 并根据回调返回值决定拦截策略。
//
// 生命周期：CREATED → RUNNING → STOPPED。建立 tap 上下文时的
// 任何错误都会中止转换并让监听器停留在 STOPPED；每事件级错误
// 永远不会中断事件循环。
type Listener struct {
	// tap 本机事件 tap
	tap EventTap

	// decoder 事件解码状态机（仅监听线程访问）
	decoder *Decoder

	// intercept 是否允许回调拦截事件
	intercept bool

	// state 当前生命周期状态
	state ListenerState

	// err 会话级错误（tap 建立/维持失败）
	err error

	// done 监听结束信号
	done chan struct{}

	// mu 保护 state/err 的并发访问
	mu sync.Mutex
}

// NewListener 创建键盘监听器
//
// Parameters:
//   - tap: 本机事件 tap 实现
//   - callbacks: 用户回调
//   - opts: 配置选项
//
// Returns: *Listener - 新创建的监听器
func NewListener(tap EventTap, callbacks Callbacks, opts ...ListenerOption) *Listener {
	l := &Listener{
		tap:  tap,
		done: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.decoder = NewDecoder(callbacks, l.intercept)
	return l
}

// Start 启动监听器
//
// 安装本机事件 tap。安装失败时监听器转入 STOPPED 并返回错误；
// 成功后事件在 tap 的专属线程上被同步解码并触发回调。
//
// Returns: error - tap 建立失败时返回错误
func (l *Listener) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state == StateRunning {
		return fmt.Errorf("listener already running")
	}
	if l.state == StateStopped {
		return fmt.Errorf("listener already stopped")
	}

	if err := l.tap.Start(l.decoder.Handle); err != nil {
		l.state = StateStopped
		l.err = fmt.Errorf("建立事件 tap 失败: %w", err)
		close(l.done)
		return l.err
	}

	l.state = StateRunning
	return nil
}

// Run 启动监听器并阻塞至其停止
//
// Returns: error - 会话级错误（tap 建立/维持失败）
func (l *Listener) Run() error {
	if err := l.Start(); err != nil {
		return err
	}
	return l.Wait()
}

// Stop 停止监听器
//
// 拆除本机事件 tap 并解除 run loop 阻塞；进行中的回调会先执行
// 完毕。重复停止是安全的。
//
// Returns: error - 停止失败时返回错误
func (l *Listener) Stop() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state != StateRunning {
		return nil
	}

	err := l.tap.Stop()
	l.state = StateStopped
	close(l.done)
	return err
}

// Wait 阻塞直到监听器停止
//
// Returns: error - 会话级错误
func (l *Listener) Wait() error {
	<-l.done
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

// Running 检查监听器是否在运行
func (l *Listener) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state == StateRunning
}

// State 返回监听器当前状态
func (l *Listener) State() ListenerState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}
