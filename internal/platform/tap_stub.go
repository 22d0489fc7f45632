//go:build !darwin

package platform

import (
	"fmt"
	"sync"

	"github.com/chenyang-zz/keyflow/pkg/keyboard"
)

// StubEventTap 存根事件 tap（非 macOS 平台）
//
// StubEventTap 是 keyboard.EventTap 接口的空实现，用于非 macOS 平台。
// 该实现保存处理函数和运行状态，但不会实际捕获键盘事件。
// 这样设计允许代码在其他平台上编译通过，实现跨平台兼容性。
type StubEventTap struct {
	// handler 原始事件处理函数（在此实现中不会被调用）
	handler func(keyboard.RawEvent) keyboard.Verdict
	// isRunning 运行状态标志
	isRunning bool
	// mu 读写锁，保护并发访问
	mu sync.RWMutex
}

// NewEventTap 创建事件 tap
//
// 根据编译平台自动返回相应的 keyboard.EventTap 实现：
// - macOS 平台：返回 DarwinEventTap（完整实现）
// - 其他平台：返回 StubEventTap（空实现）
// Parameters: intercept - 是否允许回调吞掉事件（此实现中被忽略）
// Returns: keyboard.EventTap 接口实例
func NewEventTap(intercept bool) keyboard.EventTap {
	return &StubEventTap{}
}

// Start 安装事件 tap（非 macOS 实现）
//
// 只保存处理函数并设置运行状态，不会实际开始捕获键盘事件。
// Parameters: handler - 每个原始事件的处理函数
// Returns: error - 如果 tap 已在运行则返回错误
func (t *StubEventTap) Start(handler func(keyboard.RawEvent) keyboard.Verdict) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.isRunning {
		return fmt.Errorf("event tap already running")
	}

	t.handler = handler
	t.isRunning = true
	return nil
}

// Stop 停止监听（非 macOS 实现）
//
// Returns: error - 如果 tap 未运行则返回错误
func (t *StubEventTap) Stop() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.isRunning {
		return fmt.Errorf("event tap not running")
	}

	t.isRunning = false
	return nil
}

// IsRunning 检查运行状态（非 macOS 实现）
func (t *StubEventTap) IsRunning() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.isRunning
}

// StubEventPoster 存根事件投递器（非 macOS 平台）
//
// 事件合成仅在 macOS 平台上可用，此实现对所有投递请求返回错误。
type StubEventPoster struct{}

// NewEventPoster 创建事件投递器
//
// Returns: keyboard.EventPoster 接口的空实现
func NewEventPoster() keyboard.EventPoster {
	return &StubEventPoster{}
}

// Post 投递一个合成事件（非 macOS 实现）
//
// Returns: error - 始终返回错误
func (p *StubEventPoster) Post(spec keyboard.EventSpec) error {
	return fmt.Errorf("键盘事件合成仅在 macOS 平台上可用")
}

// StubLayoutProvider 存根键盘布局查询器（非 macOS 平台）
//
// 无法查询系统布局，固定返回 ANSI US 布局。
type StubLayoutProvider struct{}

// NewLayoutProvider 创建键盘布局查询器
//
// Returns: keyboard.LayoutProvider 接口的空实现
func NewLayoutProvider() keyboard.LayoutProvider {
	return &StubLayoutProvider{}
}

// Mapping 返回字符到虚拟键码的映射（非 macOS 实现）
func (p *StubLayoutProvider) Mapping() map[string]int {
	return keyboard.USLayout()
}
