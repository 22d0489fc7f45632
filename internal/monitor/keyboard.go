package monitor

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/chenyang-zz/keyflow/internal/platform"
	"github.com/chenyang-zz/keyflow/pkg/events"
	"github.com/chenyang-zz/keyflow/pkg/keyboard"
	"github.com/chenyang-zz/keyflow/pkg/logger"
)

// KeyboardMonitorConfig 键盘监控器配置
type KeyboardMonitorConfig struct {
	// Intercept 是否以拦截模式安装事件 tap
	// 拦截模式下 SuppressHotkeys 命中的组合键会被吞掉
	Intercept bool

	// SuppressHotkeys 需要吞掉的快捷键列表（如 ["Cmd+Shift+K"]）
	// 仅在 Intercept 为 true 时生效
	SuppressHotkeys []string

	// MaxEventsPerSecond 每秒发布到总线的按键事件上限（0 表示不限制）
	// 用于抑制按键自动重复造成的事件洪峰
	MaxEventsPerSecond int
}

// KeyboardMonitor 键盘监控器（业务层）
//
// 负责键盘输入的监控和事件处理。本监控器采用分层架构：
//   - 业务层（本结构体）：解码回调、速率过滤、发布到事件总线
//   - 模型层（pkg/keyboard）：监听器生命周期与事件解码状态机
//   - 平台层（internal/platform）：与操作系统交互，捕获底层键盘事件
//
// 工作流程：
//  1. 平台层 tap 捕获原始键盘事件
//  2. 解码器把事件翻译为按键并触发按下/释放回调
//  3. 业务层维护修饰键快照、应用速率过滤
//  4. 构造业务事件发布到事件总线供其他模块消费
//
// 实现 Monitor 接口。
type KeyboardMonitor struct {
	// listener 键盘监听器，驱动平台层 tap 与解码器
	listener *keyboard.Listener

	// eventBus 事件总线，用于发布键盘事件
	eventBus *events.EventBus

	// filter 事件过滤管理器，抑制自动重复洪峰
	filter *events.EventFilterManager

	// hotkeyManager 快捷键管理器，用于快捷键注册和匹配
	hotkeyManager *HotkeyManager

	// suppressed 拦截模式下需要吞掉的组合键
	suppressed []*keyboard.Hotkey

	// modifiers 当前修饰键标志位快照
	modifiers uint64

	// isRunning 监控器运行状态标志
	isRunning bool

	// mu 读写锁，保护并发访问
	mu sync.RWMutex
}

// NewKeyboardMonitor 创建键盘监控器
//
// 创建监控器实例并装配平台层 tap、解码回调与快捷键管理器。
//
// Parameters:
//   - eventBus: 事件总线实例，用于发布键盘事件
//   - config: 监控器配置
//
// Returns: *KeyboardMonitor - 新创建的键盘监控器实例
func NewKeyboardMonitor(eventBus *events.EventBus, config KeyboardMonitorConfig) *KeyboardMonitor {
	return newKeyboardMonitor(platform.NewEventTap(config.Intercept), eventBus, config)
}

// newKeyboardMonitor 用指定的事件 tap 装配监控器（测试注入点）
func newKeyboardMonitor(tap keyboard.EventTap, eventBus *events.EventBus, config KeyboardMonitorConfig) *KeyboardMonitor {
	km := &KeyboardMonitor{
		eventBus:      eventBus,
		filter:        events.NewEventFilterManager(),
		hotkeyManager: NewHotkeyManager(eventBus),
	}

	if config.MaxEventsPerSecond > 0 {
		rule := &events.FilterRule{MaxPerSecond: config.MaxEventsPerSecond}
		km.filter.SetRule(events.EventTypeKeyPress, rule)
		km.filter.SetRule(events.EventTypeKeyRelease, rule)
	}

	if config.Intercept {
		for _, s := range config.SuppressHotkeys {
			hk, err := keyboard.ParseHotkey(s)
			if err != nil {
				logger.Warn("忽略无法解析的拦截快捷键",
					zap.String("component", "keyboard"),
					zap.String("hotkey", s),
					zap.Error(err),
				)
				continue
			}
			km.suppressed = append(km.suppressed, hk)
		}
	}

	callbacks := keyboard.Callbacks{
		OnPress:   km.onPress,
		OnRelease: km.onRelease,
	}

	var opts []keyboard.ListenerOption
	if config.Intercept {
		opts = append(opts, keyboard.WithIntercept())
	}
	km.listener = keyboard.NewListener(tap, callbacks, opts...)

	return km
}

// Start 启动键盘监控
//
// 启动监听器安装事件 tap，并启动快捷键管理器。
// 如果监控器已经在运行，则幂等地返回成功。
//
// Returns: error - 启动失败时返回错误（如缺少系统权限）
func (km *KeyboardMonitor) Start() error {
	km.mu.Lock()
	defer km.mu.Unlock()

	if km.isRunning {
		logger.Debug("键盘监控器已在运行", zap.String("component", "keyboard"))
		return nil
	}

	logger.Info("启动键盘监控器", zap.String("component", "keyboard"))

	if err := km.listener.Start(); err != nil {
		logger.Error("启动键盘监听器失败",
			zap.String("component", "keyboard"),
			zap.Error(err),
		)
		return err
	}

	// 启动快捷键管理器，失败不影响主监控器
	if err := km.hotkeyManager.Start(); err != nil {
		logger.Warn("快捷键管理器启动失败，但不影响键盘监控",
			zap.String("component", "keyboard"),
			zap.Error(err),
		)
	}

	km.isRunning = true
	logger.Info("键盘监控器启动成功", zap.String("component", "keyboard"))
	return nil
}

// Stop 停止键盘监控
//
// 停止监听器拆除事件 tap 并释放相关资源。
// 如果监控器未运行，则幂等地返回成功。
//
// Returns: error - 停止失败时返回错误
func (km *KeyboardMonitor) Stop() error {
	km.mu.Lock()
	defer km.mu.Unlock()

	if !km.isRunning {
		logger.Debug("键盘监控器未运行", zap.String("component", "keyboard"))
		return nil
	}

	logger.Info("停止键盘监控器", zap.String("component", "keyboard"))

	_ = km.hotkeyManager.Stop()

	if err := km.listener.Stop(); err != nil {
		logger.Error("停止键盘监听器失败",
			zap.String("component", "keyboard"),
			zap.Error(err),
		)
		return err
	}

	km.isRunning = false
	logger.Info("键盘监控器已停止", zap.String("component", "keyboard"))
	return nil
}

// IsRunning 检查运行状态
//
// Returns: bool - true 表示正在运行
func (km *KeyboardMonitor) IsRunning() bool {
	km.mu.RLock()
	defer km.mu.RUnlock()
	return km.isRunning
}

// GetHotkeyManager 获取快捷键管理器
//
// 返回监控器管理的快捷键管理器实例，可用于注册和取消注册快捷键。
//
// Returns: *HotkeyManager - 快捷键管理器实例
func (km *KeyboardMonitor) GetHotkeyManager() *HotkeyManager {
	return km.hotkeyManager
}

// onPress 处理按键按下回调
//
// 在监听线程上同步执行：更新修饰键快照、判定拦截、发布业务事件。
func (km *KeyboardMonitor) onPress(key *keyboard.KeyCode) keyboard.Decision {
	if key == nil {
		// 解码失败的事件只记录，不中断监听
		logger.Debug("忽略无法解码的按键事件", zap.String("component", "keyboard"))
		return keyboard.DecisionAllow
	}

	km.mu.Lock()
	if flag, ok := keyboard.ModifierFlag(*key); ok {
		km.modifiers |= flag
	}
	modifiers := km.modifiers
	km.mu.Unlock()

	decision := keyboard.DecisionAllow
	if key.HasVK() && !key.IsMedia && km.matchSuppressed(key.VK, modifiers) {
		decision = keyboard.DecisionSuppress
	}

	km.publishKeyEvent(events.EventTypeKeyPress, key, modifiers)
	return decision
}

// onRelease 处理按键释放回调
func (km *KeyboardMonitor) onRelease(key *keyboard.KeyCode) keyboard.Decision {
	if key == nil {
		logger.Debug("忽略无法解码的按键事件", zap.String("component", "keyboard"))
		return keyboard.DecisionAllow
	}

	km.mu.Lock()
	if flag, ok := keyboard.ModifierFlag(*key); ok {
		km.modifiers &^= flag
	}
	modifiers := km.modifiers
	km.mu.Unlock()

	decision := keyboard.DecisionAllow
	if key.HasVK() && !key.IsMedia && km.matchSuppressed(key.VK, modifiers) {
		decision = keyboard.DecisionSuppress
	}

	km.publishKeyEvent(events.EventTypeKeyRelease, key, modifiers)
	return decision
}

// matchSuppressed 检查组合键是否命中拦截列表
func (km *KeyboardMonitor) matchSuppressed(vk int, modifiers uint64) bool {
	for _, hk := range km.suppressed {
		if hk.Match(vk, modifiers) {
			logger.Info("吞掉拦截快捷键",
				zap.String("component", "keyboard"),
				zap.String("hotkey", hk.String()),
			)
			return true
		}
	}
	return false
}

// publishKeyEvent 构造业务事件并发布到事件总线
//
// 通过速率过滤抑制按键自动重复造成的事件洪峰。
func (km *KeyboardMonitor) publishKeyEvent(eventType events.EventType, key *keyboard.KeyCode, modifiers uint64) {
	if !km.filter.Allow(eventType) {
		return
	}

	data := events.KeyEventData{
		Key:       key.Name,
		Char:      key.Char,
		VK:        key.VK,
		IsMedia:   key.IsMedia,
		Modifiers: modifiers,
	}

	event := events.NewEvent(eventType, data.ToMap())
	event.WithMetadata("source", "keyboard_monitor")
	event.WithMetadata("captured_at", time.Now().Format(time.RFC3339Nano))

	if err := km.eventBus.Publish(string(eventType), *event); err != nil {
		logger.Error("发布键盘事件失败",
			zap.String("component", "keyboard"),
			zap.Error(err),
		)
	}
}
