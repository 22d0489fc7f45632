package monitor

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/chenyang-zz/keyflow/pkg/events"
	"github.com/chenyang-zz/keyflow/pkg/logger"
)

var _ Monitor = (*Engine)(nil)

// Engine 监控引擎
//
// 统一管理所有监控器的生命周期，是监控层的顶层入口。
// 当前包含键盘监控器，启动/停止状态通过事件总线广播。
type Engine struct {
	// keyboard 键盘监控器
	keyboard *KeyboardMonitor

	// eventBus 事件总线，用于发布引擎状态事件
	eventBus *events.EventBus

	// mu 读写锁，保护运行状态
	mu sync.RWMutex

	// isRunning 引擎运行状态标志
	isRunning bool
}

// NewEngine 创建监控引擎
//
// Parameters:
//   - eventBus: 事件总线实例
//   - keyboardConfig: 键盘监控器配置
//
// Returns: *Engine - 新创建的监控引擎
func NewEngine(eventBus *events.EventBus, keyboardConfig KeyboardMonitorConfig) *Engine {
	return &Engine{
		keyboard: NewKeyboardMonitor(eventBus, keyboardConfig),
		eventBus: eventBus,
	}
}

// Start 启动监控引擎
//
// 依次启动所有监控器，任何一个失败时回滚已启动的监控器。
// 启动成功后发布 status 事件。
//
// Returns: error - 引擎已在运行或监控器启动失败时返回错误
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.isRunning {
		return fmt.Errorf("监控引擎已在运行")
	}

	logger.Info("启动监控引擎")

	if err := e.keyboard.Start(); err != nil {
		return fmt.Errorf("启动键盘监控器失败: %w", err)
	}

	e.isRunning = true
	e.publishStatus("started")

	logger.Info("监控引擎启动完成")
	return nil
}

// Stop 停止监控引擎
//
// 停止所有监控器并发布 status 事件。
//
// Returns: error - 引擎未运行时返回错误
func (e *Engine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.isRunning {
		return fmt.Errorf("监控引擎未在运行")
	}

	logger.Info("停止监控引擎")

	if err := e.keyboard.Stop(); err != nil {
		logger.Error("停止键盘监控器失败", zap.Error(err))
	}

	e.isRunning = false
	e.publishStatus("stopped")

	logger.Info("监控引擎已停止")
	return nil
}

// IsRunning 检查引擎运行状态
func (e *Engine) IsRunning() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.isRunning
}

// GetKeyboardMonitor 获取键盘监控器
//
// 供外部访问键盘监控器的快捷键管理等能力。
func (e *Engine) GetKeyboardMonitor() *KeyboardMonitor {
	return e.keyboard
}

// publishStatus 发布引擎状态事件
//
// 调用方需持有 e.mu。
func (e *Engine) publishStatus(status string) {
	event := events.NewEvent(events.EventTypeStatus, map[string]interface{}{
		"status":   status,
		"monitors": []string{"keyboard"},
	})
	event.WithMetadata("source", "monitor_engine")

	if err := e.eventBus.Publish(string(events.EventTypeStatus), *event); err != nil {
		logger.Warn("发布引擎状态事件失败",
			zap.String("status", status),
			zap.Error(err),
		)
	}
}
