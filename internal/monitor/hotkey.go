package monitor

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chenyang-zz/keyflow/pkg/events"
	"github.com/chenyang-zz/keyflow/pkg/keyboard"
	"github.com/chenyang-zz/keyflow/pkg/logger"
)

// HotkeyCallback 快捷键回调函数类型
//
// 当快捷键被触发时调用此函数。
// 回调函数在独立的 goroutine 中执行，避免阻塞事件处理流程。
//
// Parameters:
//   - registration: 快捷键注册信息，包含 ID 和快捷键定义
type HotkeyCallback func(registration *HotkeyRegistration)

// HotkeyRegistration 快捷键注册信息
//
// 表示一个已注册的快捷键及其处理逻辑。
type HotkeyRegistration struct {
	// ID 注册唯一标识符，用于取消注册
	ID string

	// Hotkey 快捷键定义
	Hotkey *keyboard.Hotkey

	// Callback 快捷键触发时的回调函数
	// 在独立的 goroutine 中执行，避免阻塞事件处理
	Callback HotkeyCallback

	// Enabled 快捷键是否启用
	// 可以通过 SetEnabled 动态切换
	Enabled bool
}

// HotkeyManager 快捷键管理器
//
// 负责快捷键的注册、匹配和生命周期管理。
//
// 工作流程：
//  1. 通过 Register 方法注册快捷键
//  2. 从事件总线订阅按键按下事件
//  3. 收到按键事件时，按 (vk, modifiers) 索引查找匹配的注册
//  4. 匹配成功时触发回调函数，并发布 hotkey 事件到总线
type HotkeyManager struct {
	// registrations 已注册的快捷键映射
	// key: 快捷键的规范化字符串（如 "cmd+shift+a"）
	// value: 该快捷键的注册列表（支持同一快捷键多个回调）
	registrations map[string][]*HotkeyRegistration

	// lookupIndex 快捷键索引（加速匹配）
	// key: vk 与掩码后 modifiers 的组合（高 32 位 vk，低 32 位 modifiers）
	lookupIndex map[uint64][]*HotkeyRegistration

	// eventBus 事件总线，用于订阅按键事件和发布触发事件
	eventBus *events.EventBus

	// subscription 事件总线的订阅 ID，用于取消订阅
	subscription string

	// mu 读写锁，保护并发访问
	mu sync.RWMutex

	// isRunning 管理器运行状态标志
	isRunning bool
}

// NewHotkeyManager 创建快捷键管理器
//
// Parameters:
//   - eventBus: 事件总线实例
//
// Returns: *HotkeyManager - 新创建的快捷键管理器
func NewHotkeyManager(eventBus *events.EventBus) *HotkeyManager {
	return &HotkeyManager{
		registrations: make(map[string][]*HotkeyRegistration),
		lookupIndex:   make(map[uint64][]*HotkeyRegistration),
		eventBus:      eventBus,
	}
}

// Register 注册快捷键
//
// 注册一个新的快捷键及其回调函数。同一快捷键可以有多个回调，
// 触发时会按注册顺序依次调用。
//
// Parameters:
//   - hotkeyStr: 快捷键字符串，格式如 "Cmd+Shift+A"
//   - callback: 快捷键触发时的回调函数
//
// Returns:
//   - string: 注册 ID，用于 Unregister 取消注册
//   - error: 快捷键格式错误时返回错误
func (hm *HotkeyManager) Register(hotkeyStr string, callback HotkeyCallback) (string, error) {
	hotkey, err := keyboard.ParseHotkey(hotkeyStr)
	if err != nil {
		logger.Warn("解析快捷键失败",
			zap.String("hotkey", hotkeyStr),
			zap.Error(err),
		)
		return "", err
	}

	hm.mu.Lock()
	defer hm.mu.Unlock()

	reg := &HotkeyRegistration{
		ID:       fmt.Sprintf("hotkey-%s", uuid.New().String()),
		Hotkey:   hotkey,
		Callback: callback,
		Enabled:  true,
	}

	normalizedKey := hotkey.String()
	hm.registrations[normalizedKey] = append(hm.registrations[normalizedKey], reg)

	lookupKey := buildLookupKey(hotkey.VK, hotkey.Modifiers)
	hm.lookupIndex[lookupKey] = append(hm.lookupIndex[lookupKey], reg)

	logger.Info("注册快捷键",
		zap.String("hotkey", normalizedKey),
		zap.String("id", reg.ID),
	)

	return reg.ID, nil
}

// Unregister 取消注册快捷键
//
// 根据 ID 取消注册。如果该快捷键有多个回调，只删除指定的回调。
//
// Parameters:
//   - registrationID: 注册 ID（由 Register 返回）
//
// Returns:
//   - bool: true 表示成功取消注册，false 表示 ID 不存在
func (hm *HotkeyManager) Unregister(registrationID string) bool {
	hm.mu.Lock()
	defer hm.mu.Unlock()

	for normalizedKey, regs := range hm.registrations {
		for i, reg := range regs {
			if reg.ID != registrationID {
				continue
			}

			if len(regs) == 1 {
				delete(hm.registrations, normalizedKey)
			} else {
				hm.registrations[normalizedKey] = append(regs[:i], regs[i+1:]...)
			}

			lookupKey := buildLookupKey(reg.Hotkey.VK, reg.Hotkey.Modifiers)
			indexRegs := hm.lookupIndex[lookupKey]
			for j, indexReg := range indexRegs {
				if indexReg.ID == registrationID {
					if len(indexRegs) == 1 {
						delete(hm.lookupIndex, lookupKey)
					} else {
						hm.lookupIndex[lookupKey] = append(indexRegs[:j], indexRegs[j+1:]...)
					}
					break
				}
			}

			logger.Info("取消注册快捷键",
				zap.String("id", registrationID),
				zap.String("hotkey", normalizedKey),
			)
			return true
		}
	}

	logger.Debug("快捷键注册不存在", zap.String("id", registrationID))
	return false
}

// UnregisterAll 取消所有快捷键注册
func (hm *HotkeyManager) UnregisterAll() {
	hm.mu.Lock()
	defer hm.mu.Unlock()

	hm.registrations = make(map[string][]*HotkeyRegistration)
	hm.lookupIndex = make(map[uint64][]*HotkeyRegistration)
}

// IsRegistered 检查快捷键是否已注册
//
// Parameters:
//   - hotkeyStr: 快捷键字符串
//
// Returns:
//   - bool: true 表示已注册
func (hm *HotkeyManager) IsRegistered(hotkeyStr string) bool {
	hotkey, err := keyboard.ParseHotkey(hotkeyStr)
	if err != nil {
		return false
	}

	hm.mu.RLock()
	defer hm.mu.RUnlock()

	_, exists := hm.registrations[hotkey.String()]
	return exists
}

// SetEnabled 启用/禁用快捷键
//
// 禁用后的快捷键不会被触发，但仍保留注册。
//
// Parameters:
//   - registrationID: 注册 ID
//   - enabled: true 启用，false 禁用
//
// Returns:
//   - bool: true 表示成功，false 表示 ID 不存在
func (hm *HotkeyManager) SetEnabled(registrationID string, enabled bool) bool {
	hm.mu.Lock()
	defer hm.mu.Unlock()

	for _, regs := range hm.registrations {
		for _, reg := range regs {
			if reg.ID == registrationID {
				reg.Enabled = enabled
				return true
			}
		}
	}
	return false
}

// GetRegisteredHotkeys 获取所有已注册的快捷键列表
//
// Returns:
//   - []string: 规范化的快捷键字符串列表
func (hm *HotkeyManager) GetRegisteredHotkeys() []string {
	hm.mu.RLock()
	defer hm.mu.RUnlock()

	hotkeys := make([]string, 0, len(hm.registrations))
	for normalizedKey := range hm.registrations {
		hotkeys = append(hotkeys, normalizedKey)
	}
	return hotkeys
}

// Start 启动快捷键管理器
//
// 订阅按键按下事件，开始匹配和触发快捷键。幂等。
//
// Returns: error - 启动失败时返回错误
func (hm *HotkeyManager) Start() error {
	hm.mu.Lock()
	defer hm.mu.Unlock()

	if hm.isRunning {
		return nil
	}

	hm.subscription = hm.eventBus.Subscribe(
		string(events.EventTypeKeyPress), hm.handleKeyEvent)
	hm.isRunning = true
	return nil
}

// Stop 停止快捷键管理器
//
// 取消订阅按键事件。不清空已注册的快捷键，可以重新 Start。
//
// Returns: error - 停止失败时返回错误
func (hm *HotkeyManager) Stop() error {
	hm.mu.Lock()
	defer hm.mu.Unlock()

	if !hm.isRunning {
		return nil
	}

	if hm.subscription != "" {
		hm.eventBus.Unsubscribe(hm.subscription)
		hm.subscription = ""
	}
	hm.isRunning = false
	return nil
}

// IsRunning 检查运行状态
func (hm *HotkeyManager) IsRunning() bool {
	hm.mu.RLock()
	defer hm.mu.RUnlock()
	return hm.isRunning
}

// buildLookupKey 构造快速查找键
//
// 高 32 位存储 vk，低 32 位存储掩码后的修饰键标志位。
func buildLookupKey(vk int, modifiers uint64) uint64 {
	return uint64(vk)<<32 | (modifiers & keyboard.HotkeyModifierMask)
}

// handleKeyEvent 处理按键按下事件
//
// 订阅事件的回调函数，负责：
//  1. 从事件中提取 vk 和 modifiers
//  2. 构造快速查找键并查找匹配的注册
//  3. 触发所有匹配的快捷键回调
//  4. 发布 hotkey 事件到总线
//
// Parameters:
//   - event: 按键事件
//
// Returns: error - 处理失败时返回错误
func (hm *HotkeyManager) handleKeyEvent(event events.Event) error {
	vk, ok := event.Data["vk"].(int)
	if !ok {
		return nil // 无效事件，忽略
	}

	modifiers, ok := event.Data["modifiers"].(uint64)
	if !ok {
		return nil // 无效事件，忽略
	}

	lookupKey := buildLookupKey(vk, modifiers)

	hm.mu.RLock()
	registrations := hm.lookupIndex[lookupKey]
	hm.mu.RUnlock()

	if len(registrations) == 0 {
		return nil
	}

	for _, reg := range registrations {
		if !reg.Enabled {
			continue
		}

		logger.Info("快捷键被触发",
			zap.String("hotkey", reg.Hotkey.String()),
			zap.String("id", reg.ID),
		)

		// 发布触发事件到总线
		data := events.HotkeyEventData{
			Hotkey: reg.Hotkey.String(),
			ID:     reg.ID,
		}
		hotkeyEvent := events.NewEvent(events.EventTypeHotkey, data.ToMap())
		_ = hm.eventBus.Publish(string(events.EventTypeHotkey), *hotkeyEvent)

		// 在独立的 goroutine 中执行回调，避免阻塞
		go func(r *HotkeyRegistration) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("快捷键回调 panic",
						zap.String("id", r.ID),
						zap.Any("panic", rec),
					)
				}
			}()
			r.Callback(r)
		}(reg)
	}

	return nil
}
