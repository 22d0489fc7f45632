/**
 * Package events 提供事件系统的核心类型定义
 *
 * 事件系统是 keyflow 内部的通信机制，用于：
 * - 监听层发布解码后的按键事件
 * - 快捷键管理器与持久化层订阅和处理事件
 */

package events

import (
	"time"

	"github.com/google/uuid"
)

/**
 * EventType 事件类型枚举
 */
type EventType string

/**
 * 所有事件类型常量
 */
const (
	// 按键事件
	EventTypeKeyPress   EventType = "key_press"   // 按键按下
	EventTypeKeyRelease EventType = "key_release" // 按键释放
	EventTypeHotkey     EventType = "hotkey"      // 快捷键触发

	// 系统事件
	EventTypeError  EventType = "error"  // 错误事件
	EventTypeStatus EventType = "status" // 状态事件
)

/**
 * Event 统一事件结构
 *
 * 监听层和系统事件都使用此结构
 */
type Event struct {
	// ID 事件唯一标识符
	ID string `json:"id"`

	// Type 事件类型
	Type EventType `json:"type"`

	// Timestamp 事件发生时间
	Timestamp time.Time `json:"timestamp"`

	// Data 事件数据（类型特定的数据）
	Data map[string]interface{} `json:"data"`

	// Metadata 事件元数据（可选的额外信息）
	Metadata map[string]string `json:"metadata,omitempty"`
}

/**
 * NewEvent 创建新事件
 *
 * Parameters:
 *   - eventType: 事件类型
 *   - data: 事件数据
 *
 * Returns:
 *   - *Event: 新创建的事件
 */
func NewEvent(eventType EventType, data map[string]interface{}) *Event {
	return &Event{
		ID:        generateEventID(),
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
		Metadata:  make(map[string]string),
	}
}

/**
 * WithMetadata 添加元数据
 *
 * Parameters:
 *   - key: 元数据键
 *   - value: 元数据值
 *
 * Returns:
 *   - *Event: 返回自身，支持链式调用
 */
func (e *Event) WithMetadata(key, value string) *Event {
	if e.Metadata == nil {
		e.Metadata = make(map[string]string)
	}
	e.Metadata[key] = value
	return e
}

/**
 * generateEventID 生成事件唯一 ID
 *
 * 使用 UUID v4 确保全局唯一性
 *
 * Returns:
 *   - string: UUID 字符串
 */
func generateEventID() string {
	return uuid.New().String()
}

/**
 * KeyEventData 按键事件数据
 */
type KeyEventData struct {
	Key       string `json:"key"`       // 具名按键名称（无名时为空）
	Char      string `json:"char"`      // 字面字符（无字符时为空）
	VK        int    `json:"vk"`        // 虚拟键码（未设置时为 -1）
	IsMedia   bool   `json:"is_media"`  // 是否媒体键
	Modifiers uint64 `json:"modifiers"` // 事件时刻的修饰键标志位
}

/**
 * ToMap 转换为事件数据映射
 *
 * Returns:
 *   - map[string]interface{}: 事件数据
 */
func (d KeyEventData) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"key":       d.Key,
		"char":      d.Char,
		"vk":        d.VK,
		"is_media":  d.IsMedia,
		"modifiers": d.Modifiers,
	}
}

/**
 * HotkeyEventData 快捷键触发事件数据
 */
type HotkeyEventData struct {
	Hotkey string `json:"hotkey"` // 快捷键字符串表示
	ID     string `json:"id"`     // 注册 ID
}

/**
 * ToMap 将快捷键事件数据转换为事件 Data 字段
 */
func (d HotkeyEventData) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"hotkey": d.Hotkey,
		"id":     d.ID,
	}
}
