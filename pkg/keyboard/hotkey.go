package keyboard

import (
	"fmt"
	"strings"
)

// HotkeyModifierMask 快捷键匹配关心的修饰键标志位
//
// caps lock 锁存位等无关位在匹配时被忽略。
const HotkeyModifierMask = FlagShift | FlagControl | FlagAlternate |
	FlagCommand | FlagSecondaryFn

// modifierNameToFlag 修饰键名称到标志位的映射表
//
// 支持的修饰键名称（不区分大小写）：
//   - Cmd, Command
//   - Shift
//   - Ctrl, Control
//   - Opt, Option, Alt
//   - Fn
var modifierNameToFlag = map[string]uint64{
	"cmd":     FlagCommand,
	"command": FlagCommand,
	"shift":   FlagShift,
	"ctrl":    FlagControl,
	"control": FlagControl,
	"opt":     FlagAlternate,
	"option":  FlagAlternate,
	"alt":     FlagAlternate,
	"fn":      FlagSecondaryFn,
}

// keyNameAliases 按键名称别名表
//
// 把快捷键字符串里的常用写法归一到具名按键注册表的名称。
var keyNameAliases = map[string]string{
	"escape":   "esc",
	"return":   "enter",
	"pageup":   "page_up",
	"pagedown": "page_down",
	"capslock": "caps_lock",
}

// Hotkey 快捷键定义
//
// Hotkey 表示一个具体的快捷键组合：一个非修饰按键加一组修饰键
// 标志位。支持字符串格式解析，如 "Cmd+Shift+A"。
type Hotkey struct {
	// Key 触发按键
	Key KeyCode

	// VK 触发按键的虚拟键码（匹配时使用）
	VK int

	// Modifiers 修饰键标志位组合
	// 使用位运算组合多个修饰键，如 FlagCommand | FlagShift
	Modifiers uint64

	// repr 快捷键的规范化字符串表示
	repr string
}

// ParseHotkey 从字符串解析快捷键
//
// Parameters:
//   - s: 快捷键字符串，格式如 "Cmd+C", "Cmd+Shift+A", "Control+Option+M"。
//     分隔符为 "+"，最后一段是按键，其余段是修饰键（不区分大小写）。
//     按键段支持具名按键（"enter", "f5", "left"...）与单个字符
//     （按 ANSI US 布局解析）。
//
// Returns:
//   - *Hotkey: 快捷键对象
//   - error: 解析失败时返回错误（如格式错误、未知按键）
func ParseHotkey(s string) (*Hotkey, error) {
	if strings.TrimSpace(s) == "" {
		return nil, fmt.Errorf("快捷键字符串不能为空")
	}

	parts := strings.Split(s, "+")

	var modifiers uint64
	for i := 0; i < len(parts)-1; i++ {
		name := strings.TrimSpace(strings.ToLower(parts[i]))
		flag, ok := modifierNameToFlag[name]
		if !ok {
			return nil, fmt.Errorf("未知的修饰键: %s", parts[i])
		}
		modifiers |= flag
	}

	keyName := strings.TrimSpace(strings.ToLower(parts[len(parts)-1]))
	if keyName == "" {
		return nil, fmt.Errorf("无效的快捷键格式: %s", s)
	}
	if alias, ok := keyNameAliases[keyName]; ok {
		keyName = alias
	}

	key, err := resolveHotkeyKey(keyName)
	if err != nil {
		return nil, err
	}

	return &Hotkey{
		Key:       key,
		VK:        key.VK,
		Modifiers: modifiers,
		repr:      normalizeHotkey(s),
	}, nil
}

// resolveHotkeyKey 解析快捷键的按键段
//
// 先查具名按键注册表，再按 ANSI US 布局解析单个字符。
func resolveHotkeyKey(name string) (KeyCode, error) {
	if key, ok := KeyByName(name); ok {
		if key.IsMedia {
			return KeyCode{}, fmt.Errorf("媒体键不能用作快捷键: %s", name)
		}
		return key, nil
	}

	if vk, ok := USLayout()[name]; ok {
		return FromCharVK(name, vk), nil
	}

	return KeyCode{}, fmt.Errorf("未知的按键: %s", name)
}

// normalizeHotkey 规范化快捷键字符串（小写、去空白）
func normalizeHotkey(s string) string {
	return strings.ToLower(strings.ReplaceAll(s, " ", ""))
}

// Match 检查是否匹配给定的按键事件
//
// 虚拟键码需完全一致；修饰键标志位按 HotkeyModifierMask 掩码后
// 需完全一致，既不多也不少。
//
// Parameters:
//   - vk: 事件的虚拟键码
//   - modifiers: 事件的修饰键标志位
//
// Returns:
//   - bool: true 表示匹配
func (h *Hotkey) Match(vk int, modifiers uint64) bool {
	return h.VK == vk && modifiers&HotkeyModifierMask == h.Modifiers
}

// String 返回快捷键的规范化字符串表示
func (h *Hotkey) String() string {
	if h.repr != "" {
		return h.repr
	}
	return fmt.Sprintf("vk:%#x,modifiers:%#x", h.VK, h.Modifiers)
}
