/**
 * Package keyboard 提供键盘事件的统一抽象
 *
 * 本包实现了跨平台按键模型（KeyCode / 具名按键）以及 macOS 平台的
 * 事件解码、事件编码、监听器与控制器。平台相关的原始事件由
 * internal/platform 捕获后交给本包的状态机处理。
 */
package keyboard

import (
	"fmt"
)

// VKUnset 表示 KeyCode 未携带虚拟键码
const VKUnset = -1

// KeyCode 按键代码
//
// KeyCode 是一个不可变的标签值，表示以下三者之一：
//   - 一个原始虚拟键码（VK >= 0）
//   - 一个字面字符（Char 非空）
//   - 未设置（两者皆无）
//
// IsMedia 是平台扩展属性，标记该键为媒体键（音量、播放控制等），
// 此时 VK 存放的是 NX 媒体子码而非普通虚拟键码。
// Name 仅作为具名按键的元数据，不参与相等性判断。
type KeyCode struct {
	// VK 虚拟键码，VKUnset 表示未设置
	VK int

	// Char 字面字符（解码得到的 unicode 文本），空串表示未设置
	Char string

	// IsMedia 是否为媒体键（平台扩展属性）
	IsMedia bool

	// Name 具名按键的名称（如 "alt", "media_volume_up"），仅元数据
	Name string
}

// FromVK 从虚拟键码创建 KeyCode
//
// 构造永远成功，非法键码同样可以表示，合法性由使用方关心。
//
// Parameters:
//   - vk: 虚拟键码
//
// Returns: KeyCode - 新创建的按键代码
func FromVK(vk int) KeyCode {
	return KeyCode{VK: vk, Char: ""}
}

// FromChar 从字符创建 KeyCode
//
// Parameters:
//   - ch: 字面字符
//
// Returns: KeyCode - 新创建的按键代码
func FromChar(ch string) KeyCode {
	return KeyCode{VK: VKUnset, Char: ch}
}

// FromCharVK 从字符创建 KeyCode 并附带参考虚拟键码
//
// 解码器在字符解析成功时同时记录原始虚拟键码，便于上层参考。
//
// Parameters:
//   - ch: 字面字符
//   - vk: 原始虚拟键码
//
// Returns: KeyCode - 新创建的按键代码
func FromCharVK(ch string, vk int) KeyCode {
	return KeyCode{VK: vk, Char: ch}
}

// fromMedia 从 NX 媒体子码创建媒体键
//
// 媒体键借用 VK 字段存放厂商定义的子码，并置位 IsMedia 扩展属性。
func fromMedia(vk int) KeyCode {
	return KeyCode{VK: vk, Char: "", IsMedia: true}
}

// HasVK 判断是否携带虚拟键码
func (k KeyCode) HasVK() bool {
	return k.VK != VKUnset
}

// Equal 判断两个 KeyCode 是否相等
//
// 相等性规则：
//   - 两者都携带虚拟键码时，比较键码，且 IsMedia 扩展属性必须一致
//     （媒体子码与普通虚拟键码共用数值空间，必须区分）
//   - 否则两者都携带字符时，比较字符
//   - 其余情况不相等
//
// Name 不参与比较。
//
// Parameters:
//   - other: 另一个按键代码
//
// Returns: bool - 是否相等
func (k KeyCode) Equal(other KeyCode) bool {
	if k.HasVK() && other.HasVK() {
		return k.VK == other.VK && k.IsMedia == other.IsMedia
	}
	if k.Char != "" && other.Char != "" {
		return k.Char == other.Char
	}
	return false
}

// String 返回便于日志输出的字符串表示
func (k KeyCode) String() string {
	if k.Name != "" {
		return k.Name
	}
	if k.Char != "" {
		return fmt.Sprintf("%q", k.Char)
	}
	if k.HasVK() {
		return fmt.Sprintf("<%d>", k.VK)
	}
	return "<unset>"
}

// keyID 按键查找表的键（虚拟键码 + 是否媒体键）
//
// 媒体键的子码与普通虚拟键码数值上会冲突，查找表必须以
// (vk, isMedia) 二元组为键。
type keyID struct {
	vk    int
	media bool
}

// id 返回按键在查找表中的键
func (k KeyCode) id() keyID {
	return keyID{vk: k.VK, media: k.IsMedia}
}
