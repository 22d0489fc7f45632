package keyboard

// Encode 将抽象按键编码为待投递的本机事件描述
//
// 编码永远成功：未知的字符/键码组合退化为尽力而为的事件
// （虚拟键码 0 占位 + unicode 字符串覆盖），绝不报错——
// 合成任意按键值不能让输入管线崩溃。
//
// 规则：
//   - 媒体键：构造厂商"系统定义"事件（固定子类型 8），把媒体子码
//     与 0x0a/0x0b（按下/释放）标记打包进 data1；时间戳/位置字段
//     为零值占位
//   - 非媒体键：构造标准键盘事件，虚拟键码取自按键本身或布局映射；
//     两者皆无时用键码 0 占位并附带 unicode 字符串覆盖，让系统
//     直接投递目标字符
//   - 修饰键标志按固定掩码表从 modifiers 集合按位叠加，
//     左右变体共享同一掩码
//
// Parameters:
//   - kc: 抽象按键
//   - modifiers: 当前生效的修饰键集合（可为 nil）
//   - layout: 字符到虚拟键码的布局映射（可为 nil）
//   - isPress: 按下（true）或释放（false）
//
// Returns: EventSpec - 本机事件描述
func Encode(kc KeyCode, modifiers []KeyCode, layout map[string]int, isPress bool) EventSpec {
	spec := EventSpec{
		IsPress: isPress,
		Flags:   modifierMask(modifiers),
	}

	if kc.IsMedia {
		spec.IsMedia = true
		spec.VK = kc.VK
		spec.Data1 = PackMediaData1(kc.VK, isPress)
		return spec
	}

	vk, hasVK := kc.VK, kc.HasVK()
	if !hasVK && kc.Char != "" {
		if mapped, ok := layout[kc.Char]; ok {
			vk, hasVK = mapped, true
		}
	}

	if hasVK {
		spec.VK = vk
	} else {
		// 没有键码映射时退化为键码 0 + unicode 覆盖
		spec.VK = 0
		spec.UnicodeOverride = kc.Char
	}
	return spec
}

// modifierMask 把修饰键集合折算为标志位掩码
func modifierMask(modifiers []KeyCode) uint64 {
	var mask uint64
	for _, m := range modifiers {
		if flag, ok := ModifierFlag(m); ok {
			mask |= flag
		}
	}
	return mask
}
