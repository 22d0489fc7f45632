package keyboard

// controlSymbols 虚拟键码到符号字符的静态表（ANSI 美式布局）
//
// 当按住 Control 时系统解码出的字符是不可打印的控制字符
// （如 Ctrl+C 得到 0x03），需要借助此表折算回原字符。
// 键码来自 Carbon HIToolbox/Events.h。
var controlSymbols = map[int]string{
	0x00: "a", 0x01: "s", 0x02: "d", 0x03: "f", 0x04: "h",
	0x05: "g", 0x06: "z", 0x07: "x", 0x08: "c", 0x09: "v",
	0x0B: "b", 0x0C: "q", 0x0D: "w", 0x0E: "e", 0x0F: "r",
	0x10: "y", 0x11: "t",

	0x12: "1", 0x13: "2", 0x14: "3", 0x15: "4", 0x16: "6",
	0x17: "5", 0x19: "9", 0x1A: "7", 0x1C: "8", 0x1D: "0",

	0x18: "=", 0x1B: "-", 0x1E: "]", 0x21: "[", 0x27: "'",
	0x29: ";", 0x2A: "\\", 0x2B: ",", 0x2C: "/", 0x2F: ".",
	0x32: "`",

	0x1F: "o", 0x20: "u", 0x22: "i", 0x23: "p", 0x25: "l",
	0x26: "j", 0x28: "k", 0x2D: "n", 0x2E: "m",
}

// ControlSymbol 查询虚拟键码对应的符号字符
//
// Parameters:
//   - vk: 虚拟键码
//
// Returns:
//   - string: 符号字符
//   - bool: 是否存在
func ControlSymbol(vk int) (string, bool) {
	ch, ok := controlSymbols[vk]
	return ch, ok
}

// USLayout 返回 ANSI 美式布局的字符到虚拟键码映射
//
// 作为无法查询系统键盘布局时（非 macOS 平台、测试环境）的
// 回退映射。控制器构造时查询一次，此后视为静态。
//
// Returns: map[string]int - 字符到虚拟键码的映射
func USLayout() map[string]int {
	mapping := make(map[string]int, len(controlSymbols)+1)
	for vk, ch := range controlSymbols {
		mapping[ch] = vk
	}
	mapping[" "] = KeySpace.VK
	return mapping
}

// modifierFlags 修饰键虚拟键码到标志位掩码的静态表
//
// 左右变体共享同一掩码。caps lock 不在此表中，它通过
// 锁存位跳变检测单独处理。
var modifierFlags = map[int]uint64{
	0x3A: FlagAlternate, // alt / alt_l
	0x3D: FlagAlternate, // alt_r / alt_gr
	0x37: FlagCommand,   // cmd / cmd_l
	0x36: FlagCommand,   // cmd_r
	0x3B: FlagControl,   // ctrl / ctrl_l
	0x3E: FlagControl,   // ctrl_r
	0x38: FlagShift,     // shift / shift_l
	0x3C: FlagShift,     // shift_r
	0x3F: FlagSecondaryFn,
}

// ModifierFlag 查询按键对应的修饰键标志位掩码
//
// Parameters:
//   - kc: 按键代码
//
// Returns:
//   - uint64: 标志位掩码
//   - bool: 该键是否为修饰键（caps lock 除外）
func ModifierFlag(kc KeyCode) (uint64, bool) {
	if !kc.HasVK() || kc.IsMedia {
		return 0, false
	}
	flag, ok := modifierFlags[kc.VK]
	return flag, ok
}
