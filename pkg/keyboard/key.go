package keyboard

// NX 媒体键子码（来自 hidsystem/ev_keymap.h）
const (
	NXKeyTypeSoundUp   = 0
	NXKeyTypeSoundDown = 1
	NXKeyTypeMute      = 7
	NXKeyTypePlay      = 16
	NXKeyTypeNext      = 17
	NXKeyTypePrevious  = 18
)

// 具名按键（macOS 虚拟键码空间）
//
// 进程级不可变常量集合，启动时从字面量表构造一次。
// 左右变体（alt_l/alt_r 等）各自携带独立键码，但在修饰键
// 标志位表中共享同一掩码。
var (
	KeyAlt      = named("alt", 0x3A)
	KeyAltL     = named("alt_l", 0x3A)
	KeyAltR     = named("alt_r", 0x3D)
	KeyAltGr    = named("alt_gr", 0x3D)
	KeyBackspace = named("backspace", 0x33)
	KeyCapsLock = named("caps_lock", 0x39)
	KeyCmd      = named("cmd", 0x37)
	KeyCmdL     = named("cmd_l", 0x37)
	KeyCmdR     = named("cmd_r", 0x36)
	KeyCtrl     = named("ctrl", 0x3B)
	KeyCtrlL    = named("ctrl_l", 0x3B)
	KeyCtrlR    = named("ctrl_r", 0x3E)
	KeyDelete   = named("delete", 0x75)
	KeyDown     = named("down", 0x7D)
	KeyEnd      = named("end", 0x77)
	KeyEnter    = named("enter", 0x24)
	KeyEsc      = named("esc", 0x35)
	KeyF1       = named("f1", 0x7A)
	KeyF2       = named("f2", 0x78)
	KeyF3       = named("f3", 0x63)
	KeyF4       = named("f4", 0x76)
	KeyF5       = named("f5", 0x60)
	KeyF6       = named("f6", 0x61)
	KeyF7       = named("f7", 0x62)
	KeyF8       = named("f8", 0x64)
	KeyF9       = named("f9", 0x65)
	KeyF10      = named("f10", 0x6D)
	KeyF11      = named("f11", 0x67)
	KeyF12      = named("f12", 0x6F)
	KeyF13      = named("f13", 0x69)
	KeyF14      = named("f14", 0x6B)
	KeyF15      = named("f15", 0x71)
	KeyF16      = named("f16", 0x6A)
	KeyF17      = named("f17", 0x40)
	KeyF18      = named("f18", 0x4F)
	KeyF19      = named("f19", 0x50)
	KeyF20      = named("f20", 0x5A)
	KeyHome     = named("home", 0x73)
	KeyLeft     = named("left", 0x7B)
	KeyPageDown = named("page_down", 0x79)
	KeyPageUp   = named("page_up", 0x74)
	KeyRight    = named("right", 0x7C)
	KeyShift    = named("shift", 0x38)
	KeyShiftL   = named("shift_l", 0x38)
	KeyShiftR   = named("shift_r", 0x3C)
	KeySpace    = namedChar("space", 0x31, " ")
	KeyTab      = named("tab", 0x30)
	KeyUp       = named("up", 0x7E)
	KeyFn       = named("fn", 0x3F)

	KeyMediaPlayPause  = namedMedia("media_play_pause", NXKeyTypePlay)
	KeyMediaVolumeMute = namedMedia("media_volume_mute", NXKeyTypeMute)
	KeyMediaVolumeDown = namedMedia("media_volume_down", NXKeyTypeSoundDown)
	KeyMediaVolumeUp   = namedMedia("media_volume_up", NXKeyTypeSoundUp)
	KeyMediaPrevious   = namedMedia("media_previous", NXKeyTypePrevious)
	KeyMediaNext       = namedMedia("media_next", NXKeyTypeNext)
)

// allKeys 全部具名按键（注册顺序即声明顺序）
var allKeys = []KeyCode{
	KeyAlt, KeyAltL, KeyAltR, KeyAltGr,
	KeyBackspace, KeyCapsLock,
	KeyCmd, KeyCmdL, KeyCmdR,
	KeyCtrl, KeyCtrlL, KeyCtrlR,
	KeyDelete, KeyDown, KeyEnd, KeyEnter, KeyEsc,
	KeyF1, KeyF2, KeyF3, KeyF4, KeyF5, KeyF6, KeyF7, KeyF8, KeyF9, KeyF10,
	KeyF11, KeyF12, KeyF13, KeyF14, KeyF15, KeyF16, KeyF17, KeyF18, KeyF19, KeyF20,
	KeyHome, KeyLeft, KeyPageDown, KeyPageUp, KeyRight,
	KeyShift, KeyShiftL, KeyShiftR,
	KeySpace, KeyTab, KeyUp, KeyFn,
	KeyMediaPlayPause, KeyMediaVolumeMute, KeyMediaVolumeDown,
	KeyMediaVolumeUp, KeyMediaPrevious, KeyMediaNext,
}

// specialKeys 按 (vk, isMedia) 查找具名按键的表
//
// 普通具名键和媒体键统一通过此表解析。同一 (vk, isMedia) 的
// 左右变体（如 alt 与 alt_l）保留先注册者。
var specialKeys map[keyID]KeyCode

// keysByName 按名称查找具名按键的表
var keysByName map[string]KeyCode

func init() {
	specialKeys = make(map[keyID]KeyCode, len(allKeys))
	keysByName = make(map[string]KeyCode, len(allKeys))
	for _, key := range allKeys {
		if _, ok := specialKeys[key.id()]; !ok {
			specialKeys[key.id()] = key
		}
		keysByName[key.Name] = key
	}
}

// named 构造普通具名按键
func named(name string, vk int) KeyCode {
	return KeyCode{VK: vk, Name: name}
}

// namedChar 构造携带字符的具名按键（如 space）
func namedChar(name string, vk int, ch string) KeyCode {
	return KeyCode{VK: vk, Char: ch, Name: name}
}

// namedMedia 构造具名媒体键
func namedMedia(name string, vk int) KeyCode {
	kc := fromMedia(vk)
	kc.Name = name
	return kc
}

// KeyByName 按名称查找具名按键
//
// Parameters:
//   - name: 按键名称（如 "alt", "f1", "media_volume_up"）
//
// Returns:
//   - KeyCode: 查找到的按键
//   - bool: 是否存在
func KeyByName(name string) (KeyCode, bool) {
	key, ok := keysByName[name]
	return key, ok
}

// SpecialKey 按 (vk, isMedia) 查找具名按键
//
// Parameters:
//   - vk: 虚拟键码（媒体键时为 NX 子码）
//   - isMedia: 是否媒体键
//
// Returns:
//   - KeyCode: 查找到的按键
//   - bool: 是否存在
func SpecialKey(vk int, isMedia bool) (KeyCode, bool) {
	key, ok := specialKeys[keyID{vk: vk, media: isMedia}]
	return key, ok
}

// Keys 返回全部具名按键的副本
func Keys() []KeyCode {
	out := make([]KeyCode, len(allKeys))
	copy(out, allKeys)
	return out
}
