package keyboard

// EventType 原始事件类型（CGEventType / NSEventType 数值空间）
type EventType uint32

// 监听器关心的原始事件类型
const (
	// EventKeyDown 普通按键按下（kCGEventKeyDown）
	EventKeyDown EventType = 10

	// EventKeyUp 普通按键释放（kCGEventKeyUp）
	EventKeyUp EventType = 11

	// EventFlagsChanged 修饰键标志位变化（kCGEventFlagsChanged）
	EventFlagsChanged EventType = 12

	// EventSystemDefined 厂商"系统定义"事件（NSSystemDefined），
	// 媒体键与 caps lock 的跳变都以此类型上报
	EventSystemDefined EventType = 14
)

// CGEventFlags 修饰键标志位掩码
const (
	// FlagAlphaShift caps lock 锁存位（kCGEventFlagMaskAlphaShift）
	FlagAlphaShift uint64 = 0x10000

	// FlagShift Shift 键掩码（kCGEventFlagMaskShift）
	FlagShift uint64 = 0x20000

	// FlagControl Control 键掩码（kCGEventFlagMaskControl）
	FlagControl uint64 = 0x40000

	// FlagAlternate Option/Alt 键掩码（kCGEventFlagMaskAlternate）
	FlagAlternate uint64 = 0x80000

	// FlagCommand Command 键掩码（kCGEventFlagMaskCommand）
	FlagCommand uint64 = 0x100000

	// FlagSecondaryFn Fn 键掩码（kCGEventFlagMaskSecondaryFn）
	FlagSecondaryFn uint64 = 0x800000
)

// caps lock 跳变检测使用的位
//
// 这两个位编码了未见于文档的系统行为，必须原样保留：
//   - bit 8：每次物理按下/释放时瞬时置位（"事件出现"位）
//   - bit 16：反映 caps lock 锁存的开/关状态
const (
	capsLockEventBit = uint64(1) << 8
	capsLockLatchBit = uint64(1) << 16
)

// 媒体键事件常量
const (
	// MediaKeysSubtype 系统定义事件中媒体键的子类型。
	// 未见于官方文档，但被广泛使用。
	MediaKeysSubtype = 8

	// mediaTagPress / mediaTagRelease data1 载荷中按下/释放的半字节标记
	mediaTagPress   = 0x0a
	mediaTagRelease = 0x0b
)

// RawEvent 原始本机事件
//
// 平台层从 CGEventRef 中抽取字段填充此结构，解码器只读取字段，
// 不保留对原始事件的引用。
type RawEvent struct {
	// Type 事件类型
	Type EventType

	// VK 虚拟键码字段（kCGKeyboardEventKeycode）
	VK int

	// Flags 修饰键标志位快照
	Flags uint64

	// Subtype 系统定义事件的厂商子类型
	Subtype int

	// Data1 系统定义事件的载荷整数（嵌入媒体子码与按下/释放标记）
	Data1 int64

	// Chars 事件解码出的 unicode 文本（最多若干码元），可为空
	Chars string
}

// EventSpec 待投递的本机事件描述
//
// 编码器的输出。平台层据此构造并投递真正的 CGEvent；
// 纯 Go 测试则直接检查字段。
type EventSpec struct {
	// IsMedia 是否构造厂商"系统定义"媒体键事件
	IsMedia bool

	// VK 虚拟键码（非媒体键时使用；未知字符时为 0 占位）
	VK int

	// IsPress 按下（true）或释放（false）
	IsPress bool

	// Flags 需要置位的修饰键标志
	Flags uint64

	// Data1 媒体键事件的载荷整数
	Data1 int64

	// UnicodeOverride 非空时平台层需通过 unicode 字符串覆盖
	// 目标字符（CGEventKeyboardSetUnicodeString），用于没有
	// 虚拟键码映射的字符
	UnicodeOverride string
}

// PackMediaData1 打包媒体键 data1 载荷
//
// 布局：子码位于 bit 16..31，按下/释放标记（0x0a/0x0b）位于 bit 8..15。
//
// Parameters:
//   - vk: NX 媒体子码
//   - isPress: 是否按下
//
// Returns: int64 - 打包后的载荷
func PackMediaData1(vk int, isPress bool) int64 {
	tag := int64(mediaTagRelease)
	if isPress {
		tag = int64(mediaTagPress)
	}
	return int64(vk)<<16 | tag<<8
}

// UnpackMediaData1 解包媒体键 data1 载荷
//
// Parameters:
//   - data1: 载荷整数
//
// Returns:
//   - vk: NX 媒体子码
//   - isPress: 是否按下
func UnpackMediaData1(data1 int64) (vk int, isPress bool) {
	vk = int((data1 & 0xffff0000) >> 16)
	isPress = ((data1 & 0xff00) >> 8) == mediaTagPress
	return vk, isPress
}
