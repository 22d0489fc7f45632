package keyboard

import (
	"unicode"
)

// Decision 回调对事件的处置决定
type Decision int

const (
	// DecisionAllow 放行事件（默认）
	DecisionAllow Decision = iota

	// DecisionSuppress 拦截事件，阻止其继续传递。
	// 仅在监听器启用拦截时生效。
	DecisionSuppress
)

// Callbacks 监听器回调集合
//
// 回调在监听线程上同步执行，收到的 key 在解码失败时为 nil，
// 上层可以选择忽略。回调返回 DecisionSuppress 表示请求拦截。
type Callbacks struct {
	// OnPress 按键按下回调
	OnPress func(key *KeyCode) Decision

	// OnRelease 按键释放回调
	OnRelease func(key *KeyCode) Decision
}

// Verdict 解码器对单个事件的处置结果
//
// 平台层根据此结果操作真正的 CGEvent：
//   - Handled 为 false 时事件与监听器无关，原样放行
//   - Suppress 为 true 时吞掉事件（回调 NULL）
//   - RestoreFlags 非 nil 时将事件的标志位改写回该快照
//   - Repost 非 nil 时以系统级别重新投递描述的事件
type Verdict struct {
	Handled      bool
	Suppress     bool
	RestoreFlags *uint64
	Repost       *EventSpec
}

// Decoder 事件解码状态机
//
// 将原始、有状态、存在歧义的本机事件流（键码、修饰键标志位、
// 厂商媒体键子事件、caps lock 跳变）翻译成统一的按键抽象，
// 并驱动回调与拦截决策。
//
// Decoder 持有监听会话状态（上一次观测到的标志位快照、caps lock
// 锁存状态），只能由监听线程单线程驱动，无需加锁。
type Decoder struct {
	// callbacks 用户注册的回调
	callbacks Callbacks

	// intercept 是否允许回调拦截事件
	intercept bool

	// flags 上一次观测到的修饰键标志位快照。
	// 被拦截的事件不会推进该快照，使其保持为最后的"良好"状态，
	// 作为后续比较的基线。
	flags uint64

	// capsLockOn caps lock 当前是否处于锁存开状态
	capsLockOn bool
}

// NewDecoder 创建事件解码器
//
// Parameters:
//   - callbacks: 回调集合
//   - intercept: 是否允许回调拦截事件
//
// Returns: *Decoder - 新创建的解码器
func NewDecoder(callbacks Callbacks, intercept bool) *Decoder {
	return &Decoder{
		callbacks: callbacks,
		intercept: intercept,
	}
}

// Handle 处理一个原始事件
//
// 按事件类别分派：
//   - 普通按下/释放：解码按键并触发对应回调
//   - caps lock：首次出现（事件位跳变）视为按下，随后相反类型的
//     本机事件视为释放
//   - 系统定义事件：仅当子类型为媒体键时处理，从 data1 的嵌套位段
//     中提取子码与按下/释放标记；未匹配的子类型/子码被忽略
//   - 其余类型一律视为修饰键标志位变化：拦截时把标志位改写回上次
//     快照，放行时以无修饰上下文回显同一事件，避免系统级修饰键
//     状态失步
//
// 除被拦截的事件外，处理结束后会把会话的标志位快照推进为本次
// 观测值。任何解码失败都不会让事件循环中断。
//
// Parameters:
//   - ev: 原始事件
//
// Returns: Verdict - 处置结果
func (d *Decoder) Handle(ev RawEvent) Verdict {
	key := d.safeDecodeKey(ev)

	verdict := Verdict{Handled: true}
	suppress := false

	switch {
	case ev.Type == EventKeyDown:
		suppress = d.firePress(key)

	case ev.Type == EventKeyUp:
		suppress = d.fireRelease(key)

	case key != nil && key.Equal(KeyCapsLock):
		// caps lock 切换一个持久锁存而非简单的按下/抬起，
		// 需要根据事件类型与锁存位推断按下/释放
		if ev.Type == EventFlagsChanged {
			suppress = d.firePress(key)
			d.capsLockOn = ev.Flags&capsLockLatchBit != 0
		} else {
			suppress = d.fireRelease(key)
		}

	case ev.Type == EventSystemDefined:
		suppress = d.handleMediaKey(ev)

	default:
		return d.handleModifier(ev, key)
	}

	if !suppress {
		d.flags = ev.Flags
	}
	verdict.Suppress = suppress
	return verdict
}

// handleMediaKey 处理厂商媒体键子事件
//
// 子码位于 data1 的 bit 16..31，按下/释放标记位于 bit 8..15。
func (d *Decoder) handleMediaKey(ev RawEvent) bool {
	if ev.Subtype != MediaKeysSubtype {
		return false
	}
	vk, isPress := UnpackMediaData1(ev.Data1)
	key, ok := SpecialKey(vk, true)
	if !ok {
		// 未知子码不是错误，忽略即可
		return false
	}
	if isPress {
		return d.firePress(&key)
	}
	return d.fireRelease(&key)
}

// handleModifier 处理修饰键标志位变化事件
//
// 根据当前标志位与上次快照中对应位的差异推断按下/释放。
func (d *Decoder) handleModifier(ev RawEvent, key *KeyCode) Verdict {
	flag, ok := uint64(0), false
	if key != nil {
		flag, ok = ModifierFlag(*key)
	}
	if !ok {
		// 不是我们的事件，交还给事件 tap 做默认处理；
		// 标志位快照仍然推进
		d.flags = ev.Flags
		return Verdict{Handled: false}
	}

	var suppress bool
	isPress := ev.Flags&flag != 0
	if isPress {
		suppress = d.firePress(key)
	} else {
		suppress = d.fireRelease(key)
	}

	verdict := Verdict{Handled: true, Suppress: suppress}
	if suppress {
		// 把事件的标志位强制改回最后的良好快照
		restore := d.flags
		verdict.RestoreFlags = &restore
	} else {
		// 以无修饰/无映射上下文回显同一事件，
		// 避免系统级修饰键状态失步
		spec := Encode(*key, nil, nil, isPress)
		verdict.Repost = &spec
		d.flags = ev.Flags
	}
	return verdict
}

// safeDecodeKey 解码按键，任何异常都折算为 nil
//
// 事件字段不足以解析按键时结果为 nil，回调仍会被触发，
// 由上层决定是否忽略。
func (d *Decoder) safeDecodeKey(ev RawEvent) (key *KeyCode) {
	defer func() {
		if r := recover(); r != nil {
			key = nil
		}
	}()
	kc := d.decodeKey(ev)
	return &kc
}

// decodeKey 将原始事件解析为 KeyCode
//
// 解析顺序即核心不变式（多项检查单独看都有歧义，先匹配者胜）：
//  1. caps lock 跳变检测（厂商"系统定义"事件 + 位比较）
//  2. 具名按键表查找（(vk, isMedia) 二元组）
//  3. 字符解析（含控制字符折算）
//  4. 回退为仅携带虚拟键码的 KeyCode
func (d *Decoder) decodeKey(ev RawEvent) KeyCode {
	isMedia := ev.Type == EventSystemDefined

	// caps lock 以厂商"系统定义"事件类型上报而非普通按键事件。
	// 识别方式：事件位从未置位变为置位，且新旧锁存位中至少一个
	// 置位，且新旧锁存位的相等关系与已记录的锁存状态一致。
	old8 := d.flags&capsLockEventBit != 0
	new8 := ev.Flags&capsLockEventBit != 0
	old16 := d.flags&capsLockLatchBit != 0
	new16 := ev.Flags&capsLockLatchBit != 0
	if ev.Type == EventSystemDefined && !old8 && new8 &&
		(old16 || new16) && (old16 == new16) == d.capsLockOn {
		return KeyCapsLock
	}

	// 再查具名按键表
	if key, ok := SpecialKey(ev.VK, isMedia); ok {
		return key
	}

	// 然后尝试字符解析。按住 Control 时解码出的字符不可打印
	// （如 Ctrl+C 得到 0x03），需折算回符号表中的原字符。
	if !isPrintable(ev.Chars) {
		if symbol, ok := ControlSymbol(ev.VK); ok && ev.Flags&FlagControl != 0 {
			return FromCharVK(symbol, ev.VK)
		}
	}
	if len(ev.Chars) > 0 {
		return FromCharVK(ev.Chars, ev.VK)
	}

	// 最后回退为虚拟键码
	return FromVK(ev.VK)
}

// firePress 触发按下回调并计算拦截决定
//
// 回调总是被触发；拦截请求仅在启用拦截时生效。
func (d *Decoder) firePress(key *KeyCode) bool {
	if d.callbacks.OnPress == nil {
		return false
	}
	decision := d.callbacks.OnPress(key)
	return d.intercept && decision == DecisionSuppress
}

// fireRelease 触发释放回调并计算拦截决定
//
// 回调总是被触发；拦截请求仅在启用拦截时生效。
func (d *Decoder) fireRelease(key *KeyCode) bool {
	if d.callbacks.OnRelease == nil {
		return false
	}
	decision := d.callbacks.OnRelease(key)
	return d.intercept && decision == DecisionSuppress
}

// Flags 返回上一次观测到的标志位快照（供测试与诊断）
func (d *Decoder) Flags() uint64 {
	return d.flags
}

// CapsLockOn 返回 caps lock 当前锁存状态（供测试与诊断）
func (d *Decoder) CapsLockOn() bool {
	return d.capsLockOn
}

// isPrintable 判断字符串是否全部由可打印字符构成
//
// 空串视为可打印，与字符解析回退逻辑配合。
func isPrintable(s string) bool {
	for _, r := range s {
		if !unicode.IsPrint(r) {
			return false
		}
	}
	return true
}
