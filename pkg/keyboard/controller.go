package keyboard

import (
	"fmt"
	"sync"
)

// EventPoster 本机事件投递接口
//
// macOS 实现把 EventSpec 构造成真正的 CGEvent 并投递到系统
// 输入队列；测试中用假实现记录投递内容。
type EventPoster interface {
	// Post 投递一个合成事件
	// Parameters: spec - 本机事件描述
	// Returns: error - 投递失败时返回错误
	Post(spec EventSpec) error
}

// LayoutProvider 键盘布局查询接口
//
// 提供当前键盘布局下字符到虚拟键码的映射。控制器构造时查询
// 一次，此后视为静态——运行中途的布局切换不做跟踪。
type LayoutProvider interface {
	// Mapping 返回字符到虚拟键码的映射
	Mapping() map[string]int
}

// Controller 键盘控制器
//
// 负责合成按键按下/释放事件并投递到系统输入队列。控制器以
// 独占锁维护权威的修饰键集合：press/release 在持锁状态下更新
// 集合并取得一致的修饰键快照，投递的事件始终反映该快照。
// 多个调用方线程通过该锁串行化；本机事件队列本身只保证系统
// 投递顺序。
type Controller struct {
	// poster 本机事件投递器
	poster EventPoster

	// mapping 字符到虚拟键码的布局映射（构造时查询一次）
	mapping map[string]int

	// modifiers 当前按下的修饰键集合（按 keyID 去重）
	modifiers map[keyID]KeyCode

	// mu 保护 modifiers 的互斥锁
	mu sync.Mutex
}

// NewController 创建键盘控制器
//
// Parameters:
//   - poster: 本机事件投递器
//   - layout: 键盘布局查询接口
//
// Returns: *Controller - 新创建的控制器
func NewController(poster EventPoster, layout LayoutProvider) *Controller {
	return &Controller{
		poster:    poster,
		mapping:   layout.Mapping(),
		modifiers: make(map[keyID]KeyCode),
	}
}

// Press 合成并投递一次按键按下
//
// 修饰键会先加入受锁保护的修饰键集合，再以一致的快照编码事件。
//
// Parameters:
//   - kc: 要按下的按键
//
// Returns: error - 投递失败时返回错误
func (c *Controller) Press(kc KeyCode) error {
	c.mu.Lock()
	if _, ok := ModifierFlag(kc); ok {
		c.modifiers[kc.id()] = kc
	}
	snapshot := c.snapshotLocked()
	c.mu.Unlock()

	return c.poster.Post(Encode(kc, snapshot, c.mapping, true))
}

// Release 合成并投递一次按键释放
//
// Parameters:
//   - kc: 要释放的按键
//
// Returns: error - 投递失败时返回错误
func (c *Controller) Release(kc KeyCode) error {
	c.mu.Lock()
	if _, ok := ModifierFlag(kc); ok {
		delete(c.modifiers, kc.id())
	}
	snapshot := c.snapshotLocked()
	c.mu.Unlock()

	return c.poster.Post(Encode(kc, snapshot, c.mapping, false))
}

// Tap 合成一次完整的按下+释放
//
// Parameters:
//   - kc: 要敲击的按键
//
// Returns: error - 投递失败时返回错误
func (c *Controller) Tap(kc KeyCode) error {
	if err := c.Press(kc); err != nil {
		return err
	}
	return c.Release(kc)
}

// Type 把文本分解为逐字符的按下+释放序列并投递
//
// Parameters:
//   - text: 要输入的文本
//
// Returns: error - 任一字符投递失败时返回错误
func (c *Controller) Type(text string) error {
	for _, r := range text {
		if err := c.Tap(FromChar(string(r))); err != nil {
			return fmt.Errorf("输入字符 %q 失败: %w", r, err)
		}
	}
	return nil
}

// Pressed 返回当前修饰键集合的快照（供测试与诊断）
func (c *Controller) Pressed() []KeyCode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// snapshotLocked 在持锁状态下复制修饰键集合
func (c *Controller) snapshotLocked() []KeyCode {
	out := make([]KeyCode, 0, len(c.modifiers))
	for _, m := range c.modifiers {
		out = append(out, m)
	}
	return out
}
