//go:build darwin

package platform

/*
#cgo CFLAGS: -x objective-c
#cgo LDFLAGS: -framework CoreGraphics -framework Cocoa -framework Carbon

#include <stdlib.h>
#include <CoreFoundation/CoreFoundation.h>
#include <CoreGraphics/CoreGraphics.h>
#include <Carbon/Carbon.h>
#include <Cocoa/Cocoa.h>

// goTapHandle Go 层的事件处理函数声明
// 此函数由 C 层回调调用，返回动作位掩码：
//   bit0 - 吞掉事件（回调返回 NULL）
//   bit1 - 将事件标志位改写为 *restoreFlags
int goTapHandle(int eventType, int keycode, unsigned long long flags,
                int subtype, long long data1, char* chars,
                unsigned long long* restoreFlags);

// activeTap 当前活跃的 event tap（tap 被系统停用时用于重新启用）
static CFMachPortRef activeTap = NULL;

// extractChars 提取键盘事件携带的 unicode 文本（static 避免符号冲突）
// 使用 CGEventKeyboardGetUnicodeString 读取事件解码出的字符，
// 再转换为 UTF-8 写入 out 缓冲区
static void extractChars(CGEventRef event, char *out, int outCap) {
    UniChar buf[8];
    UniCharCount n = 0;
    out[0] = 0;

    CGEventKeyboardGetUnicodeString(event, 8, &n, buf);
    if (n == 0) {
        return;
    }

    CFStringRef s = CFStringCreateWithCharacters(NULL, buf, n);
    if (s != NULL) {
        CFStringGetCString(s, out, outCap, kCFStringEncodingUTF8);
        CFRelease(s);
    }
}

// tapCallback CGEventTap 回调函数（static 避免符号冲突）
// 从事件中抽取虚拟键码、标志位、厂商子类型与 data1 载荷，
// 交给 Go 层处理后按返回的动作位掩码操作原始事件
static CGEventRef tapCallback(CGEventTapProxy proxy, CGEventType type,
                              CGEventRef event, void *refcon) {
    // tap 被系统停用（超时或用户输入过载）时重新启用
    if (type == kCGEventTapDisabledByTimeout ||
        type == kCGEventTapDisabledByUserInput) {
        if (activeTap != NULL) {
            CGEventTapEnable(activeTap, true);
        }
        return event;
    }

    int vk = (int)CGEventGetIntegerValueField(event, kCGKeyboardEventKeycode);
    unsigned long long flags = (unsigned long long)CGEventGetFlags(event);
    int subtype = 0;
    long long data1 = 0;
    char chars[32];
    chars[0] = 0;

    if (type == kCGEventKeyDown || type == kCGEventKeyUp) {
        extractChars(event, chars, sizeof(chars));
    } else if (type == (CGEventType)NSEventTypeSystemDefined) {
        // 厂商"系统定义"事件的子类型与载荷只能经 NSEvent 读取
        @autoreleasepool {
            NSEvent *ns = [NSEvent eventWithCGEvent:event];
            if (ns != nil) {
                subtype = (int)ns.subtype;
                data1 = (long long)ns.data1;
            }
        }
    }

    unsigned long long restore = 0;
    int action = goTapHandle((int)type, vk, flags, subtype, data1,
                             chars, &restore);

    if (action & 2) {
        CGEventSetFlags(event, (CGEventFlags)restore);
    }
    if (action & 1) {
        return NULL;
    }
    return event;
}

// createKeyEventTap 创建键盘事件 tap（static 避免符号冲突）
// 监听按键按下/释放、修饰键变化与系统定义事件四类；
// intercept 决定 tap 选项：拦截模式用 Default（回调可吞事件），
// 纯监听模式用 ListenOnly
// Returns: Event tap 的 CFMachPortRef 句柄，失败返回 NULL
static void* createKeyEventTap(int intercept) {
    CGEventMask mask = CGEventMaskBit(kCGEventKeyDown) |
                       CGEventMaskBit(kCGEventKeyUp) |
                       CGEventMaskBit(kCGEventFlagsChanged) |
                       CGEventMaskBit(NSEventTypeSystemDefined);

    CFMachPortRef tap = CGEventTapCreate(
        kCGSessionEventTap,
        kCGHeadInsertEventTap,
        intercept ? kCGEventTapOptionDefault : kCGEventTapOptionListenOnly,
        mask,
        tapCallback,
        NULL
    );

    if (tap == NULL) {
        return NULL;
    }

    activeTap = tap;
    CGEventTapEnable(tap, true);

    // 把 tap 集成到当前线程的 run loop
    CFRunLoopSourceRef src = CFMachPortCreateRunLoopSource(NULL, tap, 0);
    CFRunLoopAddSource(CFRunLoopGetCurrent(), src, kCFRunLoopCommonModes);
    CFRelease(src);

    return tap;
}

// destroyKeyEventTap 销毁事件 tap（static 避免符号冲突）
static void destroyKeyEventTap(void* tap) {
    if (tap != NULL) {
        CFMachPortRef eventTap = (CFMachPortRef)tap;
        CGEventTapEnable(eventTap, false);
        CFRelease(eventTap);
    }
    activeTap = NULL;
}

// runTapLoop 运行当前线程的 run loop，阻塞至 CFRunLoopStop
static void runTapLoop(void) {
    CFRunLoopRun();
}

// stopTapLoop 停止指定的 run loop
static void stopTapLoop(void* rl) {
    CFRunLoopStop((CFRunLoopRef)rl);
}

// postKeyEvent 合成并投递一个键盘事件（static 避免符号冲突）
// unicode 非空时通过 CGEventKeyboardSetUnicodeString 覆盖目标字符，
// 用于没有虚拟键码映射的字符
// Returns: 0=成功, -1=失败
static int postKeyEvent(int vk, int isPress, unsigned long long flags,
                        const char* unicode) {
    CGEventRef ev = CGEventCreateKeyboardEvent(NULL, (CGKeyCode)vk,
                                               isPress ? true : false);
    if (ev == NULL) {
        return -1;
    }

    CGEventSetFlags(ev, (CGEventFlags)flags);

    if (unicode != NULL && unicode[0] != 0) {
        CFStringRef s = CFStringCreateWithCString(NULL, unicode,
                                                  kCFStringEncodingUTF8);
        if (s != NULL) {
            UniChar buf[8];
            CFIndex len = CFStringGetLength(s);
            if (len > 8) {
                len = 8;
            }
            CFStringGetCharacters(s, CFRangeMake(0, len), buf);
            CGEventKeyboardSetUnicodeString(ev, (UniCharCount)len, buf);
            CFRelease(s);
        }
    }

    CGEventPost(kCGHIDEventTap, ev);
    CFRelease(ev);
    return 0;
}

// postMediaEvent 合成并投递一个媒体键事件（static 避免符号冲突）
// 媒体键没有 CGEvent 构造函数，需经 NSEvent otherEventWithType
// 构造厂商"系统定义"事件再转回 CGEvent 投递
// Returns: 0=成功, -1=失败
static int postMediaEvent(long long data1, int isPress,
                          unsigned long long flags) {
    @autoreleasepool {
        NSEvent *ev = [NSEvent otherEventWithType:NSEventTypeSystemDefined
                                         location:NSZeroPoint
                                    modifierFlags:(isPress ? 0xa00 : 0xb00)
                                        timestamp:0
                                     windowNumber:0
                                          context:nil
                                          subtype:8
                                            data1:(NSInteger)data1
                                            data2:-1];
        if (ev == nil) {
            return -1;
        }

        CGEventRef cg = [ev CGEvent];
        if (cg == NULL) {
            return -1;
        }

        if (flags != 0) {
            CGEventSetFlags(cg, (CGEventFlags)flags);
        }
        CGEventPost(kCGHIDEventTap, cg);
        return 0;
    }
}

// layoutCharForVK 查询当前键盘布局下虚拟键码对应的字符
// 使用 UCKeyTranslate 在无修饰键状态下翻译键码
// Returns: 0=成功（UTF-8 写入 out）, -1=失败或无对应字符
static int layoutCharForVK(int vk, char* out, int outCap) {
    out[0] = 0;

    TISInputSourceRef source = TISCopyCurrentKeyboardInputSource();
    if (source == NULL) {
        return -1;
    }

    CFDataRef layoutData = (CFDataRef)TISGetInputSourceProperty(
        source, kTISPropertyUnicodeKeyLayoutData);
    if (layoutData == NULL) {
        CFRelease(source);
        return -1;
    }

    const UCKeyboardLayout* layout =
        (const UCKeyboardLayout*)CFDataGetBytePtr(layoutData);
    UInt32 deadKeyState = 0;
    UniChar buf[8];
    UniCharCount n = 0;

    OSStatus st = UCKeyTranslate(layout, (UInt16)vk, kUCKeyActionDown, 0,
                                 LMGetKbdType(), kUCKeyTranslateNoDeadKeysBit,
                                 &deadKeyState, 8, &n, buf);
    CFRelease(source);

    if (st != noErr || n == 0) {
        return -1;
    }

    CFStringRef s = CFStringCreateWithCharacters(NULL, buf, n);
    if (s == NULL) {
        return -1;
    }
    Boolean ok = CFStringGetCString(s, out, outCap, kCFStringEncodingUTF8);
    CFRelease(s);

    return ok ? 0 : -1;
}
*/
import "C"
import (
	"fmt"
	"runtime"
	"sync"
	"unsafe"

	"github.com/chenyang-zz/keyflow/pkg/keyboard"
)

// DarwinEventTap macOS 平台的事件 tap 实现
//
// DarwinEventTap 使用 Core Graphics Event Tap API 捕获系统级键盘事件。
// tap 安装在一条锁定的专属 OS 线程上，由该线程的 run loop 泵事件；
// 事件在回调线程上同步交给处理函数，处理结果决定事件去留。
// 需要用户在系统设置中授予辅助功能权限才能正常工作。
type DarwinEventTap struct {
	// intercept 拦截模式（Default tap）或纯监听模式（ListenOnly tap）
	intercept bool
	// handler 原始事件处理函数
	handler func(keyboard.RawEvent) keyboard.Verdict
	// eventTap C 层的 CFMachPortRef 句柄
	eventTap unsafe.Pointer
	// runLoop tap 线程的 run loop 引用，用于停止
	runLoop unsafe.Pointer
	// isRunning 运行状态标志
	isRunning bool
	// done tap 线程退出信号
	done chan struct{}
	// mu 读写锁，保护并发访问
	mu sync.RWMutex
}

// 全局事件 tap 实例（用于 C 回调）
//
// C 函数无法直接调用 Go 方法，需要维护一个全局实例引用。
// tapMutex 保护此全局变量的并发访问。
var (
	defaultEventTap *DarwinEventTap
	tapMutex        sync.Mutex
)

// NewEventTap 创建事件 tap
//
// 在 macOS 平台上返回 DarwinEventTap 实例。
// Parameters: intercept - 是否允许回调吞掉事件
// Returns: keyboard.EventTap 接口的 macOS 实现
func NewEventTap(intercept bool) keyboard.EventTap {
	return &DarwinEventTap{
		intercept: intercept,
	}
}

//export goTapHandle
// goTapHandle C 到 Go 的桥接函数
//
// 由 C 层的 tap 回调同步调用。把原始事件字段组装成 RawEvent 交给
// 处理函数，再把处理结果编码为动作位掩码返回 C 层。
// 必须同步执行：拦截决定需要在回调返回前作出。
func goTapHandle(eventType, vk C.int, flags C.ulonglong, subtype C.int,
	data1 C.longlong, chars *C.char, restoreFlags *C.ulonglong) C.int {
	tapMutex.Lock()
	t := defaultEventTap
	tapMutex.Unlock()
	if t == nil {
		return 0
	}

	t.mu.RLock()
	handler := t.handler
	running := t.isRunning
	t.mu.RUnlock()
	if !running || handler == nil {
		return 0
	}

	verdict := handler(keyboard.RawEvent{
		Type:    keyboard.EventType(eventType),
		VK:      int(vk),
		Flags:   uint64(flags),
		Subtype: int(subtype),
		Data1:   int64(data1),
		Chars:   C.GoString(chars),
	})

	var action C.int
	if verdict.RestoreFlags != nil {
		*restoreFlags = C.ulonglong(*verdict.RestoreFlags)
		action |= 2
	}
	if verdict.Suppress {
		action |= 1
	}
	if verdict.Repost != nil {
		// 以系统级别重新投递解码器要求回显的事件
		_ = postSpec(*verdict.Repost)
	}
	return action
}

// Start 安装事件 tap 并开始监听
//
// 启动一条锁定的专属 OS 线程：线程上创建 CGEventTap 并运行 run loop。
// tap 创建失败（通常因缺少辅助功能权限）时同步返回错误。
// Parameters: handler - 每个原始事件的处理函数
// Returns: error - 安装失败时返回错误
func (t *DarwinEventTap) Start(handler func(keyboard.RawEvent) keyboard.Verdict) error {
	t.mu.Lock()
	if t.isRunning {
		t.mu.Unlock()
		return fmt.Errorf("event tap already running")
	}
	t.handler = handler
	t.done = make(chan struct{})
	t.mu.Unlock()

	// 保存到全局实例（用于 C 回调）
	tapMutex.Lock()
	defaultEventTap = t
	tapMutex.Unlock()

	ready := make(chan error, 1)

	go func() {
		// tap 与 run loop 必须生存在同一条 OS 线程上
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()

		tap := C.createKeyEventTap(cBool(t.intercept))
		if tap == nil {
			tapMutex.Lock()
			defaultEventTap = nil
			tapMutex.Unlock()
			ready <- fmt.Errorf("创建事件 tap 失败: 请在系统设置中授予辅助功能权限")
			return
		}

		t.mu.Lock()
		t.eventTap = tap
		t.runLoop = unsafe.Pointer(C.CFRunLoopGetCurrent())
		t.isRunning = true
		t.mu.Unlock()
		ready <- nil

		// 阻塞泵事件，直到 Stop 调用 CFRunLoopStop
		C.runTapLoop()

		C.destroyKeyEventTap(tap)
		close(t.done)
	}()

	return <-ready
}

// Stop 停止监听并释放系统资源
//
// 停止 tap 线程的 run loop 并等待其销毁事件 tap 后退出；
// 进行中的回调会先执行完毕。
// Returns: error - 未在运行时返回错误
func (t *DarwinEventTap) Stop() error {
	t.mu.Lock()
	if !t.isRunning {
		t.mu.Unlock()
		return fmt.Errorf("event tap not running")
	}
	t.isRunning = false
	rl := t.runLoop
	t.eventTap = nil
	t.runLoop = nil
	done := t.done
	t.mu.Unlock()

	// 清理全局实例
	tapMutex.Lock()
	defaultEventTap = nil
	tapMutex.Unlock()

	C.stopTapLoop(rl)
	<-done

	return nil
}

// IsRunning 检查运行状态
func (t *DarwinEventTap) IsRunning() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.isRunning
}

// DarwinEventPoster macOS 平台的事件投递器实现
//
// 把 EventSpec 构造成真正的 CGEvent 并投递到系统 HID 事件队列。
type DarwinEventPoster struct{}

// NewEventPoster 创建事件投递器
//
// Returns: keyboard.EventPoster 接口的 macOS 实现
func NewEventPoster() keyboard.EventPoster {
	return &DarwinEventPoster{}
}

// Post 投递一个合成事件
//
// Parameters: spec - 本机事件描述
// Returns: error - 投递失败时返回错误
func (p *DarwinEventPoster) Post(spec keyboard.EventSpec) error {
	return postSpec(spec)
}

// postSpec 按事件描述构造并投递 CGEvent
//
// 媒体键经 NSEvent 构造厂商"系统定义"事件；普通按键经
// CGEventCreateKeyboardEvent 构造，未映射字符用 unicode 字符串覆盖。
func postSpec(spec keyboard.EventSpec) error {
	if spec.IsMedia {
		if C.postMediaEvent(C.longlong(spec.Data1), cBool(spec.IsPress),
			C.ulonglong(spec.Flags)) != 0 {
			return fmt.Errorf("投递媒体键事件失败: data1=%#x", spec.Data1)
		}
		return nil
	}

	var unicode *C.char
	if spec.UnicodeOverride != "" {
		unicode = C.CString(spec.UnicodeOverride)
		defer C.free(unsafe.Pointer(unicode))
	}

	if C.postKeyEvent(C.int(spec.VK), cBool(spec.IsPress),
		C.ulonglong(spec.Flags), unicode) != 0 {
		return fmt.Errorf("投递键盘事件失败: vk=%#x", spec.VK)
	}
	return nil
}

// DarwinLayoutProvider macOS 平台的键盘布局查询实现
//
// 使用 Text Input Source + UCKeyTranslate 枚举当前布局下
// 0..127 全部虚拟键码对应的字符。
type DarwinLayoutProvider struct{}

// NewLayoutProvider 创建键盘布局查询器
//
// Returns: keyboard.LayoutProvider 接口的 macOS 实现
func NewLayoutProvider() keyboard.LayoutProvider {
	return &DarwinLayoutProvider{}
}

// Mapping 返回字符到虚拟键码的映射
//
// 布局数据查询失败时（如无 unicode 布局的输入源）退回 ANSI US 布局。
func (p *DarwinLayoutProvider) Mapping() map[string]int {
	mapping := make(map[string]int)
	var buf [32]C.char

	for vk := 0; vk < 128; vk++ {
		if C.layoutCharForVK(C.int(vk), &buf[0], C.int(len(buf))) != 0 {
			continue
		}
		ch := C.GoString(&buf[0])
		if ch == "" {
			continue
		}
		mapping[ch] = vk
	}

	if len(mapping) == 0 {
		return keyboard.USLayout()
	}
	return mapping
}

// cBool 把 Go bool 转换为 C int
func cBool(b bool) C.int {
	if b {
		return 1
	}
	return 0
}
