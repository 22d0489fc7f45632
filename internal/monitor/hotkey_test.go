package monitor

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chenyang-zz/keyflow/pkg/events"
	"github.com/chenyang-zz/keyflow/pkg/keyboard"
)

func newTestHotkeyManager(t *testing.T) (*HotkeyManager, *events.EventBus) {
	t.Helper()

	bus := events.NewEventBus()
	t.Cleanup(func() { _ = bus.Stop(time.Second) })

	hm := NewHotkeyManager(bus)
	t.Cleanup(func() { _ = hm.Stop() })
	return hm, bus
}

// publishKeyPress 模拟键盘监控器发布的按键按下事件
func publishKeyPress(t *testing.T, bus *events.EventBus, vk int, modifiers uint64) {
	t.Helper()

	data := events.KeyEventData{VK: vk, Modifiers: modifiers}
	event := events.NewEvent(events.EventTypeKeyPress, data.ToMap())
	require.NoError(t, bus.Publish(string(events.EventTypeKeyPress), *event))
}

func TestHotkeyManager_RegisterAndTrigger(t *testing.T) {
	hm, bus := newTestHotkeyManager(t)

	var fired atomic.Int32
	id, err := hm.Register("Cmd+Shift+A", func(reg *HotkeyRegistration) {
		fired.Add(1)
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)
	require.NoError(t, hm.Start())

	// vk 0x00 = 'a'
	publishKeyPress(t, bus, 0x00, keyboard.FlagCommand|keyboard.FlagShift)

	assert.Eventually(t, func() bool {
		return fired.Load() == 1
	}, time.Second, 5*time.Millisecond)
}

func TestHotkeyManager_NoMatchDoesNotTrigger(t *testing.T) {
	hm, bus := newTestHotkeyManager(t)

	var fired atomic.Int32
	_, err := hm.Register("Cmd+Shift+A", func(reg *HotkeyRegistration) {
		fired.Add(1)
	})
	require.NoError(t, err)
	require.NoError(t, hm.Start())

	// 修饰键不完整
	publishKeyPress(t, bus, 0x00, keyboard.FlagCommand)
	// 键码不匹配
	publishKeyPress(t, bus, 0x0B, keyboard.FlagCommand|keyboard.FlagShift)

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(0), fired.Load())
}

func TestHotkeyManager_CapsLockStateIgnored(t *testing.T) {
	hm, bus := newTestHotkeyManager(t)

	var fired atomic.Int32
	_, err := hm.Register("Cmd+C", func(reg *HotkeyRegistration) {
		fired.Add(1)
	})
	require.NoError(t, err)
	require.NoError(t, hm.Start())

	// caps lock 开启时快捷键仍应匹配
	publishKeyPress(t, bus, 0x08, keyboard.FlagCommand|keyboard.FlagAlphaShift)

	assert.Eventually(t, func() bool {
		return fired.Load() == 1
	}, time.Second, 5*time.Millisecond)
}

func TestHotkeyManager_PublishesHotkeyEvent(t *testing.T) {
	hm, bus := newTestHotkeyManager(t)

	var gotHotkey atomic.Value
	bus.Subscribe(string(events.EventTypeHotkey), func(event events.Event) error {
		gotHotkey.Store(event.Data["hotkey"])
		return nil
	})

	_, err := hm.Register("Ctrl+Escape", func(reg *HotkeyRegistration) {})
	require.NoError(t, err)
	require.NoError(t, hm.Start())

	publishKeyPress(t, bus, 0x35, keyboard.FlagControl)

	assert.Eventually(t, func() bool {
		return gotHotkey.Load() == "ctrl+escape"
	}, time.Second, 5*time.Millisecond)
}

func TestHotkeyManager_Unregister(t *testing.T) {
	hm, bus := newTestHotkeyManager(t)

	var fired atomic.Int32
	id, err := hm.Register("Cmd+C", func(reg *HotkeyRegistration) {
		fired.Add(1)
	})
	require.NoError(t, err)
	require.NoError(t, hm.Start())

	assert.True(t, hm.IsRegistered("Cmd+C"))
	assert.True(t, hm.Unregister(id))
	assert.False(t, hm.IsRegistered("Cmd+C"))
	assert.False(t, hm.Unregister(id))

	publishKeyPress(t, bus, 0x08, keyboard.FlagCommand)

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(0), fired.Load())
}

func TestHotkeyManager_MultipleCallbacksSameHotkey(t *testing.T) {
	hm, bus := newTestHotkeyManager(t)

	var first, second atomic.Int32
	id1, err := hm.Register("Cmd+C", func(reg *HotkeyRegistration) { first.Add(1) })
	require.NoError(t, err)
	_, err = hm.Register("Cmd+C", func(reg *HotkeyRegistration) { second.Add(1) })
	require.NoError(t, err)
	require.NoError(t, hm.Start())

	publishKeyPress(t, bus, 0x08, keyboard.FlagCommand)

	assert.Eventually(t, func() bool {
		return first.Load() == 1 && second.Load() == 1
	}, time.Second, 5*time.Millisecond)

	// 取消其中一个注册，另一个不受影响
	assert.True(t, hm.Unregister(id1))
	assert.True(t, hm.IsRegistered("Cmd+C"))

	publishKeyPress(t, bus, 0x08, keyboard.FlagCommand)

	assert.Eventually(t, func() bool {
		return second.Load() == 2
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(1), first.Load())
}

func TestHotkeyManager_SetEnabled(t *testing.T) {
	hm, bus := newTestHotkeyManager(t)

	var fired atomic.Int32
	id, err := hm.Register("Cmd+C", func(reg *HotkeyRegistration) {
		fired.Add(1)
	})
	require.NoError(t, err)
	require.NoError(t, hm.Start())

	assert.True(t, hm.SetEnabled(id, false))
	publishKeyPress(t, bus, 0x08, keyboard.FlagCommand)

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(0), fired.Load())

	assert.True(t, hm.SetEnabled(id, true))
	publishKeyPress(t, bus, 0x08, keyboard.FlagCommand)

	assert.Eventually(t, func() bool {
		return fired.Load() == 1
	}, time.Second, 5*time.Millisecond)
}

func TestHotkeyManager_RegisterInvalid(t *testing.T) {
	hm, _ := newTestHotkeyManager(t)

	_, err := hm.Register("Hyper+A", func(reg *HotkeyRegistration) {})
	assert.Error(t, err)

	_, err = hm.Register("", func(reg *HotkeyRegistration) {})
	assert.Error(t, err)
}

func TestHotkeyManager_GetRegisteredHotkeys(t *testing.T) {
	hm, _ := newTestHotkeyManager(t)

	_, err := hm.Register("Cmd+C", func(reg *HotkeyRegistration) {})
	require.NoError(t, err)
	_, err = hm.Register("Ctrl+Option+M", func(reg *HotkeyRegistration) {})
	require.NoError(t, err)

	hotkeys := hm.GetRegisteredHotkeys()
	assert.ElementsMatch(t, []string{"cmd+c", "ctrl+option+m"}, hotkeys)

	hm.UnregisterAll()
	assert.Empty(t, hm.GetRegisteredHotkeys())
}
