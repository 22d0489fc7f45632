package keyboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestKeyCode_Equal 测试 KeyCode 相等性规则
func TestKeyCode_Equal(t *testing.T) {
	// 两者都携带虚拟键码时比较键码（键码优先于字符）
	assert.True(t, FromVK(0x24).Equal(FromVK(0x24)))
	assert.False(t, FromVK(0x24).Equal(FromVK(0x30)))
	assert.True(t, FromCharVK("a", 0x00).Equal(FromCharVK("A", 0x00)))
	assert.False(t, FromCharVK("a", 0x00).Equal(FromCharVK("a", 0x01)))

	// 仅一方携带键码时退回字符比较
	assert.True(t, FromChar("a").Equal(FromChar("a")))
	assert.False(t, FromChar("a").Equal(FromChar("b")))
	assert.True(t, FromCharVK("a", 0x00).Equal(FromChar("a")))

	// 双方都无可比字段时不相等
	assert.False(t, FromChar("a").Equal(FromVK(0x00)))
	assert.False(t, KeyCode{VK: VKUnset}.Equal(KeyCode{VK: VKUnset}))

	// 扩展属性区分媒体键与普通键（子码与键码共用数值空间）
	assert.False(t, KeyMediaVolumeUp.Equal(FromVK(NXKeyTypeSoundUp)))
	assert.True(t, KeyMediaVolumeUp.Equal(fromMedia(NXKeyTypeSoundUp)))

	// Name 不参与比较
	assert.True(t, KeyEnter.Equal(FromVK(0x24)))
}

// TestKeyCode_Construction 测试构造函数永远成功
func TestKeyCode_Construction(t *testing.T) {
	kc := FromVK(9999)
	assert.Equal(t, 9999, kc.VK)
	assert.True(t, kc.HasVK())

	kc = FromChar("é")
	assert.False(t, kc.HasVK())
	assert.Equal(t, "é", kc.Char)

	kc = FromCharVK("a", 0x00)
	assert.True(t, kc.HasVK())
	assert.Equal(t, "a", kc.Char)
}

// TestKeyCode_String 测试日志友好的字符串表示
func TestKeyCode_String(t *testing.T) {
	assert.Equal(t, "alt", KeyAlt.String())
	assert.Equal(t, `"a"`, FromChar("a").String())
	assert.Equal(t, "<36>", FromVK(36).String())
	assert.Equal(t, "<unset>", KeyCode{VK: VKUnset}.String())
}

// TestSpecialKey 测试具名按键表查找
func TestSpecialKey(t *testing.T) {
	key, ok := SpecialKey(0x39, false)
	assert.True(t, ok)
	assert.Equal(t, "caps_lock", key.Name)

	// 媒体键以 (子码, true) 查找，与普通键码不冲突
	key, ok = SpecialKey(NXKeyTypePlay, true)
	assert.True(t, ok)
	assert.Equal(t, "media_play_pause", key.Name)

	_, ok = SpecialKey(0x9999, false)
	assert.False(t, ok)
}

// TestKeyByName 测试按名称查找
func TestKeyByName(t *testing.T) {
	key, ok := KeyByName("media_volume_up")
	assert.True(t, ok)
	assert.True(t, key.IsMedia)
	assert.Equal(t, NXKeyTypeSoundUp, key.VK)

	_, ok = KeyByName("no_such_key")
	assert.False(t, ok)
}

// TestModifierFlag 测试修饰键掩码表，左右变体共享掩码
func TestModifierFlag(t *testing.T) {
	cases := []struct {
		key  KeyCode
		flag uint64
	}{
		{KeyAlt, FlagAlternate},
		{KeyAltL, FlagAlternate},
		{KeyAltR, FlagAlternate},
		{KeyCmd, FlagCommand},
		{KeyCmdR, FlagCommand},
		{KeyCtrl, FlagControl},
		{KeyCtrlR, FlagControl},
		{KeyShift, FlagShift},
		{KeyShiftR, FlagShift},
		{KeyFn, FlagSecondaryFn},
	}
	for _, tc := range cases {
		flag, ok := ModifierFlag(tc.key)
		assert.True(t, ok, tc.key.Name)
		assert.Equal(t, tc.flag, flag, tc.key.Name)
	}

	// caps lock 与普通键不是修饰键
	_, ok := ModifierFlag(KeyCapsLock)
	assert.False(t, ok)
	_, ok = ModifierFlag(KeyEnter)
	assert.False(t, ok)
	_, ok = ModifierFlag(KeyMediaVolumeUp)
	assert.False(t, ok)
}
