package keyboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestParseHotkey 测试快捷键字符串解析
func TestParseHotkey(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantVK    int
		wantFlags uint64
	}{
		{"单修饰键加字母", "Cmd+C", 0x08, FlagCommand},
		{"双修饰键加字母", "Cmd+Shift+A", 0x00, FlagCommand | FlagShift},
		{"Control 与 Option 全名", "Control+Option+M", 0x2E, FlagControl | FlagAlternate},
		{"具名按键", "Cmd+Enter", 0x24, FlagCommand},
		{"功能键", "Fn+F5", 0x60, FlagSecondaryFn},
		{"别名 escape", "Ctrl+Escape", 0x35, FlagControl},
		{"含空格", "Cmd + Shift + P", 0x23, FlagCommand | FlagShift},
		{"无修饰键", "F12", 0x6F, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hk, err := ParseHotkey(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.wantVK, hk.VK)
			assert.Equal(t, tt.wantFlags, hk.Modifiers)
		})
	}
}

// TestParseHotkey_Invalid 测试非法快捷键字符串
func TestParseHotkey_Invalid(t *testing.T) {
	for _, input := range []string{
		"",
		"   ",
		"Cmd+",
		"Hyper+A",
		"Cmd+NoSuchKey",
		"Cmd+media_play_pause",
	} {
		t.Run(input, func(t *testing.T) {
			_, err := ParseHotkey(input)
			assert.Error(t, err)
		})
	}
}

// TestHotkey_Match 测试快捷键匹配
func TestHotkey_Match(t *testing.T) {
	hk, err := ParseHotkey("Cmd+Shift+A")
	require.NoError(t, err)

	assert.True(t, hk.Match(0x00, FlagCommand|FlagShift))

	// caps lock 锁存位等无关位不影响匹配
	assert.True(t, hk.Match(0x00, FlagCommand|FlagShift|FlagAlphaShift))

	// 修饰键缺失或多余都不匹配
	assert.False(t, hk.Match(0x00, FlagCommand))
	assert.False(t, hk.Match(0x00, FlagCommand|FlagShift|FlagControl))

	// 键码不同不匹配
	assert.False(t, hk.Match(0x0B, FlagCommand|FlagShift))
}

// TestHotkey_String 测试快捷键字符串表示
func TestHotkey_String(t *testing.T) {
	hk, err := ParseHotkey("Cmd + Shift + A")
	require.NoError(t, err)
	assert.Equal(t, "cmd+shift+a", hk.String())
}
