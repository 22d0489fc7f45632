//go:build darwin

package platform

/*
#cgo CFLAGS: -x objective-c
#cgo LDFLAGS: -framework ApplicationServices -framework CoreGraphics

#include <ApplicationServices/ApplicationServices.h>
#include <CoreGraphics/CoreGraphics.h>

// checkAccessibilityPermission 检查辅助功能权限（static 避免符号冲突）
// 使用 AXIsProcessTrusted 检查当前进程是否被信任
// Returns: 1=已授权, 0=未授权
static int checkAccessibilityPermission() {
    return AXIsProcessTrusted();
}

// requestAccessibilityPermission 请求辅助功能权限（static 避免符号冲突）
// 使用 AXIsProcessTrustedWithOptions 显示系统权限请求对话框
// Returns: 0=成功, -1=失败
static int requestAccessibilityPermission() {
    @autoreleasepool {
        NSDictionary *options = @{(__bridge id)kAXTrustedCheckOptionPrompt: @YES};
        BOOL trusted = AXIsProcessTrustedWithOptions((__bridge CFDictionaryRef)options);
        return trusted ? 0 : -1;
    }
}

// checkInputMonitoringPermission 检查输入监控权限（static 避免符号冲突）
// 使用 CGPreflightListenEventAccess 检查（macOS 10.15+）
// Returns: 1=已授权, 0=未授权
static int checkInputMonitoringPermission() {
    return CGPreflightListenEventAccess() ? 1 : 0;
}

// requestInputMonitoringPermission 请求输入监控权限（static 避免符号冲突）
// 使用 CGRequestListenEventAccess 触发系统授权提示（macOS 10.15+）
// Returns: 0=成功, -1=失败
static int requestInputMonitoringPermission() {
    return CGRequestListenEventAccess() ? 0 : -1;
}
*/
import "C"
import (
	"fmt"
	"os/exec"
)

// DarwinPermissionChecker macOS 平台的权限检查器实现
type DarwinPermissionChecker struct{}

// NewPermissionChecker 创建 macOS 平台的权限检查器
// Returns: PermissionChecker - macOS 平台的权限检查器实例
func NewPermissionChecker() PermissionChecker {
	return &DarwinPermissionChecker{}
}

// CheckPermission 检查权限状态
// Parameters: permType - 权限类型
// Returns: PermissionStatus - 权限状态
func (c *DarwinPermissionChecker) CheckPermission(permType PermissionType) PermissionStatus {
	switch permType {
	case PermissionAccessibility:
		if C.checkAccessibilityPermission() == 1 {
			return PermissionStatusGranted
		}
		return PermissionStatusDenied

	case PermissionInputMonitoring:
		if C.checkInputMonitoringPermission() == 1 {
			return PermissionStatusGranted
		}
		return PermissionStatusDenied

	default:
		return PermissionStatusUnknown
	}
}

// RequestPermission 请求权限
// 显示系统权限请求对话框，或引导用户手动授权
// Parameters: permType - 权限类型
// Returns: error - 请求失败时返回错误
func (c *DarwinPermissionChecker) RequestPermission(permType PermissionType) error {
	switch permType {
	case PermissionAccessibility:
		if C.requestAccessibilityPermission() != 0 {
			return fmt.Errorf("请求辅助功能权限失败")
		}
		return nil

	case PermissionInputMonitoring:
		if C.requestInputMonitoringPermission() != 0 {
			return fmt.Errorf("请求输入监控权限失败")
		}
		return nil

	default:
		return fmt.Errorf("未知的权限类型: %v", permType)
	}
}

// OpenSystemSettings 打开系统设置
// 直接打开系统设置中的对应权限页面
// Parameters: permType - 权限类型
// Returns: error - 打开失败时返回错误
func (c *DarwinPermissionChecker) OpenSystemSettings(permType PermissionType) error {
	var url string

	switch permType {
	case PermissionAccessibility:
		url = "x-apple.systempreferences:com.apple.preference.security?Privacy_Accessibility"

	case PermissionInputMonitoring:
		url = "x-apple.systempreferences:com.apple.preference.security?Privacy_ListenEvent"

	default:
		return fmt.Errorf("未知的权限类型: %v", permType)
	}

	// 使用 open 命令打开系统设置，不等待命令完成
	cmd := exec.Command("open", url)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("打开系统设置失败: %w", err)
	}

	return nil
}
