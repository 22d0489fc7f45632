package platform

// PermissionType 权限类型枚举
//
// 定义键盘监听与事件合成需要的系统权限类型
type PermissionType int

const (
	// PermissionAccessibility 辅助功能权限
	// 事件 tap 创建与合成事件投递都依赖此权限
	PermissionAccessibility PermissionType = iota

	// PermissionInputMonitoring 输入监控权限
	// macOS 10.15 起监听键盘事件需要此权限
	PermissionInputMonitoring
)

// String 返回权限类型的字符串表示
func (p PermissionType) String() string {
	switch p {
	case PermissionAccessibility:
		return "accessibility"
	case PermissionInputMonitoring:
		return "input_monitoring"
	default:
		return "unknown"
	}
}

// PermissionStatus 权限状态枚举
type PermissionStatus int

const (
	// PermissionStatusGranted 权限已授予
	PermissionStatusGranted PermissionStatus = iota

	// PermissionStatusDenied 权限被拒绝
	PermissionStatusDenied

	// PermissionStatusUnknown 权限状态未知
	PermissionStatusUnknown
)

// String 返回权限状态的字符串表示
func (s PermissionStatus) String() string {
	switch s {
	case PermissionStatusGranted:
		return "granted"
	case PermissionStatusDenied:
		return "denied"
	default:
		return "unknown"
	}
}

// PermissionChecker 权限检查器接口
//
// 定义了检查与请求系统权限的方法
type PermissionChecker interface {
	// CheckPermission 检查权限状态
	// Parameters: permType - 权限类型
	// Returns: PermissionStatus - 权限状态
	CheckPermission(permType PermissionType) PermissionStatus

	// RequestPermission 请求权限
	// 显示系统权限请求对话框，或引导用户手动授权
	// Parameters: permType - 权限类型
	// Returns: error - 请求失败时返回错误
	RequestPermission(permType PermissionType) error

	// OpenSystemSettings 打开系统设置中对应的权限页面
	// Parameters: permType - 权限类型
	// Returns: error - 打开失败时返回错误
	OpenSystemSettings(permType PermissionType) error
}
