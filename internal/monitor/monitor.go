package monitor

// Monitor 监控器接口
//
// Monitor 定义了监控组件统一的生命周期管理方法。
// 键盘监控器与监控引擎都实现此接口。
type Monitor interface {
	// Start 启动监控
	// Returns: error - 启动失败时返回错误（如缺少系统权限）
	Start() error

	// Stop 停止监控
	// Returns: error - 停止失败时返回错误
	Stop() error

	// IsRunning 检查运行状态
	// Returns: bool - 监控器是否正在运行
	IsRunning() bool
}
