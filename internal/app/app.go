/**
 * Package app 提供应用装配层的实现
 *
 * App 层职责：
 * - 按配置装配事件总线、存储、持久化与监控引擎
 * - 管理各组件的启动与关闭顺序
 * - 对外暴露查询与快捷键注册能力
 */

package app

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/chenyang-zz/keyflow/internal/infrastructure/config"
	"github.com/chenyang-zz/keyflow/internal/infrastructure/storage"
	"github.com/chenyang-zz/keyflow/internal/monitor"
	"github.com/chenyang-zz/keyflow/internal/platform"
	"github.com/chenyang-zz/keyflow/pkg/events"
	"github.com/chenyang-zz/keyflow/pkg/keyboard"
	"github.com/chenyang-zz/keyflow/pkg/logger"
)

/**
 * App 是应用的主结构体
 *
 * 包含了应用所需的所有服务和配置
 * 通过依赖注入的方式进行管理
 */
type App struct {
	// config 应用配置
	config *config.Config

	// eventBus 事件总线，应用内部的事件传递通道
	eventBus *events.EventBus

	// db 底层数据库连接
	db *sql.DB

	// repository 按键事件仓储
	repository storage.KeyEventRepository

	// persistence 持久化中间件，挂在事件总线上
	persistence *monitor.PersistenceMiddleware

	// engine 监控引擎，负责键盘事件采集
	engine *monitor.Engine

	// controller 键盘控制器，负责事件合成
	controller *keyboard.Controller
}

/**
 * New 创建一个新的 App 实例
 *
 * 按配置装配所有组件，但不启动监控。
 *
 * Parameters:
 *   - cfg: 应用配置
 *
 * Returns:
 *   - *App: 初始化好的 App 实例
 *   - error: 装配失败时的错误
 */
func New(cfg *config.Config) (*App, error) {
	eventBus := events.NewEventBus()
	eventBus.Use(events.RecoveryMiddleware())

	// 初始化存储
	db, err := storage.NewSQLiteDB(storage.SQLiteConfig{
		Path:            cfg.Storage.SQLite.Path,
		MaxOpenConns:    cfg.Storage.SQLite.MaxOpenConns,
		MaxIdleConns:    cfg.Storage.SQLite.MaxIdleConns,
		ConnMaxLifetime: cfg.Storage.SQLite.ConnMaxLifetime.Std(),
	})
	if err != nil {
		return nil, fmt.Errorf("初始化数据库失败: %w", err)
	}

	if err := storage.RunMigrations(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("数据库迁移失败: %w", err)
	}

	repository := storage.NewSQLiteKeyEventRepository(db)

	// 装配持久化中间件
	batchWriter := storage.NewBatchWriter(repository, storage.BatchWriterConfig{
		BatchSize:     cfg.Storage.BatchWriter.BatchSize,
		FlushInterval: cfg.Storage.BatchWriter.FlushInterval.Std(),
		EventBuffer:   cfg.Storage.BatchWriter.EventBuffer,
	})
	batchWriter.Start()

	persistConfig := monitor.DefaultPersistenceConfig()
	if len(cfg.Monitor.PersistEventTypes) > 0 {
		persistConfig.EnabledEventTypes = make(map[events.EventType]bool)
		for _, name := range cfg.Monitor.PersistEventTypes {
			persistConfig.EnabledEventTypes[events.EventType(name)] = true
		}
	}
	persistence, middleware := monitor.NewPersistenceMiddleware(batchWriter, persistConfig)
	eventBus.Use(middleware)

	// 装配监控引擎
	engine := monitor.NewEngine(eventBus, monitor.KeyboardMonitorConfig{
		Intercept:          cfg.Monitor.Keyboard.Intercept,
		SuppressHotkeys:    cfg.Monitor.Keyboard.SuppressHotkeys,
		MaxEventsPerSecond: cfg.Monitor.Keyboard.MaxEventsPerSecond,
	})

	// 装配键盘控制器
	controller := keyboard.NewController(
		platform.NewEventPoster(), platform.NewLayoutProvider())

	return &App{
		config:      cfg,
		eventBus:    eventBus,
		db:          db,
		repository:  repository,
		persistence: persistence,
		engine:      engine,
		controller:  controller,
	}, nil
}

/**
 * Startup 应用启动时的初始化
 *
 * 检查系统权限并启动后台监控。
 *
 * Parameters:
 *   - ctx: 启动上下文
 *
 * Returns:
 *   - error: 初始化过程中的错误
 */
func (a *App) Startup(ctx context.Context) error {
	// 检查系统权限（仅记录，缺少权限时启动监控会失败并给出明确错误）
	checker := platform.NewPermissionChecker()
	for _, permission := range []platform.PermissionType{
		platform.PermissionAccessibility,
		platform.PermissionInputMonitoring,
	} {
		status := checker.CheckPermission(permission)
		logger.Info("系统权限状态",
			zap.String("permission", permission.String()),
			zap.String("status", status.String()),
		)
	}

	if err := a.engine.Start(); err != nil {
		return fmt.Errorf("启动监控引擎失败: %w", err)
	}

	// 按保留策略清理过期数据
	if days := a.config.Storage.Retention.EventsDays; days > 0 {
		cutoff := time.Now().AddDate(0, 0, -days)
		if deleted, err := a.repository.DeleteOlderThan(cutoff); err != nil {
			logger.Warn("清理过期事件失败", zap.Error(err))
		} else if deleted > 0 {
			logger.Info("清理过期事件", zap.Int64("deleted", deleted))
		}
	}

	return nil
}

/**
 * Shutdown 应用关闭时的清理
 *
 * 按相反顺序停止各组件：监控引擎、持久化、事件总线、数据库。
 */
func (a *App) Shutdown() {
	if a.engine != nil && a.engine.IsRunning() {
		_ = a.engine.Stop()
	}

	if a.persistence != nil {
		_ = a.persistence.Stop()
	}

	if a.eventBus != nil {
		_ = a.eventBus.Stop(5 * time.Second)
	}

	if a.db != nil {
		_ = a.db.Close()
	}
}

// ========== 对外能力 ==========

/**
 * RegisterHotkey 注册全局快捷键
 *
 * Parameters:
 *   - hotkey: 快捷键字符串，如 "Cmd+Shift+K"
 *   - callback: 快捷键触发时的回调
 *
 * Returns:
 *   - string: 注册 ID
 *   - error: 错误信息
 */
func (a *App) RegisterHotkey(hotkey string, callback monitor.HotkeyCallback) (string, error) {
	return a.engine.GetKeyboardMonitor().GetHotkeyManager().Register(hotkey, callback)
}

/**
 * Controller 获取键盘控制器
 *
 * 用于合成按键事件（Press/Release/Tap/Type）。
 *
 * Returns: *keyboard.Controller - 键盘控制器
 */
func (a *App) Controller() *keyboard.Controller {
	return a.controller
}

/**
 * EventBus 获取事件总线
 *
 * Returns: *events.EventBus - 事件总线
 */
func (a *App) EventBus() *events.EventBus {
	return a.eventBus
}

/**
 * GetRecentEvents 获取最近的按键事件记录
 *
 * Parameters:
 *   - limit: 返回的最大事件数量
 *
 * Returns:
 *   - []events.Event: 事件列表
 *   - error: 错误信息
 */
func (a *App) GetRecentEvents(limit int) ([]events.Event, error) {
	return a.repository.FindRecent(limit)
}

/**
 * GetStats 获取按键事件统计信息
 *
 * Returns:
 *   - *storage.KeyEventStats: 统计信息
 *   - error: 错误信息
 */
func (a *App) GetStats() (*storage.KeyEventStats, error) {
	return a.repository.GetStats()
}
