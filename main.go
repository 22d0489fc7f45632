/**
 * KeyFlow 主入口文件
 *
 * 这是应用的启动点，负责：
 * 1. 加载应用配置并初始化日志
 * 2. 装配并启动 App
 * 3. 等待退出信号并优雅关闭
 */

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/chenyang-zz/keyflow/internal/app"
	"github.com/chenyang-zz/keyflow/internal/infrastructure/config"
	"github.com/chenyang-zz/keyflow/internal/monitor"
	"github.com/chenyang-zz/keyflow/pkg/logger"
)

/**
 * 主函数
 *
 * 应用的入口点，负责初始化并启动 KeyFlow
 */
func main() {
	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("加载配置失败: " + err.Error() + "\n")
		os.Exit(1)
	}

	// 初始化日志系统
	if err := logger.InitLoggerWithFile(logger.FileConfig{
		Path:       cfg.Logging.Path,
		MaxSizeMB:  cfg.Logging.MaxSize,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAge,
		Compress:   cfg.Logging.Compress,
	}); err != nil {
		os.Stderr.WriteString("初始化日志失败: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("启动 KeyFlow",
		zap.String("name", cfg.Application.Name),
		zap.String("version", cfg.Application.Version),
	)

	// 装配应用
	keyflowApp, err := app.New(cfg)
	if err != nil {
		logger.Fatal("装配应用失败", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := keyflowApp.Startup(ctx); err != nil {
		keyflowApp.Shutdown()
		logger.Fatal("启动应用失败", zap.Error(err))
	}

	// 示例：注册全局快捷键，触发时打印统计信息
	if _, err := keyflowApp.RegisterHotkey("Cmd+Shift+K", func(reg *monitor.HotkeyRegistration) {
		if stats, err := keyflowApp.GetStats(); err == nil {
			logger.Info("按键事件统计",
				zap.Int64("total", stats.TotalCount),
			)
		}
	}); err != nil {
		logger.Warn("注册快捷键失败", zap.Error(err))
	}

	// 等待退出信号
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh

	logger.Info("收到退出信号，正在关闭", zap.String("signal", sig.String()))
	keyflowApp.Shutdown()
	logger.Info("KeyFlow 已退出")
}
