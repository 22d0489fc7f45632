/**
 * Package config 提供配置管理功能
 *
 * 负责加载和管理应用的配置信息
 */

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

/**
 * Duration 支持 "5s"/"1h" 写法的时长字段
 */
type Duration time.Duration

/**
 * UnmarshalYAML 解析时长字符串
 */
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("无效的时长格式 %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

/**
 * Std 转换为标准库时长类型
 */
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

/**
 * Config 应用配置结构体
 *
 * 包含应用的所有可配置参数
 */
type Config struct {
	// Application 应用基本配置
	Application ApplicationConfig `yaml:"application"`

	// Monitor 监控配置
	Monitor MonitorConfig `yaml:"monitor"`

	// Storage 存储配置
	Storage StorageConfig `yaml:"storage"`

	// Logging 日志配置
	Logging LoggingConfig `yaml:"logging"`
}

/**
 * ApplicationConfig 应用基本配置
 */
type ApplicationConfig struct {
	/** 应用名称 */
	Name string `yaml:"name"`

	/** 应用版本 */
	Version string `yaml:"version"`

	/** 是否启用调试模式 */
	Debug bool `yaml:"debug"`
}

/**
 * MonitorConfig 监控配置
 */
type MonitorConfig struct {
	/** 键盘监控配置 */
	Keyboard KeyboardConfig `yaml:"keyboard"`

	/** 持久化监控事件的类型列表 */
	PersistEventTypes []string `yaml:"persist_event_types"`
}

/**
 * KeyboardConfig 键盘监控配置
 */
type KeyboardConfig struct {
	/** 是否启用拦截模式（吞掉命中的快捷键） */
	Intercept bool `yaml:"intercept"`

	/** 需要拦截的快捷键列表，如 "Cmd+Shift+Space" */
	SuppressHotkeys []string `yaml:"suppress_hotkeys"`

	/** 每秒最大事件数（0 表示不限制） */
	MaxEventsPerSecond int `yaml:"max_events_per_second"`
}

/**
 * StorageConfig 存储配置
 */
type StorageConfig struct {
	/** SQLite 配置 */
	SQLite SQLiteConfig `yaml:"sqlite"`

	/** 批量写入配置 */
	BatchWriter BatchWriterConfig `yaml:"batch_writer"`

	/** 数据保留策略 */
	Retention RetentionConfig `yaml:"retention"`
}

/**
 * SQLiteConfig SQLite 配置
 */
type SQLiteConfig struct {
	/** 数据库文件路径 */
	Path string `yaml:"path"`

	/** 最大打开连接数 */
	MaxOpenConns int `yaml:"max_open_conns"`

	/** 最大空闲连接数 */
	MaxIdleConns int `yaml:"max_idle_conns"`

	/** 连接最大生命周期 */
	ConnMaxLifetime Duration `yaml:"conn_max_lifetime"`
}

/**
 * BatchWriterConfig 批量写入配置
 */
type BatchWriterConfig struct {
	/** 批量写入阈值 */
	BatchSize int `yaml:"batch_size"`

	/** 定时刷新间隔 */
	FlushInterval Duration `yaml:"flush_interval"`

	/** 事件通道缓冲区大小 */
	EventBuffer int `yaml:"event_buffer"`
}

/**
 * RetentionConfig 数据保留配置
 */
type RetentionConfig struct {
	/** 事件保留天数（0 表示永久保留） */
	EventsDays int `yaml:"events_days"`
}

/**
 * LoggingConfig 日志配置
 */
type LoggingConfig struct {
	/** 日志级别 */
	Level string `yaml:"level"`

	/** 日志文件路径（为空时仅输出到控制台） */
	Path string `yaml:"path"`

	/** 单个日志文件最大大小（MB） */
	MaxSize int `yaml:"max_size"`

	/** 最大备份文件数 */
	MaxBackups int `yaml:"max_backups"`

	/** 最大保留天数 */
	MaxAge int `yaml:"max_age"`

	/** 是否压缩旧日志 */
	Compress bool `yaml:"compress"`
}

/**
 * Load 加载配置文件
 *
 * 从默认路径（~/.keyflow/config.yaml）加载配置文件。
 * 文件不存在时返回默认配置。
 *
 * Returns:
 *   - *Config: 加载的配置
 *   - error: 错误信息
 */
func Load() (*Config, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("获取用户主目录失败: %w", err)
	}

	return LoadFrom(filepath.Join(homeDir, ".keyflow", "config.yaml"))
}

/**
 * LoadFrom 从指定路径加载配置文件
 *
 * 文件不存在时返回默认配置；存在但解析失败时返回错误。
 * 用户只需要写出想覆盖的字段，其余字段保持默认值。
 *
 * Parameters:
 *   - path: 配置文件路径
 *
 * Returns:
 *   - *Config: 加载的配置
 *   - error: 错误信息
 */
func LoadFrom(path string) (*Config, error) {
	config := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	expandEnvVars(config)

	return config, nil
}

/**
 * Default 返回默认配置
 *
 * Returns: *Config - 默认配置
 */
func Default() *Config {
	return &Config{
		Application: ApplicationConfig{
			Name:    "KeyFlow",
			Version: "1.0.0",
		},
		Monitor: MonitorConfig{
			Keyboard: KeyboardConfig{
				MaxEventsPerSecond: 100,
			},
			PersistEventTypes: []string{"key_press", "key_release", "hotkey"},
		},
		Storage: StorageConfig{
			SQLite: SQLiteConfig{
				Path:            "${HOME}/.keyflow/keyflow.db",
				MaxOpenConns:    4,
				MaxIdleConns:    2,
				ConnMaxLifetime: Duration(time.Hour),
			},
			BatchWriter: BatchWriterConfig{
				BatchSize:     100,
				FlushInterval: Duration(5 * time.Second),
				EventBuffer:   1000,
			},
			Retention: RetentionConfig{
				EventsDays: 30,
			},
		},
		Logging: LoggingConfig{
			Level:      "info",
			MaxSize:    100,
			MaxBackups: 3,
			MaxAge:     7,
		},
	}
}

/**
 * expandEnvVars 展开环境变量
 *
 * 替换路径字段中的环境变量占位符，如 ${HOME}
 *
 * Parameters:
 *   - config: 配置对象
 */
func expandEnvVars(config *Config) {
	config.Storage.SQLite.Path = os.ExpandEnv(config.Storage.SQLite.Path)
	config.Logging.Path = os.ExpandEnv(config.Logging.Path)
}
