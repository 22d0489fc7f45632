package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/chenyang-zz/keyflow/pkg/events"
	"github.com/chenyang-zz/keyflow/pkg/logger"
)

/**
 * KeyEventRepository 按键事件存储接口
 *
 * 定义按键事件持久化的所有操作
 */
type KeyEventRepository interface {
	// Save 保存单个事件
	Save(event events.Event) error

	// SaveBatch 批量保存事件（性能优化）
	SaveBatch(eventList []events.Event) error

	// FindByTimeRange 按时间范围查询
	FindByTimeRange(start, end time.Time) ([]events.Event, error)

	// FindRecent 查询最近的事件
	FindRecent(limit int) ([]events.Event, error)

	// FindByType 按类型查询
	FindByType(eventType events.EventType, limit int) ([]events.Event, error)

	// DeleteOlderThan 删除旧数据
	DeleteOlderThan(cutoff time.Time) (int64, error)

	// GetStats 获取统计信息
	GetStats() (*KeyEventStats, error)
}

/**
 * KeyEventStats 按键事件统计信息
 */
type KeyEventStats struct {
	// TotalCount 总事件数
	TotalCount int64

	// CountByType 按类型统计
	CountByType map[string]int64

	// OldestEvent 最旧的事件时间
	OldestEvent *time.Time

	// NewestEvent 最新的事件时间
	NewestEvent *time.Time
}

/**
 * SQLiteKeyEventRepository SQLite 按键事件仓储实现
 */
type SQLiteKeyEventRepository struct {
	db *sql.DB
}

/**
 * NewSQLiteKeyEventRepository 创建 SQLite 按键事件仓储
 *
 * Parameters:
 *   - db: 数据库连接
 *
 * Returns: *SQLiteKeyEventRepository - 仓储实例
 */
func NewSQLiteKeyEventRepository(db *sql.DB) *SQLiteKeyEventRepository {
	return &SQLiteKeyEventRepository{db: db}
}

const insertKeyEventSQL = `
	INSERT INTO key_events (uuid, type, timestamp, key, char, vk, is_media, modifiers, data)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`

/**
 * Save 保存单个事件
 *
 * Parameters:
 *   - event: 事件对象
 *
 * Returns: error - 错误信息
 */
func (r *SQLiteKeyEventRepository) Save(event events.Event) error {
	args, err := keyEventArgs(event)
	if err != nil {
		return err
	}

	if _, err := r.db.Exec(insertKeyEventSQL, args...); err != nil {
		logger.Error("保存按键事件失败",
			zap.String("event_id", event.ID),
			zap.Error(err),
		)
		return fmt.Errorf("保存按键事件失败: %w", err)
	}

	return nil
}

/**
 * SaveBatch 批量保存事件
 *
 * 使用事务和预处理语句优化批量写入性能
 *
 * Parameters:
 *   - eventList: 事件数组
 *
 * Returns: error - 错误信息
 */
func (r *SQLiteKeyEventRepository) SaveBatch(eventList []events.Event) error {
	if len(eventList) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("开启事务失败: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(insertKeyEventSQL)
	if err != nil {
		return fmt.Errorf("准备语句失败: %w", err)
	}
	defer stmt.Close()

	for _, event := range eventList {
		args, err := keyEventArgs(event)
		if err != nil {
			return err
		}
		if _, err := stmt.Exec(args...); err != nil {
			return fmt.Errorf("批量保存按键事件失败: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("提交事务失败: %w", err)
	}

	return nil
}

/**
 * keyEventArgs 把事件展开为插入参数
 *
 * 事件数据中的按键字段落入独立列便于查询，完整数据另存 JSON
 */
func keyEventArgs(event events.Event) ([]interface{}, error) {
	dataJSON, err := json.Marshal(event.Data)
	if err != nil {
		return nil, fmt.Errorf("序列化事件数据失败: %w", err)
	}

	var key, char string
	vk := -1
	isMedia := false
	var modifiers uint64

	if event.Data != nil {
		if v, ok := event.Data["key"].(string); ok {
			key = v
		}
		if v, ok := event.Data["char"].(string); ok {
			char = v
		}
		if v, ok := event.Data["vk"].(int); ok {
			vk = v
		}
		if v, ok := event.Data["is_media"].(bool); ok {
			isMedia = v
		}
		if v, ok := event.Data["modifiers"].(uint64); ok {
			modifiers = v
		}
	}

	return []interface{}{
		event.ID,
		string(event.Type),
		event.Timestamp,
		key,
		char,
		vk,
		isMedia,
		int64(modifiers),
		string(dataJSON),
	}, nil
}

/**
 * FindByTimeRange 按时间范围查询
 *
 * Parameters:
 *   - start: 开始时间
 *   - end: 结束时间
 *
 * Returns: []events.Event - 事件列表, error - 错误信息
 */
func (r *SQLiteKeyEventRepository) FindByTimeRange(start, end time.Time) ([]events.Event, error) {
	rows, err := r.db.Query(`
		SELECT uuid, type, timestamp, data FROM key_events
		WHERE timestamp >= ? AND timestamp <= ?
		ORDER BY timestamp ASC
	`, start, end)
	if err != nil {
		return nil, fmt.Errorf("按时间范围查询失败: %w", err)
	}
	defer rows.Close()

	return scanKeyEvents(rows)
}

/**
 * FindRecent 查询最近的事件
 *
 * Parameters:
 *   - limit: 最大返回数量
 *
 * Returns: []events.Event - 事件列表（按时间倒序）, error - 错误信息
 */
func (r *SQLiteKeyEventRepository) FindRecent(limit int) ([]events.Event, error) {
	rows, err := r.db.Query(`
		SELECT uuid, type, timestamp, data FROM key_events
		ORDER BY timestamp DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("查询最近事件失败: %w", err)
	}
	defer rows.Close()

	return scanKeyEvents(rows)
}

/**
 * FindByType 按类型查询
 *
 * Parameters:
 *   - eventType: 事件类型
 *   - limit: 最大返回数量
 *
 * Returns: []events.Event - 事件列表（按时间倒序）, error - 错误信息
 */
func (r *SQLiteKeyEventRepository) FindByType(eventType events.EventType, limit int) ([]events.Event, error) {
	rows, err := r.db.Query(`
		SELECT uuid, type, timestamp, data FROM key_events
		WHERE type = ?
		ORDER BY timestamp DESC
		LIMIT ?
	`, string(eventType), limit)
	if err != nil {
		return nil, fmt.Errorf("按类型查询失败: %w", err)
	}
	defer rows.Close()

	return scanKeyEvents(rows)
}

/**
 * scanKeyEvents 扫描查询结果为事件列表
 */
func scanKeyEvents(rows *sql.Rows) ([]events.Event, error) {
	var result []events.Event

	for rows.Next() {
		var (
			event    events.Event
			dataJSON sql.NullString
		)
		if err := rows.Scan(&event.ID, &event.Type, &event.Timestamp, &dataJSON); err != nil {
			return nil, fmt.Errorf("扫描事件行失败: %w", err)
		}

		if dataJSON.Valid && dataJSON.String != "" {
			if err := json.Unmarshal([]byte(dataJSON.String), &event.Data); err != nil {
				logger.Warn("反序列化事件数据失败",
					zap.String("event_id", event.ID),
					zap.Error(err),
				)
			}
		}

		result = append(result, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("遍历事件行失败: %w", err)
	}

	return result, nil
}

/**
 * DeleteOlderThan 删除旧数据
 *
 * Parameters:
 *   - cutoff: 截止时间，早于此时间的事件被删除
 *
 * Returns: int64 - 删除的行数, error - 错误信息
 */
func (r *SQLiteKeyEventRepository) DeleteOlderThan(cutoff time.Time) (int64, error) {
	result, err := r.db.Exec("DELETE FROM key_events WHERE timestamp < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("删除旧事件失败: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("获取删除行数失败: %w", err)
	}

	if deleted > 0 {
		logger.Info("清理旧按键事件",
			zap.Int64("deleted", deleted),
			zap.Time("cutoff", cutoff),
		)
	}

	return deleted, nil
}

/**
 * GetStats 获取统计信息
 *
 * Returns: *KeyEventStats - 统计信息, error - 错误信息
 */
func (r *SQLiteKeyEventRepository) GetStats() (*KeyEventStats, error) {
	stats := &KeyEventStats{
		CountByType: make(map[string]int64),
	}

	if err := r.db.QueryRow("SELECT COUNT(*) FROM key_events").Scan(&stats.TotalCount); err != nil {
		return nil, fmt.Errorf("统计事件总数失败: %w", err)
	}

	rows, err := r.db.Query("SELECT type, COUNT(*) FROM key_events GROUP BY type")
	if err != nil {
		return nil, fmt.Errorf("按类型统计失败: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			eventType string
			count     int64
		)
		if err := rows.Scan(&eventType, &count); err != nil {
			return nil, fmt.Errorf("扫描类型统计失败: %w", err)
		}
		stats.CountByType[eventType] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("遍历类型统计失败: %w", err)
	}

	if stats.TotalCount > 0 {
		// MIN/MAX 聚合会丢失列的 DATETIME 声明类型，驱动无法转换为
		// time.Time，改用 ORDER BY + LIMIT 查询边界行
		var oldest, newest time.Time
		if err := r.db.QueryRow(
			"SELECT timestamp FROM key_events ORDER BY timestamp ASC LIMIT 1",
		).Scan(&oldest); err != nil {
			return nil, fmt.Errorf("查询最早事件时间失败: %w", err)
		}
		if err := r.db.QueryRow(
			"SELECT timestamp FROM key_events ORDER BY timestamp DESC LIMIT 1",
		).Scan(&newest); err != nil {
			return nil, fmt.Errorf("查询最新事件时间失败: %w", err)
		}
		stats.OldestEvent = &oldest
		stats.NewestEvent = &newest
	}

	return stats, nil
}
