// Package auditlog 用 sqlite 落盘共享审计: 连接会话、阶段变化与未映射按键
package auditlog

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

var auditDB *sql.DB

// InitAuditDB 初始化数据库表结构
func InitAuditDB(dbPath string) error {
	var err error
	auditDB, err = sql.Open("sqlite", dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		peer TEXT,
		connected_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		disconnected_at DATETIME
	);
	CREATE TABLE IF NOT EXISTS share_events (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		phase TEXT,
		detail TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE TABLE IF NOT EXISTS unmapped_keys (
		code INTEGER PRIMARY KEY,
		count INTEGER DEFAULT 0,
		last_seen DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`
	_, err = auditDB.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	return nil
}

// RecordSessionStart 记录 peer 接入
func RecordSessionStart(id, peer string) {
	if auditDB != nil {
		auditDB.Exec(
			"INSERT OR IGNORE INTO sessions(id, peer) VALUES (?, ?)",
			id, peer,
		)
	}
}

// RecordSessionEnd 补记断开时间
func RecordSessionEnd(id string) {
	if auditDB != nil {
		auditDB.Exec(
			"UPDATE sessions SET disconnected_at = CURRENT_TIMESTAMP WHERE id = ?",
			id,
		)
	}
}

// RecordPhase 记录共享状态机的一次变化
func RecordPhase(phase, detail string) {
	if auditDB != nil {
		auditDB.Exec(
			"INSERT INTO share_events(phase, detail) VALUES (?, ?)",
			phase, detail,
		)
	}
}

// RecordUnmappedKey 无 HID usage 的 evdev code, 按 code 累加
func RecordUnmappedKey(code uint16) {
	if auditDB != nil {
		auditDB.Exec(
			`INSERT INTO unmapped_keys(code, count) VALUES (?, 1)
			 ON CONFLICT(code) DO UPDATE SET count = count + 1, last_seen = CURRENT_TIMESTAMP`,
			code,
		)
	}
}

// UnmappedCount 查询某个 code 的累计次数, 没记录时返回 0
func UnmappedCount(code uint16) int {
	if auditDB == nil {
		return 0
	}
	var n int
	err := auditDB.QueryRow(
		"SELECT count FROM unmapped_keys WHERE code = ?", code,
	).Scan(&n)
	if err != nil {
		return 0
	}
	return n
}

// CloseAuditDB 关闭数据库, 进程退出前调用
func CloseAuditDB() {
	if auditDB != nil {
		auditDB.Close()
		auditDB = nil
	}
}
