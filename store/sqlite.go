package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/rushteam/churnkit/core"
)

// SQLiteLog 是 SQLite 实现的预测审计日志，单文件、零运维。
// 每次预测追加一行，供运维排查与离线对账使用。
type SQLiteLog struct {
	db *sql.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS predictions (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	request_id  TEXT NOT NULL,
	customer_id TEXT NOT NULL,
	probability REAL NOT NULL,
	churn       INTEGER NOT NULL,
	tier        TEXT NOT NULL DEFAULT '',
	model_id    TEXT NOT NULL DEFAULT '',
	source      TEXT NOT NULL DEFAULT '',
	created_at  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_predictions_customer ON predictions(customer_id);
CREATE INDEX IF NOT EXISTS idx_predictions_created ON predictions(created_at);
`

// NewSQLiteLog 打开（必要时创建）审计日志数据库。
// path 为 ":memory:" 时使用内存库，适合测试。
func NewSQLiteLog(path string) (*SQLiteLog, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open prediction log: %w", err)
	}
	// modernc 驱动下多连接并发写容易撞锁，审计日志单连接足够
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init prediction log schema: %w", err)
	}
	return &SQLiteLog{db: db}, nil
}

var _ core.PredictionLog = (*SQLiteLog)(nil)

// Append 在一个事务里追加一批记录。
func (l *SQLiteLog) Append(ctx context.Context, records ...*core.PredictionRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin append: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO predictions (request_id, customer_id, probability, churn, tier, model_id, source, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare append: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		if r == nil {
			continue
		}
		createdAt := r.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		churn := 0
		if r.Churn {
			churn = 1
		}
		if _, err := stmt.ExecContext(ctx,
			r.RequestID, r.CustomerID, r.Probability, churn,
			r.Tier, r.ModelID, r.Source, createdAt.UTC().Format(time.RFC3339Nano),
		); err != nil {
			return fmt.Errorf("append prediction %s: %w", r.CustomerID, err)
		}
	}
	return tx.Commit()
}

// Recent 返回最近 n 条记录，按写入顺序倒序。
func (l *SQLiteLog) Recent(ctx context.Context, n int) ([]*core.PredictionRecord, error) {
	if n <= 0 {
		n = 20
	}
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, request_id, customer_id, probability, churn, tier, model_id, source, created_at
		FROM predictions ORDER BY id DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("query recent predictions: %w", err)
	}
	defer rows.Close()

	var out []*core.PredictionRecord
	for rows.Next() {
		var (
			r         core.PredictionRecord
			churn     int
			createdAt string
		)
		if err := rows.Scan(&r.ID, &r.RequestID, &r.CustomerID, &r.Probability,
			&churn, &r.Tier, &r.ModelID, &r.Source, &createdAt); err != nil {
			return nil, fmt.Errorf("scan prediction row: %w", err)
		}
		r.Churn = churn == 1
		if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			r.CreatedAt = t
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}

// Close 关闭数据库。
func (l *SQLiteLog) Close() error {
	return l.db.Close()
}
