package retrievers

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/easyops/contextengine-go/pkg/engine"
)

// SQLiteRetriever SQLite 词法检索器
//
// 基于 SQLite 的持久化证据检索，按关键字 LIKE 匹配文档内容。
// 结果按 (created_at, id) 稳定排序，保证分页结果确定。
type SQLiteRetriever struct {
	db *sql.DB
}

// NewSQLiteRetriever 创建 SQLite 词法检索器
func NewSQLiteRetriever(dbPath string) (*SQLiteRetriever, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// 测试连接
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	r := &SQLiteRetriever{db: db}

	// 初始化表结构
	if err := r.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}

	return r, nil
}

// initSchema 初始化表结构
func (r *SQLiteRetriever) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		content TEXT NOT NULL,
		metadata TEXT,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_documents_created_at ON documents(created_at);
	`

	_, err := r.db.Exec(query)
	return err
}

// Put 存储文档
func (r *SQLiteRetriever) Put(ctx context.Context, doc Document) error {
	metadata, err := json.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	query := `
	INSERT INTO documents (id, content, metadata, created_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		content = excluded.content,
		metadata = excluded.metadata
	`

	_, err = r.db.ExecContext(ctx, query, doc.ID, doc.Text, string(metadata), time.Now().UnixMilli())
	return err
}

// SupportsPagination 支持分页检索
func (r *SQLiteRetriever) SupportsPagination() bool {
	return true
}

// Retrieve 执行一次词法检索。
// 没有更多结果的 offset 返回零个块而非报错。
func (r *SQLiteRetriever) Retrieve(ctx context.Context, req engine.RetrieverRequest) (*engine.Pack, error) {
	query := `
	SELECT id, content, metadata FROM documents
	WHERE content LIKE ?
	ORDER BY created_at, id
	LIMIT ? OFFSET ?
	`

	limit := req.Limit
	if limit <= 0 {
		limit = 5
	}

	rows, err := r.db.QueryContext(ctx, query, "%"+req.Query+"%", limit, req.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var blocks []engine.PackBlock
	for rows.Next() {
		var id, content string
		var metadataStr sql.NullString

		if err := rows.Scan(&id, &content, &metadataStr); err != nil {
			return nil, err
		}

		var metadata map[string]interface{}
		if metadataStr.Valid && metadataStr.String != "" {
			if err := json.Unmarshal([]byte(metadataStr.String), &metadata); err != nil {
				continue // 跳过无效记录
			}
		}

		blocks = append(blocks, engine.PackBlock{
			EvidenceItemID: id,
			Text:           content,
			Metadata:       metadata,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return engine.BuildPack(blocks), nil
}

// Close 关闭连接
func (r *SQLiteRetriever) Close() error {
	return r.db.Close()
}

// 编译时接口检查
var _ engine.Retriever = (*SQLiteRetriever)(nil)
var _ engine.PaginationSupporter = (*SQLiteRetriever)(nil)
