package retrievers

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/easyops/contextengine-go/pkg/engine"
)

// Neo4jRetriever Neo4j 图检索器
//
// 在实体节点上做名称/描述匹配检索，返回实体描述文本作为证据块。
type Neo4jRetriever struct {
	driver neo4j.DriverWithContext
}

// Neo4jConfig Neo4j 连接配置
type Neo4jConfig struct {
	URI      string
	Username string
	Password string
}

// NewNeo4jRetriever 创建 Neo4j 图检索器
func NewNeo4jRetriever(config Neo4jConfig) (*Neo4jRetriever, error) {
	if config.URI == "" {
		config.URI = "bolt://localhost:7687"
	}

	auth := neo4j.NoAuth()
	if config.Username != "" && config.Password != "" {
		auth = neo4j.BasicAuth(config.Username, config.Password, "")
	}

	driver, err := neo4j.NewDriverWithContext(config.URI, auth)
	if err != nil {
		return nil, fmt.Errorf("failed to create driver: %w", err)
	}

	// 验证连接
	if err := driver.VerifyConnectivity(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to verify connectivity: %w", err)
	}

	return &Neo4jRetriever{driver: driver}, nil
}

// SupportsPagination 支持分页检索
func (r *Neo4jRetriever) SupportsPagination() bool {
	return true
}

// Retrieve 执行一次图检索。
// 结果按 (name, id) 稳定排序，保证分页结果确定。
func (r *Neo4jRetriever) Retrieve(ctx context.Context, req engine.RetrieverRequest) (*engine.Pack, error) {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	query := `
	MATCH (e:Entity)
	WHERE toLower(e.name) CONTAINS toLower($query)
	   OR toLower(e.description) CONTAINS toLower($query)
	RETURN e.id AS id, e.name AS name, e.type AS type, e.description AS description
	ORDER BY e.name, e.id
	SKIP $offset LIMIT $limit
	`

	limit := req.Limit
	if limit <= 0 {
		limit = 5
	}

	result, err := session.Run(ctx, query, map[string]interface{}{
		"query":  req.Query,
		"offset": req.Offset,
		"limit":  limit,
	})
	if err != nil {
		return nil, err
	}

	var blocks []engine.PackBlock
	for result.Next(ctx) {
		record := result.Record()

		id, _ := record.Get("id")
		name, _ := record.Get("name")
		entityType, _ := record.Get("type")
		description, _ := record.Get("description")

		text := asString(name)
		if desc := asString(description); desc != "" {
			text = fmt.Sprintf("%s: %s", text, desc)
		}

		blocks = append(blocks, engine.PackBlock{
			EvidenceItemID: asString(id),
			Text:           text,
			Metadata: map[string]interface{}{
				"type": asString(entityType),
			},
		})
	}
	if err := result.Err(); err != nil {
		return nil, err
	}

	return engine.BuildPack(blocks), nil
}

// Close 关闭驱动连接
func (r *Neo4jRetriever) Close(ctx context.Context) error {
	return r.driver.Close(ctx)
}

// asString 容忍 nil 的字符串转换
func asString(v interface{}) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

// 编译时接口检查
var _ engine.Retriever = (*Neo4jRetriever)(nil)
var _ engine.PaginationSupporter = (*Neo4jRetriever)(nil)
