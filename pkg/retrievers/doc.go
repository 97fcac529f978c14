// Package retrievers 提供上下文引擎的参考检索器实现。
//
// 包含内存扫描、SQLite 词法检索和 Neo4j 图检索三种实现，
// 均支持以递增 offset 的分页调用。
package retrievers
