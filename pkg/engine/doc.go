// Package engine 提供上下文引擎能力。
//
// 上下文引擎将声明式的上下文计划（ContextDeclaration）装配为
// 受 Token 预算约束的提示词：系统提示、历史消息和用户消息。
// 核心流程为 预算分配 → 证据包解析（检索/扩展/压缩/嵌套递归）→ 装配输出。
package engine
