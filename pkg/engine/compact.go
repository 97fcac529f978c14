package engine

import (
	"context"
	"strings"
)

// CompactorTruncate 内置截断压缩器的注册名称
const CompactorTruncate = "truncate"

// TruncateCompactor 通过截断超出预算的内容进行压缩。
// 取估算值不超过预算的最大前缀，优先保持行边界完整。
type TruncateCompactor struct {
	estimator TokenEstimator
}

// NewTruncateCompactor 创建新的 TruncateCompactor
func NewTruncateCompactor(estimator TokenEstimator) *TruncateCompactor {
	if estimator == nil {
		estimator = DefaultTokenEstimator()
	}
	return &TruncateCompactor{estimator: estimator}
}

// Compact 截断文本以适应 Token 预算
func (c *TruncateCompactor) Compact(_ context.Context, text string, targetTokens int) (string, error) {
	if targetTokens <= 0 {
		return "", nil
	}
	if c.estimator.Estimate(text) <= targetTokens {
		return text, nil
	}

	// 逐行截断直到符合预算
	lines := strings.Split(text, "\n")
	result := make([]string, 0, len(lines))
	usedTokens := 0

	for _, line := range lines {
		lineTokens := c.estimator.Estimate(line + "\n")
		if usedTokens+lineTokens > targetTokens {
			break
		}
		result = append(result, line)
		usedTokens += lineTokens
	}

	if len(result) > 0 {
		return strings.Join(result, "\n"), nil
	}

	// 第一行已超预算时退化为行内字符前缀截断
	return c.truncateLine(lines[0], targetTokens), nil
}

// truncateLine 二分查找估算值不超过预算的最大字符前缀
func (c *TruncateCompactor) truncateLine(line string, targetTokens int) string {
	runes := []rune(line)
	lo, hi := 0, len(runes)

	for lo < hi {
		mid := (lo + hi + 1) / 2
		if c.estimator.Estimate(string(runes[:mid])) <= targetTokens {
			lo = mid
		} else {
			hi = mid - 1
		}
	}

	return string(runes[:lo])
}

// NoOpCompactor 是一个不做任何操作的压缩器
type NoOpCompactor struct{}

// NewNoOpCompactor 创建新的 NoOpCompactor
func NewNoOpCompactor() *NoOpCompactor {
	return &NoOpCompactor{}
}

// Compact 原样返回文本
func (c *NoOpCompactor) Compact(_ context.Context, text string, _ int) (string, error) {
	return text, nil
}

// 编译时接口检查
var _ Compactor = (*TruncateCompactor)(nil)
var _ Compactor = (*NoOpCompactor)(nil)
