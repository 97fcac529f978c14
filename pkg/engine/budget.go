package engine

import "sort"

// Slot 预算分配的一个槽位。
// 槽位对应计划中的一个证据包条目。
type Slot struct {
	// Name 槽位标识（证据包名称）
	Name string
	// Weight 权重（默认 1.0）
	Weight float64
	// Priority 优先级（数值越小越先分配）。nil 表示按权重分配。
	Priority *int
}

// Allocator 预算分配器。
// 把总预算拆分到一组带权重/优先级的槽位。
type Allocator struct{}

// NewAllocator 创建预算分配器
func NewAllocator() *Allocator {
	return &Allocator{}
}

// PartitionByPriority 把槽位下标划分为优先级组和权重组。
// 优先级组按优先级升序排列（同优先级按声明顺序），
// 权重组保持声明顺序。
func (a *Allocator) PartitionByPriority(slots []Slot) (prioritized []int, weighted []int) {
	for i := range slots {
		if slots[i].Priority != nil {
			prioritized = append(prioritized, i)
		} else {
			weighted = append(weighted, i)
		}
	}

	// 稳定排序保证同优先级按声明顺序分配
	sort.SliceStable(prioritized, func(x, y int) bool {
		return *slots[prioritized[x]].Priority < *slots[prioritized[y]].Priority
	})

	return prioritized, weighted
}

// SplitWeighted 按权重比例拆分预算。
//
// 每个槽位分得 total * weight / sum(weights)，向下取整，
// 整数舍入产生的余量归第一个槽位，保证总量精确守恒。
// 返回值与 slots 下标一一对应，各子预算 ≥ 0 且总和 ≤ total。
func (a *Allocator) SplitWeighted(total int, slots []Slot) []int {
	shares := make([]int, len(slots))
	if total <= 0 || len(slots) == 0 {
		return shares
	}

	weightSum := 0.0
	for i := range slots {
		weightSum += a.slotWeight(slots[i])
	}
	if weightSum <= 0 {
		return shares
	}

	assigned := 0
	for i := range slots {
		shares[i] = int(float64(total) * a.slotWeight(slots[i]) / weightSum)
		assigned += shares[i]
	}

	// 舍入余量归第一个槽位
	if remainder := total - assigned; remainder > 0 {
		shares[0] += remainder
	}

	return shares
}

// slotWeight 返回槽位的有效权重（未设置时为 1.0）
func (a *Allocator) slotWeight(s Slot) float64 {
	if s.Weight <= 0 {
		return 1.0
	}
	return s.Weight
}
