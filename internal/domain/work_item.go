package domain

import "strings"

// WorkItem 是一次 batch 中的最小工作单元：一行输入对应一个 WorkItem。
//
// 不变量：
// - Index 由过滤后序列中的位置决定，batch 生命周期内不可变
// - Index 是调度与结果之间唯一的关联键
type WorkItem struct {
	Index  int
	Source string
}

// NewWorkItems 把原始输入行（BatchRequest）转换为 WorkItem 序列。
//
// 规则（固定）：
// - 每行先 TrimSpace；空行/纯空白行丢弃，不占用 index
// - 不做去重：重复 URL 仍然各自占用一个 index
func NewWorkItems(lines []string) []WorkItem {
	items := make([]WorkItem, 0, len(lines))
	for _, line := range lines {
		s := strings.TrimSpace(line)
		if s == "" {
			continue
		}
		items = append(items, WorkItem{Index: len(items), Source: s})
	}
	return items
}
