// Package results 持有一次 batch 的按 index 写入的结果表，以及基于它的进度读数。
package results

import (
	"fmt"
	"sync/atomic"

	"github.com/John-Robertt/labelscan/internal/domain"
)

// Table 是定长、按 index 写入的结果表。
//
// 不变量：
// - 长度 = batch 大小，创建时所有槽位都是 absent
// - 每个槽位 absent -> present 恰好一次；present 后不再改变
// - 任意时刻可被并发读取（Get/Rows/Progress 与 Set 并发安全）
type Table struct {
	slots  []atomic.Pointer[domain.Outcome]
	filled atomic.Int64
}

// NewTable 预分配 n 个 absent 槽位。
func NewTable(n int) *Table {
	if n < 0 {
		n = 0
	}
	return &Table{slots: make([]atomic.Pointer[domain.Outcome], n)}
}

// Len 返回表长度（即 total）。
func (t *Table) Len() int { return len(t.slots) }

// Set 把 o 写入 o.Index 槽位。
// 越界或重复写入返回错误，且不改变表内容。
func (t *Table) Set(o domain.Outcome) error {
	if o.Index < 0 || o.Index >= len(t.slots) {
		return fmt.Errorf("results: index %d 越界（len=%d）", o.Index, len(t.slots))
	}
	v := o
	if !t.slots[o.Index].CompareAndSwap(nil, &v) {
		return fmt.Errorf("results: index %d 已写入，禁止重复写入", o.Index)
	}
	// 计数在槽位发布之后递增：Progress 读到的 processed 永远不超过实际 present 数。
	t.filled.Add(1)
	return nil
}

// Get 返回 index 槽位的结果；absent 或越界返回 false。
func (t *Table) Get(index int) (domain.Outcome, bool) {
	if index < 0 || index >= len(t.slots) {
		return domain.Outcome{}, false
	}
	p := t.slots[index].Load()
	if p == nil {
		return domain.Outcome{}, false
	}
	return *p, true
}

// Filled 返回已写入的槽位数。
func (t *Table) Filled() int { return int(t.filled.Load()) }

// Rows 按 index 顺序返回当前表的快照。
// absent 槽位以 pending 占位（Status=pending，token=N/A），不会被省略。
func (t *Table) Rows() []domain.Outcome {
	rows := make([]domain.Outcome, len(t.slots))
	for i := range t.slots {
		if p := t.slots[i].Load(); p != nil {
			rows[i] = *p
			continue
		}
		rows[i] = domain.Outcome{
			Index:   i,
			Token:   domain.TokenNotFound,
			Status:  domain.StatusPending,
			Failure: "",
		}
	}
	return rows
}
