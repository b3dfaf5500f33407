package results

import "fmt"

// Progress 是某一时刻结果表填充状态的读数（派生值，不单独存储）。
//
// 不变量：0 <= Processed <= Total；Processed == Total 是唯一的完成条件。
type Progress struct {
	Processed int `json:"processed"`
	Total     int `json:"total"`
}

// Snapshot 读取 t 当前的填充状态；可在写入进行中随时调用。
func Snapshot(t *Table) Progress {
	if t == nil {
		return Progress{}
	}
	p := Progress{Processed: t.Filled(), Total: t.Len()}
	if p.Processed > p.Total {
		p.Processed = p.Total
	}
	return p
}

// Done 表示所有槽位都已写入。空表视为未开始，不算完成。
func (p Progress) Done() bool { return p.Total > 0 && p.Processed == p.Total }

// Percent 返回 floor(100*processed/total)，空表为 0。
func (p Progress) Percent() int {
	if p.Total <= 0 {
		return 0
	}
	return p.Processed * 100 / p.Total
}

// Status 返回给展示层用的状态文字。
func (p Progress) Status() string {
	switch {
	case p.Total == 0:
		return "Idle"
	case p.Processed == 0:
		return fmt.Sprintf("Started processing %d URLs...", p.Total)
	case p.Processed >= p.Total:
		return "Completed"
	default:
		return fmt.Sprintf("Processing %d/%d", p.Processed, p.Total)
	}
}
