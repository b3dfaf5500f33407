package domain

import (
	"encoding/json"
	"sort"
	"time"
)

// StatusPending 仅用于“运行中”读取结果表时尚未完成的槽位（Outcome 本身从不是 pending）。
const StatusPending = "pending"

// PendingMessage 是 pending 槽位在导出层的说明文字。
const PendingMessage = "Pending"

// RunReport 是对外稳定输出（stdout JSON/YAML、report 文件）的结构。
type RunReport struct {
	RunID       string `json:"run_id" yaml:"run_id"`
	Input       string `json:"input" yaml:"input"`
	Concurrency int    `json:"concurrency" yaml:"concurrency"`

	StartedAt  time.Time `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time `json:"finished_at" yaml:"finished_at"`

	Summary ReportSummary `json:"summary" yaml:"summary"`
	Items   []Outcome     `json:"items" yaml:"items"`
}

type ReportSummary struct {
	Total    int `json:"total" yaml:"total"`
	OK       int `json:"ok" yaml:"ok"`
	NotFound int `json:"not_found" yaml:"not_found"`
	Failed   int `json:"failed" yaml:"failed"`
	Pending  int `json:"pending" yaml:"pending"`
}

// Finalize 做三件事：
// 1) 时间统一为 UTC（确保 JSON 为 RFC3339 且后缀 Z）
// 2) items 稳定排序：按 index 升序（与输入顺序一致，与完成顺序无关）
// 3) summary 由 items 计算得出
func (r *RunReport) Finalize() {
	r.StartedAt = r.StartedAt.UTC()
	r.FinishedAt = r.FinishedAt.UTC()

	sort.SliceStable(r.Items, func(i, j int) bool {
		return r.Items[i].Index < r.Items[j].Index
	})

	s := ReportSummary{Total: len(r.Items)}
	for _, it := range r.Items {
		switch it.Status {
		case StatusOK:
			s.OK++
		case StatusNotFound:
			s.NotFound++
		case StatusFailed:
			s.Failed++
		case StatusPending:
			s.Pending++
		}
	}
	r.Summary = s
}

// MarshalJSON 仅用于集中约束输出的稳定性（避免未来不小心引入非确定字段）。
// 当前只是透传 encoding/json 的默认行为。
func (r RunReport) MarshalJSON() ([]byte, error) {
	type Alias RunReport
	if r.Items == nil {
		r.Items = []Outcome{}
	}
	return json.Marshal(Alias(r))
}
