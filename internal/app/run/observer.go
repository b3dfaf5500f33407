package run

import (
	"time"

	"github.com/John-Robertt/labelscan/internal/config"
	"github.com/John-Robertt/labelscan/internal/domain"
	"github.com/John-Robertt/labelscan/internal/results"
)

// Observer 用于把“运行进度/条目结果”从核心执行流程中解耦出来。
//
// 约束：
// - run 包只负责发事件，不做任何输出（避免污染 stdout 的 report 契约）。
// - OnItemDone 由调度器的汇总 goroutine 串行调用；实现仍需与自身的 ticker 等并发安全。
type Observer interface {
	// OnStart 在开始处理前调用（total 为过滤后的 WorkItem 数）。
	OnStart(eff config.Effective, total int)
	// OnItemDone 在某个条目完成时调用；progress 已包含该条目。
	OnItemDone(progress results.Progress, o domain.Outcome, dur time.Duration)
	// OnFinish 在 RunReport 组装完成后调用。
	OnFinish(rr domain.RunReport)
}
