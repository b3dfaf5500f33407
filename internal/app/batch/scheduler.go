// Package batch 是整个流程里唯一感知并发的部分：有界 worker pool + 按 index 回填结果表。
package batch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/John-Robertt/labelscan/internal/domain"
	"github.com/John-Robertt/labelscan/internal/results"
)

// HardCap 是有效并发的固定上限。
// 无论用户请求多少 worker，都不会超过它（避免压垮下载目标）。
const HardCap = 6

// Processor 处理单个 WorkItem 并返回它的 Outcome。
//
// 约束：
// - 必须是同步、单条目的处理；不得自行启动并发
// - 任何失败都应转成失败态 Outcome 返回；panic 会被 Run 兜底为 unexpected
type Processor interface {
	Process(ctx context.Context, item domain.WorkItem) domain.Outcome
}

// ProcessorFunc 让普通函数满足 Processor。
type ProcessorFunc func(ctx context.Context, item domain.WorkItem) domain.Outcome

func (f ProcessorFunc) Process(ctx context.Context, item domain.WorkItem) domain.Outcome {
	return f(ctx, item)
}

// Event 是每个条目完成时的通知。
// 到达顺序是完成顺序（不是输入顺序）；需要展示顺序的消费者必须按 index 读表。
type Event struct {
	Outcome  domain.Outcome
	Elapsed  time.Duration
	Progress results.Progress
}

// EffectiveConcurrency = min(requested, HardCap, items)，且 items>0 时至少为 1。
func EffectiveConcurrency(requested, items int) int {
	if items <= 0 {
		return 0
	}
	n := requested
	if n < 1 {
		n = 1
	}
	if n > HardCap {
		n = HardCap
	}
	if n > items {
		n = items
	}
	return n
}

// Run 创建新的结果表并执行整个 batch；所有条目都有 Outcome 之后才返回。
func Run(ctx context.Context, items []domain.WorkItem, concurrency int, p Processor, onOutcome func(Event)) (*results.Table, error) {
	tbl := results.NewTable(len(items))
	if err := RunInto(ctx, tbl, items, concurrency, p, onOutcome); err != nil {
		return nil, err
	}
	return tbl, nil
}

// RunInto 与 Run 相同，但写入调用方预先创建的表（便于在运行期间并发轮询进度）。
//
// 语义：
// - 每个 WorkItem 恰好被一个 worker 处理；单条失败不影响、不阻塞其他条目
// - 每个 Outcome 到达时先写表（按 outcome.Index），再同步调用 onOutcome
// - ctx 取消后，尚未开始的条目直接产生 canceled Outcome（表仍然会被填满）
// - 没有整体超时；唯一的超时是 Processor 内部的单条下载超时
func RunInto(ctx context.Context, tbl *results.Table, items []domain.WorkItem, concurrency int, p Processor, onOutcome func(Event)) error {
	if tbl == nil {
		return fmt.Errorf("batch: 结果表为空")
	}
	if p == nil {
		return fmt.Errorf("batch: processor 为空")
	}
	if err := validate(tbl, items); err != nil {
		return err
	}
	if tbl.Filled() != 0 {
		return fmt.Errorf("batch: 结果表必须是新建的（已写入 %d 条）", tbl.Filled())
	}
	if len(items) == 0 {
		return nil
	}

	workers := EffectiveConcurrency(concurrency, len(items))

	type done struct {
		out domain.Outcome
		dur time.Duration
	}

	jobs := make(chan domain.WorkItem)
	outs := make(chan done, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for it := range jobs {
				started := time.Now()
				o := execute(ctx, p, it)
				outs <- done{out: o, dur: time.Since(started)}
			}
		}()
	}

	go func() {
		for _, it := range items {
			jobs <- it
		}
		close(jobs)
		wg.Wait()
		close(outs)
	}()

	for d := range outs {
		// validate 已保证 index 唯一且在范围内，这里的 Set 不会失败。
		_ = tbl.Set(d.out)
		if onOutcome != nil {
			onOutcome(Event{Outcome: d.out, Elapsed: d.dur, Progress: results.Snapshot(tbl)})
		}
	}
	return nil
}

// execute 是条目边界：这里之外不会看到任何 error/panic。
func execute(ctx context.Context, p Processor, it domain.WorkItem) (out domain.Outcome) {
	if err := ctx.Err(); err != nil {
		return domain.Failed(it, it.Source, domain.ErrCodeCanceled, fmt.Sprintf("已取消：%v", err))
	}

	defer func() {
		if r := recover(); r != nil {
			out = domain.Failed(it, it.Source, domain.ErrCodeUnexpected, fmt.Sprintf("unexpected error: %v", r))
		}
	}()

	out = p.Process(ctx, it)
	// 关联键只认 WorkItem.Index：Processor 写错 index 也不能写到别人的槽位。
	out.Index = it.Index
	return out
}

func validate(tbl *results.Table, items []domain.WorkItem) error {
	if tbl.Len() != len(items) {
		return fmt.Errorf("batch: 结果表长度 %d 与条目数 %d 不一致", tbl.Len(), len(items))
	}
	seen := make([]bool, len(items))
	for _, it := range items {
		if it.Index < 0 || it.Index >= len(items) {
			return fmt.Errorf("batch: WorkItem.Index %d 越界", it.Index)
		}
		if seen[it.Index] {
			return fmt.Errorf("batch: WorkItem.Index %d 重复", it.Index)
		}
		seen[it.Index] = true
	}
	return nil
}
