package run

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/John-Robertt/labelscan/internal/app/batch"
	"github.com/John-Robertt/labelscan/internal/config"
	"github.com/John-Robertt/labelscan/internal/domain"
	"github.com/John-Robertt/labelscan/internal/infra/httpx"
	"github.com/John-Robertt/labelscan/internal/locate"
	"github.com/John-Robertt/labelscan/internal/metrics"
	"github.com/John-Robertt/labelscan/internal/render"
)

// Deps 是一次 run 的外部协作者。Metrics/Logger 可为空。
type Deps struct {
	Pipeline Pipeline
	Metrics  *metrics.Collector
	Logger   *slog.Logger
}

// NewDeps 按最终配置构造真实的下载/渲染/识别组件。
func NewDeps(eff config.Effective, logger *slog.Logger, m *metrics.Collector) (Deps, error) {
	client, err := httpx.NewClient(eff.ProxyURL)
	if err != nil {
		return Deps{}, &config.Error{Code: config.ErrCodeInvalid, Path: "proxy.url", Err: err}
	}
	return NewDepsWithClient(eff, client, logger, m)
}

// NewDepsWithClient 与 NewDeps 相同，但使用调用方提供的 http.Client（测试用）。
func NewDepsWithClient(eff config.Effective, client *http.Client, logger *slog.Logger, m *metrics.Collector) (Deps, error) {
	loc, err := locate.NewZxing(locate.DefaultRegistry(), eff.Symbologies)
	if err != nil {
		return Deps{}, &config.Error{Code: config.ErrCodeInvalid, Path: "locate.symbologies", Err: err}
	}
	return Deps{
		Pipeline: Pipeline{
			Fetcher:  httpx.Fetcher{Client: client, Timeout: eff.FetchTimeout},
			Renderer: render.Auto{PDF: render.Poppler{Bin: eff.Pdftoppm, DPI: eff.DPI}},
			Locator:  loc,
		},
		Metrics: m,
		Logger:  logger,
	}, nil
}

// Execute 执行一次 batch，并返回对外稳定的 RunReport。
//
// 单条失败只体现为该条目的失败态 Outcome；Execute 本身不返回 error。
// ctx 取消时尚未开始的条目标记为 canceled，report 仍包含全部条目。
func Execute(ctx context.Context, eff config.Effective, deps Deps, lines []string, obs Observer) domain.RunReport {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	items := domain.NewWorkItems(lines)
	workers := batch.EffectiveConcurrency(eff.Concurrency, len(items))

	rr := domain.RunReport{
		RunID:       uuid.NewString(),
		Concurrency: workers,
		StartedAt:   time.Now().UTC(),
	}
	logger = logger.With("run_id", rr.RunID)
	logger.Info("run started", "items", len(items), "workers", workers, "requested", eff.Concurrency)

	if obs != nil {
		obs.OnStart(eff, len(items))
	}
	if deps.Metrics != nil {
		deps.Metrics.StartBatch(len(items))
	}

	var proc batch.Processor = deps.Pipeline
	if deps.Metrics != nil {
		proc = instrumented(deps.Pipeline, deps.Metrics)
	}

	tbl, err := batch.Run(ctx, items, eff.Concurrency, proc, func(ev batch.Event) {
		o := ev.Outcome
		logger.Debug("item done",
			"index", o.Index,
			"status", o.Status,
			"error_code", o.ErrorCode,
			"elapsed", ev.Elapsed,
			"progress", fmt.Sprintf("%d/%d", ev.Progress.Processed, ev.Progress.Total),
		)
		if deps.Metrics != nil {
			deps.Metrics.RecordOutcome(o, ev.Progress.Processed)
		}
		if obs != nil {
			obs.OnItemDone(ev.Progress, o, ev.Elapsed)
		}
	})
	if err != nil {
		// 只会在输入自相矛盾时出现（index 重复/越界）；NewWorkItems 保证不会发生。
		logger.Error("batch rejected", "err", err)
		rr.Items = []domain.Outcome{}
	} else {
		// Run 返回时表已填满，Rows 不含 pending。
		rr.Items = tbl.Rows()
	}

	rr.FinishedAt = time.Now().UTC()
	rr.Finalize()
	logger.Info("run finished",
		"total", rr.Summary.Total,
		"ok", rr.Summary.OK,
		"not_found", rr.Summary.NotFound,
		"failed", rr.Summary.Failed,
		"elapsed", rr.FinishedAt.Sub(rr.StartedAt),
	)
	if obs != nil {
		obs.OnFinish(rr)
	}
	return rr
}

// instrumented 给 Processor 加上 in-flight / 耗时指标。
func instrumented(p batch.Processor, m *metrics.Collector) batch.Processor {
	return batch.ProcessorFunc(func(ctx context.Context, item domain.WorkItem) domain.Outcome {
		m.ItemStarted()
		started := time.Now()
		defer func() { m.ItemFinished(time.Since(started).Seconds()) }()
		return p.Process(ctx, item)
	})
}
