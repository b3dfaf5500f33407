package main

import (
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/John-Robertt/labelscan/internal/app/batch"
	"github.com/John-Robertt/labelscan/internal/app/run"
	"github.com/John-Robertt/labelscan/internal/config"
	"github.com/John-Robertt/labelscan/internal/domain"
	"github.com/John-Robertt/labelscan/internal/results"
)

var _ run.Observer = (*progressUI)(nil)

// progressUI 是交互终端的进度输出。
//
// - 所有过程信息写到 stderr（或 fallback 到 stdout），不污染 stdout 的 report 输出契约
// - 事件驱动：run 层只发事件，CLI 决定如何展示
// - keepalive：长时间无条目完成时也会定期输出一行
type progressUI struct {
	w io.Writer

	mu          sync.Mutex
	startedAt   time.Time
	lastPrinted time.Time

	workers  int
	progress results.Progress
	ok       int
	notFound int
	fail     int

	keepaliveThreshold time.Duration
	tickerInterval     time.Duration

	stopCh        chan struct{}
	tickerStarted bool
}

func newProgressUI(w io.Writer) *progressUI {
	return &progressUI{
		w:                  w,
		keepaliveThreshold: 6 * time.Second,
		tickerInterval:     2 * time.Second,
	}
}

func (p *progressUI) OnStart(eff config.Effective, total int) {
	now := time.Now()

	p.mu.Lock()
	defer p.mu.Unlock()

	p.startedAt = now
	p.workers = batch.EffectiveConcurrency(eff.Concurrency, total)
	p.progress = results.Progress{Total: total}

	fmt.Fprintf(p.w, "[%s] labelscan run\n", now.Format("15:04:05"))
	fmt.Fprintln(p.w, "配置（生效）:")
	if eff.ConfigFile != "" {
		fmt.Fprintf(p.w, "  config: %s\n", eff.ConfigFile)
	}
	fmt.Fprintf(p.w, "  concurrency: %d (workers=%d)\n", eff.Concurrency, p.workers)
	fmt.Fprintf(p.w, "  fetch_timeout: %s\n", eff.FetchTimeout)
	fmt.Fprintf(p.w, "  proxy: %s\n", formatProxy(eff.ProxyURL))
	fmt.Fprintf(p.w, "  render: dpi=%d pdftoppm=%s\n", eff.DPI, eff.Pdftoppm)
	fmt.Fprintf(p.w, "  symbologies: %s\n", strings.Join(eff.Symbologies, ","))
	if eff.MetricsAddr != "" {
		fmt.Fprintf(p.w, "  metrics: http://%s/metrics\n", eff.MetricsAddr)
	}
	fmt.Fprintln(p.w)
	fmt.Fprintln(p.w, p.progress.Status())

	if total > 0 && !p.tickerStarted {
		p.startTickerLocked()
	}
	p.lastPrinted = time.Now()
}

func (p *progressUI) OnItemDone(prog results.Progress, o domain.Outcome, dur time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.progress = prog
	switch o.Status {
	case domain.StatusOK:
		p.ok++
	case domain.StatusNotFound:
		p.notFound++
	case domain.StatusFailed:
		p.fail++
	}

	prefix := fmt.Sprintf("[%d/%d] #%d", prog.Processed, prog.Total, o.Index)
	switch o.Status {
	case domain.StatusFailed:
		fmt.Fprintf(p.w, "%s FAIL %s: %s (%s)\n", prefix, o.ErrorCode, truncate(o.Failure, 160), formatShortDuration(dur))
	case domain.StatusNotFound:
		fmt.Fprintf(p.w, "%s MISS %s (%s)\n", prefix, domain.NotFoundMessage, formatShortDuration(dur))
	default:
		fmt.Fprintf(p.w, "%s OK %s raw=%s (%s)\n", prefix, o.Token, truncate(o.RawCode, 60), formatShortDuration(dur))
	}
	p.lastPrinted = time.Now()

	// 最后一条完成：停止 ticker，避免在结束打印后又冒出 keepalive。
	if prog.Done() {
		p.stopTickerLocked()
	}
}

func (p *progressUI) OnFinish(rr domain.RunReport) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopTickerLocked()
	if rr.Summary.Total > 0 {
		fmt.Fprintf(p.w, "%s elapsed=%s\n", results.Progress{Processed: rr.Summary.Total, Total: rr.Summary.Total}.Status(), formatElapsed(time.Since(p.startedAt)))
	}
	p.lastPrinted = time.Now()
}

func (p *progressUI) stopTickerLocked() {
	if p.tickerStarted {
		close(p.stopCh)
		p.tickerStarted = false
	}
}

func (p *progressUI) startTickerLocked() {
	p.stopCh = make(chan struct{})
	p.tickerStarted = true
	stopCh := p.stopCh

	interval := p.tickerInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	threshold := p.keepaliveThreshold
	if threshold <= 0 {
		threshold = 6 * time.Second
	}

	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()

		for {
			select {
			case <-t.C:
				p.mu.Lock()
				if p.progress.Done() {
					p.mu.Unlock()
					return
				}
				if time.Since(p.lastPrinted) > threshold {
					p.printKeepaliveLocked()
				}
				p.mu.Unlock()
			case <-stopCh:
				return
			}
		}
	}()
}

func (p *progressUI) printKeepaliveLocked() {
	active := p.workers
	if remain := p.progress.Total - p.progress.Processed; remain < active {
		active = remain
	}
	fmt.Fprintf(p.w, "进度: %s (%d%%) ok=%d not_found=%d fail=%d active=%d elapsed=%s\n",
		p.progress.Status(), p.progress.Percent(), p.ok, p.notFound, p.fail, active, formatElapsed(time.Since(p.startedAt)),
	)
	p.lastPrinted = time.Now()
}

func formatProxy(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "off"
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "on (" + truncate(raw, 120) + ")"
	}
	auth := "off"
	if u.User != nil {
		auth = "on"
	}
	return fmt.Sprintf("on (%s://%s, auth=%s)", u.Scheme, u.Host, auth)
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if max <= 0 || len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}

func formatShortDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

func formatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	sec := int(d.Seconds())
	h := sec / 3600
	m := (sec % 3600) / 60
	s := sec % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
