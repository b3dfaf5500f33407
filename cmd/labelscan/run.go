package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/John-Robertt/labelscan/internal/app/run"
	"github.com/John-Robertt/labelscan/internal/config"
	"github.com/John-Robertt/labelscan/internal/domain"
	"github.com/John-Robertt/labelscan/internal/export"
	"github.com/John-Robertt/labelscan/internal/metrics"
	"github.com/John-Robertt/labelscan/internal/scan"
)

type runOptions struct {
	csvPath     string
	trimmedPath string
	reportPath  string
	format      string
}

func newRunCmd(root *rootOptions) *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run <input|->",
		Short: "处理 URL 列表（每行一个 URL；- 表示从 stdin 读取）",
		Example: `  labelscan run urls.txt
  labelscan run urls.txt --csv result.csv --trimmed tracking.txt
  cat urls.txt | labelscan run - --format yaml > report.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd, root, opts, args[0])
		},
	}

	f := cmd.Flags()
	f.Int("concurrency", config.DefaultConcurrency, "worker 数（最终不超过 6 且不超过条目数）")
	f.Int("timeout", config.DefaultFetchTimeoutSeconds, "单条下载超时（秒）")
	f.String("proxy", "", "HTTP 代理，例如 http://127.0.0.1:7890")
	f.Int("dpi", config.DefaultDPI, "PDF 渲染 DPI")
	f.String("pdftoppm", config.DefaultPdftoppm, "pdftoppm 可执行文件")
	f.StringSlice("symbologies", config.DefaultSymbologies, "启用的条码制式（code128,qr,code39）")
	f.String("metrics-addr", "", "运行期间暴露 Prometheus /metrics 的监听地址，例如 :9100")

	f.StringVar(&opts.csvPath, "csv", "", "写出 CSV 结果文件")
	f.StringVar(&opts.trimmedPath, "trimmed", "", "写出跟踪号列表（每行一个）")
	f.StringVar(&opts.reportPath, "report", "", "写出完整 report 文件（格式由 --format 决定）")
	f.StringVar(&opts.format, "format", "json", "report 格式：json|yaml")
	return cmd
}

func runBatch(cmd *cobra.Command, root *rootOptions, opts *runOptions, input string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	stdout := cmd.OutOrStdout()
	stderr := cmd.ErrOrStderr()

	level, err := parseLogLevel(root.logLevel)
	if err != nil {
		return &exitError{code: 2, msg: "参数错误：" + err.Error()}
	}
	format, err := export.ParseFormat(opts.format)
	if err != nil {
		return &exitError{code: 2, msg: "参数错误：" + err.Error()}
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	eff, err := config.Load(config.Options{File: root.cfgFile, Dir: ".", Flags: cmd.Flags()})
	if err != nil {
		return &exitError{code: 2, msg: err.Error()}
	}

	lines, err := scan.ReadInput(input, cmd.InOrStdin())
	if err != nil {
		return &exitError{code: 2, msg: fmt.Sprintf("读取输入失败：%v", err)}
	}

	var m *metrics.Collector
	if eff.MetricsAddr != "" {
		m = metrics.NewCollector()
		stop, err := serveMetrics(eff.MetricsAddr, m, logger)
		if err != nil {
			return &exitError{code: 2, msg: fmt.Sprintf("启动 metrics 服务失败：%v", err)}
		}
		defer stop()
	}

	deps, err := run.NewDeps(eff, logger, m)
	if err != nil {
		return &exitError{code: 2, msg: err.Error()}
	}

	var obs run.Observer
	var ui *progressUI
	if w, ok := pickProgressWriter(stdout, stderr); ok {
		ui = newProgressUI(w)
		obs = ui
	}

	rr := run.Execute(ctx, eff, deps, lines, obs)
	rr.Input = inputName(input)

	if err := writeExports(opts, rr, format); err != nil {
		fmt.Fprintf(stderr, "写入导出文件失败：%v\n", err)
		emitReport(stdout, stderr, rr, format)
		return &exitError{code: 1}
	}

	emitReport(stdout, stderr, rr, format)
	if ui != nil {
		emitLocations(ui.w, opts)
	}

	switch {
	case ctx.Err() != nil:
		return &exitError{code: 130}
	case rr.Summary.Failed > 0:
		return &exitError{code: 1}
	default:
		return nil
	}
}

func writeExports(opts *runOptions, rr domain.RunReport, format export.Format) error {
	if opts.csvPath != "" {
		if err := export.SaveCSV(opts.csvPath, rr.Items); err != nil {
			return fmt.Errorf("csv：%w", err)
		}
	}
	if opts.trimmedPath != "" {
		if err := export.SaveTrimmed(opts.trimmedPath, rr.Items); err != nil {
			return fmt.Errorf("trimmed：%w", err)
		}
	}
	if opts.reportPath != "" {
		if err := export.SaveReport(opts.reportPath, rr, format); err != nil {
			return fmt.Errorf("report：%w", err)
		}
	}
	return nil
}

// emitReport：
// - stdout 是 TTY：输出人类可读的结果表
// - 否则 stdout 必须且仅输出一个 report（json/yaml），摘要走 stderr
func emitReport(stdout, stderr io.Writer, rr domain.RunReport, format export.Format) {
	if isTTY(stdout) {
		for _, it := range rr.Items {
			msg := export.Message(it)
			if msg != "" {
				msg = "  " + msg
			}
			fmt.Fprintf(stdout, "%4d  %-14s %-9s %s%s\n", it.Index, it.Token, it.Status, truncate(it.ResolvedSource, 80), msg)
		}
		fmt.Fprintln(stdout, summaryLine(rr))
		return
	}

	if err := export.WriteReport(stdout, rr, format); err != nil {
		fmt.Fprintf(stderr, "输出 report 失败：%v\n", err)
	}
	fmt.Fprintln(stderr, summaryLine(rr))
}

func summaryLine(rr domain.RunReport) string {
	return fmt.Sprintf("完成：total=%d ok=%d not_found=%d failed=%d",
		rr.Summary.Total, rr.Summary.OK, rr.Summary.NotFound, rr.Summary.Failed,
	)
}

func emitLocations(w io.Writer, opts *runOptions) {
	if w == nil {
		return
	}
	for _, p := range []struct{ name, path string }{
		{"csv", opts.csvPath},
		{"trimmed", opts.trimmedPath},
		{"report", opts.reportPath},
	} {
		if p.path != "" {
			fmt.Fprintf(w, "%s: %s\n", p.name, p.path)
		}
	}
}

func inputName(input string) string {
	if input == "-" {
		return "stdin"
	}
	return input
}

// serveMetrics 在 addr 上暴露 /metrics，返回的 stop 会优雅关闭服务。
func serveMetrics(addr string, m *metrics.Collector, logger *slog.Logger) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", "err", err)
		}
	}()
	logger.Info("metrics server started", "addr", ln.Addr().String())

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}

func isTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func pickProgressWriter(stdout, stderr io.Writer) (io.Writer, bool) {
	// 进度输出只在交互终端启用；默认走 stderr（不污染 stdout report）。
	if isTTY(stderr) {
		return stderr, true
	}
	// 仅重定向 stderr 时，stdout 仍是 TTY：退化输出到 stdout。
	if isTTY(stdout) {
		return stdout, true
	}
	return nil, false
}
