package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
)

// 由 -ldflags "-X main.version=..." 注入。
var version = "dev"

type rootOptions struct {
	cfgFile  string
	logLevel string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "labelscan",
		Short: "批量下载运单 PDF/图片并识别其中的条码跟踪号",
		Long: `labelscan 从 URL 列表批量下载运单文档（PDF 或图片，支持 Google Drive 分享链接），
逐页识别条码，按固定规则裁剪出跟踪号，并按输入顺序输出结果。

单条失败不影响其他条目；输出顺序与完成顺序无关，始终与输入顺序一致。`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.cfgFile, "config", "", "配置文件（默认：./labelscan.yaml，可选）")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "日志级别：debug|info|warn|error")

	root.AddCommand(newRunCmd(opts))
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "显示版本",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "labelscan %s\n", version)
		},
	})
	return root
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("--log-level 只能是 debug|info|warn|error，实际是 %q", s)
	}
}
