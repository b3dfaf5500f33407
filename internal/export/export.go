// Package export 把结果表/RunReport 序列化为对外文件格式。
//
// export 位于核心之外：它只读取 Outcome，不参与调度与判定。
package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/John-Robertt/labelscan/internal/domain"
	"github.com/John-Robertt/labelscan/internal/infra/fsx"
)

// Format 是 report 的序列化格式。
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat 大小写不敏感；空字符串视为 json。
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("format 只能是 json 或 yaml，实际是 %q", s)
	}
}

var csvHeader = []string{"index", "url", "raw", "trimmed", "error", "status"}

// Message 是导出层 error 列的展示文字：
// - failed：Failure 原文
// - not_found："Not found"
// - pending："Pending"
// - ok：空
func Message(o domain.Outcome) string {
	switch o.Status {
	case domain.StatusFailed:
		return o.Failure
	case domain.StatusNotFound:
		return domain.NotFoundMessage
	case domain.StatusPending:
		return domain.PendingMessage
	default:
		return ""
	}
}

// WriteCSV 写出 CSV：表头固定，行按 index 升序，每个字段都加引号。
func WriteCSV(w io.Writer, rows []domain.Outcome) error {
	var buf bytes.Buffer
	writeQuotedRow(&buf, csvHeader)
	for _, o := range sortedCopy(rows) {
		token := o.Token
		if token == "" {
			token = domain.TokenNotFound
		}
		writeQuotedRow(&buf, []string{
			strconv.Itoa(o.Index),
			o.ResolvedSource,
			o.RawCode,
			token,
			Message(o),
			o.Status,
		})
	}
	_, err := w.Write(buf.Bytes())
	return err
}

func writeQuotedRow(buf *bytes.Buffer, fields []string) {
	for i, f := range fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('"')
		buf.WriteString(strings.ReplaceAll(f, `"`, `""`))
		buf.WriteByte('"')
	}
	buf.WriteString("\r\n")
}

// WriteTrimmed 每行一个 token（按 index 升序）；失败/未识别/pending 输出 "N/A"。
func WriteTrimmed(w io.Writer, rows []domain.Outcome) error {
	var buf bytes.Buffer
	for _, o := range sortedCopy(rows) {
		token := o.Token
		if token == "" || o.Status != domain.StatusOK {
			token = domain.TokenNotFound
		}
		buf.WriteString(token)
		buf.WriteByte('\n')
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// WriteReport 以 JSON（缩进）或 YAML 写出 RunReport。
func WriteReport(w io.Writer, rr domain.RunReport, f Format) error {
	switch f {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(reportYAML(rr)); err != nil {
			return err
		}
		return enc.Close()
	case FormatJSON, "":
		b, err := json.MarshalIndent(rr, "", "  ")
		if err != nil {
			return err
		}
		b = append(b, '\n')
		_, err = w.Write(b)
		return err
	default:
		return fmt.Errorf("未知的 report 格式：%q", f)
	}
}

// reportYAML 保证空 items 输出为 []（与 JSON 一致），时间统一为 UTC。
func reportYAML(rr domain.RunReport) domain.RunReport {
	if rr.Items == nil {
		rr.Items = []domain.Outcome{}
	}
	rr.StartedAt = rr.StartedAt.UTC()
	rr.FinishedAt = rr.FinishedAt.UTC()
	return rr
}

// SaveCSV / SaveTrimmed / SaveReport 原子写入到 path。

func SaveCSV(path string, rows []domain.Outcome) error {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, rows); err != nil {
		return err
	}
	return fsx.WriteFile(path, buf.Bytes())
}

func SaveTrimmed(path string, rows []domain.Outcome) error {
	var buf bytes.Buffer
	if err := WriteTrimmed(&buf, rows); err != nil {
		return err
	}
	return fsx.WriteFile(path, buf.Bytes())
}

func SaveReport(path string, rr domain.RunReport, f Format) error {
	var buf bytes.Buffer
	if err := WriteReport(&buf, rr, f); err != nil {
		return err
	}
	return fsx.WriteFile(path, buf.Bytes())
}

func sortedCopy(rows []domain.Outcome) []domain.Outcome {
	out := append([]domain.Outcome(nil), rows...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}
