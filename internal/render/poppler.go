package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/John-Robertt/labelscan/internal/infra/imgx"
)

const (
	DefaultDPI      = 300
	DefaultPdftoppm = "pdftoppm"
)

// Poppler 用 pdfcpu 校验 PDF 并读取页数，再用 pdftoppm（poppler-utils）逐页渲染为 PNG。
//
// 逐页渲染而不是一次性渲染：输出文件名固定（-singlefile），页码顺序由我们自己控制。
type Poppler struct {
	Bin string // 默认 "pdftoppm"
	DPI int    // 默认 300
}

func (p Poppler) Render(ctx context.Context, doc []byte) ([]image.Image, error) {
	pages, err := PageCount(doc)
	if err != nil {
		return nil, &Error{Stage: "inspect", Err: err}
	}
	if pages <= 0 {
		return nil, &Error{Stage: "inspect", Err: errors.New("PDF 没有页面")}
	}

	bin := p.Bin
	if bin == "" {
		bin = DefaultPdftoppm
	}
	if _, err := exec.LookPath(bin); err != nil {
		return nil, &Error{Stage: "rasterize", Err: fmt.Errorf("未找到 %s（请安装 poppler-utils）：%w", bin, err)}
	}
	dpi := p.DPI
	if dpi <= 0 {
		dpi = DefaultDPI
	}

	tmpDir, err := os.MkdirTemp("", "labelscan-*")
	if err != nil {
		return nil, &Error{Stage: "rasterize", Err: err}
	}
	defer os.RemoveAll(tmpDir)

	pdfPath := filepath.Join(tmpDir, "doc.pdf")
	if err := os.WriteFile(pdfPath, doc, 0o600); err != nil {
		return nil, &Error{Stage: "rasterize", Err: err}
	}

	out := make([]image.Image, 0, pages)
	for n := 1; n <= pages; n++ {
		if err := ctx.Err(); err != nil {
			return nil, &Error{Stage: "rasterize", Err: err}
		}
		img, err := rasterizePage(ctx, bin, dpi, pdfPath, tmpDir, n)
		if err != nil {
			return nil, &Error{Stage: "rasterize", Err: fmt.Errorf("第 %d 页：%w", n, err)}
		}
		out = append(out, img)
	}
	return out, nil
}

// PageCount 用 pdfcpu 的宽松校验模式读取页数；无法解析的 PDF 直接报错。
func PageCount(doc []byte) (int, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return api.PageCount(bytes.NewReader(doc), conf)
}

func rasterizePage(ctx context.Context, bin string, dpi int, pdfPath, dir string, page int) (image.Image, error) {
	prefix := filepath.Join(dir, "page-"+strconv.Itoa(page))
	pageStr := strconv.Itoa(page)

	// -png: 输出 PNG；-f/-l: 只渲染这一页；-r: DPI；-singlefile: 不追加页码后缀
	cmd := exec.CommandContext(ctx, bin,
		"-png",
		"-f", pageStr,
		"-l", pageStr,
		"-r", strconv.Itoa(dpi),
		"-singlefile",
		pdfPath,
		prefix,
	)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("%s 失败：%w（output: %s）", bin, err, bytes.TrimSpace(output))
	}

	pngPath := prefix + ".png"
	b, err := os.ReadFile(pngPath)
	if err != nil {
		return nil, fmt.Errorf("%s 未生成预期输出：%w", bin, err)
	}
	_ = os.Remove(pngPath)
	return imgx.Decode(b)
}
