// Package render 把下载得到的文档字节转换为有序的页面图片。
//
// 页面顺序必须与文档页码一致；条码提取依赖这个顺序。
package render

import (
	"bytes"
	"context"
	"fmt"
	"image"

	"github.com/John-Robertt/labelscan/internal/infra/imgx"
)

// Renderer 把文档字节渲染为按页码排序的图片。
type Renderer interface {
	Render(ctx context.Context, doc []byte) ([]image.Image, error)
}

// Error 是渲染阶段的可追溯错误（RenderError）。
type Error struct {
	Stage string // "detect" / "inspect" / "rasterize" / "decode"
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("render stage=%s: %v", e.Stage, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

var pdfMagic = []byte("%PDF-")

// Auto 按内容分派：
// - PDF：交给 PDF 渲染器
// - PNG/JPEG/GIF：直接作为单页图片
// - 其他：detect 阶段失败
type Auto struct {
	PDF Renderer
}

func (a Auto) Render(ctx context.Context, doc []byte) ([]image.Image, error) {
	switch {
	case isPDF(doc):
		if a.PDF == nil {
			return nil, &Error{Stage: "detect", Err: fmt.Errorf("未配置 PDF 渲染器")}
		}
		return a.PDF.Render(ctx, doc)
	case imgx.IsImage(doc):
		img, err := imgx.Decode(doc)
		if err != nil {
			return nil, &Error{Stage: "decode", Err: err}
		}
		return []image.Image{img}, nil
	default:
		return nil, &Error{Stage: "detect", Err: fmt.Errorf("不支持的文档类型（%d 字节，非 PDF/图片）", len(doc))}
	}
}

// isPDF 允许 magic 前有少量垃圾字节（PDF 规范允许 1024 字节内出现 header）。
func isPDF(doc []byte) bool {
	head := doc
	if len(head) > 1024 {
		head = head[:1024]
	}
	return bytes.Contains(head, pdfMagic)
}
