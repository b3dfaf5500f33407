package run

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/John-Robertt/labelscan/internal/code"
	"github.com/John-Robertt/labelscan/internal/domain"
	"github.com/John-Robertt/labelscan/internal/infra/httpx"
	"github.com/John-Robertt/labelscan/internal/locate"
	"github.com/John-Robertt/labelscan/internal/render"
	"github.com/John-Robertt/labelscan/internal/urlnorm"
)

// Fetcher 下载单个文档；*httpx.Fetcher 的抽象，便于测试替换。
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) ([]byte, error)
}

// Pipeline 是单个 WorkItem 的串行处理链：
// normalize -> fetch -> render -> 逐页 locate -> extract。
//
// 任何阶段失败都转成失败态 Outcome；Pipeline 不返回 error。
type Pipeline struct {
	Fetcher  Fetcher
	Renderer render.Renderer
	Locator  locate.Locator
}

func (p Pipeline) Process(ctx context.Context, item domain.WorkItem) domain.Outcome {
	resolved := urlnorm.Normalize(item.Source)

	doc, err := p.Fetcher.Fetch(ctx, resolved)
	if err != nil {
		if ctx.Err() != nil && !isTimeout(err) {
			return domain.Failed(item, resolved, domain.ErrCodeCanceled, fmt.Sprintf("已取消：%v", ctx.Err()))
		}
		return domain.Failed(item, resolved, fetchCode(err), "fetch: "+err.Error())
	}

	pages, err := p.Renderer.Render(ctx, doc)
	if err != nil {
		if ctx.Err() != nil {
			return domain.Failed(item, resolved, domain.ErrCodeCanceled, fmt.Sprintf("已取消：%v", ctx.Err()))
		}
		return domain.Failed(item, resolved, domain.ErrCodeRenderFailed, err.Error())
	}

	detections, err := p.locateAll(ctx, pages)
	if err != nil {
		if ctx.Err() != nil {
			return domain.Failed(item, resolved, domain.ErrCodeCanceled, fmt.Sprintf("已取消：%v", ctx.Err()))
		}
		return domain.Failed(item, resolved, domain.ErrCodeDecodeFailed, "decode: "+err.Error())
	}

	res, err := code.Extract(detections)
	if errors.Is(err, code.ErrNotFound) {
		return domain.NotFound(item, resolved)
	}
	if err != nil {
		return domain.Failed(item, resolved, domain.ErrCodeUnexpected, err.Error())
	}
	return domain.Found(item, resolved, res.Raw, res.Token)
}

// locateAll 逐页识别。单页识别出错视为该页没有条码；
// 只有所有页都出错时才返回错误（区分“确实没有条码”与“完全无法识别”）。
func (p Pipeline) locateAll(ctx context.Context, pages []image.Image) ([][]code.Detection, error) {
	out := make([][]code.Detection, 0, len(pages))
	var firstErr error
	failed := 0
	for i, page := range pages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ds, err := p.Locator.Locate(ctx, page)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			failed++
			if firstErr == nil {
				firstErr = fmt.Errorf("第 %d 页：%w", i+1, err)
			}
			out = append(out, nil)
			continue
		}
		out = append(out, ds)
	}
	if len(pages) > 0 && failed == len(pages) {
		return nil, firstErr
	}
	return out, nil
}

func fetchCode(err error) string {
	var fe *httpx.FetchError
	if !errors.As(err, &fe) {
		return domain.ErrCodeFetchFailed
	}
	switch fe.Kind {
	case httpx.KindStatus:
		return domain.ErrCodeFetchStatus
	case httpx.KindTimeout:
		return domain.ErrCodeFetchTimeout
	default:
		return domain.ErrCodeFetchFailed
	}
}

func isTimeout(err error) bool {
	var fe *httpx.FetchError
	return errors.As(err, &fe) && fe.Kind == httpx.KindTimeout
}
