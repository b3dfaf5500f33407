// Package locate 在单页图片上识别所有条码，并给出每个条码的纵向位置。
package locate

import (
	"context"
	"image"
	"sort"

	"github.com/makiuchi-d/gozxing"

	"github.com/John-Robertt/labelscan/internal/code"
	"github.com/John-Robertt/labelscan/internal/infra/imgx"
)

// Locator 识别单页上的所有条码。返回顺序无要求；调用方按 Top 排序。
type Locator interface {
	Locate(ctx context.Context, page image.Image) ([]code.Detection, error)
}

// bandDivisor/stepDivisor 决定滑动窗口：窗口高 h/2，步长 h/8。
// 整页 decode 每种制式只能返回一个结果；分带扫描用于找出同页上的多个条码。
const (
	bandDivisor = 2
	stepDivisor = 8
	minBand     = 32
)

// Zxing 基于 gozxing 的识别器。零值不可用，使用 NewZxing 构造。
type Zxing struct {
	symbologies []Symbology
	hints       map[gozxing.DecodeHintType]interface{}
}

func NewZxing(reg Registry, names []string) (*Zxing, error) {
	syms, err := reg.Select(names)
	if err != nil {
		return nil, err
	}
	return &Zxing{
		symbologies: syms,
		hints: map[gozxing.DecodeHintType]interface{}{
			gozxing.DecodeHintType_TRY_HARDER: true,
		},
	}, nil
}

type window struct {
	y0, y1 int
}

func (z *Zxing) Locate(ctx context.Context, page image.Image) ([]code.Detection, error) {
	gray := imgx.Gray(page)
	h := gray.Bounds().Dy()

	found := map[string]int{} // text -> index in out
	var out []code.Detection
	var lastErr error
	decoded := 0

	for _, w := range windows(h) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		band := gray
		if w.y0 != 0 || w.y1 != h {
			band = imgx.Band(gray, w.y0, w.y1)
			if band == nil {
				continue
			}
		}
		bmp, err := gozxing.NewBinaryBitmapFromImage(band)
		if err != nil {
			lastErr = err
			continue
		}
		decoded++

		for _, s := range z.symbologies {
			res, err := s.New().Decode(bmp, z.hints)
			if err != nil || res == nil || res.GetText() == "" {
				// NotFound/Checksum/Format 都视为“该窗口没有此制式的条码”
				continue
			}
			top := float64(w.y0) + minY(res.GetResultPoints())
			text := res.GetText()
			if i, ok := found[text]; ok {
				if top < out[i].Top {
					out[i].Top = top
				}
				continue
			}
			found[text] = len(out)
			out = append(out, code.Detection{Text: text, Top: top})
		}
	}

	if decoded == 0 && lastErr != nil {
		return nil, lastErr
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Top < out[j].Top })
	return out, nil
}

// windows 返回整页窗口 + 自上而下的滑动窗口。页面太矮时只扫描整页。
func windows(h int) []window {
	if h <= 0 {
		return nil
	}
	ws := []window{{0, h}}
	size := h / bandDivisor
	step := h / stepDivisor
	if size < minBand || step <= 0 {
		return ws
	}
	for y := 0; y < h; y += step {
		end := y + size
		if end > h {
			end = h
		}
		ws = append(ws, window{y, end})
		if end == h {
			break
		}
	}
	return ws
}

func minY(points []gozxing.ResultPoint) float64 {
	if len(points) == 0 {
		return 0
	}
	m := points[0].GetY()
	for _, p := range points[1:] {
		if y := p.GetY(); y < m {
			m = y
		}
	}
	if m < 0 {
		return 0
	}
	return m
}
