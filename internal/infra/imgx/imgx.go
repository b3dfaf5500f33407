package imgx

import (
	"bytes"
	"errors"
	"image"
	"image/draw"
	_ "image/gif"  // 注册 GIF 解码器
	_ "image/jpeg" // 注册 JPEG 解码器
	_ "image/png"  // 注册 PNG 解码器
	"net/http"
	"strings"
)

// IsImage 按内容嗅探判断 b 是否是可直接解码的位图（不是 PDF）。
func IsImage(b []byte) bool {
	if len(b) == 0 {
		return false
	}
	ct := http.DetectContentType(b)
	switch {
	case strings.HasPrefix(ct, "image/png"),
		strings.HasPrefix(ct, "image/jpeg"),
		strings.HasPrefix(ct, "image/gif"):
		return true
	default:
		return false
	}
}

// Decode 解码 PNG/JPEG/GIF 字节。
func Decode(b []byte) (image.Image, error) {
	if len(b) == 0 {
		return nil, errors.New("图片为空")
	}
	img, _, err := image.Decode(bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	if r := img.Bounds(); r.Dx() <= 0 || r.Dy() <= 0 {
		return nil, errors.New("图片尺寸无效")
	}
	return img, nil
}

// Gray 把任意图片转换为灰度图（原点归零）。条码识别只依赖亮度。
func Gray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok && g.Rect.Min == (image.Point{}) {
		return g
	}
	b := img.Bounds()
	dst := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

// Band 裁切出 [y0, y1) 的整行区域，并复制到原点为 (0,0) 的新图里。
//
// 约束：
// - y0/y1 会被截断到图片范围内
// - 空区域返回 nil
func Band(img *image.Gray, y0, y1 int) *image.Gray {
	if img == nil {
		return nil
	}
	b := img.Bounds()
	if y0 < b.Min.Y {
		y0 = b.Min.Y
	}
	if y1 > b.Max.Y {
		y1 = b.Max.Y
	}
	if y1 <= y0 || b.Dx() <= 0 {
		return nil
	}
	src := image.Rect(b.Min.X, y0, b.Max.X, y1)
	dst := image.NewGray(image.Rect(0, 0, src.Dx(), src.Dy()))
	draw.Draw(dst, dst.Bounds(), img, src.Min, draw.Src)
	return dst
}
