package locate

import (
	"context"
	"image"
	"image/color"
	"image/draw"
	"testing"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/oned"
	"github.com/makiuchi-d/gozxing/qrcode"
)

func newCanvas(w, h int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	return img
}

func paste(t *testing.T, dst *image.Gray, src image.Image, at image.Point) {
	t.Helper()
	r := image.Rectangle{Min: at, Max: at.Add(src.Bounds().Size())}
	draw.Draw(dst, r, src, src.Bounds().Min, draw.Src)
}

func encodeQR(t *testing.T, text string, size int) *gozxing.BitMatrix {
	t.Helper()
	m, err := qrcode.NewQRCodeWriter().Encode(text, gozxing.BarcodeFormat_QR_CODE, size, size, nil)
	if err != nil {
		t.Fatalf("生成 QR 失败：%v", err)
	}
	return m
}

func encodeCode128(t *testing.T, text string, w, h int) *gozxing.BitMatrix {
	t.Helper()
	m, err := oned.NewCode128Writer().Encode(text, gozxing.BarcodeFormat_CODE_128, w, h, nil)
	if err != nil {
		t.Fatalf("生成 Code128 失败：%v", err)
	}
	return m
}

func newLocator(t *testing.T, names ...string) *Zxing {
	t.Helper()
	z, err := NewZxing(DefaultRegistry(), names)
	if err != nil {
		t.Fatalf("NewZxing 失败：%v", err)
	}
	return z
}

func TestZxing_LocatesQR(t *testing.T) {
	page := newCanvas(300, 300)
	paste(t, page, encodeQR(t, "963100001111222233334444", 200), image.Pt(50, 50))

	got, err := newLocator(t, "qr").Locate(context.Background(), page)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if len(got) != 1 || got[0].Text != "963100001111222233334444" {
		t.Fatalf("识别结果不正确：%+v", got)
	}
}

func TestZxing_OrdersByVerticalOffset(t *testing.T) {
	page := newCanvas(400, 640)
	// 上：Code128；下：QR
	paste(t, page, encodeCode128(t, "TOPLABEL12345", 360, 80), image.Pt(20, 40))
	paste(t, page, encodeQR(t, "BOTTOM-QR", 200), image.Pt(100, 380))

	got, err := newLocator(t, "code128", "qr").Locate(context.Background(), page)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if len(got) != 2 {
		t.Fatalf("期望识别出 2 个条码，实际 %+v", got)
	}
	if got[0].Text != "TOPLABEL12345" || got[1].Text != "BOTTOM-QR" {
		t.Fatalf("应按纵向位置排序：%+v", got)
	}
	if !(got[0].Top < got[1].Top) {
		t.Fatalf("Top 应递增：%+v", got)
	}
}

func TestZxing_BlankPageHasNoDetections(t *testing.T) {
	got, err := newLocator(t, DefaultSymbologies...).Locate(context.Background(), newCanvas(200, 200))
	if err != nil {
		t.Fatalf("空白页不应报错：%v", err)
	}
	if len(got) != 0 {
		t.Fatalf("空白页不应有结果：%+v", got)
	}
}

func TestZxing_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := newLocator(t, DefaultSymbologies...).Locate(ctx, newCanvas(100, 100)); err == nil {
		t.Fatalf("ctx 已取消应返回错误")
	}
}

func TestWindows(t *testing.T) {
	if ws := windows(0); len(ws) != 0 {
		t.Fatalf("高度 0 不应有窗口：%v", ws)
	}
	if ws := windows(40); len(ws) != 1 {
		t.Fatalf("矮页面只扫描整页：%v", ws)
	}
	ws := windows(800)
	if ws[0] != (window{0, 800}) {
		t.Fatalf("第一个窗口应为整页：%v", ws[0])
	}
	last := ws[len(ws)-1]
	if last.y1 != 800 {
		t.Fatalf("滑动窗口必须覆盖到底部：%v", last)
	}
	for _, w := range ws[1:] {
		if w.y1-w.y0 > 400 {
			t.Fatalf("窗口高度不应超过 h/2：%v", w)
		}
	}
}

func TestRegistry(t *testing.T) {
	r := DefaultRegistry()
	if _, ok := r.Get(" QR "); !ok {
		t.Fatalf("Get 应大小写/空白不敏感")
	}
	syms, err := r.Select([]string{"qr", "QR", "code128"})
	if err != nil {
		t.Fatalf("Select 失败：%v", err)
	}
	if len(syms) != 2 || syms[0].Name != "qr" || syms[1].Name != "code128" {
		t.Fatalf("Select 应保持顺序并去重：%+v", syms)
	}
	if _, err := r.Select([]string{"aztec"}); err == nil {
		t.Fatalf("未知制式应报错")
	}
	if _, err := r.Select(nil); err == nil {
		t.Fatalf("空列表应报错")
	}
	if _, err := NewRegistry(Symbology{Name: "x", New: qrcode.NewQRCodeReader}, Symbology{Name: "X", New: qrcode.NewQRCodeReader}); err == nil {
		t.Fatalf("重复名称应报错")
	}
}
