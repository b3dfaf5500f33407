package run

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"

	"github.com/John-Robertt/labelscan/internal/config"
	"github.com/John-Robertt/labelscan/internal/domain"
	"github.com/John-Robertt/labelscan/internal/metrics"
	"github.com/John-Robertt/labelscan/internal/results"
)

func qrPNG(t *testing.T, text string) []byte {
	t.Helper()
	m, err := qrcode.NewQRCodeWriter().Encode(text, gozxing.BarcodeFormat_QR_CODE, 240, 240, nil)
	if err != nil {
		t.Fatalf("生成 QR 失败：%v", err)
	}
	page := image.NewGray(image.Rect(0, 0, 320, 320))
	draw.Draw(page, page.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	draw.Draw(page, image.Rect(40, 40, 280, 280), m, image.Point{}, draw.Src)

	var buf bytes.Buffer
	if err := png.Encode(&buf, page); err != nil {
		t.Fatalf("encode png 失败：%v", err)
	}
	return buf.Bytes()
}

func blankPNG(t *testing.T) []byte {
	t.Helper()
	page := image.NewGray(image.Rect(0, 0, 64, 64))
	draw.Draw(page, page.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	var buf bytes.Buffer
	if err := png.Encode(&buf, page); err != nil {
		t.Fatalf("encode png 失败：%v", err)
	}
	return buf.Bytes()
}

type recordObserver struct {
	mu       sync.Mutex
	starts   int
	total    int
	progress []results.Progress
	finished *domain.RunReport
}

func (o *recordObserver) OnStart(eff config.Effective, total int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.starts++
	o.total = total
}

func (o *recordObserver) OnItemDone(p results.Progress, out domain.Outcome, dur time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.progress = append(o.progress, p)
}

func (o *recordObserver) OnFinish(rr domain.RunReport) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.finished = &rr
}

func testEffective() config.Effective {
	return config.Effective{
		Concurrency:  4,
		FetchTimeout: 5 * time.Second,
		DPI:          config.DefaultDPI,
		Pdftoppm:     config.DefaultPdftoppm,
		Symbologies:  []string{"qr"},
	}
}

func TestExecute_EndToEnd_ImageDocuments(t *testing.T) {
	qr := qrPNG(t, "9631000011112222333344445555")
	blank := blankPNG(t)

	mux := http.NewServeMux()
	mux.HandleFunc("/label.png", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(qr)
	})
	mux.HandleFunc("/blank.png", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(blank)
	})
	mux.HandleFunc("/notes.txt", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("plain text, not a label"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	eff := testEffective()
	m := metrics.NewCollector()
	deps, err := NewDepsWithClient(eff, srv.Client(), nil, m)
	if err != nil {
		t.Fatalf("NewDeps 失败：%v", err)
	}

	lines := []string{
		srv.URL + "/label.png",
		"",
		srv.URL + "/missing.pdf",
		"   ",
		srv.URL + "/blank.png",
		srv.URL + "/notes.txt",
	}
	obs := &recordObserver{}
	rr := Execute(context.Background(), eff, deps, lines, obs)

	if rr.RunID == "" || rr.Concurrency != 4 {
		t.Fatalf("run_id/concurrency 不正确：%+v", rr)
	}
	if len(rr.Items) != 4 {
		t.Fatalf("空行不占 index：期望 4 条，实际 %d", len(rr.Items))
	}
	for i, it := range rr.Items {
		if it.Index != i {
			t.Fatalf("items 必须按 index 排序：%+v", rr.Items)
		}
	}

	if it := rr.Items[0]; it.Status != domain.StatusOK || it.RawCode != "9631000011112222333344445555" || it.Token != "333344445555" {
		t.Fatalf("item0 识别/裁剪不正确：%+v", it)
	}
	if it := rr.Items[1]; it.ErrorCode != domain.ErrCodeFetchStatus || it.Failure != "fetch: HTTP 404" {
		t.Fatalf("item1 应为 fetch_status：%+v", it)
	}
	if it := rr.Items[2]; it.Status != domain.StatusNotFound {
		t.Fatalf("item2 空白页应为 not_found：%+v", it)
	}
	if it := rr.Items[3]; it.ErrorCode != domain.ErrCodeRenderFailed {
		t.Fatalf("item3 非 PDF/图片应为 render_failed：%+v", it)
	}

	want := domain.ReportSummary{Total: 4, OK: 1, NotFound: 1, Failed: 2}
	if rr.Summary != want {
		t.Fatalf("summary 不正确：%+v", rr.Summary)
	}

	obs.mu.Lock()
	defer obs.mu.Unlock()
	if obs.starts != 1 || obs.total != 4 || obs.finished == nil {
		t.Fatalf("observer 事件不完整：starts=%d total=%d finished=%v", obs.starts, obs.total, obs.finished != nil)
	}
	if len(obs.progress) != 4 {
		t.Fatalf("每个条目都应通知一次：%d", len(obs.progress))
	}
	for i, p := range obs.progress {
		if p.Processed != i+1 || p.Total != 4 {
			t.Fatalf("进度必须单调递增：%+v", obs.progress)
		}
	}
}

func TestExecute_EmptyInput(t *testing.T) {
	rr := Execute(context.Background(), testEffective(), Deps{}, []string{"", "  "}, nil)
	if rr.Summary.Total != 0 || len(rr.Items) != 0 || rr.Concurrency != 0 {
		t.Fatalf("空输入应得到空 report：%+v", rr)
	}
}

func TestExecute_CanceledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := &stubFetcher{body: []byte("x")}
	deps := Deps{Pipeline: Pipeline{Fetcher: f, Renderer: stubRenderer{pages: 1}, Locator: stubLocator{}}}
	rr := Execute(ctx, testEffective(), deps, []string{"a", "b", "c"}, nil)

	if len(rr.Items) != 3 || rr.Summary.Failed != 3 {
		t.Fatalf("取消后仍应填满结果表：%+v", rr)
	}
	for _, it := range rr.Items {
		if it.ErrorCode != domain.ErrCodeCanceled {
			t.Fatalf("未开始的条目应为 canceled：%+v", it)
		}
	}
	if len(f.calls) != 0 {
		t.Fatalf("取消后不应再发起下载：%v", f.calls)
	}
}
