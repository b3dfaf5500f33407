package httpx

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultFetchTimeout 是单条下载的默认超时。
const DefaultFetchTimeout = 30 * time.Second

// Fetcher 下载单个文档的原始字节。
//
// 约束：
// - 单次尝试，不做重试
// - Timeout 覆盖整个下载（连接 + header + body），包括 Drive 确认页的一次跟随
// - 非 2xx => FetchError{Kind: status}；超时 => timeout；其他 => network
type Fetcher struct {
	Client  *http.Client
	Timeout time.Duration
}

// Fetch 下载 rawURL 并返回 body。
func (f Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if f.Client == nil {
		return nil, &FetchError{Kind: KindNetwork, URL: rawURL, Err: errors.New("http client 为空")}
	}
	timeout := f.Timeout
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	body, resp, err := f.get(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	// Drive 大文件会先返回“无法扫描病毒”的确认页；按页面给出的下载表单跟随一次。
	if isHTML(resp) {
		if next, ok := confirmURL(resp.Request.URL, body); ok {
			body, _, err = f.get(ctx, next)
			if err != nil {
				return nil, err
			}
		}
	}
	return body, nil
}

func (f Fetcher) get(ctx context.Context, rawURL string) ([]byte, *http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, nil, &FetchError{Kind: KindNetwork, URL: rawURL, Err: err}
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, nil, classify(ctx, rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// 尽量读掉 body，让连接可以复用。
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, nil, &FetchError{
			Kind:       KindStatus,
			URL:        rawURL,
			StatusCode: resp.StatusCode,
			Location:   resp.Header.Get("Location"),
		}
	}

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, classify(ctx, rawURL, err)
	}
	return b, resp, nil
}

func isHTML(resp *http.Response) bool {
	if resp == nil || resp.Request == nil || resp.Request.URL == nil {
		return false
	}
	ct := strings.ToLower(resp.Header.Get("Content-Type"))
	return strings.HasPrefix(ct, "text/html")
}
