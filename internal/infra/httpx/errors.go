package httpx

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// FetchKind 区分下载失败的类别。
type FetchKind string

const (
	// KindStatus 表示服务端返回了非 2xx。
	KindStatus FetchKind = "status"
	// KindNetwork 表示连接失败、读取中断等网络类错误。
	KindNetwork FetchKind = "network"
	// KindTimeout 表示超过单条下载超时。
	KindTimeout FetchKind = "timeout"
)

// FetchError 是 Fetcher 唯一的错误类型；上层据此映射 error_code。
type FetchError struct {
	Kind       FetchKind
	URL        string
	StatusCode int
	Location   string
	Err        error
}

func (e *FetchError) Error() string {
	if e == nil {
		return "fetch error"
	}
	switch e.Kind {
	case KindStatus:
		loc := strings.TrimSpace(e.Location)
		if loc != "" {
			return fmt.Sprintf("HTTP %d location=%s", e.StatusCode, loc)
		}
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	case KindTimeout:
		return fmt.Sprintf("下载超时：%s", e.URL)
	default:
		if e.Err != nil {
			return fmt.Sprintf("下载失败：%v", e.Err)
		}
		return "下载失败"
	}
}

func (e *FetchError) Unwrap() error { return e.Err }

// classify 把 transport/body 读取错误归类为 timeout 或 network。
// ctx 是单条下载的 ctx：它超时说明是我们自己的超时，而不是上游取消。
func classify(ctx context.Context, u string, err error) *FetchError {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return &FetchError{Kind: KindTimeout, URL: u, Err: err}
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return &FetchError{Kind: KindTimeout, URL: u, Err: err}
	}
	return &FetchError{Kind: KindNetwork, URL: u, Err: err}
}
