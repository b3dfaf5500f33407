package httpx

import (
	"bytes"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// confirmURL 从 Drive 的“下载确认页”中解析出真正的下载地址。
//
// 支持两种页面形态：
// - <form id="download-form" action="..."> + hidden inputs（当前形态）
// - <a id="uc-download-link" href="...">（旧形态）
//
// 不是确认页（或解析不出地址）时返回 false，调用方按普通 body 处理。
func confirmURL(base *url.URL, html []byte) (string, bool) {
	if len(html) == 0 {
		return "", false
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return "", false
	}

	if form := doc.Find("form#download-form").First(); form.Length() > 0 {
		action, _ := form.Attr("action")
		u, ok := resolve(base, action)
		if !ok {
			return "", false
		}
		q := u.Query()
		form.Find("input[type=hidden]").Each(func(_ int, s *goquery.Selection) {
			name, ok := s.Attr("name")
			if !ok || strings.TrimSpace(name) == "" {
				return
			}
			v, _ := s.Attr("value")
			q.Set(name, v)
		})
		u.RawQuery = q.Encode()
		return u.String(), true
	}

	if href, ok := doc.Find("a#uc-download-link").First().Attr("href"); ok {
		u, ok := resolve(base, href)
		if !ok {
			return "", false
		}
		return u.String(), true
	}
	return "", false
}

func resolve(base *url.URL, ref string) (*url.URL, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, false
	}
	r, err := url.Parse(ref)
	if err != nil {
		return nil, false
	}
	if base == nil {
		if !r.IsAbs() {
			return nil, false
		}
		return r, true
	}
	return base.ResolveReference(r), true
}
