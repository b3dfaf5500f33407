// Package urlnorm 把“间接分享链接”改写为可直接下载的形式。
package urlnorm

import (
	"net/url"
	"regexp"
)

// 三种已知的 Google Drive 分享链接形态（按匹配优先级排列）：
// - /file/d/<id>/view 或 /edit
// - /open?id=<id>
// - /uc?id=<id>
//
// 注意：直链形态 uc?export=download&id=<id> 不会命中任何一条，这保证了 Normalize 幂等。
var drivePatterns = []*regexp.Regexp{
	regexp.MustCompile(`drive\.google\.com/file/d/([^/?#&]+)`),
	regexp.MustCompile(`drive\.google\.com/open\?id=([^&#]+)`),
	regexp.MustCompile(`drive\.google\.com/uc\?id=([^&#]+)`),
}

const directDownloadBase = "https://drive.google.com/uc?export=download&id="

// Normalize 是纯函数，没有失败路径：
// - 命中三种分享形态之一：改写为 directDownloadBase + id
// - 其他任何输入（包括已是直链、其他域名）：原样返回，逐字节不变
func Normalize(source string) string {
	for _, re := range drivePatterns {
		m := re.FindStringSubmatch(source)
		if len(m) < 2 || m[1] == "" {
			continue
		}
		return directDownloadBase + url.QueryEscape(m[1])
	}
	return source
}

// FileID 返回 Normalize 识别出的 Drive 文件 id；非 Drive 分享链接返回 false。
func FileID(source string) (string, bool) {
	for _, re := range drivePatterns {
		if m := re.FindStringSubmatch(source); len(m) >= 2 && m[1] != "" {
			return m[1], true
		}
	}
	return "", false
}
