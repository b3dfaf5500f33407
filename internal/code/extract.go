package code

import (
	"errors"
	"sort"
	"strings"
)

// fedexPrefix 开头的条码是 FedEx 96 位长码：跟踪号固定为最后 12 位。
const fedexPrefix = "9631"

const (
	fedexTokenLen = 12
	trimFrom      = 8
)

// ErrNotFound 表示所有页面都没有识别出任何条码（合法结果，不是故障）。
var ErrNotFound = errors.New("未识别到条码")

// Detection 是某一页上识别出的一个条码。
// Top 是条码在页面上的纵向偏移（像素，越小越靠上）。
type Detection struct {
	Text string
	Top  float64
}

// Result 是 Extract 的成功结果。
type Result struct {
	Raw   string
	Token string
}

// Extract 在所有页面中选出“第一个”条码并裁剪为 token。
//
// 顺序（固定）：
// - 页面按给定顺序遍历
// - 页内按 Top 升序；Top 相同保持 locator 返回的原始顺序（SliceStable）
//
// pages 不会被修改。没有任何条码时返回 ErrNotFound。
func Extract(pages [][]Detection) (Result, error) {
	for _, page := range pages {
		if len(page) == 0 {
			continue
		}
		sorted := append([]Detection(nil), page...)
		sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Top < sorted[j].Top })
		raw := sorted[0].Text
		return Result{Raw: raw, Token: Trim(raw)}, nil
	}
	return Result{}, ErrNotFound
}

// Trim 是固定的业务裁剪规则（按字节处理，面向 ASCII 跟踪号）：
// - 以 "9631" 开头：取最后 12 个字符（不足 12 个则原样）
// - 否则长度 > 8：去掉前 8 个字符
// - 否则原样返回
func Trim(raw string) string {
	if strings.HasPrefix(raw, fedexPrefix) {
		if len(raw) <= fedexTokenLen {
			return raw
		}
		return raw[len(raw)-fedexTokenLen:]
	}
	if len(raw) > trimFrom {
		return raw[trimFrom:]
	}
	return raw
}
