package domain

// TokenNotFound 是 token 的哨兵值：失败或未识别到条码时使用。
const TokenNotFound = "N/A"

// NotFoundMessage 是导出层对 not_found 条目展示的说明文字。
// 注意：它不写入 Outcome.Failure（not_found 是合法结果，不是错误）。
const NotFoundMessage = "Not found"

const (
	StatusOK       = "ok"
	StatusNotFound = "not_found"
	StatusFailed   = "failed"
)

const (
	ErrCodeFetchFailed  = "fetch_failed"
	ErrCodeFetchTimeout = "fetch_timeout"
	ErrCodeFetchStatus  = "fetch_status"
	ErrCodeRenderFailed = "render_failed"
	ErrCodeDecodeFailed = "decode_failed"
	ErrCodeCanceled     = "canceled"
	ErrCodeUnexpected   = "unexpected"
)

// Outcome 是单个 WorkItem 的终态结果（成功或失败），每个 WorkItem 恰好产生一个。
//
// 约束：
// - Failure 非空时：RawCode 为空，Token 为 TokenNotFound
// - Failure 为空时：Token 为裁剪后的结果；未识别到条码时为 TokenNotFound（Status=not_found）
type Outcome struct {
	Index          int    `json:"index" yaml:"index"`
	ResolvedSource string `json:"url" yaml:"url"`
	RawCode        string `json:"raw" yaml:"raw"`
	Token          string `json:"trimmed" yaml:"trimmed"`
	Failure        string `json:"error" yaml:"error"`

	Status    string `json:"status" yaml:"status"`
	ErrorCode string `json:"error_code" yaml:"error_code"`
}

// Failed 构造失败态 Outcome。
func Failed(item WorkItem, resolved, code, msg string) Outcome {
	return Outcome{
		Index:          item.Index,
		ResolvedSource: resolved,
		RawCode:        "",
		Token:          TokenNotFound,
		Failure:        msg,
		Status:         StatusFailed,
		ErrorCode:      code,
	}
}

// NotFound 构造“渲染/识别成功，但没有任何条码”的 Outcome。
func NotFound(item WorkItem, resolved string) Outcome {
	return Outcome{
		Index:          item.Index,
		ResolvedSource: resolved,
		Token:          TokenNotFound,
		Status:         StatusNotFound,
	}
}

// Found 构造成功态 Outcome。
func Found(item WorkItem, resolved, raw, token string) Outcome {
	return Outcome{
		Index:          item.Index,
		ResolvedSource: resolved,
		RawCode:        raw,
		Token:          token,
		Status:         StatusOK,
	}
}
