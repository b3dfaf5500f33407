package locate

import (
	"fmt"
	"strings"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/oned"
	"github.com/makiuchi-d/gozxing/qrcode"
)

// Symbology 是一种可识别的条码制式。
// New 每次返回新的 reader：gozxing 的 reader 带内部状态，不能跨 goroutine 共享。
type Symbology struct {
	Name string
	New  func() gozxing.Reader
}

// Registry 是制式的只读注册表（按 name 索引，大小写不敏感）。
type Registry struct {
	byName map[string]Symbology
}

func NewRegistry(symbologies ...Symbology) (Registry, error) {
	byName := make(map[string]Symbology, len(symbologies))
	for _, s := range symbologies {
		if s.New == nil {
			return Registry{}, fmt.Errorf("symbology.New 不能为空：%q", s.Name)
		}
		name := strings.ToLower(strings.TrimSpace(s.Name))
		if name == "" {
			return Registry{}, fmt.Errorf("symbology.Name 不能为空")
		}
		if _, ok := byName[name]; ok {
			return Registry{}, fmt.Errorf("重复的 symbology：%q", name)
		}
		s.Name = name
		byName[name] = s
	}
	return Registry{byName: byName}, nil
}

func (r Registry) Get(name string) (Symbology, bool) {
	if r.byName == nil {
		return Symbology{}, false
	}
	s, ok := r.byName[strings.ToLower(strings.TrimSpace(name))]
	return s, ok
}

// Select 按 names 的顺序取出制式；未知名称直接报错（不静默忽略配置错误）。
func (r Registry) Select(names []string) ([]Symbology, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("至少需要一种 symbology")
	}
	out := make([]Symbology, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		s, ok := r.Get(n)
		if !ok {
			return nil, fmt.Errorf("未知的 symbology：%q", n)
		}
		if _, dup := seen[s.Name]; dup {
			continue
		}
		seen[s.Name] = struct{}{}
		out = append(out, s)
	}
	return out, nil
}

// DefaultSymbologies 是默认启用的制式顺序（运单条码以 Code 128 为主）。
var DefaultSymbologies = []string{"code128", "qr", "code39"}

// DefaultRegistry 注册所有内置制式。
func DefaultRegistry() Registry {
	r, err := NewRegistry(
		Symbology{Name: "code128", New: oned.NewCode128Reader},
		Symbology{Name: "qr", New: qrcode.NewQRCodeReader},
		Symbology{Name: "code39", New: oned.NewCode39Reader},
	)
	if err != nil {
		panic(err)
	}
	return r
}
