package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// ErrCodeNotFound 表示显式指定的配置文件不存在。
	ErrCodeNotFound = "config_not_found"
	// ErrCodeInvalid 表示配置文件无法读取/解析，或字段不合法。
	ErrCodeInvalid = "config_invalid"
)

const (
	DefaultConcurrency         = 6
	MaxConcurrency             = 32
	DefaultFetchTimeoutSeconds = 30
	DefaultDPI                 = 300
	DefaultPdftoppm            = "pdftoppm"

	minDPI = 50
	maxDPI = 1200

	// EnvPrefix：LABELSCAN_CONCURRENCY、LABELSCAN_PROXY_URL ...
	EnvPrefix = "LABELSCAN"
	// FileName 是未指定 --config 时在工作目录下查找的配置文件名（不含扩展名）。
	FileName = "labelscan"
)

// DefaultSymbologies 与 locate.DefaultSymbologies 保持一致。
var DefaultSymbologies = []string{"code128", "qr", "code39"}

// FlagKeys 是 CLI flag 名到配置 key 的映射；只有显式设置的 flag 才会覆盖配置。
var FlagKeys = map[string]string{
	"concurrency":  "concurrency",
	"timeout":      "fetch_timeout_seconds",
	"proxy":        "proxy.url",
	"dpi":          "render.dpi",
	"pdftoppm":     "render.pdftoppm",
	"symbologies":  "locate.symbologies",
	"metrics-addr": "metrics.addr",
}

// FileConfig 对应 labelscan.yaml 的解析结构。
type FileConfig struct {
	Concurrency         int `mapstructure:"concurrency"`
	FetchTimeoutSeconds int `mapstructure:"fetch_timeout_seconds"`
	Proxy               struct {
		URL string `mapstructure:"url"`
	} `mapstructure:"proxy"`
	Render struct {
		DPI      int    `mapstructure:"dpi"`
		Pdftoppm string `mapstructure:"pdftoppm"`
	} `mapstructure:"render"`
	Locate struct {
		Symbologies []string `mapstructure:"symbologies"`
	} `mapstructure:"locate"`
	Metrics struct {
		Addr string `mapstructure:"addr"`
	} `mapstructure:"metrics"`
}

// Effective 是合并并做最小规范化后的最终配置（实现层直接消费，不再做二次默认/优先级判断）。
type Effective struct {
	// ConfigFile 是实际读取的配置文件；未读取任何文件时为空。
	ConfigFile string

	Concurrency  int
	FetchTimeout time.Duration
	ProxyURL     string

	DPI      int
	Pdftoppm string

	Symbologies []string
	MetricsAddr string
}

// Error 是配置阶段的结构化错误（带 error_code）。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch e.Code {
	case ErrCodeNotFound:
		return fmt.Sprintf("%s：未找到配置文件 %q", e.Code, e.Path)
	case ErrCodeInvalid:
		if e.Err != nil {
			return fmt.Sprintf("%s：配置 %q 无效：%v", e.Code, e.Path, e.Err)
		}
		return fmt.Sprintf("%s：配置 %q 无效", e.Code, e.Path)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		return e.Code
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// Options 描述一次配置加载。
type Options struct {
	// File 显式指定配置文件（必须存在）；为空时在 Dir 下查找 labelscan.{yaml,yml,json,toml}（可选）。
	File string
	Dir  string
	// Flags 为 cobra 命令的 flag 集合；只有 Changed 的 flag 参与覆盖。
	Flags *pflag.FlagSet
}

// Load 合并配置，覆盖优先级（固定）：flag > env > 配置文件 > 默认值。
func Load(opts Options) (Effective, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfgPath, err := readConfigFile(v, opts)
	if err != nil {
		return Effective{}, err
	}

	if opts.Flags != nil {
		for name, key := range FlagKeys {
			f := opts.Flags.Lookup(name)
			if f == nil || !f.Changed {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return Effective{}, &Error{Code: ErrCodeInvalid, Path: "--" + name, Err: err}
			}
		}
	}

	var fc FileConfig
	if err := v.Unmarshal(&fc); err != nil {
		return Effective{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}
	return normalize(fc, cfgPath)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("concurrency", DefaultConcurrency)
	v.SetDefault("fetch_timeout_seconds", DefaultFetchTimeoutSeconds)
	v.SetDefault("proxy.url", "")
	v.SetDefault("render.dpi", DefaultDPI)
	v.SetDefault("render.pdftoppm", DefaultPdftoppm)
	v.SetDefault("locate.symbologies", DefaultSymbologies)
	v.SetDefault("metrics.addr", "")
}

// readConfigFile 读取配置文件，返回实际读取的路径（未读取时为空）。
func readConfigFile(v *viper.Viper, opts Options) (string, error) {
	if f := strings.TrimSpace(opts.File); f != "" {
		if _, err := os.Stat(f); err != nil {
			if os.IsNotExist(err) {
				return "", &Error{Code: ErrCodeNotFound, Path: f, Err: err}
			}
			return "", &Error{Code: ErrCodeInvalid, Path: f, Err: err}
		}
		v.SetConfigFile(f)
		if err := v.ReadInConfig(); err != nil {
			return "", &Error{Code: ErrCodeInvalid, Path: f, Err: err}
		}
		return v.ConfigFileUsed(), nil
	}

	dir := opts.Dir
	if dir == "" {
		dir = "."
	}
	v.SetConfigName(FileName)
	v.AddConfigPath(dir)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return "", nil
		}
		return "", &Error{Code: ErrCodeInvalid, Path: filepath.Join(dir, FileName), Err: err}
	}
	return v.ConfigFileUsed(), nil
}

func normalize(fc FileConfig, cfgPath string) (Effective, error) {
	invalid := func(format string, args ...any) error {
		return &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: fmt.Errorf(format, args...)}
	}

	// 超出范围截断到 [1, 32]；调度器另有硬上限。
	concurrency := fc.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	if concurrency > MaxConcurrency {
		concurrency = MaxConcurrency
	}

	if fc.FetchTimeoutSeconds <= 0 {
		return Effective{}, invalid("fetch_timeout_seconds 必须 > 0，实际是 %d", fc.FetchTimeoutSeconds)
	}

	proxyURL := strings.TrimSpace(fc.Proxy.URL)
	if proxyURL != "" {
		u, err := url.Parse(proxyURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return Effective{}, invalid("proxy.url 无效：%q", proxyURL)
		}
	}

	if fc.Render.DPI < minDPI || fc.Render.DPI > maxDPI {
		return Effective{}, invalid("render.dpi 必须在 [%d, %d]，实际是 %d", minDPI, maxDPI, fc.Render.DPI)
	}
	pdftoppm := strings.TrimSpace(fc.Render.Pdftoppm)
	if pdftoppm == "" {
		pdftoppm = DefaultPdftoppm
	}

	syms := make([]string, 0, len(fc.Locate.Symbologies))
	for _, s := range fc.Locate.Symbologies {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			syms = append(syms, s)
		}
	}
	if len(syms) == 0 {
		return Effective{}, invalid("locate.symbologies 不能为空")
	}

	return Effective{
		ConfigFile:   cfgPath,
		Concurrency:  concurrency,
		FetchTimeout: time.Duration(fc.FetchTimeoutSeconds) * time.Second,
		ProxyURL:     proxyURL,
		DPI:          fc.Render.DPI,
		Pdftoppm:     pdftoppm,
		Symbologies:  syms,
		MetricsAddr:  strings.TrimSpace(fc.Metrics.Addr),
	}, nil
}
