package scan

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
)

// maxLine 是单行输入的上限；URL 远小于它，超出视为输入错误。
const maxLine = 1 << 20

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ReadLines 读取原始输入行（BatchRequest）。
//
// 只做切行：保留空行与首尾空白，过滤与 index 分配由 domain.NewWorkItems 负责。
// 兼容 CRLF 与 UTF-8 BOM（Windows 记事本导出的 URL 列表很常见）。
func ReadLines(r io.Reader) ([]string, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLine)

	lines := make([]string, 0, 64)
	first := true
	for sc.Scan() {
		b := sc.Bytes()
		if first {
			b = bytes.TrimPrefix(b, utf8BOM)
			first = false
		}
		lines = append(lines, string(bytes.TrimSuffix(b, []byte{'\r'})))
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

// ReadInput 从文件读取输入行；path 为 "-" 时读取 stdin。
func ReadInput(path string, stdin io.Reader) ([]string, error) {
	if path == "-" {
		if stdin == nil {
			return nil, fmt.Errorf("stdin 不可用")
		}
		return ReadLines(stdin)
	}
	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if fi.IsDir() {
		return nil, fmt.Errorf("输入必须是文件，实际是目录：%q", path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadLines(f)
}
