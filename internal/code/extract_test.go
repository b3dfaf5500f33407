package code

import (
	"errors"
	"testing"
)

func TestTrim_Rules(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{"9631XXXXXXXXYYYY", "XXXXXXXXYYYY"},
		{"ABCDEFGHIJKL", "IJKL"},
		{"SHORT", "SHORT"},
		{"12345678", "12345678"},
		{"123456789", "9"},
		{"9631", "9631"},
		{"9631ABCD", "9631ABCD"},
		{"96310000123456789012", "123456789012"},
		{"", ""},
	}
	for _, c := range cases {
		if got := Trim(c.raw); got != c.want {
			t.Fatalf("Trim(%q)=%q，期望 %q", c.raw, got, c.want)
		}
	}
}

func TestExtract_PageOrderThenTopToBottom(t *testing.T) {
	pages := [][]Detection{
		{},
		{
			{Text: "LOWER-CODE-9999", Top: 800},
			{Text: "UPPER-CODE-1111", Top: 120},
		},
		{
			{Text: "NEXT-PAGE-CODE", Top: 1},
		},
	}
	got, err := Extract(pages)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if got.Raw != "UPPER-CODE-1111" {
		t.Fatalf("期望选中第二页最上方条码，实际 %q", got.Raw)
	}
	if got.Token != "DE-1111" {
		t.Fatalf("token 裁剪不正确：%q", got.Token)
	}
	if pages[1][0].Text != "LOWER-CODE-9999" {
		t.Fatalf("Extract 不应修改输入顺序")
	}
}

func TestExtract_TieKeepsLocatorOrder(t *testing.T) {
	got, err := Extract([][]Detection{{
		{Text: "FIRST", Top: 10},
		{Text: "SECOND", Top: 10},
	}})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if got.Raw != "FIRST" {
		t.Fatalf("同一 Top 应保持 locator 返回顺序，实际 %q", got.Raw)
	}
}

func TestExtract_NotFound(t *testing.T) {
	_, err := Extract([][]Detection{{}, nil})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("期望 ErrNotFound，实际 %v", err)
	}
	_, err = Extract(nil)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("空文档期望 ErrNotFound，实际 %v", err)
	}
}
