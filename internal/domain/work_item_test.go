package domain

import (
	"reflect"
	"testing"
)

func TestNewWorkItems_DropsBlankLinesAndKeepsOrder(t *testing.T) {
	got := NewWorkItems([]string{"http://a/doc.pdf", "", "  ", "http://b/doc.pdf"})
	want := []WorkItem{
		{Index: 0, Source: "http://a/doc.pdf"},
		{Index: 1, Source: "http://b/doc.pdf"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("WorkItem 不符合预期：got=%v want=%v", got, want)
	}
}

func TestNewWorkItems_NoDedupAndTrim(t *testing.T) {
	got := NewWorkItems([]string{" http://a/x.pdf\t", "http://a/x.pdf", "\r\n"})
	if len(got) != 2 {
		t.Fatalf("不应去重：期望 2 个，实际 %d", len(got))
	}
	if got[0].Source != "http://a/x.pdf" || got[1].Index != 1 {
		t.Fatalf("trim/index 不正确：%v", got)
	}
}

func TestNewWorkItems_Empty(t *testing.T) {
	if got := NewWorkItems(nil); len(got) != 0 {
		t.Fatalf("期望空结果，实际 %v", got)
	}
}

func TestOutcomeConstructors(t *testing.T) {
	it := WorkItem{Index: 3, Source: "s"}

	f := Failed(it, "u", ErrCodeFetchStatus, "HTTP 404")
	if f.Index != 3 || f.Token != TokenNotFound || f.RawCode != "" || f.Failure == "" || f.Status != StatusFailed {
		t.Fatalf("Failed 构造不符合约束：%+v", f)
	}

	n := NotFound(it, "u")
	if n.Failure != "" || n.Token != TokenNotFound || n.Status != StatusNotFound {
		t.Fatalf("NotFound 构造不符合约束：%+v", n)
	}

	ok := Found(it, "u", "RAW", "TOK")
	if ok.Failure != "" || ok.Token != "TOK" || ok.RawCode != "RAW" || ok.Status != StatusOK {
		t.Fatalf("Found 构造不符合约束：%+v", ok)
	}
}
