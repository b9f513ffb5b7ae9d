package filesystem

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"combokit/pkg/contract"
)

func mustNew(t *testing.T, opts *Options) *FileSystem {
	t.Helper()
	r, err := New(opts)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	return r
}

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return p
}

// TestStreamLineBreaks CRLF/LF 混用、末尾未终止行与空尾
func TestStreamLineBreaks(t *testing.T) {
	dir := t.TempDir()
	cases := []struct {
		name string
		data string
		want []string
	}{
		{"lf", "a\nb\nc\n", []string{"a", "b", "c"}},
		{"crlf", "a\r\nb\r\n", []string{"a", "b"}},
		{"unterminated", "a\nb", []string{"a", "b"}},
		{"empty", "", []string{}},
		{"blank-lines", "a\n\n\nb\n", []string{"a", "", "", "b"}},
		{"lone-cr-kept", "a\rb\n", []string{"a\rb"}},
	}
	r := mustNew(t, nil)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := writeFile(t, dir, tc.name+".txt", []byte(tc.data))
			c, err := r.ReadAll(context.Background(), p)
			if err != nil {
				t.Fatalf("read: %v", err)
			}
			if diff := cmp.Diff(tc.want, c.Texts()); diff != "" {
				t.Fatalf("lines mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

// TestStreamLongLine 超过缓冲区长度的行需完整拼接
func TestStreamLongLine(t *testing.T) {
	dir := t.TempDir()
	long := strings.Repeat("x", 300)
	p := writeFile(t, dir, "long.txt", []byte(long+"\nshort\n"))
	r := mustNew(t, &Options{BufSize: 16})
	c, err := r.ReadAll(context.Background(), p)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if diff := cmp.Diff([]string{long, "short"}, c.Texts()); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
}

// TestStreamWindows1252 默认代码页解码高位字节
func TestStreamWindows1252(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "cp.txt", []byte{'u', 's', 'e', 'r', 0xe9, ':', 0x80, '\n'})
	r := mustNew(t, nil)
	c, err := r.ReadAll(context.Background(), p)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got := c.Texts(); len(got) != 1 || got[0] != "useré:€" {
		t.Fatalf("decoded %q", got)
	}
}

// TestStreamSkipsUndecodable 严格 UTF-8 下坏行被跳过且序号留空洞
func TestStreamSkipsUndecodable(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "u.txt", []byte("ok1\n\xff\xfe\nok2\n"))
	r := mustNew(t, &Options{Encoding: "utf-8"})
	var skipped []contract.Index
	r.OnSkip(func(path string, idx contract.Index, err error) {
		if !errors.Is(err, contract.ErrLineDecode) {
			t.Errorf("skip err = %v", err)
		}
		skipped = append(skipped, idx)
	})
	c, err := r.ReadAll(context.Background(), p)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	want := []contract.Line{{Index: 0, Text: "ok1"}, {Index: 2, Text: "ok2"}}
	if diff := cmp.Diff(want, c.Lines); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]contract.Index{1}, skipped); diff != "" {
		t.Fatalf("skipped (-want +got):\n%s", diff)
	}
	n, err := r.Count(context.Background(), p)
	if err != nil || n != 2 {
		t.Fatalf("count=%d err=%v", n, err)
	}
}

// TestQuietSuppressesSkip Quiet 视图跳过坏行但不回调，原实例不受影响
func TestQuietSuppressesSkip(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "q.txt", []byte("ok1\n\xff\nok2\n"))
	r := mustNew(t, &Options{Encoding: "utf-8"})
	calls := 0
	r.OnSkip(func(string, contract.Index, error) { calls++ })

	q := contract.Quiet(r)
	n, err := q.Count(context.Background(), p)
	if err != nil || n != 2 {
		t.Fatalf("quiet count=%d err=%v", n, err)
	}
	if calls != 0 {
		t.Fatalf("quiet view reported %d skips", calls)
	}
	if _, err := r.Count(context.Background(), p); err != nil {
		t.Fatalf("count: %v", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

// TestStreamMissing 不存在的文件返回 ErrSourceUnreadable
func TestStreamMissing(t *testing.T) {
	r := mustNew(t, nil)
	_, err := r.ReadAll(context.Background(), filepath.Join(t.TempDir(), "nope"))
	if !errors.Is(err, contract.ErrSourceUnreadable) {
		t.Fatalf("want ErrSourceUnreadable, got %v", err)
	}
}

// TestStreamYieldError yield 错误原样返回
func TestStreamYieldError(t *testing.T) {
	p := writeFile(t, t.TempDir(), "a.txt", []byte("a\nb\n"))
	r := mustNew(t, nil)
	stop := errors.New("stop")
	seen := 0
	err := r.Stream(context.Background(), p, func(contract.Line) error {
		seen++
		return stop
	})
	if !errors.Is(err, stop) || seen != 1 {
		t.Fatalf("err=%v seen=%d", err, seen)
	}
}

// TestStreamCtxCancel 上下文取消
func TestStreamCtxCancel(t *testing.T) {
	p := writeFile(t, t.TempDir(), "a.txt", []byte("x\n"))
	r := mustNew(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := r.Stream(ctx, p, func(contract.Line) error { return nil })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expect ctx cancel, got %v", err)
	}
}

// TestNewUnknownEncoding 未知编码在构造时失败
func TestNewUnknownEncoding(t *testing.T) {
	if _, err := New(&Options{Encoding: "nope-1"}); !errors.Is(err, contract.ErrInvalidInput) {
		t.Fatalf("want ErrInvalidInput, got %v", err)
	}
}

// TestListFilesExcludeDir 跳过目录并保持稳定顺序
func TestListFilesExcludeDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.txt", []byte("b"))
	writeFile(t, dir, "a.txt", []byte("a"))
	sub := filepath.Join(dir, "sub")
	os.Mkdir(sub, 0o755)
	writeFile(t, sub, "c.txt", []byte("c"))
	skip := filepath.Join(dir, "skip")
	os.Mkdir(skip, 0o755)
	writeFile(t, skip, "bad.txt", []byte("x"))

	r := mustNew(t, &Options{ExcludeDirNames: []string{"SKIP"}})
	got, err := r.ListFiles(context.Background(), []string{dir})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []string{filepath.Join(sub, "c.txt"), filepath.Join(dir, "a.txt"), filepath.Join(dir, "b.txt")}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
}

// TestMapOffsets 映射视图与流式读取一致
func TestMapOffsets(t *testing.T) {
	p := writeFile(t, t.TempDir(), "m.txt", []byte("one\r\ntwo\n\nfour"))
	r := mustNew(t, &Options{BufSize: 3})
	m, err := r.Map(context.Background(), p)
	if err != nil {
		t.Fatalf("map: %v", err)
	}
	defer m.Close()
	var got []string
	for i := 0; i < m.Len(); i++ {
		s, err := m.Line(i)
		if err != nil {
			t.Fatalf("line %d: %v", i, err)
		}
		got = append(got, s)
	}
	if diff := cmp.Diff([]string{"one", "two", "", "four"}, got); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
}

// TestMapEmpty 空文件无行
func TestMapEmpty(t *testing.T) {
	p := writeFile(t, t.TempDir(), "e.txt", nil)
	r := mustNew(t, nil)
	m, err := r.Map(context.Background(), p)
	if err != nil {
		t.Fatalf("map: %v", err)
	}
	defer m.Close()
	if m.Len() != 0 {
		t.Fatalf("len=%d", m.Len())
	}
}
