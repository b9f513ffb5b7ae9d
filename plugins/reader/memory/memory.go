// Package memory 提供内存中的 LineSource，用于流程调试与测试（无磁盘 I/O）。
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"combokit/pkg/contract"
)

// Source 以 path → 行 映射实现 contract.LineSource。并发安全。
type Source struct {
	mu    sync.RWMutex
	files map[string][]string
	reads map[string]int
}

var _ contract.LineSource = (*Source)(nil)

// New 创建 Source；files 被浅拷贝。
func New(files map[string][]string) *Source {
	m := make(map[string][]string, len(files))
	for k, v := range files {
		m[k] = v
	}
	return &Source{files: m, reads: make(map[string]int)}
}

// Put 新增或替换一个文件。
func (s *Source) Put(path string, lines ...string) {
	s.mu.Lock()
	s.files[path] = lines
	s.mu.Unlock()
}

// Reads 返回 path 被完整或部分读取的次数。
func (s *Source) Reads(path string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reads[path]
}

// Paths 返回全部路径（字典序）。
func (s *Source) Paths() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.files))
	for p := range s.files {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

func (s *Source) Stream(ctx context.Context, path string, yield func(contract.Line) error) error {
	s.mu.Lock()
	lines, ok := s.files[path]
	if ok {
		s.reads[path]++
	}
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s: no such file", contract.ErrSourceUnreadable, path)
	}
	for i, t := range lines {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := yield(contract.Line{Index: contract.Index(i), Text: t}); err != nil {
			return err
		}
	}
	return nil
}

func (s *Source) ReadAll(ctx context.Context, path string) (contract.Corpus, error) {
	c := contract.Corpus{FileID: contract.NormalizeFileID(path)}
	err := s.Stream(ctx, path, func(l contract.Line) error {
		c.Lines = append(c.Lines, l)
		return nil
	})
	return c, err
}

func (s *Source) Count(ctx context.Context, path string) (int, error) {
	n := 0
	err := s.Stream(ctx, path, func(contract.Line) error { n++; return nil })
	return n, err
}
