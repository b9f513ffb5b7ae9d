// Package memory 提供内存中的 Sink，用于流程调试与测试。
// 可选的故障注入模拟写失败与目标已存在。
package memory

import (
	"fmt"
	"sort"
	"sync"

	"combokit/pkg/contract"
)

// Options 定义可选项。
type Options struct {
	// FailFlushes: 第 k 次（从 1 计）Flush 返回 ErrWriteFailure，该批丢弃。
	FailFlushes []int
	// Existing: 打开时视为已存在的路径。
	Existing []string
}

// Store 收集所有目标的已刷写内容。并发安全；单个 Sink 仍为单线程写入。
type Store struct {
	mu       sync.Mutex
	files    map[string][]string
	order    []string
	existing map[string]bool
	fail     map[int]bool
	flushes  int
}

// NewStore 创建 Store。
func NewStore(opts *Options) *Store {
	s := &Store{files: make(map[string][]string), existing: make(map[string]bool), fail: make(map[int]bool)}
	if opts != nil {
		for _, p := range opts.Existing {
			s.existing[p] = true
		}
		for _, k := range opts.FailFlushes {
			s.fail[k] = true
		}
	}
	return s
}

// Factory 以 SinkFactory 形式暴露 Open。
func (s *Store) Factory() contract.SinkFactory {
	return func(path string) (contract.Sink, error) { return s.Open(path) }
}

// Open 打开目标；已存在（含此前创建过）返回 ErrDestinationExists。
func (s *Store) Open(path string) (*Sink, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.files[path]; ok || s.existing[path] {
		return nil, fmt.Errorf("%w: %s", contract.ErrDestinationExists, path)
	}
	return &Sink{store: s, path: path}, nil
}

// Lines 返回 path 的已写入行；ok=false 表示目标从未创建。
func (s *Store) Lines(path string) ([]string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.files[path]
	return append([]string(nil), l...), ok
}

// Paths 返回已创建的目标（字典序）。
func (s *Store) Paths() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]string(nil), s.order...)
	sort.Strings(out)
	return out
}

func (s *Store) flush(path string, lines []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushes++
	if s.fail[s.flushes] {
		return fmt.Errorf("%w: %s: injected", contract.ErrWriteFailure, path)
	}
	if _, ok := s.files[path]; !ok {
		s.order = append(s.order, path)
	}
	s.files[path] = append(s.files[path], lines...)
	return nil
}

// Sink 实现 contract.Sink；未刷写任何行则不创建目标。
type Sink struct {
	store   *Store
	path    string
	pending []string
	closed  bool
}

var _ contract.Sink = (*Sink)(nil)

func (k *Sink) Append(line string) error {
	if k.closed {
		return fmt.Errorf("%w: %s: closed", contract.ErrWriteFailure, k.path)
	}
	k.pending = append(k.pending, line)
	return nil
}

func (k *Sink) Flush() error {
	if len(k.pending) == 0 {
		return nil
	}
	err := k.store.flush(k.path, k.pending)
	k.pending = k.pending[:0]
	return err
}

func (k *Sink) Close() error {
	if k.closed {
		return nil
	}
	err := k.Flush()
	k.closed = true
	return err
}
