// Package fingerprint 提供行内容的 64 位指纹，以及受单把粗粒度锁保护的共享集合与三态计数器。
// 指纹碰撞为接受的风险，不做校正。
package fingerprint

import (
	"sync"

	"github.com/cespare/xxhash/v2"
)

// FP 为一行解码后文本的 64 位指纹。
type FP uint64

// Of 计算行指纹。
func Of(line string) FP { return FP(xxhash.Sum64String(line)) }

// Set 为共享指纹集合。工作者先在本地切片（arena）中累积指纹，再整体并入，
// 每次合并只持锁一次。
type Set struct {
	mu sync.Mutex
	m  map[FP]struct{}
}

// NewSet 创建空集合；hint 为预估容量。
func NewSet(hint int) *Set {
	return &Set{m: make(map[FP]struct{}, hint)}
}

// InsertAll 并入一批指纹。
func (s *Set) InsertAll(fps []FP) {
	s.mu.Lock()
	for _, fp := range fps {
		s.m[fp] = struct{}{}
	}
	s.mu.Unlock()
}

// RemoveAll 移除 other 中的全部指纹。移除单调且可交换。
// 两把锁不嵌套持有：先在 other 的锁内取快照。
func (s *Set) RemoveAll(other *Set) {
	if other == s {
		s.mu.Lock()
		clear(s.m)
		s.mu.Unlock()
		return
	}
	other.mu.Lock()
	fps := make([]FP, 0, len(other.m))
	for fp := range other.m {
		fps = append(fps, fp)
	}
	other.mu.Unlock()

	s.mu.Lock()
	for _, fp := range fps {
		delete(s.m, fp)
	}
	s.mu.Unlock()
}

// Take 若 fp 存在则移除并返回 true（消费语义）。
func (s *Set) Take(fp FP) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.m[fp]; !ok {
		return false
	}
	delete(s.m, fp)
	return true
}

// Contains 报告 fp 是否存在。
func (s *Set) Contains(fp FP) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.m[fp]
	return ok
}

// Len 返回集合大小。
func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.m)
}
