// Package dedup 实现单文件去重与重复抽取。
// 三种策略对外契约一致：读取一个文件的行，向一个目标写出去重后的行。
package dedup

import (
	"context"
	"slices"

	"combokit/internal/fingerprint"
	"combokit/pkg/contract"
)

// Stats 为单次运行的行计数。
type Stats struct {
	In  int // 读取的有效行
	Out int // 写出的行
}

// Strategy 为可互换的去重策略。
type Strategy interface {
	Name() string
	Dedup(ctx context.Context, src contract.LineSource, path string, out contract.Sink) (Stats, error)
}

// 策略名（配置 dedup_strategy 的取值）。
const (
	NameMemory = "memory"
	NameSort   = "sort"
	NameStream = "stream"
)

// MemorySet: 物化全部行并以内容为键的哈希集合去重；输出顺序不保证。
type MemorySet struct{}

func (MemorySet) Name() string { return NameMemory }

func (MemorySet) Dedup(ctx context.Context, src contract.LineSource, path string, out contract.Sink) (Stats, error) {
	c, err := src.ReadAll(ctx, path)
	if err != nil {
		return Stats{}, err
	}
	st := Stats{In: c.Len()}
	set := make(map[string]struct{}, c.Len())
	for _, l := range c.Lines {
		set[l.Text] = struct{}{}
	}
	c.Lines = nil
	for s := range set {
		if err := out.Append(s); err != nil {
			return st, err
		}
		st.Out++
	}
	return st, out.Flush()
}

// SortUnique: 物化、字典序排序、去除相邻重复；输出有序且与调度无关。
type SortUnique struct{}

func (SortUnique) Name() string { return NameSort }

func (SortUnique) Dedup(ctx context.Context, src contract.LineSource, path string, out contract.Sink) (Stats, error) {
	c, err := src.ReadAll(ctx, path)
	if err != nil {
		return Stats{}, err
	}
	texts := c.Texts()
	c.Lines = nil
	st := Stats{In: len(texts)}
	slices.Sort(texts)
	texts = slices.Compact(texts)
	for _, s := range texts {
		if err := out.Append(s); err != nil {
			return st, err
		}
		st.Out++
	}
	return st, out.Flush()
}

// Stream: 两遍保序去重。第一遍并行建立三态计数，第二遍顺序重读。
type Stream struct {
	Scan fingerprint.ScanOptions
}

func (Stream) Name() string { return NameStream }

// Dedup 保留每个内容的首次出现；首次输出即消费指纹，后续重复被丢弃。
func (s Stream) Dedup(ctx context.Context, src contract.LineSource, path string, out contract.Sink) (Stats, error) {
	return s.run(ctx, src, path, out, func(c *fingerprint.Counter, fp fingerprint.FP) bool {
		return c.Consume(fp) != fingerprint.Unseen
	})
}

// Extract 仅输出第一遍中出现超过一次的内容，每个内容恰好一条。
func (s Stream) Extract(ctx context.Context, src contract.LineSource, path string, out contract.Sink) (Stats, error) {
	return s.run(ctx, src, path, out, func(c *fingerprint.Counter, fp fingerprint.FP) bool {
		if c.State(fp) != fingerprint.SeenMultiple {
			return false
		}
		c.Consume(fp)
		return true
	})
}

func (s Stream) run(ctx context.Context, src contract.LineSource, path string, out contract.Sink, keep func(*fingerprint.Counter, fingerprint.FP) bool) (Stats, error) {
	counter, n, err := fingerprint.BuildCounter(ctx, src, path, s.Scan)
	if err != nil {
		return Stats{}, err
	}
	st := Stats{In: n}
	err = contract.Quiet(src).Stream(ctx, path, func(l contract.Line) error {
		if !keep(counter, fingerprint.Of(l.Text)) {
			return nil
		}
		if err := out.Append(l.Text); err != nil {
			return err
		}
		st.Out++
		return nil
	})
	if err != nil {
		return st, err
	}
	return st, out.Flush()
}

// New 按名称返回策略；未知名称 ok=false。
func New(name string, scan fingerprint.ScanOptions) (Strategy, bool) {
	switch name {
	case NameMemory:
		return MemorySet{}, true
	case NameSort:
		return SortUnique{}, true
	case NameStream, "":
		return Stream{Scan: scan}, true
	}
	return nil, false
}

// Names 返回全部策略名。
func Names() []string { return []string{NameMemory, NameSort, NameStream} }
