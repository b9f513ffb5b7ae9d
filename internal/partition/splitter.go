package partition

import (
	"context"
	"fmt"

	"combokit/pkg/contract"
)

// OpenFunc 为分片打开目标。
type OpenFunc func(r Range) (contract.Sink, error)

// Splitter 按计划把源文件逐批写入各分片。
// 约束：
//  1. 自持批缓冲（容量 Capacity）；批跨越分片边界时，仅把属于当前分片的前缀写入当前目标，
//     关闭之，打开下一分片，余下部分作为下一分片的首批继续；
//  2. 每个分片实际写出行数必须等于计划大小，否则返回 ErrInvariant；
//  3. 分片目标依次打开，任一时刻至多一个处于打开状态。
type Splitter struct {
	Open     OpenFunc
	Capacity int
}

// Split 按 plan 写出 path；返回各分片已写出的行数。
func (s *Splitter) Split(ctx context.Context, src contract.LineSource, path string, plan []Range) ([]int, error) {
	w := &partWriter{open: s.Open, plan: plan, counts: make([]int, len(plan))}
	capacity := s.Capacity
	if capacity <= 0 {
		capacity = 1000
	}
	batch := make([]string, 0, capacity)
	err := src.Stream(ctx, path, func(l contract.Line) error {
		batch = append(batch, l.Text)
		if len(batch) == capacity {
			if err := w.write(batch); err != nil {
				return err
			}
			batch = batch[:0]
		}
		return nil
	})
	if err == nil && len(batch) > 0 {
		err = w.write(batch)
	}
	if cerr := w.closeCurrent(); err == nil {
		err = cerr
	}
	if err != nil {
		return w.counts, err
	}
	for i, r := range plan {
		if w.counts[i] != r.Len() {
			return w.counts, fmt.Errorf("%w: part %d wrote %d lines, planned %d", contract.ErrInvariant, r.Index, w.counts[i], r.Len())
		}
	}
	return w.counts, nil
}

type partWriter struct {
	open   OpenFunc
	plan   []Range
	counts []int
	cur    int // 当前分片下标
	sink   contract.Sink
}

func (w *partWriter) write(batch []string) error {
	for len(batch) > 0 {
		if w.cur >= len(w.plan) {
			return fmt.Errorf("%w: %d lines beyond the last planned part", contract.ErrInvariant, len(batch))
		}
		if w.sink == nil {
			sink, err := w.open(w.plan[w.cur])
			if err != nil {
				return err
			}
			w.sink = sink
		}
		room := w.plan[w.cur].Len() - w.counts[w.cur]
		take := min(room, len(batch))
		if err := w.appendAll(batch[:take]); err != nil {
			return err
		}
		w.counts[w.cur] += take
		batch = batch[take:]
		if w.counts[w.cur] == w.plan[w.cur].Len() {
			if err := w.closeCurrent(); err != nil {
				return err
			}
			w.cur++
		}
	}
	return nil
}

func (w *partWriter) appendAll(lines []string) error {
	for _, l := range lines {
		if err := w.sink.Append(l); err != nil {
			return err
		}
	}
	return w.sink.Flush()
}

func (w *partWriter) closeCurrent() error {
	if w.sink == nil {
		return nil
	}
	err := w.sink.Close()
	w.sink = nil
	return err
}
