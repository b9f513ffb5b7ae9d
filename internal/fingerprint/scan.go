package fingerprint

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"combokit/pkg/contract"
)

// DefaultChunk 为每个工作单元的行数。
const DefaultChunk = 8192

// Streamer 为 Scan 所需的最小读取面。
type Streamer interface {
	Stream(ctx context.Context, path string, yield func(contract.Line) error) error
}

// ScanOptions 控制并行指纹阶段。
type ScanOptions struct {
	// Workers: 并行度；<=0 使用 runtime.NumCPU()。
	Workers int
	// Chunk: 每个工作单元的行数；<=0 使用 DefaultChunk。
	Chunk int
}

func (o ScanOptions) norm() (workers, chunk int) {
	workers, chunk = o.Workers, o.Chunk
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if chunk <= 0 {
		chunk = DefaultChunk
	}
	return workers, chunk
}

// Scan 流式读取 path，按块并行计算指纹并交给 apply 合并。
// 约束：
//  1. 读取单线程；仅指纹计算与合并并行，工作者数受 Workers 限制；
//  2. apply 可能被并发调用，需自行同步（Set/Counter 已满足）；
//  3. 返回时全部工作者已结束；首个错误被返回。
//
// 返回读取的行数。
func Scan(ctx context.Context, src Streamer, path string, opts ScanOptions, apply func([]FP)) (int, error) {
	workers, chunk := opts.norm()
	eg, ectx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)

	n := 0
	batch := make([]string, 0, chunk)
	dispatch := func(lines []string) {
		eg.Go(func() error {
			fps := make([]FP, len(lines))
			for i, s := range lines {
				fps[i] = Of(s)
			}
			apply(fps)
			return nil
		})
	}
	err := src.Stream(ectx, path, func(l contract.Line) error {
		batch = append(batch, l.Text)
		n++
		if len(batch) == chunk {
			dispatch(batch)
			batch = make([]string, 0, chunk)
		}
		return nil
	})
	if err == nil && len(batch) > 0 {
		dispatch(batch)
	}
	werr := eg.Wait()
	if err != nil {
		return n, err
	}
	return n, werr
}

// BuildSet 以 Scan 构建 path 的指纹集合。
func BuildSet(ctx context.Context, src Streamer, path string, opts ScanOptions) (*Set, int, error) {
	s := NewSet(0)
	n, err := Scan(ctx, src, path, opts, s.InsertAll)
	return s, n, err
}

// BuildCounter 以 Scan 构建 path 的三态计数器。
func BuildCounter(ctx context.Context, src Streamer, path string, opts ScanOptions) (*Counter, int, error) {
	c := NewCounter(0)
	n, err := Scan(ctx, src, path, opts, c.ObserveAll)
	return c, n, err
}
