// Package compare 实现多文件集合差：从主文件中移除在参照语料任一文件中出现过的行。
package compare

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"combokit/internal/fingerprint"
	"combokit/pkg/contract"
)

// Result 为单个主文件的比较统计。
type Result struct {
	MainLines  int // 主文件有效行
	Unique     int // 主文件不同指纹数
	Survivors  int // 写出的行
	RefFiles   int // 成功处理的参照文件
	RefSkipped int // 不可读而跳过的参照文件
	RefLines   int // 参照文件有效行总数
}

// RefFunc 在每个参照文件处理结束时调用；err 非空表示该文件被跳过。
// 可能被并发调用。
type RefFunc func(path string, lines int, err error)

// Comparer 为比较引擎。
// 约束：
//  1. 主集合并行构建；参照文件之间并行，各自先建局部集合再从主集合中移除；
//  2. 全部参照文件结束（屏障）之后才重读主文件；
//  3. 重读时按原顺序输出仍在主集合中的行，并在输出时消费指纹，同一内容至多输出一次；
//  4. 不可读的参照文件经 OnRef 报告后跳过，不中止比较。
type Comparer struct {
	Src contract.LineSource
	// Scan 控制单文件内的并行指纹阶段。
	Scan fingerprint.ScanOptions
	// Files: 并行处理的参照文件数；<=0 使用 runtime.NumCPU()。
	Files int
	OnRef RefFunc
}

// Compare 计算 main 相对 refs 的幸存行并写入 out。
// 无幸存行时不向 out 追加任何行。
func (c *Comparer) Compare(ctx context.Context, main string, refs []string, out contract.Sink) (Result, error) {
	var res Result
	if len(refs) == 0 {
		return res, ErrNoReference
	}
	set, n, err := fingerprint.BuildSet(ctx, c.Src, main, c.Scan)
	if err != nil {
		return res, err
	}
	res.MainLines = n
	res.Unique = set.Len()

	var refFiles, refSkipped, refLines atomic.Int64
	eg, ectx := errgroup.WithContext(ctx)
	eg.SetLimit(c.files())
	for _, ref := range refs {
		eg.Go(func() error {
			local, ln, err := fingerprint.BuildSet(ectx, c.Src, ref, c.Scan)
			if err != nil {
				if ectx.Err() != nil {
					return ectx.Err()
				}
				refSkipped.Add(1)
				c.report(ref, 0, err)
				return nil
			}
			set.RemoveAll(local)
			refFiles.Add(1)
			refLines.Add(int64(ln))
			c.report(ref, ln, nil)
			return nil
		})
	}
	// 屏障：全部参照文件结束
	if err := eg.Wait(); err != nil {
		return res, err
	}
	res.RefFiles = int(refFiles.Load())
	res.RefSkipped = int(refSkipped.Load())
	res.RefLines = int(refLines.Load())

	if set.Len() == 0 {
		return res, nil
	}
	err = contract.Quiet(c.Src).Stream(ctx, main, func(l contract.Line) error {
		if !set.Take(fingerprint.Of(l.Text)) {
			return nil
		}
		if err := out.Append(l.Text); err != nil {
			return err
		}
		res.Survivors++
		return nil
	})
	if err != nil {
		return res, err
	}
	return res, out.Flush()
}

func (c *Comparer) files() int {
	if c.Files > 0 {
		return c.Files
	}
	return runtime.NumCPU()
}

func (c *Comparer) report(path string, lines int, err error) {
	if c.OnRef != nil {
		c.OnRef(path, lines, err)
	}
}

// ErrNoReference 表示参照语料为空。
var ErrNoReference = fmt.Errorf("%w: empty reference corpus", contract.ErrInvalidInput)
