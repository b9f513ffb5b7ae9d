// Package partition 将一个文件的行序号空间切分为连续、不重叠的编号分片，并按计划写出。
package partition

import (
	"fmt"

	"combokit/pkg/contract"
)

// Range 为一个分片：[From, To)，Index 从 1 计。
type Range struct {
	Index int
	From  int
	To    int
}

// Len 返回分片行数。
func (r Range) Len() int { return r.To - r.From }

// Mode 选择计划方式。
type Mode int

const (
	// PerPart: 参数为每份行数 L。
	PerPart Mode = iota
	// Parts: 参数为份数 P。
	Parts
)

// Plan 按 mode 计算 n 行的分片计划。
func Plan(mode Mode, n, param int) ([]Range, error) {
	if mode == Parts {
		return ByParts(n, param)
	}
	return ByLines(n, param)
}

// ByLines 每份 l 行，共 ⌈n/l⌉ 份；最后一份为余数（n=10, l=3 → [3,3,3,1]）。
func ByLines(n, l int) ([]Range, error) {
	if l <= 0 {
		return nil, fmt.Errorf("%w: lines per part must be > 0, got %d", contract.ErrInvalidInput, l)
	}
	if n < 0 {
		return nil, fmt.Errorf("%w: negative line count %d", contract.ErrInvalidInput, n)
	}
	out := make([]Range, 0, (n+l-1)/l)
	for from := 0; from < n; from += l {
		out = append(out, Range{Index: len(out) + 1, From: from, To: min(from+l, n)})
	}
	return out, nil
}

// ByParts 以 L = n/p（向下取整）切分；p > n 时 L 取 n，仅一份。
// p ≤ n 时恰好产出 p 份，最后一份吸收余数，其大小 ≥ L。
func ByParts(n, p int) ([]Range, error) {
	if p <= 0 {
		return nil, fmt.Errorf("%w: part count must be > 0, got %d", contract.ErrInvalidInput, p)
	}
	if n < 0 {
		return nil, fmt.Errorf("%w: negative line count %d", contract.ErrInvalidInput, n)
	}
	if n == 0 {
		return nil, nil
	}
	l, parts := n/p, p
	if l == 0 {
		l, parts = n, 1
	}
	out := make([]Range, 0, parts)
	for i := 0; i < parts; i++ {
		out = append(out, Range{Index: i + 1, From: i * l, To: (i + 1) * l})
	}
	out[len(out)-1].To = n
	return out, nil
}

// Total 返回计划覆盖的行数。
func Total(plan []Range) int {
	if len(plan) == 0 {
		return 0
	}
	return plan[len(plan)-1].To - plan[0].From
}
