package filesystem

import (
	"bytes"
	"context"
	"fmt"

	"golang.org/x/exp/mmap"

	"combokit/pkg/contract"
)

// Mapped 为内存映射的行视图：仅保存每行的字节区间，按需解码。
// 用于需要随机访问行的任务（如乱序输出），避免物化全部文本。
type Mapped struct {
	ra     *mmap.ReaderAt
	spans  []span
	decode func([]byte) (string, error)
	buf    []byte
}

type span struct {
	from, to int64 // [from, to)，不含行终止符
}

// Map 映射 path 并建立行偏移表。空尾不计为一行。
func (r *FileSystem) Map(ctx context.Context, path string) (*Mapped, error) {
	ra, err := mmap.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", contract.ErrSourceUnreadable, path, err)
	}
	m := &Mapped{ra: ra, decode: r.codec.Decoder()}
	if err := m.index(ctx, r.bufSize); err != nil {
		_ = ra.Close()
		return nil, err
	}
	return m, nil
}

func (m *Mapped) index(ctx context.Context, chunk int) error {
	size := int64(m.ra.Len())
	buf := make([]byte, chunk)
	var start int64
	for off := int64(0); off < size; {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := m.ra.ReadAt(buf, off)
		if n == 0 && err != nil {
			return fmt.Errorf("%w: %v", contract.ErrSourceUnreadable, err)
		}
		b := buf[:n]
		base := off
		for {
			i := bytes.IndexByte(b, '\n')
			if i < 0 {
				break
			}
			end := base + int64(i)
			m.spans = append(m.spans, span{from: start, to: end})
			start = end + 1
			base += int64(i) + 1
			b = b[i+1:]
		}
		off += int64(n)
	}
	if start < size {
		m.spans = append(m.spans, span{from: start, to: size})
	}
	return nil
}

// Len 返回原始行数（含可能解码失败的行）。
func (m *Mapped) Len() int { return len(m.spans) }

// Line 解码第 i 行；解码失败返回 ErrLineDecode，调用方应跳过。
// 非并发安全。
func (m *Mapped) Line(i int) (string, error) {
	s := m.spans[i]
	n := int(s.to - s.from)
	if cap(m.buf) < n {
		m.buf = make([]byte, n)
	}
	b := m.buf[:n]
	if n > 0 {
		if _, err := m.ra.ReadAt(b, s.from); err != nil {
			return "", fmt.Errorf("%w: %v", contract.ErrSourceUnreadable, err)
		}
	}
	if n > 0 && b[n-1] == '\r' {
		b = b[:n-1]
	}
	return m.decode(b)
}

// Close 解除映射。
func (m *Mapped) Close() error { return m.ra.Close() }
