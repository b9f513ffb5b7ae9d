package filesystem

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"combokit/internal/codec"
	"combokit/pkg/contract"
)

// Options 为 FileSystem Reader 的可选配置（最小必要）。
type Options struct {
	// BufSize 为读缓冲区大小（字节）。默认 64KiB。
	BufSize int `yaml:"buf_size"`
	// ExcludeDirNames: 在扫描目录时跳过这些目录名（基名完全匹配）。
	// 仅影响目录递归，不影响单文件 root。
	ExcludeDirNames []string `yaml:"exclude_dir_names"`
	// Encoding: 输入代码页名；空为 windows-1252。
	Encoding string `yaml:"-"`
}

// SkipFunc 在某行因解码失败被跳过时调用；index 为该行在源文件中的位置。
type SkipFunc func(path string, index contract.Index, err error)

// FileSystem 实现基于本地文件的 LineSource。
// 约束：
//  1. 以 '\n' 分行，去除行尾的单个 '\r'；末尾未终止的非空行计入，末尾空尾不计入。
//  2. 逐行解码；解码失败的行被跳过并经 SkipFunc 报告，其余行照常产出。
//  3. Index 为原始行位置，被跳过的行会在序号上留下空洞。
type FileSystem struct {
	bufSize int
	// 以小写形式保存，比较时按小写基名匹配。
	excludeDir map[string]struct{}
	codec      codec.Codec
	onSkip     SkipFunc
}

var _ contract.LineSource = (*FileSystem)(nil)

// New 创建 FileSystem Reader。
func New(opts *Options) (*FileSystem, error) {
	const defaultBuf = 64 * 1024
	b := defaultBuf
	if opts != nil && opts.BufSize > 0 {
		b = opts.BufSize
	}
	ex := make(map[string]struct{})
	enc := ""
	if opts != nil {
		for _, name := range opts.ExcludeDirNames {
			if name == "" {
				continue
			}
			ex[strings.ToLower(name)] = struct{}{}
		}
		enc = opts.Encoding
	}
	c, err := codec.Lookup(enc)
	if err != nil {
		return nil, err
	}
	return &FileSystem{bufSize: b, excludeDir: ex, codec: c}, nil
}

// OnSkip 注册坏行回调；nil 表示静默跳过。须在首次读取前调用。
func (r *FileSystem) OnSkip(fn SkipFunc) { r.onSkip = fn }

// Quiet 返回共享配置、但不触发 OnSkip 的副本。
func (r *FileSystem) Quiet() contract.LineSource {
	q := *r
	q.onSkip = nil
	return &q
}

// Encoding 返回生效的代码页名。
func (r *FileSystem) Encoding() string { return r.codec.Name() }

// Stream 逐行解码 path，并按文件顺序对每个有效行调用 yield。
// yield 返回错误时立即停止并原样返回该错误。
func (r *FileSystem) Stream(ctx context.Context, path string, yield func(contract.Line) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", contract.ErrSourceUnreadable, path, err)
	}
	defer f.Close()

	lr := lineReader{br: bufio.NewReaderSize(f, r.bufSize)}
	decode := r.codec.Decoder()
	var idx contract.Index
	for ; ; idx++ {
		if idx%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		raw, err := lr.next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: %s: %v", contract.ErrSourceUnreadable, path, err)
		}
		text, derr := decode(raw)
		if derr != nil {
			if r.onSkip != nil {
				r.onSkip(path, idx, derr)
			}
			continue
		}
		if err := yield(contract.Line{Index: idx, Text: text}); err != nil {
			return err
		}
	}
}

// ReadAll 物化整个文件。
func (r *FileSystem) ReadAll(ctx context.Context, path string) (contract.Corpus, error) {
	c := contract.Corpus{FileID: contract.NormalizeFileID(path)}
	err := r.Stream(ctx, path, func(l contract.Line) error {
		c.Lines = append(c.Lines, l)
		return nil
	})
	if err != nil {
		return contract.Corpus{}, err
	}
	return c, nil
}

// Count 返回有效行数；与 Stream 使用同一解码路径，坏行同样不计入。
func (r *FileSystem) Count(ctx context.Context, path string) (int, error) {
	n := 0
	err := r.Stream(ctx, path, func(contract.Line) error {
		n++
		return nil
	})
	return n, err
}

// lineReader 复用内部缓冲按 '\n' 切行；返回的切片在下一次 next 前有效。
type lineReader struct {
	br  *bufio.Reader
	buf []byte
}

func (lr *lineReader) next() ([]byte, error) {
	lr.buf = lr.buf[:0]
	for {
		chunk, err := lr.br.ReadSlice('\n')
		lr.buf = append(lr.buf, chunk...)
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if err != nil {
			if err == io.EOF && len(lr.buf) > 0 {
				return trimEOL(lr.buf), nil
			}
			return nil, err
		}
		return trimEOL(lr.buf), nil
	}
}

func trimEOL(b []byte) []byte {
	if n := len(b); n > 0 && b[n-1] == '\n' {
		b = b[:n-1]
	}
	if n := len(b); n > 0 && b[n-1] == '\r' {
		b = b[:n-1]
	}
	return b
}
