package filesystem

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"combokit/internal/codec"
	"combokit/pkg/contract"
)

// Options: 最小必要选项。
type Options struct {
	// Capacity: 每批行数（save period）；达到即自动刷写。<=0 使用 1000。
	Capacity int `yaml:"-"`
	// Encoding: 输出代码页；空为 windows-1252，与输入保持一致。
	Encoding string `yaml:"-"`
	// PermFile/PermDir: 可选权限；为 0 表示使用实现/平台默认。
	PermFile os.FileMode `yaml:"perm_file,omitempty"`
	PermDir  os.FileMode `yaml:"perm_dir,omitempty"`
	// BufSize: 写缓冲区大小；<=0 使用实现默认。
	BufSize int `yaml:"buf_size,omitempty"`
	// Sync: Close 时 fsync 文件与父目录。
	Sync bool `yaml:"sync,omitempty"`
}

// FS 为批量写入器的工厂，持有共享选项。
type FS struct {
	capacity int
	codec    codec.Codec
	permF    os.FileMode
	permD    os.FileMode
	bufSize  int
	sync     bool
}

// New 创建文件系统 Writer 工厂。
func New(opts *Options) (*FS, error) {
	if opts == nil {
		opts = &Options{}
	}
	c, err := codec.Lookup(opts.Encoding)
	if err != nil {
		return nil, err
	}
	capacity := opts.Capacity
	if capacity <= 0 {
		capacity = 1000
	}
	bsz := opts.BufSize
	if bsz <= 0 {
		bsz = 64 * 1024
	}
	pf := opts.PermFile
	if pf == 0 {
		pf = 0o644
	}
	pd := opts.PermDir
	if pd == 0 {
		pd = 0o755
	}
	return &FS{capacity: capacity, codec: c, permF: pf, permD: pd, bufSize: bsz, sync: opts.Sync}, nil
}

// Factory 以 SinkFactory 形式暴露 Open。
func (w *FS) Factory() contract.SinkFactory {
	return func(path string) (contract.Sink, error) { return w.Open(path) }
}

// Open 为 path 准备一个批量写入器；文件在首次刷写时才创建。
// 约束：
//  1. path 在打开时已存在 → ErrDestinationExists。
//  2. 空路径或以分隔符结尾 → ErrPathInvalid。
func (w *FS) Open(path string) (*BatchWriter, error) {
	if strings.TrimSpace(path) == "" || strings.HasSuffix(path, string(filepath.Separator)) {
		return nil, contract.ErrPathInvalid
	}
	dest := filepath.Clean(path)
	if _, err := os.Lstat(dest); err == nil {
		return nil, fmt.Errorf("%w: %s", contract.ErrDestinationExists, dest)
	}
	return &BatchWriter{
		fs:     w,
		path:   dest,
		encode: w.codec.Encoder(),
	}, nil
}

// BatchWriter 将行缓冲至容量后以追加方式写入目标文件。
// 约束：
//  1. 每行写出后紧随 CRLF，再编码为目标代码页。
//  2. 目标文件惰性创建（O_CREATE|O_EXCL），从未刷写过的写入器不会留下文件。
//  3. 某批写入失败时该批丢弃并返回 ErrWriteFailure，后续批次照常写入。
//  4. 非并发安全；共享时由调用方加锁。
type BatchWriter struct {
	fs      *FS
	path    string
	encode  func(string) ([]byte, error)
	pending bytes.Buffer
	n       int // pending 中的行数
	written int
	lost    int
	f       *os.File
	bw      *bufio.Writer
	closed  bool
}

var _ contract.Sink = (*BatchWriter)(nil)

// Path 返回目标路径。
func (b *BatchWriter) Path() string { return b.path }

// Written 返回已成功写入的行数。
func (b *BatchWriter) Written() int { return b.written }

// Lost 返回因写失败而丢弃的行数。
func (b *BatchWriter) Lost() int { return b.lost }

// Created 报告目标文件是否已创建。
func (b *BatchWriter) Created() bool { return b.f != nil }

// Append 缓冲一行；达到容量时自动刷写并返回刷写错误。
func (b *BatchWriter) Append(line string) error {
	if b.closed {
		return fmt.Errorf("%w: %s: writer closed", contract.ErrWriteFailure, b.path)
	}
	enc, err := b.encode(line + "\r\n")
	if err != nil {
		b.lost++
		return fmt.Errorf("%w: %s: encode: %v", contract.ErrWriteFailure, b.path, err)
	}
	b.pending.Write(enc)
	b.n++
	if b.n >= b.fs.capacity {
		return b.Flush()
	}
	return nil
}

// Flush 将缓冲批次追加到目标文件；空批次不创建文件。
func (b *BatchWriter) Flush() error {
	if b.n == 0 {
		return nil
	}
	if err := b.ensureOpen(); err != nil {
		return err
	}
	n := b.n
	_, err := b.bw.Write(b.pending.Bytes())
	if err == nil {
		err = b.bw.Flush()
	}
	b.pending.Reset()
	b.n = 0
	if err != nil {
		b.lost += n
		// 丢弃 bufio 中残留的部分数据，避免污染下一批
		b.bw.Reset(b.f)
		return fmt.Errorf("%w: %s: %v", contract.ErrWriteFailure, b.path, err)
	}
	b.written += n
	return nil
}

// Close 刷写剩余批次并关闭文件。重复调用无副作用。
func (b *BatchWriter) Close() error {
	if b.closed {
		return nil
	}
	ferr := b.Flush()
	b.closed = true
	if b.f == nil {
		return ferr
	}
	var serr error
	if b.fs.sync {
		serr = b.f.Sync()
	}
	cerr := b.f.Close()
	if b.fs.sync {
		_ = syncDir(filepath.Dir(b.path))
	}
	if cerr != nil {
		cerr = fmt.Errorf("%w: %s: %v", contract.ErrWriteFailure, b.path, cerr)
	}
	return errors.Join(ferr, serr, cerr)
}

func (b *BatchWriter) ensureOpen() error {
	if b.f != nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(b.path), b.fs.permD); err != nil {
		b.dropPending()
		return fmt.Errorf("%w: %s: %v", contract.ErrDestinationUnwritable, b.path, err)
	}
	f, err := os.OpenFile(b.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY|os.O_APPEND, b.fs.permF)
	if err != nil {
		b.dropPending()
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%w: %s", contract.ErrDestinationExists, b.path)
		}
		return fmt.Errorf("%w: %s: %v", contract.ErrDestinationUnwritable, b.path, err)
	}
	b.f = f
	b.bw = bufio.NewWriterSize(f, b.fs.bufSize)
	return nil
}

func (b *BatchWriter) dropPending() {
	b.lost += b.n
	b.pending.Reset()
	b.n = 0
}
