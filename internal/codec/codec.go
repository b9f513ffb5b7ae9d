// Package codec 解析配置中的编码名，并提供逐行解码/编码函数。
// 默认编码 windows-1252 为单字节代码页，全部 256 个字节值均可往返。
package codec

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"

	"combokit/pkg/contract"
)

// Default 为语料的既有格式所使用的编码。
const Default = "windows-1252"

// Codec: 一种行编码。enc 为 nil 表示严格 UTF-8（非法字节序列视为坏行）。
type Codec struct {
	name string
	enc  encoding.Encoding
}

// Lookup 按 WHATWG 名称或别名解析编码；空名使用 Default。
func Lookup(name string) (Codec, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		n = Default
	}
	switch n {
	case "utf-8", "utf8":
		return Codec{name: "utf-8"}, nil
	case "windows-1252", "cp1252":
		// 直接取 charmap，避免 htmlindex 别名差异
		return Codec{name: "windows-1252", enc: charmap.Windows1252}, nil
	}
	enc, err := htmlindex.Get(n)
	if err != nil {
		return Codec{}, fmt.Errorf("%w: unknown encoding %q", contract.ErrInvalidInput, name)
	}
	canon, err := htmlindex.Name(enc)
	if err != nil {
		canon = n
	}
	if canon == "utf-8" {
		return Codec{name: "utf-8"}, nil
	}
	return Codec{name: canon, enc: enc}, nil
}

// Name 返回规范编码名。
func (c Codec) Name() string {
	if c.name == "" {
		return Default
	}
	return c.name
}

// Decoder 返回一个逐行解码函数。返回的函数不可并发调用；每个读取方各自获取。
func (c Codec) Decoder() func(raw []byte) (string, error) {
	if c.enc == nil {
		return func(raw []byte) (string, error) {
			if !utf8.Valid(raw) {
				return "", contract.ErrLineDecode
			}
			return string(raw), nil
		}
	}
	dec := c.enc.NewDecoder()
	return func(raw []byte) (string, error) {
		b, err := dec.Bytes(raw)
		if err != nil {
			return "", fmt.Errorf("%w: %v", contract.ErrLineDecode, err)
		}
		return string(b), nil
	}
}

// Encoder 返回一个编码函数，将 UTF-8 文本转回目标代码页。
// 目标代码页无法表示的字符返回错误，由调用方按写失败处理。
func (c Codec) Encoder() func(s string) ([]byte, error) {
	if c.enc == nil {
		return func(s string) ([]byte, error) { return []byte(s), nil }
	}
	enc := c.enc.NewEncoder()
	return func(s string) ([]byte, error) {
		return enc.Bytes([]byte(s))
	}
}
