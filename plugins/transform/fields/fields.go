// Package fields 抽取 "identifier:secret" 记录中的单个字段。
package fields

import "combokit/pkg/contract"

// Field 选择输出哪一侧。
type Field int

const (
	Login Field = iota
	Password
)

// Extractor 实现 contract.LineTransform。
type Extractor struct{ field Field }

var _ contract.LineTransform = Extractor{}

// New 创建字段抽取变换。
func New(f Field) Extractor { return Extractor{field: f} }

func (e Extractor) Name() string {
	if e.field == Password {
		return "password"
	}
	return "login"
}

// Transform 任一侧为空的记录被过滤。
func (e Extractor) Transform(line string) (string, bool) {
	id, secret, ok := contract.SplitCombo(line)
	if !ok {
		return "", false
	}
	if e.field == Password {
		return secret, true
	}
	return id, true
}
