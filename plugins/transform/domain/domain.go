// Package domain 去除登录名中的邮箱域名：user@host:pass → user:pass。
package domain

import (
	"strings"

	"combokit/pkg/contract"
)

// Name 为注册表中的名称。
const Name = "domain"

// Remover 实现 contract.LineTransform。
type Remover struct{}

var _ contract.LineTransform = Remover{}

// New 创建去域名变换。
func New() Remover { return Remover{} }

func (Remover) Name() string { return Name }

// Transform 取第一个 '@' 之前的部分作为用户名，保留原口令；
// 没有 '@' 时用户名即整个登录名。分隔符统一输出为 ':'。
func (Remover) Transform(line string) (string, bool) {
	id, secret, ok := contract.SplitCombo(line)
	if !ok {
		return "", false
	}
	if i := strings.IndexByte(id, '@'); i >= 0 {
		id = id[:i]
	}
	return id + ":" + secret, true
}
