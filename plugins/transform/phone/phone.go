// Package phone 抽取并规范化以电话号码为登录名的记录。
//
// 规范化规则（仅计 ASCII 数字，长度 8..15）：
//   - 10 位且以 9 或 7 开头：补前缀 7
//   - 11 位且以 8 开头：首位替换为 7
//   - 10 位且以 0 开头：补前缀 38
//
// 规范化后须为 RU(7, 11 位)、UA(380, 12 位)、BY(375, 12 位)、MD(373, 11 位) 之一；
// 原号码以 '+' 开头时不做国别限制。
package phone

import (
	"strings"

	"combokit/pkg/contract"
)

const (
	minDigits = 8
	maxDigits = 15
)

// Extractor 实现 contract.LineTransform。
type Extractor struct{}

var _ contract.LineTransform = Extractor{}

// New 创建电话抽取变换。
func New() Extractor { return Extractor{} }

func (Extractor) Name() string { return "phone" }

// Transform 输出 "phone:secret"。
func (Extractor) Transform(line string) (string, bool) {
	id, secret, ok := contract.SplitCombo(line)
	if !ok {
		return "", false
	}
	p, ok := Normalize(id)
	if !ok {
		return "", false
	}
	return p + ":" + secret, true
}

// Normalize 规范化单个号码；含 '@' 的登录名视为邮箱而非号码。
func Normalize(raw string) (string, bool) {
	if strings.IndexByte(raw, '@') >= 0 {
		return "", false
	}
	plus := strings.HasPrefix(raw, "+")

	digits := make([]byte, 0, maxDigits)
	for i := 0; i < len(raw); i++ {
		if c := raw[i]; c >= '0' && c <= '9' {
			digits = append(digits, c)
		}
	}
	if len(digits) < minDigits || len(digits) > maxDigits {
		return "", false
	}

	d := string(digits)
	switch {
	case len(d) == 10 && (d[0] == '9' || d[0] == '7'):
		d = "7" + d
	case len(d) == 11 && d[0] == '8':
		d = "7" + d[1:]
	case len(d) == 10 && d[0] == '0':
		d = "38" + d
	}

	switch {
	case strings.HasPrefix(d, "7") && len(d) == 11,
		strings.HasPrefix(d, "380") && len(d) == 12,
		strings.HasPrefix(d, "375") && len(d) == 12,
		strings.HasPrefix(d, "373") && len(d) == 11,
		plus:
		return d, true
	}
	return "", false
}
