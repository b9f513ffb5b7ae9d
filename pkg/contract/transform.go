package contract

import "strings"

// LineTransform: 逐行纯函数变换（无 I/O、无状态、可并发调用）。
// 返回 ok=false 表示该行不产出结果（被过滤）。
type LineTransform interface {
	Name() string
	Transform(line string) (out string, ok bool)
}

// SplitCombo 在第一个 ':' 或 ';' 处切分 "identifier:secret" 记录。
// 分隔符缺失或任一侧为空时 ok=false。
func SplitCombo(line string) (id, secret string, ok bool) {
	i := strings.IndexAny(line, ":;")
	if i < 0 {
		return "", "", false
	}
	id, secret = line[:i], line[i+1:]
	if id == "" || secret == "" {
		return "", "", false
	}
	return id, secret, true
}
