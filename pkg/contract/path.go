package contract

import (
	"path"
	"path/filepath"
	"strings"
)

// NormalizeFileID 规范化路径，统一为跨平台稳定的 FileID。
// 规则：
// - 使用正斜杠分隔符
// - 清理多余分隔符与路径片段（.、..）
// - 保留相对/绝对语义，不做隐式绝对化
func NormalizeFileID(p string) FileID {
	return FileID(path.Clean(strings.ReplaceAll(p, "\\", "/")))
}

// ResultName 由源文件名派生结果文件名：<stem><suffix>[.<ext>]。
// 源文件无扩展名时不追加点号。
func ResultName(src, suffix string) (string, error) {
	base := filepath.Base(strings.ReplaceAll(src, "\\", "/"))
	if base == "." || base == ".." || base == "/" || base == "" {
		return "", ErrPathInvalid
	}
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	if stem == "" {
		// 形如 ".hidden"：整体视为 stem
		stem, ext = base, ""
	}
	return stem + suffix + ext, nil
}

// ResultPath 返回 dir 下由 src 派生的结果文件路径。
func ResultPath(dir, src, suffix string) (string, error) {
	name, err := ResultName(src, suffix)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

// ExpandSuffix 替换后缀模板中的占位符（{num}、{ref}）。
func ExpandSuffix(tmpl string, kv map[string]string) string {
	out := tmpl
	for k, v := range kv {
		out = strings.ReplaceAll(out, "{"+k+"}", v)
	}
	return out
}
