package contract

// FileID: 逻辑文件ID（通常为路径，需规范化，跨平台一致）。
type FileID string

// Index: 单文件内稳定递增的行号（0..n-1）。
type Index int64

// Line: 原子输入单元（不可跨文件）。
// 约束：
// - Index 自 0 严格递增；被跳过的坏行不占用新的 Index，但其原始行号保留空缺；
// - Text 为解码后的原始文本（仅去除行尾 \r\n / \n），不做业务性清洗。
type Line struct {
	Index Index
	Text  string
}

// Corpus: 单个输入文件在处理期内的行序列（完全物化形态）。
// 仅在该文件处理期间有效；处理结束即丢弃。
type Corpus struct {
	FileID FileID
	Lines  []Line
}

// Texts 返回按原序排列的行文本切片（新切片，不共享底层数组）。
func (c Corpus) Texts() []string {
	out := make([]string, len(c.Lines))
	for i, l := range c.Lines {
		out[i] = l.Text
	}
	return out
}

// Len 返回行数。
func (c Corpus) Len() int { return len(c.Lines) }
