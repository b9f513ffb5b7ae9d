package contract

import "context"

// LineSource: 将文件解码为行序列。
// 约束：
// 1) Stream 单遍流式读取，内存占用与文件大小无关；
// 2) ReadAll 完全物化，供随机访问/排序；
// 3) 坏行（解码失败）通过 onSkip 通知后跳过，不中断文件；
// 4) 文件无法打开/读取时返回包裹 ErrSourceUnreadable 的错误；
// 5) 不在内部起并发。
type LineSource interface {
	Stream(ctx context.Context, path string, yield func(Line) error) error
	ReadAll(ctx context.Context, path string) (Corpus, error)
	Count(ctx context.Context, path string) (int, error)
}

// Quieter 由可关闭坏行报告的 LineSource 实现。
type Quieter interface {
	Quiet() LineSource
}

// Quiet 返回不报告坏行的 src 视图，用于同一文件的后续遍历（坏行已在首遍报告）。
// 未实现 Quieter 时原样返回 src。
func Quiet(src LineSource) LineSource {
	if q, ok := src.(Quieter); ok {
		return q.Quiet()
	}
	return src
}
