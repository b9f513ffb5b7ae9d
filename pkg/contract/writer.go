package contract

// Sink: 单一目标文件的写入端（BatchWriter 抽象）。
// 约束：
//  1. Append 缓冲一行；缓冲达到容量时自动 Flush；
//  2. Flush 将缓冲以行终止符拼接、重新编码后一次追加写出，并清空缓冲；
//  3. 目标在首次写出时才创建；已存在则返回 ErrDestinationExists，绝不覆盖；
//  4. 同一 Sink 只允许单 goroutine 写入；
//  5. Close 先 Flush 再关闭；未写出任何行则不创建文件。
type Sink interface {
	Append(line string) error
	Flush() error
	Close() error
}

// SinkFactory: 按目标路径打开 Sink（惰性创建文件）。
type SinkFactory func(path string) (Sink, error)
