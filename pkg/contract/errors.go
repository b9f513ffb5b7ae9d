package contract

import "errors"

// 最小错误分类（用于日志分类与上层策略判定）。
// 所有消息面向人类阅读，不用于程序化恢复。
var (
	// ErrSourceUnreadable: 输入文件无法打开/读取。整文件跳过，运行继续。
	ErrSourceUnreadable = errors.New("source unreadable")
	// ErrLineDecode: 单行无法按配置编码解码。跳过该行，文件继续。
	ErrLineDecode = errors.New("line decode error")
	// ErrDestinationExists: 目标文件已存在。对该文件的任务致命，绝不覆盖。
	ErrDestinationExists = errors.New("destination exists")
	// ErrDestinationUnwritable: 目标目录/文件无法创建。中止该文件处理。
	ErrDestinationUnwritable = errors.New("destination unwritable")
	// ErrWriteFailure: 写入过程中失败。记录后尽力继续；该批数据可能丢失。
	ErrWriteFailure = errors.New("write failure")
	// ErrInvalidInput: 参数或输入不满足前置条件（例如行数/份数为 0）。
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvariant: 内部不变量被破坏（例如分片写出行数与计划不符）。
	ErrInvariant = errors.New("invariant violated")
	// ErrPathInvalid: 目标标识映射为无效路径（例如空文件名）。
	ErrPathInvalid = errors.New("path invalid")
)
