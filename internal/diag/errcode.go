package diag

import (
	"context"
	"errors"
	"io/fs"
	"time"

	"combokit/pkg/contract"
)

// Code 是最小错误分类代码。
// 仅用于日志/指标汇总，与退出码解耦。
type Code string

const (
	CodeUnknown    Code = "unknown"
	CodeSource     Code = "source"
	CodeDecode     Code = "decode"
	CodeExists     Code = "exists"
	CodeUnwritable Code = "unwritable"
	CodeWrite      Code = "write"
	CodeInvariant  Code = "invariant"
	CodeCancel     Code = "cancel"
	CodeIO         Code = "io"
)

// Classify 将错误归为最小分类。
// 说明：仅依赖哨兵错误与标准库错误类型，不做字符串匹配。
func Classify(err error) Code {
	switch {
	case err == nil:
		return CodeUnknown
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return CodeCancel
	case errors.Is(err, contract.ErrSourceUnreadable):
		return CodeSource
	case errors.Is(err, contract.ErrLineDecode):
		return CodeDecode
	case errors.Is(err, contract.ErrDestinationExists):
		return CodeExists
	case errors.Is(err, contract.ErrDestinationUnwritable):
		return CodeUnwritable
	case errors.Is(err, contract.ErrWriteFailure):
		return CodeWrite
	case errors.Is(err, contract.ErrInvariant),
		errors.Is(err, contract.ErrInvalidInput),
		errors.Is(err, contract.ErrPathInvalid):
		return CodeInvariant
	}
	var perr *fs.PathError
	if errors.As(err, &perr) {
		return CodeIO
	}
	return CodeUnknown
}

// Fatal 报告该错误是否应中止当前文件的处理（写失败与坏行不中止）。
func Fatal(err error) bool {
	if err == nil {
		return false
	}
	c := Classify(err)
	return c != CodeWrite && c != CodeDecode
}

// NowUTC 返回 RFC3339 UTC 时间字符串。
func NowUTC() string { return time.Now().UTC().Format(time.RFC3339) }
