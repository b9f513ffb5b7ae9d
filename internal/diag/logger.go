package diag

import (
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger 为结构化日志器：zap JSON 编码，写入按大小轮转的日志文件。
// 事件字段：comp、stage（start|finish|error|skip）、code、dur_ms、count、file_id、corr_id。
type Logger struct {
	z    *zap.Logger
	sink *RotatingFile
}

// NewLogger 以 level 初始化，日志写入 dir/combokit-current.txt，10 MiB 轮转。
func NewLogger(corrID, level, dir string) *Logger {
	if strings.TrimSpace(dir) == "" {
		dir = "logs"
	}
	sink := NewRotatingFile(dir, "combokit", 10*1024*1024)
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig()), sink, ParseLevel(level))
	return &Logger{z: zap.New(core).With(zap.String("corr_id", corrID)), sink: sink}
}

// NewLoggerCore 以指定 core 构造（测试与自定义输出用）。
func NewLoggerCore(corrID string, core zapcore.Core) *Logger {
	return &Logger{z: zap.New(core).With(zap.String("corr_id", corrID))}
}

// Nop 返回丢弃一切的日志器。
func Nop() *Logger { return &Logger{z: zap.NewNop()} }

func encoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "ts"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.CallerKey = zapcore.OmitKey
	cfg.StacktraceKey = zapcore.OmitKey
	return cfg
}

// ParseLevel 解析 debug|info|warn|error；未知值为 info。
func ParseLevel(s string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Path 返回当前日志文件路径；非文件输出时为空。
func (l *Logger) Path() string {
	if l.sink == nil {
		return ""
	}
	return l.sink.CurrentPath()
}

// Close 刷盘并关闭日志文件。
func (l *Logger) Close() error {
	_ = l.z.Sync()
	if l.sink == nil {
		return nil
	}
	return l.sink.Close()
}

func fileField(fileID string) zap.Field {
	if fileID == "" {
		return zap.Skip()
	}
	return zap.String("file_id", fileID)
}

// Start 记录 start 事件；返回计时器用于 Finish。
func (l *Logger) Start(comp, msg string, fields ...zap.Field) *Timer {
	return l.StartFile(comp, msg, "", fields...)
}

// StartFile 记录带 file_id 的 start。
func (l *Logger) StartFile(comp, msg, fileID string, fields ...zap.Field) *Timer {
	base := []zap.Field{zap.String("comp", comp), fileField(fileID)}
	l.z.Info(msg, append(append(base, zap.String("stage", "start")), fields...)...)
	return &Timer{l: l, comp: comp, fileID: fileID, t0: time.Now()}
}

// Error 记录 error 事件；code 由 Classify 推导。
func (l *Logger) Error(comp, fileID, msg string, err error, fields ...zap.Field) {
	code := Classify(err)
	IncError(comp, string(code))
	base := []zap.Field{
		zap.String("comp", comp), zap.String("stage", "error"), zap.String("code", string(code)),
		fileField(fileID), zap.Error(err),
	}
	l.z.Error(msg, append(base, fields...)...)
}

// Warn 记录可恢复的问题（例如跳过的行、丢失的批次）。
func (l *Logger) Warn(comp, fileID, msg string, err error, fields ...zap.Field) {
	code := Classify(err)
	IncError(comp, string(code))
	base := []zap.Field{
		zap.String("comp", comp), zap.String("stage", "skip"), zap.String("code", string(code)),
		fileField(fileID), zap.Error(err),
	}
	l.z.Warn(msg, append(base, fields...)...)
}

// Info 记录普通事件。
func (l *Logger) Info(comp, msg string, fields ...zap.Field) {
	l.z.Info(msg, append([]zap.Field{zap.String("comp", comp)}, fields...)...)
}

// Debug 输出调试级别事件（仅在 level=debug 时生效）。
func (l *Logger) Debug(comp, msg string, fields ...zap.Field) {
	if ce := l.z.Check(zapcore.DebugLevel, msg); ce != nil {
		ce.Write(append([]zap.Field{zap.String("comp", comp)}, fields...)...)
	}
}

// Timer 用于 start→finish 计时。
type Timer struct {
	l      *Logger
	comp   string
	fileID string
	t0     time.Time
}

// Elapsed 返回自 start 起的耗时。
func (t *Timer) Elapsed() time.Duration { return time.Since(t.t0) }

// Finish 记录 finish；count 为处理量。
func (t *Timer) Finish(msg string, count int64, fields ...zap.Field) {
	if t == nil || t.l == nil {
		return
	}
	dur := time.Since(t.t0).Milliseconds()
	IncOp(t.comp, "finish", "success")
	ObserveDuration(t.comp, "finish", dur)
	base := []zap.Field{
		zap.String("comp", t.comp), zap.String("stage", "finish"),
		zap.Int64("dur_ms", dur), zap.Int64("count", count), fileField(t.fileID),
	}
	t.l.z.Info(msg, append(base, fields...)...)
}

// Fail 记录带耗时的 error。
func (t *Timer) Fail(msg string, err error, fields ...zap.Field) {
	if t == nil || t.l == nil {
		return
	}
	IncOp(t.comp, "finish", "error")
	t.l.Error(t.comp, t.fileID, msg, err, append(fields, zap.Int64("dur_ms", time.Since(t.t0).Milliseconds()))...)
}
