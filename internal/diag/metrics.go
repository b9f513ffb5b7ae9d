package diag

import (
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// 最小进程内指标（原子计数，无导出端点）。名称：
// - op_total{comp,stage,result}
// - error_total{comp,code}
// - op_duration_ms{comp,stage}（累计毫秒）
// - lines_total{comp,kind}（kind=in|out|skipped）

var counters sync.Map // key → *atomic.Int64

func add(delta int64, parts ...string) {
	key := strings.Join(parts, "|")
	v, ok := counters.Load(key)
	if !ok {
		v, _ = counters.LoadOrStore(key, new(atomic.Int64))
	}
	v.(*atomic.Int64).Add(delta)
}

// IncOp 累加操作计数（result=success|error）。
func IncOp(comp, stage, result string) { add(1, "op_total", comp, stage, result) }

// IncError 按分类累加错误计数。
func IncError(comp, code string) { add(1, "error_total", comp, code) }

// ObserveDuration 累加阶段耗时（毫秒）。
func ObserveDuration(comp, stage string, durMS int64) {
	add(durMS, "op_duration_ms", comp, stage)
}

// AddLines 累加行计数。
func AddLines(comp, kind string, n int64) {
	if n != 0 {
		add(n, "lines_total", comp, kind)
	}
}

// Metric 为一条快照记录。
type Metric struct {
	Key   string
	Value int64
}

// Snapshot 返回全部计数（按键排序）。
func Snapshot() []Metric {
	var out []Metric
	counters.Range(func(k, v any) bool {
		out = append(out, Metric{Key: k.(string), Value: v.(*atomic.Int64).Load()})
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Value 返回单个计数；parts 与写入时一致。
func Value(parts ...string) int64 {
	v, ok := counters.Load(strings.Join(parts, "|"))
	if !ok {
		return 0
	}
	return v.(*atomic.Int64).Load()
}

// MetricsField 将当前快照编码为单个 "metrics" 对象字段。
func MetricsField() zap.Field {
	snap := Snapshot()
	return zap.Object("metrics", zapcore.ObjectMarshalerFunc(func(enc zapcore.ObjectEncoder) error {
		for _, m := range snap {
			enc.AddInt64(m.Key, m.Value)
		}
		return nil
	}))
}
