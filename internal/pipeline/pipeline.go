package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"combokit/internal/dedup"
	"combokit/internal/diag"
	"combokit/pkg/contract"
)

// - 文件间串行：逐个处理目标文件，某文件失败则记录并跳过，继续下一个（不因首错中止）。
// - 文件内并行：仅指纹阶段并行（见 fingerprint/compare），写入同一目标始终单线程。
// - 写失败降级：ErrWriteFailure 记录后继续，该批数据可能丢失；其余错误中止当前文件。

// MappedLines 为可随机访问的行视图（乱序任务使用）。
type MappedLines interface {
	Len() int
	Line(i int) (string, error)
	Close() error
}

// MapFunc 打开 path 的行视图。
type MapFunc func(ctx context.Context, path string) (MappedLines, error)

// ListFunc 把参照路径（文件或目录）展开为文件列表。
type ListFunc func(ctx context.Context, roots []string) ([]string, error)

// StatFunc 返回文件字节数（仅用于终端提示）。
type StatFunc func(path string) (int64, error)

// Components 聚合运行所需的组件。
type Components struct {
	Source contract.LineSource
	Sinks  contract.SinkFactory
	// 以下按任务可选
	Transform contract.LineTransform // 逐行变换任务
	Strategy  dedup.Strategy         // remove-duplicates
	List      ListFunc               // compare
	Map       MapFunc                // shuffle
	Stat      StatFunc
}

// Settings 运行期配置（最小必要）。
type Settings struct {
	Task    contract.Task
	Targets []string
	// N: 每份行数（split-by-lines）或份数（split-by-parts）。
	N int
	// CompareWith: 参照语料路径（文件或目录）。
	CompareWith string
	// ResultsDir: 本次运行的结果目录（由调用方命名）。
	ResultsDir string
	// SavePeriod: 批容量。
	SavePeriod int
	// Workers: 指纹阶段并行度；<=0 使用 CPU 数。
	Workers int
	// Seed: 乱序种子；0 表示随机。
	Seed uint64
}

// Summary 为一次运行的汇总。
type Summary struct {
	Files   int
	Failed  int
	In      int
	Out     int
	Outputs []string
	Dur     time.Duration
}

// FileStats 为单文件的处理结果。
type FileStats struct {
	In      int
	Out     int
	Outputs []string
}

// Job 为单个任务在一个文件上的处理逻辑。
// 若实现 io.Closer，Run 在全部文件结束后调用 Close（例如合并任务的共享目标）。
type Job interface {
	Process(ctx context.Context, path string) (FileStats, error)
}

// Run 逐文件执行任务并返回汇总；失败文件的错误以 errors.Join 汇总返回。
// term 可为 nil。
func Run(ctx context.Context, comp Components, set Settings, logger *diag.Logger, term *diag.Terminal) (Summary, error) {
	if logger == nil {
		logger = diag.Nop()
	}
	if err := sanity(comp, set); err != nil {
		return Summary{}, fmt.Errorf("sanity: %w", err)
	}
	env := &env{comp: comp, set: set, logger: logger, term: term}
	job, err := NewJob(ctx, env)
	if err != nil {
		return Summary{}, err
	}

	t0 := time.Now()
	sum := Summary{}
	term.RunStart(string(set.Task), len(set.Targets), set.Workers)
	run := logger.Start("pipeline", "run", zap.String("task", string(set.Task)), zap.Int("files", len(set.Targets)))

	var errs []error
	for _, path := range set.Targets {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		sum.Files++
		term.FileStart(path, env.size(path))
		ft := logger.StartFile("pipeline", "file", path)
		st, err := job.Process(ctx, path)
		sum.In += st.In
		sum.Out += st.Out
		sum.Outputs = append(sum.Outputs, st.Outputs...)
		diag.AddLines(string(set.Task), "in", int64(st.In))
		diag.AddLines(string(set.Task), "out", int64(st.Out))
		if err != nil {
			sum.Failed++
			ft.Fail("file failed", err)
			term.FileFinish(st.In, st.Out, ft.Elapsed(), err)
			errs = append(errs, fmt.Errorf("%s: %w", path, err))
			continue
		}
		ft.Finish("file done", int64(st.Out), zap.Int("in", st.In))
		term.FileFinish(st.In, st.Out, ft.Elapsed(), nil)
	}
	if c, ok := job.(io.Closer); ok {
		if err := c.Close(); err != nil {
			logger.Error("pipeline", "", "close failed", err)
			errs = append(errs, err)
		}
	}
	sum.Dur = time.Since(t0)
	err = errors.Join(errs...)
	if err != nil {
		run.Fail("run finished with errors", err, zap.Int("failed", sum.Failed))
	} else {
		run.Finish("run", int64(sum.Out), zap.Int("files", sum.Files))
	}
	term.RunFinish(sum.Failed, sum.Dur, set.ResultsDir)
	return sum, err
}

func sanity(c Components, s Settings) error {
	if c.Source == nil || c.Sinks == nil {
		return errors.New("pipeline: missing components")
	}
	if len(s.Targets) == 0 {
		return fmt.Errorf("%w: no target files", contract.ErrInvalidInput)
	}
	if s.ResultsDir == "" {
		return fmt.Errorf("%w: results dir not set", contract.ErrInvalidInput)
	}
	return nil
}

// env 为各任务共享的运行环境。
type env struct {
	comp   Components
	set    Settings
	logger *diag.Logger
	term   *diag.Terminal
}

func (e *env) size(path string) int64 {
	if e.comp.Stat == nil {
		return -1
	}
	n, err := e.comp.Stat(path)
	if err != nil {
		return -1
	}
	return n
}

// open 打开目标并包装写失败降级策略。
func (e *env) open(path string) (*guardSink, error) {
	s, err := e.comp.Sinks(path)
	if err != nil {
		return nil, err
	}
	return &guardSink{Sink: s, path: path, env: e}, nil
}

// guardSink 吞掉 ErrWriteFailure（记录并计数），其余错误原样返回。
type guardSink struct {
	contract.Sink
	path     string
	env      *env
	appended int
	failures int
}

var _ contract.Sink = (*guardSink)(nil)

func (g *guardSink) Append(line string) error {
	if err := g.filter(g.Sink.Append(line)); err != nil {
		return err
	}
	g.appended++
	return nil
}

func (g *guardSink) Flush() error { return g.filter(g.Sink.Flush()) }

func (g *guardSink) Close() error { return g.filter(g.Sink.Close()) }

func (g *guardSink) filter(err error) error {
	if err == nil || !errors.Is(err, contract.ErrWriteFailure) {
		return err
	}
	g.failures++
	g.env.logger.Warn("writer", g.path, "batch lost", err)
	g.env.term.Warn(fmt.Sprintf("写入失败，已丢弃该批: %v", err))
	return nil
}

// outputs 返回已写入行的目标路径。
func (g *guardSink) outputs() []string {
	if g.appended == 0 {
		return nil
	}
	return []string{g.path}
}
