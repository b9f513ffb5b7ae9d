package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"combokit/internal/codec"
	"combokit/internal/diag"
	"combokit/internal/fingerprint"
	"combokit/internal/pipeline"
	"combokit/pkg/contract"
	"combokit/pkg/registry"
	rfs "combokit/plugins/reader/filesystem"
	wfs "combokit/plugins/writer/filesystem"
)

// ErrConfig 标记配置错误（CLI 以退出码 3 报告）。
var ErrConfig = errors.New("config")

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %w: %s", ErrConfig, contract.ErrInvalidInput, fmt.Sprintf(format, args...))
}

// Validate 对最小必要边界做静态校验。
func Validate(cfg Config) error {
	if _, err := contract.ParseTask(string(cfg.Task)); err != nil {
		return fmt.Errorf("%w: %w", ErrConfig, err)
	}
	if len(cfg.Targets) == 0 {
		return invalid("no target files")
	}
	for _, t := range cfg.Targets {
		if strings.TrimSpace(t) == "" {
			return invalid("target path cannot be empty")
		}
	}
	if cfg.Task.NeedsNumber() && cfg.N <= 0 {
		return invalid("task %s needs a positive -n, got %d", cfg.Task, cfg.N)
	}
	if cfg.Task.NeedsReference() && strings.TrimSpace(cfg.CompareWith) == "" {
		return invalid("task %s needs --compare-with", cfg.Task)
	}
	if cfg.SavePeriod <= 0 {
		return invalid("save_period must be > 0")
	}
	if cfg.Workers < 0 {
		return invalid("workers must be >= 0")
	}
	if cfg.Reader.BufSize < 0 {
		return invalid("reader.buf_size must be >= 0")
	}
	if strings.TrimSpace(cfg.ResultsDir) == "" {
		return invalid("results_dir not set")
	}
	if _, err := codec.Lookup(cfg.Encoding); err != nil {
		return fmt.Errorf("%w: %w", ErrConfig, err)
	}
	if registry.Strategy[cfg.DedupStrategy] == nil {
		return invalid("dedup_strategy %q not registered (have %s)", cfg.DedupStrategy, strings.Join(registry.StrategyNames(), ", "))
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Logging.Level)) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return invalid("logging.level %q", cfg.Logging.Level)
	}
	if _, ok := registry.TaskTransform[cfg.Task]; ok {
		if _, ok := registry.TransformFor(cfg.Task); !ok {
			return invalid("transform for %s not registered", cfg.Task)
		}
	}
	return nil
}

// RunDir 返回本次运行的结果目录：<root>/<task>/<dd.mm.yyyy>/<HH_MM_SS>。
func RunDir(root string, task contract.Task, now time.Time) string {
	return filepath.Join(root, string(task), now.Format("02.01.2006"), now.Format("15_04_05"))
}

// Assemble 构造 Components 与 Settings；runDir 为本次运行的结果目录。
// logger 接收读取阶段的坏行报告，可为 nil。
func Assemble(cfg Config, runDir string, logger *diag.Logger) (pipeline.Components, pipeline.Settings, error) {
	if err := Validate(cfg); err != nil {
		return pipeline.Components{}, pipeline.Settings{}, err
	}
	if logger == nil {
		logger = diag.Nop()
	}

	ropts := cfg.Reader
	ropts.Encoding = cfg.Encoding
	r, err := rfs.New(&ropts)
	if err != nil {
		return pipeline.Components{}, pipeline.Settings{}, err
	}
	logger.Debug("reader", "ready", zap.String("encoding", r.Encoding()), zap.Int("exclude_dirs", len(cfg.Reader.ExcludeDirNames)))
	r.OnSkip(func(path string, index contract.Index, err error) {
		diag.AddLines("reader", "skipped", 1)
		logger.Warn("reader", path, "line skipped", err, zap.Int64("line", int64(index)))
	})

	wopts := cfg.Writer
	wopts.Capacity = cfg.SavePeriod
	wopts.Encoding = cfg.Encoding
	w, err := wfs.New(&wopts)
	if err != nil {
		return pipeline.Components{}, pipeline.Settings{}, err
	}

	scan := fingerprint.ScanOptions{Workers: cfg.Workers}
	comp := pipeline.Components{
		Source:   r,
		Sinks:    w.Factory(),
		Strategy: registry.Strategy[cfg.DedupStrategy](scan),
		List:     r.ListFiles,
		Map: func(ctx context.Context, path string) (pipeline.MappedLines, error) {
			m, err := r.Map(ctx, path)
			if err != nil {
				return nil, err
			}
			return m, nil
		},
		Stat: func(path string) (int64, error) {
			st, err := os.Stat(path)
			if err != nil {
				return 0, err
			}
			return st.Size(), nil
		},
	}
	if tr, ok := registry.TransformFor(cfg.Task); ok {
		comp.Transform = tr
	}

	set := pipeline.Settings{
		Task:        cfg.Task,
		Targets:     cloneStrings(cfg.Targets),
		N:           cfg.N,
		CompareWith: cfg.CompareWith,
		ResultsDir:  runDir,
		SavePeriod:  cfg.SavePeriod,
		Workers:     cfg.Workers,
		Seed:        cfg.Seed,
	}
	return comp, set, nil
}
