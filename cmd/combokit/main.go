package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	cfgpkg "combokit/internal/config"
	"combokit/internal/diag"
	"combokit/internal/pipeline"
	"combokit/pkg/contract"
)

// 可替换的外部依赖（测试注入）。
var (
	pipelineRun = pipeline.Run
	openDir     = openInFileBrowser
	now         = time.Now
)

// 退出码：0 成功；1 有文件失败；3 配置错误。
const (
	exitOK     = 0
	exitFailed = 1
	exitConfig = 3
)

// exitError 携带退出码。
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func configErr(format string, err error) error {
	return &exitError{code: exitConfig, err: fmt.Errorf(format, err)}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run 执行命令行并返回退出码。
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	// 在任何 ENV 读取前，尝试加载工作目录下的 .env（不覆盖已有 ENV）。
	_ = loadDotEnv(".env")
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if err == nil {
		return exitOK
	}
	var ee *exitError
	if errors.As(err, &ee) {
		if ee.code == exitConfig {
			fprintf(stderr, "配置错误: %v\n", ee.err)
		} else if !errors.Is(ee.err, context.Canceled) {
			fprintf(stderr, "运行失败: %v\n", ee.err)
		}
		return ee.code
	}
	// 旗标/参数解析错误
	fprintf(stderr, "错误: %v\n", err)
	return exitConfig
}

type options struct {
	task        string
	targets     []string
	n           int
	compareWith string
	config      string
	strategy    string
	open        bool
	openSet     bool
	logLevel    string
	resultsDir  string
	savePeriod  int
	workers     int
	encoding    string
	seed        uint64
	status      bool
	dump        bool
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	o := &options{}
	root := &cobra.Command{
		Use:   "combokit --task <task> [flags] <file>...",
		Short: "combokit - 大体量凭据列表文件的批处理工具",
		Long: `对 "标识:口令" 形式的文本列表逐文件执行一种任务，结果写入
<results_dir>/<task>/<dd.mm.yyyy>/<HH_MM_SS>/，从不覆盖已存在的文件。

任务:
  remove-domains      去除登录名中的邮箱域名
  remove-duplicates   去重（--strategy memory|sort|stream）
  extract-duplicates  抽取重复行（每个重复内容一次）
  compare             移除在 --compare-with 文件或目录中出现过的行
  split-by-lines      每份 -n 行
  split-by-parts      分成 -n 份
  merge               按顺序合并全部文件
  shuffle             随机打乱行序
  extract-logins | extract-passwords | extract-phones`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			o.targets = append(o.targets, args...)
			o.openSet = cmd.Flags().Changed("open")
			return runTask(cmd.Context(), o, stdout, stderr)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	f := root.Flags()
	f.StringVarP(&o.task, "task", "t", "", "任务名（见上）")
	f.StringSliceVar(&o.targets, "target", nil, "目标文件（可重复；亦可作为位置参数）")
	f.IntVarP(&o.n, "number", "n", 0, "split-by-lines 的每份行数 / split-by-parts 的份数")
	f.StringVar(&o.compareWith, "compare-with", "", "compare 的参照文件或目录")
	f.StringVar(&o.config, "config", "", "配置文件路径（YAML）；缺省读取 COMBOKIT_CONFIG_FILE 或 ./combokit.yaml")
	f.StringVar(&o.strategy, "strategy", "", "去重策略 memory|sort|stream（覆盖配置）")
	f.BoolVar(&o.open, "open", false, "完成后在文件管理器中打开结果目录")
	f.StringVar(&o.logLevel, "log-level", "", "日志等级 debug|info|warn|error（覆盖配置）")
	f.StringVar(&o.resultsDir, "results-dir", "", "结果根目录（覆盖配置）")
	f.IntVar(&o.savePeriod, "save-period", 0, "批容量（行，覆盖配置）")
	f.IntVar(&o.workers, "workers", 0, "指纹阶段并行度（覆盖配置；0 为 CPU 数）")
	f.StringVar(&o.encoding, "encoding", "", "代码页（覆盖配置）")
	f.Uint64Var(&o.seed, "seed", 0, "shuffle 的随机种子；0 为随机")
	root.PersistentFlags().BoolVar(&o.status, "status", true, "终端状态提示（stderr）。TTY 动态刷新；非 TTY 逐行输出")
	f.BoolVar(&o.dump, "dump-config", false, "打印生效配置后退出")

	root.AddCommand(newInitCmd(stdout, stderr), newTasksCmd(stdout))
	return root
}

// loadConfig 按 默认 < 文件 < ENV < CLI 合并配置。
func loadConfig(o *options) (cfgpkg.Config, error) {
	cfg := cfgpkg.Defaults()
	if path := cfgpkg.FindFile(o.config, os.Environ()); path != "" {
		base, err := cfgpkg.LoadYAML(path, nil)
		if err != nil {
			return cfg, configErr("配置解析失败: %w", err)
		}
		cfg = cfgpkg.Merge(cfg, base)
	}
	overEnv, err := cfgpkg.EnvOverlay(os.Environ())
	if err != nil {
		return cfg, configErr("环境变量解析失败: %w", err)
	}
	cfg = cfgpkg.Merge(cfg, overEnv)

	var overCLI cfgpkg.Config
	if strings.TrimSpace(o.task) != "" {
		t, err := contract.ParseTask(o.task)
		if err != nil {
			return cfg, configErr("%w", err)
		}
		overCLI.Task = t
	}
	overCLI.Targets = o.targets
	overCLI.N = o.n
	overCLI.CompareWith = o.compareWith
	overCLI.DedupStrategy = o.strategy
	overCLI.OpenResults = o.open
	if o.openSet {
		overCLI.Explicit.OpenResults = &o.open
	}
	overCLI.Logging.Level = o.logLevel
	overCLI.ResultsDir = o.resultsDir
	overCLI.SavePeriod = o.savePeriod
	overCLI.Workers = o.workers
	overCLI.Encoding = o.encoding
	overCLI.Seed = o.seed
	return cfgpkg.Merge(cfg, overCLI), nil
}

func runTask(ctx context.Context, o *options, stdout, stderr io.Writer) error {
	start := now()
	cfg, err := loadConfig(o)
	if err != nil {
		return err
	}
	if o.dump {
		return dumpConfig(stdout, cfg)
	}
	if err := cfgpkg.Validate(cfg); err != nil {
		// 提示打印有效配置，便于诊断
		_ = dumpConfig(stderr, cfg)
		return configErr("配置校验失败: %w", err)
	}

	corrID := uuid.NewString()
	logger := diag.NewLogger(corrID, cfg.Logging.Level, cfg.Logging.Dir)
	defer logger.Close()

	if err := preflightCheckOutputDir(cfg.ResultsDir); err != nil {
		logger.Error("cli", "", "results dir not writable", err)
		return configErr("结果目录不可写或无法创建: %w", err)
	}
	runDir := cfgpkg.RunDir(cfg.ResultsDir, cfg.Task, start)
	comp, set, err := cfgpkg.Assemble(cfg, runDir, logger)
	if err != nil {
		logger.Error("cli", "", "assemble failed", err)
		return configErr("装配失败: %w", err)
	}
	logger.Debug("config", "effective",
		zap.String("task", string(cfg.Task)),
		zap.Int("targets", len(cfg.Targets)),
		zap.Int("save_period", cfg.SavePeriod),
		zap.Int("workers", cfg.Workers),
		zap.String("encoding", cfg.Encoding),
		zap.String("dedup_strategy", cfg.DedupStrategy),
		zap.String("results_dir", runDir))

	term := diag.NewTerminal(stderr, o.status)
	sum, runErr := pipelineRun(ctx, comp, set, logger, term)
	diag.ObserveDuration("cli", "run", time.Since(start).Milliseconds())
	logger.Info("cli", "summary",
		zap.Int("files", sum.Files),
		zap.Int("failed", sum.Failed),
		zap.Int("in", sum.In),
		zap.Int("out", sum.Out),
		zap.Int("outputs", len(sum.Outputs)),
		zap.Int64("skipped", diag.Value("lines_total", "reader", "skipped")),
		diag.MetricsField())

	if cfg.OpenResults {
		if st, err := os.Stat(runDir); err == nil && st.IsDir() {
			if err := openDir(runDir); err != nil {
				logger.Warn("cli", runDir, "open results failed", err)
				term.Warn(fmt.Sprintf("无法打开结果目录: %v", err))
			}
		}
	}
	if runErr != nil {
		code := diag.Classify(runErr)
		diag.IncOp("pipeline", "error", "error")
		diag.IncError("pipeline", string(code))
		if p := logger.Path(); p != "" {
			fprintf(stderr, "日志: %s\n", p)
		}
		return &exitError{code: exitFailed, err: runErr}
	}
	diag.IncOp("pipeline", "finish", "success")
	return nil
}

func fprintf(w io.Writer, format string, a ...any) { _, _ = fmt.Fprintf(w, format, a...) }

func dumpConfig(w io.Writer, c cfgpkg.Config) error {
	b, err := cfgpkg.MarshalYAML(c)
	if err != nil {
		return err
	}
	fprintf(w, "有效配置:\n%s", b)
	if c.Task != "" {
		fprintf(w, "# task: %s | targets: %d | n: %d | compare-with: %q\n", c.Task, len(c.Targets), c.N, c.CompareWith)
	}
	return nil
}

// preflightCheckOutputDir 启动前检查结果根目录可写性。
// 规则：
// - 若目录已存在：尝试创建并删除临时文件；失败则判为不可写。
// - 若目录不存在：沿父目录向上找到第一个已存在的目录并检查其可写性。
func preflightCheckOutputDir(dir string) error {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil
	}
	for {
		st, err := os.Stat(dir)
		if err == nil {
			if !st.IsDir() {
				return fmt.Errorf("路径存在但不是目录: %s", dir)
			}
			f, err := os.CreateTemp(dir, ".wcheck-*")
			if err != nil {
				return err
			}
			name := f.Name()
			_ = f.Close()
			_ = os.Remove(name)
			return nil
		}
		if !os.IsNotExist(err) {
			return err
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return fmt.Errorf("无法确定父目录: %s", dir)
		}
		dir = parent
	}
}
