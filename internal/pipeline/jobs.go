package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"combokit/internal/compare"
	"combokit/internal/dedup"
	"combokit/internal/fingerprint"
	"combokit/internal/partition"
	"combokit/pkg/contract"
)

// NewJob 按任务构造处理逻辑；缺少任务所需组件或参数时返回 ErrInvalidInput。
func NewJob(ctx context.Context, e *env) (Job, error) {
	scan := fingerprint.ScanOptions{Workers: e.set.Workers}
	switch e.set.Task {
	case contract.TaskRemoveDomains, contract.TaskExtractLogins, contract.TaskExtractPasswords, contract.TaskExtractPhones:
		if e.comp.Transform == nil {
			return nil, fmt.Errorf("%w: task %s needs a line transform", contract.ErrInvalidInput, e.set.Task)
		}
		return &transformJob{env: e, tr: e.comp.Transform}, nil
	case contract.TaskRemoveDuplicates:
		st := e.comp.Strategy
		if st == nil {
			st = dedup.Stream{Scan: scan}
		}
		return &dedupJob{env: e, strategy: st}, nil
	case contract.TaskExtractDuplicates:
		return &extractJob{env: e, stream: dedup.Stream{Scan: scan}}, nil
	case contract.TaskCompare:
		return newCompareJob(ctx, e, scan)
	case contract.TaskSplitByLines:
		return newSplitJob(e, partition.PerPart)
	case contract.TaskSplitByParts:
		return newSplitJob(e, partition.Parts)
	case contract.TaskMerge:
		return &mergeJob{env: e}, nil
	case contract.TaskShuffle:
		if e.comp.Map == nil {
			return nil, fmt.Errorf("%w: task %s needs a random-access reader", contract.ErrInvalidInput, e.set.Task)
		}
		return &shuffleJob{env: e, rng: newRand(e.set.Seed)}, nil
	default:
		return nil, fmt.Errorf("%w: unknown task %q", contract.ErrInvalidInput, e.set.Task)
	}
}

func (e *env) resultPath(src string, kv map[string]string) (string, error) {
	return contract.ResultPath(e.set.ResultsDir, src, contract.ExpandSuffix(e.set.Task.Suffix(), kv))
}

// transformJob: 逐行变换，保序，拒绝的行丢弃。
type transformJob struct {
	env *env
	tr  contract.LineTransform
}

func (j *transformJob) Process(ctx context.Context, path string) (FileStats, error) {
	var st FileStats
	dst, err := j.env.resultPath(path, nil)
	if err != nil {
		return st, err
	}
	out, err := j.env.open(dst)
	if err != nil {
		return st, err
	}
	err = j.env.comp.Source.Stream(ctx, path, func(l contract.Line) error {
		st.In++
		v, ok := j.tr.Transform(l.Text)
		if !ok {
			return nil
		}
		st.Out++
		return out.Append(v)
	})
	err = errors.Join(err, out.Close())
	st.Outputs = out.outputs()
	return st, err
}

// dedupJob: 使用配置的策略去重。
type dedupJob struct {
	env      *env
	strategy dedup.Strategy
}

func (j *dedupJob) Process(ctx context.Context, path string) (FileStats, error) {
	dst, err := j.env.resultPath(path, nil)
	if err != nil {
		return FileStats{}, err
	}
	out, err := j.env.open(dst)
	if err != nil {
		return FileStats{}, err
	}
	j.env.term.Stage("去重: " + j.strategy.Name())
	s, err := j.strategy.Dedup(ctx, j.env.comp.Source, path, out)
	err = errors.Join(err, out.Close())
	return FileStats{In: s.In, Out: s.Out, Outputs: out.outputs()}, err
}

// extractJob: 每个重复内容输出一次。
type extractJob struct {
	env    *env
	stream dedup.Stream
}

func (j *extractJob) Process(ctx context.Context, path string) (FileStats, error) {
	dst, err := j.env.resultPath(path, nil)
	if err != nil {
		return FileStats{}, err
	}
	out, err := j.env.open(dst)
	if err != nil {
		return FileStats{}, err
	}
	s, err := j.stream.Extract(ctx, j.env.comp.Source, path, out)
	err = errors.Join(err, out.Close())
	return FileStats{In: s.In, Out: s.Out, Outputs: out.outputs()}, err
}

// compareJob: 参照语料在构造时展开一次，所有目标文件共用。
type compareJob struct {
	env  *env
	cmp  *compare.Comparer
	refs []string
	ref  string
}

func newCompareJob(ctx context.Context, e *env, scan fingerprint.ScanOptions) (*compareJob, error) {
	if e.set.CompareWith == "" {
		return nil, fmt.Errorf("%w: compare needs a reference path", contract.ErrInvalidInput)
	}
	refs := []string{e.set.CompareWith}
	if e.comp.List != nil {
		var err error
		if refs, err = e.comp.List(ctx, refs); err != nil {
			return nil, err
		}
	}
	if len(refs) == 0 {
		return nil, compare.ErrNoReference
	}
	j := &compareJob{env: e, refs: refs, ref: refName(e.set.CompareWith)}
	j.cmp = &compare.Comparer{
		Src:  e.comp.Source,
		Scan: scan,
		OnRef: func(path string, lines int, err error) {
			if err != nil {
				e.logger.Warn("compare", path, "reference skipped", err)
				e.term.Warn(fmt.Sprintf("参照文件不可读，已跳过: %s", path))
				return
			}
			e.logger.Debug("compare", "reference done", zap.String("file_id", path), zap.Int("lines", lines))
		},
	}
	e.logger.Info("compare", "reference corpus", zap.Int("files", len(refs)), zap.String("ref", j.ref))
	return j, nil
}

// refName 返回参照路径的名字（文件去扩展名；目录取其名）。
func refName(p string) string {
	base := filepath.Base(filepath.Clean(strings.ReplaceAll(p, "\\", "/")))
	if ext := filepath.Ext(base); ext != "" && ext != base {
		base = strings.TrimSuffix(base, ext)
	}
	return base
}

func (j *compareJob) Process(ctx context.Context, path string) (FileStats, error) {
	dst, err := j.env.resultPath(path, map[string]string{"ref": j.ref})
	if err != nil {
		return FileStats{}, err
	}
	out, err := j.env.open(dst)
	if err != nil {
		return FileStats{}, err
	}
	j.env.term.Stage(fmt.Sprintf("比较: 参照 %d 个文件", len(j.refs)))
	res, err := j.cmp.Compare(ctx, path, j.refs, out)
	err = errors.Join(err, out.Close())
	j.env.logger.Debug("compare", "result",
		zap.String("file_id", path),
		zap.Int("unique", res.Unique),
		zap.Int("ref_files", res.RefFiles),
		zap.Int("ref_skipped", res.RefSkipped),
		zap.Int("ref_lines", res.RefLines))
	return FileStats{In: res.MainLines, Out: res.Survivors, Outputs: out.outputs()}, err
}

// splitJob: 分片写入 <results>/<文件名>/。
type splitJob struct {
	env  *env
	mode partition.Mode
}

func newSplitJob(e *env, mode partition.Mode) (*splitJob, error) {
	if e.set.N <= 0 {
		return nil, fmt.Errorf("%w: task %s needs a positive number, got %d", contract.ErrInvalidInput, e.set.Task, e.set.N)
	}
	return &splitJob{env: e, mode: mode}, nil
}

func (j *splitJob) Process(ctx context.Context, path string) (FileStats, error) {
	var st FileStats
	n, err := j.env.comp.Source.Count(ctx, path)
	if err != nil {
		return st, err
	}
	st.In = n
	plan, err := partition.Plan(j.mode, n, j.env.set.N)
	if err != nil {
		return st, err
	}
	if len(plan) == 0 {
		return st, nil
	}
	dir := filepath.Join(j.env.set.ResultsDir, filepath.Base(path))
	j.env.term.Stage(fmt.Sprintf("分割: %d 份, %d 行", len(plan), partition.Total(plan)))
	var guards []*guardSink
	sp := &partition.Splitter{
		Capacity: j.env.set.SavePeriod,
		Open: func(r partition.Range) (contract.Sink, error) {
			suffix := contract.ExpandSuffix(j.env.set.Task.Suffix(), map[string]string{"num": strconv.Itoa(r.Index)})
			dst, err := contract.ResultPath(dir, path, suffix)
			if err != nil {
				return nil, err
			}
			g, err := j.env.open(dst)
			if err != nil {
				return nil, err
			}
			guards = append(guards, g)
			return g, nil
		},
	}
	counts, err := sp.Split(ctx, contract.Quiet(j.env.comp.Source), path, plan)
	for _, c := range counts {
		st.Out += c
	}
	for _, g := range guards {
		st.Outputs = append(st.Outputs, g.outputs()...)
	}
	return st, err
}

// mergeJob: 所有目标按给定顺序拼接到同一输出，目标以首个文件命名。
type mergeJob struct {
	env *env
	out *guardSink
}

func (j *mergeJob) Process(ctx context.Context, path string) (FileStats, error) {
	var st FileStats
	if j.out == nil {
		dst, err := j.env.resultPath(j.env.set.Targets[0], nil)
		if err != nil {
			return st, err
		}
		if j.out, err = j.env.open(dst); err != nil {
			return st, err
		}
	}
	err := j.env.comp.Source.Stream(ctx, path, func(l contract.Line) error {
		st.In++
		st.Out++
		return j.out.Append(l.Text)
	})
	return st, err
}

// Close 关闭共享输出。
func (j *mergeJob) Close() error {
	if j.out == nil {
		return nil
	}
	err := j.out.Close()
	if err == nil && j.out.appended > 0 {
		j.env.logger.Info("merge", "merged", zap.String("file_id", j.out.path), zap.Int("count", j.out.appended))
	}
	return err
}

// shuffleJob: 随机访问视图上做 Fisher-Yates 置换后按新顺序写出。
type shuffleJob struct {
	env *env
	rng *rand.Rand
}

func newRand(seed uint64) *rand.Rand {
	if seed == 0 {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func (j *shuffleJob) Process(ctx context.Context, path string) (FileStats, error) {
	var st FileStats
	m, err := j.env.comp.Map(ctx, path)
	if err != nil {
		return st, err
	}
	defer m.Close()
	dst, err := j.env.resultPath(path, nil)
	if err != nil {
		return st, err
	}
	out, err := j.env.open(dst)
	if err != nil {
		return st, err
	}
	order := make([]int, m.Len())
	for i := range order {
		order[i] = i
	}
	j.rng.Shuffle(len(order), func(a, b int) { order[a], order[b] = order[b], order[a] })

	for k, i := range order {
		if k%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return st, errors.Join(err, out.Close())
			}
		}
		line, err := m.Line(i)
		if errors.Is(err, contract.ErrLineDecode) {
			j.env.logger.Warn("reader", path, "line skipped", err, zap.Int("line", i))
			continue
		}
		if err != nil {
			return st, errors.Join(err, out.Close())
		}
		st.In++
		if err := out.Append(line); err != nil {
			return st, errors.Join(err, out.Close())
		}
		st.Out++
	}
	err = out.Close()
	st.Outputs = out.outputs()
	return st, err
}
