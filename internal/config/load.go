package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"combokit/internal/codec"
	"combokit/internal/dedup"
)

// EnvPrefix 为环境变量前缀。
const EnvPrefix = "COMBOKIT_"

// DefaultFile 为工作目录下的默认配置文件名。
const DefaultFile = "combokit.yaml"

// Defaults 返回带有安全默认值的 Config 雏形。
func Defaults() Config {
	cfg := Config{
		SavePeriod:    1000,
		Encoding:      codec.Default,
		ResultsDir:    "Results",
		DedupStrategy: dedup.NameStream,
		Logging:       Logging{Level: "info", Dir: "logs"},
	}
	cfg.Reader.BufSize = 64 * 1024
	// 参考语料默认完整遍历；排除目录只能显式配置。
	cfg.Reader.ExcludeDirNames = []string{}
	return cfg
}

// LoadYAML 从文件路径或原始 YAML 解析 Config（严格拒绝未知字段）。
// 空文档得到零值 Config。
func LoadYAML(path string, raw []byte) (Config, error) {
	var cfg Config
	var r io.Reader
	switch {
	case len(raw) > 0:
		r = bytes.NewReader(raw)
	case path != "":
		f, err := os.Open(path)
		if err != nil {
			return cfg, err
		}
		defer f.Close()
		r = f
	default:
		return cfg, errors.New("no config source provided")
	}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// FindFile 决定配置文件：显式路径 > COMBOKIT_CONFIG_FILE > 工作目录下的 combokit.yaml。
// 均不存在时返回空串。
func FindFile(flag string, environ []string) string {
	if s := strings.TrimSpace(flag); s != "" {
		return s
	}
	if v, ok := lookupEnv(environ, EnvPrefix+"CONFIG_FILE"); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	if st, err := os.Stat(DefaultFile); err == nil && st.Mode().IsRegular() {
		return DefaultFile
	}
	return ""
}

// Merge 按优先级合并（后者覆盖前者）。
// 零值视为未设置；切片整体替换，不做深度合并。
// 布尔开关的零值无法表达关闭，关闭经 over.Explicit 传递；结果中的 Explicit 被清空。
func Merge(base, over Config) Config {
	out := base
	if over.SavePeriod != 0 {
		out.SavePeriod = over.SavePeriod
	}
	if over.Workers != 0 {
		out.Workers = over.Workers
	}
	if s := strings.TrimSpace(over.Encoding); s != "" {
		out.Encoding = s
	}
	if s := strings.TrimSpace(over.ResultsDir); s != "" {
		out.ResultsDir = s
	}
	if s := strings.TrimSpace(over.DedupStrategy); s != "" {
		out.DedupStrategy = s
	}
	if over.OpenResults {
		out.OpenResults = true
	}
	if v := over.Explicit.OpenResults; v != nil {
		out.OpenResults = *v
	}
	if s := strings.TrimSpace(over.Logging.Level); s != "" {
		out.Logging.Level = s
	}
	if s := strings.TrimSpace(over.Logging.Dir); s != "" {
		out.Logging.Dir = s
	}

	if over.Reader.BufSize != 0 {
		out.Reader.BufSize = over.Reader.BufSize
	}
	if over.Reader.ExcludeDirNames != nil {
		out.Reader.ExcludeDirNames = cloneStrings(over.Reader.ExcludeDirNames)
	}
	if over.Writer.PermFile != 0 {
		out.Writer.PermFile = over.Writer.PermFile
	}
	if over.Writer.PermDir != 0 {
		out.Writer.PermDir = over.Writer.PermDir
	}
	if over.Writer.BufSize != 0 {
		out.Writer.BufSize = over.Writer.BufSize
	}
	if over.Writer.Sync {
		out.Writer.Sync = true
	}
	if v := over.Explicit.WriterSync; v != nil {
		out.Writer.Sync = *v
	}

	if over.Task != "" {
		out.Task = over.Task
	}
	if len(over.Targets) > 0 {
		out.Targets = cloneStrings(over.Targets)
	}
	if over.N != 0 {
		out.N = over.N
	}
	if s := strings.TrimSpace(over.CompareWith); s != "" {
		out.CompareWith = s
	}
	if over.Seed != 0 {
		out.Seed = over.Seed
	}
	out.Explicit = Explicit{}
	return out
}

// EnvOverlay 从环境变量构建一个 Config 覆盖（仅解析有限键集合）。
// 规则：前缀 COMBOKIT_；集合之外的键忽略；数值或布尔值非法时报错。
// 支持：SAVE_PERIOD, WORKERS, ENCODING, RESULTS_DIR, DEDUP_STRATEGY, OPEN_RESULTS,
// LOG_LEVEL, LOG_DIR, READER_BUF_SIZE, READER_EXCLUDE_DIR_NAMES, WRITER_SYNC
func EnvOverlay(environ []string) (Config, error) {
	var over Config
	var errs []error
	for _, kv := range environ {
		if !strings.HasPrefix(kv, EnvPrefix) {
			continue
		}
		eq := strings.IndexByte(kv, '=')
		if eq <= len(EnvPrefix) {
			continue
		}
		key := kv[:eq]
		val := kv[eq+1:]
		nk := strings.TrimPrefix(key, EnvPrefix)
		bad := func(err error) { errs = append(errs, fmt.Errorf("%s: %w", key, err)) }
		switch nk {
		case "SAVE_PERIOD":
			if v, err := atoi(val); err != nil {
				bad(err)
			} else {
				over.SavePeriod = v
			}
		case "WORKERS":
			if v, err := atoi(val); err != nil {
				bad(err)
			} else {
				over.Workers = v
			}
		case "ENCODING":
			over.Encoding = strings.TrimSpace(val)
		case "RESULTS_DIR":
			over.ResultsDir = strings.TrimSpace(val)
		case "DEDUP_STRATEGY":
			over.DedupStrategy = strings.TrimSpace(val)
		case "OPEN_RESULTS":
			if v, err := strconv.ParseBool(strings.TrimSpace(val)); err != nil {
				bad(err)
			} else {
				over.OpenResults = v
				over.Explicit.OpenResults = &v
			}
		case "LOG_LEVEL":
			over.Logging.Level = strings.TrimSpace(val)
		case "LOG_DIR":
			over.Logging.Dir = strings.TrimSpace(val)
		case "READER_BUF_SIZE":
			if v, err := atoi(val); err != nil {
				bad(err)
			} else {
				over.Reader.BufSize = v
			}
		case "READER_EXCLUDE_DIR_NAMES":
			// 显式空值表示不排除任何目录
			over.Reader.ExcludeDirNames = splitComma(val)
			if over.Reader.ExcludeDirNames == nil {
				over.Reader.ExcludeDirNames = []string{}
			}
		case "WRITER_SYNC":
			if v, err := strconv.ParseBool(strings.TrimSpace(val)); err != nil {
				bad(err)
			} else {
				over.Writer.Sync = v
				over.Explicit.WriterSync = &v
			}
		default:
			// CONFIG_FILE 由 FindFile 处理；其余键忽略。
		}
	}
	return over, errors.Join(errs...)
}

func lookupEnv(environ []string, key string) (string, bool) {
	for i := len(environ) - 1; i >= 0; i-- {
		if v, ok := strings.CutPrefix(environ[i], key+"="); ok {
			return v, true
		}
	}
	return "", false
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func splitComma(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func atoi(s string) (int, error) {
	return strconv.Atoi(strings.TrimSpace(s))
}
