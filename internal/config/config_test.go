package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"combokit/internal/dedup"
	"combokit/pkg/contract"
)

func runnable(cfg Config) Config {
	cfg.Task = contract.TaskRemoveDuplicates
	cfg.Targets = []string{"a.txt"}
	return cfg
}

// 解析完整配置文件
func TestLoadYAML(t *testing.T) {
	cfg, err := LoadYAML("../../testdata/config/basic.yaml", nil)
	require.NoError(t, err)
	assert.Equal(t, 500, cfg.SavePeriod)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, "windows-1251", cfg.Encoding)
	assert.Equal(t, dedup.NameSort, cfg.DedupStrategy)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 131072, cfg.Reader.BufSize)
	assert.Equal(t, []string{".git", "tmp"}, cfg.Reader.ExcludeDirNames)
	assert.True(t, cfg.Writer.Sync)
	require.NoError(t, Validate(runnable(Merge(Defaults(), cfg))))
}

// 含非法字段
func TestLoadYAMLUnknown(t *testing.T) {
	_, err := LoadYAML("", []byte("unknown: 1\n"))
	require.Error(t, err)
	_, err = LoadYAML("", []byte("reader:\n  bogus: true\n"))
	require.Error(t, err)
}

func TestLoadYAMLEmpty(t *testing.T) {
	p := filepath.Join(t.TempDir(), "empty.yaml")
	require.NoError(t, os.WriteFile(p, nil, 0o644))
	cfg, err := LoadYAML(p, nil)
	require.NoError(t, err)
	assert.Equal(t, Config{}, cfg)

	_, err = LoadYAML("", nil)
	require.Error(t, err)
	_, err = LoadYAML(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	require.True(t, errors.Is(err, os.ErrNotExist))
}

// ENV 覆盖部分字段
func TestEnvOverlay(t *testing.T) {
	env := []string{
		"COMBOKIT_SAVE_PERIOD=20",
		"COMBOKIT_WORKERS=3",
		"COMBOKIT_DEDUP_STRATEGY=memory",
		"COMBOKIT_OPEN_RESULTS=true",
		"COMBOKIT_LOG_LEVEL=warn",
		"COMBOKIT_READER_EXCLUDE_DIR_NAMES=a, b",
		"COMBOKIT_UNKNOWN=1",
		"PATH=/bin",
	}
	over, err := EnvOverlay(env)
	require.NoError(t, err)
	assert.Equal(t, 20, over.SavePeriod)
	assert.Equal(t, 3, over.Workers)
	assert.Equal(t, dedup.NameMemory, over.DedupStrategy)
	assert.True(t, over.OpenResults)
	assert.Equal(t, "warn", over.Logging.Level)
	assert.Equal(t, []string{"a", "b"}, over.Reader.ExcludeDirNames)

	cfg := Merge(Defaults(), over)
	assert.Equal(t, 20, cfg.SavePeriod)
	assert.Equal(t, "Results", cfg.ResultsDir)
}

func TestEnvOverlayInvalid(t *testing.T) {
	_, err := EnvOverlay([]string{"COMBOKIT_SAVE_PERIOD=many", "COMBOKIT_OPEN_RESULTS=perhaps"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "COMBOKIT_SAVE_PERIOD")
	assert.Contains(t, err.Error(), "COMBOKIT_OPEN_RESULTS")
}

func TestEnvOverlayEmptyExclude(t *testing.T) {
	over, err := EnvOverlay([]string{"COMBOKIT_READER_EXCLUDE_DIR_NAMES="})
	require.NoError(t, err)
	cfg := Merge(Defaults(), over)
	assert.Empty(t, cfg.Reader.ExcludeDirNames)
	assert.NotNil(t, cfg.Reader.ExcludeDirNames)
}

// 文件中打开的开关可由环境变量显式关闭。
func TestMergeExplicitFalse(t *testing.T) {
	file := Defaults()
	file.OpenResults = true
	file.Writer.Sync = true
	over, err := EnvOverlay([]string{"COMBOKIT_OPEN_RESULTS=false", "COMBOKIT_WRITER_SYNC=0"})
	require.NoError(t, err)
	cfg := Merge(file, over)
	assert.False(t, cfg.OpenResults)
	assert.False(t, cfg.Writer.Sync)
	assert.Equal(t, Explicit{}, cfg.Explicit)

	// 未显式给出时保持文件值
	cfg = Merge(file, Config{})
	assert.True(t, cfg.OpenResults)
	assert.True(t, cfg.Writer.Sync)
}

func TestDefaultsExcludeNothing(t *testing.T) {
	cfg := Defaults()
	assert.Empty(t, cfg.Reader.ExcludeDirNames)
}

// 优先级：CLI > ENV > 文件 > 默认
func TestMergePrecedence(t *testing.T) {
	file := Config{SavePeriod: 10, Encoding: "utf-8", ResultsDir: "file"}
	env := Config{SavePeriod: 20}
	cli := Config{ResultsDir: "cli", Task: contract.TaskMerge, Targets: []string{"x"}}
	cfg := Merge(Merge(Merge(Defaults(), file), env), cli)
	assert.Equal(t, 20, cfg.SavePeriod)
	assert.Equal(t, "utf-8", cfg.Encoding)
	assert.Equal(t, "cli", cfg.ResultsDir)
	assert.Equal(t, contract.TaskMerge, cfg.Task)
	assert.Equal(t, dedup.NameStream, cfg.DedupStrategy)
}

func TestFindFile(t *testing.T) {
	dir := t.TempDir()
	cwd, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	defer os.Chdir(cwd)

	assert.Equal(t, "x.yaml", FindFile(" x.yaml ", []string{"COMBOKIT_CONFIG_FILE=y.yaml"}))
	assert.Equal(t, "y.yaml", FindFile("", []string{"COMBOKIT_CONFIG_FILE=y.yaml"}))
	assert.Equal(t, "", FindFile("", nil))
	require.NoError(t, os.WriteFile(DefaultFile, []byte("workers: 1\n"), 0o644))
	assert.Equal(t, DefaultFile, FindFile("", nil))
}

func TestSplitCommaAtoi(t *testing.T) {
	parts := splitComma("a, b , ,c")
	assert.Equal(t, []string{"a", "b", "c"}, parts)
	assert.Nil(t, splitComma(" , "))
	v, err := atoi(" 10 ")
	require.NoError(t, err)
	assert.Equal(t, 10, v)
}

func TestValidateErrors(t *testing.T) {
	require.Error(t, Validate(Config{}))
	require.NoError(t, Validate(runnable(Defaults())))

	cases := map[string]func(*Config){
		"unknown task":     func(c *Config) { c.Task = "explode" },
		"no targets":       func(c *Config) { c.Targets = nil },
		"blank target":     func(c *Config) { c.Targets = []string{" "} },
		"split without n":  func(c *Config) { c.Task = contract.TaskSplitByParts },
		"compare no ref":   func(c *Config) { c.Task = contract.TaskCompare },
		"save period":      func(c *Config) { c.SavePeriod = 0 },
		"negative workers": func(c *Config) { c.Workers = -1 },
		"encoding":         func(c *Config) { c.Encoding = "klingon" },
		"strategy":         func(c *Config) { c.DedupStrategy = "magic" },
		"log level":        func(c *Config) { c.Logging.Level = "loud" },
		"results dir":      func(c *Config) { c.ResultsDir = "" },
	}
	for name, mut := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := runnable(Defaults())
			mut(&cfg)
			err := Validate(cfg)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrConfig)
		})
	}
}

func TestRunDir(t *testing.T) {
	now := time.Date(2024, 3, 7, 9, 5, 2, 0, time.UTC)
	got := RunDir("Results", contract.TaskShuffle, now)
	assert.Equal(t, filepath.Join("Results", "shuffle", "07.03.2024", "09_05_02"), got)
}

func TestAssemble(t *testing.T) {
	cfg := runnable(Defaults())
	cfg.Task = contract.TaskExtractLogins
	comp, set, err := Assemble(cfg, "run", nil)
	require.NoError(t, err)
	require.NotNil(t, comp.Transform)
	assert.Equal(t, "login", comp.Transform.Name())
	assert.NotNil(t, comp.Source)
	assert.NotNil(t, comp.Sinks)
	assert.NotNil(t, comp.List)
	assert.NotNil(t, comp.Map)
	assert.Equal(t, dedup.NameStream, comp.Strategy.Name())
	assert.Equal(t, "run", set.ResultsDir)
	assert.Equal(t, 1000, set.SavePeriod)

	cfg.SavePeriod = -1
	_, _, err = Assemble(cfg, "run", nil)
	require.ErrorIs(t, err, ErrConfig)
}

func TestTemplateRoundTrip(t *testing.T) {
	b, err := TemplateYAML()
	require.NoError(t, err)
	cfg, err := LoadYAML("", b)
	require.NoError(t, err)
	assert.Equal(t, DefaultTemplateConfig(), cfg)
}
