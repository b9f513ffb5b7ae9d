package config

import (
	"combokit/pkg/contract"
	rfs "combokit/plugins/reader/filesystem"
	wfs "combokit/plugins/writer/filesystem"
)

// Config: 运行期只读配置（一次解析，运行期不变）。
// YAML 使用 snake_case；未知字段在解析期失败。
type Config struct {
	// SavePeriod: 批容量（行）。
	SavePeriod int `yaml:"save_period"`
	// Workers: 指纹阶段并行度；0 表示 CPU 数。
	Workers int `yaml:"workers"`
	// Encoding: 输入与输出代码页。
	Encoding      string `yaml:"encoding"`
	ResultsDir    string `yaml:"results_dir"`
	DedupStrategy string `yaml:"dedup_strategy"`
	// OpenResults: 运行结束后在文件管理器中打开结果目录。
	OpenResults bool    `yaml:"open_results"`
	Logging     Logging `yaml:"logging"`

	// 组件 Options 子树。
	Reader rfs.Options `yaml:"reader"`
	Writer wfs.Options `yaml:"writer"`

	// 以下仅来自命令行。
	Task        contract.Task `yaml:"-"`
	Targets     []string      `yaml:"-"`
	N           int           `yaml:"-"`
	CompareWith string        `yaml:"-"`
	Seed        uint64        `yaml:"-"`

	// Explicit 携带上层显式给出的开关，仅供 Merge 使用。
	Explicit Explicit `yaml:"-"`
}

// Explicit 记录环境变量或命令行显式设置的开关（含 false）；nil 表示未设置。
type Explicit struct {
	OpenResults *bool
	WriterSync  *bool
}

// Logging: 等级与日志目录；轮转策略为固定默认。
type Logging struct {
	Level string `yaml:"level"`
	Dir   string `yaml:"dir"`
}
